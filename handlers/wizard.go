package handlers

import (
	"errors"
	"net/http"
	"time"

	"rentflow/models"
	"rentflow/services/booking"
	"rentflow/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WizardHandler adapts the booking wizard engine to HTTP. It is the only
// layer that knows about the transport; the engine itself exposes state and
// results and never touches the request.
type WizardHandler struct {
	Service booking.WizardService
	Logger  *zap.Logger
}

// NewWizardHandler builds the handler.
func NewWizardHandler(svc booking.WizardService, logger *zap.Logger) *WizardHandler {
	return &WizardHandler{Service: svc, Logger: logger}
}

// InitiateSession starts a new wizard session at step 1.
func (h *WizardHandler) InitiateSession(c *gin.Context) {
	sess, err := h.Service.InitiateSession(c.Request.Context())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// GetSession returns the current session state.
func (h *WizardHandler) GetSession(c *gin.Context) {
	sess, err := h.Service.GetSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// CancelSession drops the session and tears down its payment form.
func (h *WizardHandler) CancelSession(c *gin.Context) {
	if err := h.Service.CancelSession(c.Request.Context(), c.Param("sessionID")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// SelectDates replaces the date range and restarts the debounced
// availability check.
func (h *WizardHandler) SelectDates(c *gin.Context) {
	var input struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
		Immediate bool   `json:"immediate"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	rng, err := parseRange(input.StartDate, input.EndDate)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	sess, err := h.Service.SelectDates(c.Request.Context(), c.Param("sessionID"), rng, input.Immediate)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// PickDate applies a single date-picker click.
func (h *WizardHandler) PickDate(c *gin.Context) {
	var input struct {
		Date string `json:"date" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	sess, err := h.Service.PickDate(c.Request.Context(), c.Param("sessionID"), input.Date)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// SelectTimeSlot stores the delivery slot chosen on the dates step.
func (h *WizardHandler) SelectTimeSlot(c *gin.Context) {
	var input struct {
		TimeSlot string `json:"timeSlot" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	sess, err := h.Service.SelectTimeSlot(c.Request.Context(), c.Param("sessionID"), input.TimeSlot)
	if err != nil {
		h.renderStepError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Availability returns the latest committed availability status.
func (h *WizardHandler) Availability(c *gin.Context) {
	result, err := h.Service.Availability(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Advance validates the active step and moves forward.
func (h *WizardHandler) Advance(c *gin.Context) {
	sess, err := h.Service.Advance(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.renderStepError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// SubmitContact stores the contact/address fields and advances to payment.
func (h *WizardHandler) SubmitContact(c *gin.Context) {
	var contact models.ContactDetails
	if err := c.ShouldBindJSON(&contact); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	sess, err := h.Service.SubmitContact(c.Request.Context(), c.Param("sessionID"), contact)
	if err != nil {
		h.renderStepError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GoBack navigates to an earlier step without validation.
func (h *WizardHandler) GoBack(c *gin.Context) {
	var input struct {
		Step int `json:"step" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	sess, err := h.Service.GoBack(c.Request.Context(), c.Param("sessionID"), models.WizardStep(input.Step))
	if err != nil {
		h.renderStepError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// Reset returns the wizard to step 1.
func (h *WizardHandler) Reset(c *gin.Context) {
	sess, err := h.Service.Reset(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// EnterPayment initializes the tokenization widget and mounts the card form.
func (h *WizardHandler) EnterPayment(c *gin.Context) {
	var input struct {
		Container string `json:"container" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	sess, err := h.Service.EnterPayment(c.Request.Context(), c.Param("sessionID"), input.Container)
	if err != nil {
		h.renderStepError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// LeavePayment tears down the mounted card form on modal close.
func (h *WizardHandler) LeavePayment(c *gin.Context) {
	if err := h.Service.LeavePayment(c.Request.Context(), c.Param("sessionID")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "detached"})
}

// Submit runs the full submission pipeline.
func (h *WizardHandler) Submit(c *gin.Context) {
	var card models.CardDetails
	if err := c.ShouldBindJSON(&card); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	sess, receipt, err := h.Service.Submit(c.Request.Context(), c.Param("sessionID"), card)
	if err != nil {
		h.renderSubmitError(c, sess, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess, "confirmation": receipt})
}

// Health reports the liveness snapshot.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, utils.GetHealthStatus())
}

// renderError maps engine errors that are not tied to a step outcome.
func (h *WizardHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, booking.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrPaymentUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		var verr *booking.ValidationErrors
		if errors.As(err, &verr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation failed", "step": int(verr.Step), "fields": verr.Fields})
			return
		}
		h.Logger.Error("wizard request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// renderStepError additionally returns the (possibly rewound) session so the
// client can jump to the offending step.
func (h *WizardHandler) renderStepError(c *gin.Context, sess *models.WizardSession, err error) {
	var verr *booking.ValidationErrors
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation failed",
			"step":    int(verr.Step),
			"fields":  verr.Fields,
			"session": sess,
		})
		return
	}
	h.renderError(c, err)
}

// renderSubmitError distinguishes every outcome class of the submission
// pipeline. Collapsing "nothing happened" and "a charge may have occurred"
// is the worst defect this API could have, so each gets its own shape.
func (h *WizardHandler) renderSubmitError(c *gin.Context, sess *models.WizardSession, err error) {
	var rateErr *booking.RateLimitedError
	if errors.As(err, &rateErr) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":      rateErr.Error(),
			"retryAfter": rateErr.RetryAfter.Seconds(),
		})
		return
	}

	var cardErr *booking.CardError
	if errors.As(err, &cardErr) {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":     cardErr.Code.Message(),
			"cardError": string(cardErr.Code),
			"retryable": true, // user-correctable, nothing was charged
		})
		return
	}

	var conflictErr *booking.AvailabilityConflictError
	if errors.As(err, &conflictErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   conflictErr.Error(),
			"session": sess,
			"charged": false,
		})
		return
	}

	var raceErr *booking.RaceLossError
	if errors.As(err, &raceErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":         raceErr.Error(),
			"refundPending": raceErr.RefundPending,
			"charged":       true,
		})
		return
	}

	var subErr *booking.SubmissionError
	if errors.As(err, &subErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   subErr.Error(),
			"charged": subErr.ChargeMayExist,
		})
		return
	}

	h.renderStepError(c, sess, err)
}

// parseRange converts YYYY-MM-DD strings into a DateRange; empty strings
// leave the bound unset.
func parseRange(start, end string) (models.DateRange, error) {
	var rng models.DateRange
	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return rng, err
		}
		day := models.Day(t)
		rng.StartDate = &day
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return rng, err
		}
		day := models.Day(t)
		rng.EndDate = &day
	}
	return rng, nil
}
