package booking

import (
	"fmt"
	"time"

	"rentflow/models"
)

// StepValidator gates forward navigation out of one wizard step.
type StepValidator func(sess *models.WizardSession) error

// StepMachine drives the four linear wizard steps. Forward navigation runs
// the step's validator and never transitions silently on failure; backward
// navigation is unconditional. The confirmation step is terminal and only
// reachable through CompleteBooking.
type StepMachine struct {
	MinRentalDays int
	// TimeSlots are the delivery slots offered on the dates step. When empty
	// no slot is collected.
	TimeSlots []string

	validators map[models.WizardStep]StepValidator
}

// NewStepMachine builds a machine with the default date and contact
// validators registered.
func NewStepMachine(minRentalDays int) *StepMachine {
	m := &StepMachine{
		MinRentalDays: minRentalDays,
		validators:    make(map[models.WizardStep]StepValidator),
	}
	m.validators[models.StepDates] = func(sess *models.WizardSession) error {
		if verr := ValidateDates(sess.Range, m.MinRentalDays); verr != nil {
			return verr
		}
		if verr := ValidateTimeSlot(sess.TimeSlot, m.TimeSlots); verr != nil {
			return verr
		}
		return nil
	}
	m.validators[models.StepContact] = func(sess *models.WizardSession) error {
		if verr := ValidateContact(sess.Contact); verr != nil {
			return verr
		}
		return nil
	}
	return m
}

// RegisterValidator overrides the validator for a step.
func (m *StepMachine) RegisterValidator(step models.WizardStep, v StepValidator) {
	m.validators[step] = v
}

// InitSession puts a session into the initial state: step 1, nothing
// validated.
func (m *StepMachine) InitSession(sess *models.WizardSession) {
	sess.CurrentStep = models.StepDates
	sess.Validated = map[models.WizardStep]bool{
		models.StepDates:        false,
		models.StepContact:      false,
		models.StepPayment:      false,
		models.StepConfirmation: false,
	}
	sess.RangeSnapshot = nil
	sess.Confirmation = nil
}

// Advance validates the active step and, on success, marks it validated and
// moves forward. On failure the active step is unchanged and the field
// errors are returned. The confirmation step cannot be reached this way.
func (m *StepMachine) Advance(sess *models.WizardSession) error {
	cur := sess.CurrentStep
	if cur >= models.StepPayment {
		return fmt.Errorf("cannot advance beyond the %s step", cur)
	}

	if v, ok := m.validators[cur]; ok {
		if err := v(sess); err != nil {
			return err
		}
	}

	sess.Validated[cur] = true
	if cur == models.StepDates {
		// Freeze the dates later steps will act on. Edits made after going
		// back re-enter through Advance and refresh the snapshot.
		snapshot := sess.Range
		sess.RangeSnapshot = &snapshot
	}
	sess.CurrentStep = cur + 1
	sess.UpdatedAt = time.Now()
	return nil
}

// GoBack moves to an earlier (or the current) step without validation.
func (m *StepMachine) GoBack(sess *models.WizardSession, to models.WizardStep) error {
	if to < models.StepDates || to > sess.CurrentStep {
		return fmt.Errorf("cannot go back to step %d from step %d", to, sess.CurrentStep)
	}
	if sess.CurrentStep == models.StepConfirmation {
		return fmt.Errorf("the booking is already confirmed")
	}
	sess.CurrentStep = to
	sess.UpdatedAt = time.Now()
	return nil
}

// Reset returns the session to step 1 and clears all validated flags.
func (m *StepMachine) Reset(sess *models.WizardSession) {
	m.InitSession(sess)
	sess.UpdatedAt = time.Now()
}

// CompleteBooking transitions to the terminal confirmation step. Only the
// booking-success path of the flow controller calls this.
func (m *StepMachine) CompleteBooking(sess *models.WizardSession, receipt *models.BookingReceipt) {
	sess.Validated[models.StepPayment] = true
	sess.Validated[models.StepConfirmation] = true
	sess.CurrentStep = models.StepConfirmation
	sess.Confirmation = receipt
	sess.UpdatedAt = time.Now()
}

// Revalidate re-runs the step-1 and step-2 validators against the session as
// a defense against stale state just before submission. The returned error
// names the offending step so the UI can jump back to it.
func (m *StepMachine) Revalidate(sess *models.WizardSession) error {
	rng := sess.Range
	if sess.RangeSnapshot != nil {
		rng = *sess.RangeSnapshot
	}
	if verr := ValidateDates(rng, m.MinRentalDays); verr != nil {
		return verr
	}
	if verr := ValidateTimeSlot(sess.TimeSlot, m.TimeSlots); verr != nil {
		return verr
	}
	if verr := ValidateContact(sess.Contact); verr != nil {
		return verr
	}
	return nil
}
