package models

// AvailabilityStatus classifies the outcome of an availability query.
type AvailabilityStatus string

const (
	AvailabilityUnknown     AvailabilityStatus = "unknown"
	AvailabilityAvailable   AvailabilityStatus = "available"
	AvailabilityUnavailable AvailabilityStatus = "unavailable"
	// AvailabilityAssumed is the degraded state used when the backend could
	// not be reached for the debounced UI check: the user may proceed and the
	// authoritative pre-payment check has the final word.
	AvailabilityAssumed AvailabilityStatus = "assumed-available"
)

// AvailabilityResult is the rendered outcome of one availability query.
type AvailabilityResult struct {
	Status         AvailabilityStatus `json:"status"`
	OverlapCount   int                `json:"overlapCount"`
	SlotsRemaining int                `json:"slotsRemaining"`
	Message        string             `json:"message,omitempty"`
}

// Available reports whether the result permits continuing the flow.
func (r AvailabilityResult) Available() bool {
	return r.Status == AvailabilityAvailable || r.Status == AvailabilityAssumed
}
