package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrStaleEvent          = NewDomainError("STALE_EVENT", "Event is older than the applied projection")
	ErrBadSignature        = NewDomainError("BAD_SIGNATURE", "Webhook signature verification failed")
	ErrUpstreamUnavailable = NewDomainError("UPSTREAM_UNAVAILABLE", "Payment provider is unavailable")
	ErrUpstreamTimeout     = NewDomainError("UPSTREAM_TIMEOUT", "Payment provider request timed out")
	ErrNoCharge            = NewDomainError("NO_CHARGE", "No charges found for this payment intent")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)
