package models

// Machine-readable error codes surfaced to clients.
const (
	CodeOperationInProgress = "OPERATION_IN_PROGRESS"
	CodeStaleVersion        = "STALE_VERSION"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeSurveyClosed        = "SURVEY_CLOSED"
	CodeNotEligible         = "NOT_ELIGIBLE"
	CodeAuthRequired        = "AUTH_REQUIRED"
	CodeAlreadySubmitted    = "ALREADY_SUBMITTED"
	CodeValidationFailed    = "VALIDATION_FAILED"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Status  int      `json:"status"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"` // offending question ids for VALIDATION_FAILED
}
