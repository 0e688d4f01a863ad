package response

// Resp is the standard JSON response body.
type Resp struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Errors    any    `json:"errors,omitempty"`
}

const (
	MessageSuccess  = "Success"
	MessageAccepted = "Accepted"

	InternalServerErrorCode = 500
	DefaultErrorMessage     = "Something went wrong"
)
