package httpresp

const (
	MsgAlive       = "⚡️ Bot is Alive!"
	StatusOK       = "ok"
	StatusNotReady = "not ready"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func NewErrorResponse(message string) ErrorResponse {
	return ErrorResponse{Error: message}
}

func NewStatusResponse(status string, checks map[string]string) StatusResponse {
	return StatusResponse{Status: status, Checks: checks}
}

// ErrorText is the plain-text body for unexpected failures.
func ErrorText(err error) string {
	if err == nil {
		return "Error"
	}
	return "Error: " + err.Error()
}

const (
	ErrMissingBearerToken = "missing bearer token"
	ErrInvalidToken       = "invalid token"
)
