package global

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// APIError is the body of every non-2xx response.
type APIError struct {
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func ErrorResponse(message string, errors []ValidationError) APIError {
	return APIError{
		Message: message,
		Errors:  errors,
	}
}
