package errors

import stderrors "errors"

// ErrorResponse is the JSON problem body of a failed API response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details of a problem body.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError to its problem body.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   e.Message,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// AppError converts a problem body received with the given status back
// into an AppError.
func (r ErrorResponse) AppError(status int) *AppError {
	return &AppError{
		Code:       r.Error.Code,
		Message:    r.Error.Message,
		Retryable:  r.Error.Retryable,
		HTTPStatus: status,
		Details:    r.Error.Details,
	}
}

// AsAppError returns the AppError in err's chain, if any.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
