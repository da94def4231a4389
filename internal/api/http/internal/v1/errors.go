package v1

// Errors
const (
	UnknownErrorCode    = 0
	UnknownErrorMessage = "unknown error"

	InvalidRequestBodyCode    = 1001
	InvalidRequestBodyMessage = "invalid request body"
	CSRFTokenInvalidCode      = 1002
	CSRFTokenInvalidMessage   = "invalid csrf token"

	ResetNotFoundCode           = 2001
	ResetNotFoundMessage        = "no reset request found"
	ResetCodeExpiredCode        = 2002
	ResetCodeExpiredMessage     = "reset code has expired"
	ResetTooManyAttemptsCode    = 2003
	ResetTooManyAttemptsMessage = "too many failed attempts"
	ResetInvalidCodeCode        = 2004
	ResetInvalidCodeMessage     = "invalid reset code"

	RateLimitExceededMessage = "too many requests, try again later"

	InternalServerErrorCode    = 5000
	InternalServerErrorMessage = "internal server error"

	ValidationErrorCode    = 6000
	ValidationErrorMessage = "validation error"
)

type ErrorCode int
type ErrorMessage string

type ErrorStruct struct {
	ErrorCode    `json:"error_code"`
	ErrorMessage `json:"error_message"`
} // @name ErrorStruct

type ValidationErrorStruct struct {
	ErrorCode    int               `json:"error_code"`
	ErrorMessage string            `json:"error_message"`
	Errors       []ValidationError `json:"validation_errors"`
}

type ValidationError struct {
	FieldKey     string `json:"field_key"`
	ErrorMessage string `json:"error_message"`
}

type RateLimitStruct struct {
	Error      string `json:"error"`
	RetryAfter int64  `json:"retryAfter"`
} // @name RateLimitStruct

var errorMessages = map[ErrorCode]ErrorMessage{
	InvalidRequestBodyCode:   InvalidRequestBodyMessage,
	CSRFTokenInvalidCode:     CSRFTokenInvalidMessage,
	ResetNotFoundCode:        ResetNotFoundMessage,
	ResetCodeExpiredCode:     ResetCodeExpiredMessage,
	ResetTooManyAttemptsCode: ResetTooManyAttemptsMessage,
	ResetInvalidCodeCode:     ResetInvalidCodeMessage,
	InternalServerErrorCode:  InternalServerErrorMessage,
}

func getErrorStruct(code ErrorCode) *ErrorStruct {
	errorStruct := &ErrorStruct{
		ErrorCode:    UnknownErrorCode,
		ErrorMessage: UnknownErrorMessage,
	}

	if message, ok := errorMessages[code]; ok {
		errorStruct.ErrorCode = code
		errorStruct.ErrorMessage = message
	}

	return errorStruct
}
