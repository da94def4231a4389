package v1

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func errorResponse(c *gin.Context, code ErrorCode) {
	errorResponseWithStatus(c, http.StatusBadRequest, code)
}

func errorResponseWithStatus(c *gin.Context, status int, code ErrorCode) {
	c.AbortWithStatusJSON(status, getErrorStruct(code))
}

func internalErrorResponse(c *gin.Context) {
	errorResponseWithStatus(c, http.StatusInternalServerError, InternalServerErrorCode)
}

// rateLimitResponse reports retryAfter in whole seconds, rounded up.
func rateLimitResponse(c *gin.Context, retryAfter time.Duration) {
	seconds := int64(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}

	c.Header("Retry-After", strconv.FormatInt(seconds, 10))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, RateLimitStruct{
		Error:      RateLimitExceededMessage,
		RetryAfter: seconds,
	})
}

func validationErrorResponse(c *gin.Context, err error) {
	var verr validator.ValidationErrors
	if !errors.As(err, &verr) {
		errorResponse(c, InvalidRequestBodyCode)
		return
	}

	out := make([]ValidationError, len(verr))
	for i, ferr := range verr {
		out[i] = ValidationError{ferr.Field(), msgForTag(ferr.Tag(), ferr.Param())}
	}
	response := ValidationErrorStruct{
		ErrorCode:    ValidationErrorCode,
		ErrorMessage: ValidationErrorMessage,
	}
	response.Errors = out
	c.AbortWithStatusJSON(http.StatusBadRequest, response)
}

func msgForTag(tag string, value string) string {
	switch tag {
	case "required":
		return "This field is required"
	case "email", "resetemail":
		return "Invalid email format"
	case "otpcode":
		return "Code must be exactly 6 digits"
	case "min":
		return fmt.Sprintf("Minimum field length is %v", value)
	case "max":
		return fmt.Sprintf("Maximum field length is %v", value)
	}
	return tag
}
