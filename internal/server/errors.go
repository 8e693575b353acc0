package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/commcredit/internal/authorization"
	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	subscriptiondomain "github.com/smallbiznis/commcredit/internal/subscription/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type insufficientDetails struct {
	Channel   string `json:"channel"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

type errorPayload struct {
	Type    string               `json:"type"`
	Message string               `json:"message"`
	Errors  []ValidationError    `json:"errors,omitempty"`
	Details *insufficientDetails `json:"details,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var insufficient *creditdomain.InsufficientCreditsError
	if errors.As(err, &insufficient) {
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_credits",
			Message: "insufficient credits",
			Details: &insufficientDetails{
				Channel:   insufficient.Channel.String(),
				Requested: insufficient.Requested,
				Available: insufficient.Available,
			},
		}
	}

	switch {
	case errors.Is(err, creditdomain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_credits",
			Message: "insufficient credits",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		creditdomain.IsValidationError(err),
		isSubscriptionValidationError(err),
		errors.Is(err, authorization.ErrInvalidActor),
		errors.Is(err, authorization.ErrInvalidTenant):
		return true
	default:
		return false
	}
}

func isSubscriptionValidationError(err error) bool {
	return errors.Is(err, subscriptiondomain.ErrInvalidTenant) ||
		errors.Is(err, subscriptiondomain.ErrInvalidStatus) ||
		errors.Is(err, subscriptiondomain.ErrInvalidLimit) ||
		errors.Is(err, subscriptiondomain.ErrInvalidAnchorDay)
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, creditdomain.ErrAmountExceedsLimit):
		return "invalid_amount"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}
