package server

import (
	"errors"
	"net/http"
	"strings"

	customerdomain "github.com/fieldserve/tradebill/internal/customer/domain"
	documentdomain "github.com/fieldserve/tradebill/internal/document/domain"
	organizationdomain "github.com/fieldserve/tradebill/internal/organization/domain"
	paymentdomain "github.com/fieldserve/tradebill/internal/payment/domain"
	publicquotedomain "github.com/fieldserve/tradebill/internal/publicquote/domain"
	"github.com/gin-gonic/gin"
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

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrOrgRequired    = errors.New("organization_required")
	ErrRateLimited    = errors.New("rate_limited")
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

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, documentdomain.ErrDecisionRequired):
		return http.StatusConflict, errorPayload{
			Type:    "decision_required",
			Message: "document is no longer draft; a variation decision is required",
		}
	case errors.Is(err, documentdomain.ErrIllegalTransition):
		return http.StatusConflict, errorPayload{
			Type:    "illegal_transition",
			Message: "the requested status change is not allowed from the current status",
		}
	case errors.Is(err, publicquotedomain.ErrNotActionable):
		return http.StatusConflict, errorPayload{
			Type:    "not_actionable",
			Message: "this quote can no longer be accepted or rejected",
		}
	case errors.Is(err, publicquotedomain.ErrDepositRequired):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "deposit_required",
			Message: "the deposit must be paid before this quote can be accepted",
		}
	case errors.Is(err, paymentdomain.ErrOverpayment):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "overpayment",
			Message: "payment exceeds the outstanding amount",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, documentdomain.ErrDepositAlreadyPaid):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrInternal):
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
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
		errors.Is(err, ErrOrgRequired):
		return true
	case errors.Is(err, documentdomain.ErrInvalidOrganization),
		errors.Is(err, documentdomain.ErrInvalidKind),
		errors.Is(err, documentdomain.ErrInvalidClient),
		errors.Is(err, documentdomain.ErrInvalidQuantity),
		errors.Is(err, documentdomain.ErrInvalidUnitPrice),
		errors.Is(err, documentdomain.ErrInvalidDescription),
		errors.Is(err, documentdomain.ErrInvalidItemType),
		errors.Is(err, documentdomain.ErrInvalidDepositType),
		errors.Is(err, documentdomain.ErrInvalidDepositValue),
		errors.Is(err, documentdomain.ErrDepositExceedsTotal),
		errors.Is(err, documentdomain.ErrDepositNotRequired),
		errors.Is(err, documentdomain.ErrNoLineItems),
		errors.Is(err, documentdomain.ErrDueDateRequired),
		errors.Is(err, documentdomain.ErrQuoteOnly),
		errors.Is(err, documentdomain.ErrInvoiceOnly),
		errors.Is(err, documentdomain.ErrInvalidDecision),
		errors.Is(err, documentdomain.ErrInvalidAcceptorName),
		errors.Is(err, documentdomain.ErrInvalidAcceptorEmail),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidMethod):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, documentdomain.ErrNotFound),
		errors.Is(err, documentdomain.ErrLineItemNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, publicquotedomain.ErrQuoteUnavailable),
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
	case errors.Is(err, ErrOrgRequired),
		errors.Is(err, documentdomain.ErrInvalidOrganization):
		return "invalid_organization"
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
