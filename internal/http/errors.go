package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"storefront/internal/domain"
)

const (
	codeValidation   = "VALIDATION_ERROR"
	codeNotFound     = "NOT_FOUND"
	codeBadRequest   = "BAD_REQUEST"
	codeConflict     = "CONFLICT"
	codeForbidden    = "FORBIDDEN"
	codeUnauthorized = "UNAUTHORIZED"
	codeInternal     = "INTERNAL"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details []any  `json:"details,omitempty"`
}

// errorResponse is the envelope every failed request gets.
type errorResponse struct {
	Error     errorBody `json:"error"`
	RequestID string    `json:"requestId,omitempty"`
}

type mapping struct {
	target error
	status int
	code   string
}

var errorTable = []mapping{
	{domain.ErrEmptyCart, http.StatusUnprocessableEntity, codeValidation},
	{domain.ErrInvalidQuantity, http.StatusUnprocessableEntity, codeValidation},
	{domain.ErrCartTotalTooLow, http.StatusUnprocessableEntity, codeValidation},
	{domain.ErrCartTotalTooHigh, http.StatusUnprocessableEntity, codeValidation},
	{domain.ErrAmountMismatch, http.StatusUnprocessableEntity, codeValidation},
	{domain.ErrInvalidInput, http.StatusUnprocessableEntity, codeValidation},

	{domain.ErrProductNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrOrderNotFound, http.StatusNotFound, codeNotFound},
	{domain.ErrPaymentNotFound, http.StatusNotFound, codeNotFound},

	{domain.ErrProductInactive, http.StatusBadRequest, codeBadRequest},
	{domain.ErrEmailTaken, http.StatusBadRequest, codeBadRequest},

	{domain.ErrInsufficientStock, http.StatusConflict, codeConflict},
	{domain.ErrAlreadyPaid, http.StatusConflict, codeConflict},
	{domain.ErrAlreadyCancelled, http.StatusConflict, codeConflict},
	{domain.ErrInvalidOrderState, http.StatusConflict, codeConflict},
	{domain.ErrPaymentExists, http.StatusConflict, codeConflict},

	{domain.ErrForbidden, http.StatusForbidden, codeForbidden},
	{domain.ErrUnauthorized, http.StatusUnauthorized, codeUnauthorized},
}

func mapErrorToStatus(err error) (int, string) {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, codeInternal
}

// abortWithError writes the envelope for a service error.
func abortWithError(c *gin.Context, err error) {
	status, code := mapErrorToStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal server error"
	}
	var details []any
	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		details = append(details, gin.H{
			"productId": ise.ProductID,
			"available": ise.Available,
			"requested": ise.Requested,
		})
	}
	writeError(c, status, code, msg, details)
}

// abortWithBindError reports a body that failed to decode or validate.
func abortWithBindError(c *gin.Context, err error) {
	var details []any
	var verrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &verrs):
		for _, fe := range verrs {
			details = append(details, gin.H{"field": fe.Field(), "rule": fe.Tag(), "param": fe.Param()})
		}
	case errors.As(err, &typeErr):
		details = append(details, gin.H{"field": typeErr.Field, "rule": "type"})
	case errors.As(err, &syntaxErr):
		details = append(details, gin.H{"offset": syntaxErr.Offset, "rule": "json"})
	}
	writeError(c, http.StatusUnprocessableEntity, codeValidation, "request validation failed", details)
}

func writeError(c *gin.Context, status int, code, msg string, details []any) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error:     errorBody{Code: code, Message: msg, Details: details},
		RequestID: c.GetString(requestIDKey),
	})
}
