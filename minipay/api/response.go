package api

import (
	"errors"
	"net/http"

	"github.com/Tiel0043/projecthub/minipay/ledger"
	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the JSON envelope for failed requests.
type ErrorResponse struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// OK sends an HTTP 200 OK response with a custom body.
func OK(c *fiber.Ctx, body any) error {
	return c.Status(http.StatusOK).JSON(body)
}

// Created sends an HTTP 201 Created response with a custom body.
func Created(c *fiber.Ctx, body any) error {
	return c.Status(http.StatusCreated).JSON(body)
}

// BadRequest sends an HTTP 400 Bad Request response with an error envelope.
func BadRequest(c *fiber.Ctx, code, field, message string) error {
	return c.Status(http.StatusBadRequest).JSON(ErrorResponse{Code: code, Field: field, Message: message})
}

// statusByCode maps domain error codes onto HTTP statuses.
var statusByCode = map[ledger.ErrorCode]int{
	ledger.ErrorAccountNotFound:         http.StatusNotFound,
	ledger.ErrorSettlementNotFound:      http.StatusNotFound,
	ledger.ErrorUserNotFound:            http.StatusNotFound,
	ledger.ErrorParticipantNotFound:     http.StatusNotFound,
	ledger.ErrorInsufficientBalance:     http.StatusUnprocessableEntity,
	ledger.ErrorDailyLimitExceeded:      http.StatusUnprocessableEntity,
	ledger.ErrorInvalidStateTransition:  http.StatusUnprocessableEntity,
	ledger.ErrorOptimisticConflict:      http.StatusConflict,
	ledger.ErrorInvalidInput:            http.StatusBadRequest,
	ledger.ErrorInvalidAccountPairing:   http.StatusBadRequest,
	ledger.ErrorInvalidParticipantCount: http.StatusBadRequest,
	ledger.ErrorUnsupportedPolicy:       http.StatusBadRequest,
}

// DomainError translates a service error into its HTTP response. Errors
// without a domain code become an opaque 500 so internals never leak.
func DomainError(c *fiber.Ctx, err error) error {
	var domainErr ledger.DomainError
	if errors.As(err, &domainErr) {
		status, ok := statusByCode[domainErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}

		return c.Status(status).JSON(ErrorResponse{
			Code:    string(domainErr.Code),
			Field:   domainErr.Field,
			Message: domainErr.Message,
		})
	}

	return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
		Code:    "9999",
		Message: "internal error",
	})
}
