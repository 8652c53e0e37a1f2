package ledger

import (
	"errors"
	"fmt"
)

// ErrorCode is a domain error code used by minipay validations.
type ErrorCode string

const (
	// ErrorAccountNotFound indicates the referenced account does not exist.
	ErrorAccountNotFound ErrorCode = "0001"
	// ErrorInsufficientBalance indicates the source balance cannot cover the amount.
	ErrorInsufficientBalance ErrorCode = "0002"
	// ErrorDailyLimitExceeded indicates the debit would exceed the daily usage ceiling.
	ErrorDailyLimitExceeded ErrorCode = "0003"
	// ErrorInvalidAccountPairing indicates the account kinds cannot transact with each other.
	ErrorInvalidAccountPairing ErrorCode = "0004"
	// ErrorOptimisticConflict indicates concurrent writers exhausted the retry bound.
	ErrorOptimisticConflict ErrorCode = "0005"
	// ErrorInvalidParticipantCount indicates a settlement has no valid participant count.
	ErrorInvalidParticipantCount ErrorCode = "0006"
	// ErrorUnsupportedPolicy indicates an unrecognized settlement allocation policy.
	ErrorUnsupportedPolicy ErrorCode = "0007"
	// ErrorParticipantNotFound indicates the participant does not belong to the settlement.
	ErrorParticipantNotFound ErrorCode = "0008"
	// ErrorSettlementNotFound indicates the referenced settlement does not exist.
	ErrorSettlementNotFound ErrorCode = "0009"
	// ErrorUserNotFound indicates the referenced user does not exist.
	ErrorUserNotFound ErrorCode = "0010"
	// ErrorInvalidInput indicates request payload validation failed.
	ErrorInvalidInput ErrorCode = "1001"
	// ErrorInvalidStateTransition indicates an invalid lifecycle transition was requested.
	ErrorInvalidStateTransition ErrorCode = "1002"
)

// ErrVersionConflict is the sentinel returned by stores when a conditional
// save observes a version other than the expected one. It is the only error
// the optimistic retry loop treats as retryable.
var ErrVersionConflict = errors.New("version conflict")

// DomainError represents a structured minipay domain validation error.
type DomainError struct {
	Code    ErrorCode
	Field   string
	Message string
}

// Error returns the formatted domain error string.
func (e DomainError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

// NewDomainError creates a domain error with code, field, and message.
func NewDomainError(code ErrorCode, field, message string) error {
	return DomainError{Code: code, Field: field, Message: message}
}

// CodeOf extracts the domain error code from err, or "" when err carries none.
func CodeOf(err error) ErrorCode {
	var domainErr DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	return ""
}
