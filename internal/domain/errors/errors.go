package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnsupportedChain   = errors.New("unsupported chain")
	ErrAccountNotFound    = errors.New("account not managed by wallet")
)

// Bridge preflight errors. None of these ever reach a transaction.
var (
	ErrWalletNotConnected     = errors.New("wallet not connected")
	ErrWrongNetwork           = errors.New("wallet is not on the source chain")
	ErrContractsUnavailable   = errors.New("bridge contracts are not bound")
	ErrInvalidAmount          = errors.New("amount must be greater than zero")
	ErrInsufficientBalance    = errors.New("insufficient token balance")
	ErrDestinationRequired    = errors.New("destination contract address is required")
	ErrInvalidAddress         = errors.New("invalid or unconfigured address")
	ErrBridgeInFlight         = errors.New("a bridge request is already in flight")
	ErrDestinationNotDeployed = errors.New("destination contract is not deployed")
	ErrTrustMismatch          = errors.New("destination contract does not trust this source")
	ErrStaleContracts         = errors.New("contract set was replaced by a chain or account change")
)

const (
	CodeInvalidInput   = "INVALID_INPUT"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeInternalError  = "INTERNAL_ERROR"
	CodePreflightError = "PREFLIGHT_FAILED"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrBridgeInFlight)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// Preflight wraps a preflight sentinel so callers can still match it with errors.Is.
func Preflight(sentinel error, message string) *AppError {
	if message == "" && sentinel != nil {
		message = sentinel.Error()
	}
	return NewAppError(http.StatusUnprocessableEntity, CodePreflightError, message, sentinel)
}

var preflightReasons = []struct {
	sentinel error
	reason   string
}{
	{ErrWalletNotConnected, "wallet_not_connected"},
	{ErrWrongNetwork, "wrong_network"},
	{ErrContractsUnavailable, "contracts_unavailable"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrDestinationRequired, "destination_required"},
	{ErrInvalidAddress, "invalid_address"},
	{ErrDestinationNotDeployed, "destination_not_deployed"},
	{ErrTrustMismatch, "trust_mismatch"},
}

// PreflightReason returns a metric label for a preflight sentinel in err's chain,
// or "" when err is not a preflight failure.
func PreflightReason(err error) string {
	for _, p := range preflightReasons {
		if errors.Is(err, p.sentinel) {
			return p.reason
		}
	}
	return ""
}
