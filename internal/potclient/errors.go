package potclient

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/freshpots/freshpots/internal/protocol"
)

// ErrNoEndpoint is the cause recorded when a transaction is attempted while
// no pot is resolved.
var ErrNoEndpoint = errors.New("no pot endpoint resolved")

// ErrorType represents the category of a failed transaction.
//
// Callers of Transact and Do never see these: every failure reaches them as
// an Unknown response. The types exist for logging.
type ErrorType int

const (
	// ErrTypeResolutionAbsent indicates no pot was known, so nothing was dialled
	ErrTypeResolutionAbsent ErrorType = iota
	// ErrTypeConnectFailed indicates the connection could not be opened
	ErrTypeConnectFailed
	// ErrTypeIOFailed indicates a write or read error on an open connection
	ErrTypeIOFailed
	// ErrTypeProtocolMismatch indicates a reply that is invalid for what was sent
	ErrTypeProtocolMismatch
	// ErrTypeTimeout indicates nothing usable arrived within the response delay
	ErrTypeTimeout
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeResolutionAbsent:
		return "Resolution Absent"
	case ErrTypeConnectFailed:
		return "Connect Failed"
	case ErrTypeIOFailed:
		return "I/O Failed"
	case ErrTypeProtocolMismatch:
		return "Protocol Mismatch"
	case ErrTypeTimeout:
		return "Timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// TransactionError describes why a transaction fell back to Unknown.
type TransactionError struct {
	Type     ErrorType // Category of error
	Op       string    // Step that failed: resolve, dial, write, read, decode
	Endpoint string    // Pot address (empty when none was resolved)
	Err      error     // Underlying error
}

// Error implements the error interface
func (e *TransactionError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Type, e.Op, e.Endpoint, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *TransactionError) Unwrap() error {
	return e.Err
}

// ClassifyError wraps err from step op into a TransactionError.
func ClassifyError(op, endpoint string, err error) *TransactionError {
	if err == nil {
		return nil
	}

	var txErr *TransactionError
	if errors.As(err, &txErr) {
		return txErr
	}

	newErr := func(t ErrorType) *TransactionError {
		return &TransactionError{Type: t, Op: op, Endpoint: endpoint, Err: err}
	}

	switch {
	case errors.Is(err, ErrNoEndpoint):
		return newErr(ErrTypeResolutionAbsent)

	// Nothing arrived after the fixed wait; the protocol's only timeout.
	case errors.Is(err, protocol.ErrNoData):
		return newErr(ErrTypeTimeout)

	case errors.Is(err, protocol.ErrProtocolMismatch),
		errors.Is(err, protocol.ErrUnknownTag),
		errors.Is(err, protocol.ErrTruncated):
		return newErr(ErrTypeProtocolMismatch)
	}

	if op == "dial" {
		return newErr(ErrTypeConnectFailed)
	}

	var netErr net.Error
	if os.IsTimeout(err) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newErr(ErrTypeTimeout)
	}

	return newErr(ErrTypeIOFailed)
}

// IsType reports whether err is a TransactionError of type t.
func IsType(err error, t ErrorType) bool {
	var txErr *TransactionError
	if errors.As(err, &txErr) {
		return txErr.Type == t
	}
	return false
}
