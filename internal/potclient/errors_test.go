package potclient

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/freshpots/freshpots/internal/protocol"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		op   string
		err  error
		want ErrorType
	}{
		{"no endpoint", "resolve", ErrNoEndpoint, ErrTypeResolutionAbsent},
		{"connection refused", "dial", syscall.ECONNREFUSED, ErrTypeConnectFailed},
		{"dial timeout", "dial", os.ErrDeadlineExceeded, ErrTypeConnectFailed},
		{"write reset", "write", syscall.ECONNRESET, ErrTypeIOFailed},
		{"read deadline", "read", os.ErrDeadlineExceeded, ErrTypeTimeout},
		{"empty reply", "decode", protocol.ErrNoData, ErrTypeTimeout},
		{"wrong reply", "decode", fmt.Errorf("%w: sent B, received T", protocol.ErrProtocolMismatch), ErrTypeProtocolMismatch},
		{"bad tag", "decode", protocol.ErrUnknownTag, ErrTypeProtocolMismatch},
		{"truncated", "decode", fmt.Errorf("%w: %v", protocol.ErrTruncated, io.ErrUnexpectedEOF), ErrTypeProtocolMismatch},
		{"other", "read", errors.New("boom"), ErrTypeIOFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.op, "10.0.0.2:80", tt.err)
			if got == nil {
				t.Fatal("ClassifyError() = nil")
			}
			if got.Type != tt.want {
				t.Errorf("ClassifyError().Type = %v, want %v", got.Type, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("ClassifyError() does not wrap %v", tt.err)
			}
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	if got := ClassifyError("read", "", nil); got != nil {
		t.Errorf("ClassifyError(nil) = %v, want nil", got)
	}
}

func TestClassifyError_KeepsExisting(t *testing.T) {
	orig := &TransactionError{Type: ErrTypeConnectFailed, Op: "dial", Err: syscall.ECONNREFUSED}
	wrapped := fmt.Errorf("outer: %w", orig)

	if got := ClassifyError("read", "", wrapped); got != orig {
		t.Errorf("ClassifyError() = %v, want original %v", got, orig)
	}
}

func TestTransactionError_Error(t *testing.T) {
	withAddr := &TransactionError{Type: ErrTypeIOFailed, Op: "write", Endpoint: "10.0.0.2:80", Err: syscall.EPIPE}
	if msg := withAddr.Error(); !strings.Contains(msg, "I/O Failed") || !strings.Contains(msg, "10.0.0.2:80") {
		t.Errorf("Error() = %q, want type and endpoint", msg)
	}

	noAddr := &TransactionError{Type: ErrTypeResolutionAbsent, Op: "resolve", Err: ErrNoEndpoint}
	if msg := noAddr.Error(); msg != "Resolution Absent: resolve: no pot endpoint resolved" {
		t.Errorf("Error() = %q", msg)
	}
}

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		et   ErrorType
		want string
	}{
		{ErrTypeResolutionAbsent, "Resolution Absent"},
		{ErrTypeConnectFailed, "Connect Failed"},
		{ErrTypeIOFailed, "I/O Failed"},
		{ErrTypeProtocolMismatch, "Protocol Mismatch"},
		{ErrTypeTimeout, "Timeout"},
		{ErrorType(99), "ErrorType(99)"},
	}

	for _, tt := range tests {
		if got := tt.et.String(); got != tt.want {
			t.Errorf("ErrorType(%d).String() = %v, want %v", int(tt.et), got, tt.want)
		}
	}
}

func TestIsType(t *testing.T) {
	err := ClassifyError("decode", "", protocol.ErrNoData)

	if !IsType(err, ErrTypeTimeout) {
		t.Error("IsType(Timeout) = false, want true")
	}
	if IsType(err, ErrTypeIOFailed) {
		t.Error("IsType(IOFailed) = true, want false")
	}
	if IsType(errors.New("plain"), ErrTypeTimeout) {
		t.Error("IsType(plain error) = true, want false")
	}
}
