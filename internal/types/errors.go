package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the session, the bridge and the event sinks.
var (
	ErrInvalidArgument       = errors.New("invalid argument")
	ErrChatNotReady          = errors.New("chat not ready")
	ErrThreadNotFound        = errors.New("thread not found")
	ErrPrepareFailed         = errors.New("prepare failed")
	ErrPrepareTimeout        = errors.New("prepare timeout")
	ErrConnectBeforePrepare  = errors.New("connect before prepare")
	ErrConnectTimeout        = errors.New("connect timeout")
	ErrConnectFailed         = errors.New("connect failed")
	ErrVendorOperationFailed = errors.New("vendor operation failed")
)

// BridgeError carries a stable code for the bridge boundary plus the
// human-readable message shown to the application layer.
type BridgeError struct {
	Code    string
	Message string
	Err     error
}

func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UserMessage returns the message without the wrapped cause.
func (e *BridgeError) UserMessage() string {
	return e.Message
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

var codes = []struct {
	sentinel error
	code     string
}{
	{ErrInvalidArgument, "InvalidArgument"},
	{ErrChatNotReady, "ChatNotReady"},
	{ErrThreadNotFound, "ThreadNotFound"},
	{ErrPrepareFailed, "PrepareFailed"},
	{ErrPrepareTimeout, "PrepareTimeout"},
	{ErrConnectBeforePrepare, "ConnectBeforePrepare"},
	{ErrConnectTimeout, "ConnectTimeout"},
	{ErrConnectFailed, "ConnectFailed"},
	{ErrVendorOperationFailed, "VendorOperationFailed"},
}

// Code returns the taxonomy code for err, or "Internal" when err does not
// wrap one of the sentinels.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.sentinel) {
			return c.code
		}
	}
	return "Internal"
}

func newError(sentinel error, message string, cause error) error {
	wrapped := sentinel
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &BridgeError{Code: Code(sentinel), Message: message, Err: wrapped}
}

func NewInvalidArgument(message string, cause error) error {
	return newError(ErrInvalidArgument, message, cause)
}

func NewChatNotReady() error {
	return newError(ErrChatNotReady, "Chat is not ready", nil)
}

func NewThreadNotFound(id string) error {
	return newError(ErrThreadNotFound, fmt.Sprintf("Thread %s not found", id), nil)
}

func NewPrepareFailed(cause error) error {
	return newError(ErrPrepareFailed, "Prepare failed", cause)
}

func NewPrepareTimeout() error {
	return newError(ErrPrepareTimeout, "Prepare timeout", nil)
}

func NewConnectBeforePrepare() error {
	return newError(ErrConnectBeforePrepare, "Connect called before prepare", nil)
}

func NewConnectTimeout() error {
	return newError(ErrConnectTimeout, "Connect timeout", nil)
}

func NewConnectFailed(cause error) error {
	return newError(ErrConnectFailed, "Connect failed", cause)
}

// NewVendorError wraps an error returned by the vendor SDK. The vendor
// message is kept as the user-visible message.
func NewVendorError(op string, cause error) error {
	msg := op + " failed"
	if cause != nil {
		msg = cause.Error()
	}
	return newError(ErrVendorOperationFailed, msg, fmt.Errorf("%s: %w", op, cause))
}

// Message returns the user-facing message of err.
func Message(err error) string {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.UserMessage()
	}
	return err.Error()
}
