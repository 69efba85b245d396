package events

import (
	"log/slog"

	"github.com/user/chatbridge/internal/types"
)

// ErrorSink turns one failure into the connectionError/error pair. It is
// the only place either event is emitted.
type ErrorSink struct {
	emitter *Emitter
}

func NewErrorSink(emitter *Emitter) *ErrorSink {
	return &ErrorSink{emitter: emitter}
}

// Report emits connectionError{phase, message} followed by error{message}.
func (s *ErrorSink) Report(phase types.ErrorPhase, err error) {
	if err == nil {
		return
	}
	msg := types.Message(err)
	slog.Warn("bridge error", "phase", string(phase), "code", types.Code(err), "error", err)
	s.emitter.Emit(ConnectionError, ConnectionErrorPayload{Phase: string(phase), Message: msg})
	s.emitter.Emit(Error, ErrorPayload{Message: msg})
}
