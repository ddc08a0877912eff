// Package obslog is a small leveled-event helper over
// github.com/rs/zerolog, used by the packages that sit off the
// simulation's hot path: session, transport, and TSS desync/timeout
// reporting. The simulation itself (stepping, hashing, cloning) never
// logs.
//
// Borrows the attach-arbitrary-fields-to-a-zerolog.Event-via-
// Event.Interface shape from a fuller logging-facade abstraction,
// without pulling in the rest of that abstraction, since the engine
// only ever needs one concrete sink.
package obslog

import "github.com/rs/zerolog"

// Field is a single structured key/value attached to an event.
type Field struct {
	Key string
	Val any
}

// F builds a Field.
func F(key string, val any) Field {
	return Field{Key: key, Val: val}
}

// NoFrame marks an event that isn't tied to a simulation frame.
const NoFrame int64 = -1

// Event emits kind at level, tagging it with frame (omitted when
// frame is NoFrame) and every field, using kind itself as the log
// message.
func Event(log zerolog.Logger, level zerolog.Level, kind string, frame int64, fields ...Field) {
	evt := log.WithLevel(level).Str("event", kind)
	if frame != NoFrame {
		evt = evt.Int64("frame", frame)
	}
	for _, f := range fields {
		evt = evt.Interface(f.Key, f.Val)
	}
	evt.Msg(kind)
}

// Info logs kind at info level.
func Info(log zerolog.Logger, kind string, frame int64, fields ...Field) {
	Event(log, zerolog.InfoLevel, kind, frame, fields...)
}

// Warn logs kind at warn level.
func Warn(log zerolog.Logger, kind string, frame int64, fields ...Field) {
	Event(log, zerolog.WarnLevel, kind, frame, fields...)
}

// Error logs kind at error level.
func Error(log zerolog.Logger, kind string, frame int64, fields ...Field) {
	Event(log, zerolog.ErrorLevel, kind, frame, fields...)
}
