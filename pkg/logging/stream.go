package logging

import (
	"io"
	"time"
)

// StreamLogger writes log entries to a stream such as stderr
type StreamLogger struct {
	*fieldLogger
}

// NewStreamLogger creates a logger writing to w. The stream is not closed
// by Close.
func NewStreamLogger(w io.Writer, format Format, level Level) *StreamLogger {
	return &StreamLogger{
		fieldLogger: &fieldLogger{
			sink: &sink{
				w:          w,
				format:     format,
				level:      level,
				timeLayout: "15:04:05",
				now:        time.Now,
			},
		},
	}
}
