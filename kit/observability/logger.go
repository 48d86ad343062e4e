package observability

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger writes one key=value line per call. Odd trailing keys are logged
// with an empty value.
type Logger struct {
	l      *log.Logger
	fields []any
}

func NewLogger() *Logger {
	return NewLoggerTo(os.Stdout)
}

func NewLoggerTo(w io.Writer) *Logger {
	return &Logger{l: log.New(w, "", log.LstdFlags|log.LUTC)}
}

// With returns a child logger that prefixes every line with kv.
func (lg *Logger) With(kv ...any) *Logger {
	fields := make([]any, 0, len(lg.fields)+len(kv))
	fields = append(fields, lg.fields...)
	fields = append(fields, kv...)
	return &Logger{l: lg.l, fields: fields}
}

func (lg *Logger) Info(msg string, kv ...any) {
	lg.write("INFO", msg, kv)
}

func (lg *Logger) Warn(msg string, kv ...any) {
	lg.write("WARN", msg, kv)
}

func (lg *Logger) Error(msg string, kv ...any) {
	lg.write("ERROR", msg, kv)
}

func (lg *Logger) write(level, msg string, kv []any) {
	var b strings.Builder
	b.WriteString("level=")
	b.WriteString(level)
	b.WriteString(" msg=")
	b.WriteString(fmt.Sprintf("%q", msg))
	all := append(append([]any(nil), lg.fields...), kv...)
	for i := 0; i < len(all); i += 2 {
		b.WriteByte(' ')
		b.WriteString(fmt.Sprint(all[i]))
		b.WriteByte('=')
		if i+1 < len(all) {
			b.WriteString(formatValue(all[i+1]))
		}
	}
	lg.l.Println(b.String())
}

func formatValue(v any) string {
	s := fmt.Sprint(v)
	if strings.ContainsAny(s, " \t\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
