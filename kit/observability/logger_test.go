package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_Write(t *testing.T) {
	var tests = []struct {
		name     string
		log      func(lg *Logger)
		contains []string
	}{
		{
			name: "info with fields",
			log: func(lg *Logger) {
				lg.Info("transition applied", "txnid", "t1", "to", "captured")
			},
			contains: []string{"level=INFO", `msg="transition applied"`, "txnid=t1", "to=captured"},
		},
		{
			name: "child logger prefixes fields",
			log: func(lg *Logger) {
				lg.With("component", "webhook").Warn("ignored", "reason", "unknown event")
			},
			contains: []string{"level=WARN", "component=webhook", `reason="unknown event"`},
		},
		{
			name: "odd kv count",
			log: func(lg *Logger) {
				lg.Error("boom", "error")
			},
			contains: []string{"level=ERROR", "error="},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.log(NewLoggerTo(&buf))
			for _, c := range tt.contains {
				require.Contains(t, buf.String(), c)
			}
		})
	}
}
