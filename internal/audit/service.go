package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"coinmachine/kit/observability"
)

// Entry is one line of the audit trail.
type Entry struct {
	At     time.Time      `json:"at"`
	Event  string         `json:"event"`
	TxnID  string         `json:"txnid,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Service writes the transaction audit trail: one log line per entry and,
// when opened with a path, one JSON line appended to that file.
type Service struct {
	logger *observability.Logger
	now    func() time.Time

	fileMu sync.Mutex
	f      *os.File
}

func NewService(logger *observability.Logger) *Service {
	return &Service{logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

func NewServiceWithFile(logger *observability.Logger, path string) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		if logger != nil {
			logger.Error("audit error", "layer", "service", "component", "audit", "method", "NewServiceWithFile", "path", path, "error", err.Error())
		}
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		if logger != nil {
			logger.Error("audit error", "layer", "service", "component", "audit", "method", "NewServiceWithFile", "path", path, "error", err.Error())
		}
		return nil, err
	}
	s := NewService(logger)
	s.f = f
	return s, nil
}

func (s *Service) Close() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	if err != nil && s.logger != nil {
		s.logger.Error("audit error", "layer", "service", "component", "audit", "method", "Close", "error", err.Error())
	}
	s.f = nil
	return err
}

func (s *Service) Record(ctx context.Context, eventName, txnID string, fields map[string]any) {
	if s.logger == nil {
		return
	}
	s.logger.Info("audit", "event", eventName, "txnid", txnID, "fields", fields)

	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if s.f == nil {
		return
	}
	b, err := json.Marshal(Entry{At: s.now(), Event: eventName, TxnID: txnID, Fields: fields})
	if err != nil {
		s.logger.Error("audit error", "layer", "service", "component", "audit", "method", "Record", "event", eventName, "error", err.Error())
		return
	}
	if _, err := s.f.Write(append(b, '\n')); err != nil {
		s.logger.Error("audit error", "layer", "service", "component", "audit", "method", "Record", "event", eventName, "error", err.Error())
	}
}
