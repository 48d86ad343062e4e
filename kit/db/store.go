package db

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"coinmachine/kit/broker"
)

// Record is one appended event. Seq is global and strictly increasing.
type Record struct {
	Seq         int64
	AggregateID string
	EventName   string
	Payload     []byte
	OccurredAt  time.Time
}

type fileLine struct {
	Seq         int64           `json:"seq"`
	AggregateID string          `json:"aggregate_id"`
	EventName   string          `json:"event_name"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// Store is an append-only event log kept in memory and, optionally, mirrored
// to a JSONL file that is replayed on open.
type Store struct {
	mu      sync.RWMutex
	streams map[string][]Record
	log     []Record
	seq     int64

	fileMu sync.Mutex
	f      *os.File
}

func New() *Store {
	return &Store{streams: make(map[string][]Record)}
}

func NewWithFile(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("layer=store component=db method=NewWithFile path=%s err=%v", path, err)
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		log.Printf("layer=store component=db method=NewWithFile path=%s err=%v", path, err)
		return nil, err
	}

	s := New()
	s.f = f
	if err := s.replay(f); err != nil {
		log.Printf("layer=store component=db method=NewWithFile path=%s err=%v", path, err)
		_ = f.Close()
		return nil, errors.Join(ErrInternal, err)
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		log.Printf("layer=store component=db method=NewWithFile path=%s err=%v", path, err)
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) replay(r io.ReadSeeker) error {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw fileLine
		if err := json.Unmarshal(line, &raw); err != nil {
			return err
		}
		s.add(Record{
			Seq:         raw.Seq,
			AggregateID: raw.AggregateID,
			EventName:   raw.EventName,
			Payload:     []byte(raw.Payload),
			OccurredAt:  raw.OccurredAt,
		})
	}
	return scanner.Err()
}

func (s *Store) add(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.Seq > s.seq {
		s.seq = rec.Seq
	}
	s.streams[rec.AggregateID] = append(s.streams[rec.AggregateID], rec)
	s.log = append(s.log, rec)
}

func (s *Store) Close() error {
	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	if err != nil {
		log.Printf("layer=store component=db method=Close err=%v", err)
	}
	s.f = nil
	return err
}

func (s *Store) Append(ctx context.Context, aggregateID string, evt broker.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		log.Printf("layer=store component=db method=Append aggregate_id=%s event=%s err=%v", aggregateID, evt.Name(), err)
		return errors.Join(ErrInvalid, err)
	}

	s.mu.Lock()
	s.seq++
	rec := Record{
		Seq:         s.seq,
		AggregateID: aggregateID,
		EventName:   evt.Name(),
		Payload:     payload,
		OccurredAt:  time.Now().UTC(),
	}
	s.streams[aggregateID] = append(s.streams[aggregateID], rec)
	s.log = append(s.log, rec)
	s.mu.Unlock()

	s.fileMu.Lock()
	defer s.fileMu.Unlock()
	if s.f == nil {
		return nil
	}
	b, err := json.Marshal(fileLine{
		Seq:         rec.Seq,
		AggregateID: rec.AggregateID,
		EventName:   rec.EventName,
		Payload:     json.RawMessage(rec.Payload),
		OccurredAt:  rec.OccurredAt,
	})
	if err != nil {
		log.Printf("layer=store component=db method=Append aggregate_id=%s event=%s err=%v", aggregateID, evt.Name(), err)
		return errors.Join(ErrInternal, err)
	}
	if _, err := s.f.Write(append(b, '\n')); err != nil {
		log.Printf("layer=store component=db method=Append aggregate_id=%s event=%s err=%v", aggregateID, evt.Name(), err)
		return errors.Join(ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, aggregateID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.streams[aggregateID]...)
}

func (s *Store) All(ctx context.Context) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.log...)
}
