package db

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type ClientMock struct {
	mock.Mock
	Client
}

func (m *ClientMock) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	ret := m.Called(ctx, query, args)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *ClientMock) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	ret := m.Called(ctx, query, args)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).(Row), ret.Error(1)
}

func (m *ClientMock) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	ret := m.Called(ctx, query, args)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).(Rows), ret.Error(1)
}

type RowMock struct {
	mock.Mock
	Row
}

func (m *RowMock) Scan(dest ...any) error {
	ret := m.Called(dest)
	return ret.Error(0)
}

// RowsMock replays one Scan callback per row.
type RowsMock struct {
	Scans []func(dest []any)
	Error error

	pos int
}

func (m *RowsMock) Next() bool {
	if m.pos >= len(m.Scans) {
		return false
	}
	m.pos++
	return true
}

func (m *RowsMock) Scan(dest ...any) error {
	m.Scans[m.pos-1](dest)
	return nil
}

func (m *RowsMock) Err() error   { return m.Error }
func (m *RowsMock) Close() error { return nil }
