package handlers

import (
	"context"

	"coinmachine/internal/health"
	"coinmachine/internal/order"
	"coinmachine/internal/readmodels"
	"coinmachine/internal/transaction"
	"coinmachine/internal/webhook"

	"github.com/stretchr/testify/mock"
)

type orderServiceMock struct{ mock.Mock }

func (m *orderServiceMock) CreateOrder(ctx context.Context, req order.CreateRequest) (*order.Order, error) {
	args := m.Called(ctx, req)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

type healthMock struct{ mock.Mock }

func (m *healthMock) Check(ctx context.Context) health.Result {
	args := m.Called(ctx)
	return args.Get(0).(health.Result)
}

type ingestorMock struct{ mock.Mock }

func (m *ingestorMock) Ingest(ctx context.Context, raw []byte, timestamp, signature string) (webhook.Result, error) {
	args := m.Called(ctx, raw, timestamp, signature)
	return args.Get(0).(webhook.Result), args.Error(1)
}

// deferRecorder stands in for the bus and records whether queued events were
// flushed.
type deferRecorder struct {
	flushed int
}

func (d *deferRecorder) Defer(ctx context.Context) (context.Context, func() []error) {
	return ctx, func() []error {
		d.flushed++
		return nil
	}
}

type dispenseServiceMock struct{ mock.Mock }

func (m *dispenseServiceMock) Next(ctx context.Context) (*transaction.Transaction, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).(*transaction.Transaction)
	return t, args.Error(1)
}

func (m *dispenseServiceMock) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*transaction.Transaction)
	return t, args.Error(1)
}

func (m *dispenseServiceMock) Lock(ctx context.Context, id, device string) (transaction.Transition, error) {
	args := m.Called(ctx, id, device)
	return args.Get(0).(transaction.Transition), args.Error(1)
}

func (m *dispenseServiceMock) Progress(ctx context.Context, id, device string, count int64) (transaction.Transition, error) {
	args := m.Called(ctx, id, device, count)
	return args.Get(0).(transaction.Transition), args.Error(1)
}

func (m *dispenseServiceMock) Complete(ctx context.Context, id, device string, count int64) (transaction.Transition, error) {
	args := m.Called(ctx, id, device, count)
	return args.Get(0).(transaction.Transition), args.Error(1)
}

func (m *dispenseServiceMock) Fail(ctx context.Context, id, device, reason string) (transaction.Transition, error) {
	args := m.Called(ctx, id, device, reason)
	return args.Get(0).(transaction.Transition), args.Error(1)
}

type historyMock struct{ mock.Mock }

func (m *historyMock) Get(txnID string) (readmodels.TransactionView, bool) {
	args := m.Called(txnID)
	v, _ := args.Get(0).(readmodels.TransactionView)
	return v, args.Bool(1)
}
