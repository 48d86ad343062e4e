package handlers

import (
	"context"
	"testing"
	"time"

	"coinmachine/internal/events"
	"coinmachine/internal/notification"
	"coinmachine/internal/transaction"
	"coinmachine/kit/broker"
	"coinmachine/kit/db"
	"coinmachine/kit/observability"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAuditEvent_HandleAny(t *testing.T) {
	ctx := context.Background()

	var tests = []struct {
		name   string
		evt    broker.Event
		expect func(m *AuditorMock)
	}{
		{
			name: "transition",
			evt:  events.TransactionTransitioned{TxnID: "t1", From: "captured", To: "dispensing", Cause: "dispense_locked", Device: "m1", Version: 2, At: at},
			expect: func(m *AuditorMock) {
				m.On("Record", ctx, "transaction.transitioned", "t1", mock.MatchedBy(func(f map[string]any) bool {
					return f["to"] == "dispensing" && f["device"] == "m1" && f["reason"] == nil
				})).Once()
			},
		},
		{
			name: "reclaim",
			evt:  events.TransactionReclaimed{TxnID: "t2", Device: "m1", Amount: 50, DispensedCount: 20, IdleFor: "15m0s", At: at},
			expect: func(m *AuditorMock) {
				m.On("Record", ctx, "transaction.reclaimed", "t2", mock.MatchedBy(func(f map[string]any) bool {
					return f["idle_for"] == "15m0s" && f["dispensed_count"] == int64(20)
				})).Once()
			},
		},
		{
			name: "ignored webhook",
			evt:  events.WebhookIgnored{TxnID: "t3", EventType: "PAYMENT_FAILED_WEBHOOK", Reason: "invalid transition", At: at},
			expect: func(m *AuditorMock) {
				m.On("Record", ctx, "webhook.ignored", "t3", mock.Anything).Once()
			},
		},
		{
			name:   "foreign event skipped",
			evt:    testEvent{},
			expect: func(m *AuditorMock) {},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := new(AuditorMock)
			tt.expect(m)
			require.NoError(t, NewAuditEvent(m).HandleAny(ctx, tt.evt))
			m.AssertExpectations(t)
		})
	}
}

type testEvent struct{}

func (testEvent) Name() string { return "test" }

func TestMetricsEvent_HandleAny(t *testing.T) {
	ctx := context.Background()

	var tests = []struct {
		name     string
		evt      broker.Event
		expected string
	}{
		{
			name:     "order created",
			evt:      events.TransactionCreated{TxnID: "t1", Status: "created"},
			expected: "OrdersCreatedAdd",
		},
		{
			name:     "capture for unknown order",
			evt:      events.TransactionCreated{TxnID: "t1", Status: "captured"},
			expected: "PaymentsCapturedAdd",
		},
		{
			name:     "captured",
			evt:      events.TransactionTransitioned{From: "created", To: "captured", Cause: string(transaction.EventPaymentCaptured)},
			expected: "PaymentsCapturedAdd",
		},
		{
			name:     "provider closed",
			evt:      events.TransactionTransitioned{From: "created", To: "dropped", Cause: string(transaction.EventPaymentDropped)},
			expected: "PaymentsClosedAdd",
		},
		{
			name:     "locked",
			evt:      events.TransactionTransitioned{From: "captured", To: "dispensing", Cause: string(transaction.EventDispenseLocked)},
			expected: "DispensesStartedAdd",
		},
		{
			name:     "completed",
			evt:      events.TransactionTransitioned{From: "dispensing", To: "dispensed", Cause: string(transaction.EventDispenseCompleted)},
			expected: "DispensesCompletedAdd",
		},
		{
			name:     "device failure",
			evt:      events.TransactionTransitioned{From: "dispensing", To: "failed", Cause: string(transaction.EventDispenseFailed)},
			expected: "DispensesFailedAdd",
		},
		{
			name:     "reclaimed",
			evt:      events.TransactionReclaimed{TxnID: "t1"},
			expected: "TransactionsReclaimedAdd",
		},
		{
			name: "progress is not counted",
			evt:  events.TransactionTransitioned{From: "dispensing", To: "dispensing", Cause: string(transaction.EventDispenseProgress)},
		},
		{
			name: "originating transition is not counted twice",
			evt:  events.TransactionTransitioned{From: "", To: "captured", Cause: string(transaction.EventPaymentCaptured)},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := new(MetricsMock)
			if tt.expected != "" {
				m.On(tt.expected, int64(1)).Once()
			}
			require.NoError(t, NewMetricsEvent(m).HandleAny(ctx, tt.evt))
			m.AssertExpectations(t)
			require.Len(t, m.Calls, len(m.ExpectedCalls))
		})
	}
}

func TestMetricsEvent_CountsIntoObservability(t *testing.T) {
	m := observability.NewMetrics()
	h := NewMetricsEvent(m)
	require.NoError(t, h.HandleAny(context.Background(), events.TransactionTransitioned{From: "captured", To: "dispensing", Cause: string(transaction.EventDispenseLocked)}))
	require.EqualValues(t, 1, m.DispensesStarted.Load())
}

func TestNotificationEvent(t *testing.T) {
	ctx := context.Background()

	var tests = []struct {
		name        string
		handle      func(h *NotificationEvent) error
		expect      func(m *NotifierMock)
		expectedErr error
	}{
		{
			name: "device failure asks for refund",
			handle: func(h *NotificationEvent) error {
				return h.HandleTransitioned(ctx, events.TransactionTransitioned{TxnID: "t1", Cause: string(transaction.EventDispenseFailed), Device: "m1", Reason: "jam", Amount: 50, DispensedCount: 20})
			},
			expect: func(m *NotifierMock) {
				m.On("Notify", ctx, "t1", notification.SeverityAction, "dispense failed", mock.MatchedBy(func(body string) bool {
					return body == `device m1 reported "jam" after 20 of 50; refund 30`
				})).Once()
			},
		},
		{
			name: "completion is informational",
			handle: func(h *NotificationEvent) error {
				return h.HandleTransitioned(ctx, events.TransactionTransitioned{TxnID: "t1", Cause: string(transaction.EventDispenseCompleted), Amount: 50, DispensedCount: 50})
			},
			expect: func(m *NotifierMock) {
				m.On("Notify", ctx, "t1", notification.SeverityInfo, "dispense completed", "dispensed 50 of 50").Once()
			},
		},
		{
			name: "progress is silent",
			handle: func(h *NotificationEvent) error {
				return h.HandleTransitioned(ctx, events.TransactionTransitioned{TxnID: "t1", Cause: string(transaction.EventDispenseProgress)})
			},
			expect: func(m *NotifierMock) {},
		},
		{
			name: "reclaim",
			handle: func(h *NotificationEvent) error {
				return h.HandleReclaimed(ctx, events.TransactionReclaimed{TxnID: "t2", Device: "m1", Amount: 40, DispensedCount: 10, IdleFor: "20m0s"})
			},
			expect: func(m *NotifierMock) {
				m.On("Notify", ctx, "t2", notification.SeverityAction, "dispense abandoned", "device m1 idle for 20m0s after 10 of 40; refund 30").Once()
			},
		},
		{
			name: "attention",
			handle: func(h *NotificationEvent) error {
				return h.HandleAttentionRequired(ctx, events.AttentionRequired{TxnID: "t3", Kind: "payment_after_terminal", Detail: "paid after expiry"})
			},
			expect: func(m *NotifierMock) {
				m.On("Notify", ctx, "t3", notification.SeverityAction, "payment_after_terminal", "paid after expiry").Once()
			},
		},
		{
			name: "wrong event type",
			handle: func(h *NotificationEvent) error {
				return h.HandleReclaimed(ctx, events.WebhookIgnored{})
			},
			expect:      func(m *NotifierMock) {},
			expectedErr: ErrUnexpectedEventType,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := new(NotifierMock)
			tt.expect(m)
			err := tt.handle(NewNotificationEvent(m))
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
			m.AssertExpectations(t)
		})
	}
}

func TestRecoveryEvent_HandleAttentionRequired(t *testing.T) {
	ctx := context.Background()
	evt := events.AttentionRequired{TxnID: "t1", Kind: "payment_after_terminal", Detail: "late capture", Amount: 50, At: at}

	var tests = []struct {
		name           string
		reader         func() *TransactionReaderMock
		expectedStatus any
	}{
		{
			name: "attaches stored state",
			reader: func() *TransactionReaderMock {
				m := new(TransactionReaderMock)
				m.On("Get", ctx, "t1").Return(&transaction.Transaction{ID: "t1", Status: transaction.StatusExpired}, nil).Once()
				return m
			},
			expectedStatus: transaction.StatusExpired,
		},
		{
			name: "store miss still dead-letters",
			reader: func() *TransactionReaderMock {
				m := new(TransactionReaderMock)
				m.On("Get", ctx, "t1").Return(nil, db.ErrNotFound).Once()
				return m
			},
			expectedStatus: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dlq := new(DeadLetterMock)
			dlq.On("SendToDLQ", ctx, TopicAttention, "payment_after_terminal", mock.MatchedBy(func(p map[string]any) bool {
				return p["txnid"] == "t1" && p["status"] == tt.expectedStatus
			})).Once()
			reader := tt.reader()

			h := NewRecoveryEvent(observability.NewLogger(), dlq, reader)
			require.NoError(t, h.HandleAttentionRequired(ctx, evt))
			dlq.AssertExpectations(t)
			reader.AssertExpectations(t)
		})
	}
}
