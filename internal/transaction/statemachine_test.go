package transaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := Transaction{ID: "t1", Amount: 50, Version: 3}

	with := func(status Status, lockedBy string, count int64) Transaction {
		tx := base
		tx.Status = status
		tx.LockedBy = lockedBy
		tx.DispensedCount = count
		tx.Dispensed = status == StatusDispensed
		return tx
	}

	var tests = []struct {
		name            string
		cur             Transaction
		in              Input
		expectedStatus  Status
		expectedChanged bool
		expectedErr     error
	}{
		{name: "capture created", cur: with(StatusCreated, "", 0), in: Input{Event: EventPaymentCaptured}, expectedStatus: StatusCaptured, expectedChanged: true},
		{name: "capture duplicate", cur: with(StatusCaptured, "", 0), in: Input{Event: EventPaymentCaptured}, expectedStatus: StatusCaptured},
		{name: "capture while dispensing", cur: with(StatusDispensing, "d1", 2), in: Input{Event: EventPaymentCaptured}, expectedStatus: StatusDispensing},
		{name: "capture after dispensed", cur: with(StatusDispensed, "d1", 5), in: Input{Event: EventPaymentCaptured}, expectedStatus: StatusDispensed},
		{name: "capture after failed", cur: with(StatusFailed, "", 0), in: Input{Event: EventPaymentCaptured}, expectedStatus: StatusFailed, expectedErr: ErrInvalidTransition},
		{name: "provider failure on created", cur: with(StatusCreated, "", 0), in: Input{Event: EventPaymentFailed}, expectedStatus: StatusFailed, expectedChanged: true},
		{name: "provider failure after capture", cur: with(StatusCaptured, "", 0), in: Input{Event: EventPaymentFailed}, expectedStatus: StatusCaptured, expectedErr: ErrInvalidTransition},
		{name: "provider failure duplicate", cur: with(StatusFailed, "", 0), in: Input{Event: EventPaymentFailed}, expectedStatus: StatusFailed},
		{name: "expiry", cur: with(StatusCreated, "", 0), in: Input{Event: EventPaymentExpired}, expectedStatus: StatusExpired, expectedChanged: true},
		{name: "cancellation", cur: with(StatusCreated, "", 0), in: Input{Event: EventPaymentCancelled}, expectedStatus: StatusCancelled, expectedChanged: true},
		{name: "drop", cur: with(StatusCreated, "", 0), in: Input{Event: EventPaymentDropped}, expectedStatus: StatusDropped, expectedChanged: true},
		{name: "expiry after capture", cur: with(StatusCaptured, "", 0), in: Input{Event: EventPaymentExpired}, expectedStatus: StatusCaptured, expectedErr: ErrInvalidTransition},
		{name: "lock captured", cur: with(StatusCaptured, "", 0), in: Input{Event: EventDispenseLocked, Device: "d1"}, expectedStatus: StatusDispensing, expectedChanged: true},
		{name: "relock by holder", cur: with(StatusDispensing, "d1", 2), in: Input{Event: EventDispenseLocked, Device: "d1"}, expectedStatus: StatusDispensing},
		{name: "lock held by other", cur: with(StatusDispensing, "d1", 2), in: Input{Event: EventDispenseLocked, Device: "d2"}, expectedStatus: StatusDispensing, expectedErr: ErrLockHeld},
		{name: "lock created", cur: with(StatusCreated, "", 0), in: Input{Event: EventDispenseLocked, Device: "d1"}, expectedStatus: StatusCreated, expectedErr: ErrInvalidTransition},
		{name: "lock dispensed", cur: with(StatusDispensed, "d1", 5), in: Input{Event: EventDispenseLocked, Device: "d1"}, expectedStatus: StatusDispensed, expectedErr: ErrNotActionable},
		{name: "progress forward", cur: with(StatusDispensing, "d1", 2), in: Input{Event: EventDispenseProgress, Device: "d1", Count: 3}, expectedStatus: StatusDispensing, expectedChanged: true},
		{name: "progress equal", cur: with(StatusDispensing, "d1", 3), in: Input{Event: EventDispenseProgress, Device: "d1", Count: 3}, expectedStatus: StatusDispensing},
		{name: "progress backwards", cur: with(StatusDispensing, "d1", 3), in: Input{Event: EventDispenseProgress, Device: "d1", Count: 2}, expectedStatus: StatusDispensing, expectedErr: ErrStaleProgress},
		{name: "progress negative", cur: with(StatusDispensing, "d1", 0), in: Input{Event: EventDispenseProgress, Device: "d1", Count: -1}, expectedStatus: StatusDispensing, expectedErr: ErrInvalidRequest},
		{name: "progress from other device", cur: with(StatusDispensing, "d1", 0), in: Input{Event: EventDispenseProgress, Device: "d2", Count: 1}, expectedStatus: StatusDispensing, expectedErr: ErrLockHeld},
		{name: "progress on captured", cur: with(StatusCaptured, "", 0), in: Input{Event: EventDispenseProgress, Device: "d1", Count: 1}, expectedStatus: StatusCaptured, expectedErr: ErrInvalidTransition},
		{name: "complete", cur: with(StatusDispensing, "d1", 3), in: Input{Event: EventDispenseCompleted, Device: "d1"}, expectedStatus: StatusDispensed, expectedChanged: true},
		{name: "complete again", cur: with(StatusDispensed, "d1", 3), in: Input{Event: EventDispenseCompleted, Device: "d1"}, expectedStatus: StatusDispensed},
		{name: "complete captured", cur: with(StatusCaptured, "", 0), in: Input{Event: EventDispenseCompleted, Device: "d1"}, expectedStatus: StatusCaptured, expectedErr: ErrInvalidTransition},
		{name: "complete failed", cur: with(StatusFailed, "d1", 1), in: Input{Event: EventDispenseCompleted, Device: "d1"}, expectedStatus: StatusFailed, expectedErr: ErrNotActionable},
		{name: "device failure captured", cur: with(StatusCaptured, "", 0), in: Input{Event: EventDispenseFailed, Device: "d1", Reason: "jam"}, expectedStatus: StatusFailed, expectedChanged: true},
		{name: "device failure dispensing", cur: with(StatusDispensing, "d1", 1), in: Input{Event: EventDispenseFailed, Device: "d1", Reason: "jam"}, expectedStatus: StatusFailed, expectedChanged: true},
		{name: "device failure from other device", cur: with(StatusDispensing, "d1", 1), in: Input{Event: EventDispenseFailed, Device: "d2"}, expectedStatus: StatusDispensing, expectedErr: ErrLockHeld},
		{name: "device failure twice", cur: with(StatusFailed, "d1", 1), in: Input{Event: EventDispenseFailed, Device: "d1"}, expectedStatus: StatusFailed, expectedErr: ErrNotActionable},
		{name: "reclaim dispensing", cur: with(StatusDispensing, "d1", 1), in: Input{Event: EventDispenseReclaimed, Reason: ReasonDispenseTimeout}, expectedStatus: StatusFailed, expectedChanged: true},
		{name: "reclaim captured", cur: with(StatusCaptured, "", 0), in: Input{Event: EventDispenseReclaimed}, expectedStatus: StatusCaptured, expectedErr: ErrInvalidTransition},
		{name: "unknown event", cur: with(StatusCreated, "", 0), in: Input{Event: "teleport"}, expectedStatus: StatusCreated, expectedErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.in.At = at
			cur := tt.cur
			next, changed, err := Apply(cur, tt.in)
			require.Equal(t, tt.cur, cur)
			require.Equal(t, tt.expectedChanged, changed)
			require.Equal(t, tt.expectedStatus, next.Status)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				require.Equal(t, cur, next)
				return
			}
			require.NoError(t, err)
			if !changed {
				require.Equal(t, cur, next)
				return
			}
			require.Equal(t, cur.Version+1, next.Version)
			require.Equal(t, at, next.UpdatedAt)
			require.Equal(t, next.Status == StatusDispensed, next.Dispensed)
			require.GreaterOrEqual(t, next.DispensedCount, cur.DispensedCount)
		})
	}
}

func TestApply_CaptureCarriesProviderFields(t *testing.T) {
	cur := Transaction{ID: "t1", Amount: 40, Status: StatusCreated, Provider: "cashfree"}
	next, changed, err := Apply(cur, Input{
		Event:             EventPaymentCaptured,
		Amount:            45,
		ProviderReference: "cf_9",
		ProviderEventType: "PAYMENT_SUCCESS_WEBHOOK",
	})
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, int64(45), next.Amount)
	require.Equal(t, "cashfree", next.Provider)
	require.Equal(t, "cf_9", next.ProviderReference)
	require.Equal(t, "PAYMENT_SUCCESS_WEBHOOK", next.ProviderEventType)
}

func TestApply_CompleteKeepsHigherCount(t *testing.T) {
	cur := Transaction{ID: "t1", Status: StatusDispensing, LockedBy: "d1", DispensedCount: 4}

	next, _, err := Apply(cur, Input{Event: EventDispenseCompleted, Device: "d1", Count: 2})
	require.NoError(t, err)
	require.Equal(t, int64(4), next.DispensedCount)

	next, _, err = Apply(cur, Input{Event: EventDispenseCompleted, Device: "d1", Count: 5})
	require.NoError(t, err)
	require.Equal(t, int64(5), next.DispensedCount)
}

func TestHeartbeat(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	held := Transaction{ID: "t1", Status: StatusDispensing, LockedBy: "d1", DispensedCount: 3, Version: 4, UpdatedAt: at.Add(-time.Hour)}

	var tests = []struct {
		name     string
		cur      Transaction
		in       Input
		expected bool
	}{
		{name: "holder re-lock", cur: held, in: Input{Event: EventDispenseLocked, Device: "d1", At: at}, expected: true},
		{name: "holder repeats progress", cur: held, in: Input{Event: EventDispenseProgress, Device: "d1", Count: 3, At: at}, expected: true},
		{name: "other device", cur: held, in: Input{Event: EventDispenseLocked, Device: "d2", At: at}},
		{name: "complete is not a heartbeat", cur: held, in: Input{Event: EventDispenseCompleted, Device: "d1", At: at}},
		{name: "not dispensing", cur: Transaction{ID: "t1", Status: StatusDispensed, LockedBy: "d1"}, in: Input{Event: EventDispenseLocked, Device: "d1", At: at}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			beat, ok := Heartbeat(tt.cur, tt.in)
			require.Equal(t, tt.expected, ok)
			if !tt.expected {
				require.Equal(t, tt.cur, beat)
				return
			}
			require.Equal(t, tt.cur.Version+1, beat.Version)
			require.Equal(t, at, beat.UpdatedAt)
			require.Equal(t, tt.cur.Status, beat.Status)
			require.Equal(t, tt.cur.DispensedCount, beat.DispensedCount)
		})
	}
}
