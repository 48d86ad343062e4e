package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"coinmachine/internal/webhook"
	"coinmachine/kit/db"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWebhook_Receive(t *testing.T) {
	const body = `{"type":"PAYMENT_SUCCESS_WEBHOOK"}`

	var tests = []struct {
		name            string
		result          webhook.Result
		err             error
		expectedStatus  int
		expectedOutcome string
	}{
		{
			name:            "applied",
			result:          webhook.Result{Outcome: webhook.OutcomeApplied, TxnID: "ORD_1"},
			expectedStatus:  http.StatusOK,
			expectedOutcome: "applied",
		},
		{
			name:            "ignored is still acknowledged",
			result:          webhook.Result{Outcome: webhook.OutcomeStale, TxnID: "ORD_1"},
			expectedStatus:  http.StatusOK,
			expectedOutcome: "stale",
		},
		{
			name:           "bad signature",
			result:         webhook.Result{Outcome: webhook.OutcomeRejected},
			err:            webhook.ErrAuthentication,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed",
			result:         webhook.Result{Outcome: webhook.OutcomeRejected},
			err:            webhook.ErrMalformedPayload,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "store unavailable asks for redelivery",
			err:            db.ErrUnavailable,
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ing := new(ingestorMock)
			ing.On("Ingest", mock.Anything, []byte(body), "1700000000", "sig").Return(tt.result, tt.err).Once()
			bus := &deferRecorder{}
			h := NewWebhook(ing, bus)

			req := httptest.NewRequest(http.MethodPost, "/cashfree-webhook", strings.NewReader(body))
			req.Header.Set(webhook.HeaderTimestamp, "1700000000")
			req.Header.Set(webhook.HeaderSignature, "sig")
			rr := httptest.NewRecorder()
			h.Receive(rr, req)

			require.Equal(t, tt.expectedStatus, rr.Code)
			require.Equal(t, 1, bus.flushed)
			if tt.expectedOutcome != "" {
				var got map[string]any
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
				require.Equal(t, tt.expectedOutcome, got["outcome"])
				require.Equal(t, true, got["received"])
			}
			ing.AssertExpectations(t)
		})
	}
}
