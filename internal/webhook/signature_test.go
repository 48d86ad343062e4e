package webhook

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifier_Verify(t *testing.T) {
	raw := []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK"}`)
	signer := NewVerifier("whsec")

	var tests = []struct {
		name      string
		secret    string
		body      []byte
		timestamp string
		signature string
		expected  error
	}{
		{
			name:      "valid signature",
			secret:    "whsec",
			body:      raw,
			timestamp: "1700000000",
			signature: signer.Sign(raw, "1700000000"),
		},
		{
			name:      "body modified after signing",
			secret:    "whsec",
			body:      []byte(`{"type":"PAYMENT_SUCCESS_WEBHOOK" }`),
			timestamp: "1700000000",
			signature: signer.Sign(raw, "1700000000"),
			expected:  ErrAuthentication,
		},
		{
			name:      "timestamp not covered",
			secret:    "whsec",
			body:      raw,
			timestamp: "1700000001",
			signature: signer.Sign(raw, "1700000000"),
			expected:  ErrAuthentication,
		},
		{
			name:      "wrong secret",
			secret:    "other",
			body:      raw,
			timestamp: "1700000000",
			signature: signer.Sign(raw, "1700000000"),
			expected:  ErrAuthentication,
		},
		{
			name:     "missing headers",
			secret:   "whsec",
			body:     raw,
			expected: ErrAuthentication,
		},
		{
			name:      "not base64",
			secret:    "whsec",
			body:      raw,
			timestamp: "1700000000",
			signature: "%%%",
			expected:  ErrAuthentication,
		},
		{
			name:      "no secret configured",
			body:      raw,
			timestamp: "1700000000",
			signature: signer.Sign(raw, "1700000000"),
			expected:  ErrAuthentication,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := NewVerifier(tt.secret).Verify(tt.body, tt.timestamp, tt.signature)
			if tt.expected == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.expected)
		})
	}
}
