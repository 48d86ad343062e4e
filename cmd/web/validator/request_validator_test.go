package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSON_Decode(t *testing.T) {
	type payload struct {
		DeviceID string `json:"device_id"`
	}

	var tests = []struct {
		name        string
		body        string
		expected    payload
		expectedErr error
	}{
		{
			name:     "valid",
			body:     `{"device_id":"m1"}`,
			expected: payload{DeviceID: "m1"},
		},
		{
			name:        "empty",
			body:        ``,
			expectedErr: ErrInvalidJSON,
		},
		{
			name:        "unknown field",
			body:        `{"device":"m1"}`,
			expectedErr: ErrInvalidJSON,
		},
		{
			name:        "trailing data",
			body:        `{"device_id":"m1"}{}`,
			expectedErr: ErrInvalidJSON,
		},
		{
			name:        "too large",
			body:        `{"device_id":"` + strings.Repeat("x", 128) + `"}`,
			expectedErr: ErrInvalidJSON,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v := &JSON{MaxBytes: 64}
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got payload
			err := v.Decode(httptest.NewRecorder(), r, &got)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}
