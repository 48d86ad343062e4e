package transaction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAmountPolicy_Validate(t *testing.T) {
	policy := DefaultAmountPolicy()

	var tests = []struct {
		name     string
		amount   string
		expected bool
	}{
		{name: "lower bound", amount: "10", expected: true},
		{name: "upper bound", amount: "101", expected: true},
		{name: "inside", amount: "50", expected: true},
		{name: "whole with zero fraction", amount: "50.00", expected: true},
		{name: "below", amount: "9", expected: false},
		{name: "above", amount: "102", expected: false},
		{name: "fractional", amount: "50.5", expected: false},
		{name: "negative", amount: "-20", expected: false},
		{name: "zero", amount: "0", expected: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.expected, policy.Validate(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestAmountPolicy_ValidateIntSweep(t *testing.T) {
	policy := AmountPolicy{Min: 10, Max: 101}
	for a := int64(-5); a <= 120; a++ {
		require.Equal(t, a >= 10 && a <= 101, policy.ValidateInt(a), "amount %d", a)
	}
}

func TestAmountPolicy_Parse(t *testing.T) {
	policy := AmountPolicy{Min: 20, Max: 30}

	var tests = []struct {
		name        string
		raw         string
		expected    int64
		expectedErr error
	}{
		{name: "integer", raw: "25", expected: 25},
		{name: "provider decimal", raw: "30.00", expected: 30},
		{name: "configured bound applies", raw: "10", expectedErr: ErrPolicyViolation},
		{name: "not a number", raw: "ten", expectedErr: ErrPolicyViolation},
		{name: "fraction", raw: "25.01", expectedErr: ErrPolicyViolation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := policy.Parse(tt.raw)
			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}
