package transaction

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	DefaultAmountMin int64 = 10
	DefaultAmountMax int64 = 101
)

// AmountPolicy accepts whole amounts within [Min, Max].
type AmountPolicy struct {
	Min int64
	Max int64
}

func DefaultAmountPolicy() AmountPolicy {
	return AmountPolicy{Min: DefaultAmountMin, Max: DefaultAmountMax}
}

func (p AmountPolicy) Validate(amount decimal.Decimal) bool {
	if !amount.IsInteger() {
		return false
	}
	return amount.GreaterThanOrEqual(decimal.NewFromInt(p.Min)) && amount.LessThanOrEqual(decimal.NewFromInt(p.Max))
}

func (p AmountPolicy) ValidateInt(amount int64) bool {
	return amount >= p.Min && amount <= p.Max
}

// Parse reads a decimal amount such as a provider's "50.00" and returns it in
// whole units, or ErrPolicyViolation.
func (p AmountPolicy) Parse(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a number", ErrPolicyViolation, raw)
	}
	if !p.Validate(d) {
		return 0, fmt.Errorf("%w: amount %s outside %d-%d or not whole", ErrPolicyViolation, d.String(), p.Min, p.Max)
	}
	return d.IntPart(), nil
}

func (p AmountPolicy) String() string {
	return fmt.Sprintf("%d-%d", p.Min, p.Max)
}
