package currency

import (
	"github.com/shopspring/decimal"
)

// AmountEpsilon absorbs rounding noise when comparing human-unit token
// amounts. It sits well below the smallest USDC unit (1e-6).
var AmountEpsilon = decimal.New(1, -9)

type AmountUtils struct{}

func NewAmountUtils() *AmountUtils {
	return &AmountUtils{}
}

// RawToHuman converts a native-unit integer amount (lamports, token base
// units) to human units given the token's decimal precision.
func (u *AmountUtils) RawToHuman(raw int64, decimals int) decimal.Decimal {
	return decimal.New(raw, 0).Shift(int32(-decimals))
}

// HumanToRaw converts a human-unit amount to native units, truncating any
// precision beyond the token's decimals.
func (u *AmountUtils) HumanToRaw(amount decimal.Decimal, decimals int) int64 {
	return amount.Shift(int32(decimals)).Truncate(0).IntPart()
}

// Covers reports whether an observed amount settles a requested amount.
// Policy is minimum-match: observed >= requested - epsilon.
func (u *AmountUtils) Covers(observed, requested decimal.Decimal) bool {
	return observed.Cmp(requested.Sub(AmountEpsilon)) >= 0
}
