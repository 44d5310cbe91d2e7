package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Amounts are carried as int64 minor units (poisha, 100 per taka), both
// in memory and on the wire. Formatting to two decimal places happens
// only at the display edge.

const minorPerTaka = 100

const (
	// MinTransfer is the smallest amount accepted for a P2P transfer.
	MinTransfer int64 = 50 * minorPerTaka
	// transferFeeThreshold is the amount above which the flat fee applies.
	transferFeeThreshold int64 = 100 * minorPerTaka
	// transferFlatFee is the flat charge for transfers above the threshold.
	transferFlatFee int64 = 5 * minorPerTaka
	// CashRequestAmount is the fixed float an agent may request from admin.
	CashRequestAmount int64 = 100_000 * minorPerTaka
)

// ErrInvalidAmount indicates an amount string that does not parse as a
// non-negative value with at most two decimal places.
var ErrInvalidAmount = errors.New("invalid amount")

// TransferFee returns the charge for a P2P transfer: a flat fee above the
// threshold, free otherwise.
func TransferFee(amount int64) int64 {
	if amount > transferFeeThreshold {
		return transferFlatFee
	}
	return 0
}

// CashOutFee returns the 1.5% charge applied to cash-out transactions.
func CashOutFee(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount * 15 / 1000
}

// AgentCommission returns the 1% income an agent earns on a cash-out.
func AgentCommission(amount int64) int64 {
	if amount <= 0 {
		return 0
	}
	return amount / 100
}

// NoFee is the fee function for flows that carry no charge.
func NoFee(int64) int64 { return 0 }

// Format renders minor units as a decimal taka string, e.g. 1500 -> "15.00".
func Format(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/minorPerTaka, amount%minorPerTaka)
}

// Parse converts a user-entered decimal taka string into minor units.
// At most two fractional digits are accepted; negatives are rejected.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, ErrInvalidAmount
	}
	taka, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	minor := taka * minorPerTaka
	if frac != "" {
		for len(frac) < 2 {
			frac += "0"
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		minor += f
	}
	return minor, nil
}
