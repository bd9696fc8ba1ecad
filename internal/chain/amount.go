package chain

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultDecimals is assumed until the token's real precision has been read.
const DefaultDecimals uint8 = 18

// ErrInvalidAmount is returned for amounts that are not non-negative decimals.
var ErrInvalidAmount = errors.New("invalid amount")

var displayPrinter = message.NewPrinter(language.Indonesian)

// ParseAmount converts a user-entered decimal string into base units:
// round(amount * 10^decimals).
func ParseAmount(raw string, decimals uint8) (*big.Int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return big.NewInt(0), nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, raw)
	}
	return d.Shift(int32(decimals)).Round(0).BigInt(), nil
}

// FormatUnits converts base units back to a plain decimal string.
func FormatUnits(base *big.Int, decimals uint8) string {
	if base == nil {
		return "0"
	}
	return decimal.NewFromBigInt(base, -int32(decimals)).String()
}

// FormatDisplay renders an amount with Indonesian digit grouping, e.g. 150000 -> "150.000".
// The result is for display only.
func FormatDisplay(amount decimal.Decimal) string {
	whole := amount.Truncate(0)
	var out string
	if wb := whole.BigInt(); wb.IsInt64() {
		out = displayPrinter.Sprintf("%d", wb.Int64())
	} else {
		out = whole.String()
	}

	frac := amount.Sub(whole).Abs()
	if frac.IsZero() {
		return out
	}
	digits := strings.TrimPrefix(frac.Truncate(3).String(), "0.")
	digits = strings.TrimRight(digits, "0")
	if digits == "" || digits == "0" {
		return out
	}
	return out + "," + digits
}

// FormatBaseDisplay is FormatDisplay for base units.
func FormatBaseDisplay(base *big.Int, decimals uint8) string {
	if base == nil {
		return "0"
	}
	return FormatDisplay(decimal.NewFromBigInt(base, -int32(decimals)))
}

// SplitFee computes the platform cut off-chain for display and logging:
// fee = amount * ratePercent / 100, net = amount - fee.
func SplitFee(amount *big.Int, ratePercent int64) (fee, net *big.Int) {
	fee = new(big.Int).Mul(amount, big.NewInt(ratePercent))
	fee.Quo(fee, big.NewInt(100))
	net = new(big.Int).Sub(amount, fee)
	return fee, net
}
