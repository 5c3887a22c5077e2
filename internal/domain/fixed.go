package domain

import "github.com/shopspring/decimal"

// BpsToPercent converts basis points to a percentage (500 -> 5.00).
func BpsToPercent(bps int32) decimal.Decimal {
	return decimal.New(int64(bps), -2)
}

// ScaledRatio converts a ratio scaled by 100 to its real value (150 -> 1.50).
func ScaledRatio(v int32) decimal.Decimal {
	return decimal.New(int64(v), -2)
}

// FormatBps renders basis points as a percentage string, e.g. "-20.00%".
func FormatBps(bps int32) string {
	return BpsToPercent(bps).StringFixed(2) + "%"
}

// FormatRatio renders a scaled ratio with two decimals, e.g. "1.50".
func FormatRatio(v int32) string {
	return ScaledRatio(v).StringFixed(2)
}
