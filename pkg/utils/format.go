package utils

import (
	"fmt"
	"strings"
)

// FormatRR renders a risk:reward ratio as "1:2.50".
func FormatRR(ratio float64) string {
	return fmt.Sprintf("1:%.2f", ratio)
}

// FormatPips renders a pip distance with one decimal place.
func FormatPips(pips float64) string {
	return fmt.Sprintf("%.1f pips", pips)
}

// FormatPrice renders a price at the pair's conventional precision: two
// decimals for JPY quotes, five otherwise.
func FormatPrice(pair string, price float64) string {
	if IsJPYPair(pair) {
		return fmt.Sprintf("%.2f", price)
	}
	return fmt.Sprintf("%.5f", price)
}

// FormatCurrency renders an account-currency amount with thousands
// separators, e.g. $12,345.67.
func FormatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	intPart := parts[0]

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	result := "$" + strings.Join(groups, ",") + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// FormatPercent formats a percentage with an explicit sign for gains.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPnL formats profit and loss with an explicit sign for gains.
func FormatPnL(pnl float64) string {
	formatted := FormatCurrency(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatLots renders a position size in lots.
func FormatLots(size float64) string {
	return fmt.Sprintf("%.2f lots", size)
}

// FormatConfluence renders a confluence score out of 100.
func FormatConfluence(score float64) string {
	return fmt.Sprintf("%.0f/100", score)
}
