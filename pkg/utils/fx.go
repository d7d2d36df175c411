// Package utils provides shared FX math, formatting, and retry helpers.
package utils

import "strings"

// JPY-quoted pairs move in pips of 0.01 and carry a different per-pip
// valuation than four-decimal pairs.
const (
	pipSizeStandard = 0.0001
	pipSizeJPY      = 0.01

	pipValueStandard = 10.0
	pipValueJPY      = 9.09
)

// IsJPYPair reports whether the pair is quoted in Japanese yen.
func IsJPYPair(pair string) bool {
	return strings.HasSuffix(strings.ToUpper(pair), "JPY")
}

// PipSize returns the price increment of one pip for the pair.
func PipSize(pair string) float64 {
	if IsJPYPair(pair) {
		return pipSizeJPY
	}
	return pipSizeStandard
}

// PipValue returns the approximate account-currency value of one pip per
// standard lot for the pair.
func PipValue(pair string) float64 {
	if IsJPYPair(pair) {
		return pipValueJPY
	}
	return pipValueStandard
}

// RiskAmount returns the account currency at risk for a trade.
func RiskAmount(accountSize, riskPercentage float64) float64 {
	return accountSize * riskPercentage / 100
}

// PositionSize returns the lot size that risks exactly the given account
// fraction over the stop distance. Zero stop yields zero, not infinity.
func PositionSize(accountSize, riskPercentage, stopPips float64, pair string) float64 {
	if stopPips <= 0 {
		return 0
	}
	return RiskAmount(accountSize, riskPercentage) / (stopPips * PipValue(pair))
}

// RRRatio returns the reward multiple over the risked distance.
func RRRatio(stopPips, targetPips float64) float64 {
	if stopPips <= 0 {
		return 0
	}
	return targetPips / stopPips
}

// PotentialProfit returns the account-currency profit at the target for
// the given position size.
func PotentialProfit(positionSize, targetPips float64, pair string) float64 {
	return positionSize * targetPips * PipValue(pair)
}
