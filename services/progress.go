package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"crypto-mining-client/models"
)

// Pure derivations of display fields from a mining session snapshot.
// Nothing here touches the network or mutable state, so every projection
// is deterministic for a given snapshot.

var secondsPerHour = decimal.NewFromInt(3600)

// PerHourRate is the accrual rate in asset units per hour.
func PerHourRate(s models.MiningSession) decimal.Decimal {
	return s.MiningPerSecond.Mul(secondsPerHour)
}

// ETAHours estimates the hours remaining until the session completes.
// The estimate extrapolates the observed pace (progress per elapsed hour),
// which is undefined when no progress or no elapsed time has been recorded;
// those cases report ok=false rather than NaN or Inf.
func ETAHours(s models.MiningSession) (float64, bool) {
	if s.ProgressPercentage >= 100 {
		return 0, false
	}
	if s.ProgressPercentage <= 0 || s.ElapsedHours <= 0 {
		return 0, false
	}
	pace := s.ProgressPercentage / s.ElapsedHours
	return (100 - s.ProgressPercentage) / pace, true
}

// FormatETA renders the remaining-time estimate for display, reporting
// "unknown" whenever the estimate is undefined.
func FormatETA(s models.MiningSession) string {
	hours, ok := ETAHours(s)
	if !ok {
		return "unknown"
	}
	if hours < 1 {
		return fmt.Sprintf("%.0fm", hours*60)
	}
	return fmt.Sprintf("%.1fh", hours)
}

// FormatProgress renders the progress percentage clamped to [0,100].
func FormatProgress(s models.MiningSession) string {
	p := s.ProgressPercentage
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return fmt.Sprintf("%.1f%%", p)
}
