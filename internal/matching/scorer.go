package matching

import "time"

const (
	// DefaultAutoMergeThreshold is the confidence at or above which a match
	// is applied without human review.
	DefaultAutoMergeThreshold = 90

	// matchWindowDays bounds how far apart the statement date and the stored
	// issue date may be. Beyond it a pairing is not a match at all.
	matchWindowDays = 3

	amountMatchScore = 60
)

// dateBonus maps the absolute day delta to the proximity bonus. The discrete
// breakpoints are load-bearing: they correspond to the review queue's
// "same day / ±1 / ±2 / ±3" buckets and downstream tests depend on the exact
// values.
var dateBonus = [matchWindowDays + 1]int{40, 30, 20, 10}

// Score computes a 0-100 confidence for pairing a candidate with a stored
// transaction. Amounts must match exactly in minor units; there is no partial
// credit for amount proximity. Given equal amounts, same-day pairs score 100,
// degrading by 10 per day of distance down to 70 at three days. Anything
// further apart scores 0.
func Score(candidateAmount int64, candidateDate time.Time, txnAmount int64, txnDate time.Time) int {
	if candidateAmount != txnAmount {
		return 0
	}

	days := DaysBetween(candidateDate, txnDate)
	if days > matchWindowDays {
		return 0
	}

	return amountMatchScore + dateBonus[days]
}

// DaysBetween returns the absolute number of calendar days between two
// timestamps, ignoring time-of-day.
func DaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	days := int(ad.Sub(bd).Hours() / 24)
	if days < 0 {
		days = -days
	}

	return days
}
