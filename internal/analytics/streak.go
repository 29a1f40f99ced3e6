// internal/analytics/streak.go
package analytics

import (
	"sort"
	"time"
)

// dayNumber truncates a timestamp to its calendar day, expressed as days
// since the Unix epoch. The date is read in the timestamp's own location;
// time of day and offset are discarded after that.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// ConsecutiveDayStreak counts the run of consecutive calendar days ending
// at today (or yesterday) on which at least one redemption occurred.
// Multiple redemptions on one day count once. An empty history, or a most
// recent redemption more than one day old, yields 0.
func ConsecutiveDayStreak(redemptions []time.Time, today time.Time) int {
	if len(redemptions) == 0 {
		return 0
	}

	seen := make(map[int64]struct{}, len(redemptions))
	days := make([]int64, 0, len(redemptions))
	for _, t := range redemptions {
		day := dayNumber(t)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}

	// Most recent first.
	sort.Slice(days, func(i, j int) bool { return days[i] > days[j] })

	if dayNumber(today)-days[0] > 1 {
		return 0
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if days[i-1]-days[i] != 1 {
			break
		}
		streak++
	}
	return streak
}
