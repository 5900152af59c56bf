package booking

import (
	"sort"
	"time"

	"github.com/clinic/clinic/internal/domain/availability"
)

// GenerateSlots enumerates the candidate slots for each date in [from, to]
// given a doctor's recurring availability windows. slotDuration is in
// minutes. A window contributes every slot start m with
// m+slotDuration <= window end; trailing partial intervals are dropped.
// Dates whose weekday matches no window are absent from the result. When
// several windows share a weekday the result is their union, sorted and
// deduplicated.
func GenerateSlots(windows []*availability.Window, from, to time.Time, slotDuration int) map[string][]int {
	byWeekday := make(map[int][]*availability.Window)
	for _, w := range windows {
		byWeekday[w.Weekday] = append(byWeekday[w.Weekday], w)
	}

	out := make(map[string][]int)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dayWindows := byWeekday[int(d.Weekday())]
		if len(dayWindows) == 0 {
			continue
		}
		seen := make(map[int]bool)
		var minutes []int
		for _, w := range dayWindows {
			for m := w.StartMinute; m+slotDuration <= w.EndMinute; m += slotDuration {
				if !seen[m] {
					seen[m] = true
					minutes = append(minutes, m)
				}
			}
		}
		if len(minutes) == 0 {
			continue
		}
		sort.Ints(minutes)
		out[d.Format("2006-01-02")] = minutes
	}
	return out
}

// MonthRange returns the first and last day of a calendar month.
func MonthRange(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return from, to
}
