package rules

import "time"

const (
	FreeLikesPerDay         = 25
	FreeSuperLikesPerWeek   = 1
	PremiumSuperLikesPerDay = 5
	BonusLikesPerAd         = 1
	AdsWatchedPerDay        = 3
)

func DayKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format("2006-01-02")
}

func SameDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	al := a.In(loc)
	bl := b.In(loc)
	return al.Year() == bl.Year() && al.YearDay() == bl.YearDay()
}

// WeekStart returns midnight of the most recent Monday for the given moment.
func WeekStart(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	offset := (int(local.Weekday()) + 6) % 7
	return time.Date(local.Year(), local.Month(), local.Day()-offset, 0, 0, 0, 0, loc)
}

func SameWeek(a, b time.Time, loc *time.Location) bool {
	return WeekStart(a, loc).Equal(WeekStart(b, loc))
}

func NextResetAt(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc).UTC()
}
