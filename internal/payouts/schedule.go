package payouts

import (
	"time"

	"github.com/mercata/mercata-backend/pkg/db/models"
	"github.com/mercata/mercata-backend/pkg/enums"
)

// NextPayoutAt computes the next automatic payout time strictly after from.
// Anchoring on the actual completion time rather than the previously
// scheduled time keeps a delayed sweep from compounding drift: a payout that
// ran late still schedules the next one a full period out.
func NextPayoutAt(settings *models.SellerPayoutSettings, from time.Time) time.Time {
	switch settings.Schedule {
	case enums.PayoutScheduleWeekly:
		return nextWeekday(from, settings.PayoutDayOfWeek)
	case enums.PayoutScheduleBiweekly:
		return nextWeekday(from, settings.PayoutDayOfWeek).AddDate(0, 0, 7)
	case enums.PayoutScheduleMonthly:
		return nextMonthDay(from, settings.PayoutDayOfMonth)
	}
	return nextWeekday(from, settings.PayoutDayOfWeek)
}

// nextWeekday returns the next occurrence of the given weekday (0=Sunday)
// strictly after from, at midnight UTC.
func nextWeekday(from time.Time, dayOfWeek int) time.Time {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		dayOfWeek = 1
	}
	day := from.UTC().Truncate(24 * time.Hour)
	for {
		day = day.AddDate(0, 0, 1)
		if int(day.Weekday()) == dayOfWeek {
			return day
		}
	}
}

// nextMonthDay returns the next occurrence of the given day of month strictly
// after from, clamped to the target month's length.
func nextMonthDay(from time.Time, dayOfMonth int) time.Time {
	if dayOfMonth < 1 {
		dayOfMonth = 1
	}
	utc := from.UTC()
	year, month := utc.Year(), utc.Month()

	candidate := monthDay(year, month, dayOfMonth)
	if candidate.After(utc) {
		return candidate
	}
	next := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return monthDay(next.Year(), next.Month(), dayOfMonth)
}

func monthDay(year int, month time.Month, day int) time.Time {
	lastDay := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
