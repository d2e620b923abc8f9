package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Period identifies the calendar window an analysis report covers.
type Period string

// Possible report periods. Week is a rolling window covering the last seven
// days including today; the others are calendar-aligned.
const (
	PeriodDay          Period = "day"
	PeriodDayRemainder Period = "day_remainder"
	PeriodWeek         Period = "week"
	PeriodMonth        Period = "month"
	PeriodQuarter      Period = "quarter"
)

// ErrInvalidPeriod is returned for unrecognized period values.
var ErrInvalidPeriod = errors.New("invalid report period")

// ParsePeriod converts a string into a Period.
func ParsePeriod(s string) (Period, error) {
	p := Period(s)
	switch p {
	case PeriodDay, PeriodDayRemainder, PeriodWeek, PeriodMonth, PeriodQuarter:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

// Report is a generated diet analysis for one owner and period window.
// While Markdown is nil and IsProcessing is true the row doubles as the
// generation queue entry.
type Report struct {
	ID      int64  `json:"id"`
	OwnerID int64  `json:"owner_id"`
	Period  Period `json:"period"`

	// PeriodStartLocal is the date-only start of the period in the
	// owner's local calendar. Together with OwnerID and Period it keys
	// the report cache.
	PeriodStartLocal time.Time `json:"period_start_local"`

	// Name is the human-readable label, e.g. "2025-08-29 · day".
	Name string `json:"name"`

	Markdown    *string `json:"markdown,omitempty"`
	RequestJSON *string `json:"-"`

	// CaloriesChecksum is the summed calories over the period as of
	// generation time, used to skip regeneration when nothing changed.
	CaloriesChecksum int64 `json:"calories_checksum"`

	IsProcessing        bool       `json:"is_processing"`
	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// ChecksumCalories digests the summed calories over a period into the
// integer stored with a report. Two digits of precision survive so that
// fractional per-meal values still invalidate the cache.
func ChecksumCalories(total float64) int64 {
	return int64(math.Round(total * 100))
}

// BuildReportName returns the human-readable report label for a period start.
func BuildReportName(period Period, startLocal time.Time) string {
	return fmt.Sprintf("%s · %s", startLocal.Format("2006-01-02"), period)
}

// PeriodWindow is a resolved report window: the date-only local start plus
// the UTC instants bounding the underlying data. End is zero for open-ended
// (period-to-date) windows.
type PeriodWindow struct {
	StartLocal time.Time
	StartUTC   time.Time
	EndUTC     time.Time
}

// ResolvePeriodWindow computes the window for a period relative to now in
// the given location.
func ResolvePeriodWindow(now time.Time, period Period, loc *time.Location) (PeriodWindow, error) {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	var startLocal time.Time
	switch period {
	case PeriodDay, PeriodDayRemainder:
		startLocal = midnight
	case PeriodWeek:
		startLocal = midnight.AddDate(0, 0, -6)
	case PeriodMonth:
		startLocal = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	case PeriodQuarter:
		q := (int(local.Month()) - 1) / 3
		startLocal = time.Date(local.Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, loc)
	default:
		return PeriodWindow{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	return PeriodWindow{
		StartLocal: time.Date(startLocal.Year(), startLocal.Month(), startLocal.Day(), 0, 0, 0, 0, time.UTC),
		StartUTC:   startLocal.UTC(),
	}, nil
}

// WindowForStart rebuilds the window for a stored period start, as the
// generation worker does when it re-derives the period. Day windows are
// closed on the following midnight so historical day reports stay stable.
func WindowForStart(period Period, startLocal time.Time, loc *time.Location) PeriodWindow {
	start := time.Date(startLocal.Year(), startLocal.Month(), startLocal.Day(), 0, 0, 0, 0, loc)
	w := PeriodWindow{
		StartLocal: time.Date(startLocal.Year(), startLocal.Month(), startLocal.Day(), 0, 0, 0, 0, time.UTC),
		StartUTC:   start.UTC(),
	}
	if period == PeriodDay {
		w.EndUTC = start.AddDate(0, 0, 1).UTC()
	}
	return w
}
