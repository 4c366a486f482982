// Package week converts calendar dates to ISO 8601 weeks, the unit every
// task and completion record is keyed on.
package week

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"weekly-planner/internal/apperr"
)

// Week identifies an ISO week: weeks start on Monday and week 1 is the week
// containing the year's first Thursday.
type Week struct {
	Year   int
	Number int
}

// Of returns the ISO week containing t.
func Of(t time.Time) Week {
	year, number := t.ISOWeek()
	return Week{Year: year, Number: number}
}

// Current returns the ISO week of date. The zero time is rejected.
func Current(date time.Time) (Week, error) {
	if date.IsZero() {
		return Week{}, apperr.NewError(apperr.InvalidDate, "date is not set", nil)
	}
	return Of(date), nil
}

// Parse accepts either an ISO week ("2025-W10") or a calendar date
// ("2025-03-05") and returns the corresponding week.
func Parse(raw string) (Week, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Week{}, apperr.NewError(apperr.InvalidDate, "empty week", nil)
	}

	upper := strings.ToUpper(raw)
	if yearPart, numPart, ok := strings.Cut(upper, "-W"); ok {
		year, err := strconv.Atoi(yearPart)
		if err != nil {
			return Week{}, apperr.NewError(apperr.InvalidDate, fmt.Sprintf("invalid week %q", raw), err)
		}
		number, err := strconv.Atoi(numPart)
		if err != nil {
			return Week{}, apperr.NewError(apperr.InvalidDate, fmt.Sprintf("invalid week %q", raw), err)
		}
		w := Week{Year: year, Number: number}
		if !w.Valid() {
			return Week{}, apperr.NewError(apperr.InvalidDate, fmt.Sprintf("week %q does not exist", raw), nil)
		}
		return w, nil
	}

	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return Week{}, apperr.NewError(apperr.InvalidDate, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD or YYYY-Www", raw), err)
	}
	return Of(date), nil
}

// WeeksInYear returns 52 or 53. December 28th always falls in the last ISO
// week of its year.
func WeeksInYear(year int) int {
	_, last := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return last
}

func (w Week) Valid() bool {
	return w.Year > 0 && w.Number >= 1 && w.Number <= WeeksInYear(w.Year)
}

func (w Week) IsZero() bool {
	return w.Year == 0 && w.Number == 0
}

// Monday returns midnight UTC of the week's first day.
func (w Week) Monday() time.Time {
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	firstMonday := jan4.AddDate(0, 0, -offset)
	return firstMonday.AddDate(0, 0, (w.Number-1)*7)
}

func (w Week) Next() Week {
	return Of(w.Monday().AddDate(0, 0, 7))
}

func (w Week) Prev() Week {
	return Of(w.Monday().AddDate(0, 0, -7))
}

// Compare returns -1, 0 or 1.
func (w Week) Compare(o Week) int {
	switch {
	case w.Year < o.Year:
		return -1
	case w.Year > o.Year:
		return 1
	case w.Number < o.Number:
		return -1
	case w.Number > o.Number:
		return 1
	default:
		return 0
	}
}

func (w Week) Before(o Week) bool {
	return w.Compare(o) < 0
}

func (w Week) String() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Number)
}
