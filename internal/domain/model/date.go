package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDate: строка не является датой ISO-8601.
var ErrInvalidDate = errors.New("некорректная дата ISO-8601")

// dateLayout: календарная дата без времени.
const dateLayout = "2006-01-02"

// dateLayouts: допустимые форматы входа. Кроме чистой даты backend
// отдаёт datetime с зоной (RFC 3339) и без неё.
var dateLayouts = []string{
	dateLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Date: календарная дата без времени и часового пояса.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate разбирает дату ISO-8601. Для datetime сохраняется
// только календарная часть в исходном смещении.
func ParseDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, fmt.Errorf("%w: пустая строка", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// DateOf возвращает календарную дату момента t в его часовом поясе.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero: дата не задана.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Compare возвращает -1, 0 или +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

// Time: полночь даты в UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// String форматирует дату как YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
