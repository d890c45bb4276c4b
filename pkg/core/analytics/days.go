package analytics

import (
	"time"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
)

const (
	dayKeyLayout = "20060102"
	dateLayout   = "2006-01-02"
)

// DayKey returns the UTC day bucket (YYYYMMDD) of t.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayKeyLayout)
}

// DateOf converts a day bucket into its ISO form (YYYY-MM-DD).
func DateOf(dayKey string) string {
	t, err := time.Parse(dayKeyLayout, dayKey)
	if err != nil {
		return dayKey
	}
	return t.Format(dateLayout)
}

// ParseDate parses an ISO calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

// Range is an inclusive span of UTC calendar days.
type Range struct {
	From time.Time
	To   time.Time
}

// ParseRange validates an inclusive [from, to] pair of ISO dates.
func ParseRange(from, to string) (Range, error) {
	f, err := ParseDate(from)
	if err != nil {
		return Range{}, domain.ErrInvalidRange
	}
	t, err := ParseDate(to)
	if err != nil {
		return Range{}, domain.ErrInvalidRange
	}
	if f.After(t) {
		return Range{}, domain.ErrInvalidRange
	}
	return Range{From: f, To: t}, nil
}

// Len is the number of days in the range, both ends included.
func (r Range) Len() int {
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

// FromKey and ToKey are the day buckets bounding the range.
func (r Range) FromKey() string { return DayKey(r.From) }
func (r Range) ToKey() string   { return DayKey(r.To) }

// Days lists every day bucket in the range in ascending order.
func (r Range) Days() []string {
	days := make([]string, 0, r.Len())
	for d := r.From; !d.After(r.To); d = d.AddDate(0, 0, 1) {
		days = append(days, DayKey(d))
	}
	return days
}
