package domain

import "time"

// Dimension is a categorical attribute of a click used for breakdowns.
type Dimension string

const (
	DimensionRef         Dimension = "ref"
	DimensionCountry     Dimension = "country"
	DimensionCity        Dimension = "city"
	DimensionDevice      Dimension = "device"
	DimensionBrowser     Dimension = "browser"
	DimensionOS          Dimension = "os"
	DimensionUTMSource   Dimension = "utm_source"
	DimensionUTMMedium   Dimension = "utm_medium"
	DimensionUTMCampaign Dimension = "utm_campaign"
)

// Dimensions lists every dimension in the order statements and exports use.
var Dimensions = []Dimension{
	DimensionRef,
	DimensionCountry,
	DimensionCity,
	DimensionDevice,
	DimensionBrowser,
	DimensionOS,
	DimensionUTMSource,
	DimensionUTMMedium,
	DimensionUTMCampaign,
}

// ParseDimension validates a dimension name coming from a request.
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", ErrInvalidDimension
}

// CounterTotalClicks names the global running total in the counters table.
const CounterTotalClicks = "total_clicks"

// StatementKind selects the aggregate table a Statement increments.
type StatementKind string

const (
	StatementDaily          StatementKind = "daily"
	StatementGlobalDaily    StatementKind = "global_daily"
	StatementDimension      StatementKind = "dimension"
	StatementDailyDimension StatementKind = "daily_dimension"
	StatementCounter        StatementKind = "counter"
)

// Statement is one upsert-increment against an aggregate table. Only the
// key fields relevant to Kind are set.
type Statement struct {
	Kind      StatementKind
	Shortcode string
	Day       string // YYYYMMDD, UTC
	Dimension Dimension
	Value     string
	Counter   string
	Amount    int64
}

// Overview is the headline numbers for a scope.
type Overview struct {
	TotalClicks int64 `json:"totalClicks" yaml:"totalClicks"`
	ClicksToday int64 `json:"clicksToday" yaml:"clicksToday"`
}

// Point is the click count of one UTC day.
type Point struct {
	Date   string `json:"date" yaml:"date"` // YYYY-MM-DD
	Clicks int64  `json:"clicks" yaml:"clicks"`
}

type Timeseries struct {
	Points []Point `json:"points" yaml:"points"`
}

// Series is one link's zero-filled values aligned to MultiSeries.Labels.
type Series struct {
	Shortcode string  `json:"shortcode" yaml:"shortcode"`
	Values    []int64 `json:"values" yaml:"values"`
}

type MultiSeries struct {
	Labels []string `json:"labels" yaml:"labels"`
	Series []Series `json:"series" yaml:"series"`
}

type BreakdownItem struct {
	Key    string `json:"key" yaml:"key"`
	Clicks int64  `json:"clicks" yaml:"clicks"`
}

type Breakdown struct {
	Items []BreakdownItem `json:"items" yaml:"items"`
}

// Export is the full aggregate dump of a scope over a date range.
type Export struct {
	Shortcode   string                        `json:"shortcode,omitempty" yaml:"shortcode,omitempty"`
	From        string                        `json:"from" yaml:"from"`
	To          string                        `json:"to" yaml:"to"`
	GeneratedAt time.Time                     `json:"generatedAt" yaml:"generatedAt"`
	Overview    Overview                      `json:"overview" yaml:"overview"`
	Timeseries  []Point                       `json:"timeseries" yaml:"timeseries"`
	Breakdowns  map[Dimension][]BreakdownItem `json:"breakdowns" yaml:"breakdowns"`
}

// DayCount is a raw aggregate row keyed by day, used by range reads.
type DayCount struct {
	Day    string
	Clicks int64
}

