package analytics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/logging"
)

// Values returns the recorded value of every dimension, in domain.Dimensions
// order. Empty values are omitted.
func (d Dimensions) Values() []DimensionValue {
	all := []DimensionValue{
		{domain.DimensionRef, d.RefHost},
		{domain.DimensionCountry, d.Country},
		{domain.DimensionCity, d.City},
		{domain.DimensionDevice, d.Device},
		{domain.DimensionBrowser, d.Browser},
		{domain.DimensionOS, d.OS},
		{domain.DimensionUTMSource, d.UTMSource},
		{domain.DimensionUTMMedium, d.UTMMedium},
		{domain.DimensionUTMCampaign, d.UTMCampaign},
	}
	out := all[:0]
	for _, dv := range all {
		if dv.Value != "" {
			out = append(out, dv)
		}
	}
	return out
}

type DimensionValue struct {
	Dimension domain.Dimension
	Value     string
}

// BuildStatements lists every counter one click increments: the link's day,
// the global day and the global total, then an all-time and a per-day row for
// each recorded dimension value. url is unused today.
func BuildStatements(d Dimensions, shortcode, url string) []domain.Statement {
	stmts := []domain.Statement{
		{Kind: domain.StatementDaily, Shortcode: shortcode, Day: d.Day, Amount: 1},
		{Kind: domain.StatementGlobalDaily, Day: d.Day, Amount: 1},
		{Kind: domain.StatementCounter, Counter: domain.CounterTotalClicks, Amount: 1},
	}
	for _, dv := range d.Values() {
		stmts = append(stmts,
			domain.Statement{Kind: domain.StatementDimension, Shortcode: shortcode, Dimension: dv.Dimension, Value: dv.Value, Amount: 1},
			domain.Statement{Kind: domain.StatementDailyDimension, Shortcode: shortcode, Day: d.Day, Dimension: dv.Dimension, Value: dv.Value, Amount: 1},
		)
	}
	return stmts
}

// StatementsForRequest extracts and builds in one step. Any failure is logged
// and yields an empty list; the caller still updates the link counter.
func StatementsForRequest(e *Extractor, r *http.Request, now time.Time, shortcode, url string, logger logrus.FieldLogger) (stmts []domain.Statement) {
	log := logging.OrNop(logger).WithField("shortcode", shortcode)
	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("error", fmt.Sprint(rec)).Error("building analytics statements failed")
			stmts = nil
		}
	}()

	if e == nil {
		e = &Extractor{Logger: logger}
	}
	d := e.Extract(r, now)
	stmts = BuildStatements(d, shortcode, url)
	log.WithField("statements", len(stmts)).Debug("analytics statements built")
	return stmts
}
