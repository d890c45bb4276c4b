package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/analytics"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/logging"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/metrics"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/ports"
)

const (
	DefaultBreakdownLimit = 10
	MaxBreakdownLimit     = 100
	DefaultTopLinksLimit  = 5
	MaxTopLinksLimit      = 20
)

type AnalyticsService struct {
	repo      ports.AnalyticsRepository
	extractor *analytics.Extractor
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewAnalyticsService wires the click pipeline. extractor and logger may be nil.
func NewAnalyticsService(repo ports.AnalyticsRepository, extractor *analytics.Extractor, logger logrus.FieldLogger) *AnalyticsService {
	logger = logging.OrNop(logger).WithField("component", "analytics")
	if extractor == nil {
		extractor = &analytics.Extractor{}
	}
	if extractor.Logger == nil {
		extractor.Logger = logger
	}
	return &AnalyticsService{
		repo:      repo,
		extractor: extractor,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *AnalyticsService) PrepareClick(r *http.Request, shortcode, url string) *ports.Click {
	now := s.now().UTC()
	return &ports.Click{
		Shortcode:  shortcode,
		At:         now,
		Statements: analytics.StatementsForRequest(s.extractor, r, now, shortcode, url, s.logger),
	}
}

// RecordPrepared commits the click. Failures are logged and counted, never returned:
// the redirect has already been decided.
func (s *AnalyticsService) RecordPrepared(ctx context.Context, click *ports.Click) {
	start := time.Now()
	err := s.repo.ApplyClick(ctx, click.Shortcode, click.At, click.Statements)
	metrics.AnalyticsWriteDuration.Observe(time.Since(start).Seconds())

	log := s.logger.WithField("shortcode", click.Shortcode)
	if err != nil {
		metrics.ClickRecordFailures.Inc()
		log.WithError(err).Error("recording click failed")
		return
	}
	metrics.ClicksRecorded.Inc()
	log.WithField("statements", len(click.Statements)).Debug("click recorded")
}

// RecordClick runs the whole pipeline inline.
func (s *AnalyticsService) RecordClick(ctx context.Context, r *http.Request, shortcode, url string) {
	s.RecordPrepared(ctx, s.PrepareClick(r, shortcode, url))
}

func (s *AnalyticsService) GetOverview(ctx context.Context, shortcode string) (*domain.Overview, error) {
	var (
		total int64
		err   error
	)
	if shortcode != "" {
		total, err = s.repo.LinkClicks(ctx, shortcode)
	} else {
		total, err = s.repo.Counter(ctx, domain.CounterTotalClicks)
	}
	if err != nil {
		return nil, s.queryError("overview", err)
	}

	today := analytics.DayKey(s.now())
	counts, err := s.repo.DailyCounts(ctx, shortcode, today, today)
	if err != nil {
		return nil, s.queryError("overview", err)
	}

	overview := &domain.Overview{TotalClicks: total}
	for _, c := range counts {
		overview.ClicksToday += c.Clicks
	}
	return overview, nil
}

// GetTimeseries returns one zero-filled point per day. An invalid range gives
// an empty series rather than an error.
func (s *AnalyticsService) GetTimeseries(ctx context.Context, shortcode, from, to string) (*domain.Timeseries, error) {
	rng, err := analytics.ParseRange(from, to)
	if err != nil {
		return &domain.Timeseries{Points: []domain.Point{}}, nil
	}
	points, err := s.points(ctx, shortcode, rng)
	if err != nil {
		return nil, s.queryError("timeseries", err)
	}
	return &domain.Timeseries{Points: points}, nil
}

func (s *AnalyticsService) points(ctx context.Context, shortcode string, rng analytics.Range) ([]domain.Point, error) {
	byDay, err := s.dailyMap(ctx, shortcode, rng)
	if err != nil {
		return nil, err
	}
	days := rng.Days()
	points := make([]domain.Point, 0, len(days))
	for _, day := range days {
		points = append(points, domain.Point{Date: analytics.DateOf(day), Clicks: byDay[day]})
	}
	return points, nil
}

func (s *AnalyticsService) dailyMap(ctx context.Context, shortcode string, rng analytics.Range) (map[string]int64, error) {
	counts, err := s.repo.DailyCounts(ctx, shortcode, rng.FromKey(), rng.ToKey())
	if err != nil {
		return nil, err
	}
	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDay[c.Day] += c.Clicks
	}
	return byDay, nil
}

// GetTimeseriesForTopLinks returns aligned series for the links with the most
// clicks inside the range.
func (s *AnalyticsService) GetTimeseriesForTopLinks(ctx context.Context, from, to string, limit int) (*domain.MultiSeries, error) {
	result := &domain.MultiSeries{Labels: []string{}, Series: []domain.Series{}}
	rng, err := analytics.ParseRange(from, to)
	if err != nil {
		return result, nil
	}
	limit = clamp(limit, DefaultTopLinksLimit, MaxTopLinksLimit)

	codes, err := s.repo.TopShortcodes(ctx, rng.FromKey(), rng.ToKey(), limit)
	if err != nil {
		return nil, s.queryError("timeseries_top", err)
	}

	days := rng.Days()
	for _, day := range days {
		result.Labels = append(result.Labels, analytics.DateOf(day))
	}
	for _, code := range codes {
		byDay, err := s.dailyMap(ctx, code, rng)
		if err != nil {
			return nil, s.queryError("timeseries_top", err)
		}
		values := make([]int64, len(days))
		for i, day := range days {
			values[i] = byDay[day]
		}
		result.Series = append(result.Series, domain.Series{Shortcode: code, Values: values})
	}
	return result, nil
}

// GetBreakdown ranks the values of one dimension. With a range it sums the
// per-day table; without one it reads the all-time table.
func (s *AnalyticsService) GetBreakdown(ctx context.Context, shortcode, dimension string, limit int, from, to string) (*domain.Breakdown, error) {
	dim, err := domain.ParseDimension(dimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, dimension)
	}
	limit = clamp(limit, DefaultBreakdownLimit, MaxBreakdownLimit)

	var fromDay, toDay string
	if from != "" || to != "" {
		rng, err := analytics.ParseRange(from, to)
		if err != nil {
			return &domain.Breakdown{Items: []domain.BreakdownItem{}}, nil
		}
		fromDay, toDay = rng.FromKey(), rng.ToKey()
	}

	items, err := s.repo.DimensionTotals(ctx, shortcode, dim, fromDay, toDay, limit)
	if err != nil {
		return nil, s.queryError("breakdown", err)
	}
	if items == nil {
		items = []domain.BreakdownItem{}
	}
	return &domain.Breakdown{Items: items}, nil
}

// ExportAnalytics dumps overview, timeseries and every breakdown for the
// range. Unlike the polling queries it fails loudly on bad input.
func (s *AnalyticsService) ExportAnalytics(ctx context.Context, shortcode, from, to, format string) (*domain.Export, error) {
	if _, err := exportFormat(format); err != nil {
		return nil, err
	}
	rng, err := analytics.ParseRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: from=%q to=%q (expected YYYY-MM-DD, from <= to)",
			domain.ErrInvalidRange, from, to)
	}

	overview, err := s.GetOverview(ctx, shortcode)
	if err != nil {
		return nil, err
	}
	points, err := s.points(ctx, shortcode, rng)
	if err != nil {
		return nil, s.queryError("export", err)
	}

	export := &domain.Export{
		Shortcode:   shortcode,
		From:        from,
		To:          to,
		GeneratedAt: s.now().UTC(),
		Overview:    *overview,
		Timeseries:  points,
		Breakdowns:  make(map[domain.Dimension][]domain.BreakdownItem, len(domain.Dimensions)),
	}
	for _, dim := range domain.Dimensions {
		items, err := s.repo.DimensionTotals(ctx, shortcode, dim, rng.FromKey(), rng.ToKey(), 0)
		if err != nil {
			return nil, s.queryError("export", err)
		}
		if items == nil {
			items = []domain.BreakdownItem{}
		}
		export.Breakdowns[dim] = items
	}
	return export, nil
}

func (s *AnalyticsService) queryError(query string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	metrics.QueryErrors.WithLabelValues(query).Inc()
	s.logger.WithError(err).WithField("query", query).Error("analytics query failed")
	return fmt.Errorf("analytics %s: %w", query, err)
}

func clamp(v, def, upper int) int {
	if v <= 0 {
		return def
	}
	if v > upper {
		return upper
	}
	return v
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)
