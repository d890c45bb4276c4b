package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
)

// statementSQL renders one increment as an upsert. Counters are only ever
// changed by the database, never read and rewritten by the application.
func statementSQL(s domain.Statement) (string, []interface{}, error) {
	amount := s.Amount
	if amount <= 0 {
		amount = 1
	}

	switch s.Kind {
	case domain.StatementDaily:
		if s.Shortcode == "" || s.Day == "" {
			break
		}
		return `INSERT INTO analytics_day (shortcode, day, clicks) VALUES (?, ?, ?)
			ON CONFLICT (shortcode, day) DO UPDATE SET clicks = analytics_day.clicks + excluded.clicks`,
			[]interface{}{s.Shortcode, s.Day, amount}, nil

	case domain.StatementGlobalDaily:
		if s.Day == "" {
			break
		}
		return `INSERT INTO analytics_global_day (day, clicks) VALUES (?, ?)
			ON CONFLICT (day) DO UPDATE SET clicks = analytics_global_day.clicks + excluded.clicks`,
			[]interface{}{s.Day, amount}, nil

	case domain.StatementDimension:
		if s.Shortcode == "" || s.Dimension == "" || s.Value == "" {
			break
		}
		return `INSERT INTO analytics_agg (shortcode, dimension, value, clicks) VALUES (?, ?, ?, ?)
			ON CONFLICT (shortcode, dimension, value) DO UPDATE SET clicks = analytics_agg.clicks + excluded.clicks`,
			[]interface{}{s.Shortcode, string(s.Dimension), s.Value, amount}, nil

	case domain.StatementDailyDimension:
		if s.Shortcode == "" || s.Day == "" || s.Dimension == "" || s.Value == "" {
			break
		}
		return `INSERT INTO analytics_day_agg (shortcode, day, dimension, value, clicks) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (shortcode, day, dimension, value) DO UPDATE SET clicks = analytics_day_agg.clicks + excluded.clicks`,
			[]interface{}{s.Shortcode, s.Day, string(s.Dimension), s.Value, amount}, nil

	case domain.StatementCounter:
		if s.Counter == "" {
			break
		}
		return `INSERT INTO counters (name, value) VALUES (?, ?)
			ON CONFLICT (name) DO UPDATE SET value = counters.value + excluded.value`,
			[]interface{}{s.Counter, amount}, nil

	default:
		return "", nil, fmt.Errorf("unknown statement kind %q", s.Kind)
	}
	return "", nil, fmt.Errorf("statement %q is missing key columns", s.Kind)
}

func (r *SQLiteRepository) ApplyClick(ctx context.Context, shortcode string, clickedAt time.Time, stmts []domain.Statement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE links SET clicks = clicks + 1, last_clicked = ? WHERE shortcode = ? AND deleted_at IS NULL`,
		clickedAt.UTC(), shortcode)
	if err != nil {
		return fmt.Errorf("increment link clicks: %w", err)
	}
	if err := requireRow(res, domain.ErrLinkNotFound); err != nil {
		return err
	}

	for i, s := range stmts {
		query, args, err := statementSQL(s)
		if err != nil {
			return fmt.Errorf("statement %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("statement %d (%s): %w", i, s.Kind, err)
		}
	}

	return tx.Commit()
}

// LinkClicks returns 0 for unknown or deleted links.
func (r *SQLiteRepository) LinkClicks(ctx context.Context, shortcode string) (int64, error) {
	var clicks int64
	err := r.db.QueryRowContext(ctx,
		`SELECT clicks FROM links WHERE shortcode = ? AND deleted_at IS NULL`, shortcode).Scan(&clicks)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return clicks, err
}

func (r *SQLiteRepository) Counter(ctx context.Context, name string) (int64, error) {
	var value int64
	err := r.db.QueryRowContext(ctx, `SELECT value FROM counters WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return value, err
}

func (r *SQLiteRepository) DailyCounts(ctx context.Context, shortcode, fromDay, toDay string) ([]domain.DayCount, error) {
	query := `SELECT day, clicks FROM analytics_global_day WHERE day BETWEEN ? AND ? ORDER BY day`
	args := []interface{}{fromDay, toDay}
	if shortcode != "" {
		query = `SELECT day, clicks FROM analytics_day WHERE shortcode = ? AND day BETWEEN ? AND ? ORDER BY day`
		args = []interface{}{shortcode, fromDay, toDay}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []domain.DayCount
	for rows.Next() {
		var dc domain.DayCount
		if err := rows.Scan(&dc.Day, &dc.Clicks); err != nil {
			return nil, err
		}
		counts = append(counts, dc)
	}
	return counts, rows.Err()
}

func (r *SQLiteRepository) TopShortcodes(ctx context.Context, fromDay, toDay string, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT shortcode, SUM(clicks) AS total
		FROM analytics_day
		WHERE day BETWEEN ? AND ?
		GROUP BY shortcode
		ORDER BY total DESC, shortcode ASC
		LIMIT ?`, fromDay, toDay, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		var total int64
		if err := rows.Scan(&code, &total); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *SQLiteRepository) DimensionTotals(ctx context.Context, shortcode string, dim domain.Dimension, fromDay, toDay string, limit int) ([]domain.BreakdownItem, error) {
	table := "analytics_agg"
	where := "dimension = ?"
	args := []interface{}{string(dim)}

	if fromDay != "" && toDay != "" {
		table = "analytics_day_agg"
		where += " AND day BETWEEN ? AND ?"
		args = append(args, fromDay, toDay)
	}
	if shortcode != "" {
		where += " AND shortcode = ?"
		args = append(args, shortcode)
	}

	query := `SELECT value, SUM(clicks) AS total FROM ` + table + ` WHERE ` + where +
		` GROUP BY value ORDER BY total DESC, value ASC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.BreakdownItem{}
	for rows.Next() {
		var item domain.BreakdownItem
		if err := rows.Scan(&item.Key, &item.Clicks); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
