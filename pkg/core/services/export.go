package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

func exportFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrInvalidFormat, format)
}

// ExportContentType returns the MIME type and file extension of a format.
func ExportContentType(format string) (string, string) {
	f, _ := exportFormat(format)
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8", "csv"
	case FormatYAML:
		return "application/yaml", "yaml"
	}
	return "application/json", "json"
}

// EncodeExport writes the export as one document in the requested format.
func (s *AnalyticsService) EncodeExport(w io.Writer, export *domain.Export, format string) error {
	f, err := exportFormat(format)
	if err != nil {
		return err
	}
	switch f {
	case FormatCSV:
		return encodeCSV(w, export)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(export); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}

// encodeCSV flattens the export to section,dimension,key,clicks rows.
func encodeCSV(w io.Writer, export *domain.Export) error {
	cw := csv.NewWriter(w)
	row := func(section, dimension, key string, clicks int64) error {
		return cw.Write([]string{section, dimension, key, strconv.FormatInt(clicks, 10)})
	}

	if err := cw.Write([]string{"section", "dimension", "key", "clicks"}); err != nil {
		return err
	}
	if err := row("overview", "", "totalClicks", export.Overview.TotalClicks); err != nil {
		return err
	}
	if err := row("overview", "", "clicksToday", export.Overview.ClicksToday); err != nil {
		return err
	}
	for _, p := range export.Timeseries {
		if err := row("timeseries", "", p.Date, p.Clicks); err != nil {
			return err
		}
	}
	for _, dim := range domain.Dimensions {
		for _, item := range export.Breakdowns[dim] {
			if err := row("breakdown", string(dim), item.Key, item.Clicks); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
