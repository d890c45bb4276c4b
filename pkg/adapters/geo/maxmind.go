package geo

import (
	"errors"
	"net"
	"os"

	"github.com/oschwald/geoip2-golang"
	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/logging"
)

// MaxMindLocator resolves client addresses with a GeoLite2/GeoIP2 City database.
type MaxMindLocator struct {
	db *geoip2.Reader
}

// Open loads the database at path. An empty path or a missing file disables
// lookups and returns (nil, nil): geo headers from the platform still work.
func Open(path string, logger logrus.FieldLogger) (*MaxMindLocator, error) {
	if path == "" {
		return nil, nil
	}
	logger = logging.OrNop(logger)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.WithField("path", path).Info("GeoIP database not found, geo fallback disabled")
		return nil, nil
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	logger.WithField("path", path).Info("GeoIP database loaded")
	return &MaxMindLocator{db: db}, nil
}

func (m *MaxMindLocator) Locate(ip net.IP) (string, string, error) {
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() {
		return "", "", nil
	}
	record, err := m.db.City(ip)
	if err != nil {
		return "", "", err
	}
	return record.Country.IsoCode, record.City.Names["en"], nil
}

func (m *MaxMindLocator) Close() error {
	return m.db.Close()
}
