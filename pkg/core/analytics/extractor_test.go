package analytics

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var clickTime = time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

type fakeLocator struct {
	country, city string
	err           error
	seen          net.IP
}

func (f *fakeLocator) Locate(ip net.IP) (string, string, error) {
	f.seen = ip
	return f.country, f.city, f.err
}

type panicLocator struct{}

func (panicLocator) Locate(net.IP) (string, string, error) { panic("corrupt database") }

func newRequest(target, ua string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.Header.Set("User-Agent", ua)
	return r
}

func TestExtractDefaults(t *testing.T) {
	e := &Extractor{}
	d := e.Extract(newRequest("/demo", chromeDesktopUA), clickTime)

	assert.Equal(t, "20240103", d.Day)
	assert.Empty(t, d.RefHost)
	assert.Equal(t, UnknownCountry, d.Country)
	assert.Empty(t, d.City)
	assert.Equal(t, DeviceDesktop, d.Device)
	assert.Equal(t, "Chrome", d.Browser)
	assert.Equal(t, "Windows", d.OS)
	assert.Empty(t, d.UTMSource)
	assert.Empty(t, d.UTMMedium)
	assert.Empty(t, d.UTMCampaign)
}

func TestExtractReferer(t *testing.T) {
	tests := []struct {
		referer string
		want    string
	}{
		{"https://Example.com/x?y=1", "example.com"},
		{"http://news.ycombinator.com:8080/item", "news.ycombinator.com"},
		{"not a url %zz", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.referer, func(t *testing.T) {
			r := newRequest("/demo", chromeDesktopUA)
			if tt.referer != "" {
				r.Header.Set("Referer", tt.referer)
			}
			assert.Equal(t, tt.want, (&Extractor{}).Extract(r, clickTime).RefHost)
		})
	}
}

func TestExtractUTMIsSparse(t *testing.T) {
	d := (&Extractor{}).Extract(newRequest("/demo?utm_source=google&utm_campaign=", chromeDesktopUA), clickTime)

	assert.Equal(t, "google", d.UTMSource)
	assert.Empty(t, d.UTMMedium)
	assert.Empty(t, d.UTMCampaign)
}

func TestExtractUTMIsVerbatim(t *testing.T) {
	d := (&Extractor{}).Extract(newRequest("/demo?utm_source=+News+Letter+&utm_medium=E-Mail&utm_campaign=Spring%20Sale", chromeDesktopUA), clickTime)

	assert.Equal(t, " News Letter ", d.UTMSource)
	assert.Equal(t, "E-Mail", d.UTMMedium)
	assert.Equal(t, "Spring Sale", d.UTMCampaign)
}

func TestExtractGeoHeaders(t *testing.T) {
	locator := &fakeLocator{country: "DE", city: "Berlin"}
	e := &Extractor{Geo: locator}

	r := newRequest("/demo", chromeDesktopUA)
	r.Header.Set("X-Vercel-IP-Country", "th")
	r.Header.Set("X-Vercel-IP-City", "Bang%20Rak")
	d := e.Extract(r, clickTime)

	assert.Equal(t, "TH", d.Country)
	assert.Equal(t, "Bang Rak", d.City)
	assert.Nil(t, locator.seen, "headers win over the database")

	r = newRequest("/demo", chromeDesktopUA)
	r.Header.Set("CF-IPCountry", "XX")
	d = (&Extractor{}).Extract(r, clickTime)
	assert.Equal(t, UnknownCountry, d.Country)
}

func TestExtractGeoFallback(t *testing.T) {
	locator := &fakeLocator{country: "de", city: "Berlin"}
	e := &Extractor{Geo: locator, TrustProxy: true}

	r := newRequest("/demo", chromeDesktopUA)
	r.Header.Set("X-Forwarded-For", "81.2.69.142, 10.0.0.1")
	d := e.Extract(r, clickTime)

	assert.Equal(t, "DE", d.Country)
	assert.Equal(t, "Berlin", d.City)
	assert.Equal(t, "81.2.69.142", locator.seen.String())
}

func TestExtractIgnoresForwardedForWhenUntrusted(t *testing.T) {
	locator := &fakeLocator{country: "DE"}
	e := &Extractor{Geo: locator}

	r := newRequest("/demo", chromeDesktopUA)
	r.RemoteAddr = "203.0.113.9:4312"
	r.Header.Set("X-Forwarded-For", "81.2.69.142")
	e.Extract(r, clickTime)

	assert.Equal(t, "203.0.113.9", locator.seen.String())
}

func TestExtractGeoFailuresAreContained(t *testing.T) {
	d := (&Extractor{Geo: &fakeLocator{err: errors.New("no record")}}).Extract(newRequest("/demo", iphoneUA), clickTime)
	assert.Equal(t, UnknownCountry, d.Country)
	assert.Equal(t, DeviceMobile, d.Device)

	d = (&Extractor{Geo: panicLocator{}}).Extract(newRequest("/demo", iphoneUA), clickTime)
	assert.Equal(t, UnknownCountry, d.Country)
	assert.Equal(t, DeviceMobile, d.Device, "other dimensions survive a failing one")
	assert.Equal(t, "iOS", d.OS)
}

func TestClassifyDevice(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want string
	}{
		{"iphone", iphoneUA, DeviceMobile},
		{"ipad", ipadUA, DeviceTablet},
		{"desktop", chromeDesktopUA, DeviceDesktop},
		{"android phone", "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36", DeviceMobile},
		{"android tablet", "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 Chrome/120.0 Safari/537.36", DeviceTablet},
		{"empty", "", DeviceDesktop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDevice(tt.ua))
		})
	}
}

func TestClassifyBrowserAndOS(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		browser string
		os      string
	}{
		{"chrome windows", chromeDesktopUA, "Chrome", "Windows"},
		{"safari iphone", iphoneUA, "Safari", "iOS"},
		{"safari ipad", ipadUA, "Safari", "iPadOS"},
		{"edge", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0", "Edge", "Windows"},
		{"firefox linux", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", "Firefox", "Linux"},
		{"safari mac", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 Version/17.2 Safari/605.1.15", "Safari", "macOS"},
		{"chrome os", "Mozilla/5.0 (X11; CrOS x86_64 14541.0.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", "Chrome", "ChromeOS"},
		{"samsung android", "Mozilla/5.0 (Linux; Android 13; SM-S911B) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/23.0 Chrome/115.0.0.0 Mobile Safari/537.36", "Samsung Internet", "Android"},
		{"opera", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 OPR/106.0.0.0", "Opera", "Windows"},
		{"firefox ios", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) FxiOS/121.0 Mobile/15E148 Safari/605.1.15", "Firefox", "iOS"},
		{"curl", "curl/8.4.0", "Other", "Other"},
		{"empty", "", "Unknown", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.browser, ClassifyBrowser(tt.ua))
			assert.Equal(t, tt.os, ClassifyOS(tt.ua))
		})
	}
}
