package analytics

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.elara.ws/pcre"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/logging"
)

const UnknownCountry = "??"

const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Dimensions is everything a single click is classified by.
type Dimensions struct {
	Day         string
	RefHost     string
	Country     string
	City        string
	Device      string
	Browser     string
	OS          string
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
}

// GeoLocator resolves a client address when the platform sent no geo headers.
type GeoLocator interface {
	Locate(ip net.IP) (country, city string, err error)
}

// Extractor derives Dimensions from an inbound request.
type Extractor struct {
	Geo        GeoLocator
	TrustProxy bool // honour X-Forwarded-For / X-Real-IP for the client address
	Logger     logrus.FieldLogger
}

// Extract classifies r. A failure in one dimension only drops that dimension.
func (e *Extractor) Extract(r *http.Request, now time.Time) Dimensions {
	log := logging.OrNop(e.Logger)
	d := Dimensions{
		Day:     DayKey(now),
		Country: UnknownCountry,
		Device:  DeviceDesktop,
	}
	ua := r.UserAgent()

	e.guard(log, "ref", func() { d.RefHost = refererHost(r.Header.Get("Referer")) })
	e.guard(log, "geo", func() { d.Country, d.City = e.geo(r) })
	e.guard(log, "device", func() { d.Device = ClassifyDevice(ua) })
	e.guard(log, "browser", func() { d.Browser = ClassifyBrowser(ua) })
	e.guard(log, "os", func() { d.OS = ClassifyOS(ua) })
	e.guard(log, "utm", func() {
		q := r.URL.Query()
		d.UTMSource = q.Get("utm_source")
		d.UTMMedium = q.Get("utm_medium")
		d.UTMCampaign = q.Get("utm_campaign")
	})
	return d
}

func (e *Extractor) guard(log logrus.FieldLogger, dimension string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			log.WithFields(logrus.Fields{
				"dimension": dimension,
				"error":     fmt.Sprint(rec),
			}).Error("dimension extraction failed")
		}
	}()
	fn()
}

func refererHost(referer string) string {
	if referer == "" {
		return ""
	}
	u, err := url.Parse(referer)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func (e *Extractor) geo(r *http.Request) (string, string) {
	country := firstHeader(r.Header, "X-Vercel-IP-Country", "CF-IPCountry")
	city := firstHeader(r.Header, "X-Vercel-IP-City", "CF-IPCity")
	if city != "" {
		if decoded, err := url.QueryUnescape(city); err == nil {
			city = decoded
		}
	}

	if country == "" && e.Geo != nil {
		if ip := e.clientIP(r); ip != nil {
			c, ci, err := e.Geo.Locate(ip)
			if err != nil {
				logging.OrNop(e.Logger).WithError(err).Debug("geo lookup failed")
			} else {
				country = c
				if city == "" {
					city = ci
				}
			}
		}
	}

	country = strings.ToUpper(strings.TrimSpace(country))
	// XX and T1 are what Cloudflare sends for unknown and Tor traffic
	if country == "" || country == "XX" || country == "T1" {
		country = UnknownCountry
	}
	return country, strings.TrimSpace(city)
}

func (e *Extractor) clientIP(r *http.Request) net.IP {
	if e.TrustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip
			}
		}
		if ip := net.ParseIP(r.Header.Get("X-Real-IP")); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(host)
}

func firstHeader(h http.Header, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// ClassifyDevice buckets a User-Agent into mobile, tablet or desktop.
// iPad UAs carry a "Mobile/" token, so tablet patterns are checked first.
func ClassifyDevice(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "ipad"), strings.Contains(ua, "tablet"):
		return DeviceTablet
	case strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return DeviceTablet
	case strings.Contains(ua, "mobile"), strings.Contains(ua, "iphone"),
		strings.Contains(ua, "ipod"), strings.Contains(ua, "android"):
		return DeviceMobile
	}
	return DeviceDesktop
}

type uaRule struct {
	pattern *pcre.Regexp
	name    string
}

func rule(pattern, name string) uaRule {
	return uaRule{pattern: mustCompile(`(?i)` + pattern), name: name}
}

// Order matters: most Chromium browsers also claim Chrome and Safari.
var browserRules = []uaRule{
	rule(`\b(edg|edge|edga|edgios)/`, "Edge"),
	rule(`\bopr/|\bopera\b|\bopios/`, "Opera"),
	rule(`samsungbrowser/`, "Samsung Internet"),
	rule(`yabrowser/`, "Yandex"),
	rule(`vivaldi/`, "Vivaldi"),
	rule(`\b(firefox|fxios)/`, "Firefox"),
	rule(`\b(crios|chrome|chromium)/`, "Chrome"),
	rule(`\bsafari/`, "Safari"),
	rule(`\bmsie\b|\btrident/`, "Internet Explorer"),
}

var osRules = []uaRule{
	rule(`\bwindows\b`, "Windows"),
	rule(`\bipad\b`, "iPadOS"),
	rule(`\b(iphone|ipod)\b`, "iOS"),
	rule(`\bandroid\b`, "Android"),
	rule(`\bcros\b`, "ChromeOS"),
	rule(`mac os x|\bmacintosh\b`, "macOS"),
	rule(`\blinux\b`, "Linux"),
}

func ClassifyBrowser(userAgent string) string {
	return classify(userAgent, browserRules)
}

func ClassifyOS(userAgent string) string {
	return classify(userAgent, osRules)
}

func classify(userAgent string, rules []uaRule) string {
	if strings.TrimSpace(userAgent) == "" {
		return "Unknown"
	}
	for _, r := range rules {
		if r.pattern.MatchString(userAgent) {
			return r.name
		}
	}
	return "Other"
}
