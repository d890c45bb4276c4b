package analytics

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	chromeDesktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	iphoneUA        = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	ipadUA          = "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	googlebotUA     = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	cubotUA         = "Mozilla/5.0 (Linux; Android 10; CUBOT_X30) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	fbInAppUA       = "Mozilla/5.0 (Linux; Android 12; SM-G991B Build/SP1A.210812.016; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/120.0.6099.43 Mobile Safari/537.36 [FBAN/EMA;FBLC/en_US;FBAV/preview]"
)

func TestShouldRecord(t *testing.T) {
	tests := []struct {
		name   string
		method string
		ua     string
		want   bool
	}{
		{"browser GET", http.MethodGet, chromeDesktopUA, true},
		{"empty UA", http.MethodGet, "", true},
		{"go client", http.MethodGet, "Go-http-client/1.1", true},
		{"googlebot", http.MethodGet, googlebotUA, false},
		{"browser HEAD", http.MethodHead, chromeDesktopUA, false},
		{"lower-case head", "head", chromeDesktopUA, false},
		{"facebook unfurl", http.MethodGet, "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)", false},
		{"whatsapp", http.MethodGet, "WhatsApp/2.23.20.0 A", false},
		{"slack", http.MethodGet, "Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)", false},
		{"headless", http.MethodGet, "Mozilla/5.0 HeadlessChrome/120.0.0.0 Safari/537.36", false},
		{"case insensitive", http.MethodGet, "SOMECRAWLER/1.0", false},
		{"spider", http.MethodGet, "Mozilla/5.0 (compatible; Baiduspider/2.0; +http://www.baidu.com/search/spider.html)", false},
		{"bing", http.MethodGet, "Mozilla/5.0 (compatible; bingbot/2.0; +http://www.bing.com/bingbot.htm)", false},
		{"uptime monitor", http.MethodGet, "Mozilla/5.0 (compatible; UptimeRobot/2.0; http://www.uptimerobot.com/)", false},
		{"cubot phone", http.MethodGet, cubotUA, true},
		{"cubot phone spaced model", http.MethodGet, "Mozilla/5.0 (Linux; Android 11; CUBOT NOTE 20) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36", true},
		{"facebook in-app browser", http.MethodGet, fbInAppUA, true},
		{"instagram in-app browser", http.MethodGet, "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 Instagram 309.0.0.0 (iPhone14,5; iOS 17_0; en_US)", true},
		{"bot prefix in product name", http.MethodGet, "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0.0.0 Safari/537.36 Bottles/1.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRecord(tt.method, tt.ua))
		})
	}
}

func TestIsPrefetch(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   bool
	}{
		{"sec-purpose prefetch", "Sec-Purpose", "prefetch;prerender", true},
		{"purpose prefetch", "Purpose", "prefetch", true},
		{"x-moz", "X-Moz", "prefetch", true},
		{"x-purpose preview", "X-Purpose", "preview", true},
		{"none", "", "", false},
		{"unrelated", "Sec-Purpose", "navigate", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set(tt.header, tt.value)
			}
			assert.Equal(t, tt.want, IsPrefetch(h))
		})
	}
}
