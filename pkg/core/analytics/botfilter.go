package analytics

import (
	"net/http"
	"strings"

	"go.elara.ws/pcre"
)

// botSignatures are case-insensitive PCRE fragments of crawlers, link
// preview fetchers and chat unfurlers. Generic words are anchored so that
// device names and in-app browser tags do not match. A miss only means one
// extra click.
var botSignatures = []string{
	`(?<!cu)bot\b`,
	`(crawl(er)?|spider)\b`,
	`slurp`,
	`facebookexternalhit`,
	`facebookcatalog`,
	`embedly`,
	`iframely`,
	`quora link preview`,
	`outbrain`,
	`vkshare`,
	`w3c_validator`,
	`whatsapp/`,
	`slack-imgproxy`,
	`skypeuripreview`,
	`mastodon/`,
	`google-pagerenderer`,
	`google-inspectiontool`,
	`google-read-aloud`,
	`headlesschrome`,
	`phantomjs`,
	`lighthouse`,
	`uptimerobot`,
	`pingdom`,
	`(uptime|site|status)[ -]?monitor`,
}

var botPattern = mustCompile(`(?i)(` + strings.Join(botSignatures, "|") + `)`)

func mustCompile(pattern string) *pcre.Regexp {
	re, err := pcre.Compile(pattern)
	if err != nil {
		panic("analytics: compiling " + pattern + ": " + err.Error())
	}
	return re
}

// ShouldRecord decides whether a request counts as a click. HEAD requests
// and known bot signatures are never recorded.
func ShouldRecord(method, userAgent string) bool {
	if strings.EqualFold(method, http.MethodHead) {
		return false
	}
	return !IsBot(userAgent)
}

// IsBot matches the User-Agent against the signature list.
func IsBot(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	return botPattern.MatchString(userAgent)
}

// IsPrefetch reports speculative loads announced by the browser.
func IsPrefetch(h http.Header) bool {
	for _, name := range []string{"Purpose", "Sec-Purpose", "X-Purpose", "X-Moz"} {
		v := strings.ToLower(h.Get(name))
		if strings.Contains(v, "prefetch") || strings.Contains(v, "preview") {
			return true
		}
	}
	return false
}
