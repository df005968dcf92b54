package analytics

import (
	"strings"

	"github.com/mssola/useragent"
)

// botMarkers are matched case-insensitively against the User-Agent.
var botMarkers = []string{
	// Generic patterns
	"bot",
	"spider",
	"crawl",

	// Link-preview / unfurler bots
	"facebookexternalhit",
	"facebot",
	"whatsapp",
	"slackbot",
	"telegrambot",
	"applebot",
	"twitterbot",
	"linkedinbot",
	"preview",

	// Google
	"google web preview",
	"google favicon",
	"google-ad",
	"google-site-verification",
	"googlesecurityscanner",
	"google_analytics_snippet_validator",
	"chrome-lighthouse",

	// Security / scanning
	"burpcollaborator.net/",
	"zgrab/",
	"netcraftsurveyagent/",
	"netcraft web server survey",

	// HTTP client libraries (not real browsers)
	"go-http-client/",
	"curl/",
	"wget/",
	"python-requests/",
	"python-urllib/",
	"pycurl/",
	"java/",
	"libwww-perl/",
	"okhttp/",
	"ruby",

	// Headless / renderers
	"headlesschrome/",
	"dumprendertree/",
	"phantomjs",
	"slimerjs",
	"wkhtmltoimage",
	"wkhtmltopdf",

	// Misc known bots & tools
	"admantx",
	"alexatoolbar/",
	"bingpreview/",
	"dataprovider.com",
	"faraday v",
	"gigablastopensource/",
	"owler/",
	"pageanalyzer/",
	"panscient.com",
	"ruxitrecorder/",
	"ruxitsynthetic/",
	"synapse",
	"tracemyfile/",
	"trendsmapresolver/",
	"ubermetrics-technologies.com",
	"wappalyzer",
	"whatweb/",
	"wininet",
	"wordpress.com",
	"wsr-agent/",
}

// IsBot reports whether the User-Agent belongs to a crawler, unfurler or
// scripted client. An empty User-Agent is not classified as a bot.
func IsBot(rawUA string) bool {
	rawUA = strings.TrimSpace(rawUA)
	if rawUA == "" {
		return false
	}
	if useragent.New(rawUA).Bot() {
		return true
	}
	lower := strings.ToLower(rawUA)
	for _, m := range botMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
