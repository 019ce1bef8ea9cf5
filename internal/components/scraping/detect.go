package scraping

import (
	"regexp"
	"strings"
)

// BotSignatures are matched case-insensitively against successful response
// bodies, a match means we were served a challenge instead of content.
var BotSignatures = []*regexp.Regexp{
	regexp.MustCompile(`(?i)captcha`),
	regexp.MustCompile(`(?i)cloudflare`),
	regexp.MustCompile(`(?i)access\s+denied`),
	regexp.MustCompile(`(?i)blocked`),
	regexp.MustCompile(`(?i)security\s+check`),
	regexp.MustCompile(`(?i)unusual\s+traffic`),
	regexp.MustCompile(`(?i)verify\s+you\s+are\s+human`),
	regexp.MustCompile(`(?i)challenge`),
	regexp.MustCompile(`(?i)protected\s+by\s+recaptcha`),
	regexp.MustCompile(`(?i)checking\s+your\s+browser`),
}

// shortBodyLimit is the size under which a page that is mostly a script tag
// is assumed to be a javascript challenge.
const shortBodyLimit = 500

var forbiddenSignature = regexp.MustCompile(`(?i)captcha|cloudflare|blocked`)

// DetectBot returns the signature that body matched, ok is false for a
// normal page.
func DetectBot(body string) (pattern string, ok bool) {
	for _, sig := range BotSignatures {
		if sig.MatchString(body) {
			return sig.String(), true
		}
	}
	if len(body) < shortBodyLimit && strings.Contains(strings.ToLower(body), "<script") {
		return "short body with script", true
	}
	return "", false
}
