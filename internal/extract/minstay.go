package extract

import (
	"log/slog"
	"regexp"
	"strconv"
)

// minStayPatterns cover the phrasings the listing page uses for its
// minimum-stay rule, including the localized variant. Each pattern's
// first capture group is the night count.
var minStayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)[\s-]*night minimum`),
	regexp.MustCompile(`(?i)minimum (?:stay|of)[:\s]*(\d+)\s*nights?`),
	regexp.MustCompile(`(?i)minimum nights?[:\s]*(\d+)`),
	regexp.MustCompile(`至少(?:入住)?\s*(\d+)\s*晚`),
}

// DetectMinStay scans page text for a minimum-stay rule. ok=false means
// no phrasing matched and the caller should fall back.
func DetectMinStay(text string) (int, bool) {
	for _, pattern := range minStayPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		nights, err := strconv.Atoi(m[1])
		if err != nil || nights < 1 {
			continue
		}
		return nights, true
	}
	return 0, false
}

// ResolveMinNights picks the minimum stay for a listing: an explicit
// override wins, then auto-detection from page text, then the default.
// The default branch is a low-confidence guess and is logged as such.
func ResolveMinNights(override int, pageText string, fallback int, logger *slog.Logger) int {
	if override > 0 {
		return override
	}
	if nights, ok := DetectMinStay(pageText); ok {
		logger.Debug("minimum stay detected from page", "nights", nights)
		return nights
	}
	if fallback < 1 {
		fallback = 1
	}
	logger.Warn("minimum stay unknown, assuming default", "nights", fallback)
	return fallback
}
