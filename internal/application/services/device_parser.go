package services

import (
	"strings"

	"github.com/ivanmandinski/aisearch-sub002/internal/domain/entities"
)

// ParseUserAgent derives a coarse device type and browser family from a
// User-Agent header. Unknown agents report "desktop" and "other".
func ParseUserAgent(userAgent string) entities.DeviceInfo {
	ua := strings.ToLower(userAgent)
	info := entities.DeviceInfo{UserAgent: userAgent}

	switch {
	case ua == "":
		info.DeviceType = "unknown"
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet") ||
		(strings.Contains(ua, "android") && !strings.Contains(ua, "mobile")):
		info.DeviceType = "tablet"
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "iphone") || strings.Contains(ua, "ipod"):
		info.DeviceType = "mobile"
	default:
		info.DeviceType = "desktop"
	}

	// Order matters: Edge and Opera agents also contain "chrome", and Chrome
	// agents also contain "safari".
	switch {
	case ua == "":
		info.Browser = "unknown"
	case strings.Contains(ua, "edg/") || strings.Contains(ua, "edge/"):
		info.Browser = "edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		info.Browser = "opera"
	case strings.Contains(ua, "firefox/") || strings.Contains(ua, "fxios/"):
		info.Browser = "firefox"
	case strings.Contains(ua, "chrome/") || strings.Contains(ua, "crios/"):
		info.Browser = "chrome"
	case strings.Contains(ua, "safari/"):
		info.Browser = "safari"
	case strings.Contains(ua, "msie") || strings.Contains(ua, "trident/"):
		info.Browser = "ie"
	default:
		info.Browser = "other"
	}

	return info
}
