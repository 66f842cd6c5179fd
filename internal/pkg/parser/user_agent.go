package parser

import "strings"

type UserAgent struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// ParseUserAgent does a coarse classification of a User-Agent header for the
// login audit trail. Mobile platforms are checked first because their agents
// also mention Linux or Mac OS.
func ParseUserAgent(ua string) UserAgent {
	s := strings.ToLower(ua)
	result := UserAgent{OS: "Unknown", Browser: "Unknown", Device: "desktop"}

	switch {
	case strings.Contains(s, "android"):
		result.OS = "Android"
	case strings.Contains(s, "iphone"), strings.Contains(s, "ipad"):
		result.OS = "iOS"
	case strings.Contains(s, "windows"):
		result.OS = "Windows"
	case strings.Contains(s, "mac os"):
		result.OS = "macOS"
	case strings.Contains(s, "linux"):
		result.OS = "Linux"
	}

	switch {
	case strings.Contains(s, "edg"):
		result.Browser = "Edge"
	case strings.Contains(s, "chrome"):
		result.Browser = "Chrome"
	case strings.Contains(s, "firefox"):
		result.Browser = "Firefox"
	case strings.Contains(s, "safari"):
		result.Browser = "Safari"
	}

	if strings.Contains(s, "mobile") || strings.Contains(s, "iphone") || result.OS == "Android" {
		result.Device = "mobile"
	} else if strings.Contains(s, "ipad") || strings.Contains(s, "tablet") {
		result.Device = "tablet"
	}

	return result
}
