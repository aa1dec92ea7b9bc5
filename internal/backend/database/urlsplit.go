package database

import "strings"

// SplitURL splits url into its scheme+host origin and the remaining path.
// The origin ends right before the first "/" following the "//" marker, so
// origin+path always reproduces url. Input without a "//" marker, or without a
// path after the host, is returned whole as the origin with an empty path.
func SplitURL(url string) (origin string, path string) {
	marker := strings.Index(url, "//")
	if marker < 0 {
		return url, ""
	}
	hostStart := marker + len("//")
	slash := strings.Index(url[hostStart:], "/")
	if slash < 0 {
		return url, ""
	}
	cut := hostStart + slash
	return url[:cut], url[cut:]
}
