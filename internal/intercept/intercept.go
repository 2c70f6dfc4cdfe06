// Package intercept classifies request paths that are candidates for the
// PlaybackInfo bypass.
package intercept

import "regexp"

// playbackInfoPattern locates /Items/{id}/PlaybackInfo anywhere in the path,
// so prefixed routes like /emby/Items/{id}/PlaybackInfo also match.
var playbackInfoPattern = regexp.MustCompile(`/Items/([^/]+)/PlaybackInfo`)

// Classify reports whether path targets the PlaybackInfo endpoint and
// returns the item id it names. Matching is purely syntactic: query
// parameters play no role, and malformed paths are simply not candidates.
func Classify(path string) (string, bool) {
	m := playbackInfoPattern.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	return m[1], true
}
