package sources

import (
	"errors"
	"regexp"
	"strings"
)

// ErrVideoIDNotFound is returned when no YouTube URL shape matches.
var ErrVideoIDNotFound = errors.New("video id not found")

// videoIDRe matches watch?v=, youtu.be/, /embed/, /v/ and /shorts/ URLs.
// The id is exactly 11 token chars and must not run into a 12th.
var videoIDRe = regexp.MustCompile(
	`(?:youtube\.com/(?:watch\?(?:[^#]*&)?v=|embed/|v/|shorts/)|youtu\.be/)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)

// ExtractVideoID returns the 11-character video id from a YouTube URL.
func ExtractVideoID(raw string) (string, error) {
	m := videoIDRe.FindStringSubmatch(strings.TrimSpace(raw))
	if len(m) < 2 {
		return "", ErrVideoIDNotFound
	}
	return m[1], nil
}

// WatchURL is the canonical watch page URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
