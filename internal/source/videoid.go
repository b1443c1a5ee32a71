package source

import "regexp"

// A YouTube video ID is an 11-character opaque token. The three URL shapes in
// the wild all carry it either as the v= query parameter or as a path segment:
//
//	youtube.com/watch?v=VIDEO_ID
//	youtu.be/VIDEO_ID
//	youtube.com/embed/VIDEO_ID
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]v=([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`/embed/([0-9A-Za-z_-]{11})`),
}

// ExtractVideoID pulls the canonical 11-character video ID out of a source
// URL. Returns ErrSourceNotResolvable when no known shape matches.
func ExtractVideoID(sourceURL string) (string, error) {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(sourceURL); m != nil {
			return m[1], nil
		}
	}
	return "", ErrSourceNotResolvable
}
