package summarizer

import (
	"fmt"
	"regexp"
)

// videoIDRE matches watch, embed, v/, e/ and youtu.be links
var videoIDRE = regexp.MustCompile(`(?:youtube\.com/(?:[^/\n\s]+/\S+/|(?:v|e(?:mbed)?)/|\S*?[?&]v=)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// ExtractVideoID returns the 11-character video id in link, or "" if none
func ExtractVideoID(link string) string {
	if m := videoIDRE.FindStringSubmatch(link); len(m) == 2 {
		return m[1]
	}
	return ""
}

// ThumbnailURL is the default high-resolution thumbnail for a video id
func ThumbnailURL(videoID string) string {
	return fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", videoID)
}
