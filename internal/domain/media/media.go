// Package media derives YouTube identifiers and thumbnails from video links.
package media

import (
	"net/url"
	"strings"
)

// YouTubeID extracts the video id from a watch, short, embed or bare link.
// It falls back to the last path segment and returns "" when nothing is left.
func YouTubeID(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if u, err := url.Parse(link); err == nil {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
	}
	for _, marker := range []string{"youtu.be/", "youtube.com/embed/"} {
		if i := strings.Index(link, marker); i >= 0 {
			if id := cut(link[i+len(marker):], "?&/#"); id != "" {
				return id
			}
		}
	}
	trimmed := strings.TrimRight(link, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return cut(trimmed, "?&#")
}

// Thumbnail returns the high quality thumbnail URL, or "" if no id is found.
func Thumbnail(link string) string {
	id := YouTubeID(link)
	if id == "" {
		return ""
	}
	return "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg"
}

// Embed returns the embeddable player URL, or "" if no id is found.
func Embed(link string) string {
	id := YouTubeID(link)
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + id
}

func cut(s, stops string) string {
	if i := strings.IndexAny(s, stops); i >= 0 {
		return s[:i]
	}
	return s
}
