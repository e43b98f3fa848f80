// Package embed turns paragraphs that hold nothing but a media URL into
// platform embeds.
package embed

import (
	"regexp"
	"strings"
)

type Platform string

const (
	YouTube   Platform = "youtube"
	Twitter   Platform = "twitter"
	NicoVideo Platform = "nicovideo"
)

// Descriptor is what Classify learned about one standalone URL.
type Descriptor struct {
	URL      string
	Platform Platform
	ID       string
	// User is the account name of a microblog status.
	User string
}

var (
	youtubeRE   = regexp.MustCompile(`^https?://(?:www\.|m\.)?(?:youtube\.com/watch\?(?:[^#\s]*&)?v=|youtu\.be/)([A-Za-z0-9_-]+)`)
	nicovideoRE = regexp.MustCompile(`^https?://(?:www\.|sp\.)?nicovideo\.jp/watch/((?:sm|so|nm)\d+)`)
	twitterRE   = regexp.MustCompile(`^https?://(?:www\.|mobile\.)?(?:twitter\.com|x\.com)/(\w+)/status/(\d+)`)
)

// Classify reports whether text is a single URL of a supported platform.
// Both the Markdown and the DOM stage go through here.
func Classify(text string) (Descriptor, bool) {
	u := strings.TrimSpace(text)
	if u == "" || strings.ContainsAny(u, " \t\r\n") {
		return Descriptor{}, false
	}
	if m := youtubeRE.FindStringSubmatch(u); m != nil {
		return Descriptor{URL: u, Platform: YouTube, ID: m[1]}, true
	}
	if m := nicovideoRE.FindStringSubmatch(u); m != nil {
		return Descriptor{URL: u, Platform: NicoVideo, ID: m[1]}, true
	}
	if m := twitterRE.FindStringSubmatch(u); m != nil {
		return Descriptor{URL: u, Platform: Twitter, User: m[1], ID: m[2]}, true
	}
	return Descriptor{}, false
}

// EmbedURL is the iframe source for video platforms, "" for the rest.
func (d Descriptor) EmbedURL() string {
	switch d.Platform {
	case YouTube:
		return "https://www.youtube.com/embed/" + d.ID
	case NicoVideo:
		return "https://embed.nicovideo.jp/watch/" + d.ID
	}
	return ""
}

// StatusURL is the canonical microblog status link the widget hydrates.
func (d Descriptor) StatusURL() string {
	if d.Platform != Twitter {
		return ""
	}
	return "https://twitter.com/" + d.User + "/status/" + d.ID + "?ref_src=twsrc%5Etfw"
}
