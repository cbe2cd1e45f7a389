// Package media holds the content model plus the pure classification and
// batching logic that decides what gets delivered and how it is grouped.
package media

import "regexp"

// Kind distinguishes the two media types the upstream extractor reports.
type Kind string

const (
	KindVideo Kind = "video"
	KindImage Kind = "image"
)

// Item is a single piece of extracted content.
// Immutable once produced by the fetcher.
type Item struct {
	URL  string
	Kind Kind
}

// deliverableRe matches retrieval URLs we are willing to hand to the gateway:
// http or https scheme with a non-empty remainder.
var deliverableRe = regexp.MustCompile(`^https?://.+`)

// Deliverable reports whether url is a well-formed retrieval URL.
func Deliverable(url string) bool {
	return deliverableRe.MatchString(url)
}

// KindOf maps the upstream mime category to a Kind.
// Only the literal "video" tag counts as video; everything else is an image.
func KindOf(mime string) Kind {
	if mime == "video" {
		return KindVideo
	}
	return KindImage
}

// Filter drops items without a deliverable URL, preserving order.
// The upstream ordering is the post's media ordering and must survive filtering.
func Filter(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if Deliverable(it.URL) {
			out = append(out, it)
		}
	}
	return out
}
