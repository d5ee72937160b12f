// Package types holds the small set of domain types shared across the
// metadata client, the favorites store and the history service.
package types

import "fmt"

// MediaType identifies the kind of media a record describes.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeTV    MediaType = "tv"
)

// Valid reports whether m is a known media type.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeTV
}

// ParseMediaType converts user input into a MediaType.
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(s) {
	case MediaTypeMovie:
		return MediaTypeMovie, nil
	case MediaTypeTV:
		return MediaTypeTV, nil
	}
	return "", fmt.Errorf("unknown media type %q (want movie or tv)", s)
}
