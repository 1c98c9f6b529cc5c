package utils

import "github.com/microcosm-cc/bluemonday"

// Free-text fields (transaction reasons, reject reasons, day notes) are
// rendered verbatim by staff terminals, so strip all markup on the way in.
var sanitizer = bluemonday.StrictPolicy()

// SanitizeText removes any HTML from stored free text.
func SanitizeText(input string) string {
	return sanitizer.Sanitize(input)
}
