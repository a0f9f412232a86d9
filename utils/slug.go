package utils

import "strings"

// Slugify derives a URL-safe identifier from a display name:
// lowercased, with whitespace runs collapsed to single hyphens.
func Slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
