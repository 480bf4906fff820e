package normalize

import "regexp"

var safeFnRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeFilename replaces every run of filename-unsafe characters with an
// underscore, producing a key usable on any filesystem. Empty input yields
// "na".
func SafeFilename(name string) string {
	if name == "" {
		return "na"
	}
	return safeFnRe.ReplaceAllString(name, "_")
}
