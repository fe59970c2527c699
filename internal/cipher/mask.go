package cipher

import "strings"

// MaskKey hides all but the first and last four characters of key. Keys of
// eight characters or fewer are masked entirely. For display only.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
