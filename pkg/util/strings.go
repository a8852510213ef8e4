package util

import (
	"strings"
	"unicode"
)

func RemoveDuplicateStrings(strings []string, ignoreList []string) []string {
	presentStrings := make(map[string]bool)
	var list []string

	for _, ignoreString := range ignoreList {
		presentStrings[ignoreString] = true
	}

	for _, item := range strings {
		if _, value := presentStrings[item]; !value && item != "" {
			presentStrings[item] = true
			list = append(list, item)
		}
	}
	return list
}

// Slugify lowercases s and collapses every run of characters that are not
// letters or digits into a single underscore, like Home Assistant does for entity IDs
func Slugify(s string) string {
	var builder strings.Builder
	pendingSeparator := false

	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || unicode.IsDigit(r) {
			if pendingSeparator && builder.Len() > 0 {
				builder.WriteRune('_')
			}
			pendingSeparator = false

			builder.WriteRune(r)
		} else {
			pendingSeparator = true
		}
	}

	return builder.String()
}
