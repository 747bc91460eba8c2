package tag

import "strings"

const nameSeparator = ":"

// SplitNames splits a colon separated name list. An empty list has no names.
func SplitNames(s string) []string {
	s = strings.TrimRight(s, "\x00")
	if s == "" {
		return nil
	}
	return strings.Split(s, nameSeparator)
}

func JoinNames(names []string) string {
	return strings.Join(names, nameSeparator)
}
