package internal

import (
	"regexp"
	"unicode/utf8"
)

// MaxChannelName is the number of name bytes a channel info record holds
// before its terminating NUL.
const MaxChannelName = 15

// A channel name may not contain control characters (NUL included).
const channelPattern = `^[^\pC]*$`

var channelRe = regexp.MustCompile(channelPattern)

// IsValidChannelName returns true if name is stored unchanged by
// ChannelName.
func IsValidChannelName(name string) bool {
	return len(name) <= MaxChannelName && utf8.ValidString(name) &&
		channelRe.MatchString(name)
}

// ChannelName returns name as it is written to a channel info record: cut
// at the first NUL and truncated to MaxChannelName bytes on a rune boundary.
func ChannelName(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == 0 {
			name = name[:i]
			break
		}
	}
	if len(name) <= MaxChannelName {
		return name
	}
	cut := MaxChannelName
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut]
}
