package internal

import "testing"

func TestGoodChannelNames(t *testing.T) {
	var goodStrings = []string{
		"",
		"MEG 0113",
		"EEG 060",
		"STI 014",
		"123456789012345",
	}
	for i := range goodStrings {
		if !IsValidChannelName(goodStrings[i]) {
			t.Error("name should be good", goodStrings[i])
			return
		}
	}
}

func TestBadChannelNames(t *testing.T) {
	var badStrings = []string{
		"1234567890123456",
		"MEG\x000113",
		"\tEEG",
		"\xff",
	}
	for i := range badStrings {
		if IsValidChannelName(badStrings[i]) {
			t.Error("name should be bad", badStrings[i])
			return
		}
	}
}

func TestChannelName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"MEG 0113", "MEG 0113"},
		{"1234567890123456789", "123456789012345"},
		{"EEG\x00junk", "EEG"},
		// 14 ASCII bytes then a two byte rune: the rune does not fit.
		{"12345678901234é", "12345678901234"},
	}
	for _, c := range cases {
		if got := ChannelName(c.in); got != c.want {
			t.Errorf("ChannelName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
