package bridge

// Canonical is the single string used to detect duplicate track states.
// Every track emission is gated on it differing from the last one sent.
func Canonical(artist, title string) string {
	if artist != "" {
		return artist + " - " + title
	}
	return title
}

// Normalize turns a raw screen read into an emittable track. ok is false
// when there is no usable track yet: empty title or the placeholder shown
// while a deck loads. An empty or placeholder artist becomes "".
func Normalize(artist, title, placeholder string) (string, string, bool) {
	if title == "" || title == placeholder {
		return "", "", false
	}
	if artist == placeholder {
		artist = ""
	}
	return artist, title, true
}
