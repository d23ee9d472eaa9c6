package client

import "unicode/utf8"

const CollapseThreshold = 200

// TextView is the read-more state of one review text.
type TextView struct {
	Full     string
	Expanded bool
}

func NewTextView(text string) TextView {
	return TextView{Full: text}
}

// Toggleable reports whether the text is long enough to be collapsed.
func (tv TextView) Toggleable() bool {
	return utf8.RuneCountInString(tv.Full) > CollapseThreshold
}

// Toggle flips between collapsed and expanded; short texts never change.
func (tv TextView) Toggle() TextView {
	if tv.Toggleable() {
		tv.Expanded = !tv.Expanded
	}
	return tv
}

func (tv TextView) Text() string {
	if !tv.Toggleable() || tv.Expanded {
		return tv.Full
	}
	return string([]rune(tv.Full)[:CollapseThreshold]) + "..."
}
