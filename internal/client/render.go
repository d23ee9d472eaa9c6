package client

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Entry is one row of a rendered listing, from the server or the journal.
type Entry struct {
	ID        string
	Name      string
	Rating    int
	Comment   string
	Timestamp time.Time
	Status    string
	Phone     string
	Local     bool
}

func Stars(rating int) string {
	rating = max(0, min(rating, 5))
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}

// FormatWhen renders the date the way the site shows it (dd.mm.yyyy hh:mm).
func FormatWhen(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("02.01.2006 15:04")
}

// Render writes entries as text. Long comments are collapsed unless expand is set.
func Render(w io.Writer, entries []Entry, expand bool) {
	for _, e := range entries {
		tv := NewTextView(e.Comment)
		if expand {
			tv = tv.Toggle()
		}

		header := fmt.Sprintf("%s  %s  %s", e.Name, Stars(e.Rating), FormatWhen(e.Timestamp, nil))
		if e.Local {
			header += "  (saved offline)"
		}
		if e.Status != "" && e.Status != "active" {
			header += "  [" + e.Status + "]"
		}
		if e.Phone != "" {
			header += "  " + e.Phone
		}
		fmt.Fprintf(w, "%s\n  id: %s\n  %s\n", header, e.ID, tv.Text())
		if tv.Toggleable() && !tv.Expanded {
			fmt.Fprintln(w, "  (use --expand to read in full)")
		}
		fmt.Fprintln(w)
	}
}
