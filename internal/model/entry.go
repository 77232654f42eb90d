package model

import (
	"fmt"
	"math"
)

const (
	// FetchShare is the upper bound of the download half of a progress entry.
	FetchShare = 50

	// Complete is the percentage of a fully processed link.
	Complete = 100
)

// Checkmark is rendered in place of the percentage once a link is done.
const Checkmark = "✓"

// Entry is the progress state of one link.
type Entry struct {
	// ID is the Link ID this entry tracks.
	ID int

	// Name is the display label, the archive entry name of the link.
	Name string

	// Percent is the current progress in [0,100].
	Percent int

	// Visible reports whether the entry should be rendered.
	Visible bool

	// Done is set once both phases of the link succeeded.
	Done bool
}

// Label renders the entry the way it is shown next to its link.
func (e Entry) Label() string {
	if e.Done {
		return Checkmark
	}
	return fmt.Sprintf("%d%%", e.Percent)
}

// FetchPercent maps download progress onto [0,50].
//
// The second return value is false when total is unknown, in which case no
// update should be applied.
func FetchPercent(loaded, total int64) (int, bool) {
	if total <= 0 {
		return 0, false
	}
	return clamp(int(math.Floor(ratio(loaded, total)*FetchShare)), 0, FetchShare), true
}

// ArchivePercent maps archive write progress onto [50,100].
//
// An empty entry (total == 0) counts as fully written.
func ArchivePercent(loaded, total int64) int {
	if total <= 0 {
		return Complete
	}
	return clamp(int(math.Ceil(FetchShare+ratio(loaded, total)*FetchShare)), FetchShare, Complete)
}

func ratio(loaded, total int64) float64 {
	return float64(loaded) / float64(total)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
