package index

import (
	"fmt"
	"strings"
)

// DuplicateError reports two indexed files claiming the same origin
// import file. It is returned (not panicked) from the build path and is
// fatal there: entries are never silently merged or deduplicated. The
// report carries both entries' stats for operator comparison.
type DuplicateError struct {
	Origin string
	A, B   Entry
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate import of origin %q: %s and %s", e.Origin, e.A.Path, e.B.Path)
}

// Report renders a side-by-side comparison of the colliding entries.
func (e *DuplicateError) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "duplicate import detected for origin %q\n", e.Origin)
	for i, entry := range []Entry{e.A, e.B} {
		fmt.Fprintf(&b, "  entry %d: %s\n", i+1, entry.Path)
		fmt.Fprintf(&b, "    range: %s .. %s\n",
			entry.Start.UTC().Format("2006-01-02 15:04:05"),
			entry.End.UTC().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "    rows: %d  size: %d bytes  mtime: %s\n",
			entry.Rows, entry.SizeBytes, entry.ModTime.UTC().Format("2006-01-02 15:04:05"))
	}
	return b.String()
}
