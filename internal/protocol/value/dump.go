package value

import (
	"fmt"
	"io"
	"strings"
)

// Fprint writes an indented, human-readable listing of items to w.
func Fprint(w io.Writer, items []Item) error {
	return fprint(w, items, 0)
}

func fprint(w io.Writer, items []Item, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, it := range items {
		children, isContainer := it.Value.Items()
		if isContainer {
			if _, err := fmt.Fprintf(w, "%s%s (%d)\n", indent, it.Name, len(children)); err != nil {
				return err
			}
			if err := fprint(w, children, depth+1); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%s%s = %s\n", indent, it.Name, it.Value); err != nil {
			return err
		}
	}
	return nil
}
