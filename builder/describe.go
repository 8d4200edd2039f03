package builder

import (
	"fmt"
	"strings"

	"github.com/zipwith/lc-baremetal/format"
)

// Describe renders a human-readable build report: one line per
// section in address order, then one line per module header, matching
// the layout of showMemImage/showSection/showHeader in mimgmake.c.
// cmd/mimgbuild logs this at info level after a successful Serialize
// when run with -v.
func (img *Image) Describe() string {
	var b strings.Builder

	fmt.Fprintf(&b, "sections (%d):\n", len(img.sections))
	for _, s := range img.sections {
		fmt.Fprintf(&b, "  [0x%08x-0x%08x] %-8s %d bytes\n", s.First, s.Last, s.Type, s.Len())
	}

	fmt.Fprintf(&b, "headers (%d):\n", len(img.headers))
	for i, h := range img.headers {
		entry := "none"
		if h.Entry != format.NoAddress {
			entry = fmt.Sprintf("0x%08x", h.Entry)
		}
		fmt.Fprintf(&b, "  [%d] [0x%08x-0x%08x] entry=%s\n", i, h.MinAddr, h.MaxAddr, entry)
	}

	if img.hasEntry {
		fmt.Fprintf(&b, "entry: 0x%08x (explicit)\n", img.entry)
	} else {
		fmt.Fprintf(&b, "entry: (from first module header)\n")
	}

	return b.String()
}
