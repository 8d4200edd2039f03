package builder

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/zipwith/lc-baremetal/format"
)

// ErrHeadersWontFit is returned by Serialize when a BOOTDATA section's
// range is too small to hold the runtime boot-data block, the header
// table, a minimal memory-map count, and two empty strings.
var ErrHeadersWontFit = errors.New("headers will not fit")

// Serialize resolves the image's entry point and writes the on-disk
// byte representation: magic, version (always 0), entry, then each
// section in ascending address order. RESERVED sections are omitted
// from the output entirely — they exist only to have occupied address
// space during placement, per outsection's handling of RESERVED in
// mimgmake.c.
func (img *Image) Serialize() ([]byte, error) {
	entry, err := img.ResolveEntry()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(format.Magic[:])

	var word [4]byte
	format.PutUint32(word[:], 0) // version, reserved
	buf.Write(word[:])
	format.PutUint32(word[:], uint32(entry))
	buf.Write(word[:])

	for _, sec := range img.sections {
		if sec.Type == format.Reserved {
			continue
		}
		if err := writeSection(&buf, img, sec); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func writeSection(buf *bytes.Buffer, img *Image, sec Section) error {
	hdr := format.SectionHeader{First: sec.First, Last: sec.Last, Prev: 0, Type: sec.Type}
	var raw [format.SectionHeaderSize]byte
	format.PutSectionHeader(raw[:], hdr)
	buf.Write(raw[:])

	switch sec.Type {
	case format.Data:
		want := int(sec.Len())
		if len(sec.Payload) != want {
			return fmt.Errorf("builder: DATA section [0x%x-0x%x] has %d payload bytes, want %d",
				sec.First, sec.Last, len(sec.Payload), want)
		}
		buf.Write(sec.Payload)
	case format.BootData:
		l := len(img.headers)
		if int(sec.Len()) < format.BootDataMinLen(l) {
			return fmt.Errorf("%w in [0x%x-0x%x]: at least 0x%x bytes required",
				ErrHeadersWontFit, sec.First, sec.Last, format.BootDataMinLen(l))
		}
		var word [4]byte
		format.PutUint32(word[:], uint32(l))
		buf.Write(word[:])
		for _, h := range img.headers {
			var rec [format.ModuleHeaderSize]byte
			format.PutModuleHeader(rec[:], h)
			buf.Write(rec[:])
		}
	case format.Zero:
		// no payload
	}
	return nil
}
