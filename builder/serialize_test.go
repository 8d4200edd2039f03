package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zipwith/lc-baremetal/builder"
	"github.com/zipwith/lc-baremetal/format"
)

func TestSerializeRejectsNoEntry(t *testing.T) {
	img := builder.NewImage()
	require.NoError(t, img.Insert(builder.Section{First: 0, Last: 0xFF, Type: format.Zero}))

	_, err := img.Serialize()
	assert.ErrorIs(t, err, builder.ErrNoEntry)
}

func TestSerializeHeaderLayout(t *testing.T) {
	img := builder.NewImage()
	payload := make([]byte, 16)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, img.Insert(builder.Section{First: 0x1000, Last: 0x100F, Type: format.Data, Payload: payload}))
	img.AddHeader(0x1000, 0x100F, 0x1000)

	out, err := img.Serialize()
	require.NoError(t, err)

	require.True(t, len(out) >= format.HeaderSize)
	assert.Equal(t, format.Magic[:], out[0:4])
	assert.Equal(t, uint32(0), format.Uint32(out[4:8]))
	assert.Equal(t, uint32(0x1000), format.Uint32(out[8:12]))

	hdr := format.SectionHeaderAt(out[format.HeaderSize:])
	assert.Equal(t, format.Address(0x1000), hdr.First)
	assert.Equal(t, format.Address(0x100F), hdr.Last)
	assert.Equal(t, format.Data, hdr.Type)

	gotPayload := out[format.HeaderSize+format.SectionHeaderSize:]
	assert.Equal(t, payload, gotPayload[:len(payload)])
}

func TestSerializeOmitsReservedSections(t *testing.T) {
	img := builder.NewImage()
	payload := make([]byte, 4)
	require.NoError(t, img.Insert(builder.Section{First: 0, Last: 0xFFF, Type: format.Reserved}))
	require.NoError(t, img.Insert(builder.Section{First: 0x1000, Last: 0x1003, Type: format.Data, Payload: payload}))
	img.AddHeader(0x1000, 0x1003, 0x1000)

	out, err := img.Serialize()
	require.NoError(t, err)

	// Exactly one section header should appear: magic+version+entry,
	// then one SectionHeader, then the 4-byte payload.
	want := format.HeaderSize + format.SectionHeaderSize + 4
	assert.Equal(t, want, len(out))
}

func TestSerializeDataLengthMismatch(t *testing.T) {
	img := builder.NewImage()
	require.NoError(t, img.Insert(builder.Section{First: 0, Last: 0xF, Type: format.Data, Payload: []byte{1, 2, 3}}))
	img.AddHeader(0, 0xF, 0)

	_, err := img.Serialize()
	assert.Error(t, err)
}

func TestSerializeBootDataTooSmall(t *testing.T) {
	img := builder.NewImage()
	payload := make([]byte, 4)
	require.NoError(t, img.Insert(builder.Section{First: 0x1000, Last: 0x1003, Type: format.Data, Payload: payload}))
	img.AddHeader(0x1000, 0x1003, 0x1000)
	require.NoError(t, img.Insert(builder.Section{First: 0x2000, Last: 0x2003, Type: format.BootData}))

	_, err := img.Serialize()
	assert.ErrorIs(t, err, builder.ErrHeadersWontFit)
}

func TestSerializeBootDataHeaderCount(t *testing.T) {
	img := builder.NewImage()
	payload := make([]byte, 4)
	require.NoError(t, img.Insert(builder.Section{First: 0x1000, Last: 0x1003, Type: format.Data, Payload: payload}))
	img.AddHeader(0x1000, 0x1003, 0x1000)

	bdLen := format.BootDataMinLen(1)
	require.NoError(t, img.Insert(builder.Section{
		First: 0x2000,
		Last:  format.Address(0x2000 + bdLen - 1),
		Type:  format.BootData,
	}))

	out, err := img.Serialize()
	require.NoError(t, err)

	bdOff := format.HeaderSize + format.SectionHeaderSize + 4 /* DATA payload */ + format.SectionHeaderSize
	count := format.Uint32(out[bdOff:])
	assert.Equal(t, uint32(1), count)

	rec := format.ModuleHeaderAt(out[bdOff+4:])
	assert.Equal(t, format.Address(0x1000), rec.MinAddr)
	assert.Equal(t, format.Address(0x1003), rec.MaxAddr)
}
