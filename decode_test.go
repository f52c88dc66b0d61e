package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
)

func encodeFakes(t *testing.T, fakes ...*fakeImage) []byte {
	t.Helper()

	ic := New()
	for _, f := range fakes {
		ic.Add(f)
	}
	data, err := ic.EncodeBytes()
	if err != nil {
		t.Fatalf("could not encode the icon: %v", err)
	}
	return data
}

func TestDecode_RoundTrip(t *testing.T) {
	assert := assert.New(t)

	fakes := []*fakeImage{
		{w: 16, h: 16, bpp: 32, payload: []byte("sixteen")},
		{w: 1, h: 255, bpp: 8, payload: []byte{}},
		{w: 256, h: 256, bpp: 24, payload: bytes.Repeat([]byte{0xab}, 1000)},
		{w: 32, h: 32, bpp: 4, payload: []byte("thirty-two")},
	}
	ic, err := Decode(bytes.NewReader(encodeFakes(t, fakes...)))
	assert.NoError(err)
	assert.Equal(len(fakes), ic.Len())

	for i, f := range fakes {
		img := ic.At(i)
		assert.Equal(f.w, img.Width(), "width of entry %d", i)
		assert.Equal(f.h, img.Height(), "height of entry %d", i)
		assert.Equal(f.bpp, img.BitsPerPixel(), "bpp of entry %d", i)

		data, err := img.Data()
		assert.NoError(err)
		assert.Equal(f.payload, data, "payload of entry %d", i)

		_, isCursor := img.(*RawImage).Hotspot()
		assert.False(isCursor)
	}
}

func TestDecode_PayloadsShouldNotAliasInput(t *testing.T) {
	data := encodeFakes(t, newFake(16, 16, "payload"))

	ic, err := DecodeBytes(data)
	assert.NoError(t, err)
	for i := range data {
		data[i] = 0
	}

	payload, _ := ic.At(0).Data()
	assert.Equal(t, "payload", string(payload))
}

func TestDecode_TruncatedPayloadShouldFail(t *testing.T) {
	data := encodeFakes(t, newFake(16, 16, "first"), newFake(32, 32, "second"))

	for n := len(data) - 1; n >= headerSize+2*entrySize; n-- {
		ic, err := DecodeBytes(data[:n])
		assert.Nil(t, ic)
		assert.True(t, errors.Is(err, ErrFormat), "truncated to %d bytes: %v", n, err)
	}
}

func TestDecode_TruncatedDirectoryShouldFail(t *testing.T) {
	data := encodeFakes(t, newFake(16, 16, "first"), newFake(32, 32, "second"))

	for n := headerSize; n < headerSize+2*entrySize; n++ {
		_, err := DecodeBytes(data[:n])
		assert.True(t, errors.Is(err, ErrFormat), "truncated to %d bytes", n)
	}
}

func TestDecode_TruncatedHeaderShouldFail(t *testing.T) {
	for _, data := range [][]byte{{}, {0}, {0, 0, 1, 0, 0}} {
		_, err := DecodeBytes(data)

		var fmtErr *FormatError
		assert.True(t, errors.As(err, &fmtErr))
	}
}

func TestDecode_InvalidHeaderShouldFail(t *testing.T) {
	testCases := []struct {
		name   string
		header []byte
		offset int64
	}{
		{name: "reserved", header: []byte{1, 0, 1, 0, 0, 0}, offset: 0},
		{name: "type zero", header: []byte{0, 0, 0, 0, 0, 0}, offset: 2},
		{name: "type three", header: []byte{0, 0, 3, 0, 0, 0}, offset: 2},
		{name: "png", header: []byte("\x89PNG\r\n\x1a\n"), offset: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeBytes(tc.header)

			var fmtErr *FormatError
			if assert.True(t, errors.As(err, &fmtErr)) {
				assert.Equal(t, tc.offset, fmtErr.Offset)
			}
		})
	}
}

func TestDecode_OffsetOverflowShouldFail(t *testing.T) {
	data := encodeFakes(t, newFake(16, 16, "payload"))
	binary.LittleEndian.PutUint32(data[headerSize+12:], 0xfffffff0)

	_, err := DecodeBytes(data)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestDecode_NilSourceShouldFail(t *testing.T) {
	_, err := Decode(nil)
	assert.True(t, errors.Is(err, ErrArgument))

	_, err = DecodeBytes(nil)
	assert.True(t, errors.Is(err, ErrArgument))
}

func TestDecode_CursorShouldKeepHotspot(t *testing.T) {
	assert := assert.New(t)

	frame := makeFrame(32, 32)
	payload, err := NewPNGImage(frame).Data()
	assert.NoError(err)

	data := encodeFakes(t, &fakeImage{w: 32, h: 32, payload: payload})
	binary.LittleEndian.PutUint16(data[2:], TypeCursor)
	binary.LittleEndian.PutUint16(data[headerSize+4:], 5)  // hotspot x
	binary.LittleEndian.PutUint16(data[headerSize+6:], 12) // hotspot y

	ic, err := DecodeBytes(data)
	assert.NoError(err)

	raw := ic.At(0).(*RawImage)
	pt, ok := raw.Hotspot()
	assert.True(ok)
	assert.Equal(image.Pt(5, 12), pt)
	assert.Equal(FormatPNG, raw.Format())
	assert.Equal(32, raw.BitsPerPixel())
}

func TestDecode_ShouldRegisterImageFormat(t *testing.T) {
	assert := assert.New(t)

	ic := New(NewPNGImage(makeFrame(16, 16)), NewBMPImage(makeFrame(48, 48)), NewPNGImage(makeFrame(32, 32)))
	data, err := ic.EncodeBytes()
	assert.NoError(err)

	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	assert.NoError(err)
	assert.Equal("ico", name)
	assert.Equal(48, cfg.Width)
	assert.Equal(48, cfg.Height)

	img, name, err := image.Decode(bytes.NewReader(data))
	assert.NoError(err)
	assert.Equal("ico", name)
	assert.Equal(image.Rect(0, 0, 48, 48), img.Bounds())
}

func TestDecode_EmptyIconHasNoLargestFrame(t *testing.T) {
	data, err := New().EncodeBytes()
	assert.NoError(t, err)

	_, _, err = image.Decode(bytes.NewReader(data))
	assert.True(t, errors.Is(err, ErrFormat))

	_, err = DecodeConfig(bytes.NewReader(data))
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestDecode_DecodeFramesShouldFollowDirectoryOrder(t *testing.T) {
	assert := assert.New(t)

	frames := []image.Image{makeFrame(16, 16), makeFrame(24, 24)}
	ic, err := FromFrames(frames)
	assert.NoError(err)
	data, err := ic.EncodeBytes()
	assert.NoError(err)

	decoded, err := DecodeFrames(bytes.NewReader(data))
	assert.NoError(err)
	assert.Len(decoded, 4)

	sizes := []int{16, 16, 24, 24}
	for i, img := range decoded {
		assert.Equal(sizes[i], img.Bounds().Dx(), "frame %d", i)
	}
}

func TestDecode_UnknownPayloadShouldFailOnImage(t *testing.T) {
	ic, err := DecodeBytes(encodeFakes(t, newFake(16, 16, "not an image")))
	assert.NoError(t, err)

	raw := ic.At(0).(*RawImage)
	assert.Equal(t, FormatUnknown, raw.Format())

	_, err = raw.Image()
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestDecode_ConfigShouldMatchDecodedFrame(t *testing.T) {
	var gray bytes.Buffer
	if err := png.Encode(&gray, image.NewGray(image.Rect(0, 0, 16, 16))); err != nil {
		t.Fatalf("could not encode the gray frame: %v", err)
	}
	rgba, err := NewPNGImage(makeFrame(16, 16)).Data()
	assert.NoError(t, err)

	testCases := []struct {
		name    string
		entries []ImageSource
		model   color.Model
	}{
		{
			name:    "gray only",
			entries: []ImageSource{NewRawImage(16, 16, 8, gray.Bytes())},
			model:   color.GrayModel,
		},
		{
			name:    "deeper entry last",
			entries: []ImageSource{NewRawImage(16, 16, 8, gray.Bytes()), NewRawImage(16, 16, 32, rgba)},
			model:   color.NRGBAModel,
		},
		{
			name:    "deeper entry first",
			entries: []ImageSource{NewRawImage(16, 16, 32, rgba), NewRawImage(16, 16, 8, gray.Bytes())},
			model:   color.NRGBAModel,
		},
		{
			name:    "bmp",
			entries: []ImageSource{NewBMPImage(makeFrame(16, 16))},
			model:   color.NRGBAModel,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			data, err := New(tc.entries...).EncodeBytes()
			assert.NoError(err)

			cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
			assert.NoError(err)
			img, _, err := image.Decode(bytes.NewReader(data))
			assert.NoError(err)

			assert.True(cfg.ColorModel == tc.model, "config color model")
			assert.True(img.ColorModel() == tc.model, "frame color model")
			assert.Equal(img.Bounds().Dx(), cfg.Width)
			assert.Equal(img.Bounds().Dy(), cfg.Height)
		})
	}
}
