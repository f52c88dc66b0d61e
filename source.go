package ico

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/png"

	"github.com/pkg/errors"
)

// Format identifies the encoding of an entry payload.
type Format int

// The payload encodings found inside icon files.
const (
	FormatUnknown Format = iota
	FormatPNG
	FormatBMP
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	default:
		return "unknown"
	}
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// maxFrameDimension bounds the width and height of a payload accepted for decoding.
// The directory can only describe frames up to 256 pixels wide.
const maxFrameDimension = 4096

// sniffFormat detects the payload encoding from its leading bytes.
func sniffFormat(data []byte) Format {
	if bytes.HasPrefix(data, pngSignature) {
		return FormatPNG
	}
	if len(data) >= 4 {
		switch binary.LittleEndian.Uint32(data) {
		case infoHeaderLen, v4InfoHeaderLen, v5InfoHeaderLen:
			return FormatBMP
		}
	}
	return FormatUnknown
}

// payloadBitCount reads the bit depth stored in the payload header itself.
// It returns 0 when the depth cannot be determined.
func payloadBitCount(data []byte, f Format) int {
	switch f {
	case FormatPNG:
		// signature, IHDR length and tag, width, height, bit depth, color type
		if len(data) < 26 {
			return 0
		}
		depth := int(data[24])
		switch data[25] {
		case 0, 3:
			return depth
		case 2:
			return depth * 3
		case 4:
			return depth * 2
		case 6:
			return depth * 4
		}
	case FormatBMP:
		if len(data) < 16 {
			return 0
		}
		return int(binary.LittleEndian.Uint16(data[14:16]))
	}
	return 0
}

// RawImage is an entry exactly as stored in an icon file: the directory metadata
// together with the undecoded payload. Decode produces one RawImage per directory record.
type RawImage struct {
	format     Format
	width      int
	height     int
	bpp        int
	colorCount int
	hotspot    image.Point
	cursor     bool
	offset     int64
	data       []byte
}

// NewRawImage wraps an already encoded payload. The payload is copied and its
// format is detected from the leading bytes.
func NewRawImage(width, height, bitsPerPixel int, data []byte) *RawImage {
	payload := make([]byte, len(data))
	copy(payload, data)

	return &RawImage{
		format: sniffFormat(payload),
		width:  width,
		height: height,
		bpp:    bitsPerPixel,
		data:   payload,
	}
}

// Width returns the width recorded in the directory, 0 read back as 256.
func (r *RawImage) Width() int { return r.width }

// Height returns the height recorded in the directory, 0 read back as 256.
func (r *RawImage) Height() int { return r.height }

// BitsPerPixel returns the bit depth. For cursor entries the directory field is
// occupied by the hotspot, so the depth comes from the payload header.
func (r *RawImage) BitsPerPixel() int { return r.bpp }

// Data returns the payload. The returned slice must not be modified.
func (r *RawImage) Data() ([]byte, error) { return r.data, nil }

// Format returns the detected payload encoding.
func (r *RawImage) Format() Format { return r.format }

// ColorCount returns the palette size recorded in the directory.
func (r *RawImage) ColorCount() int { return r.colorCount }

// Hotspot returns the cursor hotspot. ok is false for entries read from icon files.
func (r *RawImage) Hotspot() (pt image.Point, ok bool) {
	return r.hotspot, r.cursor
}

// Config returns the color model and dimensions of the decoded payload, as
// reported by Image, without decoding the pixels.
func (r *RawImage) Config() (image.Config, error) {
	switch r.format {
	case FormatPNG:
		return pngConfig(r.data, r.offset)
	case FormatBMP:
		return dibConfig(r.data, r.offset)
	default:
		return image.Config{}, formatError(r.offset, "unknown payload encoding")
	}
}

// Image decodes the payload into pixels.
func (r *RawImage) Image() (image.Image, error) {
	switch r.format {
	case FormatPNG:
		if _, err := pngConfig(r.data, r.offset); err != nil {
			return nil, err
		}
		img, err := png.Decode(bytes.NewReader(r.data))
		if err != nil {
			return nil, errors.Wrap(err, "ico: could not decode the png payload")
		}
		return img, nil
	case FormatBMP:
		return decodeDIB(r.data, r.offset)
	default:
		return nil, formatError(r.offset, "unknown payload encoding")
	}
}

// pngConfig reads the PNG header and rejects frames too large to be icon entries.
func pngConfig(data []byte, offset int64) (image.Config, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, errors.Wrap(err, "ico: could not decode the png payload")
	}
	if cfg.Width > maxFrameDimension || cfg.Height > maxFrameDimension {
		return image.Config{}, formatError(offset+16, "png frame of %dx%d pixels is too large", cfg.Width, cfg.Height)
	}
	return cfg, nil
}
