package ico

import (
	"bytes"
	"image"
	"image/png"

	"github.com/pkg/errors"
)

// PNGImage is an entry whose payload is the PNG encoding of a frame.
type PNGImage struct {
	frame image.Image
}

// NewPNGImage returns a PNG encoded entry backed by frame.
func NewPNGImage(frame image.Image) *PNGImage {
	return &PNGImage{frame: frame}
}

func (p *PNGImage) Width() int        { return p.frame.Bounds().Dx() }
func (p *PNGImage) Height() int       { return p.frame.Bounds().Dy() }
func (p *PNGImage) BitsPerPixel() int { return 32 }

// Frame returns the pixels backing the entry.
func (p *PNGImage) Frame() image.Image { return p.frame }

// Data encodes the frame as PNG. Every call encodes the frame again.
func (p *PNGImage) Data() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.frame); err != nil {
		return nil, errors.Wrap(err, "ico: could not encode the png payload")
	}
	return buf.Bytes(), nil
}

// BMPImage is an entry whose payload is the 32 bit device independent bitmap
// encoding of a frame, as stored in classic icons.
type BMPImage struct {
	frame image.Image
}

// NewBMPImage returns a BMP encoded entry backed by frame.
func NewBMPImage(frame image.Image) *BMPImage {
	return &BMPImage{frame: frame}
}

func (b *BMPImage) Width() int        { return b.frame.Bounds().Dx() }
func (b *BMPImage) Height() int       { return b.frame.Bounds().Dy() }
func (b *BMPImage) BitsPerPixel() int { return 32 }

// Frame returns the pixels backing the entry.
func (b *BMPImage) Frame() image.Image { return b.frame }

// Data encodes the frame as an icon bitmap.
func (b *BMPImage) Data() ([]byte, error) {
	return encodeDIB(b.frame)
}

// FromFrames builds a container out of already decoded frames. Every frame is
// offered in both encodings: a *PNGImage immediately followed by a *BMPImage,
// both sharing the same frame, so the result holds twice as many entries as frames.
func FromFrames(frames []image.Image) (*Icon, error) {
	if frames == nil {
		return nil, argumentError("load", "nil frame sequence")
	}

	ic := &Icon{images: make([]ImageSource, 0, 2*len(frames))}
	for i, frame := range frames {
		if frame == nil {
			return nil, argumentError("load", "frame %d is nil", i)
		}
		ic.images = append(ic.images, NewPNGImage(frame), NewBMPImage(frame))
	}
	return ic, nil
}
