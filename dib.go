package ico

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
)

const (
	fileHeaderLen   = 14
	infoHeaderLen   = 40
	v4InfoHeaderLen = 108
	v5InfoHeaderLen = 124
)

// bitmapInfoHeader is the BITMAPINFOHEADER which opens every BMP payload.
// Inside an icon Height covers both the color (XOR) bitmap and the AND mask.
type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// encodeDIB encodes a frame as a 32 bits per pixel icon bitmap: the info header,
// the BGRA rows stored bottom-up and the 1 bit AND mask, where a set bit marks a
// fully transparent pixel. No palette is written.
func encodeDIB(frame image.Image) ([]byte, error) {
	src := imaging.Clone(frame)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()

	xorSize := w * h * 4
	maskStride := ((w + 31) / 32) * 4
	maskSize := maskStride * h

	buf := bytes.NewBuffer(make([]byte, 0, infoHeaderLen+xorSize+maskSize))
	info := bitmapInfoHeader{
		Size:      infoHeaderLen,
		Width:     int32(w),
		Height:    int32(h * 2),
		Planes:    1,
		BitCount:  32,
		SizeImage: uint32(xorSize + maskSize),
	}
	if err := binary.Write(buf, binary.LittleEndian, info); err != nil {
		return nil, errors.Wrap(err, "ico: could not write the bitmap header")
	}

	row := make([]byte, w*4)
	for y := h - 1; y >= 0; y-- {
		for x := 0; x < w; x++ {
			i := src.PixOffset(x, y)
			row[x*4+0] = src.Pix[i+2]
			row[x*4+1] = src.Pix[i+1]
			row[x*4+2] = src.Pix[i+0]
			row[x*4+3] = src.Pix[i+3]
		}
		buf.Write(row)
	}

	mask := make([]byte, maskStride)
	for y := h - 1; y >= 0; y-- {
		for i := range mask {
			mask[i] = 0
		}
		for x := 0; x < w; x++ {
			if src.Pix[src.PixOffset(x, y)+3] == 0 {
				mask[x/8] |= 0x80 >> uint(x%8)
			}
		}
		buf.Write(mask)
	}

	return buf.Bytes(), nil
}

// dibFile validates the header of a BMP payload taken from an icon and turns the
// payload into a complete bitmap file the bmp package can read. The payload lacks
// the BITMAPFILEHEADER and declares twice its real height, both are fixed up here.
// Dimensions which cannot be backed by the payload length are rejected, so the
// decoder never allocates more than the payload describes. offset is the position
// of the payload in the icon file and is only used for error reporting.
func dibFile(data []byte, offset int64) ([]byte, bitmapInfoHeader, int32, error) {
	var info bitmapInfoHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &info); err != nil {
		return nil, info, 0, formatError(offset, "truncated bitmap header: %v", err)
	}
	if info.Size < infoHeaderLen || int64(info.Size) > int64(len(data)) {
		return nil, info, 0, formatError(offset, "invalid bitmap header size %d", info.Size)
	}
	if info.Width <= 0 || info.Width > maxFrameDimension {
		return nil, info, 0, formatError(offset+4, "invalid bitmap width %d", info.Width)
	}
	height := info.Height / 2
	absHeight := int64(height)
	if absHeight < 0 {
		absHeight = -absHeight
	}
	if absHeight == 0 || absHeight > maxFrameDimension {
		return nil, info, 0, formatError(offset+8, "invalid bitmap height %d", info.Height)
	}
	if info.BitCount == 0 || info.BitCount > 32 {
		return nil, info, 0, formatError(offset+14, "invalid bit count %d", info.BitCount)
	}

	var palette int64
	if info.BitCount <= 8 {
		colors := int64(info.ClrUsed)
		if colors == 0 {
			colors = 1 << info.BitCount
		}
		if colors > 256 {
			return nil, info, 0, formatError(offset+32, "palette of %d colors", colors)
		}
		palette = colors * 4
	}

	avail := int64(len(data)) - int64(info.Size) - palette
	stride := (int64(info.Width)*int64(info.BitCount) + 31) / 32 * 4
	if avail < stride*absHeight {
		return nil, info, 0, formatError(offset,
			"%dx%d pixels at %d bpp do not fit in a payload of %d bytes",
			info.Width, absHeight, info.BitCount, len(data))
	}

	file := make([]byte, fileHeaderLen+len(data))
	file[0], file[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(file[2:], uint32(len(file)))
	binary.LittleEndian.PutUint32(file[10:], uint32(int64(fileHeaderLen)+int64(info.Size)+palette))
	copy(file[fileHeaderLen:], data)
	binary.LittleEndian.PutUint32(file[fileHeaderLen+8:], uint32(height))

	return file, info, height, nil
}

// hasAlphaChannel reports whether the fourth channel of 32 bit bitmaps is kept
// after decoding. The bmp decoder treats it as padding, decodeDIB restores it.
func hasAlphaChannel(info bitmapInfoHeader) bool {
	return info.BitCount == 32 && info.Compression == 0
}

// dibConfig returns the color model and dimensions decodeDIB would produce.
func dibConfig(data []byte, offset int64) (image.Config, error) {
	file, info, height, err := dibFile(data, offset)
	if err != nil {
		return image.Config{}, err
	}
	if hasAlphaChannel(info) {
		h := int(height)
		if h < 0 {
			h = -h
		}
		return image.Config{ColorModel: color.NRGBAModel, Width: int(info.Width), Height: h}, nil
	}
	cfg, err := bmp.DecodeConfig(bytes.NewReader(file))
	if err != nil {
		return image.Config{}, errors.Wrap(err, "ico: could not decode the bmp payload")
	}
	return cfg, nil
}

// decodeDIB decodes a BMP payload taken from an icon. The decoder treats the
// fourth channel of 32 bit bitmaps as padding, hence the alpha is copied back
// from the raw rows afterwards.
func decodeDIB(data []byte, offset int64) (image.Image, error) {
	file, info, height, err := dibFile(data, offset)
	if err != nil {
		return nil, err
	}

	img, err := bmp.Decode(bytes.NewReader(file))
	if err != nil {
		return nil, errors.Wrap(err, "ico: could not decode the bmp payload")
	}
	if !hasAlphaChannel(info) {
		return img, nil
	}

	dst := imaging.Clone(img)
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	pix := data[info.Size:]
	if len(pix) < w*h*4 {
		return dst, nil
	}
	hasAlpha := false
	for i := 3; i < w*h*4; i += 4 {
		if pix[i] != 0 {
			hasAlpha = true
			break
		}
	}

	// Bitmaps with an empty alpha channel rely on the AND mask for transparency.
	mask := pix[w*h*4:]
	maskStride := ((w + 31) / 32) * 4
	for y := 0; y < h; y++ {
		srcY := h - 1 - y
		if height < 0 {
			srcY = y
		}
		for x := 0; x < w; x++ {
			i := dst.PixOffset(x, y) + 3
			switch {
			case hasAlpha:
				dst.Pix[i] = pix[(srcY*w+x)*4+3]
			case len(mask) >= maskStride*h:
				if mask[srcY*maskStride+x/8]&(0x80>>uint(x%8)) != 0 {
					dst.Pix[i] = 0
				}
			}
		}
	}

	return dst, nil
}
