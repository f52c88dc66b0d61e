package ico

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"
	"os"

	"github.com/pkg/errors"
)

func init() {
	image.RegisterFormat("ico", "\x00\x00\x01\x00", decodeLargest, DecodeConfig)
	image.RegisterFormat("cur", "\x00\x00\x02\x00", decodeLargest, DecodeConfig)
}

// Decode parses an icon or cursor file and returns its entries as *RawImage values,
// in directory order. The stream is read until EOF. Any structural inconsistency
// is reported as a *FormatError and no container is returned.
func Decode(r io.Reader) (*Icon, error) {
	if r == nil {
		return nil, argumentError("decode", "nil reader")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "ico: could not read the icon file")
	}
	return DecodeBytes(data)
}

// DecodeBytes is like Decode but parses an in-memory file. The returned entries
// own copies of their payloads, data can be reused afterwards.
func DecodeBytes(data []byte) (*Icon, error) {
	if data == nil {
		return nil, argumentError("decode", "nil buffer")
	}
	hdr, entries, err := readDirectory(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	ic := &Icon{images: make([]ImageSource, 0, len(entries))}
	for i, e := range entries {
		end := uint64(e.Offset) + uint64(e.Size)
		if end > uint64(len(data)) {
			return nil, formatError(int64(headerSize+i*entrySize+8),
				"image %d spans bytes %d..%d beyond the end of the file (%d bytes)",
				i, e.Offset, end, len(data))
		}
		payload := make([]byte, e.Size)
		copy(payload, data[e.Offset:end])

		img := &RawImage{
			format:     sniffFormat(payload),
			width:      dimension(e.Width),
			height:     dimension(e.Height),
			bpp:        int(e.BitCount),
			colorCount: int(e.ColorCount),
			offset:     int64(e.Offset),
			data:       payload,
		}
		if hdr.Type == TypeCursor {
			img.cursor = true
			img.hotspot = image.Pt(int(e.Planes), int(e.BitCount))
			img.bpp = payloadBitCount(payload, img.format)
		}
		ic.images = append(ic.images, img)
	}

	return ic, nil
}

// Load decodes the icon file found at path. The file is closed on every exit path.
func Load(path string) (*Icon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "ico: could not open the icon file")
	}
	defer f.Close()

	return Decode(f)
}

// DecodeFrames parses an icon file and decodes the payload of every entry,
// returning the frames in directory order.
func DecodeFrames(r io.Reader) ([]image.Image, error) {
	ic, err := Decode(r)
	if err != nil {
		return nil, err
	}

	frames := make([]image.Image, 0, ic.Len())
	for i, src := range ic.images {
		img, err := src.(*RawImage).Image()
		if err != nil {
			return nil, errors.Wrapf(err, "ico: image %d", i)
		}
		frames = append(frames, img)
	}
	return frames, nil
}

// DecodeConfig returns the color model and dimensions of the frame image.Decode
// would return for the file. Only the header of the chosen payload is decoded.
func DecodeConfig(r io.Reader) (image.Config, error) {
	raw, err := decodeLargestEntry(r)
	if err != nil {
		return image.Config{}, err
	}
	return raw.Config()
}

// decodeLargest backs image.Decode: it returns the largest frame of the file.
func decodeLargest(r io.Reader) (image.Image, error) {
	raw, err := decodeLargestEntry(r)
	if err != nil {
		return nil, err
	}
	return raw.Image()
}

// decodeLargestEntry parses the file and returns the entry with the biggest area,
// preferring the deeper one on ties.
func decodeLargestEntry(r io.Reader) (*RawImage, error) {
	ic, err := Decode(r)
	if err != nil {
		return nil, err
	}
	i := largest(ic.images)
	if i < 0 {
		return nil, formatError(4, "no images")
	}
	return ic.images[i].(*RawImage), nil
}

// readDirectory reads and validates the file header and the directory records.
func readDirectory(r io.Reader) (iconDir, []iconDirEntry, error) {
	var hdr iconDir
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return hdr, nil, formatError(0, "truncated header: %v", err)
	}
	if hdr.Reserved != 0 {
		return hdr, nil, formatError(0, "reserved field is %d, expected 0", hdr.Reserved)
	}
	if hdr.Type != TypeIcon && hdr.Type != TypeCursor {
		return hdr, nil, formatError(2, "unknown image type %d", hdr.Type)
	}

	entries := make([]iconDirEntry, hdr.Count)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		return hdr, nil, formatError(headerSize, "directory of %d entries is truncated: %v", hdr.Count, err)
	}
	return hdr, entries, nil
}

// largest returns the index of the entry with the biggest area, the highest bit
// depth winning ties, or -1 when there are no entries.
func largest(images []ImageSource) int {
	best := -1
	var bestArea, bestDepth int
	for i, img := range images {
		area, depth := img.Width()*img.Height(), img.BitsPerPixel()
		if best < 0 || area > bestArea || (area == bestArea && depth > bestDepth) {
			best, bestArea, bestDepth = i, area, depth
		}
	}
	return best
}

// dimension converts a directory size byte, where 0 stands for 256.
func dimension(b uint8) int {
	if b == 0 {
		return 256
	}
	return int(b)
}
