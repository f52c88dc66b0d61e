package ico

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
)

// iconDir is the file header.
type iconDir struct {
	Reserved uint16 // must be 0
	Type     uint16 // 1 for icons, 2 for cursors
	Count    uint16
}

// iconDirEntry is a directory record. For cursors Planes and BitCount
// hold the hotspot coordinates.
type iconDirEntry struct {
	Width      uint8 // 0 means 256
	Height     uint8 // 0 means 256
	ColorCount uint8 // 0, no palette
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	Size       uint32 // payload length in bytes
	Offset     uint32 // absolute, from the file start
}

// Encode writes the icon file to w.
//
// The layout is resolved in two passes: the header and the directory are written
// first with zeroed size and offset fields, then every payload is requested once,
// its directory record is patched and the payload is appended right after the
// previous one. For this reason w must also implement io.Seeker; offsets are
// relative to the position of w when Encode is called. w is not closed.
func (ic *Icon) Encode(w io.Writer) error {
	if w == nil {
		return argumentError("encode", "nil writer")
	}
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return argumentError("encode", "writer of type %T does not support seeking", w)
	}
	// Probe the seek capability: an *os.File bound to a pipe implements io.Seeker but fails on use.
	start, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return argumentError("encode", "writer is not seekable: %v", err)
	}
	if len(ic.images) > MaxImages {
		return argumentError("encode", "%d images exceed the limit of %d", len(ic.images), MaxImages)
	}

	hdr := iconDir{Type: TypeIcon, Count: uint16(len(ic.images))}
	if err := binary.Write(ws, binary.LittleEndian, hdr); err != nil {
		return errors.Wrap(err, "ico: could not write the file header")
	}

	// Positions of the size and offset placeholders of every directory record.
	placeholders := make([]int64, len(ic.images))
	pos := start + headerSize
	for i, img := range ic.images {
		entry := iconDirEntry{
			Width:    uint8(img.Width()),
			Height:   uint8(img.Height()),
			Planes:   1,
			BitCount: uint16(img.BitsPerPixel()),
		}
		if err := binary.Write(ws, binary.LittleEndian, entry); err != nil {
			return errors.Wrapf(err, "ico: could not write the directory entry %d", i)
		}
		placeholders[i] = pos + 8
		pos += entrySize
	}

	for i, img := range ic.images {
		data, err := img.Data()
		if err != nil {
			return errors.Wrapf(err, "ico: could not encode image %d", i)
		}
		offset := pos - start
		if uint64(offset)+uint64(len(data)) > math.MaxUint32 {
			return argumentError("encode", "image %d does not fit in a 32 bit offset", i)
		}

		if _, err := ws.Seek(placeholders[i], io.SeekStart); err != nil {
			return errors.Wrapf(err, "ico: could not seek to the directory entry %d", i)
		}
		if err := binary.Write(ws, binary.LittleEndian, [2]uint32{uint32(len(data)), uint32(offset)}); err != nil {
			return errors.Wrapf(err, "ico: could not patch the directory entry %d", i)
		}
		if _, err := ws.Seek(pos, io.SeekStart); err != nil {
			return errors.Wrapf(err, "ico: could not seek to the payload of image %d", i)
		}
		if _, err := ws.Write(data); err != nil {
			return errors.Wrapf(err, "ico: could not write the payload of image %d", i)
		}
		pos += int64(len(data))
	}

	return nil
}

// EncodeBytes returns the encoded icon file.
func (ic *Icon) EncodeBytes() ([]byte, error) {
	buf := &seekBuffer{}
	if err := ic.Encode(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save encodes the icon into the file at path, creating or truncating it.
// The file is closed on every exit path.
func (ic *Icon) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "ico: could not create the icon file")
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "ico: could not close the icon file")
		}
	}()

	return ic.Encode(f)
}
