package ico

import (
	"io"

	"github.com/pkg/errors"
)

// seekBuffer is an in-memory io.WriteSeeker. Writing past the end grows the
// buffer, filling any gap left by a forward seek with zeros.
type seekBuffer struct {
	buf []byte
	pos int64
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.buf)) {
		b.buf = append(b.buf, make([]byte, end-int64(len(b.buf)))...)
	}
	copy(b.buf[b.pos:end], p)
	b.pos = end

	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("ico: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("ico: negative position")
	}
	b.pos = abs

	return abs, nil
}

// Bytes returns the buffer content.
func (b *seekBuffer) Bytes() []byte {
	return b.buf
}
