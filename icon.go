package ico

// Sizes and type tags of the on-disk layout.
const (
	headerSize = 6
	entrySize  = 16

	// TypeIcon marks an icon file. It is the only type written by Encode.
	TypeIcon = 1
	// TypeCursor marks a cursor file. Cursors are accepted by Decode only.
	TypeCursor = 2

	// MaxImages is the largest number of entries the 16 bit count field can hold.
	MaxImages = 0xffff
)

// ImageSource is implemented by every entry of an Icon.
// Width and Height are expected in the 1..256 range: they are stored modulo 256,
// so a size of 256 ends up as 0 on disk, which readers interpret as 256.
// Data may be expensive to compute; the container calls it at most once per entry
// for every Encode.
type ImageSource interface {
	Width() int
	Height() int
	BitsPerPixel() int
	Data() ([]byte, error)
}

// Icon is an ordered collection of images. The order of the images is the order
// of the entries in the file directory, and the order of the frames returned on decoding.
//
// An Icon is not safe for concurrent use: the image sequence must not be
// mutated while Encode is in progress.
type Icon struct {
	images []ImageSource
}

// New returns a container holding the provided images in the given order.
func New(images ...ImageSource) *Icon {
	ic := &Icon{}
	ic.images = append(ic.images, images...)
	return ic
}

// Add appends images at the end of the sequence.
func (ic *Icon) Add(images ...ImageSource) {
	ic.images = append(ic.images, images...)
}

// Insert places img at index i, shifting the following entries.
func (ic *Icon) Insert(i int, img ImageSource) {
	if i < 0 || i > len(ic.images) {
		panic("ico: insert index out of range")
	}
	ic.images = append(ic.images, nil)
	copy(ic.images[i+1:], ic.images[i:])
	ic.images[i] = img
}

// Remove deletes the entry at index i and returns it.
func (ic *Icon) Remove(i int) ImageSource {
	img := ic.images[i]
	copy(ic.images[i:], ic.images[i+1:])
	ic.images[len(ic.images)-1] = nil
	ic.images = ic.images[:len(ic.images)-1]

	return img
}

// At returns the entry at index i.
func (ic *Icon) At(i int) ImageSource {
	return ic.images[i]
}

// Len returns the number of entries.
func (ic *Icon) Len() int {
	return len(ic.images)
}

// Images returns a copy of the entry sequence.
func (ic *Icon) Images() []ImageSource {
	images := make([]ImageSource, len(ic.images))
	copy(images, ic.images)
	return images
}
