package main

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/esimov/ico"
	"github.com/esimov/ico/utils"
)

// Payload formats accepted by the -format flag.
const (
	formatPNG  = "png"
	formatBMP  = "bmp"
	formatBoth = "both"
)

// defaultSizes are the resolutions generated when no -sizes flag is provided.
const defaultSizes = "16,32,48,256"

// parseSizes converts a comma separated list of sizes into a sorted, deduplicated
// slice. Every size is clamped to the 1..256 range an icon entry can describe.
func parseSizes(s string) ([]int, error) {
	seen := make(map[int]bool)
	sizes := []int{}
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid icon size %q", field)
		}
		n = utils.Clamp(n, 1, 256)
		if !seen[n] {
			seen[n] = true
			sizes = append(sizes, n)
		}
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no icon size provided")
	}
	sort.Ints(sizes)

	return sizes, nil
}

// validFormat reports whether f is one of the supported payload formats.
func validFormat(f string) bool {
	switch f {
	case formatPNG, formatBMP, formatBoth:
		return true
	}
	return false
}

// squareFrame scales the image to fit a size x size square, centering it over a
// transparent background when its aspect ratio is not 1:1.
func squareFrame(src image.Image, size int) *image.NRGBA {
	b := src.Bounds()
	if b.Dx() == b.Dy() {
		return imaging.Resize(src, size, size, imaging.Lanczos)
	}
	fitted := imaging.Fit(src, size, size, imaging.Lanczos)
	bg := imaging.New(size, size, color.Transparent)

	return imaging.PasteCenter(bg, fitted)
}

// buildIcon generates one frame per size out of the source image and wraps
// the frames into an icon container using the requested payload format.
func buildIcon(src image.Image, sizes []int, format string) (*ico.Icon, error) {
	frames := make([]image.Image, 0, len(sizes))
	for _, size := range sizes {
		frames = append(frames, squareFrame(src, size))
	}

	switch format {
	case formatBoth:
		return ico.FromFrames(frames)
	case formatPNG:
		icon := ico.New()
		for _, frame := range frames {
			icon.Add(ico.NewPNGImage(frame))
		}
		return icon, nil
	case formatBMP:
		icon := ico.New()
		for _, frame := range frames {
			icon.Add(ico.NewBMPImage(frame))
		}
		return icon, nil
	default:
		return nil, fmt.Errorf("unsupported payload format: %s", format)
	}
}

// convert decodes the source image and encodes the icon set into dst.
func convert(src io.Reader, dst io.Writer, sizes []int, format string) error {
	img, err := imaging.Decode(src)
	if err != nil {
		return fmt.Errorf("could not decode the source image: %w", err)
	}
	icon, err := buildIcon(img, sizes, format)
	if err != nil {
		return err
	}

	return icon.Encode(dst)
}

// extract decodes every frame of the icon file and saves them as PNG files
// into the destination directory, named after the source file.
func extract(src io.Reader, name, destDir string) ([]string, error) {
	frames, err := ico.DecodeFrames(src)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create the destination directory: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	paths := make([]string, 0, len(frames))
	for i, frame := range frames {
		b := frame.Bounds()
		path := filepath.Join(destDir, fmt.Sprintf("%s_%02d_%dx%d.png", base, i, b.Dx(), b.Dy()))
		if err := imaging.Save(frame, path); err != nil {
			return nil, fmt.Errorf("unable to save frame %d: %w", i, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
