/*
Package ico reads and writes Windows icon (.ico) and cursor (.cur) files.

An icon file is a container: a 6 byte header, a directory of 16 byte records, one
per image, followed by the image payloads. Each payload is either a PNG stream or a
device independent bitmap. The package takes care of the container layout, while the
payloads are produced by the ImageSource entries themselves.

The package also provides a command line interface to build icon sets out of
regular images and to inspect existing icon files:

	$ ico --help

Building an icon with two resolutions, each one offered both as PNG and as BMP:

	package main

	import (
		"image"
		"log"

		"github.com/esimov/ico"
	)

	func main() {
		small := image.NewNRGBA(image.Rect(0, 0, 16, 16))
		large := image.NewNRGBA(image.Rect(0, 0, 256, 256))

		icon, err := ico.FromFrames([]image.Image{small, large})
		if err != nil {
			log.Fatal(err)
		}
		if err := icon.Save("app.ico"); err != nil {
			log.Fatalf("Error saving the icon: %v", err)
		}
	}

Importing the package registers the "ico" and "cur" formats with image.Decode,
which returns the largest frame of the file.
*/
package ico
