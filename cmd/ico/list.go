package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/esimov/ico"
	"github.com/olekukonko/tablewriter"
)

// printDirectory writes the directory of the icon file as a table.
func printDirectory(w io.Writer, icon *ico.Icon) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Size", "BPP", "Format", "Payload", "Hotspot"})

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for i, src := range icon.Images() {
		data, err := src.Data()
		if err != nil {
			return err
		}
		format, hotspot := "-", "-"
		if raw, ok := src.(*ico.RawImage); ok {
			format = raw.Format().String()
			if pt, ok := raw.Hotspot(); ok {
				hotspot = fmt.Sprintf("%d,%d", pt.X, pt.Y)
			}
		}
		table.Append([]string{
			strconv.Itoa(i),
			fmt.Sprintf("%dx%d", src.Width(), src.Height()),
			strconv.Itoa(src.BitsPerPixel()),
			format,
			humanize.Bytes(uint64(len(data))),
			hotspot,
		})
	}
	table.Render()

	return nil
}
