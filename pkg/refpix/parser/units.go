// Package parser reads spreadsheet containers: drawing anchors, relationship
// indexes and identifier columns.
package parser

import "fmt"

// EMUPerPixel is the number of EMUs (English Metric Units) per pixel at 96 DPI.
// 914400 EMU = 1 inch = 96 pixels.
const EMUPerPixel = 9525

// EMUToPixels converts EMU to pixels at 96 DPI.
func EMUToPixels(emu int64) int {
	return int(emu / EMUPerPixel)
}

// emuPoint is an absolute drawing position.
type emuPoint struct {
	x, y int64
}

func (p emuPoint) String() string {
	return fmt.Sprintf("(%dpx, %dpx)", EMUToPixels(p.x), EMUToPixels(p.y))
}
