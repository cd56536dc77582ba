package labels

import "fmt"

// Colour is an RGB triple
type Colour struct {
	R, G, B uint8
}

// String renders the colour the way the viewer expects it, e.g. "102,194,165"
func (c Colour) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// SignedInteger packs the colour with full opacity into the signed 32-bit
// RGBA integer used for shape stroke colours.
func (c Colour) SignedInteger() int32 {
	packed := uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | 0xff
	return int32(packed)
}

// palette holds the display colours. Index 0 belongs to the off label.
var palette = [...]Colour{
	{0, 0, 0},
	{102, 194, 165},
	{252, 141, 98},
	{141, 160, 203},
	{231, 138, 195},
	{166, 216, 84},
	{255, 217, 47},
	{229, 196, 148},
	{179, 179, 179},
	{27, 158, 119},
	{217, 95, 2},
	{117, 112, 179},
	{231, 41, 138},
	{102, 166, 30},
	{230, 171, 2},
	{166, 118, 29},
	{228, 26, 28},
	{55, 126, 184},
	{77, 175, 74},
	{152, 78, 163},
}

// PaletteSize is the number of entries in the fixed palette
const PaletteSize = len(palette)

// paletteColour returns the colour for the primary label at position n
// (1-based, off label excluded). Positions past the end wrap around but
// never land on the off colour.
func paletteColour(n int) Colour {
	if n <= 0 {
		return palette[0]
	}
	return palette[1+(n-1)%(PaletteSize-1)]
}
