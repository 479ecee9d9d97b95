package quant

// fsOffset is one of the four forward neighbors Floyd-Steinberg diffuses
// quantization error into: right, lower-left, below, lower-right.
type fsOffset struct {
	dx, dy int
	weight int
}

var floydSteinbergOffsets = [4]fsOffset{
	{dx: +1, dy: 0, weight: 7},
	{dx: -1, dy: +1, weight: 3},
	{dx: 0, dy: +1, weight: 5},
	{dx: +1, dy: +1, weight: 1},
}

const floydSteinbergTotalWeight = 16

// chromaWeights are applied positionally to the three channel bytes of a
// pixel (index 0, 1, 2 of the pixmap's per-pixel slice) against the
// correspondingly-indexed component of the quantization error Color (R, G,
// B) — the same positional pairing palettized_output.cpp uses, carried over
// unchanged even though the pixmap's channel order (BGR) and the Color's
// component order (RGB) don't line up. Reproducing that pairing exactly is
// what keeps dithering output bit-identical to the reference.
var chromaWeights = [3]int64{299, 587, 114}

// PaletteMapper resolves arbitrary colors to the index of their nearest
// palette entry, by default via a k-d tree built over the palette itself;
// a quantizer (median-cut, in fast mode) may substitute its own lookup.
type PaletteMapper struct {
	palette  Palette
	tree     *KDTree[int]
	override NearestColorFunc
}

// NewPaletteMapper builds the default k-d tree over palette, splitting on
// channel (level mod 3) the way the reference's palette_kd_tree comparator
// does. If override is non-nil it is used instead of the tree.
func NewPaletteMapper(palette Palette, override NearestColorFunc) *PaletteMapper {
	m := &PaletteMapper{palette: palette, override: override}
	if override != nil {
		return m
	}

	indices := make([]int, len(palette))
	for i := range indices {
		indices[i] = i
	}
	less := func(a, b int, level int) bool {
		dim := level % 3
		return palette[a].component(dim) < palette[b].component(dim)
	}
	m.tree = BuildKDTree(indices, less)
	return m
}

// FindNearest resolves query to a palette index.
func (m *PaletteMapper) FindNearest(query Color) int {
	if m.override != nil {
		return m.override(query)
	}

	distFn := func(idx int, q Color) int64 {
		return colorDistance(m.palette[idx], q)
	}
	planeDistFn := func(idx int, q Color, level int) int64 {
		dim := level % 3
		paletteVal := m.palette[idx].component(dim)
		queryVal := q.component(dim)

		var color1, color2 Color
		color1 = setComponent(color1, dim, paletteVal)
		color2 = setComponent(color2, dim, queryVal)

		sign := int64(1)
		if queryVal < paletteVal {
			sign = -1
		}
		return colorDistance(color1, color2) * sign
	}

	idx, _, ok := FindNearest(m.tree, query, distFn, planeDistFn)
	if !ok {
		return 0
	}
	return idx
}

func setComponent(c Color, dim int, v int32) Color {
	switch dim {
	case 0:
		c.R = v
	case 1:
		c.G = v
	default:
		c.B = v
	}
	return c
}

// ProducePalettizedOutput maps every pixel of input to its nearest palette
// index, writing a single-channel index pixmap. When useDithering is set,
// the per-pixel quantization error is diffused forward into input's
// still-unprocessed pixels (Floyd-Steinberg), mutating input in place as
// the scan proceeds — grounded on produce_palettized_output.
func ProducePalettizedOutput(input PixmapView, palette Palette, useDithering bool, mapper *PaletteMapper, progress ProgressFunc) PixmapView {
	output := NewIndexPixmap(input.Width, input.Height)
	total := input.Width * input.Height
	done := 0

	for y := 0; y < input.Height; y++ {
		for x := 0; x < input.Width; x++ {
			px := input.At(x, y)
			color := Color{int32(px[2]), int32(px[1]), int32(px[0])}

			nearestIndex := mapper.FindNearest(color)
			output.SetChannel(x, y, 0, uint8(nearestIndex))

			if useDithering {
				diffuseError(input, x, y, color, palette[nearestIndex])
			}

			done++
			if progress != nil {
				progress(done, total)
			}
		}
	}

	return output
}

func diffuseError(input PixmapView, x, y int, pixelColor, paletteColor Color) {
	errColor := pixelColor.sub(paletteColor)
	errByComponent := [3]int64{int64(errColor.R), int64(errColor.G), int64(errColor.B)}

	for _, off := range floydSteinbergOffsets {
		if off.dx < 0 && x == 0 {
			continue
		}
		if off.dx > 0 && x == input.Width-1 {
			continue
		}
		if off.dy < 0 && y == 0 {
			continue
		}
		if off.dy > 0 && y == input.Height-1 {
			continue
		}

		nx, ny := x+off.dx, y+off.dy
		px := input.At(nx, ny)
		for i := 0; i < 3; i++ {
			adjusted := int64(px[i]) + errByComponent[i]*int64(off.weight)*chromaWeights[i]/floydSteinbergTotalWeight/1000
			if adjusted < 0 {
				adjusted = 0
			}
			if adjusted > 255 {
				adjusted = 255
			}
			px[i] = uint8(adjusted)
		}
	}
}
