package quant

import "sort"

// NearestColorFunc maps a color to a palette index by whatever method a
// quantizer chooses to expose instead of the output mapper's default
// k-d-tree lookup.
type NearestColorFunc func(Color) int

// medianCutEntry tracks one histogram color through the recursive cut, plus
// the split annotation recorded at whichever node this entry happened to
// land on as the median — used only by the fast nearest-color descent.
type medianCutEntry struct {
	color          Color
	componentIndex int
	componentValue int32
	paletteIndex   int
}

// MedianCutQuantizer builds a palette by recursively splitting the set of
// unique colors on the component with the widest range, at each step
// dividing at the median so a tree of depth numLevels produces exactly
// 2^numLevels leaves. Grounded on color_quantization_median_cut.cpp.
type MedianCutQuantizer struct {
	PaletteSize int
	// UseFastNearestColor reuses the cut's own partition tree for nearest-
	// color lookup instead of building a separate k-d tree: faster, but
	// less accurate, matching use_median_cut_for_nearest_color.
	UseFastNearestColor bool
	Progress            ProgressFunc
}

// Quantize builds the palette and, if UseFastNearestColor is set, a nearest-
// color function derived from the cut tree itself. When it returns nil, the
// caller should fall back to the default k-d-tree-based lookup (C8).
func (q MedianCutQuantizer) Quantize(hist Histogram) (Palette, NearestColorFunc) {
	colors := sortedColors(hist)
	entries := make([]medianCutEntry, len(colors))
	for i, c := range colors {
		entries[i] = medianCutEntry{color: c}
	}

	numLevels := significantBits(uint(q.PaletteSize)) - 1
	palette := make(Palette, q.PaletteSize)

	paletteIdx := 0
	total := len(entries)
	done := 0
	performMedianCut(palette, &paletteIdx, entries, 0, numLevels, func() {
		done++
		if q.Progress != nil {
			q.Progress(done, total)
		}
	})

	if !q.UseFastNearestColor {
		return palette, nil
	}

	nearest := func(query Color) int {
		return findNearestColorFast(entries, query, 0, numLevels)
	}
	return palette, nearest
}

// significantBits counts the number of bits needed to represent v, i.e. the
// position of its highest set bit plus one (0 has zero significant bits).
func significantBits(v uint) int {
	n := 0
	for v != 0 {
		n++
		v >>= 1
	}
	return n
}

func performMedianCut(palette Palette, paletteIdx *int, entries []medianCutEntry, level, numLevels int, onLeaf func()) {
	if level == numLevels {
		if len(entries) > 0 {
			var sum Color
			for i := range entries {
				sum = sum.add(entries[i].color)
				entries[i].paletteIndex = *paletteIdx
			}
			palette[*paletteIdx] = sum.divScalar(int32(len(entries)))
		}
		// A leaf with no entries (only reachable from an empty histogram,
		// since short ranges are pushed down both children below) leaves
		// its slot at the caller's preallocated black, mirroring the
		// octree quantizer's "fewer leaves survive than P" edge case.
		*paletteIdx++
		onLeaf()
		return
	}

	if len(entries) < 2 {
		// Nothing left to split on. Push the same range down both
		// children so every leaf in the 2^numLevels tree still gets
		// visited and the palette still ends up with exactly P entries.
		performMedianCut(palette, paletteIdx, entries, level+1, numLevels, onLeaf)
		performMedianCut(palette, paletteIdx, entries, level+1, numLevels, onLeaf)
		return
	}

	axis := largestRangeComponent(entries)

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].color.component(axis) < entries[j].color.component(axis)
	})

	median := len(entries) / 2
	componentValue := entries[median].color.component(axis)

	performMedianCut(palette, paletteIdx, entries[:median], level+1, numLevels, onLeaf)
	performMedianCut(palette, paletteIdx, entries[median:], level+1, numLevels, onLeaf)

	entries[median].componentIndex = axis
	entries[median].componentValue = componentValue
}

func largestRangeComponent(entries []medianCutEntry) int {
	minC, maxC := entries[0].color, entries[0].color
	for i := 1; i < len(entries); i++ {
		c := entries[i].color
		if c.R < minC.R {
			minC.R = c.R
		}
		if c.R > maxC.R {
			maxC.R = c.R
		}
		if c.G < minC.G {
			minC.G = c.G
		}
		if c.G > maxC.G {
			maxC.G = c.G
		}
		if c.B < minC.B {
			minC.B = c.B
		}
		if c.B > maxC.B {
			maxC.B = c.B
		}
	}

	rangeR := maxC.R - minC.R
	rangeG := maxC.G - minC.G
	rangeB := maxC.B - minC.B

	axis, largest := 0, rangeR
	if rangeG > largest {
		axis, largest = 1, rangeG
	}
	if rangeB > largest {
		axis = 2
	}
	return axis
}

func findNearestColorFast(entries []medianCutEntry, query Color, level, numLevels int) int {
	if level == numLevels {
		return entries[0].paletteIndex
	}
	median := len(entries) / 2
	split := entries[median]
	if query.component(split.componentIndex) < split.componentValue {
		return findNearestColorFast(entries[:median], query, level+1, numLevels)
	}
	return findNearestColorFast(entries[median:], query, level+1, numLevels)
}
