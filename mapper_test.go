package quant

import "testing"

func TestPaletteMapperFindNearestMatchesLinearScan(t *testing.T) {
	palette := Palette{
		RGB(0, 0, 0),
		RGB(100, 0, 0),
		RGB(0, 100, 0),
		RGB(0, 0, 100),
		RGB(255, 255, 255),
	}
	mapper := NewPaletteMapper(palette, nil)

	queries := []Color{
		RGB(10, 10, 10),
		RGB(90, 5, 5),
		RGB(5, 90, 5),
		RGB(200, 200, 200),
	}
	for _, q := range queries {
		want, _ := palette.FindNearestColor(q)
		got := mapper.FindNearest(q)
		if got != want {
			t.Errorf("query %v: mapper found %d, linear scan found %d", q, got, want)
		}
	}
}

func TestPaletteMapperUsesOverride(t *testing.T) {
	palette := Palette{RGB(0, 0, 0), RGB(255, 255, 255)}
	override := func(Color) int { return 1 }
	mapper := NewPaletteMapper(palette, override)

	if got := mapper.FindNearest(RGB(0, 0, 0)); got != 1 {
		t.Errorf("FindNearest = %d, want 1 (from override)", got)
	}
}

func TestProducePalettizedOutputWritesValidIndices(t *testing.T) {
	palette := Palette{RGB(0, 0, 0), RGB(255, 255, 255)}
	mapper := NewPaletteMapper(palette, nil)

	input := makeBGRPixmap(2, 2, func(x, y int) Color {
		if x == 0 {
			return RGB(10, 10, 10)
		}
		return RGB(240, 240, 240)
	})

	output := ProducePalettizedOutput(input, palette, false, mapper, nil)

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			idx := output.At(x, y)[0]
			if int(idx) >= len(palette) {
				t.Errorf("pixel (%d,%d) index %d out of range", x, y, idx)
			}
		}
	}
	if output.At(0, 0)[0] != 0 {
		t.Errorf("dark pixel should map to palette index 0")
	}
	if output.At(1, 0)[0] != 1 {
		t.Errorf("light pixel should map to palette index 1")
	}
}

func TestProducePalettizedOutputDitheringMutatesInput(t *testing.T) {
	palette := Palette{RGB(0, 0, 0), RGB(255, 255, 255)}
	mapper := NewPaletteMapper(palette, nil)

	input := makeBGRPixmap(4, 4, func(x, y int) Color { return RGB(128, 128, 128) })
	inputCopy := make([]byte, len(input.Data))
	copy(inputCopy, input.Data)

	ProducePalettizedOutput(input, palette, true, mapper, nil)

	same := true
	for i := range input.Data {
		if input.Data[i] != inputCopy[i] {
			same = false
			break
		}
	}
	if same {
		t.Errorf("expected dithering to mutate the input buffer via forward error diffusion")
	}
}

func TestDiffuseErrorClampsToByteRange(t *testing.T) {
	input := makeBGRPixmap(2, 2, func(x, y int) Color { return RGB(250, 250, 250) })
	bigError := RGB(255, 255, 255)
	paletteColor := RGB(0, 0, 0)

	diffuseError(input, 0, 0, bigError, paletteColor)

	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			for _, v := range input.At(x, y) {
				if v > 255 {
					t.Fatalf("channel value %d exceeds 255", v)
				}
			}
		}
	}

	// The right (weight 7) and lower (weight 5) neighbors receive enough
	// error to push every channel past 255, so each must be clamped to 255
	// rather than wrapping around.
	for _, p := range [][2]int{{1, 0}, {0, 1}} {
		for i, v := range input.At(p[0], p[1]) {
			if v != 255 {
				t.Errorf("pixel (%d,%d) channel %d = %d, want 255 (clamped)", p[0], p[1], i, v)
			}
		}
	}
}
