package quant

import "testing"

func makeBGRPixmap(width, height int, fill func(x, y int) Color) PixmapView {
	pm := NewPixmapView(make([]byte, width*height*3), width, height, 3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := fill(x, y)
			px := pm.At(x, y)
			px[0], px[1], px[2] = byte(c.B), byte(c.G), byte(c.R)
		}
	}
	return pm
}

func TestComputeHistogramCounts(t *testing.T) {
	pm := makeBGRPixmap(2, 2, func(x, y int) Color {
		if x == 0 && y == 0 {
			return RGB(10, 20, 30)
		}
		return RGB(1, 2, 3)
	})

	hist := ComputeHistogram(pm, nil)

	if got := hist[RGB(10, 20, 30)]; got != 1 {
		t.Errorf("count for (10,20,30) = %d, want 1", got)
	}
	if got := hist[RGB(1, 2, 3)]; got != 3 {
		t.Errorf("count for (1,2,3) = %d, want 3", got)
	}
	if len(hist) != 2 {
		t.Errorf("len(hist) = %d, want 2", len(hist))
	}
}

func TestComputeHistogramProgress(t *testing.T) {
	pm := makeBGRPixmap(3, 2, func(x, y int) Color { return RGB(uint8(x), uint8(y), 0) })

	var calls int
	var lastDone, lastTotal int
	ComputeHistogram(pm, func(done, total int) {
		calls++
		lastDone, lastTotal = done, total
	})

	if calls != 6 {
		t.Errorf("progress called %d times, want 6", calls)
	}
	if lastDone != 6 || lastTotal != 6 {
		t.Errorf("final progress = (%d, %d), want (6, 6)", lastDone, lastTotal)
	}
}

func TestSortedColorsDeterministicOrder(t *testing.T) {
	hist := Histogram{
		RGB(5, 5, 5): 1,
		RGB(1, 2, 3): 1,
		RGB(1, 2, 2): 1,
	}

	first := sortedColors(hist)
	second := sortedColors(hist)

	if len(first) != len(second) {
		t.Fatalf("sortedColors returned different lengths across calls")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sortedColors order is not deterministic at index %d: %v vs %v", i, first[i], second[i])
		}
	}

	for i := 1; i < len(first); i++ {
		if !first[i-1].Less(first[i]) {
			t.Errorf("sortedColors not ascending at index %d: %v, %v", i, first[i-1], first[i])
		}
	}
}
