package quant

import (
	"errors"
	"fmt"
)

// Algorithm names the quantization method to apply.
type Algorithm int

const (
	KMeans Algorithm = iota
	MedianCut
	OctreeAlgorithm
)

// Options holds the validated, algorithm-independent settings the driver
// assembles from its flags before dispatching to a quantizer.
type Options struct {
	Algorithm           Algorithm
	PaletteSize         int
	UseDithering        bool
	UseFastNearestColor bool
}

var (
	errPaletteSizeRange   = errors.New("palette size must be between 2 and 256")
	errPaletteSizeNotPow2 = errors.New("palette size must be a power of two for median-cut")
)

// Validate checks a palette size and, for median-cut, that it is a power of
// two — matching the range and power-of-two checks setup_color_quantization
// performs before running.
func (o Options) Validate() error {
	if o.PaletteSize < 2 || o.PaletteSize > 256 {
		return fmt.Errorf("invalid palette size %d: %w", o.PaletteSize, errPaletteSizeRange)
	}
	if o.Algorithm == MedianCut && o.PaletteSize&(o.PaletteSize-1) != 0 {
		return fmt.Errorf("invalid palette size %d: %w", o.PaletteSize, errPaletteSizeNotPow2)
	}
	return nil
}
