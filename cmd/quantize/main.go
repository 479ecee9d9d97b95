package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/wbrown/imgquant"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"gocv.io/x/gocv"
)

func main() {
	inputFile := flag.String("input", "",
		"Path to the input image file (required)")
	flag.StringVar(inputFile, "i", "", "Shorthand for --input")
	outputFile := flag.String("output", "",
		"Path to save the palettized output image (required)")
	flag.StringVar(outputFile, "o", "", "Shorthand for --output")
	algorithmName := flag.String("algorithm", "kmeans",
		"Quantization algorithm: kmeans, mediancut, or octree")
	paletteSize := flag.Int("palette-size", 256,
		"Palette size (valid range: 2-256; must be a power of two for mediancut)")
	flag.IntVar(paletteSize, "p", 256, "Shorthand for --palette-size")
	useDithering := flag.Bool("use-dithering", false,
		"Apply Floyd-Steinberg dithering to the output")
	flag.BoolVar(useDithering, "d", false, "Shorthand for --use-dithering")
	fastNearestColor := flag.Bool("use-median-cut-for-nearest-color", false,
		"For mediancut, reuse its own partition tree for nearest-color lookup "+
			"instead of building a k-d tree (faster, less accurate)")
	flag.BoolVar(fastNearestColor, "m", false, "Shorthand for --use-median-cut-for-nearest-color")
	resizeWidth := flag.Int("resize-width", 0,
		"If non-zero, resize the input to this width before quantizing")
	flag.Parse()

	if *inputFile == "" || *outputFile == "" {
		fmt.Println("Please provide both -input/-i and -output/-o")
		flag.PrintDefaults()
		os.Exit(1)
	}

	algorithm, err := parseAlgorithm(*algorithmName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	opts := quant.Options{
		Algorithm:           algorithm,
		PaletteSize:         *paletteSize,
		UseDithering:        *useDithering,
		UseFastNearestColor: *fastNearestColor,
	}
	if err := opts.Validate(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	mat, err := readImage(*inputFile)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", *inputFile, err)
		os.Exit(1)
	}
	defer mat.Close()

	if *resizeWidth > 0 && mat.Cols() > 0 {
		resized, err := resizeMat(mat, *resizeWidth)
		if err != nil {
			fmt.Printf("Error resizing image: %v\n", err)
			os.Exit(1)
		}
		mat.Close()
		mat = resized
	}

	fmt.Fprintf(os.Stderr, "Input: %s (%dx%d)\n", *inputFile, mat.Cols(), mat.Rows())
	fmt.Fprintf(os.Stderr, "Algorithm: %s\n", *algorithmName)
	fmt.Fprintf(os.Stderr, "Palette size: %d\n", *paletteSize)
	fmt.Fprintf(os.Stderr, "Dithering: %v\n", *useDithering)

	input := matToPixmap(mat)

	progress := func(done, total int) {
		if total == 0 {
			return
		}
		fmt.Fprintf(os.Stderr, "\rprogress: %d/%d", done, total)
	}

	hist := quant.ComputeHistogram(input, progress)
	fmt.Fprintf(os.Stderr, "\n%d unique colors\n", len(hist))

	var palette quant.Palette
	var nearest quant.NearestColorFunc

	switch algorithm {
	case quant.KMeans:
		palette = quant.KMeansQuantizer{PaletteSize: *paletteSize, Progress: progress}.Quantize(hist)
	case quant.MedianCut:
		palette, nearest = quant.MedianCutQuantizer{
			PaletteSize:         *paletteSize,
			UseFastNearestColor: *fastNearestColor,
			Progress:            progress,
		}.Quantize(hist)
	case quant.OctreeAlgorithm:
		palette = quant.OctreeQuantizer{PaletteSize: *paletteSize, Progress: progress}.Quantize(hist)
	}
	fmt.Fprintln(os.Stderr)

	fmt.Fprintln(os.Stderr, "Palette:")
	for i, c := range palette {
		fmt.Fprintf(os.Stderr, "  %3d: (%3d, %3d, %3d)\n", i, c.R, c.G, c.B)
	}

	mapper := quant.NewPaletteMapper(palette, nearest)
	output := quant.ProducePalettizedOutput(input, palette, *useDithering, mapper, progress)
	fmt.Fprintln(os.Stderr)

	if err := writeIndexedImage(output, palette, *outputFile); err != nil {
		fmt.Printf("Error writing %s: %v\n", *outputFile, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Output written to %s\n", *outputFile)
}

func parseAlgorithm(name string) (quant.Algorithm, error) {
	switch strings.ToLower(name) {
	case "kmeans":
		return quant.KMeans, nil
	case "mediancut":
		return quant.MedianCut, nil
	case "octree":
		return quant.OctreeAlgorithm, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q, expected kmeans, mediancut, or octree", name)
	}
}

// resizeMat scales mat to targetWidth (preserving aspect ratio) using
// golang.org/x/image/draw rather than gocv's own resize, converting through
// image.Image and back.
func resizeMat(mat gocv.Mat, targetWidth int) (gocv.Mat, error) {
	src, err := mat.ToImage()
	if err != nil {
		return gocv.Mat{}, err
	}

	bounds := src.Bounds()
	targetHeight := bounds.Dy() * targetWidth / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	return gocv.ImageToMatRGBA(dst)
}

// readImage decodes an input image, preferring gocv's native decoders and
// falling back to golang.org/x/image's bmp/tiff decoders or the pure-Go
// nativewebp decoder for containers gocv's build doesn't cover.
func readImage(path string) (gocv.Mat, error) {
	mat := gocv.IMRead(path, gocv.IMReadColor)
	if !mat.Empty() {
		return mat, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		decoded, decodeErr := bmp.Decode(f)
		if decodeErr != nil {
			return gocv.Mat{}, decodeErr
		}
		return gocv.ImageToMatRGB(decoded)
	case ".tif", ".tiff":
		decoded, decodeErr := tiff.Decode(f)
		if decodeErr != nil {
			return gocv.Mat{}, decodeErr
		}
		return gocv.ImageToMatRGB(decoded)
	case ".webp":
		decoded, decodeErr := nativewebp.Decode(f)
		if decodeErr != nil {
			return gocv.Mat{}, decodeErr
		}
		return gocv.ImageToMatRGB(decoded)
	default:
		return gocv.Mat{}, fmt.Errorf("gocv could not decode %s and no fallback decoder matches its extension", path)
	}
}

// matToPixmap copies a BGR gocv.Mat into a PixmapView. gocv.Mat already
// stores pixels in BGR order, matching the pixmap's documented layout, so
// this is a straight byte copy rather than a channel reshuffle.
func matToPixmap(mat gocv.Mat) quant.PixmapView {
	width, height := mat.Cols(), mat.Rows()
	pm := quant.NewPixmapView(make([]byte, width*height*3), width, height, 3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			vec := mat.GetVecbAt(y, x)
			px := pm.At(x, y)
			px[0], px[1], px[2] = vec[0], vec[1], vec[2]
		}
	}
	return pm
}

// writeIndexedImage expands the single-channel palette-index pixmap back
// into a BGR gocv.Mat via the palette and writes it out with gocv.IMWrite,
// or through nativewebp for a .webp destination.
func writeIndexedImage(indexed quant.PixmapView, palette quant.Palette, path string) error {
	mat := gocv.NewMatWithSize(indexed.Height, indexed.Width, gocv.MatTypeCV8UC3)
	defer mat.Close()

	for y := 0; y < indexed.Height; y++ {
		for x := 0; x < indexed.Width; x++ {
			idx := indexed.At(x, y)[0]
			c := palette[idx]
			mat.SetUCharAt(y, x*3, uint8(c.B))
			mat.SetUCharAt(y, x*3+1, uint8(c.G))
			mat.SetUCharAt(y, x*3+2, uint8(c.R))
		}
	}

	if strings.ToLower(filepath.Ext(path)) == ".webp" {
		img, err := mat.ToImage()
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return nativewebp.Encode(f, img, nil)
	}

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to write image to file: %s", path)
	}
	return nil
}
