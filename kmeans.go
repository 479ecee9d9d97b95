package quant

import "sort"

// KMeansQuantizer builds a palette via Celebi-accelerated k-means: Lloyd
// iteration where the per-pixel reassignment step is pruned using the
// triangle inequality over palette-to-palette distances, rather than
// comparing every unique color against every palette entry on every
// iteration. This is grounded directly on
// color_quantization_k_means.cpp's apply_color_quantization.
type KMeansQuantizer struct {
	PaletteSize int
	Progress    ProgressFunc
}

// Quantize builds a PaletteSize-entry palette from hist.
func (q KMeansQuantizer) Quantize(hist Histogram) Palette {
	colors := sortedColors(hist)
	total := 0
	for _, c := range colors {
		total += hist[c]
	}

	weights := make([]float64, len(colors))
	for i, c := range colors {
		weights[i] = float64(hist[c]) / float64(total)
	}

	n := q.PaletteSize
	palette := make(Palette, n)
	for i := 0; i < n; i++ {
		idx := i * len(colors) / n
		palette[i] = colors[idx]
	}

	nearest := make([]int, len(colors))
	for i, c := range colors {
		idx, _ := palette.FindNearestColor(c)
		nearest[i] = idx
	}

	distanceMatrix := make([]int64, n*n)
	permutation := make([]int, n*n)
	sumPalette := make([][3]float64, n)
	sumWeights := make([]float64, n)
	newPalette := make(Palette, n)

	minMaxDistance := int64(-1)

	for iteration := 0; iteration < 100; iteration++ {
		for i := 0; i < n; i++ {
			distanceMatrix[i+i*n] = 0
			for j := i + 1; j < n; j++ {
				d := colorDistance(palette[i], palette[j])
				distanceMatrix[i+j*n] = d
				distanceMatrix[j+i*n] = d
			}
		}

		for i := 0; i < n; i++ {
			row := permutation[i*n : i*n+n]
			for j := 0; j < n; j++ {
				row[j] = j
			}
			base := i * n
			sort.Slice(row, func(a, b int) bool {
				return distanceMatrix[row[a]+base] < distanceMatrix[row[b]+base]
			})
		}

		maxDistance := int64(-1)

		for i, c := range colors {
			paletteIndex := nearest[i]
			minDistance := colorDistance(c, palette[paletteIndex])
			prevDistance := minDistance

			for j := 1; j < n; j++ {
				t := permutation[j+paletteIndex*n]
				if distanceMatrix[t+paletteIndex*n] >= 4*prevDistance {
					break
				}
				d := colorDistance(c, palette[t])
				if d <= minDistance {
					minDistance = d
					nearest[i] = t
				}
			}

			if maxDistance < 0 || minDistance > maxDistance {
				maxDistance = minDistance
			}

			if q.Progress != nil {
				q.Progress(iteration*len(colors)+i+1, 100*len(colors))
			}
		}

		for k := 0; k < n; k++ {
			sumPalette[k] = [3]float64{}
			sumWeights[k] = 0
			newPalette[k] = Color{0, 0, 0}
		}

		for i, c := range colors {
			paletteIndex := nearest[i]
			sumPalette[paletteIndex][0] += float64(c.R) * weights[i]
			sumPalette[paletteIndex][1] += float64(c.G) * weights[i]
			sumPalette[paletteIndex][2] += float64(c.B) * weights[i]
			sumWeights[paletteIndex] += weights[i]
		}

		for k := 0; k < n; k++ {
			if sumWeights[k] == 0 {
				// No pixel was assigned to this entry this round. Rather
				// than divide by zero, leave it where the previous
				// iteration put it.
				newPalette[k] = palette[k]
				continue
			}
			newPalette[k] = Color{
				int32(sumPalette[k][0] / sumWeights[k]),
				int32(sumPalette[k][1] / sumWeights[k]),
				int32(sumPalette[k][2] / sumWeights[k]),
			}
		}

		if minMaxDistance >= 0 {
			if iteration > 30 {
				if maxDistance > minMaxDistance || (minMaxDistance-maxDistance) < 5 {
					// Converged: the previous iteration's palette is kept,
					// this iteration's recomputation is discarded.
					break
				}
			}
			minMaxDistance = maxDistance
		} else {
			minMaxDistance = maxDistance
		}

		copy(palette, newPalette)
	}

	return palette
}
