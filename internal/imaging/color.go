package imaging

import (
	"fmt"
	"image"
	"sort"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
	xdraw "golang.org/x/image/draw"
)

const (
	colorSampleEdge      = 64
	colorAlphaThreshold  = 128
	DefaultColorClusters = 3
)

// DominantColor downsamples img, ignores near-transparent pixels and
// clusters the rest into k groups. The center of the largest group is
// returned as "#RRGGBB".
func DominantColor(img image.Image, k int) (string, error) {
	if k <= 0 {
		k = DefaultColorClusters
	}

	samples := sampleOpaquePixels(img)
	if len(samples) == 0 {
		return "", ErrImageUnclear
	}

	distinct := make(map[[3]uint8]int)
	for _, s := range samples {
		distinct[s]++
	}
	// Too few distinct colors to cluster meaningfully: take the most common.
	if len(distinct) <= k || len(samples) < 2*k {
		return formatHex(mostCommon(distinct)), nil
	}

	obs := make(clusters.Observations, 0, len(samples))
	for _, s := range samples {
		obs = append(obs, clusters.Coordinates{float64(s[0]), float64(s[1]), float64(s[2])})
	}

	result, err := kmeans.New().Partition(obs, k)
	if err != nil {
		return "", fmt.Errorf("clustering colors: %w", err)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return len(result[i].Observations) > len(result[j].Observations)
	})
	if len(result) == 0 || len(result[0].Center) < 3 {
		return formatHex(mostCommon(distinct)), nil
	}

	center := result[0].Center
	return formatHex([3]uint8{clampByte(center[0]), clampByte(center[1]), clampByte(center[2])}), nil
}

func sampleOpaquePixels(img image.Image) [][3]uint8 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w > colorSampleEdge || h > colorSampleEdge {
		if w >= h {
			h = max(1, h*colorSampleEdge/w)
			w = colorSampleEdge
		} else {
			w = max(1, w*colorSampleEdge/h)
			h = colorSampleEdge
		}
	}

	small := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(small, small.Bounds(), img, b, xdraw.Src, nil)

	out := make([][3]uint8, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := small.NRGBAAt(x, y)
			if c.A < colorAlphaThreshold {
				continue
			}
			out = append(out, [3]uint8{c.R, c.G, c.B})
		}
	}
	return out
}

func mostCommon(counts map[[3]uint8]int) [3]uint8 {
	var best [3]uint8
	bestN := -1
	for c, n := range counts {
		// Ties break on the smaller color value so results are stable.
		if n > bestN || (n == bestN && lessColor(c, best)) {
			best, bestN = c, n
		}
	}
	return best
}

func lessColor(a, b [3]uint8) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

func formatHex(c [3]uint8) string {
	return fmt.Sprintf("#%02X%02X%02X", c[0], c[1], c[2])
}
