package imaging

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/bumothekid/clothing-booth-api-v2/internal/models"
)

// Embedder maps images and category labels into one vector space.
type Embedder interface {
	EmbedImage(ctx context.Context, img image.Image) ([]float64, error)
	EmbedLabels(ctx context.Context, labels []string) ([][]float64, error)
}

// Classifier picks the category whose label embedding is most similar to
// the image embedding.
type Classifier struct {
	embedder   Embedder
	categories []models.Category
}

func NewClassifier(embedder Embedder) *Classifier {
	return &Classifier{embedder: embedder, categories: models.AllCategories()}
}

func (c *Classifier) Classify(ctx context.Context, img image.Image) (models.Category, error) {
	vec, err := c.embedder.EmbedImage(ctx, img)
	if err != nil {
		return "", fmt.Errorf("embedding image: %w", err)
	}

	labels := make([]string, len(c.categories))
	for i, cat := range c.categories {
		labels[i] = cat.Label()
	}
	labelVecs, err := c.embedder.EmbedLabels(ctx, labels)
	if err != nil {
		return "", fmt.Errorf("embedding labels: %w", err)
	}
	if len(labelVecs) != len(labels) {
		return "", fmt.Errorf("embedding labels: got %d vectors for %d labels", len(labelVecs), len(labels))
	}

	best, bestScore := -1, math.Inf(-1)
	for i, lv := range labelVecs {
		if score := cosineSimilarity(vec, lv); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return "", fmt.Errorf("no category scored")
	}
	return c.categories[best], nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(-1)
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return math.Inf(-1)
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ShapeEmbedder describes a cut-out garment by its silhouette: aspect,
// fill, row coverage at shoulder, waist and hem height, and the gap between
// legs. Labels map to fixed silhouette prototypes in the same space.
type ShapeEmbedder struct{}

const shapeFeatures = 6

// Silhouette prototypes: aspect/3, fill, top, middle and bottom row
// coverage, leg gap.
var shapePrototypes = map[models.Category][shapeFeatures]float64{
	models.CategoryTShirt:  {0.32, 0.78, 0.95, 0.62, 0.60, 0.00},
	models.CategoryShirt:   {0.40, 0.76, 0.92, 0.60, 0.58, 0.00},
	models.CategoryPolo:    {0.34, 0.77, 0.94, 0.62, 0.60, 0.00},
	models.CategorySweater: {0.36, 0.82, 0.90, 0.72, 0.62, 0.00},
	models.CategoryHoodie:  {0.40, 0.80, 0.70, 0.80, 0.66, 0.00},
	models.CategoryJacket:  {0.42, 0.80, 0.88, 0.78, 0.70, 0.05},
	models.CategoryCoat:    {0.55, 0.78, 0.85, 0.74, 0.72, 0.05},

	models.CategoryJeans:  {0.75, 0.62, 0.92, 0.80, 0.66, 0.55},
	models.CategoryShorts: {0.30, 0.74, 0.97, 0.92, 0.82, 0.40},
	models.CategoryPants:  {0.78, 0.60, 0.90, 0.78, 0.64, 0.60},
	models.CategorySkirt:  {0.38, 0.80, 0.62, 0.82, 0.98, 0.00},

	models.CategorySneakers: {0.18, 0.70, 0.45, 0.80, 0.98, 0.00},
	models.CategoryBoots:    {0.40, 0.66, 0.50, 0.52, 0.95, 0.00},
	models.CategorySandals:  {0.15, 0.45, 0.40, 0.60, 0.95, 0.00},
	models.CategoryHeels:    {0.26, 0.48, 0.30, 0.55, 0.90, 0.20},
	models.CategoryLoafers:  {0.16, 0.74, 0.50, 0.85, 0.96, 0.00},

	models.CategoryHat:       {0.25, 0.70, 0.45, 0.75, 1.00, 0.00},
	models.CategoryScarf:     {1.00, 0.85, 0.60, 0.60, 0.65, 0.00},
	models.CategoryGloves:    {0.42, 0.58, 0.55, 0.85, 0.60, 0.10},
	models.CategoryBelt:      {0.05, 0.90, 1.00, 1.00, 1.00, 0.00},
	models.CategoryBag:       {0.33, 0.84, 0.40, 0.95, 0.96, 0.00},
	models.CategoryWatch:     {0.80, 0.55, 0.35, 0.70, 0.35, 0.00},
	models.CategoryAccessory: {0.33, 0.60, 0.60, 0.60, 0.60, 0.10},
}

func (ShapeEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := alphaMask(img)
	b := m.Rect
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, ErrImageUnclear
	}

	rowCoverage := func(fromPct, toPct int) float64 {
		y0, y1 := h*fromPct/100, max(h*toPct/100, h*fromPct/100+1)
		var filled, total int
		for y := y0; y < y1 && y < h; y++ {
			for x := 0; x < w; x++ {
				if m.visible(x, y) {
					filled++
				}
				total++
			}
		}
		if total == 0 {
			return 0
		}
		return float64(filled) / float64(total)
	}

	var filled int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.visible(x, y) {
				filled++
			}
		}
	}

	// Leg gap: transparent share of the central vertical band in the lower third.
	var gap, band int
	for y := h * 2 / 3; y < h; y++ {
		for x := w * 2 / 5; x < w*3/5; x++ {
			band++
			if !m.visible(x, y) {
				gap++
			}
		}
	}
	gapShare := 0.0
	if band > 0 {
		gapShare = float64(gap) / float64(band)
	}

	return []float64{
		math.Min(float64(h)/float64(w)/3, 1),
		float64(filled) / float64(w*h),
		rowCoverage(0, 20),
		rowCoverage(40, 60),
		rowCoverage(80, 100),
		gapShare,
	}, nil
}

func (ShapeEmbedder) EmbedLabels(ctx context.Context, labels []string) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float64, len(labels))
	for i, label := range labels {
		cat, ok := models.ParseCategory(label)
		if !ok {
			return nil, fmt.Errorf("unknown category label %q", label)
		}
		proto, ok := shapePrototypes[cat]
		if !ok {
			return nil, fmt.Errorf("no prototype for category %s", cat)
		}
		out[i] = proto[:]
	}
	return out, nil
}

type silhouette struct {
	Rect image.Rectangle
	bits []bool
}

func (m *silhouette) visible(x, y int) bool {
	return m.bits[y*m.Rect.Dx()+x]
}

func alphaMask(img image.Image) *silhouette {
	b := img.Bounds()
	m := &silhouette{Rect: image.Rect(0, 0, b.Dx(), b.Dy()), bits: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			_, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			m.bits[y*b.Dx()+x] = a >= alphaVisible<<8
		}
	}
	return m
}
