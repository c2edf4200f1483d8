package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"io"
	"net/http"
	"time"

	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
)

const remoteResponseLimit = 32 << 20

// RemoteSegmenter posts the image as PNG to a model server and expects a
// PNG cut-out with transparent background in return.
type RemoteSegmenter struct {
	url    string
	client *http.Client
}

func NewRemoteSegmenter(url string, timeout time.Duration) *RemoteSegmenter {
	return &RemoteSegmenter{url: url, client: &http.Client{Timeout: timeout}}
}

func (s *RemoteSegmenter) Segment(ctx context.Context, img image.Image) (*image.NRGBA, error) {
	body, err := blob.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building segmentation request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling segmentation model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return nil, ErrImageUnclear
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("segmentation model returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, remoteResponseLimit))
	if err != nil {
		return nil, fmt.Errorf("reading segmentation response: %w", err)
	}
	out, err := blob.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decoding segmentation response: %w", err)
	}
	return toNRGBA(out), nil
}

// RemoteEmbedder calls a model server exposing image and text embeddings.
//
//	POST {url}/image  {"image": "<base64 png>"}   -> {"embedding": [...]}
//	POST {url}/text   {"texts": ["T-Shirt", ...]} -> {"embeddings": [[...], ...]}
type RemoteEmbedder struct {
	url    string
	client *http.Client
}

func NewRemoteEmbedder(url string, timeout time.Duration) *RemoteEmbedder {
	return &RemoteEmbedder{url: url, client: &http.Client{Timeout: timeout}}
}

func (e *RemoteEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float64, error) {
	data, err := blob.EncodePNG(img)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := e.post(ctx, "/image", map[string]string{"image": base64.StdEncoding.EncodeToString(data)}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("embedding model returned an empty vector")
	}
	return resp.Embedding, nil
}

func (e *RemoteEmbedder) EmbedLabels(ctx context.Context, labels []string) ([][]float64, error) {
	var resp struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := e.post(ctx, "/text", map[string][]string{"texts": labels}, &resp); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

func (e *RemoteEmbedder) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling embedding model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("embedding model returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, remoteResponseLimit)).Decode(out); err != nil {
		return fmt.Errorf("decoding embedding response: %w", err)
	}
	return nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
