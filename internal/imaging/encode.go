package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// PreviewResult contains an image encoded as base64 PNG.
type PreviewResult struct {
	// Width of the image in pixels.
	Width int `json:"width"`

	// Height of the image in pixels.
	Height int `json:"height"`

	// ImageBase64 is the image encoded as base64 PNG.
	ImageBase64 string `json:"image_base64"`

	// MimeType is always "image/png".
	MimeType string `json:"mime_type"`

	// Pixels is the number of set pixels when the preview shows a mask.
	Pixels int `json:"pixels,omitempty"`
}

// EncodePreview encodes img as a base64 PNG.
func EncodePreview(img image.Image) (*PreviewResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}
	b := img.Bounds()
	return &PreviewResult{
		Width:       b.Dx(),
		Height:      b.Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}

// EncodeMaskPreview encodes m as a 0/255 grayscale PNG.
func EncodeMaskPreview(m *Mask) (*PreviewResult, error) {
	res, err := EncodePreview(m.Gray(255))
	if err != nil {
		return nil, err
	}
	res.Pixels = m.Count()
	return res, nil
}

// SaveImage writes img to path. The format follows the file extension.
func SaveImage(path string, img image.Image) error {
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
