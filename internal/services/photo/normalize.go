package photo

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	// MaxDimension bounds both output dimensions. Images already within
	// bounds keep their size; nothing is ever upscaled.
	MaxDimension = 800

	// JPEGQuality is the fixed re-encode quality used to cap output size.
	JPEGQuality = 85
)

// Normalizer decodes a photo payload, bounds its dimensions and re-encodes
// it as JPEG. This is pure size control ahead of the mail provider's
// payload ceiling.
type Normalizer struct {
	maxDimension int
	quality      int
}

// NewNormalizer creates a normalizer with the standard bounds.
func NewNormalizer() *Normalizer {
	return &Normalizer{maxDimension: MaxDimension, quality: JPEGQuality}
}

// Normalize returns the photo as a bounded JPEG. Fails when the payload is
// not a decodable image.
func (n *Normalizer) Normalize(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > n.maxDimension || bounds.Dy() > n.maxDimension {
		// Fit preserves aspect ratio and only ever shrinks.
		img = imaging.Fit(img, n.maxDimension, n.maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(n.quality))
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	return buf.Bytes(), nil
}
