package media

import (
	"fmt"
	"image"

	"github.com/bbrks/go-blurhash"
	"golang.org/x/image/draw"
)

// blurHashSize bounds the image fed to the encoder; a placeholder needs no detail
const blurHashSize = 64

// ComputeBlurHash encodes a 4×3 component BlurHash placeholder for img
func ComputeBlurHash(img image.Image) (string, error) {
	small := img
	bounds := img.Bounds()
	if w, h := FitInside(bounds.Dx(), bounds.Dy(), blurHashSize); w != bounds.Dx() || h != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		small = dst
	}

	hash, err := blurhash.Encode(4, 3, small)
	if err != nil {
		return "", fmt.Errorf("encode blurhash: %w", err)
	}
	return hash, nil
}
