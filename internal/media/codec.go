package media

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/webp" // Register WebP decoder
)

const jpegQuality = 85

type encoder struct {
	ext    string
	encode func(io.Writer, image.Image) error
}

// encoderFor picks the output format for a decoded input format.
// WebP has no encoder in x/image, so WebP inputs are written as PNG.
func encoderFor(format string) (encoder, error) {
	switch format {
	case "jpeg":
		return encoder{ext: ".jpg", encode: func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
		}}, nil
	case "png", "webp":
		return encoder{ext: ".png", encode: png.Encode}, nil
	case "gif":
		// image.Decode keeps only the first frame
		return encoder{ext: ".gif", encode: func(w io.Writer, img image.Image) error {
			return gif.Encode(w, img, nil)
		}}, nil
	default:
		return encoder{}, fmt.Errorf("no encoder for %q", format)
	}
}
