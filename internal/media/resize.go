package media

import (
	"image"

	"golang.org/x/image/draw"
)

// FitInside scales width and height down so both fit in a max×max box.
// Aspect ratio is kept and images that already fit are never enlarged.
func FitInside(width, height, max int) (int, int) {
	if width <= max && height <= max {
		return width, height
	}

	if width >= height {
		h := (height*max + width/2) / width
		if h < 1 {
			h = 1
		}
		return max, h
	}

	w := (width*max + height/2) / height
	if w < 1 {
		w = 1
	}
	return w, max
}

// Resize returns img bounded by a max×max box, or img itself when it already fits
func Resize(img image.Image, max int) image.Image {
	bounds := img.Bounds()
	w, h := FitInside(bounds.Dx(), bounds.Dy(), max)
	if w == bounds.Dx() && h == bounds.Dy() {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
