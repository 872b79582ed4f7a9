package imagesvc

import (
	"errors"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// ErrUnknownInterpolator is returned when an unsupported interpolation method is specified.
var ErrUnknownInterpolator = errors.New("unknown interpolator")

//nolint:gochecknoglobals
var (
	// interpolMap maps interpolator names to their implementations.
	// Supported values: "nearestneighbor", "catmullrom", "bilinear", "approxbilinear".
	interpolMap = map[string]draw.Interpolator{
		"nearestneighbor": draw.NearestNeighbor,
		"catmullrom":      draw.CatmullRom,
		"bilinear":        draw.BiLinear,
		"approxbilinear":  draw.ApproxBiLinear,
	}
)

func getInterpolatorByName(name string) (draw.Interpolator, error) {
	interpol, ok := interpolMap[strings.ToLower(name)]
	if !ok {
		return nil, ErrUnknownInterpolator
	}

	return interpol, nil
}

// targetSize scales bounds to width keeping the aspect ratio. Images are never
// upscaled and the height is at least one pixel.
func targetSize(bounds image.Rectangle, width int) (int, int) {
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if width <= 0 || width >= srcW {
		return srcW, srcH
	}

	height := int(math.Round(float64(srcH) * float64(width) / float64(srcW)))

	return width, max(1, height)
}

// resizeImage scales img to width over an opaque background. background may be nil to
// keep transparency. The original is returned when no downscale is needed.
func resizeImage(img image.Image, width int, interpol draw.Interpolator, background color.Color) image.Image {
	targetW, targetH := targetSize(img.Bounds(), width)
	if targetW == img.Bounds().Dx() && targetH == img.Bounds().Dy() && background == nil {
		return img
	}

	bitmap := image.NewRGBA(image.Rect(0, 0, targetW, targetH))

	if background != nil {
		draw.Draw(bitmap, bitmap.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	}

	interpol.Scale(bitmap, bitmap.Bounds(), img, img.Bounds(), draw.Over, nil)

	return bitmap
}
