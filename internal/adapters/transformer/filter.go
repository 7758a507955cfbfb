package transformer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"

	"filtro/internal/core/domain"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// fallbackFormat is used when the decoder cannot name the source format.
const fallbackFormat = "jpeg"

// Kernels match the classic 3x3/5x5 convolution filters: contour and emboss
// are biased instead of normalized because their coefficients sum to zero and
// one respectively around an offset midpoint.
var (
	contourKernel = [9]float64{
		-1, -1, -1,
		-1, 8, -1,
		-1, -1, -1,
	}
	detailKernel = [9]float64{
		0, -1, 0,
		-1, 10, -1,
		0, -1, 0,
	}
	edgeEnhanceKernel = [9]float64{
		-1, -1, -1,
		-1, 9, -1,
		-1, -1, -1,
	}
	embossKernel = [9]float64{
		-1, 0, 0,
		0, 1, 0,
		0, 0, 0,
	}
	smoothKernel = [25]float64{
		1, 1, 1, 1, 1,
		1, 5, 5, 5, 1,
		1, 5, 44, 5, 1,
		1, 5, 5, 5, 1,
		1, 1, 1, 1, 1,
	}
)

// FilterEngine applies named filters to image bytes. It holds no state and is
// safe for concurrent use.
type FilterEngine struct{}

func NewFilterEngine() *FilterEngine {
	return &FilterEngine{}
}

func (e *FilterEngine) Transform(ctx context.Context, data []byte,
	req domain.FilterRequest) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}

	if len(data) == 0 {
		return nil, "", domain.ErrEmptyUpload
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if format == "" {
		format = fallbackFormat
	}

	if req.SizeMultiplier != 1.0 {
		width := int(math.Round(float64(img.Bounds().Dx()) * req.SizeMultiplier))
		height := int(math.Round(float64(img.Bounds().Dy()) * req.SizeMultiplier))
		img = imaging.Resize(img, width, height, imaging.Lanczos)
	}

	img = applyFilter(img, req.Filter, req.Strength)

	out, err := encode(img, format)
	if err != nil {
		return nil, "", err
	}

	return out, format, nil
}

func applyFilter(img image.Image, filter string, strength int) image.Image {
	switch filter {
	case "BLUR":
		return blur.Gaussian(img, float64(strength)/2)
	case "CONTOUR":
		return repeat(img, strength, func(i image.Image) image.Image {
			return imaging.Convolve3x3(i, contourKernel, &imaging.ConvolveOptions{Bias: 255})
		})
	case "DETAIL":
		return repeat(img, strength, func(i image.Image) image.Image {
			return imaging.Convolve3x3(i, detailKernel, &imaging.ConvolveOptions{Normalize: true})
		})
	case "EDGE_ENHANCE":
		return repeat(img, strength, func(i image.Image) image.Image {
			return imaging.Convolve3x3(i, edgeEnhanceKernel, &imaging.ConvolveOptions{Normalize: true})
		})
	case "EMBOSS":
		return repeat(img, strength, func(i image.Image) image.Image {
			return imaging.Convolve3x3(i, embossKernel, &imaging.ConvolveOptions{Bias: 128})
		})
	case "SHARPEN":
		radius := math.Max(1, float64(strength)/3)
		amount := math.Min(500, float64(strength)*50) / 100
		return effect.UnsharpMask(img, radius, amount)
	case "SMOOTH":
		return repeat(img, strength, func(i image.Image) image.Image {
			return imaging.Convolve5x5(i, smoothKernel, &imaging.ConvolveOptions{Normalize: true})
		})
	case "EDGES":
		edges := effect.EdgeDetection(img, 1.0)
		return adjust.Contrast(edges, float64(strength)/2-1)
	default:
		// Unknown filter names pass the image through untouched.
		return img
	}
}

func repeat(img image.Image, times int, pass func(image.Image) image.Image) image.Image {
	for i := 0; i < times; i++ {
		img = pass(img)
	}
	return img
}

func encode(img image.Image, format string) ([]byte, error) {
	var target imaging.Format

	switch format {
	case "png":
		target = imaging.PNG
	case "gif":
		target = imaging.GIF
	case "bmp":
		target = imaging.BMP
	case "tiff":
		target = imaging.TIFF
	default:
		target = imaging.JPEG
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, img, target); err != nil {
		return nil, fmt.Errorf("failed to encode %s image: %w", format, err)
	}

	return buf.Bytes(), nil
}
