package recognize

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// MaxImageSize is the maximum dimension (width or height) sent to the face
// service. Larger uploads are downscaled to keep oracle calls fast.
const MaxImageSize = 1920

// PrepareImage downscales an image to fit within MaxImageSize while keeping
// aspect ratio. Images already within bounds are returned unchanged.
// Returns JPEG-encoded bytes for downscaled images.
func PrepareImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= MaxImageSize && height <= MaxImageSize {
		return data, nil
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = MaxImageSize
		newHeight = int(float64(height) * float64(MaxImageSize) / float64(width))
	} else {
		newHeight = MaxImageSize
		newWidth = int(float64(width) * float64(MaxImageSize) / float64(height))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}

	return buf.Bytes(), nil
}
