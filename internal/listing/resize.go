package listing

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// ResizeQuality is the JPEG quality of downscaled photos.
const ResizeQuality = 85

// Resize downscales img so its longest edge is at most maxDim and re-encodes
// it as JPEG. Images already within bounds, a non-positive maxDim, and
// formats that cannot be decoded are returned unchanged.
func Resize(img *Image, maxDim int) (*Image, error) {
	if img == nil || maxDim <= 0 {
		return img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return img, nil
	}
	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return img, nil
	}

	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	w, h := scaledSize(cfg.Width, cfg.Height, maxDim)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: ResizeQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return &Image{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}

// scaledSize keeps the aspect ratio with the longest edge at maxDim.
func scaledSize(width, height, maxDim int) (int, int) {
	if width >= height {
		return maxDim, max(1, height*maxDim/width)
	}
	return max(1, width*maxDim/height), maxDim
}
