package image

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"

	"github.com/chai2010/webp"
)

const (
	MaxAvatarDimension = 4096
	avatarQuality      = 85
)

// ContentType and Extension describe what ProcessAvatar produces.
const (
	ContentType = "image/webp"
	Extension   = ".webp"
)

// ProcessAvatar re-encodes an uploaded JPEG, PNG or WebP image as lossy WebP.
func ProcessAvatar(file *multipart.FileHeader) (*bytes.Buffer, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer src.Close()

	return Reencode(src)
}

func Reencode(r io.Reader) (*bytes.Buffer, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("could not decode image: %w", err)
	}

	switch format {
	case "jpeg", "png", "webp":
	default:
		return nil, fmt.Errorf("unsupported image format: %s", format)
	}

	bounds := img.Bounds()
	if bounds.Dx() > MaxAvatarDimension || bounds.Dy() > MaxAvatarDimension {
		return nil, fmt.Errorf("image is larger than %dx%d", MaxAvatarDimension, MaxAvatarDimension)
	}

	buf := new(bytes.Buffer)
	if err := webp.Encode(buf, img, &webp.Options{Lossless: false, Quality: avatarQuality}); err != nil {
		return nil, fmt.Errorf("could not encode image: %w", err)
	}
	return buf, nil
}
