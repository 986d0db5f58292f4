// Package validation checks uploaded files before they are processed.
package validation

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
)

var (
	ErrFileRequired = errors.New("no file provided")
	ErrFileSize     = errors.New("avatar must be at most 5MB")
	ErrFileType     = errors.New("avatar must be a JPG, PNG or WEBP image")
)

const MaxAvatarSize int64 = 5 << 20

// avatarFormats maps accepted extensions to the content type a browser sends
// for them.
var avatarFormats = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ValidateImage accepts an avatar upload when its size, extension and
// declared content type agree. A missing Content-Type is tolerated.
func ValidateImage(file *multipart.FileHeader) error {
	if file == nil || file.Size <= 0 {
		return ErrFileRequired
	}
	if file.Size > MaxAvatarSize {
		return ErrFileSize
	}

	want, ok := avatarFormats[strings.ToLower(filepath.Ext(file.Filename))]
	if !ok {
		return ErrFileType
	}

	declared := strings.TrimSpace(strings.SplitN(file.Header.Get("Content-Type"), ";", 2)[0])
	if declared != "" && !strings.EqualFold(declared, want) {
		return ErrFileType
	}
	return nil
}
