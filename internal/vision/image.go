package vision

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/labddb/resistorlens/internal/errors"
)

// MaxImageBytes is the largest image sent inline to the model.
const MaxImageBytes = 20 << 20

var supportedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// Image is a photo to analyse.
type Image struct {
	Data     []byte
	MIMEType string
}

// NewImage validates data and fills in the MIME type when mimeType is empty.
func NewImage(data []byte, mimeType string) (Image, error) {
	if len(data) == 0 {
		return Image{}, invalidImage("empty image", "")
	}
	if len(data) > MaxImageBytes {
		return Image{}, invalidImage(fmt.Sprintf("image is %d bytes, limit is %d", len(data), MaxImageBytes), mimeType)
	}

	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
		if i := strings.IndexByte(mimeType, ';'); i >= 0 {
			mimeType = mimeType[:i]
		}
	}
	if !supportedMIMETypes[mimeType] {
		return Image{}, invalidImage("unsupported image type", mimeType)
	}
	return Image{Data: data, MIMEType: mimeType}, nil
}

// DecodeDataURL accepts "data:image/jpeg;base64,<payload>" as produced by a
// browser canvas. A bare base64 payload is accepted too.
func DecodeDataURL(s string) (Image, error) {
	s = strings.TrimSpace(s)
	mimeType := ""
	payload := s
	if header, data, found := strings.Cut(s, ","); found {
		payload = data
		if meta, ok := strings.CutPrefix(header, "data:"); ok {
			mimeType, _, _ = strings.Cut(meta, ";")
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, errors.New(fmt.Errorf("%w: %w", ErrInvalidImage, err)).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("operation", "decode_data_url").
			Build()
	}
	return NewImage(data, mimeType)
}

// ReadImageFile loads an image from disk.
func ReadImageFile(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, errors.New(fmt.Errorf("read image: %w", err)).
			Component(componentName).
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return NewImage(data, "")
}

// Digest is the hex SHA-256 of the image bytes.
func (img Image) Digest() string {
	sum := sha256.Sum256(img.Data)
	return hex.EncodeToString(sum[:])
}

func invalidImage(reason, mimeType string) error {
	return errors.New(fmt.Errorf("%w: %s", ErrInvalidImage, reason)).
		Component(componentName).
		Category(errors.CategoryValidation).
		Context("mime_type", mimeType).
		Build()
}
