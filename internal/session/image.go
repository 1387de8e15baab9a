package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxImageBytes matches the inline-data ceiling of the Gemini API.
const DefaultMaxImageBytes = 20 * 1024 * 1024

var errEmptyImage = errors.New("image is empty")

// allowedImageTypes is the set of MIME types accepted for uploaded photos.
// net/http.DetectContentType handles JPEG, PNG, and GIF via magic-byte
// sniffing. WebP is detected separately because the WHATWG sniff spec (and
// therefore the stdlib) does not include a WebP signature.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a WebP image (RIFF container with "WEBP" at
// offset 8).
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

// DetectImageMIME returns the detected MIME type and true if data is an
// accepted image format, or ("", false) otherwise.
func DetectImageMIME(data []byte) (string, bool) {
	if isWebP(data) {
		return "image/webp", true
	}
	mime := http.DetectContentType(data)
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

// encodedImage is an upload converted to its transportable form.
type encodedImage struct {
	raw       []byte
	encoded   string
	mediaType string
}

// encodeImage reads at most maxBytes from r, checks the content is an image
// and base64-encodes it.
func encodeImage(ctx context.Context, r io.Reader, maxBytes int64) (*encodedImage, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errEmptyImage
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxBytes)
	}

	mediaType, ok := DetectImageMIME(data)
	if !ok {
		return nil, fmt.Errorf("unsupported image format %q", http.DetectContentType(data))
	}

	return &encodedImage{
		raw:       data,
		encoded:   base64.StdEncoding.EncodeToString(data),
		mediaType: mediaType,
	}, nil
}
