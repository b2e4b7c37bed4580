package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	// ErrEmptyContent is returned when content string is empty or only whitespace
	ErrEmptyContent = errors.New("content cannot be empty")
	// ErrFailedToGenerate is returned when the QR code generation fails.
	ErrFailedToGenerate = errors.New("failed to generate QR code")
)

const (
	// DefaultSize is the size in pixels used when no size is specified.
	DefaultSize = 256

	// DataURLPrefix starts every value returned by GenerateBase64Image.
	DataURLPrefix = "data:image/png;base64,"
)

// Generate creates a PNG QR code for content.
// Medium error correction keeps otpauth URIs scannable from phone screens
// without inflating the symbol for 32-character secrets.
func Generate(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrFailedToGenerate, err)
	}
	return png, nil
}

// GenerateBase64Image returns the QR code as a data URL ready for an <img src>:
//
//	img, err := qrcode.GenerateBase64Image(enrollment.URI, 256)
//	// <img src="{{.QRCode}}">
func GenerateBase64Image(content string, size int) (string, error) {
	png, err := Generate(content, size)
	if err != nil {
		return "", err
	}
	return DataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// DecodeBase64Image extracts the PNG bytes from a data URL produced by GenerateBase64Image.
func DecodeBase64Image(dataURL string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(dataURL, DataURLPrefix)
	if !ok || encoded == "" {
		return nil, ErrEmptyContent
	}
	return base64.StdEncoding.DecodeString(encoded)
}
