// Package assets defines the content-addressing scheme and upload constraints
// for stored binary blobs.
package assets

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// UploadLimit caps a single upload payload at 5 MiB.
const UploadLimit = 5 * 1024 * 1024

var (
	// ErrTooLarge indicates the payload exceeds UploadLimit.
	ErrTooLarge = errors.New("asset payload too large")
	// ErrMissingContentType indicates the upload did not declare a content type.
	ErrMissingContentType = errors.New("content type is required")
)

// HashBytes computes the canonical identifier for a payload: the base64url
// encoding of its SHA-256 digest. Identity IS this hash, so identical bytes
// always collapse to the same stored row.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return base64.URLEncoding.EncodeToString(sum[:])
}

// ValidateUpload checks the declared content type and measured size before a
// payload is handed to storage.
func ValidateUpload(data []byte, contentType string) error {
	if contentType == "" {
		return ErrMissingContentType
	}
	if len(data) > UploadLimit {
		return ErrTooLarge
	}
	return nil
}
