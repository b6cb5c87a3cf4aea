package media

import "fmt"

// MaxFileSize is the upload size ceiling. Fixed, not runtime-configurable.
const MaxFileSize = 5 << 20 // 5 MiB

// MIME allow-lists per kind. Fixed, not runtime-configurable.
var (
	imageMimeTypes = map[string]bool{
		"image/png":  true,
		"image/jpeg": true,
		"image/webp": true,
		"image/gif":  true,
	}

	documentMimeTypes = map[string]bool{
		"application/pdf":    true,
		"application/msword": true,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	}
)

// ValidateUpload checks the size ceiling and the MIME allow-list for the
// given kind. It is a pure function and must run before any store is touched.
func ValidateUpload(sizeBytes int64, mimeType string, kind MediaKind) error {
	if !kind.Valid() {
		return &ValidationError{MimeType: mimeType, SizeBytes: sizeBytes, Kind: kind,
			Err: fmt.Errorf("%w: %q", ErrInvalidKind, kind)}
	}

	if sizeBytes > MaxFileSize {
		return &ValidationError{MimeType: mimeType, SizeBytes: sizeBytes, Kind: kind,
			Err: fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, sizeBytes, MaxFileSize)}
	}

	allowed := imageMimeTypes
	if kind == MediaKindDocument {
		allowed = documentMimeTypes
	}
	if !allowed[mimeType] {
		return &ValidationError{MimeType: mimeType, SizeBytes: sizeBytes, Kind: kind,
			Err: fmt.Errorf("%w: %q not allowed for kind %s", ErrUnsupportedType, mimeType, kind)}
	}

	return nil
}
