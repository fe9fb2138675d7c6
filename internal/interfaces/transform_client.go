package interfaces

import "context"

// TransformClient converts binary document formats to plain text through
// the external transformation service.
type TransformClient interface {
	// TransformToText converts the file at srcPath from sourceMimeType to
	// text/plain and returns the extracted text.
	TransformToText(ctx context.Context, srcPath, sourceMimeType string) (string, error)

	// IsSupported reports whether the service advertises a transform from
	// the given mime type to text/plain. Lookup failures fail open.
	IsSupported(ctx context.Context, sourceMimeType string) bool
}
