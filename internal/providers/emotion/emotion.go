package emotion

import "context"

// Provider names the emotions visible in a recorded clip.
type Provider interface {
	Detect(ctx context.Context, video []byte, mimeType string) ([]string, error)
	Close() error
}
