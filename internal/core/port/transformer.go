package port

import (
	"context"
	"filtro/internal/core/domain"
)

type Transformer interface {
	// Transform decodes the image bytes, applies the requested scale and filter
	// and returns the re-encoded result along with the resolved format name.
	Transform(ctx context.Context, data []byte, req domain.FilterRequest) ([]byte, string, error)
}
