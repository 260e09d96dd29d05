package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domainerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
	"oddlybrilliant/contexts/finance-core/evidence-integrity-service/ports"
	"oddlybrilliant/internal/platform/blobstore"
)

// Store adapts a platform blob backend to the evidence BlobStore port.
type Store struct {
	Backend blobstore.Store
}

func (s Store) WriteBytes(ctx context.Context, key string, data []byte, contentType string) error {
	if strings.TrimSpace(key) == "" {
		return domainerrors.ErrInvalidRequest
	}
	return translate(s.Backend.Write(ctx, key, data, contentType))
}

func (s Store) ReadBytes(ctx context.Context, key string) ([]byte, error) {
	data, err := s.Backend.Read(ctx, key)
	if err != nil {
		return nil, translate(err)
	}
	return data, nil
}

func (s Store) DeleteBytes(ctx context.Context, key string) error {
	return translate(s.Backend.Delete(ctx, key))
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, blobstore.ErrNotFound):
		return domainerrors.ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %w", domainerrors.ErrStorage, err)
	}
}

var _ ports.BlobStore = Store{}
