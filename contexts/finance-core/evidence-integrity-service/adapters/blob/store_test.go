package blob

import (
	"context"
	"errors"
	"testing"

	domainerrors "oddlybrilliant/contexts/finance-core/evidence-integrity-service/domain/errors"
	"oddlybrilliant/internal/platform/blobstore"
)

func TestStoreTranslatesBackendErrors(t *testing.T) {
	backend, err := blobstore.OpenBadger(blobstore.BadgerConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open badger failed: %v", err)
	}
	defer backend.Close()
	store := Store{Backend: backend}
	ctx := context.Background()

	if err := store.WriteBytes(ctx, "", []byte("x"), "application/json"); !errors.Is(err, domainerrors.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if err := store.WriteBytes(ctx, "evidence/c1/a1.json", []byte("{}"), "application/json"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := store.ReadBytes(ctx, "evidence/c1/a1.json")
	if err != nil || string(data) != "{}" {
		t.Fatalf("unexpected read %q, %v", data, err)
	}
	if _, err := store.ReadBytes(ctx, "evidence/c1/missing.json"); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
