package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"assessment-service/internal/repository"
	"assessment-service/internal/repository/storetest"
)

func TestSQLiteStores(t *testing.T) {
	storetest.Run(t, func(t *testing.T) *repository.Stores {
		store, err := NewSQLite(filepath.Join(t.TempDir(), "engine.db"))
		if err != nil {
			t.Fatalf("NewSQLite: %v", err)
		}
		stores := store.Stores()
		t.Cleanup(func() { stores.Close(context.Background()) })
		return stores
	})
}
