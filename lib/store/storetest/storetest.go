// Package storetest provides in-memory stores for tests.
package storetest

import (
	"testing"

	"github.com/fiffu/isitup/lib/store"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated in-memory database that is closed when the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := store.Open(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func NewStore(t testing.TB) *store.Store {
	return store.NewStore(NewDB(t))
}
