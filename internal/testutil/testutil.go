// Package testutil builds throwaway stores for package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bookly/bookly/internal/db"
)

// NewDB returns a migrated in-memory sqlite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, "sqlite:file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

// NewRedis starts a miniredis server and a client connected to it.
func NewRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}
