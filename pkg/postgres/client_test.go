package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
)

func TestPendingSkipsAppliedInVersionOrder(t *testing.T) {
	migrations := []Migration{{3, "c"}, {1, "a"}, {2, "b"}}
	got := pending(migrations, map[int]bool{2: true})
	assert.Equal(t, []Migration{{1, "a"}, {3, "c"}}, got)
	assert.Empty(t, pending(migrations, map[int]bool{1: true, 2: true, 3: true}))
}

func TestCheckMigrations(t *testing.T) {
	assert.NoError(t, checkMigrations([]Migration{{1, "a"}, {2, "b"}}))
	assert.ErrorContains(t, checkMigrations([]Migration{{1, "a"}, {1, "b"}}), "duplicate")
	assert.ErrorContains(t, checkMigrations([]Migration{{0, "a"}}), "positive")
}

func TestNewUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(ctx, config.PostgresConfig{Host: "127.0.0.1", Port: 1, Database: "x", User: "x", SSLMode: "disable"})
	require.Error(t, err)
}
