// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesWALPragmas(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "wal.sqlite"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestVerifyIntegrity_HealthyDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "ok.sqlite"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, data TEXT)")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err = db.Exec("INSERT INTO t (data) VALUES (?)", "payload")
		require.NoError(t, err)
	}

	for _, mode := range []string{"quick", "full"} {
		issues, err := VerifyIntegrity(context.Background(), db, mode)
		require.NoError(t, err, mode)
		assert.Nil(t, issues, mode)
	}
}

func TestVerifyIntegrity_ClosedDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "closed.sqlite"), DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = VerifyIntegrity(context.Background(), db, "quick")
	assert.Error(t, err)
}
