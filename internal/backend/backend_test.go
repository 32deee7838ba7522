package backend

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet/internal/config"
	"wallet/internal/core"
	"wallet/internal/store"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{DataBackend: "sheets"})
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "x.db", cfg.SQLiteDBPath)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"postgres", Config{Type: PostgresBackend, DatabaseURL: "postgres://localhost/wallet"}, false},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			assert.Equal(t, tt.wantErr, err != nil, "err=%v", err)
		})
	}
	assert.Equal(t, []string{"memory", "sqlite", "postgres"}, GetBackendTypeStrings())
}

func TestCreateBackend_Memory(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.Nil(t, res.SyncSource, "memory backend does not track mirror state")
	assert.NoError(t, res.Ping(context.Background()))
}

func TestCreateBackend_MemorySeeded(t *testing.T) {
	snap := store.Snapshot{
		Version:  store.SnapshotVersion,
		Budget:   decimal.NewFromInt(400),
		Currency: "EUR",
		Transactions: []core.Transaction{
			core.NewTransaction("Lunch", decimal.NewFromInt(12), "Food", core.Expense, time.Now()),
		},
	}
	raw, err := json.Marshal(snap)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedFile: path})
	require.NoError(t, err)

	txs, err := res.Store.GetTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 1)
	code, _ := res.Store.GetSelectedCurrency(context.Background())
	assert.Equal(t, "EUR", code)

	_, err = NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedFile: path + ".missing"})
	assert.Error(t, err)
}

func TestCreateBackend_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	defer res.Cleanup()

	assert.NotNil(t, res.SyncSource)
	assert.NoError(t, res.Ping(context.Background()))
}
