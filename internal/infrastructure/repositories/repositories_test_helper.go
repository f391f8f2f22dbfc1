package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createTransferTables(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE transfers (
		id TEXT PRIMARY KEY,
		source_chain_id INTEGER NOT NULL,
		account TEXT NOT NULL,
		recipient TEXT NOT NULL,
		amount TEXT NOT NULL,
		gas_mode TEXT NOT NULL,
		gas_amount TEXT NOT NULL,
		dest_chain TEXT NOT NULL,
		dest_contract TEXT NOT NULL,
		phase TEXT NOT NULL,
		source_tx_hash TEXT,
		dest_tx_hash TEXT,
		error_code TEXT,
		error_message TEXT,
		completed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
	mustExec(t, db, `CREATE TABLE transfer_events (
		id TEXT PRIMARY KEY,
		transfer_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		tx_hash TEXT,
		link TEXT,
		message TEXT,
		created_at DATETIME
	);`)
}
