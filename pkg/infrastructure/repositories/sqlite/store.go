// Package sqlite persists a plant snapshot in a single SQLite file and
// implements the domain repository interfaces on top of it. The schema is
// migrated on open and the database runs in WAL mode.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/domain/entities"
	"github.com/planwerk/mrp/pkg/domain/repositories"
)

// Store is a SQLite-backed plant snapshot. Use ":memory:" for tests.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ repositories.ItemRepository          = (*Store)(nil)
	_ repositories.InventoryRepository     = (*Store)(nil)
	_ repositories.JobRepository           = (*Store)(nil)
	_ repositories.PurchaseOrderRepository = (*Store)(nil)
	_ repositories.SalesOrderRepository    = (*Store)(nil)
)

// New opens or creates the store at the given path and migrates the schema
func New(path string) (*Store, error) {
	// An in-memory database must run with a shared cache, otherwise every
	// pooled connection gets its own empty database.
	dsn := path + "?_foreign_keys=on&_journal_mode=WAL"
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		unit_of_measure TEXT NOT NULL,
		batchable INTEGER NOT NULL DEFAULT 0,
		lot_controlled INTEGER NOT NULL DEFAULT 0,
		auto_split_qty TEXT NOT NULL DEFAULT '0',
		batch_qty TEXT NOT NULL DEFAULT '0',
		min_order_qty TEXT NOT NULL DEFAULT '0',
		min_age_days INTEGER NOT NULL DEFAULT 0,
		min_shelf_life_days INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS inventories (
		item_id TEXT NOT NULL REFERENCES items(id),
		warehouse TEXT NOT NULL,
		planning_mode INTEGER NOT NULL DEFAULT 0,
		allocation_policy INTEGER NOT NULL DEFAULT 0,
		template_job_id TEXT NOT NULL DEFAULT '',
		purchase_storage_area TEXT NOT NULL DEFAULT '',
		unallocated TEXT NOT NULL DEFAULT '0',
		net_change INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (item_id, warehouse)
	);

	CREATE TABLE IF NOT EXISTS lots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id TEXT NOT NULL,
		warehouse TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		quantity TEXT NOT NULL,
		allocated TEXT NOT NULL DEFAULT '0',
		production_date TEXT NOT NULL,
		expiration TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_lots_inventory ON lots(item_id, warehouse);

	CREATE TABLE IF NOT EXISTS adjustments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		item_id TEXT NOT NULL,
		warehouse TEXT NOT NULL,
		quantity TEXT NOT NULL,
		date TEXT NOT NULL,
		reason_type TEXT NOT NULL,
		reason_json TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_adjustments_inventory ON adjustments(item_id, warehouse, date);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		product_item_id TEXT NOT NULL,
		quantity TEXT NOT NULL,
		need_date TEXT,
		priority INTEGER NOT NULL DEFAULT 0,
		customer TEXT NOT NULL DEFAULT '',
		order_number TEXT NOT NULL DEFAULT '',
		lot_code TEXT NOT NULL DEFAULT '',
		policy INTEGER NOT NULL DEFAULT 0,
		generated INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_jobs_lot_code ON jobs(lot_code) WHERE lot_code <> '';

	CREATE TABLE IF NOT EXISTS manufacturing_orders (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		quantity TEXT NOT NULL,
		successor_id TEXT NOT NULL DEFAULT '',
		product_warehouse TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_mos_job ON manufacturing_orders(job_id, position);

	CREATE TABLE IF NOT EXISTS material_requirements (
		id TEXT PRIMARY KEY,
		mo_id TEXT NOT NULL REFERENCES manufacturing_orders(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		operation_id TEXT NOT NULL DEFAULT '',
		item_id TEXT NOT NULL,
		warehouse TEXT NOT NULL DEFAULT '',
		storage_area TEXT NOT NULL DEFAULT '',
		required_qty TEXT NOT NULL,
		constraint_type INTEGER NOT NULL DEFAULT 0,
		allocation_policy INTEGER NOT NULL DEFAULT 0,
		allow_partial INTEGER NOT NULL DEFAULT 1,
		eligible_lots TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_reqs_mo ON material_requirements(mo_id, position);

	CREATE TABLE IF NOT EXISTS purchase_orders (
		order_number TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		warehouse TEXT NOT NULL,
		quantity TEXT NOT NULL,
		need_date TEXT,
		receipt_date TEXT,
		storage_area TEXT NOT NULL DEFAULT '',
		lot_code TEXT NOT NULL DEFAULT '',
		generated INTEGER NOT NULL DEFAULT 0,
		demand_links TEXT NOT NULL DEFAULT '[]'
	);

	CREATE TABLE IF NOT EXISTS sales_orders (
		order_number TEXT PRIMARY KEY,
		item_id TEXT NOT NULL,
		warehouse TEXT NOT NULL DEFAULT '',
		customer TEXT NOT NULL DEFAULT '',
		quantity TEXT NOT NULL,
		due_date TEXT,
		eligible_lots TEXT NOT NULL DEFAULT '[]'
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

const timeLayout = time.RFC3339

func encodeTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func decodeTime(s sql.NullString) (time.Time, error) {
	if !s.Valid || s.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s.String)
}

func decodeDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func encodeLotSet(set entities.LotSet) (string, error) {
	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	raw, err := json.Marshal(codes)
	return string(raw), err
}

func decodeLotSet(raw string) (entities.LotSet, error) {
	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		return nil, err
	}
	return entities.NewLotSet(codes...), nil
}
