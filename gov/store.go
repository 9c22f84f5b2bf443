// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"context"
	"fmt"

	"blockwatch.cc/packdb/pack"
	"blockwatch.cc/packdb/store"

	"github.com/Preciousbas/polichain-governance/gov/model"
)

const (
	GovDBKey    = "gov"
	StateDBName = "state.db"

	// state database schema
	stateDBSchemaName    = "2024-05-10"
	stateDBSchemaVersion = 1
	stateDBKey           = "statedb"
)

// Store owns the governance pack database and the bolt-backed scalar
// state. All row tables live in one pack db; tip and genesis blobs live
// in the state db.
type Store struct {
	db      *pack.DB
	statedb store.DB
	path    string
	label   string
	dbopts  interface{}
	tables  map[string]*pack.Table
}

func NewStore(path, label string, dbopts interface{}, statedb store.DB) *Store {
	return &Store{
		path:    path,
		label:   label,
		dbopts:  dbopts,
		statedb: statedb,
		tables:  make(map[string]*pack.Table),
	}
}

func (s *Store) DB() *pack.DB {
	return s.db
}

func (s *Store) StateDB() store.DB {
	return s.statedb
}

func (s *Store) Tables() []*pack.Table {
	t := []*pack.Table{}
	for _, v := range s.tables {
		t = append(t, v)
	}
	return t
}

// Table returns the named table or an error when it does not exist.
func (s *Store) Table(key string) (*pack.Table, error) {
	t, ok := s.tables[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrNoTable, key)
	}
	return t, nil
}

func (s *Store) TableStats() map[string]pack.TableStats {
	stats := make(map[string]pack.TableStats)
	for _, t := range s.tables {
		stats[t.Name()] = t.Stats()
	}
	return stats
}

func (s *Store) MemStats() map[string]pack.TableSizeStats {
	stats := make(map[string]pack.TableSizeStats)
	for _, t := range s.tables {
		stats[t.Name()] = t.Size()
	}
	return stats
}

// Create builds all governance tables in a fresh database.
func (s *Store) Create() error {
	db, err := pack.CreateDatabase(s.path, GovDBKey, s.label, s.dbopts)
	if err != nil {
		return fmt.Errorf("creating %s database: %w", GovDBKey, err)
	}
	defer db.Close()

	for _, m := range model.GovTables {
		key := m.TableKey()
		fields, err := pack.Fields(m)
		if err != nil {
			return fmt.Errorf("reading fields for table %q from type %T: %v", key, m, err)
		}
		opts := m.TableOpts().Merge(model.ReadConfigOpts(key))
		_, err = db.CreateTableIfNotExists(key, fields, opts)
		if err != nil {
			return err
		}
	}
	return nil
}

// Init opens the database and all governance tables.
func (s *Store) Init() error {
	db, err := pack.OpenDatabase(s.path, GovDBKey, s.label, s.dbopts)
	if err != nil {
		return err
	}
	s.db = db

	for _, m := range model.GovTables {
		key := m.TableKey()
		topts := m.TableOpts().Merge(model.ReadConfigOpts(key))
		table, err := s.db.Table(key, topts)
		if err != nil {
			s.Close()
			return err
		}
		s.tables[key] = table
	}
	return nil
}

func (s *Store) Close() error {
	for n, v := range s.tables {
		if v != nil {
			if err := v.Close(); err != nil {
				log.Errorf("Closing %s table: %s", n, err)
			}
		}
		delete(s.tables, n)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
		s.db = nil
	}
	return nil
}

// Flush flushes journals of all tables to disk.
func (s *Store) Flush(ctx context.Context) error {
	for _, v := range s.tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debugf("Flushing %s table.", v.Name())
		if err := v.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// FlushJournals flushes journal data of all tables to disk.
func (s *Store) FlushJournals(ctx context.Context) error {
	for _, v := range s.tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debugf("Flushing %s journal.", v.Name())
		if err := v.FlushJournal(ctx); err != nil {
			return err
		}
	}
	return nil
}

// GC compacts all tables and the underlying storage files.
func (s *Store) GC(ctx context.Context, ratio float64) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	for _, v := range s.tables {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Debugf("Compacting %s table.", v.Name())
		if err := v.Compact(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debugf("Garbage collecting %s database.", GovDBKey)
	return s.db.GC(ctx, ratio)
}
