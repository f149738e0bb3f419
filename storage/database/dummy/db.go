// Package dummydb is an in-memory storage used by tests and local runs without Postgres.
package dummydb

import (
	"context"
	"sync"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/attendance"
	"github.com/infast/crm/core/course"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/lead"
	"github.com/infast/crm/core/payment"
	"github.com/infast/crm/core/student"
)

type (
	// DB guards every table with a single RWMutex. Transactions are serialized by txMu
	// and roll back by restoring a snapshot taken when they started.
	DB struct {
		mu   sync.RWMutex
		txMu sync.Mutex
		tables
	}

	tables struct {
		courses    map[string]course.Course
		groups     map[string]group.Group
		leads      map[string]lead.Lead
		students   map[string]student.Student
		payments   map[string]payment.Payment
		attendance map[string]attendance.Attendance
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	db := &DB{
		tables: tables{
			courses:    make(map[string]course.Course),
			groups:     make(map[string]group.Group),
			leads:      make(map[string]lead.Lead),
			students:   make(map[string]student.Student),
			payments:   make(map[string]payment.Payment),
			attendance: make(map[string]attendance.Attendance),
		},
	}
	return db, nil
}

// RunInTx runs fn with a nil executor; repositories ignore it.
// Writes made outside the transaction while it runs are lost if it rolls back.
func (db *DB) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	db.mu.RLock()
	snapshot := db.tables.clone()
	db.mu.RUnlock()

	if err := fn(nil); err != nil {
		db.mu.Lock()
		db.tables = snapshot
		db.mu.Unlock()
		return err
	}
	return nil
}

func (t tables) clone() tables {
	return tables{
		courses:    cloneMap(t.courses),
		groups:     cloneMap(t.groups),
		leads:      cloneMap(t.leads),
		students:   cloneMap(t.students),
		payments:   cloneMap(t.payments),
		attendance: cloneMap(t.attendance),
	}
}

func cloneMap[T any](m map[string]T) map[string]T {
	c := make(map[string]T, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func inIDs(id string, ids []string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
