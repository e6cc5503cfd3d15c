// Package schema creates, drops and empties the warehouse relations.
package schema

import (
	"context"
	"fmt"

	"github.com/angelmondragon/sparkify-dwh/internal/dag"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
)

type Manager struct {
	store wh.Store
	logg  *logger.Logger
}

func NewManager(store wh.Store, logg *logger.Logger) *Manager {
	return &Manager{store: store, logg: logg}
}

// ResetSchema drops every owned relation if present, children first, then
// recreates them parents first. It is safe on an empty warehouse and on
// re-runs. The first DDL failure aborts; no partial-schema recovery.
func (m *Manager) ResetSchema(ctx context.Context) error {
	order, err := CreateOrder(Tables())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ordering tables")
	}
	d := m.store.Dialect()

	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if err := m.store.Exec(ctx, d.DropTableIfExists(name)); err != nil {
			return ddlError(err, fmt.Sprintf("drop table %s", name))
		}
		m.logg.Debug(m.logg.WithTable(ctx, name), "table dropped")
	}

	for _, name := range order {
		def, _ := Lookup(name)
		if err := m.store.Exec(ctx, d.CreateTable(def)); err != nil {
			return ddlError(err, fmt.Sprintf("create table %s", name))
		}
		m.logg.Info(m.logg.WithTable(ctx, name), "table created")
	}
	return nil
}

// ClearTargets empties the fact and dimension tables in one transactional
// unit so a transform-only run starts from nothing.
func (m *Manager) ClearTargets(ctx context.Context) error {
	order, err := CreateOrder(TargetTables())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ordering tables")
	}
	d := m.store.Dialect()

	stmts := make([]wh.Statement, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		stmts = append(stmts, d.DeleteAll(order[i]))
	}
	if err := m.store.ExecTx(ctx, stmts...); err != nil {
		return ddlError(err, "clear target tables")
	}
	m.logg.Info(ctx, "target tables cleared")
	return nil
}

// CreateOrder returns table names so every referenced table precedes the
// tables pointing at it.
func CreateOrder(defs []wh.TableDef) ([]string, error) {
	g := dag.New()
	for _, def := range defs {
		g.AddNode(def.Name)
	}
	for _, def := range defs {
		for _, ref := range def.References() {
			if err := g.AddEdge(ref, def.Name); err != nil {
				return nil, err
			}
		}
	}
	return g.TopologicalOrder()
}

// ddlError keeps transient store failures retryable and reports everything
// else as a schema error with the store text attached.
func ddlError(err error, msg string) error {
	classified := pkgerrors.Classify(err, pkgerrors.CodeSchema, msg)
	if pkgerrors.CodeOf(classified) == pkgerrors.CodeTransientStore {
		return classified
	}
	return pkgerrors.Wrap(pkgerrors.CodeSchema, err, msg)
}
