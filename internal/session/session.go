// Package session provides the database execution layer. A Session wraps a
// database handle, runs reads immediately, and stages writes until Flush so
// that a resolver can batch inserts and run them inside one transaction.
package session

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/sqlutil"
)

// Rows abstracts sql.Rows to allow wrapped cleanup behavior.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type pendingRow struct {
	model  *model.Model
	values map[string]interface{}
	merge  bool
}

// Session executes SQL against a database handle. Reads run immediately;
// writes queued with Add are deferred until Flush. While a transaction is
// open, all statements run inside it.
type Session struct {
	db      *sql.DB
	tx      *sql.Tx
	pending []pendingRow
}

// New creates a session over the given database handle.
func New(db *sql.DB) *Session {
	return &Session{db: db}
}

func (s *Session) querier() Querier {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// InTransaction reports whether a transaction is open.
func (s *Session) InTransaction() bool {
	return s.tx != nil
}

// Begin opens a transaction. Statements issued before Commit or Rollback run
// inside it.
func (s *Session) Begin(ctx context.Context) error {
	if s.tx != nil {
		return fmt.Errorf("transaction already open")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the open transaction.
func (s *Session) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("no transaction open")
	}
	err := s.tx.Commit()
	s.tx = nil
	return err
}

// Rollback aborts the open transaction and discards any unflushed writes.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return fmt.Errorf("no transaction open")
	}
	err := s.tx.Rollback()
	s.tx = nil
	s.pending = nil
	return err
}

// Query runs a read and scans all rows into maps keyed by column name.
func (s *Session) Query(ctx context.Context, query string, args ...any) ([]map[string]interface{}, error) {
	rows, err := s.querier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, normalizeError(err)
	}
	defer rows.Close()
	return ScanRows(rows)
}

// Exec runs a write statement.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.querier().ExecContext(ctx, query, args...)
	if err != nil {
		return nil, normalizeError(err)
	}
	return res, nil
}

// Add stages a row for insertion on the next Flush. With merge set, a row
// whose primary key already exists is updated in place instead of failing
// with a conflict.
func (s *Session) Add(m *model.Model, values map[string]interface{}, merge bool) {
	s.pending = append(s.pending, pendingRow{model: m, values: values, merge: merge})
}

// Flush writes all staged rows in order. Generated auto-increment keys are
// written back into the staged value maps. The queue is cleared on success;
// on error it is left intact so a Rollback can discard it.
func (s *Session) Flush(ctx context.Context) error {
	for _, p := range s.pending {
		if err := s.flushRow(ctx, p); err != nil {
			return err
		}
	}
	s.pending = nil
	return nil
}

func (s *Session) flushRow(ctx context.Context, p pendingRow) error {
	if p.merge {
		exists, err := s.pkExists(ctx, p.model, p.values)
		if err != nil {
			return err
		}
		if exists {
			return s.mergeUpdate(ctx, p.model, p.values)
		}
	}
	return s.insert(ctx, p.model, p.values)
}

func (s *Session) insert(ctx context.Context, m *model.Model, values map[string]interface{}) error {
	cols := make([]string, 0, len(values))
	for _, f := range m.Fields {
		if _, ok := values[f.Name]; ok {
			cols = append(cols, f.Name)
		}
	}
	builder := sq.Insert(sqlutil.QuoteIdentifier(m.Name))
	quoted := make([]string, len(cols))
	vals := make([]interface{}, len(cols))
	for i, c := range cols {
		quoted[i] = sqlutil.QuoteIdentifier(c)
		vals[i] = values[c]
	}
	query, args, err := builder.Columns(quoted...).Values(vals...).ToSql()
	if err != nil {
		return err
	}
	res, err := s.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if auto, ok := m.AutoIncrementPK(); ok {
		if _, given := values[auto.Name]; !given {
			id, err := res.LastInsertId()
			if err == nil {
				values[auto.Name] = id
			}
		}
	}
	return nil
}

func (s *Session) pkExists(ctx context.Context, m *model.Model, values map[string]interface{}) (bool, error) {
	pred, err := pkPredicate(m, values)
	if err != nil {
		return false, err
	}
	query, args, err := sq.Select("1").From(sqlutil.QuoteIdentifier(m.Name)).Where(pred).Limit(1).ToSql()
	if err != nil {
		return false, err
	}
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (s *Session) mergeUpdate(ctx context.Context, m *model.Model, values map[string]interface{}) error {
	pred, err := pkPredicate(m, values)
	if err != nil {
		return err
	}
	builder := sq.Update(sqlutil.QuoteIdentifier(m.Name))
	changed := false
	for _, f := range m.Fields {
		if f.PrimaryKey {
			continue
		}
		if v, ok := values[f.Name]; ok {
			builder = builder.Set(sqlutil.QuoteIdentifier(f.Name), v)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	query, args, err := builder.Where(pred).ToSql()
	if err != nil {
		return err
	}
	_, err = s.Exec(ctx, query, args...)
	return err
}

// GetByPK fetches one row by primary key, or nil when it does not exist.
func (s *Session) GetByPK(ctx context.Context, m *model.Model, pk map[string]interface{}) (map[string]interface{}, error) {
	pred, err := pkPredicate(m, pk)
	if err != nil {
		return nil, err
	}
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = sqlutil.QuoteIdentifier(f.Name)
	}
	query, args, err := sq.Select(cols...).From(sqlutil.QuoteIdentifier(m.Name)).Where(pred).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Refresh reloads a row from the database in place. The row map must carry
// the model's primary key values.
func (s *Session) Refresh(ctx context.Context, m *model.Model, row map[string]interface{}) error {
	fresh, err := s.GetByPK(ctx, m, row)
	if err != nil {
		return err
	}
	if fresh == nil {
		return fmt.Errorf("row vanished during refresh on %s", m.Name)
	}
	for k, v := range fresh {
		row[k] = v
	}
	return nil
}

func pkPredicate(m *model.Model, values map[string]interface{}) (sq.Eq, error) {
	pk := m.PrimaryKey()
	if len(pk) == 0 {
		return nil, fmt.Errorf("model %s has no primary key", m.Name)
	}
	pred := sq.Eq{}
	for _, f := range pk {
		v, ok := values[f.Name]
		if !ok {
			return nil, fmt.Errorf("missing primary key column %s for %s", f.Name, m.Name)
		}
		pred[sqlutil.QuoteIdentifier(f.Name)] = v
	}
	return pred, nil
}

// ScanRows scans all rows into maps keyed by column name. []byte values are
// converted to string so they serialize as GraphQL strings.
func ScanRows(rows Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			row[col] = convertValue(values[i])
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func convertValue(val interface{}) interface{} {
	if val == nil {
		return nil
	}

	// Convert []byte to string
	if b, ok := val.([]byte); ok {
		return string(b)
	}

	return val
}
