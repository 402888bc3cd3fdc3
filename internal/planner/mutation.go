package planner

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/sqlutil"
)

// UpdateChanges are the column assignments of an update operation. Set
// assigns values directly; Inc adds to the current value of numeric
// columns. When a column appears in both, Set wins.
type UpdateChanges struct {
	Set map[string]interface{}
	Inc map[string]interface{}
}

func (c UpdateChanges) empty() bool {
	return len(c.Set) == 0 && len(c.Inc) == 0
}

// PlanUpdate builds the filtered update statement for a model.
func PlanUpdate(reg *model.Registry, m *model.Model, where map[string]interface{}, changes UpdateChanges) (Query, error) {
	cond, err := CompileWhere(reg, m, where)
	if err != nil {
		return Query{}, err
	}
	return planUpdate(m, cond, changes)
}

// PlanUpdateByPK builds the single-row update statement for a model.
func PlanUpdateByPK(m *model.Model, pk map[string]interface{}, changes UpdateChanges) (Query, error) {
	pred, err := pkPredicate(m, pk)
	if err != nil {
		return Query{}, err
	}
	return planUpdate(m, pred, changes)
}

func planUpdate(m *model.Model, cond sq.Sqlizer, changes UpdateChanges) (Query, error) {
	if changes.empty() {
		return Query{}, fmt.Errorf("update of %s changes no columns", m.Name)
	}

	builder := sq.Update(sqlutil.QuoteIdentifier(m.Name))
	// Assignments follow field declaration order so generated SQL is stable.
	for _, f := range m.Fields {
		quoted := sqlutil.QuoteIdentifier(f.Name)
		if v, ok := changes.Set[f.Name]; ok {
			builder = builder.Set(quoted, v)
			continue
		}
		if v, ok := changes.Inc[f.Name]; ok {
			if !f.Kind.Numeric() {
				return Query{}, fmt.Errorf("column %s of %s is not numeric and cannot be incremented", f.Name, m.Name)
			}
			builder = builder.Set(quoted, sq.Expr(quoted+" + ?", v))
		}
	}

	sql, args, err := builder.Where(cond).ToSql()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: args}, nil
}

// PlanDelete builds the filtered delete statement for a model.
func PlanDelete(reg *model.Registry, m *model.Model, where map[string]interface{}) (Query, error) {
	cond, err := CompileWhere(reg, m, where)
	if err != nil {
		return Query{}, err
	}
	sql, args, err := sq.Delete(sqlutil.QuoteIdentifier(m.Name)).Where(cond).ToSql()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: args}, nil
}

// PlanDeleteByPK builds the single-row delete statement for a model.
func PlanDeleteByPK(m *model.Model, pk map[string]interface{}) (Query, error) {
	pred, err := pkPredicate(m, pk)
	if err != nil {
		return Query{}, err
	}
	sql, args, err := sq.Delete(sqlutil.QuoteIdentifier(m.Name)).Where(pred).ToSql()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: args}, nil
}

// PlanSelectPKs builds a query for the primary keys of all rows matching the
// filter. Mutations capture the keys before writing so they can return the
// affected rows afterwards without RETURNING support.
func PlanSelectPKs(reg *model.Registry, m *model.Model, where map[string]interface{}) (Query, error) {
	pk := m.PrimaryKey()
	if len(pk) == 0 {
		return Query{}, fmt.Errorf("model %s has no primary key", m.Name)
	}
	cols := make([]string, len(pk))
	for i, f := range pk {
		cols[i] = sqlutil.QuoteIdentifier(f.Name)
	}
	cond, err := CompileWhere(reg, m, where)
	if err != nil {
		return Query{}, err
	}
	sql, args, err := sq.Select(cols...).From(sqlutil.QuoteIdentifier(m.Name)).Where(cond).ToSql()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: args}, nil
}

// PlanSelectByPKs builds a query for the full rows of previously captured
// primary keys. Composite keys expand to an OR of per-row predicates.
func PlanSelectByPKs(m *model.Model, pkRows []map[string]interface{}) (Query, error) {
	if len(pkRows) == 0 {
		return Query{}, fmt.Errorf("no primary keys to select on %s", m.Name)
	}
	preds := make(sq.Or, 0, len(pkRows))
	for _, row := range pkRows {
		pred, err := pkPredicate(m, row)
		if err != nil {
			return Query{}, err
		}
		preds = append(preds, pred)
	}
	sql, args, err := sq.Select(quotedColumns(m, "")...).
		From(sqlutil.QuoteIdentifier(m.Name)).
		Where(preds).
		ToSql()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: args}, nil
}
