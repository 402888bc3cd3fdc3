// Package planner compiles GraphQL argument trees into SQL statements. It
// owns the filter, ordering and pagination semantics of the generated
// schema; execution belongs to the session layer.
package planner

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/sqlutil"
)

// Query is a rendered SQL statement with its arguments.
type Query struct {
	SQL  string
	Args []interface{}
}

// SelectArgs are the list-shaping arguments shared by root list queries and
// relationship fields. A Limit or Offset of zero means unset.
type SelectArgs struct {
	Where   map[string]interface{}
	OrderBy []interface{}
	Limit   uint64
	Offset  uint64
}

// PlanSelect builds the list query for a model.
func PlanSelect(reg *model.Registry, m *model.Model, args SelectArgs) (Query, error) {
	builder := sq.Select(quotedColumns(m, "")...).From(sqlutil.QuoteIdentifier(m.Name))

	cond, err := CompileWhere(reg, m, args.Where)
	if err != nil {
		return Query{}, err
	}
	builder = builder.Where(cond)

	return finishSelect(builder, m, args)
}

// PlanSelectByPK builds the single-row query for a model.
func PlanSelectByPK(m *model.Model, pk map[string]interface{}) (Query, error) {
	pred, err := pkPredicate(m, pk)
	if err != nil {
		return Query{}, err
	}
	sql, sqlArgs, err := sq.Select(quotedColumns(m, "")...).
		From(sqlutil.QuoteIdentifier(m.Name)).
		Where(pred).
		ToSql()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: sqlArgs}, nil
}

// PlanSelectRelated builds the query for a relationship field: rows of the
// target correlated with one parent row, with the usual list-shaping
// arguments applied on top.
func PlanSelectRelated(reg *model.Registry, owner *model.Model, rel *model.Relationship, parentRow map[string]interface{}, args SelectArgs) (Query, error) {
	target, ok := reg.Model(rel.Target)
	if !ok {
		return Query{}, fmt.Errorf("relationship %s targets unknown model %s", rel.Name, rel.Target)
	}

	parentVals := make([]interface{}, len(rel.LocalColumns))
	for i, col := range rel.LocalColumns {
		v, ok := parentRow[col]
		if !ok {
			return Query{}, fmt.Errorf("parent row of %s is missing column %s", owner.Name, col)
		}
		parentVals[i] = v
	}

	var builder sq.SelectBuilder
	if rel.Kind == model.ManyToMany {
		// The target table keeps its own name as the alias so nested
		// filters correlate against it rather than the junction.
		builder = sq.Select(quotedColumns(target, target.Name)...).
			From(sqlutil.QuoteIdentifier(target.Name)).
			Join(fmt.Sprintf("%s ON %s",
				sqlutil.QuoteIdentifier(rel.Junction),
				joinOn(rel.Junction, rel.JunctionRemoteColumns, target.Name, rel.RemoteColumns)))
		for i, col := range rel.JunctionLocalColumns {
			builder = builder.Where(sq.Eq{sqlutil.Qualify(rel.Junction, col): parentVals[i]})
		}
	} else {
		builder = sq.Select(quotedColumns(target, "")...).From(sqlutil.QuoteIdentifier(target.Name))
		for i, col := range rel.RemoteColumns {
			builder = builder.Where(sq.Eq{sqlutil.QuoteIdentifier(col): parentVals[i]})
		}
	}

	var cond sq.Sqlizer
	var err error
	if rel.Kind == model.ManyToMany {
		cond, err = CompileWhereQualified(reg, target, target.Name, args.Where)
	} else {
		cond, err = CompileWhere(reg, target, args.Where)
	}
	if err != nil {
		return Query{}, err
	}
	builder = builder.Where(cond)

	return finishSelect(builder, target, args)
}

func finishSelect(builder sq.SelectBuilder, m *model.Model, args SelectArgs) (Query, error) {
	order, err := CompileOrder(m, args.OrderBy)
	if err != nil {
		return Query{}, err
	}
	if len(order) > 0 {
		builder = builder.OrderBy(order...)
	}
	if args.Limit > 0 {
		builder = builder.Limit(args.Limit)
	}
	if args.Offset > 0 {
		builder = builder.Offset(args.Offset)
	}

	sql, sqlArgs, err := builder.ToSql()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: sqlArgs}, nil
}

func quotedColumns(m *model.Model, alias string) []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = sqlutil.Qualify(alias, f.Name)
	}
	return cols
}

func joinOn(leftAlias string, leftCols []string, rightAlias string, rightCols []string) string {
	pairs := joinPairs(leftAlias, leftCols, rightAlias, rightCols)
	out := pairs[0]
	for _, p := range pairs[1:] {
		out += " AND " + p
	}
	return out
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
