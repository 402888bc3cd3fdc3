package planner

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/sqlutil"
)

// CompileWhere turns a boolean filter input into a predicate over the
// model's table. An empty input compiles to a predicate matching all rows.
//
// Keys are classified against the model: the fixed combinators _and, _or and
// _not, then declared column names carrying comparison objects, then declared
// relationship names carrying a nested filter on the target model.
// Relationship filters compile to correlated (NOT) EXISTS subqueries, so
// they never multiply the rows of the outer query.
func CompileWhere(reg *model.Registry, m *model.Model, where map[string]interface{}) (sq.Sqlizer, error) {
	return CompileWhereQualified(reg, m, "", where)
}

// CompileWhereQualified is CompileWhere with column references qualified by
// the given table alias.
func CompileWhereQualified(reg *model.Registry, m *model.Model, alias string, where map[string]interface{}) (sq.Sqlizer, error) {
	state := &whereState{reg: reg}
	return state.compile(m, alias, where)
}

// matchAll is the vacuous-true predicate an empty filter compiles to. It is
// an explicit condition rather than an omitted one so _not and _or combine
// it like any other: {_not: {}} negates it and matches no rows.
func matchAll() sq.Sqlizer {
	return sq.Expr("(1=1)")
}

// whereState carries the alias counter across one filter compilation so
// nested subqueries get distinct, deterministic aliases.
type whereState struct {
	reg          *model.Registry
	aliasCounter int
}

func (s *whereState) nextAlias(table string) string {
	name := strings.ReplaceAll(table, "`", "")
	s.aliasCounter++
	return fmt.Sprintf("__%s_%d", name, s.aliasCounter)
}

// compile builds the predicate for one filter object. Sibling keys combine
// with AND. Keys are visited in sorted order so generated SQL is stable.
func (s *whereState) compile(m *model.Model, alias string, where map[string]interface{}) (sq.Sqlizer, error) {
	keys := make([]string, 0, len(where))
	for key := range where {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var conditions []sq.Sqlizer
	for _, key := range keys {
		value := where[key]
		switch key {
		case "_and", "_or":
			items, ok := value.([]interface{})
			if !ok {
				return nil, fmt.Errorf("%s must be a list", key)
			}
			var branch []sq.Sqlizer
			for _, item := range items {
				itemMap, ok := item.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("%s items must be objects", key)
				}
				cond, err := s.compile(m, alias, itemMap)
				if err != nil {
					return nil, err
				}
				branch = append(branch, cond)
			}
			if len(branch) == 0 {
				continue
			}
			if key == "_and" {
				conditions = append(conditions, sq.And(branch))
			} else {
				conditions = append(conditions, sq.Or(branch))
			}

		case "_not":
			itemMap, ok := value.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("_not must be an object")
			}
			cond, err := s.compile(m, alias, itemMap)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, notSqlizer{cond})

		default:
			if _, ok := m.Field(key); ok {
				comparison, ok := value.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("filter for column %s must be an object", key)
				}
				cond, err := s.compileColumn(sqlutil.Qualify(alias, key), comparison)
				if err != nil {
					return nil, err
				}
				conditions = append(conditions, cond)
				continue
			}

			rel, ok := m.Relationship(key)
			if !ok {
				return nil, fmt.Errorf("unknown filter key %s on %s", key, m.Name)
			}
			nested, ok := value.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("filter for relationship %s must be an object", key)
			}
			cond, err := s.compileRelationship(m, alias, rel, nested)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, cond)
		}
	}

	if len(conditions) == 0 {
		return matchAll(), nil
	}
	if len(conditions) == 1 {
		return conditions[0], nil
	}
	return sq.And(conditions), nil
}

// compileColumn builds the conjunction of all operators in one comparison
// object, in sorted operator order.
func (s *whereState) compileColumn(column string, comparison map[string]interface{}) (sq.Sqlizer, error) {
	ops := make([]string, 0, len(comparison))
	for op := range comparison {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	var conditions []sq.Sqlizer
	for _, op := range ops {
		cond, err := compileOperator(column, op, comparison[op])
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}
	if len(conditions) == 0 {
		return matchAll(), nil
	}
	if len(conditions) == 1 {
		return conditions[0], nil
	}
	return sq.And(conditions), nil
}

// compileRelationship builds an EXISTS predicate correlating the outer row
// with rows of the relationship's target that match the nested filter. For
// collection relationships this means "at least one related row matches";
// for singular relationships "the related row exists and matches".
func (s *whereState) compileRelationship(m *model.Model, outerAlias string, rel *model.Relationship, nested map[string]interface{}) (sq.Sqlizer, error) {
	target, ok := s.reg.Model(rel.Target)
	if !ok {
		return nil, fmt.Errorf("relationship %s targets unknown model %s", rel.Name, rel.Target)
	}

	// Root-level filters correlate against the bare table name so column
	// references inside the subquery are unambiguous.
	outerRef := outerAlias
	if outerRef == "" {
		outerRef = m.Name
	}

	var builder sq.SelectBuilder
	targetAlias := s.nextAlias(target.Name)

	if rel.Kind == model.ManyToMany {
		junctionAlias := s.nextAlias(rel.Junction)
		builder = sq.Select("1").
			From(fmt.Sprintf("%s AS %s", sqlutil.QuoteIdentifier(rel.Junction), sqlutil.QuoteIdentifier(junctionAlias))).
			Join(fmt.Sprintf("%s AS %s ON %s",
				sqlutil.QuoteIdentifier(target.Name), sqlutil.QuoteIdentifier(targetAlias),
				strings.Join(joinPairs(junctionAlias, rel.JunctionRemoteColumns, targetAlias, rel.RemoteColumns), " AND ")))
		for _, pair := range joinPairs(junctionAlias, rel.JunctionLocalColumns, outerRef, rel.LocalColumns) {
			builder = builder.Where(sq.Expr(pair))
		}
	} else {
		builder = sq.Select("1").
			From(fmt.Sprintf("%s AS %s", sqlutil.QuoteIdentifier(target.Name), sqlutil.QuoteIdentifier(targetAlias)))
		for _, pair := range joinPairs(targetAlias, rel.RemoteColumns, outerRef, rel.LocalColumns) {
			builder = builder.Where(sq.Expr(pair))
		}
	}

	if len(nested) > 0 {
		nestedCond, err := s.compile(target, targetAlias, nested)
		if err != nil {
			return nil, err
		}
		builder = builder.Where(nestedCond)
	}

	subquery, args, err := builder.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return nil, err
	}
	return sq.Expr(fmt.Sprintf("EXISTS (%s)", subquery), args...), nil
}

func joinPairs(leftAlias string, leftCols []string, rightAlias string, rightCols []string) []string {
	pairs := make([]string, len(leftCols))
	for i := range leftCols {
		pairs[i] = fmt.Sprintf("%s = %s",
			sqlutil.Qualify(leftAlias, leftCols[i]),
			sqlutil.Qualify(rightAlias, rightCols[i]))
	}
	return pairs
}

// notSqlizer negates a predicate. squirrel has no NOT combinator of its own.
type notSqlizer struct {
	inner sq.Sqlizer
}

func (n notSqlizer) ToSql() (string, []interface{}, error) {
	sql, args, err := n.inner.ToSql()
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("NOT (%s)", sql), args, nil
}
