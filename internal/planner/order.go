package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/sqlutil"
)

// CompileOrder turns an order_by argument, a list of {column: direction}
// objects, into ORDER BY expressions. List order is preserved; columns
// within one object are sorted by name since GraphQL objects carry no
// reliable key order through the map representation.
func CompileOrder(m *model.Model, orderBy []interface{}) ([]string, error) {
	var exprs []string
	for _, item := range orderBy {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("order_by items must be objects")
		}
		cols := make([]string, 0, len(entry))
		for col := range entry {
			cols = append(cols, col)
		}
		sort.Strings(cols)

		for _, col := range cols {
			if _, ok := m.Field(col); !ok {
				return nil, fmt.Errorf("unknown order_by column %s on %s", col, m.Name)
			}
			dir, ok := entry[col].(string)
			if !ok {
				return nil, fmt.Errorf("order_by direction for %s must be a string", col)
			}
			switch strings.ToLower(dir) {
			case "asc":
				exprs = append(exprs, sqlutil.QuoteIdentifier(col)+" ASC")
			case "desc":
				exprs = append(exprs, sqlutil.QuoteIdentifier(col)+" DESC")
			default:
				return nil, fmt.Errorf("unknown order_by direction %q for %s", dir, col)
			}
		}
	}
	return exprs, nil
}
