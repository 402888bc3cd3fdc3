package planner

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// ErrInvalidOperator reports a comparison key that is not part of the
// generated filter language.
var ErrInvalidOperator = errors.New("invalid operator")

// compileOperator turns one comparison entry into a predicate on the given
// (already quoted, possibly qualified) column reference.
//
// _in/_nin rely on squirrel's empty-list rendering: an empty _in list becomes
// a false predicate and an empty _nin list a true one, so empty lists match
// no rows and all rows respectively.
func compileOperator(column string, op string, value interface{}) (sq.Sqlizer, error) {
	switch op {
	case "_eq":
		return sq.Eq{column: value}, nil
	case "_neq":
		return sq.NotEq{column: value}, nil
	case "_in":
		list, err := operandList(op, value)
		if err != nil {
			return nil, err
		}
		return sq.Eq{column: list}, nil
	case "_nin":
		list, err := operandList(op, value)
		if err != nil {
			return nil, err
		}
		return sq.NotEq{column: list}, nil
	case "_lt":
		return sq.Lt{column: value}, nil
	case "_lte":
		return sq.LtOrEq{column: value}, nil
	case "_gt":
		return sq.Gt{column: value}, nil
	case "_gte":
		return sq.GtOrEq{column: value}, nil
	case "_is_null":
		isNull, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("_is_null expects a boolean, got %T", value)
		}
		if isNull {
			return sq.Eq{column: nil}, nil
		}
		return sq.NotEq{column: nil}, nil
	case "_like":
		return sq.Like{column: value}, nil
	case "_nlike":
		return sq.NotLike{column: value}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidOperator, op)
	}
}

func operandList(op string, value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case nil:
		return []interface{}{}, nil
	default:
		return nil, fmt.Errorf("%s expects a list, got %T", op, value)
	}
}
