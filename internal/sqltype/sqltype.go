// Package sqltype provides a shared mapping from declared model field kinds to
// GraphQL scalar types. This ensures consistent type mapping across schema
// generation and query resolution.
package sqltype

import (
	"strings"

	"github.com/graphql-go/graphql"
)

// Kind represents the scalar category of a model field.
type Kind int

const (
	// String is the default kind for text, dates, and unknown SQL types.
	String Kind = iota
	// Int represents integer numeric types.
	Int
	// Float represents floating-point and fixed-point numeric types.
	Float
	// Boolean represents boolean types.
	Boolean
)

// ParseSQLType converts a SQL data type string to its field kind.
// The input is case-insensitive. Size specifiers like (10,2) or (255) are
// stripped before matching.
func ParseSQLType(sqlType string) Kind {
	if idx := strings.Index(sqlType, "("); idx != -1 {
		sqlType = sqlType[:idx]
	}
	switch strings.ToUpper(strings.TrimSpace(sqlType)) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT",
		"INTEGER", "BIGINT", "SERIAL", "BIT":
		return Int
	case "FLOAT", "DOUBLE", "REAL", "DECIMAL", "NUMERIC":
		return Float
	case "BOOL", "BOOLEAN":
		return Boolean
	default:
		return String
	}
}

// String returns the GraphQL scalar type name for schema generation.
func (k Kind) String() string {
	switch k {
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Boolean:
		return "Boolean"
	default:
		return "String"
	}
}

// GraphQL returns the graphql-go scalar for the kind.
func (k Kind) GraphQL() *graphql.Scalar {
	switch k {
	case Int:
		return graphql.Int
	case Float:
		return graphql.Float
	case Boolean:
		return graphql.Boolean
	default:
		return graphql.String
	}
}

// Numeric reports whether the kind supports arithmetic, and thereby the
// increment operation on updates.
func (k Kind) Numeric() bool {
	return k == Int || k == Float
}

// Comparable reports whether the kind supports ordering comparisons.
func (k Kind) Comparable() bool {
	return k != Boolean
}
