package sqltype

import (
	"testing"

	"github.com/graphql-go/graphql"
)

func TestParseSQLType(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
	}{
		{"INT", Int},
		{"int", Int},
		{"BIGINT", Int},
		{"TINYINT(1)", Int},
		{"DECIMAL(10,2)", Float},
		{"DOUBLE", Float},
		{"REAL", Float},
		{"BOOLEAN", Boolean},
		{"VARCHAR(255)", String},
		{"TEXT", String},
		{"DATETIME", String},
		{"something_unknown", String},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseSQLType(tt.input); got != tt.expected {
				t.Errorf("ParseSQLType(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestKindGraphQL(t *testing.T) {
	if Int.GraphQL() != graphql.Int {
		t.Error("Int should map to graphql.Int")
	}
	if Float.GraphQL() != graphql.Float {
		t.Error("Float should map to graphql.Float")
	}
	if Boolean.GraphQL() != graphql.Boolean {
		t.Error("Boolean should map to graphql.Boolean")
	}
	if String.GraphQL() != graphql.String {
		t.Error("String should map to graphql.String")
	}
}

func TestKindNumeric(t *testing.T) {
	if !Int.Numeric() || !Float.Numeric() {
		t.Error("Int and Float are numeric")
	}
	if String.Numeric() || Boolean.Numeric() {
		t.Error("String and Boolean are not numeric")
	}
}
