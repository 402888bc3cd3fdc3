package naming

import "testing"

func TestDerivedNames(t *testing.T) {
	tests := []struct {
		got      string
		expected string
	}{
		{BoolExp("article"), "article_bool_exp"},
		{OrderBy("article"), "article_order_by"},
		{InsertInput("article"), "article_insert_input"},
		{SetInput("article"), "article_set_input"},
		{IncInput("article"), "article_inc_input"},
		{OnConflict("article"), "article_on_conflict"},
		{MutationResponse("article"), "article_mutation_response"},
		{Comparison("Int"), "Int_comparison_exp"},
		{Query("article"), "article"},
		{ByPK("article"), "article_by_pk"},
		{Insert("article"), "insert_article"},
		{InsertOne("article"), "insert_article_one"},
		{Update("article"), "update_article"},
		{UpdateByPK("article"), "update_article_by_pk"},
		{Delete("article"), "delete_article"},
		{DeleteByPK("article"), "delete_article_by_pk"},
	}

	for _, tt := range tests {
		if tt.got != tt.expected {
			t.Errorf("got %q, want %q", tt.got, tt.expected)
		}
	}
}
