package resolver

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/session"
	"github.com/flying-sheep/sqlgraphql/internal/sqltype"
)

func blogRegistry(t *testing.T) *model.Registry {
	t.Helper()
	author := &model.Model{
		Name: "author",
		Fields: []model.Field{
			{Name: "name", Kind: sqltype.String, PrimaryKey: true},
		},
		Relationships: []model.Relationship{
			{Kind: model.OneToMany, Target: "article", LocalColumns: []string{"name"}, RemoteColumns: []string{"author_name"}},
		},
	}
	article := &model.Model{
		Name: "article",
		Fields: []model.Field{
			{Name: "id", Kind: sqltype.Int, PrimaryKey: true, AutoIncrement: true},
			{Name: "title", Kind: sqltype.String},
			{Name: "rating", Kind: sqltype.Int},
			{Name: "author_name", Kind: sqltype.String, Nullable: true},
		},
		Relationships: []model.Relationship{
			{Kind: model.ManyToOne, Target: "author", LocalColumns: []string{"author_name"}, RemoteColumns: []string{"name"}},
			{
				Kind:                  model.ManyToMany,
				Target:                "tag",
				LocalColumns:          []string{"id"},
				RemoteColumns:         []string{"name"},
				Junction:              "article_tag",
				JunctionLocalColumns:  []string{"article_id"},
				JunctionRemoteColumns: []string{"tag_name"},
			},
		},
	}
	tag := &model.Model{
		Name: "tag",
		Fields: []model.Field{
			{Name: "name", Kind: sqltype.String, PrimaryKey: true},
		},
	}
	reg, err := model.NewRegistry(author, article, tag)
	require.NoError(t, err)
	return reg
}

func buildSchema(t *testing.T) graphql.Schema {
	t.Helper()
	schema, err := NewResolver(blogRegistry(t)).BuildSchema()
	require.NoError(t, err)
	return schema
}

func mockContext(t *testing.T) (context.Context, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return session.WithSession(context.Background(), session.New(db)), mock
}

func TestBuildSchemaShape(t *testing.T) {
	schema := buildSchema(t)

	queryFields := schema.QueryType().Fields()
	for _, name := range []string{"author", "author_by_pk", "article", "article_by_pk", "tag", "tag_by_pk"} {
		assert.Contains(t, queryFields, name)
	}

	mutationFields := schema.MutationType().Fields()
	for _, name := range []string{
		"insert_article", "insert_article_one",
		"update_article", "update_article_by_pk",
		"delete_article", "delete_article_by_pk",
	} {
		assert.Contains(t, mutationFields, name)
	}

	// List fields carry the shared list-shaping arguments.
	argNames := map[string]bool{}
	for _, arg := range queryFields["article"].Args {
		argNames[arg.Name()] = true
	}
	for _, want := range []string{"where", "order_by", "limit", "offset"} {
		assert.True(t, argNames[want], "missing list arg %s", want)
	}

	// Generated input types follow the naming table.
	typeMap := schema.TypeMap()
	for _, name := range []string{
		"article_bool_exp", "article_order_by", "article_insert_input",
		"article_set_input", "article_inc_input", "article_on_conflict",
		"article_mutation_response", "Int_comparison_exp", "String_comparison_exp",
		"order_direction",
	} {
		assert.Contains(t, typeMap, name)
	}
}

func TestIncInputCoversOnlyNumericColumns(t *testing.T) {
	schema := buildSchema(t)

	incInput, ok := schema.TypeMap()["article_inc_input"].(*graphql.InputObject)
	require.True(t, ok)
	fields := incInput.Fields()
	assert.Contains(t, fields, "rating")
	assert.Contains(t, fields, "id")
	assert.NotContains(t, fields, "title")

	// Authors have no numeric columns, so no inc input is generated.
	assert.NotContains(t, schema.TypeMap(), "author_inc_input")
}

func TestComparisonInputOperatorsPerKind(t *testing.T) {
	task := &model.Model{
		Name: "task",
		Fields: []model.Field{
			{Name: "id", Kind: sqltype.Int, PrimaryKey: true},
			{Name: "done", Kind: sqltype.Boolean},
		},
	}
	reg, err := model.NewRegistry(task)
	require.NoError(t, err)
	schema, err := NewResolver(reg).BuildSchema()
	require.NoError(t, err)

	// Booleans have no ordering, so their comparison input carries equality
	// operators only.
	boolExp, ok := schema.TypeMap()["Boolean_comparison_exp"].(*graphql.InputObject)
	require.True(t, ok)
	fields := boolExp.Fields()
	assert.Contains(t, fields, "_eq")
	assert.Contains(t, fields, "_is_null")
	for _, op := range []string{"_lt", "_lte", "_gt", "_gte", "_like", "_nlike"} {
		assert.NotContains(t, fields, op)
	}

	intExp, ok := schema.TypeMap()["Int_comparison_exp"].(*graphql.InputObject)
	require.True(t, ok)
	assert.Contains(t, intExp.Fields(), "_lt")
	assert.Contains(t, intExp.Fields(), "_gte")
}

func TestListQueryExecution(t *testing.T) {
	schema := buildSchema(t)
	ctx, mock := mockContext(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `title`, `rating`, `author_name` FROM `article`")).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "rating", "author_name"}).
			AddRow(1, "Hunting", 5, "Felicitas").
			AddRow(2, "Fishing", 4, "Bjørk"))

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ article(where: {rating: {_gte: 3}}, order_by: [{rating: desc}]) { title rating } }`,
		Context:       ctx,
	})
	require.Empty(t, result.Errors)

	articles := result.Data.(map[string]interface{})["article"].([]interface{})
	require.Len(t, articles, 2)
	first := articles[0].(map[string]interface{})
	assert.Equal(t, "Hunting", first["title"])
	assert.Equal(t, 5, first["rating"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestByPKQueryReturnsNullForMissingRow(t *testing.T) {
	schema := buildSchema(t)
	ctx, mock := mockContext(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `title`, `rating`, `author_name` FROM `article`")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "rating", "author_name"}))

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ article_by_pk(id: 42) { title } }`,
		Context:       ctx,
	})
	require.Empty(t, result.Errors)
	assert.Nil(t, result.Data.(map[string]interface{})["article_by_pk"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManyToOneRelationshipExecution(t *testing.T) {
	schema := buildSchema(t)
	ctx, mock := mockContext(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM `article`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "rating", "author_name"}).
			AddRow(1, "Hunting", 5, "Felicitas"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `name` FROM `author`")).
		WithArgs("Felicitas").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Felicitas"))

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ article { title author { name } } }`,
		Context:       ctx,
	})
	require.Empty(t, result.Errors)

	articles := result.Data.(map[string]interface{})["article"].([]interface{})
	author := articles[0].(map[string]interface{})["author"].(map[string]interface{})
	assert.Equal(t, "Felicitas", author["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManyToOneNullForeignKeySkipsQuery(t *testing.T) {
	schema := buildSchema(t)
	ctx, mock := mockContext(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM `article`")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "rating", "author_name"}).
			AddRow(1, "Anonymous", 2, nil))

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `{ article { title author { name } } }`,
		Context:       ctx,
	})
	require.Empty(t, result.Errors)

	articles := result.Data.(map[string]interface{})["article"].([]interface{})
	assert.Nil(t, articles[0].(map[string]interface{})["author"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOneMutationExecution(t *testing.T) {
	schema := buildSchema(t)
	ctx, mock := mockContext(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `article`")).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `title`, `rating`, `author_name` FROM `article`")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "rating", "author_name"}).
			AddRow(7, "Hunting", 5, "Felicitas"))
	mock.ExpectCommit()

	result := graphql.Do(graphql.Params{
		Schema: schema,
		RequestString: `mutation {
			insert_article_one(object: {title: "Hunting", rating: 5, author_name: "Felicitas"}) { id title }
		}`,
		Context: ctx,
	})
	require.Empty(t, result.Errors)

	row := result.Data.(map[string]interface{})["insert_article_one"].(map[string]interface{})
	assert.Equal(t, 7, row["id"])
	assert.Equal(t, "Hunting", row["title"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMutationReturnsZeroForNoMatches(t *testing.T) {
	schema := buildSchema(t)
	ctx, mock := mockContext(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id` FROM `article`")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectCommit()

	result := graphql.Do(graphql.Params{
		Schema: schema,
		RequestString: `mutation {
			update_article(where: {rating: {_lt: 0}}, _set: {rating: 1}) { affected_rows returning { id } }
		}`,
		Context: ctx,
	})
	require.Empty(t, result.Errors)

	resp := result.Data.(map[string]interface{})["update_article"].(map[string]interface{})
	assert.Equal(t, 0, resp["affected_rows"])
	assert.Empty(t, resp["returning"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByPKMissingRowReturnsNull(t *testing.T) {
	schema := buildSchema(t)
	ctx, mock := mockContext(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `title`, `rating`, `author_name` FROM `article`")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "rating", "author_name"}))
	mock.ExpectCommit()

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: `mutation { delete_article_by_pk(id: 42) { id } }`,
		Context:       ctx,
	})
	require.Empty(t, result.Errors)
	assert.Nil(t, result.Data.(map[string]interface{})["delete_article_by_pk"])
	require.NoError(t, mock.ExpectationsWereMet())
}
