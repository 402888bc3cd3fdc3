package integration

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/resolver"
	"github.com/flying-sheep/sqlgraphql/internal/session"
	"github.com/flying-sheep/sqlgraphql/internal/sqltype"
)

const schemaDDL = `
CREATE TABLE author (
	name TEXT PRIMARY KEY
);
CREATE TABLE article (
	title TEXT PRIMARY KEY,
	rating INTEGER NOT NULL,
	author_name TEXT REFERENCES author(name)
);
CREATE TABLE tag (
	name TEXT PRIMARY KEY
);
CREATE TABLE article_tag (
	article_title TEXT NOT NULL REFERENCES article(title),
	tag_name TEXT NOT NULL REFERENCES tag(name),
	PRIMARY KEY (article_title, tag_name)
);
`

// Seed data: three authors, five articles, two tags.
const seedDML = `
INSERT INTO author (name) VALUES ('Felicitas'), ('Bjørk'), ('Lundth');
INSERT INTO article (title, rating, author_name) VALUES
	('Felicitas good', 4, 'Felicitas'),
	('Felicitas better', 5, 'Felicitas'),
	('Bjørk bad', 2, 'Bjørk'),
	('Bjørk good', 4, 'Bjørk'),
	('Lundth bad', 1, 'Lundth');
INSERT INTO tag (name) VALUES ('Politics'), ('Sports');
INSERT INTO article_tag (article_title, tag_name) VALUES
	('Felicitas better', 'Politics'),
	('Felicitas better', 'Sports'),
	('Bjørk good', 'Politics'),
	('Lundth bad', 'Sports');
`

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
			{Name: "title", Kind: sqltype.String, PrimaryKey: true},
			{Name: "rating", Kind: sqltype.Int},
			{Name: "author_name", Kind: sqltype.String, Nullable: true},
		},
		Relationships: []model.Relationship{
			{Kind: model.ManyToOne, Target: "author", LocalColumns: []string{"author_name"}, RemoteColumns: []string{"name"}},
			{
				Kind:                  model.ManyToMany,
				Target:                "tag",
				LocalColumns:          []string{"title"},
				RemoteColumns:         []string{"name"},
				Junction:              "article_tag",
				JunctionLocalColumns:  []string{"article_title"},
				JunctionRemoteColumns: []string{"tag_name"},
			},
		},
	}
	tag := &model.Model{
		Name: "tag",
		Fields: []model.Field{
			{Name: "name", Kind: sqltype.String, PrimaryKey: true},
		},
		Relationships: []model.Relationship{
			{
				Kind:                  model.ManyToMany,
				Target:                "article",
				LocalColumns:          []string{"name"},
				RemoteColumns:         []string{"title"},
				Junction:              "article_tag",
				JunctionLocalColumns:  []string{"tag_name"},
				JunctionRemoteColumns: []string{"article_title"},
			},
		},
	}
	reg, err := model.NewRegistry(author, article, tag)
	require.NoError(t, err)
	return reg
}

// newBlogSchema opens a fresh in-memory database, applies DDL and seed data,
// and builds the GraphQL schema over it. The returned context carries the
// session resolvers execute against.
func newBlogSchema(t *testing.T) (graphql.Schema, context.Context) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	// A single connection keeps the in-memory database alive and avoids
	// cross-connection visibility surprises.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)
	_, err = db.Exec(schemaDDL)
	require.NoError(t, err)
	_, err = db.Exec(seedDML)
	require.NoError(t, err)

	schema, err := resolver.NewResolver(blogRegistry(t)).BuildSchema()
	require.NoError(t, err)

	ctx := session.WithSession(context.Background(), session.New(db))
	return schema, ctx
}

func doGraphQL(t *testing.T, schema graphql.Schema, ctx context.Context, query string) map[string]interface{} {
	t.Helper()
	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       ctx,
	})
	require.Empty(t, result.Errors, "unexpected GraphQL errors for query: %s", query)
	return result.Data.(map[string]interface{})
}

func titles(t *testing.T, rows interface{}) []string {
	return column(t, rows, "title")
}

func names(t *testing.T, rows interface{}) []string {
	return column(t, rows, "name")
}

func column(t *testing.T, rows interface{}, field string) []string {
	t.Helper()
	list, ok := rows.([]interface{})
	require.True(t, ok, "expected a list, got %T", rows)
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = item.(map[string]interface{})[field].(string)
	}
	return out
}
