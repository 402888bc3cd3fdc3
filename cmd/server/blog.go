package main

import (
	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/sqltype"
)

// blogRegistry declares the demo blog schema: authors write articles, and
// articles are tagged through a junction table. Field kinds are derived from
// the column types of the backing tables.
func blogRegistry() (*model.Registry, error) {
	author := &model.Model{
		Name: "author",
		Fields: []model.Field{
			{Name: "name", Kind: sqltype.ParseSQLType("VARCHAR(255)"), PrimaryKey: true},
		},
		Relationships: []model.Relationship{
			{Kind: model.OneToMany, Target: "article", LocalColumns: []string{"name"}, RemoteColumns: []string{"author_name"}},
		},
	}
	article := &model.Model{
		Name: "article",
		Fields: []model.Field{
			{Name: "title", Kind: sqltype.ParseSQLType("VARCHAR(255)"), PrimaryKey: true},
			{Name: "rating", Kind: sqltype.ParseSQLType("INT")},
			{Name: "author_name", Kind: sqltype.ParseSQLType("VARCHAR(255)"), Nullable: true},
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
			{Name: "name", Kind: sqltype.ParseSQLType("VARCHAR(255)"), PrimaryKey: true},
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
	return model.NewRegistry(author, article, tag)
}
