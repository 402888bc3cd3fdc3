package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flying-sheep/sqlgraphql/internal/sqltype"
)

func authorModel() *Model {
	return &Model{
		Name: "author",
		Fields: []Field{
			{Name: "name", Kind: sqltype.String, PrimaryKey: true},
		},
		Relationships: []Relationship{
			{Kind: OneToMany, Target: "article", LocalColumns: []string{"name"}, RemoteColumns: []string{"author_name"}},
		},
	}
}

func articleModel() *Model {
	return &Model{
		Name: "article",
		Fields: []Field{
			{Name: "id", Kind: sqltype.Int, PrimaryKey: true, AutoIncrement: true},
			{Name: "title", Kind: sqltype.String},
			{Name: "rating", Kind: sqltype.Int},
			{Name: "author_name", Kind: sqltype.String},
		},
		Relationships: []Relationship{
			{Kind: ManyToOne, Target: "author", LocalColumns: []string{"author_name"}, RemoteColumns: []string{"name"}},
		},
	}
}

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(authorModel(), articleModel())
	require.NoError(t, err)

	author := reg.MustModel("author")
	article := reg.MustModel("article")

	// Collection relationships default to the pluralized target name.
	rel, ok := author.Relationship("articles")
	require.True(t, ok)
	assert.Equal(t, OneToMany, rel.Kind)
	assert.True(t, rel.Kind.Collection())

	rel, ok = article.Relationship("author")
	require.True(t, ok)
	assert.Equal(t, ManyToOne, rel.Kind)
	assert.False(t, rel.Kind.Collection())

	_, ok = reg.Model("missing")
	assert.False(t, ok)
}

func TestNewRegistryRejectsUnknownTarget(t *testing.T) {
	_, err := NewRegistry(articleModel())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model author")
}

func TestNewRegistryRejectsDuplicateModel(t *testing.T) {
	_, err := NewRegistry(authorModel(), authorModel(), articleModel())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate model")
}

func TestNewRegistryRejectsBadColumnMapping(t *testing.T) {
	bad := articleModel()
	bad.Relationships[0].LocalColumns = []string{"nope"}
	_, err := NewRegistry(authorModel(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown local column")
}

func TestNewRegistryRejectsManyToManyWithoutJunction(t *testing.T) {
	tag := &Model{
		Name:   "tag",
		Fields: []Field{{Name: "name", Kind: sqltype.String, PrimaryKey: true}},
	}
	art := articleModel()
	art.Relationships = append(art.Relationships, Relationship{
		Kind:          ManyToMany,
		Target:        "tag",
		LocalColumns:  []string{"id"},
		RemoteColumns: []string{"name"},
	})
	_, err := NewRegistry(authorModel(), art, tag)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "junction")
}

func TestModelAccessors(t *testing.T) {
	art := articleModel()

	pk := art.PrimaryKey()
	require.Len(t, pk, 1)
	assert.Equal(t, "id", pk[0].Name)

	auto, ok := art.AutoIncrementPK()
	require.True(t, ok)
	assert.Equal(t, "id", auto.Name)

	assert.Equal(t, []string{"id", "title", "rating", "author_name"}, art.Columns())

	numeric := art.NumericFields()
	require.Len(t, numeric, 2)
	assert.Equal(t, "id", numeric[0].Name)
	assert.Equal(t, "rating", numeric[1].Name)

	_, ok = authorModel().AutoIncrementPK()
	assert.False(t, ok)
}
