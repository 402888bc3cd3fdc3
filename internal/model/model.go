// Package model describes the relational models a GraphQL schema is derived
// from. Models are declared by the owning application (or loaded from
// configuration) and handed to the schema builder as a validated Registry;
// this package never talks to the database itself.
package model

import (
	"fmt"

	"github.com/jinzhu/inflection"

	"github.com/flying-sheep/sqlgraphql/internal/sqltype"
)

// Field is one scalar column of a model.
type Field struct {
	Name          string
	Kind          sqltype.Kind
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
}

// RelKind classifies a relationship by its cardinality as seen from the
// declaring model.
type RelKind int

const (
	// ManyToOne points at a single related row through local FK columns.
	ManyToOne RelKind = iota
	// OneToMany points at a collection of rows holding an FK back to us.
	OneToMany
	// ManyToMany points at a collection reached through a junction table.
	ManyToMany
)

// Collection reports whether the relationship resolves to a list of rows.
func (k RelKind) Collection() bool {
	return k == OneToMany || k == ManyToMany
}

// Relationship connects a model to another model in the same registry.
//
// For ManyToOne, LocalColumns are FK columns on the declaring model and
// RemoteColumns the referenced columns on the target. For OneToMany the
// mapping is mirrored: LocalColumns are referenced columns here,
// RemoteColumns the FK columns on the target. ManyToMany additionally names
// the junction table and its FK columns toward each side.
type Relationship struct {
	Name          string
	Kind          RelKind
	Target        string
	LocalColumns  []string
	RemoteColumns []string

	Junction              string
	JunctionLocalColumns  []string
	JunctionRemoteColumns []string
}

// Model is one declared relational entity type. Its Name doubles as the
// table name and the generated GraphQL type name.
type Model struct {
	Name          string
	Fields        []Field
	Relationships []Relationship
}

// Field returns the named field, if declared.
func (m *Model) Field(name string) (*Field, bool) {
	for i := range m.Fields {
		if m.Fields[i].Name == name {
			return &m.Fields[i], true
		}
	}
	return nil, false
}

// Relationship returns the named relationship, if declared.
func (m *Model) Relationship(name string) (*Relationship, bool) {
	for i := range m.Relationships {
		if m.Relationships[i].Name == name {
			return &m.Relationships[i], true
		}
	}
	return nil, false
}

// PrimaryKey returns the primary key fields in declaration order.
func (m *Model) PrimaryKey() []Field {
	var pk []Field
	for _, f := range m.Fields {
		if f.PrimaryKey {
			pk = append(pk, f)
		}
	}
	return pk
}

// AutoIncrementPK returns the primary key field if it is a single
// auto-incrementing integer column.
func (m *Model) AutoIncrementPK() (*Field, bool) {
	pk := m.PrimaryKey()
	if len(pk) == 1 && pk[0].AutoIncrement && pk[0].Kind == sqltype.Int {
		f, ok := m.Field(pk[0].Name)
		return f, ok
	}
	return nil, false
}

// Columns returns all column names in declaration order.
func (m *Model) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Name
	}
	return cols
}

// NumericFields returns the fields eligible for the increment operation.
func (m *Model) NumericFields() []Field {
	var numeric []Field
	for _, f := range m.Fields {
		if f.Kind.Numeric() {
			numeric = append(numeric, f)
		}
	}
	return numeric
}

// Registry is the set of models one schema is built from.
type Registry struct {
	models []*Model
	byName map[string]*Model
}

// NewRegistry validates the given models and returns them as a Registry.
// Relationship names left empty are defaulted: collections get the
// pluralized target name, singular relationships the target name itself.
func NewRegistry(models ...*Model) (*Registry, error) {
	reg := &Registry{byName: make(map[string]*Model, len(models))}
	for _, m := range models {
		if m.Name == "" {
			return nil, fmt.Errorf("model with empty name")
		}
		if _, dup := reg.byName[m.Name]; dup {
			return nil, fmt.Errorf("duplicate model %s", m.Name)
		}
		if len(m.Fields) == 0 {
			return nil, fmt.Errorf("model %s has no fields", m.Name)
		}
		seen := make(map[string]struct{}, len(m.Fields))
		for _, f := range m.Fields {
			if _, dup := seen[f.Name]; dup {
				return nil, fmt.Errorf("model %s: duplicate field %s", m.Name, f.Name)
			}
			seen[f.Name] = struct{}{}
		}
		reg.byName[m.Name] = m
		reg.models = append(reg.models, m)
	}

	for _, m := range reg.models {
		for i := range m.Relationships {
			rel := &m.Relationships[i]
			if rel.Name == "" {
				if rel.Kind.Collection() {
					rel.Name = inflection.Plural(rel.Target)
				} else {
					rel.Name = rel.Target
				}
			}
			if err := reg.validateRelationship(m, rel); err != nil {
				return nil, err
			}
		}
	}

	return reg, nil
}

func (r *Registry) validateRelationship(m *Model, rel *Relationship) error {
	target, ok := r.byName[rel.Target]
	if !ok {
		return fmt.Errorf("model %s: relationship %s targets unknown model %s", m.Name, rel.Name, rel.Target)
	}
	if _, clash := m.Field(rel.Name); clash {
		return fmt.Errorf("model %s: relationship %s shadows a field", m.Name, rel.Name)
	}
	if len(rel.LocalColumns) == 0 || len(rel.LocalColumns) != len(rel.RemoteColumns) {
		return fmt.Errorf("model %s: relationship %s has mismatched column mapping", m.Name, rel.Name)
	}
	for _, col := range rel.LocalColumns {
		if _, ok := m.Field(col); !ok {
			return fmt.Errorf("model %s: relationship %s references unknown local column %s", m.Name, rel.Name, col)
		}
	}
	for _, col := range rel.RemoteColumns {
		if _, ok := target.Field(col); !ok {
			return fmt.Errorf("model %s: relationship %s references unknown column %s on %s", m.Name, rel.Name, col, rel.Target)
		}
	}
	if rel.Kind == ManyToMany {
		if rel.Junction == "" {
			return fmt.Errorf("model %s: relationship %s is many-to-many but names no junction table", m.Name, rel.Name)
		}
		if len(rel.JunctionLocalColumns) != len(rel.LocalColumns) {
			return fmt.Errorf("model %s: relationship %s junction local mapping width mismatch", m.Name, rel.Name)
		}
		if len(rel.JunctionRemoteColumns) != len(rel.RemoteColumns) {
			return fmt.Errorf("model %s: relationship %s junction remote mapping width mismatch", m.Name, rel.Name)
		}
	}
	return nil
}

// Model returns the named model, if registered.
func (r *Registry) Model(name string) (*Model, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// MustModel returns the named model or panics. Intended for wiring code
// where the name was already validated.
func (r *Registry) MustModel(name string) *Model {
	m, ok := r.byName[name]
	if !ok {
		panic(fmt.Sprintf("model not registered: %s", name))
	}
	return m
}

// Models returns all models in registration order.
func (r *Registry) Models() []*Model {
	return r.models
}
