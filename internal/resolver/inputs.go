package resolver

import (
	"github.com/graphql-go/graphql"

	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/naming"
	"github.com/flying-sheep/sqlgraphql/internal/sqltype"
)

// comparison operators per scalar. Ordering operators apply to comparable
// kinds only, _like and _nlike to strings only.
var (
	equalityOperators = []string{"_eq", "_neq", "_in", "_nin"}
	orderingOperators = []string{"_lt", "_lte", "_gt", "_gte"}
)

// whereInput returns the boolean filter input for a model: the _and/_or/_not
// combinators, a comparison object per column, and a nested filter per
// relationship.
func (r *Resolver) whereInput(m *model.Model) *graphql.InputObject {
	name := naming.BoolExp(m.Name)

	r.mu.RLock()
	cached, ok := r.whereCache[name]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	var input *graphql.InputObject
	input = graphql.NewInputObject(graphql.InputObjectConfig{
		Name: name,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := graphql.InputObjectConfigFieldMap{
				"_and": &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.NewNonNull(input))},
				"_or":  &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.NewNonNull(input))},
				"_not": &graphql.InputObjectFieldConfig{Type: input},
			}
			for _, f := range m.Fields {
				fields[f.Name] = &graphql.InputObjectFieldConfig{Type: r.comparisonInput(f.Kind)}
			}
			for _, rel := range m.Relationships {
				if target, ok := r.reg.Model(rel.Target); ok {
					fields[rel.Name] = &graphql.InputObjectFieldConfig{Type: r.whereInput(target)}
				}
			}
			return fields
		}),
	})

	r.mu.Lock()
	if cached, ok := r.whereCache[name]; ok {
		r.mu.Unlock()
		return cached
	}
	r.whereCache[name] = input
	r.mu.Unlock()

	return input
}

// comparisonInput returns the per-scalar comparison input, shared across all
// columns of the same kind.
func (r *Resolver) comparisonInput(kind sqltype.Kind) *graphql.InputObject {
	name := naming.Comparison(kind.String())

	r.mu.RLock()
	cached, ok := r.comparisonCache[name]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	scalar := kind.GraphQL()
	fields := graphql.InputObjectConfigFieldMap{
		"_is_null": &graphql.InputObjectFieldConfig{Type: graphql.Boolean},
	}
	for _, op := range equalityOperators {
		switch op {
		case "_in", "_nin":
			fields[op] = &graphql.InputObjectFieldConfig{Type: graphql.NewList(graphql.NewNonNull(scalar))}
		default:
			fields[op] = &graphql.InputObjectFieldConfig{Type: scalar}
		}
	}
	if kind.Comparable() {
		for _, op := range orderingOperators {
			fields[op] = &graphql.InputObjectFieldConfig{Type: scalar}
		}
	}
	if kind == sqltype.String {
		fields["_like"] = &graphql.InputObjectFieldConfig{Type: scalar}
		fields["_nlike"] = &graphql.InputObjectFieldConfig{Type: scalar}
	}

	input := graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   name,
		Fields: fields,
	})

	r.mu.Lock()
	if cached, ok := r.comparisonCache[name]; ok {
		r.mu.Unlock()
		return cached
	}
	r.comparisonCache[name] = input
	r.mu.Unlock()

	return input
}

// orderByInput returns the ordering input: one optional direction per column.
func (r *Resolver) orderByInput(m *model.Model) *graphql.InputObject {
	name := naming.OrderBy(m.Name)

	r.mu.RLock()
	cached, ok := r.orderByCache[name]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	fields := graphql.InputObjectConfigFieldMap{}
	for _, f := range m.Fields {
		fields[f.Name] = &graphql.InputObjectFieldConfig{Type: r.orderDirectionEnum()}
	}
	input := graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   name,
		Fields: fields,
	})

	r.mu.Lock()
	if cached, ok := r.orderByCache[name]; ok {
		r.mu.Unlock()
		return cached
	}
	r.orderByCache[name] = input
	r.mu.Unlock()

	return input
}

func (r *Resolver) orderDirectionEnum() *graphql.Enum {
	r.mu.RLock()
	cached := r.orderDirection
	r.mu.RUnlock()
	if cached != nil {
		return cached
	}

	enum := graphql.NewEnum(graphql.EnumConfig{
		Name: "order_direction",
		Values: graphql.EnumValueConfigMap{
			"asc":  &graphql.EnumValueConfig{Value: "asc"},
			"desc": &graphql.EnumValueConfig{Value: "desc"},
		},
	})

	r.mu.Lock()
	if r.orderDirection == nil {
		r.orderDirection = enum
	} else {
		enum = r.orderDirection
	}
	r.mu.Unlock()

	return enum
}

// insertInput returns the full-row insert input. Every column is optional;
// the database fills defaults and generated keys.
func (r *Resolver) insertInput(m *model.Model) *graphql.InputObject {
	return r.columnInput(m, naming.InsertInput(m.Name), r.insertInputCache, func(f model.Field) bool {
		return true
	})
}

// setInput returns the column-assignment input used by updates.
func (r *Resolver) setInput(m *model.Model) *graphql.InputObject {
	return r.columnInput(m, naming.SetInput(m.Name), r.setInputCache, func(f model.Field) bool {
		return true
	})
}

// incInput returns the increment input used by updates, covering only
// numeric columns.
func (r *Resolver) incInput(m *model.Model) *graphql.InputObject {
	return r.columnInput(m, naming.IncInput(m.Name), r.incInputCache, func(f model.Field) bool {
		return f.Kind.Numeric()
	})
}

func (r *Resolver) columnInput(m *model.Model, name string, cache map[string]*graphql.InputObject, include func(model.Field) bool) *graphql.InputObject {
	r.mu.RLock()
	cached, ok := cache[name]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	fields := graphql.InputObjectConfigFieldMap{}
	for _, f := range m.Fields {
		if include(f) {
			fields[f.Name] = &graphql.InputObjectFieldConfig{Type: f.Kind.GraphQL()}
		}
	}
	input := graphql.NewInputObject(graphql.InputObjectConfig{
		Name:   name,
		Fields: fields,
	})

	r.mu.Lock()
	if cached, ok := cache[name]; ok {
		r.mu.Unlock()
		return cached
	}
	cache[name] = input
	r.mu.Unlock()

	return input
}

// onConflictInput returns the conflict-handling input for inserts. With
// merge set, rows whose primary key already exists are updated in place.
func (r *Resolver) onConflictInput(m *model.Model) *graphql.InputObject {
	name := naming.OnConflict(m.Name)

	r.mu.RLock()
	cached, ok := r.onConflictCache[name]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	input := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: name,
		Fields: graphql.InputObjectConfigFieldMap{
			"merge": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})

	r.mu.Lock()
	if cached, ok := r.onConflictCache[name]; ok {
		r.mu.Unlock()
		return cached
	}
	r.onConflictCache[name] = input
	r.mu.Unlock()

	return input
}

// mutationResponse returns the affected_rows/returning envelope for write
// operations on a model.
func (r *Resolver) mutationResponse(m *model.Model) *graphql.Object {
	name := naming.MutationResponse(m.Name)

	r.mu.RLock()
	cached, ok := r.responseCache[name]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	objType := r.buildObjectType(m)
	response := graphql.NewObject(graphql.ObjectConfig{
		Name: name,
		Fields: graphql.Fields{
			"affected_rows": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"returning":     &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(objType)))},
		},
	})

	r.mu.Lock()
	if cached, ok := r.responseCache[name]; ok {
		r.mu.Unlock()
		return cached
	}
	r.responseCache[name] = response
	r.mu.Unlock()

	return response
}
