// Package resolver builds and executes GraphQL schemas derived from a model
// registry. It generates object types, filter and mutation inputs, and root
// fields per model, and resolves them against the session attached to the
// request context.
package resolver

import (
	"fmt"
	"sync"

	"github.com/graphql-go/graphql"
	"github.com/spf13/cast"

	"github.com/flying-sheep/sqlgraphql/internal/logging"
	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/naming"
	"github.com/flying-sheep/sqlgraphql/internal/planner"
	"github.com/flying-sheep/sqlgraphql/internal/session"
)

// Resolver builds the GraphQL schema for a model registry. It caches the
// generated types so every reference to a model resolves to the same type
// instance within one build.
type Resolver struct {
	reg *model.Registry

	typeCache        map[string]*graphql.Object
	whereCache       map[string]*graphql.InputObject
	orderByCache     map[string]*graphql.InputObject
	comparisonCache  map[string]*graphql.InputObject
	insertInputCache map[string]*graphql.InputObject
	setInputCache    map[string]*graphql.InputObject
	incInputCache    map[string]*graphql.InputObject
	onConflictCache  map[string]*graphql.InputObject
	responseCache    map[string]*graphql.Object
	orderDirection   *graphql.Enum
	mu               sync.RWMutex
}

// NewResolver creates a resolver over a validated registry.
func NewResolver(reg *model.Registry) *Resolver {
	return &Resolver{
		reg:              reg,
		typeCache:        make(map[string]*graphql.Object),
		whereCache:       make(map[string]*graphql.InputObject),
		orderByCache:     make(map[string]*graphql.InputObject),
		comparisonCache:  make(map[string]*graphql.InputObject),
		insertInputCache: make(map[string]*graphql.InputObject),
		setInputCache:    make(map[string]*graphql.InputObject),
		incInputCache:    make(map[string]*graphql.InputObject),
		onConflictCache:  make(map[string]*graphql.InputObject),
		responseCache:    make(map[string]*graphql.Object),
	}
}

// BuildSchema generates the full schema: a list query and by-pk query per
// model, plus insert, update and delete mutations.
func (r *Resolver) BuildSchema() (graphql.Schema, error) {
	queryFields := graphql.Fields{}
	mutationFields := graphql.Fields{}

	for _, m := range r.reg.Models() {
		r.addModelQueries(queryFields, m)
		r.addModelMutations(mutationFields, m)
	}

	schemaConfig := graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: queryFields,
		}),
	}
	if len(mutationFields) > 0 {
		schemaConfig.Mutation = graphql.NewObject(graphql.ObjectConfig{
			Name:   "Mutation",
			Fields: mutationFields,
		})
	}

	return graphql.NewSchema(schemaConfig)
}

func (r *Resolver) addModelQueries(fields graphql.Fields, m *model.Model) {
	objType := r.buildObjectType(m)

	fields[naming.Query(m.Name)] = &graphql.Field{
		Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(objType))),
		Args:    r.listArgs(m),
		Resolve: r.makeListResolver(m),
	}

	if len(m.PrimaryKey()) > 0 {
		fields[naming.ByPK(m.Name)] = &graphql.Field{
			Type:    objType,
			Args:    r.pkArgs(m),
			Resolve: r.makeByPKResolver(m),
		}
	}
}

// listArgs are the shared list-shaping arguments: filter, ordering and
// pagination.
func (r *Resolver) listArgs(m *model.Model) graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"where":    &graphql.ArgumentConfig{Type: r.whereInput(m)},
		"order_by": &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(r.orderByInput(m)))},
		"limit":    &graphql.ArgumentConfig{Type: graphql.Int},
		"offset":   &graphql.ArgumentConfig{Type: graphql.Int},
	}
}

func (r *Resolver) pkArgs(m *model.Model) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{}
	for _, f := range m.PrimaryKey() {
		args[f.Name] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(f.Kind.GraphQL())}
	}
	return args
}

// buildObjectType returns the object type for a model, creating and caching
// it on first use. Fields are built lazily through a thunk so mutually
// referencing models do not recurse forever.
func (r *Resolver) buildObjectType(m *model.Model) *graphql.Object {
	r.mu.RLock()
	cached, ok := r.typeCache[m.Name]
	r.mu.RUnlock()
	if ok {
		return cached
	}

	objType := graphql.NewObject(graphql.ObjectConfig{
		Name: m.Name,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return r.buildObjectFields(m)
		}),
	})

	// Cache before building fields so circular references hit the cache.
	r.mu.Lock()
	if cached, ok := r.typeCache[m.Name]; ok {
		r.mu.Unlock()
		return cached
	}
	r.typeCache[m.Name] = objType
	r.mu.Unlock()

	return objType
}

func (r *Resolver) buildObjectFields(m *model.Model) graphql.Fields {
	fields := graphql.Fields{}

	for _, f := range m.Fields {
		var fieldType graphql.Output = f.Kind.GraphQL()
		if !f.Nullable {
			fieldType = graphql.NewNonNull(fieldType)
		}
		fields[f.Name] = &graphql.Field{
			Type:    fieldType,
			Resolve: r.makeColumnResolver(m, f.Name),
		}
	}

	for i := range m.Relationships {
		rel := &m.Relationships[i]
		target, ok := r.reg.Model(rel.Target)
		if !ok {
			continue
		}
		targetType := r.buildObjectType(target)

		if rel.Kind.Collection() {
			fields[rel.Name] = &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(targetType))),
				Args:    r.listArgs(target),
				Resolve: r.makeCollectionResolver(m, rel),
			}
		} else {
			fields[rel.Name] = &graphql.Field{
				Type:    targetType,
				Resolve: r.makeSingularResolver(m, rel),
			}
		}
	}

	return fields
}

// selectArgsFromParams extracts the list-shaping arguments. Absent limit and
// offset come through as zero, which the planner treats as unset.
func selectArgsFromParams(p graphql.ResolveParams) (planner.SelectArgs, error) {
	args := planner.SelectArgs{}

	if raw, ok := p.Args["where"]; ok && raw != nil {
		where, ok := raw.(map[string]interface{})
		if !ok {
			return args, fmt.Errorf("where must be an object")
		}
		args.Where = where
	}
	if raw, ok := p.Args["order_by"]; ok && raw != nil {
		orderBy, ok := raw.([]interface{})
		if !ok {
			return args, fmt.Errorf("order_by must be a list")
		}
		args.OrderBy = orderBy
	}

	var err error
	if args.Limit, err = cast.ToUint64E(p.Args["limit"]); err != nil && p.Args["limit"] != nil {
		return args, fmt.Errorf("invalid limit: %w", err)
	}
	if args.Offset, err = cast.ToUint64E(p.Args["offset"]); err != nil && p.Args["offset"] != nil {
		return args, fmt.Errorf("invalid offset: %w", err)
	}
	return args, nil
}

func sessionFromParams(p graphql.ResolveParams) (*session.Session, error) {
	s, ok := session.FromContext(p.Context)
	if !ok {
		return nil, fmt.Errorf("no database session in request context")
	}
	return s, nil
}

func (r *Resolver) makeListResolver(m *model.Model) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		s, err := sessionFromParams(p)
		if err != nil {
			return nil, err
		}
		args, err := selectArgsFromParams(p)
		if err != nil {
			return nil, err
		}
		q, err := planner.PlanSelect(r.reg, m, args)
		if err != nil {
			return nil, err
		}
		logging.FromContext(p.Context).Debug("executing list query", "model", m.Name, "sql", q.SQL)
		rows, err := s.Query(p.Context, q.SQL, q.Args...)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []map[string]interface{}{}
		}
		return rows, nil
	}
}

func (r *Resolver) makeByPKResolver(m *model.Model) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		s, err := sessionFromParams(p)
		if err != nil {
			return nil, err
		}
		row, err := s.GetByPK(p.Context, m, p.Args)
		if err != nil {
			return nil, err
		}
		if row == nil {
			// Missing rows resolve to null, not an error.
			return nil, nil
		}
		return row, nil
	}
}

// makeColumnResolver reads the column from the row map. A column absent from
// the map means the row was loaded before a write invalidated it, so it is
// refreshed from the database first.
func (r *Resolver) makeColumnResolver(m *model.Model, column string) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		row, ok := p.Source.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected source type %T for %s.%s", p.Source, m.Name, column)
		}
		if v, ok := row[column]; ok {
			return v, nil
		}
		s, ok := session.FromContext(p.Context)
		if !ok {
			return nil, nil
		}
		if err := s.Refresh(p.Context, m, row); err != nil {
			return nil, err
		}
		return row[column], nil
	}
}

// makeCollectionResolver resolves a collection relationship. When the field
// carries no arguments and the parent row already holds preloaded rows under
// the relationship name, those are returned without touching the database.
func (r *Resolver) makeCollectionResolver(m *model.Model, rel *model.Relationship) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		row, ok := p.Source.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected source type %T for %s.%s", p.Source, m.Name, rel.Name)
		}
		args, err := selectArgsFromParams(p)
		if err != nil {
			return nil, err
		}
		if len(args.Where) == 0 && len(args.OrderBy) == 0 && args.Limit == 0 && args.Offset == 0 {
			if preloaded, ok := row[rel.Name].([]map[string]interface{}); ok {
				return preloaded, nil
			}
		}
		s, err := sessionFromParams(p)
		if err != nil {
			return nil, err
		}
		q, err := planner.PlanSelectRelated(r.reg, m, rel, row, args)
		if err != nil {
			return nil, err
		}
		rows, err := s.Query(p.Context, q.SQL, q.Args...)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []map[string]interface{}{}
		}
		return rows, nil
	}
}

func (r *Resolver) makeSingularResolver(m *model.Model, rel *model.Relationship) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		row, ok := p.Source.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("unexpected source type %T for %s.%s", p.Source, m.Name, rel.Name)
		}
		if preloaded, ok := row[rel.Name].(map[string]interface{}); ok {
			return preloaded, nil
		}
		// A null foreign key resolves to null without a query.
		for _, col := range rel.LocalColumns {
			if v, ok := row[col]; !ok || v == nil {
				return nil, nil
			}
		}
		s, err := sessionFromParams(p)
		if err != nil {
			return nil, err
		}
		q, err := planner.PlanSelectRelated(r.reg, m, rel, row, planner.SelectArgs{})
		if err != nil {
			return nil, err
		}
		rows, err := s.Query(p.Context, q.SQL, q.Args...)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		return rows[0], nil
	}
}
