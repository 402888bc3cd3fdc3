package resolver

import (
	"context"
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/mitchellh/mapstructure"

	"github.com/flying-sheep/sqlgraphql/internal/logging"
	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/naming"
	"github.com/flying-sheep/sqlgraphql/internal/planner"
	"github.com/flying-sheep/sqlgraphql/internal/session"
)

type onConflict struct {
	Merge bool `mapstructure:"merge"`
}

func (r *Resolver) addModelMutations(fields graphql.Fields, m *model.Model) {
	if len(m.PrimaryKey()) == 0 {
		return
	}

	objType := r.buildObjectType(m)
	response := r.mutationResponse(m)
	insertInput := r.insertInput(m)
	conflictInput := r.onConflictInput(m)

	fields[naming.Insert(m.Name)] = &graphql.Field{
		Type: response,
		Args: graphql.FieldConfigArgument{
			"objects":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(insertInput)))},
			"on_conflict": &graphql.ArgumentConfig{Type: conflictInput},
		},
		Resolve: r.makeInsertResolver(m, false),
	}
	fields[naming.InsertOne(m.Name)] = &graphql.Field{
		Type: objType,
		Args: graphql.FieldConfigArgument{
			"object":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(insertInput)},
			"on_conflict": &graphql.ArgumentConfig{Type: conflictInput},
		},
		Resolve: r.makeInsertResolver(m, true),
	}

	updateArgs := graphql.FieldConfigArgument{
		"_set": &graphql.ArgumentConfig{Type: r.setInput(m)},
	}
	updateByPKArgs := r.pkArgs(m)
	updateByPKArgs["_set"] = &graphql.ArgumentConfig{Type: r.setInput(m)}
	if len(m.NumericFields()) > 0 {
		updateArgs["_inc"] = &graphql.ArgumentConfig{Type: r.incInput(m)}
		updateByPKArgs["_inc"] = &graphql.ArgumentConfig{Type: r.incInput(m)}
	}
	updateArgs["where"] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(r.whereInput(m))}

	fields[naming.Update(m.Name)] = &graphql.Field{
		Type:    response,
		Args:    updateArgs,
		Resolve: r.makeUpdateResolver(m),
	}
	fields[naming.UpdateByPK(m.Name)] = &graphql.Field{
		Type:    objType,
		Args:    updateByPKArgs,
		Resolve: r.makeUpdateByPKResolver(m),
	}

	fields[naming.Delete(m.Name)] = &graphql.Field{
		Type: response,
		Args: graphql.FieldConfigArgument{
			"where": &graphql.ArgumentConfig{Type: r.whereInput(m)},
		},
		Resolve: r.makeDeleteResolver(m),
	}
	fields[naming.DeleteByPK(m.Name)] = &graphql.Field{
		Type:    objType,
		Args:    r.pkArgs(m),
		Resolve: r.makeDeleteByPKResolver(m),
	}
}

// inTransaction runs fn inside a transaction on the request's session. A
// session already inside a transaction is reused so nested mutation fields
// in one request share it; otherwise the transaction is committed on success
// and rolled back on error.
func inTransaction(ctx context.Context, s *session.Session, fn func() (interface{}, error)) (interface{}, error) {
	if s.InTransaction() {
		return fn()
	}
	if err := s.Begin(ctx); err != nil {
		return nil, err
	}
	result, err := fn()
	if err != nil {
		if rbErr := s.Rollback(); rbErr != nil {
			logging.FromContext(ctx).Error("rollback failed", "error", rbErr)
		}
		return nil, err
	}
	if err := s.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

func mutationResponseMap(affected int, returning []map[string]interface{}) map[string]interface{} {
	if returning == nil {
		returning = []map[string]interface{}{}
	}
	return map[string]interface{}{
		"affected_rows": affected,
		"returning":     returning,
	}
}

func (r *Resolver) makeInsertResolver(m *model.Model, single bool) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		s, err := sessionFromParams(p)
		if err != nil {
			return nil, err
		}

		var conflict onConflict
		if raw, ok := p.Args["on_conflict"]; ok && raw != nil {
			if err := mapstructure.Decode(raw, &conflict); err != nil {
				return nil, fmt.Errorf("invalid on_conflict argument: %w", err)
			}
		}

		var objects []map[string]interface{}
		if single {
			obj, ok := p.Args["object"].(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("object must be an object")
			}
			objects = []map[string]interface{}{obj}
		} else {
			raw, ok := p.Args["objects"].([]interface{})
			if !ok {
				return nil, fmt.Errorf("objects must be a list")
			}
			for _, item := range raw {
				obj, ok := item.(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("objects items must be objects")
				}
				objects = append(objects, obj)
			}
		}

		return inTransaction(p.Context, s, func() (interface{}, error) {
			for _, obj := range objects {
				s.Add(m, obj, conflict.Merge)
			}
			if err := s.Flush(p.Context); err != nil {
				return nil, err
			}
			// Flush wrote generated keys back, so the staged maps now
			// identify their rows.
			returning := make([]map[string]interface{}, 0, len(objects))
			for _, obj := range objects {
				row, err := s.GetByPK(p.Context, m, obj)
				if err != nil {
					return nil, err
				}
				if row == nil {
					return nil, fmt.Errorf("inserted row not found on %s", m.Name)
				}
				returning = append(returning, row)
			}
			if single {
				return returning[0], nil
			}
			return mutationResponseMap(len(returning), returning), nil
		})
	}
}

func updateChangesFromArgs(args map[string]interface{}) (planner.UpdateChanges, error) {
	changes := planner.UpdateChanges{}
	if raw, ok := args["_set"]; ok && raw != nil {
		set, ok := raw.(map[string]interface{})
		if !ok {
			return changes, fmt.Errorf("_set must be an object")
		}
		changes.Set = set
	}
	if raw, ok := args["_inc"]; ok && raw != nil {
		inc, ok := raw.(map[string]interface{})
		if !ok {
			return changes, fmt.Errorf("_inc must be an object")
		}
		changes.Inc = inc
	}
	return changes, nil
}

func (r *Resolver) makeUpdateResolver(m *model.Model) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		s, err := sessionFromParams(p)
		if err != nil {
			return nil, err
		}
		where, _ := p.Args["where"].(map[string]interface{})
		changes, err := updateChangesFromArgs(p.Args)
		if err != nil {
			return nil, err
		}

		return inTransaction(p.Context, s, func() (interface{}, error) {
			// Capture matching keys first: the update may move rows out of
			// the filter, and there is no portable RETURNING clause.
			pksQuery, err := planner.PlanSelectPKs(r.reg, m, where)
			if err != nil {
				return nil, err
			}
			pkRows, err := s.Query(p.Context, pksQuery.SQL, pksQuery.Args...)
			if err != nil {
				return nil, err
			}
			if len(pkRows) == 0 {
				return mutationResponseMap(0, nil), nil
			}

			q, err := planner.PlanUpdate(r.reg, m, where, changes)
			if err != nil {
				return nil, err
			}
			if _, err := s.Exec(p.Context, q.SQL, q.Args...); err != nil {
				return nil, err
			}

			returningQuery, err := planner.PlanSelectByPKs(m, pkRows)
			if err != nil {
				return nil, err
			}
			returning, err := s.Query(p.Context, returningQuery.SQL, returningQuery.Args...)
			if err != nil {
				return nil, err
			}
			return mutationResponseMap(len(pkRows), returning), nil
		})
	}
}

func (r *Resolver) makeUpdateByPKResolver(m *model.Model) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		s, err := sessionFromParams(p)
		if err != nil {
			return nil, err
		}
		changes, err := updateChangesFromArgs(p.Args)
		if err != nil {
			return nil, err
		}

		return inTransaction(p.Context, s, func() (interface{}, error) {
			existing, err := s.GetByPK(p.Context, m, p.Args)
			if err != nil {
				return nil, err
			}
			if existing == nil {
				return nil, nil
			}
			q, err := planner.PlanUpdateByPK(m, p.Args, changes)
			if err != nil {
				return nil, err
			}
			if _, err := s.Exec(p.Context, q.SQL, q.Args...); err != nil {
				return nil, err
			}
			return s.GetByPK(p.Context, m, p.Args)
		})
	}
}

func (r *Resolver) makeDeleteResolver(m *model.Model) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		s, err := sessionFromParams(p)
		if err != nil {
			return nil, err
		}
		where, _ := p.Args["where"].(map[string]interface{})

		return inTransaction(p.Context, s, func() (interface{}, error) {
			// Deleted rows are gone once the statement runs, so fetch the
			// returning set first.
			selectQuery, err := planner.PlanSelect(r.reg, m, planner.SelectArgs{Where: where})
			if err != nil {
				return nil, err
			}
			returning, err := s.Query(p.Context, selectQuery.SQL, selectQuery.Args...)
			if err != nil {
				return nil, err
			}

			q, err := planner.PlanDelete(r.reg, m, where)
			if err != nil {
				return nil, err
			}
			if _, err := s.Exec(p.Context, q.SQL, q.Args...); err != nil {
				return nil, err
			}
			return mutationResponseMap(len(returning), returning), nil
		})
	}
}

func (r *Resolver) makeDeleteByPKResolver(m *model.Model) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		s, err := sessionFromParams(p)
		if err != nil {
			return nil, err
		}

		return inTransaction(p.Context, s, func() (interface{}, error) {
			existing, err := s.GetByPK(p.Context, m, p.Args)
			if err != nil {
				return nil, err
			}
			if existing == nil {
				return nil, nil
			}
			q, err := planner.PlanDeleteByPK(m, p.Args)
			if err != nil {
				return nil, err
			}
			if _, err := s.Exec(p.Context, q.SQL, q.Args...); err != nil {
				return nil, err
			}
			return existing, nil
		})
	}
}
