// Package serverapp wires configuration, database, schema and HTTP server
// into a runnable application.
package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/graphql-go/handler"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/flying-sheep/sqlgraphql/internal/config"
	"github.com/flying-sheep/sqlgraphql/internal/logging"
	"github.com/flying-sheep/sqlgraphql/internal/model"
	"github.com/flying-sheep/sqlgraphql/internal/resolver"
)

// App is the assembled server: an open database handle and an HTTP server
// exposing the generated GraphQL schema.
type App struct {
	cfg    *config.Config
	logger *logging.Logger
	db     *sql.DB
	server *http.Server
}

// New opens the database and builds the schema for the given registry.
func New(cfg *config.Config, logger *logging.Logger, reg *model.Registry) (*App, error) {
	dsn, err := cfg.Database.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	schema, err := resolver.NewResolver(reg).BuildSchema()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}

	graphqlHandler := handler.New(&handler.Config{
		Schema:   &schema,
		Pretty:   true,
		GraphiQL: cfg.Server.GraphiQLEnabled,
	})

	mux := http.NewServeMux()
	mux.Handle("/graphql", graphqlHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	wrapped := LoggingMiddleware(logger)(SessionMiddleware(db)(mux))

	return &App{
		cfg:    cfg,
		logger: logger,
		db:     db,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      wrapped,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}, nil
}

// Handler returns the root HTTP handler, for tests and embedding.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run serves HTTP until the context is canceled, then shuts down gracefully
// within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return a.db.Close()
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

// Shutdown closes the server and database directly, without waiting for a
// context cancellation. Used when startup fails partway.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if closeErr := a.db.Close(); err == nil {
		err = closeErr
	}
	return err
}
