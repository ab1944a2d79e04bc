package main

import (
	"context"
	"fmt"
	"io"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erymuzuan/motorent-sub003/cache"
	"github.com/erymuzuan/motorent-sub003/entity"
	"github.com/erymuzuan/motorent-sub003/internal/config"
	"github.com/erymuzuan/motorent-sub003/internal/logging"
	"github.com/erymuzuan/motorent-sub003/nodes"
	"github.com/erymuzuan/motorent-sub003/plugins"
	"github.com/erymuzuan/motorent-sub003/plugins/policy"
	"github.com/erymuzuan/motorent-sub003/repository"
	"github.com/erymuzuan/motorent-sub003/tenant"
	"github.com/erymuzuan/motorent-sub003/visitors"
)

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	dialect    string
	dsn        string
	tenant     string
	verbose    bool
}

// app is what every command runs against: configuration, a logger and,
// once opened, a connection.
type app struct {
	opts     *rootOptions
	cfg      *config.Config
	log      *zap.Logger
	out      io.Writer
	registry *prometheus.Registry
	conn     *repository.Conn
}

func newApp(opts *rootOptions, out io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.dialect != "" {
		cfg.Database.Dialect = opts.dialect
	}
	if opts.dsn != "" {
		cfg.Database.DSN = opts.dsn
	}
	if _, err := visitors.ParseDialect(cfg.Database.Dialect); err != nil {
		return nil, err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return &app{opts: opts, cfg: cfg, log: log, out: out, registry: prometheus.NewRegistry()}, nil
}

func (a *app) dialect() visitors.Dialect { return a.cfg.Dialect() }

// context carries the tenant selected by --tenant.
func (a *app) context(ctx context.Context) context.Context {
	if a.opts.tenant == "" {
		return ctx
	}
	return tenant.With(ctx, a.opts.tenant)
}

// mapping returns the Document mapping of a declared entity.
func (a *app) mapping(name string) (*entity.Mapping[*entity.Document], error) {
	meta, err := a.cfg.Entity(name)
	if err != nil {
		return nil, err
	}
	return entity.DocumentMapping(*meta), nil
}

// repo opens the connection on first use and binds it to the named entity.
func (a *app) repo(ctx context.Context, name string) (*repository.Repository[*entity.Document], error) {
	m, err := a.mapping(name)
	if err != nil {
		return nil, err
	}
	if a.conn == nil {
		if err := a.connect(ctx); err != nil {
			return nil, err
		}
	}
	return repository.For(a.conn, m), nil
}

func (a *app) connect(ctx context.Context) error {
	if a.cfg.Database.DSN == "" {
		return fmt.Errorf("no database configured: set database.dsn or --dsn")
	}
	opts := []repository.Option{
		repository.WithLogger(a.log),
		repository.WithRetry(a.cfg.RetryPolicy(repository.IsTransient)),
		repository.WithMetrics(repository.NewMetrics(a.registry)),
	}
	ch, err := a.cache()
	if err != nil {
		return err
	}
	if ch != nil {
		opts = append(opts, repository.WithCache(ch))
	}
	if p := a.policy(); p != nil {
		opts = append(opts, repository.WithPolicy(p))
	}
	conn, err := repository.Open(ctx, a.dialect(), a.cfg.Database.DSN, opts...)
	if err != nil {
		return err
	}
	a.conn = conn
	a.log.Debug("connected", zap.String("dialect", string(a.dialect())))
	return nil
}

// policy limits entities with a scope column to the rows of the current
// tenant. The tenant is read per statement so the shell can switch it.
func (a *app) policy() plugins.Transformer {
	columns := a.cfg.ScopeColumns()
	if len(columns) == 0 {
		return nil
	}
	return policy.New(func(ref plugins.TableRef) ([]nodes.Node, error) {
		return policy.Scope(columns, a.opts.tenant)(ref)
	})
}

func (a *app) cache() (*cache.Cache, error) {
	c := a.cfg.Cache
	var store cache.Store
	switch c.Kind {
	case "memory":
		m, err := cache.NewMemory(c.Size)
		if err != nil {
			return nil, err
		}
		store = m
	case "redis":
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{c.Redis.Addr},
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		store = cache.NewRedis(client, "")
	default:
		return nil, nil
	}
	opts := []cache.Option{
		cache.WithTTL(c.TTL),
		cache.WithLogger(a.log),
		cache.WithMetrics(cache.NewMetrics(a.registry)),
	}
	if c.SingleFlight {
		opts = append(opts, cache.WithSingleFlight())
	}
	return cache.New(store, opts...), nil
}

func (a *app) cached() bool { return a.cfg.Cache.Kind != "none" }

func (a *app) close() {
	if a.conn != nil {
		_ = a.conn.Close()
		a.conn = nil
	}
	_ = a.log.Sync()
}

// newRootCommand builds the jsonq command tree.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "jsonq",
		Short:         "Compile and run queries over JSON entity tables",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "configuration file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.dialect, "dialect", "", "SQL dialect: sqlserver, postgres, mysql, sqlite")
	cmd.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "database connection string")
	cmd.PersistentFlags().StringVar(&opts.tenant, "tenant", "", "tenant for cached reads and scoped entities")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newSQLCommand(opts))
	cmd.AddCommand(newLoadCommand(opts))
	cmd.AddCommand(newCountCommand(opts))
	cmd.AddCommand(newShellCommand(opts))
	return cmd
}

// withApp runs fn against an app built from opts and closes it after.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(a *app) error) error {
	a, err := newApp(opts, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}
