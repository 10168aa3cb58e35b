package main

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/monitoring"
	"github.com/sells-group/intake-cli/internal/quality"
	"github.com/sells-group/intake-cli/internal/resilience"
	"github.com/sells-group/intake-cli/internal/store"
	"github.com/sells-group/intake-cli/internal/submission"
	"github.com/sells-group/intake-cli/internal/trend"
	"github.com/sells-group/intake-cli/internal/valuation"
)

// appEnv holds the analyzers and the optional store shared by commands.
type appEnv struct {
	Store     store.Store // nil when the command runs without persistence
	Docs      submission.DocumentSource
	Analyzer  *submission.Analyzer
	Checker   *submission.Checker
	Valuation *valuation.Tool
	Trends    *trend.Analyzer
	Metrics   *monitoring.Metrics
	Breaker   *resilience.Breaker

	closers []func() error
}

// envOptions selects optional pieces of an appEnv.
type envOptions struct {
	WithStore   bool
	WithMetrics bool
	Overrides   submission.Overrides
}

// initEnv builds the environment from the loaded config.
func initEnv(ctx context.Context, opts envOptions) (*appEnv, error) {
	var st store.Store
	var closers []func() error
	if opts.WithStore {
		base, err := initStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		if err := base.Migrate(ctx); err != nil {
			_ = base.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		closers = append(closers, base.Close)
		st = base

		if cfg.Cache.Enabled {
			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Cache.Addr,
				Password: cfg.Cache.Password,
				DB:       cfg.Cache.DB,
			})
			if err := rdb.Ping(ctx).Err(); err != nil {
				zap.L().Warn("redis unavailable, submission cache disabled",
					zap.String("addr", cfg.Cache.Addr),
					zap.Error(err),
				)
				_ = rdb.Close()
			} else {
				st = store.NewCachedStore(st, rdb, time.Duration(cfg.Cache.TTLSecs)*time.Second)
				closers = append(closers, rdb.Close)
			}
		}
	}

	env, err := newEnv(cfg, st, opts.Overrides)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}
	env.closers = closers
	if opts.WithMetrics {
		env.Metrics = monitoring.NewMetrics()
	}
	return env, nil
}

// initStore opens the configured backend.
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "intake.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// newEnv builds the analyzers from c. st may be nil; extra overrides are
// layered over any configured overrides files.
func newEnv(c *config.Config, st store.Store, extra submission.Overrides) (*appEnv, error) {
	env := &appEnv{Store: st}

	th := quality.Thresholds{High: c.Analyzer.HighThreshold, Good: c.Analyzer.GoodThreshold}

	acfg := submission.DefaultAnalyzerConfig()
	acfg.Thresholds = th
	if c.Analyzer.MaxNextSteps > 0 {
		acfg.MaxNextSteps = c.Analyzer.MaxNextSteps
	}
	if c.Analyzer.OverridesFile != "" {
		o, err := submission.LoadOverrides(c.Analyzer.OverridesFile)
		if err != nil {
			return nil, err
		}
		acfg = acfg.Apply(o)
	}
	analyzer, err := submission.NewAnalyzer(acfg.Apply(extra))
	if err != nil {
		return nil, err
	}
	env.Analyzer = analyzer

	if st != nil {
		env.Breaker = resilience.NewBreaker(resilience.BreakerConfig{
			FailureThreshold: c.Retry.BreakerThreshold,
			CoolDown:         time.Duration(c.Retry.BreakerCoolDownSecs) * time.Second,
		})
		env.Docs = store.NewRetrying(st, resilience.FromSettings(
			c.Retry.MaxAttempts,
			c.Retry.InitialBackoffMs,
			c.Retry.MaxBackoffMs,
			c.Retry.Multiplier,
			c.Retry.Jitter,
		), env.Breaker)

		ccfg := submission.DefaultCheckerConfig()
		ccfg.Thresholds = th
		if c.Analyzer.CheckerOverridesFile != "" {
			o, err := submission.LoadOverrides(c.Analyzer.CheckerOverridesFile)
			if err != nil {
				return nil, err
			}
			ccfg = ccfg.Apply(o)
		}
		checker, err := submission.NewChecker(env.Docs, ccfg.Apply(extra))
		if err != nil {
			return nil, err
		}
		env.Checker = checker
	}

	vcfg, err := valuationConfig(c.Valuation, "")
	if err != nil {
		return nil, err
	}
	model, err := valuation.NewModel(vcfg)
	if err != nil {
		return nil, eris.Wrap(err, "valuation: invalid config")
	}
	env.Valuation = valuation.NewTool(model)

	trends, err := trend.NewAnalyzer(c.Trend)
	if err != nil {
		return nil, err
	}
	env.Trends = trends

	return env, nil
}

// valuationConfig assembles the cost model config. tablesFile, when set,
// replaces the configured tables file.
func valuationConfig(vc config.ValuationConfig, tablesFile string) (valuation.Config, error) {
	out := valuation.DefaultConfig()
	out.Thresholds = vc.Thresholds
	if vc.TaxonomyFallback != "" {
		out.Fallback = valuation.Fallback(vc.TaxonomyFallback)
	}

	if tablesFile == "" {
		tablesFile = vc.TablesFile
	}
	if tablesFile != "" {
		tables, err := valuation.LoadTables(tablesFile)
		if err != nil {
			return out, err
		}
		out.Tables = tables
	} else if vc.SprinklerFactor > 0 {
		out.Tables.SprinklerFactor = vc.SprinklerFactor
	}
	return out, nil
}

// Close releases the store and cache connections.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}
