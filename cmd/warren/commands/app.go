package commands

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/warrenhq/warren/internal/claims"
	"github.com/warrenhq/warren/internal/config"
	"github.com/warrenhq/warren/internal/distributor"
	"github.com/warrenhq/warren/internal/migration"
	"github.com/warrenhq/warren/internal/partner"
	"github.com/warrenhq/warren/internal/printer"
	"github.com/warrenhq/warren/internal/referral"
	"github.com/warrenhq/warren/internal/treasury"
	"github.com/warrenhq/warren/pkg/dropstore"
)

// app bundles the wired components behind every CLI command.
type app struct {
	cfg         *config.Config
	store       *dropstore.Client
	claims      *claims.Ledger
	graph       *referral.Graph
	treasury    *treasury.Ledger
	migration   *migration.Manager
	partners    *partner.Registry
	distributor *distributor.Distributor
}

// newApp loads the campaign configuration and wires all components. The
// claim ledger's supply ceiling resolver combines the configured primary
// ceiling with per-partner supplies from the registry.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"failed to load campaign configuration",
			err.Error(),
			[]string{"Check the --config path (default: warren.yml)"},
		)
	}

	store, err := dropstore.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Campaign)
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, printer.Error(
			"cannot reach Redis",
			err.Error(),
			[]string{"Verify redis.addr in the campaign configuration", "Check that the Redis server is running"},
		)
	}

	plan, err := cfg.RewardPlan()
	if err != nil {
		store.Close()
		return nil, err
	}

	partners := partner.NewRegistry(store)

	ceiling := func(ctx context.Context, namespace string) (int64, error) {
		if namespace == dropstore.PrimaryNamespace {
			return cfg.Supply.Primary, nil
		}
		return partners.SupplyCeiling(ctx, namespace)
	}

	a := &app{
		cfg:       cfg,
		store:     store,
		claims:    claims.NewLedger(store, ceiling),
		graph:     referral.NewGraph(store),
		treasury:  treasury.NewLedger(store, plan),
		migration: migration.NewManager(store, cfg.MigrationHistoryCap),
		partners:  partners,
	}
	a.distributor = distributor.New(store, a.claims, a.graph, a.treasury, cfg.Referral.MaxDepth)

	return a, nil
}

// Close releases the store connection.
func (a *app) Close() error {
	return a.store.Close()
}
