package main

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/takp-dkp/lootledger/internal/assign"
	"github.com/takp-dkp/lootledger/internal/catalog"
	"github.com/takp-dkp/lootledger/internal/inventory"
	"github.com/takp-dkp/lootledger/internal/ledger"
	"github.com/takp-dkp/lootledger/internal/model"
	"github.com/takp-dkp/lootledger/internal/roster"
)

// reconcileEnv bundles everything a reconciliation pass needs.
type reconcileEnv struct {
	Ledger    *ledger.Ledger
	Directory *roster.Directory
	Engine    *assign.Engine
}

// buildEnv loads the ledger, directory, inventory snapshot, and catalog per
// the current config. Ledger and snapshot are mandatory and fail fast;
// everything else degrades with a logged warning.
func buildEnv(mode model.RunMode, ledgerPath string) (*reconcileEnv, error) {
	if ledgerPath == "" {
		ledgerPath = cfg.Ledger.Path
	}

	led, err := ledger.Parse(ledgerPath)
	if err != nil {
		return nil, eris.Wrap(err, "load ledger")
	}

	inv, err := inventory.Load(cfg.Inventory.SnapshotPath)
	if err != nil {
		return nil, eris.Wrap(err, "load inventory snapshot")
	}

	dir, err := roster.Load(roster.Paths{
		CharacterAccount: cfg.Roster.CharacterAccountPath,
		Characters:       cfg.Roster.CharactersPath,
		SnapshotChars:    cfg.Roster.SnapshotCharsPath,
	})
	if err != nil {
		return nil, eris.Wrap(err, "load roster")
	}

	cat, err := catalog.Load(cfg.Catalog.Path, cfg.Catalog.TablesPath, cfg.Catalog.ExtraConvertible)
	if err != nil {
		return nil, eris.Wrap(err, "load catalog")
	}
	cat.BindInventory(inv)
	if cat.Degraded() {
		zap.L().Warn("running with exact-name matching only")
	}

	raidDates, err := ledger.LoadRaidDates(cfg.Ledger.RaidsPath)
	if err != nil {
		return nil, eris.Wrap(err, "load raid dates")
	}

	eng := assign.New(dir, inv, cat, raidDates, mode, cfg.Assign.AccountConcurrency)
	return &reconcileEnv{Ledger: led, Directory: dir, Engine: eng}, nil
}

// runMode maps the config/flag mode string onto a RunMode.
func runMode(recompute bool) model.RunMode {
	if recompute || cfg.Assign.Mode == string(model.ModeRecompute) {
		return model.ModeRecompute
	}
	return model.ModeIncremental
}
