// Package main runs one typing-combat encounter on the console.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/keystrike/internal/config"
	"github.com/cory-johannsen/keystrike/internal/game/clock"
	"github.com/cory-johannsen/keystrike/internal/game/command"
	"github.com/cory-johannsen/keystrike/internal/game/dice"
	"github.com/cory-johannsen/keystrike/internal/game/encounter"
	"github.com/cory-johannsen/keystrike/internal/game/ruleset"
	"github.com/cory-johannsen/keystrike/internal/observability"
	"github.com/cory-johannsen/keystrike/internal/scripting"
	"github.com/cory-johannsen/keystrike/internal/server"
	"github.com/cory-johannsen/keystrike/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	encounterID := flag.String("encounter", "", "encounter to run; overrides content.encounter")
	seed := flag.Uint64("seed", 0, "seed for AI randomness; 0 = crypto source")
	restore := flag.Bool("restore", false, "resume from the configured save slot")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "skirmish")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	var src dice.Source = dice.NewCryptoSource()
	if *seed != 0 {
		src = dice.NewSeededSource(*seed)
	}
	src = dice.NewLoggedSource(src, logger)

	contentStart := time.Now()
	content, err := ruleset.LoadContent(cfg.Content)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	logger.Info("content loaded",
		zap.Int("skills", len(content.Skills.Commands())),
		zap.Int("archetypes", len(content.Archetypes)),
		zap.Strings("encounters", content.EncounterIDs()),
		zap.Duration("elapsed", time.Since(contentStart)),
	)

	id := cfg.Content.Encounter
	if *encounterID != "" {
		id = *encounterID
	}

	scripts := scripting.NewManager(src, logger)
	defer scripts.Close()
	if dir := cfg.Content.ScriptsDir; dir != "" {
		if err := scripts.LoadGlobal(dir, cfg.Scripting.InstructionLimit); err != nil {
			logger.Fatal("loading global scripts", zap.Error(err))
		}
		scoped := filepath.Join(dir, id)
		if info, err := os.Stat(scoped); err == nil && info.IsDir() {
			if err := scripts.LoadScope(id, scoped, cfg.Scripting.InstructionLimit); err != nil {
				logger.Fatal("loading encounter scripts", zap.String("encounter", id), zap.Error(err))
			}
		}
	}

	var store *postgres.SnapshotRepository
	if cfg.Persistence.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.Health(ctx, 5*time.Second); err != nil {
			logger.Fatal("snapshot store not ready", zap.Error(err))
		}
		store = pool.Snapshots()
	}

	clk := clock.Real{}
	presenter := newConsolePresenter(os.Stdout, clk, cfg.Combat.AnimationDelay)
	sess, err := encounter.NewSession(encounter.Deps{
		Content:   content,
		Encounter: id,
		Rules:     cfg.Combat,
		Clock:     clk,
		Source:    src,
		Presenter: presenter,
		Scripts:   scripts,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("creating encounter", zap.Error(err))
	}

	if *restore {
		if store == nil {
			logger.Fatal("restore requires persistence.enabled")
		}
		snap, err := store.Load(ctx, cfg.Persistence.Slot)
		switch {
		case errors.Is(err, postgres.ErrSnapshotNotFound):
			logger.Warn("save slot empty, starting fresh", zap.Int("slot", cfg.Persistence.Slot))
		case err != nil:
			logger.Fatal("loading snapshot", zap.Error(err))
		default:
			if err := sess.Restore(snap); err != nil {
				logger.Fatal("restoring snapshot", zap.Error(err))
			}
		}
	}

	d := &driver{
		sess:      sess,
		presenter: presenter,
		registry:  command.DefaultRegistry(),
		slot:      cfg.Persistence.Slot,
		in:        os.Stdin,
		logger:    logger,
	}
	if store != nil {
		d.store = store
	}

	lc := server.NewLifecycle(logger)
	lc.Add("console", &server.FuncService{
		StartFn: d.Run,
		StopFn:  sess.Close,
	})

	logger.Info("skirmish ready",
		zap.String("encounter", id),
		zap.String("session", sess.ID()),
		zap.Duration("startup", time.Since(start)),
	)
	sess.Start()
	if err := lc.Run(ctx); err != nil {
		logger.Error("skirmish exited with error", zap.Error(err))
	}
}
