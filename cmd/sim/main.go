package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"voxelsim.ai/internal/persistence/chunkdb"
	persistlog "voxelsim.ai/internal/persistence/log"
	"voxelsim.ai/internal/persistence/snapshot"
	"voxelsim.ai/internal/sim/tuning"
	"voxelsim.ai/internal/sim/world"
	"voxelsim.ai/internal/sim/world/kernel/model"
)

const levelFile = "level.dat.zst"

func main() {
	var (
		worldID    = flag.String("world", "world_1", "world id")
		seed       = flag.Int64("seed", 0, "world seed override (used only when starting a fresh world)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read model")
		ticks      = flag.Int("ticks", 0, "step this many ticks as fast as possible and exit (0: run paced until interrupted)")
		addr       = flag.String("addr", "", "http listen address for health and metrics in paced mode (empty to disable)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[sim] ", log.LstdFlags|log.Lmicroseconds)

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.World.Seed = *seed
	}

	cfg := tune.WorldConfig()
	cfg.Name = *worldID

	// Resume from level data when present; the persisted seed wins.
	levelPath := filepath.Join(worldDir, levelFile)
	var viewer *model.BlockPos
	if _, err := os.Stat(levelPath); err == nil {
		lv, err := snapshot.ReadLevel(levelPath)
		if err != nil {
			logger.Fatalf("read level: %v", err)
		}
		if lv.Header.World != "" && lv.Header.World != *worldID {
			logger.Fatalf("level world id mismatch: flag=%s level=%s", *worldID, lv.Header.World)
		}
		if *seed != 0 && *seed != lv.Seed {
			logger.Printf("ignoring -seed=%d for existing world (seed=%d)", *seed, lv.Seed)
		}
		cfg.Seed = lv.Seed
		cfg.StartTick = lv.Header.Tick
		v := lv.ViewerPos()
		viewer = &v
		logger.Printf("resuming world=%s tick=%d chunks=%d", *worldID, lv.Header.Tick, len(lv.Chunks))
	}

	db, err := chunkdb.Open(filepath.Join(worldDir, "chunks"))
	if err != nil {
		logger.Fatalf("open chunk db: %v", err)
	}
	defer db.Close()

	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	var index world.Indexer
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
		index = idx
	}

	auditLog := persistlog.NewAuditLogger(worldDir)
	defer auditLog.Close()

	w := world.New(cfg, world.Deps{
		Provider:   db,
		Structures: db,
		Logger:     logger,
		AuditLog:   auditLog,
		Index:      index,
	})
	if viewer == nil {
		sp := w.SpawnPoint()
		viewer = &sp
	}
	anchor := *viewer
	loader := world.NewLoader(w, func() model.BlockPos { return anchor })

	start := time.Now()
	if err := loader.Prime(); err != nil {
		logger.Fatalf("prime loader: %v", err)
	}
	logger.Printf("primed %d chunks around %v in %s", w.Chunks().Len(), anchor, time.Since(start).Round(time.Millisecond))

	if *ticks > 0 {
		for i := 0; i < *ticks; i++ {
			if err := loader.Update(); err != nil {
				logger.Printf("loader: %v", err)
			}
			w.Step()
		}
		logger.Printf("stepped %d ticks in %s", *ticks, time.Since(start).Round(time.Millisecond))
	} else {
		ctx, cancel := signalContext()
		defer cancel()

		if strings.TrimSpace(*addr) != "" {
			srv := &http.Server{
				Addr:              *addr,
				Handler:           newMux(*worldID, w, idx),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				<-ctx.Done()
				ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel2()
				_ = srv.Shutdown(ctx2)
			}()
			go func() {
				logger.Printf("listening on %s", *addr)
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Printf("ListenAndServe: %v", err)
				}
			}()
		}

		if err := w.Run(ctx, loader); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}

	if err := w.SaveAll(); err != nil {
		logger.Printf("save chunks: %v", err)
	}
	if err := snapshot.WriteLevel(levelPath, snapshot.FromWorld(w, anchor)); err != nil {
		logger.Printf("write level: %v", err)
	}
	logger.Printf("saved world=%s tick=%d chunks=%d", *worldID, w.Tick(), w.Chunks().Len())
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
