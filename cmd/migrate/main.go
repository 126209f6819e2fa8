package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalog-api/internal/config"
	"catalog-api/internal/database"
	"catalog-api/internal/logger"

	"go.uber.org/zap"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|status|seed]")
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.NewWithDefaults()
	defer log.Sync()

	dbService, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	db := dbService.DB()
	source := database.MigrationSource(cfg.Database.MigrationsDir)

	switch command {
	case "up":
		err = database.RunMigrations(ctx, db, source, log)
	case "down":
		err = database.RollbackMigration(ctx, db, source, log)
	case "status":
		var statuses []database.MigrationStatus
		statuses, err = database.GetMigrationStatus(ctx, db, source)
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied"
			}
			fmt.Printf("%05d  %-8s %s\n", s.Version, state, s.File)
		}
	case "seed":
		var inserted bool
		inserted, err = database.SeedSampleData(ctx, db, log)
		if err == nil && !inserted {
			fmt.Println("catalog already has data, nothing seeded")
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}
