package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/adapters/postgres"
	"github.com/dema501/magento-payment-module-EcorePay/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

var (
	flags   = flag.NewFlagSet("migrate", flag.ExitOnError)
	timeout = flags.Duration("timeout", time.Minute, "overall timeout")
)

func main() {
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		return
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	connConfig, err := pgx.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("failed to parse database config: %v", err)
	}
	db := stdlib.OpenDB(*connConfig)
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	provider, err := postgres.NewMigrationProvider(db)
	if err != nil {
		log.Fatalf("failed to load migrations: %v", err)
	}

	switch args[0] {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		for _, r := range results {
			fmt.Printf("applied %s (%s)\n", r.Source.Path, r.Duration)
		}
	case "down":
		r, err := provider.Down(ctx)
		if err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		fmt.Printf("rolled back %s\n", r.Source.Path)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			log.Fatalf("migrate status: %v", err)
		}
		for _, s := range statuses {
			fmt.Printf("%-8s %s\n", s.State, s.Source.Path)
		}
	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			log.Fatalf("migrate version: %v", err)
		}
		fmt.Println(version)
	default:
		flags.Usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Print(`Usage: migrate [-timeout 1m] COMMAND

Reads DB_* settings from the environment or .env.

Commands:
    up        Apply all pending migrations
    down      Roll back the latest migration
    status    List migrations and whether they are applied
    version   Print the current schema version
`)
}
