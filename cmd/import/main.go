// Command import loads an inventory CSV feed into the truck catalog.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/config"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/db"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/importer"
	"github.com/NickCamacho15/bbb-truck-sales-sub000/internal/services"
)

func main() {
	file := flag.String("file", "inventory.csv", "CSV feed to import")
	dryRun := flag.Bool("dry-run", false, "Validate and match rows without writing")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	if level, err := log.ParseLevel(cfg.App.LogLevel); err == nil {
		log.SetLevel(level)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.WithError(err).Fatal("Opening feed")
	}
	records, rowErrs, err := importer.Parse(f)
	f.Close()
	if err != nil {
		log.WithError(err).Fatal("Parsing feed")
	}
	for _, re := range rowErrs {
		log.WithField("line", re.Line).WithError(re.Err).Warn("Skipping unparseable row")
	}

	conn, err := db.Open(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	im := importer.New(services.NewTruckService(conn))
	im.DryRun = *dryRun
	res, err := im.Import(ctx, records)
	if err != nil {
		log.WithError(err).Fatal("Import interrupted")
	}
	for _, re := range res.Errors {
		log.WithField("line", re.Line).WithError(re.Err).Warn("Row rejected")
	}
	if len(res.Errors)+len(rowErrs) > 0 {
		os.Exit(1)
	}
}
