package main

import (
	"context"
	"flag"
	"log"

	"cleaning-duty/internal/config"
	"cleaning-duty/internal/logger"

	sdk "github.com/matrixorigin/moi-go-sdk"
)

func main() {
	configFile := flag.String("config", "etc/config-dev.yaml", "config file")
	flag.Parse()

	logger.Init(config.LogConfig{Level: "info", Console: true})

	cfg := config.Load(*configFile)
	client, err := cfg.NewRawClient()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	catalogID := sdk.CatalogID(cfg.MOI.CatalogID)
	if catalogID == 0 {
		catalogID = 1
	}

	dbID, tables, err := initCatalog(ctx, client, catalogID, cfg.Database.Name)
	if err != nil {
		log.Fatal("catalog init failed:", err)
	}

	if err := initKnowledge(ctx, client); err != nil {
		log.Fatal("knowledge init failed:", err)
	}

	// these go into the moi section of the server config
	logger.Info("catalog ready",
		"database_id", dbID,
		"schedules_table_id", tables["schedules"],
		"completions_table_id", tables["completions"],
		"members_table_id", tables["members"])
}
