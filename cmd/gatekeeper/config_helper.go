package main

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/apigovern/gatekeeper/internal/config"
	"github.com/apigovern/gatekeeper/internal/storage"
	"github.com/apigovern/gatekeeper/service"

	_ "github.com/mattn/go-sqlite3"
)

// loadGatekeeperConfig resolves configuration with the usual precedence:
// explicit --config file, then .gatekeeper.toml discovery, then
// GATEKEEPER_* environment variables on top.
func loadGatekeeperConfig(cmd *cobra.Command) (*config.GatekeeperConfig, error) {
	loader := config.NewGatekeeperConfigLoader()

	var cfg *config.GatekeeperConfig
	var err error
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = loader.LoadFile(path)
	} else {
		cfg, err = loader.LoadConfig(".")
	}
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyLogLevel(cmd.Flags(), cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *config.GatekeeperConfig) {
	v := viper.New()
	v.SetEnvPrefix("GATEKEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if s := v.GetString("database.driver"); s != "" {
		cfg.Database.Driver = s
	}
	if s := v.GetString("database.dsn"); s != "" {
		cfg.Database.DSN = s
	}
	if s := v.GetString("kafka.brokers"); s != "" {
		cfg.Kafka.Brokers = strings.Split(s, ",")
	}
	if s := v.GetString("kafka.topic"); s != "" {
		cfg.Kafka.Topic = s
	}
	if s := v.GetString("log.level"); s != "" {
		cfg.Log.Level = s
	}
}

func applyLogLevel(flags *pflag.FlagSet, cfg *config.GatekeeperConfig) {
	if verbose, _ := flags.GetBool("verbose"); verbose {
		log.SetLevel(log.DebugLevel)
		return
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn", "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// buildService connects the configured store and constructs the signature
// service. When hydrate is set the persisted signatures are loaded into the
// index before the service is returned.
func buildService(ctx context.Context, cfg *config.GatekeeperConfig, hydrate bool) (*service.SignatureService, error) {
	store, err := storage.Connect(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	svc := service.NewSignatureService(store, service.SignatureServiceConfig{
		NumHashFunctions: cfg.Similarity.NumHashFunctions,
		NumBands:         cfg.Similarity.NumBands,
	})
	if hydrate {
		if err := svc.Initialize(ctx); err != nil {
			_ = svc.Shutdown()
			return nil, err
		}
	}
	return svc, nil
}
