package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/apigovern/gatekeeper/domain"
	"github.com/apigovern/gatekeeper/listener"
)

// ListenCommand consumes API lifecycle events from Kafka and keeps the
// similarity index in sync.
type ListenCommand struct {
	definitionsDir string
}

// NewListenCommand creates a new listen command.
func NewListenCommand() *ListenCommand {
	return &ListenCommand{}
}

// CreateCobraCommand creates the cobra command for the event listener.
func (c *ListenCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Consume API lifecycle events and keep the index in sync",
		Long: `Subscribe to the configured Kafka topic and apply API lifecycle events
to the similarity index: create/update events index the API, delete
events remove it, and lifecycle changes index only published APIs.

Definitions are resolved from --definitions-dir as <api-id>.json,
<api-id>.yaml, or <api-id>.yml.

The listener runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: c.runListen,
	}

	cmd.Flags().StringVarP(&c.definitionsDir, "definitions-dir", "d", ".",
		"Directory holding API definitions named by API UUID")
	return cmd
}

func (c *ListenCommand) runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadGatekeeperConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildService(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Shutdown() }()

	dispatcher := listener.NewDispatcher(svc, directoryFetcher(c.definitionsDir))
	consumer := listener.NewKafkaConsumer(listener.KafkaConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	}, dispatcher)
	defer func() { _ = consumer.Close() }()

	log.Info("listening for api events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return consumer.Run(ctx)
}

// directoryFetcher resolves definitions from files named by API UUID.
func directoryFetcher(dir string) listener.DefinitionFetcher {
	return listener.DefinitionFetcherFunc(func(ctx context.Context, apiUUID, organization string) (string, error) {
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			data, err := os.ReadFile(filepath.Join(dir, apiUUID+ext))
			if err == nil {
				return string(data), nil
			}
		}
		return "", domain.NewInvalidInputError("no definition found for api "+apiUUID, nil)
	})
}

// NewListenCmd creates and returns the listen cobra command.
func NewListenCmd() *cobra.Command {
	return NewListenCommand().CreateCobraCommand()
}
