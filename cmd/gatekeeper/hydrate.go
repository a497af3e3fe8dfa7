package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// HydrateCommand loads all persisted signatures into the in-memory index and
// reports the resulting index shape.
type HydrateCommand struct{}

// NewHydrateCommand creates a new hydrate command.
func NewHydrateCommand() *HydrateCommand {
	return &HydrateCommand{}
}

// CreateCobraCommand creates the cobra command for hydration.
func (c *HydrateCommand) CreateCobraCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hydrate",
		Short: "Load persisted signatures and report index statistics",
		Long: `Connect the signature store, load every persisted signature into the
similarity index, and print the resulting index statistics.

Useful for verifying store health and sizing after bulk imports.`,
		Args: cobra.NoArgs,
		RunE: c.runHydrate,
	}
}

func (c *HydrateCommand) runHydrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadGatekeeperConfig(cmd)
	if err != nil {
		return err
	}

	svc, err := buildService(cmd.Context(), cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Shutdown() }()

	stats := svc.IndexStats()
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed APIs:      %d\n", stats.NumAPIs)
	fmt.Fprintf(cmd.OutOrStdout(), "Organizations:     %d\n", stats.NumOrganizations)
	fmt.Fprintf(cmd.OutOrStdout(), "Bands:             %d\n", stats.NumBands)
	fmt.Fprintf(cmd.OutOrStdout(), "Rows per band:     %d\n", stats.RowsPerBand)
	fmt.Fprintf(cmd.OutOrStdout(), "Signature length:  %d\n", stats.SignatureLength)
	return nil
}

// NewHydrateCmd creates and returns the hydrate cobra command.
func NewHydrateCmd() *cobra.Command {
	return NewHydrateCommand().CreateCobraCommand()
}
