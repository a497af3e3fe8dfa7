package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apigovern/gatekeeper/app"
)

// RemoveCommand drops an API from the index and the store.
type RemoveCommand struct {
	apiID        string
	organization string
}

// NewRemoveCommand creates a new remove command.
func NewRemoveCommand() *RemoveCommand {
	return &RemoveCommand{}
}

// CreateCobraCommand creates the cobra command for removal.
func (c *RemoveCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove an API from the similarity index",
		Long: `Remove an API's signature from the similarity index and the signature
store. Removing an API that is not indexed is a no-op.

Examples:
  gatekeeper remove --api-id 7f3c... --organization acme`,
		Args: cobra.NoArgs,
		RunE: c.runRemove,
	}

	cmd.Flags().StringVar(&c.apiID, "api-id", "", "UUID of the API")
	cmd.Flags().StringVarP(&c.organization, "organization", "o", "", "Tenant the API belongs to")

	_ = cmd.MarkFlagRequired("api-id")
	_ = cmd.MarkFlagRequired("organization")
	return cmd
}

func (c *RemoveCommand) runRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadGatekeeperConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := buildService(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Shutdown() }()

	useCase := app.NewDedupUseCase(svc, cmd.OutOrStdout())
	if err := useCase.Remove(ctx, c.apiID, c.organization); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s for organization %s\n", c.apiID, c.organization)
	return nil
}

// NewRemoveCmd creates and returns the remove cobra command.
func NewRemoveCmd() *cobra.Command {
	return NewRemoveCommand().CreateCobraCommand()
}
