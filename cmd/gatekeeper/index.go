package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apigovern/gatekeeper/app"
)

// IndexCommand admits an API definition into the similarity index.
type IndexCommand struct {
	apiID        string
	organization string
}

// NewIndexCommand creates a new index command.
func NewIndexCommand() *IndexCommand {
	return &IndexCommand{}
}

// CreateCobraCommand creates the cobra command for indexing.
func (c *IndexCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <definition-file>",
		Short: "Add an API definition to the similarity index",
		Long: `Generate a MinHash signature for an OpenAPI definition and add it to
the similarity index and the signature store.

Examples:
  gatekeeper index --api-id 7f3c... --organization acme petstore.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: c.runIndex,
	}

	cmd.Flags().StringVar(&c.apiID, "api-id", "", "UUID of the API")
	cmd.Flags().StringVarP(&c.organization, "organization", "o", "", "Tenant the API belongs to")

	_ = cmd.MarkFlagRequired("api-id")
	_ = cmd.MarkFlagRequired("organization")
	return cmd
}

func (c *IndexCommand) runIndex(cmd *cobra.Command, args []string) error {
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
	if err := useCase.Index(ctx, app.IndexRequest{
		DefinitionPath: args[0],
		APIUUID:        c.apiID,
		Organization:   c.organization,
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s for organization %s\n", c.apiID, c.organization)
	return nil
}

// NewIndexCmd creates and returns the index cobra command.
func NewIndexCmd() *cobra.Command {
	return NewIndexCommand().CreateCobraCommand()
}
