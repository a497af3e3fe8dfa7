package app

import (
	"context"
	"io"
	"os"

	"github.com/apigovern/gatekeeper/domain"
	"github.com/apigovern/gatekeeper/internal/analyzer"
	"github.com/apigovern/gatekeeper/service"
)

// CheckRequest describes one duplicate check from the CLI or MCP surface.
type CheckRequest struct {
	DefinitionPath string
	APIUUID        string
	Organization   string
	Threshold      float64
	OutputFormat   service.OutputFormat
}

// IndexRequest describes an admission of one API definition into the index.
type IndexRequest struct {
	DefinitionPath string
	APIUUID        string
	Organization   string
}

// DedupUseCase orchestrates the signature service for the outer surfaces.
type DedupUseCase struct {
	svc       *service.SignatureService
	formatter *service.DedupFormatter
	output    io.Writer
}

// NewDedupUseCase creates a use case writing formatted output to out.
func NewDedupUseCase(svc *service.SignatureService, out io.Writer) *DedupUseCase {
	if out == nil {
		out = os.Stdout
	}
	return &DedupUseCase{
		svc:       svc,
		formatter: service.NewDedupFormatter(),
		output:    out,
	}
}

// Check runs a duplicate check for a definition file and writes the
// formatted result.
func (uc *DedupUseCase) Check(ctx context.Context, req CheckRequest) (domain.DedupResult, error) {
	definition, err := readDefinition(req.DefinitionPath)
	if err != nil {
		return domain.DedupResult{}, err
	}

	result, err := uc.svc.CheckForDuplicates(definition, req.APIUUID, req.Organization, req.Threshold)
	if err != nil {
		return domain.DedupResult{}, err
	}

	rendered, err := uc.formatter.Format(result, req.OutputFormat)
	if err != nil {
		return domain.DedupResult{}, err
	}
	if _, err := io.WriteString(uc.output, rendered); err != nil {
		return domain.DedupResult{}, domain.NewInternalError("failed to write output", err)
	}
	return result, nil
}

// CheckDefinition runs a duplicate check for an in-memory definition without
// writing output. MCP handlers render results themselves.
func (uc *DedupUseCase) CheckDefinition(ctx context.Context, definition, apiUUID, organization string, threshold float64) (domain.DedupResult, error) {
	return uc.svc.CheckForDuplicates(definition, apiUUID, organization, threshold)
}

// Index admits a definition file into the similarity index.
func (uc *DedupUseCase) Index(ctx context.Context, req IndexRequest) error {
	definition, err := readDefinition(req.DefinitionPath)
	if err != nil {
		return err
	}
	return uc.svc.IndexAPI(ctx, definition, req.APIUUID, req.Organization)
}

// IndexDefinition admits an in-memory definition into the similarity index.
func (uc *DedupUseCase) IndexDefinition(ctx context.Context, definition, apiUUID, organization string) error {
	return uc.svc.IndexAPI(ctx, definition, apiUUID, organization)
}

// Remove drops an API from the index and the store.
func (uc *DedupUseCase) Remove(ctx context.Context, apiUUID, organization string) error {
	return uc.svc.RemoveAPI(ctx, apiUUID, organization)
}

// Hydrate loads all persisted signatures into the in-memory index.
func (uc *DedupUseCase) Hydrate(ctx context.Context) error {
	return uc.svc.Initialize(ctx)
}

// Stats returns a snapshot of the index shape.
func (uc *DedupUseCase) Stats() analyzer.IndexStats {
	return uc.svc.IndexStats()
}

func readDefinition(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.NewInvalidInputError("failed to read definition file: "+path, err)
	}
	return string(data), nil
}
