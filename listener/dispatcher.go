package listener

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/apigovern/gatekeeper/domain"
	"github.com/apigovern/gatekeeper/service"
)

// Dispatcher routes API lifecycle events to the signature service. Handler
// failures are logged and swallowed so one bad event never stalls the bus.
type Dispatcher struct {
	svc     *service.SignatureService
	fetcher DefinitionFetcher
}

// NewDispatcher builds a dispatcher over the given service and definition
// source.
func NewDispatcher(svc *service.SignatureService, fetcher DefinitionFetcher) *Dispatcher {
	return &Dispatcher{svc: svc, fetcher: fetcher}
}

// Dispatch handles one event. Unknown event types are logged and ignored.
func (d *Dispatcher) Dispatch(ctx context.Context, event APIEvent) {
	switch event.Type {
	case EventAPICreate, EventAPIUpdate:
		d.indexFromRegistry(ctx, event)
	case EventAPIDelete:
		if err := d.svc.RemoveAPI(ctx, event.APIUUID, event.Organization); err != nil {
			log.Error("failed to remove api", "apiUuid", event.APIUUID, "err", err)
		}
	case EventAPILifecycleChange:
		if event.Status != StatusPublished {
			log.Debug("ignoring lifecycle change", "apiUuid", event.APIUUID, "status", event.Status)
			return
		}
		d.indexFromRegistry(ctx, event)
	default:
		log.Warn("ignoring unknown event type", "type", event.Type, "apiUuid", event.APIUUID)
	}
}

// indexFromRegistry fetches the definition, checks it for duplicates, and
// indexes it. Matches are surfaced as warnings; the API is indexed either way.
func (d *Dispatcher) indexFromRegistry(ctx context.Context, event APIEvent) {
	definition, err := d.fetcher.FetchDefinition(ctx, event.APIUUID, event.Organization)
	if err != nil {
		log.Error("failed to fetch api definition", "apiUuid", event.APIUUID, "err", err)
		return
	}

	result, err := d.svc.CheckForDuplicates(definition, event.APIUUID, event.Organization, domain.DefaultSimilarityThreshold)
	if err != nil {
		log.Error("duplicate check failed", "apiUuid", event.APIUUID, "err", err)
	} else if result.IsDuplicate {
		for _, report := range result.ConflictReports {
			log.Warn("api appears to be similar to an existing api",
				"apiUuid", event.APIUUID,
				"apiName", event.APIName,
				"matchedApiUuid", report.MatchedAPIUUID,
				"similarity", fmt.Sprintf("%.2f%%", report.SimilarityScore*100))
		}
	}

	if err := d.svc.IndexAPI(ctx, definition, event.APIUUID, event.Organization); err != nil {
		log.Error("failed to index api", "apiUuid", event.APIUUID, "err", err)
	}
}
