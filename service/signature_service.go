package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/apigovern/gatekeeper/domain"
	"github.com/apigovern/gatekeeper/internal/analyzer"
	"github.com/apigovern/gatekeeper/internal/extractor"
)

// SignatureServiceConfig sizes the MinHash generator and the LSH index.
// Zero values fall back to the defaults.
type SignatureServiceConfig struct {
	NumHashFunctions int
	NumBands         int
	Seed             int64
}

// SignatureService orchestrates signature generation, the in-memory LSH
// index, and the durable signature store.
type SignatureService struct {
	generator *analyzer.MinHashGenerator
	index     *analyzer.LSHIndex
	store     domain.SignatureStore

	mu          sync.Mutex
	initialized bool
}

// NewSignatureService builds a service over the given store.
func NewSignatureService(store domain.SignatureStore, cfg SignatureServiceConfig) *SignatureService {
	if cfg.NumHashFunctions <= 0 {
		cfg.NumHashFunctions = domain.DefaultNumHashFunctions
	}
	if cfg.NumBands <= 0 {
		cfg.NumBands = domain.DefaultNumBands
	}
	if cfg.Seed == 0 {
		cfg.Seed = domain.DefaultSeed
	}

	return &SignatureService{
		generator: analyzer.NewMinHashGeneratorWithSeed(cfg.NumHashFunctions, cfg.Seed),
		index:     analyzer.NewLSHIndex(cfg.NumBands, cfg.NumHashFunctions),
		store:     store,
	}
}

// Initialize hydrates the LSH index from the signature store. Rows whose
// blobs cannot be decoded or whose length does not match the configured
// signature size are logged and skipped. Calling Initialize again after a
// successful run is a no-op; a failed run can be retried.
func (s *SignatureService) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		log.Info("signature service already initialized")
		return nil
	}

	log.Info("hydrating similarity index from signature store")
	sigs, err := s.store.GetAll(ctx)
	if err != nil {
		return err
	}

	loaded := 0
	for _, row := range sigs {
		sig, err := analyzer.BytesToSignature(row.Signature)
		if err != nil {
			log.Warn("skipping undecodable signature", "apiUuid", row.APIUUID, "err", err)
			continue
		}
		if err := s.index.Insert(row.APIUUID, row.Organization, sig); err != nil {
			log.Warn("skipping signature with unexpected length", "apiUuid", row.APIUUID, "err", err)
			continue
		}
		loaded++
	}

	s.initialized = true
	log.Info("similarity index hydrated", "loaded", loaded, "total", len(sigs))
	return nil
}

// Initialized reports whether hydration has completed.
func (s *SignatureService) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// GenerateSignature runs the full pipeline for one API definition: prune,
// extract features, shingle, and compute the MinHash signature.
func (s *SignatureService) GenerateSignature(definition, apiUUID, organization string) (domain.SignatureDTO, error) {
	pruned, err := extractor.Prune(definition)
	if err != nil {
		return domain.SignatureDTO{}, err
	}

	features, err := extractor.ExtractFeatures(pruned)
	if err != nil {
		return domain.SignatureDTO{}, err
	}

	shingles := analyzer.ShinglesFromFeatures(features, domain.ShingleSize)
	sig := s.generator.ComputeSignature(analyzer.HashShingles(shingles))
	blob := analyzer.SignatureToBytes(sig)

	log.Debug("generated signature", "apiUuid", apiUUID,
		"features", len(features), "shingles", len(shingles))

	return domain.SignatureDTO{
		APIUUID:          apiUUID,
		Organization:     organization,
		SignatureArray:   sig,
		SignatureBase64:  base64.StdEncoding.EncodeToString(blob),
		NumHashFunctions: s.generator.NumHashFunctions(),
		FeatureCount:     len(features),
		ShingleCount:     len(shingles),
		SignatureBlob:    blob,
	}, nil
}

// CheckForDuplicates compares an API definition against the indexed APIs of
// its organization. Thresholds outside the valid range silently fall back
// to the default. The query API itself never appears among the matches.
func (s *SignatureService) CheckForDuplicates(definition, apiUUID, organization string, threshold float64) (domain.DedupResult, error) {
	if threshold < domain.MinSimilarityThreshold || threshold > domain.MaxSimilarityThreshold {
		threshold = domain.DefaultSimilarityThreshold
	}

	dto, err := s.GenerateSignature(definition, apiUUID, organization)
	if err != nil {
		return domain.DedupResult{}, err
	}

	similar, err := s.index.FindSimilar(organization, dto.SignatureArray, threshold)
	if err != nil {
		return domain.DedupResult{}, err
	}

	reports := make([]domain.ConflictReport, 0, len(similar))
	for _, match := range similar {
		if match.APIUUID == apiUUID {
			continue
		}
		reports = append(reports, domain.NewConflictReport(match.APIUUID, match.Similarity))
	}

	if len(reports) == 0 {
		return domain.UniqueResult(apiUUID, organization, threshold), nil
	}
	return domain.DuplicateResult(apiUUID, organization, threshold, reports), nil
}

// IndexAPI adds an API to the in-memory index and upserts its signature
// into the store. Both are written on every call; when the store upsert
// fails, its error is returned and the index insert is not undone.
func (s *SignatureService) IndexAPI(ctx context.Context, definition, apiUUID, organization string) error {
	dto, err := s.GenerateSignature(definition, apiUUID, organization)
	if err != nil {
		return err
	}

	if err := s.index.Insert(apiUUID, organization, dto.SignatureArray); err != nil {
		return err
	}

	if err := s.store.Upsert(ctx, domain.APISignature{
		APIUUID:      apiUUID,
		Organization: organization,
		Signature:    dto.SignatureBlob,
	}); err != nil {
		return err
	}

	log.Debug("indexed api", "apiUuid", apiUUID, "organization", organization)
	return nil
}

// UpdateAPI replaces an API's signature in the index and the store.
func (s *SignatureService) UpdateAPI(ctx context.Context, definition, apiUUID, organization string) error {
	s.index.Remove(apiUUID)
	return s.IndexAPI(ctx, definition, apiUUID, organization)
}

// RemoveAPI drops an API from the index and deletes its stored signature.
// Removing an unknown API is a no-op.
func (s *SignatureService) RemoveAPI(ctx context.Context, apiUUID, organization string) error {
	s.index.Remove(apiUUID)

	if err := s.store.Delete(ctx, apiUUID, organization); err != nil {
		return err
	}

	log.Debug("removed api", "apiUuid", apiUUID, "organization", organization)
	return nil
}

// Contains reports whether an API is currently indexed.
func (s *SignatureService) Contains(apiUUID string) bool {
	return s.index.Contains(apiUUID)
}

// IndexSize returns the number of indexed APIs.
func (s *SignatureService) IndexSize() int {
	return s.index.Size()
}

// IndexStats returns a snapshot of the index shape.
func (s *SignatureService) IndexStats() analyzer.IndexStats {
	return s.index.Stats()
}

// Shutdown closes the signature store.
func (s *SignatureService) Shutdown() error {
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("shutting down signature service: %w", err)
	}
	return nil
}
