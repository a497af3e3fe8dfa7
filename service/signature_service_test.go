package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apigovern/gatekeeper/domain"
	"github.com/apigovern/gatekeeper/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

const petstoreSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "1.0"},
  "servers": [{"url": "https://a"}],
  "paths": {"/pets": {"get": {"operationId": "listPets"}}}
}`

const petstoreSpecOtherServer = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "1.0"},
  "servers": [{"url": "https://b"}],
  "paths": {"/pets": {"get": {"operationId": "listPets"}}}
}`

const ordersSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Orders", "version": "2.0"},
  "paths": {"/orders/{id}": {"post": {"operationId": "createOrder", "tags": ["orders"]}}},
  "components": {"schemas": {"Order": {"type": "object", "properties": {"total": {"type": "number"}}}}}
}`

func newTestService(t *testing.T) *SignatureService {
	t.Helper()
	store, err := storage.Connect(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	svc := NewSignatureService(store, SignatureServiceConfig{})
	t.Cleanup(func() { _ = svc.Shutdown() })
	return svc
}

func TestCheckForDuplicates_IdenticalSpecs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexAPI(ctx, petstoreSpec, "A", "t"))

	result, err := svc.CheckForDuplicates(petstoreSpec, "B", "t", 0.95)
	require.NoError(t, err)

	assert.True(t, result.IsDuplicate)
	assert.True(t, result.HighConfidence)
	require.Len(t, result.ConflictReports, 1)
	assert.Equal(t, "A", result.ConflictReports[0].MatchedAPIUUID)
	assert.Equal(t, 1.0, result.ConflictReports[0].SimilarityScore)
	assert.Equal(t, 0.95, result.Threshold)
}

func TestCheckForDuplicates_BoilerplateOnlyDifferences(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexAPI(ctx, petstoreSpec, "A", "t"))

	// Only the servers block differs, and servers are pruned.
	result, err := svc.CheckForDuplicates(petstoreSpecOtherServer, "B", "t", 0.95)
	require.NoError(t, err)

	assert.True(t, result.IsDuplicate)
	require.Len(t, result.ConflictReports, 1)
	assert.Equal(t, 1.0, result.ConflictReports[0].SimilarityScore)
}

func TestCheckForDuplicates_UnrelatedAPIs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexAPI(ctx, petstoreSpec, "A", "t"))

	result, err := svc.CheckForDuplicates(ordersSpec, "B", "t", 0.5)
	require.NoError(t, err)

	assert.False(t, result.IsDuplicate)
	assert.Empty(t, result.ConflictReports)
	assert.Equal(t, "No duplicate APIs found. API is unique.", result.Message)
}

func TestCheckForDuplicates_SelfExclusion(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexAPI(ctx, petstoreSpec, "X", "t"))

	result, err := svc.CheckForDuplicates(petstoreSpec, "X", "t", 0.95)
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
}

func TestCheckForDuplicates_TenantIsolation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexAPI(ctx, petstoreSpec, "X", "t1"))

	result, err := svc.CheckForDuplicates(petstoreSpec, "Y", "t2", 0.95)
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)
}

func TestCheckForDuplicates_ThresholdClampsToDefault(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexAPI(ctx, petstoreSpec, "A", "t"))

	for _, bad := range []float64{-1, 0, 0.3, 1.5} {
		result, err := svc.CheckForDuplicates(petstoreSpec, "B", "t", bad)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultSimilarityThreshold, result.Threshold, "threshold %v", bad)
		assert.True(t, result.IsDuplicate)
	}
}

func TestCheckForDuplicates_HighConfidenceMessage(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexAPI(ctx, petstoreSpec, "A", "t"))

	result, err := svc.CheckForDuplicates(petstoreSpec, "B", "t", 0.95)
	require.NoError(t, err)

	assert.Equal(t,
		"High-confidence duplicate detected (>95% similarity). Consider reusing the existing API or creating a new version.",
		result.Message)
	assert.Equal(t,
		"Consider reusing the existing API or creating a new version",
		result.ConflictReports[0].Recommendation)
}

func TestInitialize_HydratesIndexFromStore(t *testing.T) {
	store, err := storage.Connect(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	ctx := context.Background()

	// Populate the store through one service instance.
	seeder := NewSignatureService(store, SignatureServiceConfig{})
	specs := map[string]string{"A": petstoreSpec, "B": ordersSpec}
	for id, spec := range specs {
		dto, err := seeder.GenerateSignature(spec, id, "t")
		require.NoError(t, err)
		require.NoError(t, store.Insert(ctx, domain.APISignature{
			APIUUID: id, Organization: "t", Signature: dto.SignatureBlob,
		}))
	}
	dto, err := seeder.GenerateSignature(petstoreSpecOtherServer, "C", "t")
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, domain.APISignature{
		APIUUID: "C", Organization: "t", Signature: dto.SignatureBlob,
	}))

	// A fresh service over the same store sees all three after hydration.
	svc := NewSignatureService(store, SignatureServiceConfig{})
	require.NoError(t, svc.Initialize(ctx))
	defer func() { _ = svc.Shutdown() }()

	assert.Equal(t, 3, svc.IndexSize())
	assert.True(t, svc.Initialized())

	// The query id matches no stored id, so the stored copy of the same
	// definition is reported.
	result, err := svc.CheckForDuplicates(petstoreSpec, "query", "t", 0.95)
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
}

func TestInitialize_SkipsCorruptRows(t *testing.T) {
	store, err := storage.Connect(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	ctx := context.Background()

	seeder := NewSignatureService(store, SignatureServiceConfig{})
	dto, err := seeder.GenerateSignature(petstoreSpec, "good", "t")
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, domain.APISignature{
		APIUUID: "good", Organization: "t", Signature: dto.SignatureBlob,
	}))
	// Truncated blob: not a multiple of 4 bytes.
	require.NoError(t, store.Insert(ctx, domain.APISignature{
		APIUUID: "corrupt", Organization: "t", Signature: []byte{1, 2, 3},
	}))
	// Wrong length: decodes, but does not match the configured size.
	require.NoError(t, store.Insert(ctx, domain.APISignature{
		APIUUID: "short", Organization: "t", Signature: make([]byte, 8),
	}))

	svc := NewSignatureService(store, SignatureServiceConfig{})
	require.NoError(t, svc.Initialize(ctx))
	defer func() { _ = svc.Shutdown() }()

	assert.Equal(t, 1, svc.IndexSize())
	assert.True(t, svc.Contains("good"))
	assert.False(t, svc.Contains("corrupt"))
}

func TestInitialize_Idempotent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Initialize(ctx))
	require.NoError(t, svc.IndexAPI(ctx, petstoreSpec, "A", "t"))
	require.NoError(t, svc.Initialize(ctx))

	assert.Equal(t, 1, svc.IndexSize())
}

func TestUpdateAPI_ReplacesSignature(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexAPI(ctx, petstoreSpec, "X", "t"))
	require.NoError(t, svc.UpdateAPI(ctx, ordersSpec, "X", "t"))

	// The old shape no longer matches anything.
	result, err := svc.CheckForDuplicates(petstoreSpec, "query", "t", 0.95)
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)

	result, err = svc.CheckForDuplicates(ordersSpec, "query", "t", 0.95)
	require.NoError(t, err)
	assert.True(t, result.IsDuplicate)
	assert.Equal(t, "X", result.ConflictReports[0].MatchedAPIUUID)
}

func TestRemoveAPI(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.IndexAPI(ctx, petstoreSpec, "X", "t"))
	require.NoError(t, svc.RemoveAPI(ctx, "X", "t"))

	assert.False(t, svc.Contains("X"))
	result, err := svc.CheckForDuplicates(petstoreSpec, "query", "t", 0.95)
	require.NoError(t, err)
	assert.False(t, result.IsDuplicate)

	// Removing an unknown API is a no-op.
	require.NoError(t, svc.RemoveAPI(ctx, "ghost", "t"))
}

func TestGenerateSignature_DTOFields(t *testing.T) {
	svc := newTestService(t)

	dto, err := svc.GenerateSignature(petstoreSpec, "A", "t")
	require.NoError(t, err)

	assert.Equal(t, "A", dto.APIUUID)
	assert.Equal(t, "t", dto.Organization)
	assert.Len(t, dto.SignatureArray, domain.DefaultNumHashFunctions)
	assert.Len(t, dto.SignatureBlob, 4*domain.DefaultNumHashFunctions)
	assert.NotEmpty(t, dto.SignatureBase64)
	assert.Equal(t, domain.DefaultNumHashFunctions, dto.NumHashFunctions)
	assert.Equal(t, 2, dto.FeatureCount)
	assert.Positive(t, dto.ShingleCount)
}

func TestGenerateSignature_Deterministic(t *testing.T) {
	svc := newTestService(t)

	dto1, err := svc.GenerateSignature(petstoreSpec, "A", "t")
	require.NoError(t, err)
	dto2, err := svc.GenerateSignature(petstoreSpec, "A", "t")
	require.NoError(t, err)

	assert.Equal(t, dto1.SignatureArray, dto2.SignatureArray)
	assert.Equal(t, dto1.SignatureBase64, dto2.SignatureBase64)
}

func TestGenerateSignature_InvalidDefinition(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GenerateSignature("", "A", "t")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidInput))
}
