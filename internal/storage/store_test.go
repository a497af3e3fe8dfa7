package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apigovern/gatekeeper/domain"
)

func newTestStore(t *testing.T) *SQLSignatureStore {
	t.Helper()
	store, err := Connect(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLSignatureStore_InsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sig := domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{1, 2, 3, 4}}
	require.NoError(t, store.Insert(ctx, sig))

	got, err := store.Get(ctx, "api-1", "org1")
	require.NoError(t, err)
	assert.Equal(t, sig, got)
}

func TestSQLSignatureStore_Insert_DuplicateKeyFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sig := domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{1}}
	require.NoError(t, store.Insert(ctx, sig))

	err := store.Insert(ctx, sig)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeStorageError))
}

func TestSQLSignatureStore_SameUUIDDifferentOrganizations(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{1}}))
	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-1", Organization: "org2", Signature: []byte{2}}))

	got, err := store.Get(ctx, "api-1", "org2")
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, got.Signature)
}

func TestSQLSignatureStore_Update(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{1}}))
	require.NoError(t, store.Update(ctx, domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{9}}))

	got, err := store.Get(ctx, "api-1", "org1")
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, got.Signature)
}

func TestSQLSignatureStore_Update_MissingRowIsNotAnError(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(context.Background(), domain.APISignature{APIUUID: "ghost", Organization: "org1", Signature: []byte{1}})
	assert.NoError(t, err)
}

func TestSQLSignatureStore_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{1}}))
	require.NoError(t, store.Upsert(ctx, domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{2}}))

	got, err := store.Get(ctx, "api-1", "org1")
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, got.Signature)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLSignatureStore_Get_Missing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "ghost", "org1")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeStorageError))
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestSQLSignatureStore_GetAllByOrganization(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{1}}))
	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-2", Organization: "org1", Signature: []byte{2}}))
	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-3", Organization: "org2", Signature: []byte{3}}))

	org1, err := store.GetAllByOrganization(ctx, "org1")
	require.NoError(t, err)
	assert.Len(t, org1, 2)

	org3, err := store.GetAllByOrganization(ctx, "org3")
	require.NoError(t, err)
	assert.Empty(t, org3)
}

func TestSQLSignatureStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{1}}))
	require.NoError(t, store.Delete(ctx, "api-1", "org1"))

	exists, err := store.Exists(ctx, "api-1", "org1")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting a missing row is a no-op.
	require.NoError(t, store.Delete(ctx, "api-1", "org1"))
}

func TestSQLSignatureStore_DeleteAllByOrganization(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{1}}))
	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-2", Organization: "org1", Signature: []byte{2}}))
	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-3", Organization: "org2", Signature: []byte{3}}))

	require.NoError(t, store.DeleteAllByOrganization(ctx, "org1"))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "api-3", all[0].APIUUID)
}

func TestSQLSignatureStore_Exists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exists, err := store.Exists(ctx, "api-1", "org1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Insert(ctx, domain.APISignature{APIUUID: "api-1", Organization: "org1", Signature: []byte{1}}))

	exists, err = store.Exists(ctx, "api-1", "org1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMigrate_UnknownDialect(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	err = Migrate(context.Background(), db, "oracle")
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeConfigError))
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(context.Background(), db, "sqlite3"))
	require.NoError(t, Migrate(context.Background(), db, "sqlite3"))
}
