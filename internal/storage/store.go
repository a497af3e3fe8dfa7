// Package storage persists MinHash signatures in a relational database
// through database/sql.
package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/charmbracelet/log"

	"github.com/apigovern/gatekeeper/domain"
)

// SQLSignatureStore implements domain.SignatureStore on top of database/sql.
type SQLSignatureStore struct {
	db *sql.DB
}

// NewSQLSignatureStore wraps an open database handle.
func NewSQLSignatureStore(db *sql.DB) *SQLSignatureStore {
	return &SQLSignatureStore{db: db}
}

// Connect opens a database handle, verifies connectivity, and runs the
// migration for the dialect matching the driver name.
func Connect(ctx context.Context, driver, dsn string) (*SQLSignatureStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, domain.NewStorageError("failed to open database", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.NewStorageError("failed to connect to database", err)
	}
	if err := Migrate(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLSignatureStore(db), nil
}

// Insert adds a new signature row. Inserting an existing (api, organization)
// pair fails with a storage error from the primary key constraint.
func (s *SQLSignatureStore) Insert(ctx context.Context, sig domain.APISignature) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, insertSignatureSQL,
		sig.APIUUID, sig.Signature, sig.Organization, now, now)
	if err != nil {
		return domain.NewStorageError("failed to insert signature", err)
	}
	return nil
}

// Update rewrites the signature blob of an existing row. Updating a missing
// row is logged and otherwise ignored.
func (s *SQLSignatureStore) Update(ctx context.Context, sig domain.APISignature) error {
	res, err := s.db.ExecContext(ctx, updateSignatureSQL,
		sig.Signature, time.Now().UTC(), sig.APIUUID, sig.Organization)
	if err != nil {
		return domain.NewStorageError("failed to update signature", err)
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		log.Warn("no signature row updated", "apiUuid", sig.APIUUID, "organization", sig.Organization)
	}
	return nil
}

// Upsert inserts the row if absent and updates it otherwise. The check and
// the write are separate statements, so concurrent upserts of the same key
// can still race into a constraint error.
func (s *SQLSignatureStore) Upsert(ctx context.Context, sig domain.APISignature) error {
	exists, err := s.Exists(ctx, sig.APIUUID, sig.Organization)
	if err != nil {
		return err
	}
	if exists {
		return s.Update(ctx, sig)
	}
	return s.Insert(ctx, sig)
}

// Get returns one signature row.
func (s *SQLSignatureStore) Get(ctx context.Context, apiUUID, organization string) (domain.APISignature, error) {
	var sig domain.APISignature
	err := s.db.QueryRowContext(ctx, getSignatureSQL, apiUUID, organization).
		Scan(&sig.APIUUID, &sig.Signature, &sig.Organization)
	if err != nil {
		return domain.APISignature{}, domain.NewStorageError("failed to get signature", err)
	}
	return sig, nil
}

// GetAll returns every stored signature across all organizations.
func (s *SQLSignatureStore) GetAll(ctx context.Context) ([]domain.APISignature, error) {
	return s.queryAll(ctx, getAllSignaturesSQL)
}

// GetAllByOrganization returns every stored signature of one organization.
func (s *SQLSignatureStore) GetAllByOrganization(ctx context.Context, organization string) ([]domain.APISignature, error) {
	return s.queryAll(ctx, getAllSignaturesByOrgSQL, organization)
}

func (s *SQLSignatureStore) queryAll(ctx context.Context, query string, args ...any) ([]domain.APISignature, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError("failed to query signatures", err)
	}
	defer rows.Close()

	var sigs []domain.APISignature
	for rows.Next() {
		var sig domain.APISignature
		if err := rows.Scan(&sig.APIUUID, &sig.Signature, &sig.Organization); err != nil {
			return nil, domain.NewStorageError("failed to scan signature row", err)
		}
		sigs = append(sigs, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("failed to iterate signature rows", err)
	}
	return sigs, nil
}

// Delete removes one signature row. Deleting a missing row is a no-op.
func (s *SQLSignatureStore) Delete(ctx context.Context, apiUUID, organization string) error {
	if _, err := s.db.ExecContext(ctx, deleteSignatureSQL, apiUUID, organization); err != nil {
		return domain.NewStorageError("failed to delete signature", err)
	}
	return nil
}

// DeleteAllByOrganization removes every signature of one organization.
func (s *SQLSignatureStore) DeleteAllByOrganization(ctx context.Context, organization string) error {
	if _, err := s.db.ExecContext(ctx, deleteAllSignaturesByOrgSQL, organization); err != nil {
		return domain.NewStorageError("failed to delete signatures", err)
	}
	return nil
}

// Exists reports whether a signature row is present.
func (s *SQLSignatureStore) Exists(ctx context.Context, apiUUID, organization string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, checkSignatureExistsSQL, apiUUID, organization).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, domain.NewStorageError("failed to check signature existence", err)
	}
	return true, nil
}

// Close closes the underlying database handle.
func (s *SQLSignatureStore) Close() error {
	if err := s.db.Close(); err != nil {
		return domain.NewStorageError("failed to close database", err)
	}
	return nil
}
