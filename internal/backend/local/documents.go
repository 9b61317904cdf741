package local

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"todo/internal/service"
)

// Authenticator reports the signed-in account. *Identity satisfies it.
type Authenticator interface {
	Current() *service.Account
}

// Documents implements service.Documents over the documents table.
//
// Access follows the usual owner-only rule of hosted document stores: every call needs
// a signed-in account, writes must carry ownerField equal to that account, and
// queries must filter on it.
type Documents struct {
	store      *Store
	auth       Authenticator
	ownerField string
}

// NewDocuments creates the local document service.
func NewDocuments(store *Store, auth Authenticator, ownerField string) *Documents {
	return &Documents{store: store, auth: auth, ownerField: ownerField}
}

// Query returns records whose field equals the filter value, in insertion order.
func (d *Documents) Query(ctx context.Context, collection string, filter service.Filter) ([]service.Record, error) {
	uid, err := d.user()
	if err != nil {
		return nil, err
	}
	if filter.Field != d.ownerField || filter.Value != uid {
		return nil, fmt.Errorf("query %s: %w", collection, service.ErrPermissionDenied)
	}
	if !validFieldName(filter.Field) {
		return nil, fmt.Errorf("invalid field name: %q", filter.Field)
	}

	rows, err := d.store.db.QueryContext(ctx,
		`SELECT id, fields FROM documents
WHERE collection = ? AND json_extract(fields, ?) = ?
ORDER BY seq`,
		collection, "$."+filter.Field, sqlValue(filter.Value))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var recs []service.Record
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		fields, err := decodeFields(raw)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		recs = append(recs, service.Record{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	return recs, nil
}

// Insert stores a new record under a random ID.
func (d *Documents) Insert(ctx context.Context, collection string, fields service.Fields) (string, error) {
	uid, err := d.user()
	if err != nil {
		return "", err
	}
	if fields[d.ownerField] != uid {
		return "", fmt.Errorf("insert %s: %w", collection, service.ErrPermissionDenied)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	id := uuid.NewString()
	now := toMillis(d.store.now())
	if _, err := d.store.db.ExecContext(ctx,
		"INSERT INTO documents (id, collection, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, collection, string(raw), now, now); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

// UpdateFields merges fields into an existing record. Nil values are stored as null.
func (d *Documents) UpdateFields(ctx context.Context, collection, id string, fields service.Fields) error {
	uid, err := d.user()
	if err != nil {
		return err
	}
	if v, ok := fields[d.ownerField]; ok && v != uid {
		return fmt.Errorf("update %s/%s: %w", collection, id, service.ErrPermissionDenied)
	}

	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := d.load(ctx, tx, collection, id, uid)
	if err != nil {
		return err
	}
	for k, v := range fields {
		current[k] = v
	}
	raw, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET fields = ?, updated_at = ? WHERE id = ? AND collection = ?",
		string(raw), toMillis(d.store.now()), id, collection); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

// Delete removes a record. Deleting a missing record is not an error.
func (d *Documents) Delete(ctx context.Context, collection, id string) error {
	uid, err := d.user()
	if err != nil {
		return err
	}

	tx, err := d.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := d.load(ctx, tx, collection, id, uid); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return nil
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ? AND collection = ?", id, collection); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

func (d *Documents) user() (string, error) {
	acct := d.auth.Current()
	if acct == nil {
		return "", service.ErrUnauthenticated
	}
	return acct.ID, nil
}

// load reads a record inside tx and checks ownership.
func (d *Documents) load(ctx context.Context, tx *sql.Tx, collection, id, uid string) (service.Fields, error) {
	var raw string
	err := tx.QueryRowContext(ctx, "SELECT fields FROM documents WHERE id = ? AND collection = ?", id, collection).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, service.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", collection, id, err)
	}
	fields, err := decodeFields(raw)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", id, err)
	}
	if fields[d.ownerField] != uid {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, service.ErrPermissionDenied)
	}
	return fields, nil
}

// decodeFields turns stored JSON back into service.Fields value types.
func decodeFields(raw string) (service.Fields, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid stored document: %w", err)
	}
	fields := make(service.Fields, len(m))
	for k, v := range m {
		if n, ok := v.(json.Number); ok {
			if i, err := n.Int64(); err == nil {
				v = i
			} else if f, err := n.Float64(); err == nil {
				v = f
			}
		}
		fields[k] = v
	}
	return fields, nil
}

// sqlValue converts a filter value to what json_extract yields for it.
func sqlValue(v any) any {
	switch v := v.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func validFieldName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
