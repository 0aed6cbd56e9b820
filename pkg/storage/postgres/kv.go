package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"

	"typowatch/pkg/storage"
)

const (
	kvTable = "kv"
)

// PgKV is a row of the kv table. Values are binary, so every query runs as a
// prepared statement rather than with interpolated literals.
type PgKV struct {
	Key   string `db:"key"`
	Value []byte `db:"value"`
}

// Get implements storage.Store.
func (p *PgSQL) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	found, err := p.Builder.From(kvTable).Prepared(true).
		Select("value").
		Where(goqu.I("key").Eq(key)).
		Executor().ScanValContext(ctx, &value)
	if err != nil {
		return nil, fmt.Errorf("could not get key from pg: %w", err)
	}
	if !found {
		return nil, nil
	}

	return value, nil
}

// Put implements storage.Store as an upsert.
func (p *PgSQL) Put(ctx context.Context, key string, value []byte) error {
	_, err := p.Builder.Insert(kvTable).Prepared(true).
		Rows(goqu.Record{"key": key, "value": value}).
		OnConflict(goqu.DoUpdate("key", goqu.Record{
			"value":      goqu.I("excluded.value"),
			"updated_at": goqu.L("CURRENT_TIMESTAMP"),
		})).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not put key into pg: %w", err)
	}

	return nil
}

// Delete implements storage.Store.
func (p *PgSQL) Delete(ctx context.Context, key string) error {
	_, err := p.Builder.Delete(kvTable).Prepared(true).
		Where(goqu.I("key").Eq(key)).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("could not delete key from pg: %w", err)
	}

	return nil
}

// ScanPrefix implements storage.Store. starts_with is used instead of LIKE so
// prefixes containing '_' or '%' are matched literally.
func (p *PgSQL) ScanPrefix(ctx context.Context, prefix string) ([]storage.KV, error) {
	var rows []PgKV
	if err := p.Builder.From(kvTable).Prepared(true).
		Select("key", "value").
		Where(goqu.L("starts_with(?, ?)", goqu.I("key"), prefix)).
		Order(goqu.I("key").Asc()).
		Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("could not scan keys from pg: %w", err)
	}

	out := make([]storage.KV, 0, len(rows))
	for _, row := range rows {
		out = append(out, storage.KV{Key: row.Key, Value: row.Value})
	}

	return out, nil
}

// CompareAndSwap implements storage.Swapper with a conditional update (or a
// conflict-free insert when prev is nil). The swap happened iff exactly one
// row was affected.
func (p *PgSQL) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	var (
		affected int64
		err      error
	)
	if prev == nil {
		res, execErr := p.Builder.Insert(kvTable).Prepared(true).
			Rows(goqu.Record{"key": key, "value": next}).
			OnConflict(goqu.DoNothing()).
			Executor().ExecContext(ctx)
		if execErr != nil {
			return false, fmt.Errorf("could not insert key into pg: %w", execErr)
		}
		affected, err = res.RowsAffected()
	} else {
		res, execErr := p.Builder.Update(kvTable).Prepared(true).
			Set(goqu.Record{
				"value":      next,
				"updated_at": goqu.L("CURRENT_TIMESTAMP"),
			}).
			Where(goqu.I("key").Eq(key), goqu.I("value").Eq(prev)).
			Executor().ExecContext(ctx)
		if execErr != nil {
			return false, fmt.Errorf("could not swap key in pg: %w", execErr)
		}
		affected, err = res.RowsAffected()
	}
	if err != nil {
		return false, fmt.Errorf("could not read affected rows: %w", err)
	}

	return affected == 1, nil
}

var (
	_ storage.Store      = (*PgSQL)(nil)
	_ storage.Swapper    = (*PgSQL)(nil)
	_ storage.JobStorage = (*PgSQL)(nil)
)
