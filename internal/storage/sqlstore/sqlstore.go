// Package sqlstore は database/sql 上の storage.Store 実装です (MySQL / SQLite)。
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tasktree/backend/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Dialect はドライバごとの差分です。
type Dialect struct {
	Name string
	// WriteTx / ReadTx は BeginTx に渡すオプションです。nil ならドライバの既定値を使います。
	WriteTx *sql.TxOptions
	ReadTx  *sql.TxOptions
}

// MySQL は書き込みを SERIALIZABLE で実行します (InnoDB は読み取りもロック付きになる)。
var MySQL = Dialect{
	Name:    "mysql",
	WriteTx: &sql.TxOptions{Isolation: sql.LevelSerializable},
	ReadTx:  &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true},
}

// SQLite は DSN の _txlock=immediate で書き込みを直列化します。
var SQLite = Dialect{Name: "sqlite"}

// DialectFor はドライバ名から Dialect を返します。
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

// Store は *sql.DB をラップしたストアです。
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New は新しいStoreを作成します。スキーマは事前にマイグレーション済みである必要があります。
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Begin はトランザクションを開始します。
func (s *Store) Begin(ctx context.Context, opts storage.TxOptions) (storage.Txn, error) {
	txOpts := s.dialect.WriteTx
	if opts.ReadOnly {
		txOpts = s.dialect.ReadTx
	}
	tx, err := s.db.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, fmt.Errorf("could not begin transaction: %w", mapError(err))
	}
	return &txn{tx: tx}, nil
}

// Ping はデータベース接続を確認します。
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close は接続を閉じます。
func (s *Store) Close() error {
	return s.db.Close()
}

type txn struct {
	tx *sql.Tx
}

func (t *txn) Get(ctx context.Context, entity storage.Entity, id int64) (storage.Record, error) {
	cols, err := columnsOf(entity)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT id, %s FROM %s WHERE id = ?", strings.Join(cols, ", "), entity)
	rec, err := scanRecord(entity, cols, t.tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", entity, id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("could not query %s: %w", entity, mapError(err))
	}
	return rec, nil
}

func (t *txn) Query(ctx context.Context, entity storage.Entity, filter storage.Filter) ([]storage.Record, error) {
	cols, err := columnsOf(entity)
	if err != nil {
		return nil, err
	}
	f, err := storage.NormalizeFilter(entity, filter)
	if err != nil {
		return nil, err
	}
	where, args := whereClause(f)
	query := fmt.Sprintf("SELECT id, %s FROM %s%s ORDER BY id", strings.Join(cols, ", "), entity, where)

	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("could not query %s: %w", entity, mapError(err))
	}
	defer rows.Close()

	var out []storage.Record
	for rows.Next() {
		rec, err := scanRecord(entity, cols, rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan %s: %w", entity, mapError(err))
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", entity, mapError(err))
	}
	return out, nil
}

func (t *txn) Insert(ctx context.Context, entity storage.Entity, rec storage.Record) (int64, error) {
	norm, err := storage.Normalize(entity, rec)
	if err != nil {
		return 0, err
	}
	keys := sortedKeys(norm)
	args := make([]any, 0, len(keys))
	for _, k := range keys {
		args = append(args, norm[k])
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		entity, strings.Join(keys, ", "), placeholders(len(keys)))

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("could not insert %s: %w", entity, mapError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("could not get last insert ID: %w", err)
	}
	return id, nil
}

func (t *txn) Update(ctx context.Context, entity storage.Entity, id int64, fields storage.Record) error {
	norm, err := storage.Normalize(entity, fields)
	if err != nil {
		return err
	}
	if len(norm) == 0 {
		_, err := t.Get(ctx, entity, id)
		return err
	}
	keys := sortedKeys(norm)
	sets := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		sets = append(sets, k+" = ?")
		args = append(args, norm[k])
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", entity, strings.Join(sets, ", "))

	result, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("could not update %s: %w", entity, mapError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// MySQL は値が変わらない行を 0 件と数えるので存在を確認する
		if _, err := t.Get(ctx, entity, id); err != nil {
			return err
		}
	}
	return nil
}

func (t *txn) Delete(ctx context.Context, entity storage.Entity, id int64) error {
	if _, err := columnsOf(entity); err != nil {
		return err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", entity)
	result, err := t.tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("could not delete %s: %w", entity, mapError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, storage.ErrNotFound)
	}
	return nil
}

func (t *txn) Commit() error {
	if err := t.tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return storage.ErrTxDone
		}
		return fmt.Errorf("could not commit: %w", mapError(err))
	}
	return nil
}

func (t *txn) Rollback() error {
	if err := t.tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return storage.ErrTxDone
		}
		return fmt.Errorf("could not rollback: %w", err)
	}
	return nil
}

func columnsOf(entity storage.Entity) ([]string, error) {
	cols := storage.Columns(entity)
	if cols == nil {
		return nil, fmt.Errorf("%w: entity %s", storage.ErrUnknownField, entity)
	}
	return cols, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(entity storage.Entity, cols []string, row rowScanner) (storage.Record, error) {
	kinds := storage.Schema[entity]
	var id int64
	dest := make([]any, 0, len(cols)+1)
	dest = append(dest, &id)
	holders := make([]any, len(cols))
	for i, c := range cols {
		switch kinds[c] {
		case storage.KindInt, storage.KindNullInt:
			holders[i] = &sql.NullInt64{}
		case storage.KindString:
			holders[i] = &sql.NullString{}
		case storage.KindBool:
			holders[i] = &sql.NullBool{}
		case storage.KindTime:
			holders[i] = &timeValue{}
		}
		dest = append(dest, holders[i])
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec := storage.Record{"id": id}
	for i, c := range cols {
		switch h := holders[i].(type) {
		case *sql.NullInt64:
			if h.Valid {
				rec[c] = h.Int64
			} else {
				rec[c] = nil
			}
		case *sql.NullString:
			rec[c] = h.String
		case *sql.NullBool:
			rec[c] = h.Bool
		case *timeValue:
			rec[c] = h.Time
		}
	}
	return rec, nil
}

func whereClause(f storage.Filter) (string, []any) {
	if len(f) == 0 {
		return "", nil
	}
	keys := sortedKeys(storage.Record(f))
	conds := make([]string, 0, len(keys))
	var args []any
	for _, k := range keys {
		switch v := f[k].(type) {
		case nil:
			conds = append(conds, k+" IS NULL")
		case []int64:
			if len(v) == 0 {
				conds = append(conds, "1 = 0")
				continue
			}
			conds = append(conds, fmt.Sprintf("%s IN (%s)", k, placeholders(len(v))))
			for _, n := range v {
				args = append(args, n)
			}
		default:
			conds = append(conds, k+" = ?")
			args = append(args, v)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func sortedKeys(m storage.Record) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
