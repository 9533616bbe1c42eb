// Package storage はコアが依存する永続化インターフェースを定義します。
// リレーショナルDB・インメモリのどちらの実装もこの契約を満たします。
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Entity は保存対象のエンティティ種別 (テーブル名) です。
type Entity string

const (
	EntityUsers Entity = "users"
	EntityLists Entity = "lists"
	EntityItems Entity = "items"
)

var (
	// ErrNotFound は指定IDのレコードが存在しない場合のエラーです。
	ErrNotFound = errors.New("record not found")
	// ErrConflict は並行トランザクションとの競合で処理を続けられない場合のエラーです。再試行できます。
	ErrConflict = errors.New("transaction conflict")
	// ErrDuplicate は一意制約に違反した場合のエラーです。
	ErrDuplicate = errors.New("duplicate record")
	// ErrUnknownField はスキーマにないカラムが指定された場合のエラーです。
	ErrUnknownField = errors.New("unknown field")
	// ErrTxDone はコミット/ロールバック済みのトランザクションを使った場合のエラーです。
	ErrTxDone = errors.New("transaction already finished")
)

// Record はカラム名から値へのマップです。"id" は常に int64 です。
type Record map[string]any

// Filter は等価条件の AND です。値が nil なら IS NULL、[]int64 なら IN (...) を意味します。
type Filter map[string]any

// TxOptions はトランザクションの開始オプションです。
type TxOptions struct {
	ReadOnly bool
}

// Store はトランザクションを発行するバックエンドです。
type Store interface {
	Begin(ctx context.Context, opts TxOptions) (Txn, error)
	Ping(ctx context.Context) error
	Close() error
}

// Txn は単一のトランザクションです。Commit か Rollback のどちらかを必ず呼んでください。
type Txn interface {
	Get(ctx context.Context, entity Entity, id int64) (Record, error)
	// Query は条件に合うレコードを id の昇順で返します。
	Query(ctx context.Context, entity Entity, filter Filter) ([]Record, error)
	Insert(ctx context.Context, entity Entity, rec Record) (int64, error)
	Update(ctx context.Context, entity Entity, id int64, fields Record) error
	Delete(ctx context.Context, entity Entity, id int64) error
	Commit() error
	Rollback() error
}

// FieldKind はカラムの型です。
type FieldKind int

const (
	KindInt FieldKind = iota
	KindNullInt
	KindString
	KindBool
	KindTime
)

// Schema は各エンティティで使えるカラムと型です ("id" を除く)。
var Schema = map[Entity]map[string]FieldKind{
	EntityUsers: {
		"username":      KindString,
		"email":         KindString,
		"password_hash": KindString,
		"role":          KindString,
		"created_at":    KindTime,
		"updated_at":    KindTime,
	},
	EntityLists: {
		"owner_id":   KindInt,
		"title":      KindString,
		"created_at": KindTime,
		"updated_at": KindTime,
	},
	EntityItems: {
		"list_id":    KindInt,
		"parent_id":  KindNullInt,
		"content":    KindString,
		"completed":  KindBool,
		"created_at": KindTime,
		"updated_at": KindTime,
	},
}

// UniqueFields はエンティティごとの一意制約カラムです。
var UniqueFields = map[Entity][]string{
	EntityUsers: {"username", "email"},
}

// Columns はスキーマのカラム名を決まった順序で返します。
func Columns(entity Entity) []string {
	switch entity {
	case EntityUsers:
		return []string{"username", "email", "password_hash", "role", "created_at", "updated_at"}
	case EntityLists:
		return []string{"owner_id", "title", "created_at", "updated_at"}
	case EntityItems:
		return []string{"list_id", "parent_id", "content", "completed", "created_at", "updated_at"}
	}
	return nil
}

// CheckFields は rec のキーがすべてスキーマに存在するか確認します。
func CheckFields(entity Entity, rec map[string]any) error {
	cols, ok := Schema[entity]
	if !ok {
		return fmt.Errorf("%w: entity %s", ErrUnknownField, entity)
	}
	for k := range rec {
		if k == "id" {
			continue
		}
		if _, ok := cols[k]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, entity, k)
		}
	}
	return nil
}

// Int64 は Record の値を int64 として取り出します。
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case *int64:
		if v != nil {
			return *v
		}
	}
	return 0
}

// NullInt64 は NULL 許容の整数カラムを取り出します。
func (r Record) NullInt64(key string) *int64 {
	switch v := r[key].(type) {
	case int64:
		return &v
	case int:
		n := int64(v)
		return &n
	case *int64:
		if v != nil {
			n := *v
			return &n
		}
	}
	return nil
}

// String は文字列カラムを取り出します。
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool は真偽値カラムを取り出します。
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Time は時刻カラムを取り出します。
func (r Record) Time(key string) time.Time {
	t, _ := r[key].(time.Time)
	return t
}

// Clone は浅いコピーを返します。
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Normalize は rec の値をカラム型に合わせた正規形 (int64 / nil / string / bool / time.Time) に変換します。
func Normalize(entity Entity, rec map[string]any) (Record, error) {
	if err := CheckFields(entity, rec); err != nil {
		return nil, err
	}
	cols := Schema[entity]
	out := make(Record, len(rec))
	for k, v := range rec {
		if k == "id" {
			continue
		}
		nv, err := normalizeValue(cols[k], v)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", entity, k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// NormalizeFilter はフィルタ値を正規形に変換します。[]int64 はそのまま残します。
func NormalizeFilter(entity Entity, filter Filter) (Filter, error) {
	if err := CheckFields(entity, filter); err != nil {
		return nil, err
	}
	cols := Schema[entity]
	out := make(Filter, len(filter))
	for k, v := range filter {
		if ids, ok := v.([]int64); ok {
			out[k] = ids
			continue
		}
		kind := KindNullInt
		if k != "id" {
			kind = cols[k]
			if kind == KindInt {
				kind = KindNullInt
			}
		}
		nv, err := normalizeValue(kind, v)
		if err != nil {
			return nil, fmt.Errorf("filter %s.%s: %w", entity, k, err)
		}
		out[k] = nv
	}
	return out, nil
}

func normalizeValue(kind FieldKind, v any) (any, error) {
	switch kind {
	case KindInt, KindNullInt:
		switch n := v.(type) {
		case nil:
			if kind == KindInt {
				return nil, errors.New("value must not be null")
			}
			return nil, nil
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case *int64:
			if n == nil {
				if kind == KindInt {
					return nil, errors.New("value must not be null")
				}
				return nil, nil
			}
			return *n, nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("unexpected value type %T", v)
}
