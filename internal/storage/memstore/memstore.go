// Package memstore はテストや一時環境向けのインメモリ storage.Store 実装です。
//
// 書き込みトランザクションは終了まで排他ロックを保持し、取り消しログでロールバックします。
// 読み取りトランザクションは共有ロックで並行に動きます。
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/semaphore"

	"tasktree/backend/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// 書き込みはこの重みをすべて取得するので、読み取りとは同時に走りません。
const maxReaders = 1 << 16

var errClosed = errors.New("memstore: store closed")

// Store はマップで表現されたインメモリのストアです。
type Store struct {
	sem *semaphore.Weighted

	mu     sync.Mutex // closed の保護のみ
	closed bool

	tables map[storage.Entity]map[int64]storage.Record
	seq    map[storage.Entity]int64
}

// New は空のStoreを作成します。
func New() *Store {
	s := &Store{
		sem:    semaphore.NewWeighted(maxReaders),
		tables: make(map[storage.Entity]map[int64]storage.Record),
		seq:    make(map[storage.Entity]int64),
	}
	for entity := range storage.Schema {
		s.tables[entity] = make(map[int64]storage.Record)
	}
	return s
}

// Begin はトランザクションを開始します。ロック待ちは ctx でキャンセルできます。
func (s *Store) Begin(ctx context.Context, opts storage.TxOptions) (storage.Txn, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	weight := int64(maxReaders)
	if opts.ReadOnly {
		weight = 1
	}
	if err := s.sem.Acquire(ctx, weight); err != nil {
		return nil, fmt.Errorf("%w: waiting for lock: %v", storage.ErrConflict, err)
	}
	return &txn{s: s, readOnly: opts.ReadOnly, weight: weight}, nil
}

// Ping はストアが利用可能か確認します。
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.checkOpen()
}

// Close はストアを閉じます。以降の Begin は失敗します。
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	return nil
}

type txn struct {
	s        *Store
	readOnly bool
	weight   int64
	undo     []func()
	done     bool
}

func (t *txn) check(ctx context.Context, write bool) error {
	if t.done {
		return storage.ErrTxDone
	}
	if write && t.readOnly {
		return errors.New("memstore: write in read-only transaction")
	}
	return ctx.Err()
}

func (t *txn) table(entity storage.Entity) (map[int64]storage.Record, error) {
	tbl, ok := t.s.tables[entity]
	if !ok {
		return nil, fmt.Errorf("%w: entity %s", storage.ErrUnknownField, entity)
	}
	return tbl, nil
}

func (t *txn) Get(ctx context.Context, entity storage.Entity, id int64) (storage.Record, error) {
	if err := t.check(ctx, false); err != nil {
		return nil, err
	}
	tbl, err := t.table(entity)
	if err != nil {
		return nil, err
	}
	rec, ok := tbl[id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", entity, id, storage.ErrNotFound)
	}
	return withID(rec, id), nil
}

func (t *txn) Query(ctx context.Context, entity storage.Entity, filter storage.Filter) ([]storage.Record, error) {
	if err := t.check(ctx, false); err != nil {
		return nil, err
	}
	tbl, err := t.table(entity)
	if err != nil {
		return nil, err
	}
	f, err := storage.NormalizeFilter(entity, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0)
	for id, rec := range tbl {
		if matches(withID(rec, id), f) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	out := make([]storage.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, withID(tbl[id], id))
	}
	return out, nil
}

func (t *txn) Insert(ctx context.Context, entity storage.Entity, rec storage.Record) (int64, error) {
	if err := t.check(ctx, true); err != nil {
		return 0, err
	}
	tbl, err := t.table(entity)
	if err != nil {
		return 0, err
	}
	norm, err := storage.Normalize(entity, rec)
	if err != nil {
		return 0, err
	}
	if err := t.checkUnique(entity, tbl, 0, norm); err != nil {
		return 0, err
	}
	prevSeq := t.s.seq[entity]
	id := prevSeq + 1
	t.s.seq[entity] = id
	tbl[id] = norm
	t.undo = append(t.undo, func() {
		delete(tbl, id)
		t.s.seq[entity] = prevSeq
	})
	return id, nil
}

func (t *txn) Update(ctx context.Context, entity storage.Entity, id int64, fields storage.Record) error {
	if err := t.check(ctx, true); err != nil {
		return err
	}
	tbl, err := t.table(entity)
	if err != nil {
		return err
	}
	old, ok := tbl[id]
	if !ok {
		return fmt.Errorf("%s %d: %w", entity, id, storage.ErrNotFound)
	}
	norm, err := storage.Normalize(entity, fields)
	if err != nil {
		return err
	}
	next := old.Clone()
	for k, v := range norm {
		next[k] = v
	}
	if err := t.checkUnique(entity, tbl, id, next); err != nil {
		return err
	}
	tbl[id] = next
	t.undo = append(t.undo, func() { tbl[id] = old })
	return nil
}

func (t *txn) Delete(ctx context.Context, entity storage.Entity, id int64) error {
	if err := t.check(ctx, true); err != nil {
		return err
	}
	tbl, err := t.table(entity)
	if err != nil {
		return err
	}
	old, ok := tbl[id]
	if !ok {
		return fmt.Errorf("%s %d: %w", entity, id, storage.ErrNotFound)
	}
	delete(tbl, id)
	t.undo = append(t.undo, func() { tbl[id] = old })
	return nil
}

func (t *txn) Commit() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true
	t.undo = nil
	t.s.sem.Release(t.weight)
	return nil
}

func (t *txn) Rollback() error {
	if t.done {
		return storage.ErrTxDone
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.s.sem.Release(t.weight)
	return nil
}

func (t *txn) checkUnique(entity storage.Entity, tbl map[int64]storage.Record, self int64, rec storage.Record) error {
	for _, field := range storage.UniqueFields[entity] {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		for id, other := range tbl {
			if id != self && other[field] == v {
				return fmt.Errorf("%s.%s: %w", entity, field, storage.ErrDuplicate)
			}
		}
	}
	return nil
}

func withID(rec storage.Record, id int64) storage.Record {
	out := rec.Clone()
	out["id"] = id
	return out
}

func matches(rec storage.Record, f storage.Filter) bool {
	for k, want := range f {
		got := rec[k]
		switch w := want.(type) {
		case nil:
			if got != nil {
				return false
			}
		case []int64:
			n, ok := got.(int64)
			if !ok || !slices.Contains(w, n) {
				return false
			}
		default:
			if got != want {
				return false
			}
		}
	}
	return true
}
