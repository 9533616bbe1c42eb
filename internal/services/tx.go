package services

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"tasktree/backend/internal/apperr"
	"tasktree/backend/internal/config"
	"tasktree/backend/internal/storage"
)

// txRunner はストレージのトランザクションを実行し、競合したら再試行します。
type txRunner struct {
	store   storage.Store
	retries int
	backoff time.Duration
	logger  *log.Logger
}

func newTxRunner(store storage.Store, cfg config.StoreConfig, logger *log.Logger) txRunner {
	return txRunner{
		store:   store,
		retries: max(cfg.ConflictRetries, 0),
		backoff: cfg.RetryBackoff(),
		logger:  logger,
	}
}

// run は fn を1つのトランザクションで実行します。fn がエラーを返すとロールバックします。
// storage.ErrConflict のときだけ retries 回まで最初からやり直します。
// 待機中に ctx が終われば、最後の競合をそのまま返します。
func (r txRunner) run(ctx context.Context, op string, readOnly bool, fn func(tx storage.Txn) error) error {
	err := r.once(ctx, readOnly, fn)
	for attempt := 1; attempt <= r.retries && errors.Is(err, storage.ErrConflict); attempt++ {
		r.logger.Warn("transaction conflict, retrying", "op", op, "attempt", attempt, "err", err)
		if sleep(ctx, r.backoff*time.Duration(attempt)) != nil {
			break
		}
		err = r.once(ctx, readOnly, fn)
	}
	if err == nil {
		return nil
	}
	return r.translate(op, err)
}

func (r txRunner) once(ctx context.Context, readOnly bool, fn func(tx storage.Txn) error) (err error) {
	tx, err := r.store.Begin(ctx, storage.TxOptions{ReadOnly: readOnly})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, storage.ErrTxDone) {
				r.logger.Error("rollback failed", "err", rbErr)
			}
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// translate はエラーをコアのエラー種別に揃えます。種別付きのエラーはそのまま返します。
func (r txRunner) translate(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, storage.ErrConflict) {
		return apperr.Wrap(apperr.ErrConflict, err, op)
	}
	r.logger.Error("storage failure", "op", op, "err", err)
	return apperr.Wrap(apperr.ErrStorage, err, op)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
