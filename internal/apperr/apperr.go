// Package apperr はコア操作が返すエラー種別を定義します。
package apperr

import (
	"errors"
	"fmt"
)

// エラー種別。呼び出し側は errors.Is で判定します。
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrStorage    = errors.New("storage error")
)

// Error は種別と原因をまとめたエラーです。
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap は種別と原因の両方を返すので、errors.Is はどちらにもマッチします。
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validationf は ErrValidation 種別のエラーを作成します。
func Validationf(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Msg: fmt.Sprintf(format, args...)}
}

// Wrap は原因 err を指定の種別で包みます。
func Wrap(kind, err error, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf は err の種別を返します。種別が付いていなければ ErrStorage とみなします。
func KindOf(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrStorage} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrStorage
}

// IsRetryable は呼び出し側が再試行してよいエラーかどうかを返します。
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
