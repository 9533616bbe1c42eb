// Package logging はアプリケーション共通のロガーを作成します。
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// NewLogger はタイムスタンプと呼び出し元付きのロガーを作成します。w が nil なら標準エラー出力です。
// level が空または不正なら info になります。
func NewLogger(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{ReportTimestamp: true, ReportCaller: true})
	l.SetLevel(ParseLevel(level))
	return l
}

// ParseLevel はレベル名を変換します。不正な値は info 扱いです。
func ParseLevel(level string) log.Level {
	ll, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return ll
}

// Discard は何も出力しないロガーを返します。テスト用です。
func Discard() *log.Logger {
	return log.New(io.Discard)
}
