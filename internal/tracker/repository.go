package tracker

import (
	"context"
	"time"

	"github.com/tkc/taskdeck/internal/domain"
)

// Repository はリモートトラッカーへのコネクタ
type Repository interface {
	// Type はリポジトリ種別名を返す（シリアライズに使う）
	Type() string
	// Name はこのリポジトリの表示名を返す
	Name() string
	// URL は接続先を返す
	URL() string
	// IsConfigured は課題を取得できる設定が揃っているかを返す
	IsConfigured() bool
	// GetIssues はクエリに一致する課題を最大max件取得する
	// sinceがゼロ値でない場合はそれ以降に更新されたものに絞る
	GetIssues(ctx context.Context, query string, max int, since time.Time) ([]domain.Issue, error)
	// FindIssue はIDで課題を1件取得する。見つからない場合はnilを返す
	FindIssue(ctx context.Context, id string) (*domain.Issue, error)
	// ExtractID はこのリポジトリの課題IDであればそのIDを、違えば空文字を返す
	ExtractID(id string) string
	// TestConnection は接続確認を行う
	TestConnection(ctx context.Context) error
}

// CancellableConnection はキャンセル可能な接続テスト
type CancellableConnection interface {
	// Run は接続テストを実行して完了までブロックする
	Run() error
	// Cancel は実行中のテストに中断を要求する
	Cancel()
}

// CancellableConnector はCancellableConnectionを生成できるリポジトリ
type CancellableConnector interface {
	NewCancellableConnection() CancellableConnection
}
