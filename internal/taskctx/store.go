// Package taskctx はタスクごとの作業コンテキストをSQLiteに保存する
package taskctx

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tkc/taskdeck/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS contexts (
	task_id    TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// Store はmanager.ContextStoreのSQLite実装
type Store struct {
	db *sql.DB
}

// Open はコンテキストストアを開く。スキーマがなければ作る
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open context store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init context store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close はストアを閉じる
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveContext はタスクのコンテキストを保存する
// ペイロードはタスクのスナップショットで、復元時の照合に使う
func (s *Store) SaveContext(task *domain.LocalTask) error {
	payload := task.ID + "\n" + task.Summary
	_, err := s.db.Exec(`
		INSERT INTO contexts (task_id, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, task.ID, payload, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save context for %s: %w", task.ID, err)
	}
	return nil
}

// RestoreContext はタスクのコンテキストを読み出して照合する
// 保存されていない場合は何もしない。スナップショットがタスクのものでなければ
// 壊れた行としてエラーを返す
func (s *Store) RestoreContext(task *domain.LocalTask) error {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM contexts WHERE task_id = ?", task.ID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore context for %s: %w", task.ID, err)
	}
	id, _, ok := strings.Cut(payload, "\n")
	if !ok || id != task.ID {
		return fmt.Errorf("context for %s is corrupted", task.ID)
	}
	return nil
}

// ClearContext は全コンテキストを消す
func (s *Store) ClearContext() error {
	if _, err := s.db.Exec("DELETE FROM contexts"); err != nil {
		return fmt.Errorf("failed to clear contexts: %w", err)
	}
	return nil
}

// RemoveContext はタスクのコンテキストを消す
func (s *Store) RemoveContext(task *domain.LocalTask) error {
	if _, err := s.db.Exec("DELETE FROM contexts WHERE task_id = ?", task.ID); err != nil {
		return fmt.Errorf("failed to remove context for %s: %w", task.ID, err)
	}
	return nil
}

// Pack は古いコンテキストを整理する
// maxAgeDaysより古い行を消し、残りをmaxRows件（更新が新しい順）まで絞る
func (s *Store) Pack(maxRows, maxAgeDays int) error {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	if _, err := s.db.Exec("DELETE FROM contexts WHERE updated_at < ?", cutoff); err != nil {
		return fmt.Errorf("failed to pack contexts by age: %w", err)
	}
	_, err := s.db.Exec(`
		DELETE FROM contexts WHERE task_id NOT IN (
			SELECT task_id FROM contexts ORDER BY updated_at DESC LIMIT ?
		)
	`, maxRows)
	if err != nil {
		return fmt.Errorf("failed to pack contexts by size: %w", err)
	}
	return nil
}

// Count は保存されているコンテキストの数を返す
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM contexts").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count contexts: %w", err)
	}
	return n, nil
}
