package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tkc/taskdeck/internal/domain"
	"github.com/tkc/taskdeck/internal/tracker"
)

// TypeName はこのコネクタの種別名
const TypeName = "jsonl"

func init() {
	tracker.RegisterType(TypeName, func() tracker.Repository {
		return &Repository{}
	})
}

// Repository はJSONLファイルをトラッカーとして扱うコネクタ
// 1行に1課題のJSONを置く
type Repository struct {
	Label string `yaml:"name"`
	Path  string `yaml:"path"`
}

// New は新しいRepositoryを作成する
func New(name, path string) *Repository {
	return &Repository{Label: name, Path: path}
}

// issueRecord はファイル上の課題の形式
type issueRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"` // "open", "in_progress", "closed"
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	URL         string    `json:"url,omitempty"`
}

// Type は種別名を返す
func (r *Repository) Type() string { return TypeName }

// Name は表示名を返す
func (r *Repository) Name() string { return r.Label }

// URL はファイルパスを返す
func (r *Repository) URL() string { return r.Path }

// IsConfigured は課題を取得できる設定が揃っているかを返す
func (r *Repository) IsConfigured() bool {
	return r.Label != "" && r.Path != ""
}

func (r *Repository) toIssue(rec issueRecord) domain.Issue {
	return domain.Issue{
		ID:          rec.ID,
		Summary:     rec.Title,
		Description: rec.Description,
		Created:     rec.CreatedAt,
		Updated:     rec.UpdatedAt,
		Closed:      rec.Status == "closed",
		IssueURL:    rec.URL,
		Repository:  r.Label,
	}
}

func (r *Repository) scan(visit func(rec issueRecord) bool) error {
	file, err := os.Open(r.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", r.Path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var rec issueRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// 壊れた行は読み飛ばす
			continue
		}
		if !visit(rec) {
			break
		}
	}
	return scanner.Err()
}

// GetIssues はクエリに一致する課題を最大max件取得する
func (r *Repository) GetIssues(ctx context.Context, query string, max int, since time.Time) ([]domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	var issues []domain.Issue
	err := r.scan(func(rec issueRecord) bool {
		// 追加する前に上限を確認する（max<=0は0件）
		if len(issues) >= max {
			return false
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(rec.Title), needle) &&
			!strings.Contains(strings.ToLower(rec.ID), needle) {
			return true
		}
		if !since.IsZero() && rec.UpdatedAt.Before(since) {
			return true
		}
		issues = append(issues, r.toIssue(rec))
		return true
	})
	if err != nil {
		return nil, err
	}
	return issues, nil
}

// FindIssue はIDで課題を1件取得する。見つからない場合はnilを返す
func (r *Repository) FindIssue(ctx context.Context, id string) (*domain.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found *domain.Issue
	err := r.scan(func(rec issueRecord) bool {
		if rec.ID == id {
			issue := r.toIssue(rec)
			found = &issue
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ExtractID はこのファイル内に存在する課題のIDであればそれを返す
func (r *Repository) ExtractID(id string) string {
	found, err := r.FindIssue(context.Background(), id)
	if err != nil || found == nil {
		return ""
	}
	return id
}

// TestConnection はファイルが読めるかどうかを確認する
func (r *Repository) TestConnection(ctx context.Context) error {
	file, err := os.Open(r.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", r.Path, err)
	}
	return file.Close()
}
