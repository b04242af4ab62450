package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/tkc/taskdeck/internal/domain"
	"github.com/tkc/taskdeck/internal/tracker"
)

// TypeName はこのコネクタの種別名
const TypeName = "github"

func init() {
	tracker.RegisterType(TypeName, func() tracker.Repository {
		return &Repository{}
	})
}

// Repository はGitHub Issuesをトラッカーとして扱うコネクタ
type Repository struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Token string `yaml:"token"`

	gql *githubv4.Client
}

// New は新しいRepositoryを作成する
func New(owner, repo, token string) *Repository {
	return &Repository{Owner: owner, Repo: repo, Token: token}
}

// Type は種別名を返す
func (r *Repository) Type() string { return TypeName }

// Name は表示名を返す
func (r *Repository) Name() string {
	return r.Owner + "/" + r.Repo
}

// URL は接続先を返す
func (r *Repository) URL() string {
	return "https://github.com/" + r.Owner + "/" + r.Repo
}

// IsConfigured は課題を取得できる設定が揃っているかを返す
func (r *Repository) IsConfigured() bool {
	return r.Owner != "" && r.Repo != "" && r.Token != ""
}

func (r *Repository) client() *githubv4.Client {
	if r.gql == nil {
		src := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: r.Token},
		)
		httpClient := oauth2.NewClient(context.Background(), src)
		r.gql = githubv4.NewClient(httpClient)
	}
	return r.gql
}

type issueNode struct {
	Number    int
	Title     string
	Body      string
	URL       string `graphql:"url"`
	Closed    bool
	CreatedAt githubv4.DateTime
	UpdatedAt githubv4.DateTime
}

func (r *Repository) toIssue(n issueNode) domain.Issue {
	return domain.Issue{
		ID:          fmt.Sprintf("%s#%d", r.Name(), n.Number),
		Summary:     n.Title,
		Description: n.Body,
		Created:     n.CreatedAt.Time,
		Updated:     n.UpdatedAt.Time,
		Closed:      n.Closed,
		IssueURL:    n.URL,
		Repository:  r.Name(),
	}
}

// GetIssues はリポジトリの課題を更新日時の新しい順に取得する
func (r *Repository) GetIssues(ctx context.Context, query string, max int, since time.Time) ([]domain.Issue, error) {
	var q struct {
		Repository struct {
			Issues struct {
				Nodes []issueNode
			} `graphql:"issues(first: $max, orderBy: {field: UPDATED_AT, direction: DESC})"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]interface{}{
		"owner": githubv4.String(r.Owner),
		"name":  githubv4.String(r.Repo),
		"max":   githubv4.Int(max),
	}

	if err := r.client().Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}

	needle := strings.ToLower(query)
	issues := make([]domain.Issue, 0, len(q.Repository.Issues.Nodes))
	for _, n := range q.Repository.Issues.Nodes {
		if needle != "" && !strings.Contains(strings.ToLower(n.Title), needle) {
			continue
		}
		if !since.IsZero() && n.UpdatedAt.Time.Before(since) {
			continue
		}
		issues = append(issues, r.toIssue(n))
	}
	return issues, nil
}

// FindIssue はIDで課題を1件取得する
func (r *Repository) FindIssue(ctx context.Context, id string) (*domain.Issue, error) {
	key := r.ExtractID(id)
	if key == "" {
		return nil, nil
	}
	number, err := strconv.Atoi(key[strings.LastIndex(key, "#")+1:])
	if err != nil {
		return nil, fmt.Errorf("failed to parse issue number from %s: %w", id, err)
	}

	var q struct {
		Repository struct {
			Issue issueNode `graphql:"issue(number: $number)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]interface{}{
		"owner":  githubv4.String(r.Owner),
		"name":   githubv4.String(r.Repo),
		"number": githubv4.Int(number),
	}

	if err := r.client().Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to query issue #%d: %w", number, err)
	}

	issue := r.toIssue(q.Repository.Issue)
	return &issue, nil
}

// ExtractID は「owner/repo#番号」形式のIDであればそれを返す
func (r *Repository) ExtractID(id string) string {
	prefix := r.Name() + "#"
	if !strings.HasPrefix(id, prefix) {
		return ""
	}
	if _, err := strconv.Atoi(strings.TrimPrefix(id, prefix)); err != nil {
		return ""
	}
	return id
}

// TestConnection はトークンでviewerを照会して接続を確認する
func (r *Repository) TestConnection(ctx context.Context) error {
	var q struct {
		Viewer struct {
			Login string
		}
	}
	if err := r.client().Query(ctx, &q, nil); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", r.URL(), err)
	}
	return nil
}

// NewCancellableConnection はキャンセル可能な接続テストを生成する
func (r *Repository) NewCancellableConnection() tracker.CancellableConnection {
	ctx, cancel := context.WithCancel(context.Background())
	return &connection{repo: r, ctx: ctx, cancel: cancel}
}

type connection struct {
	repo   *Repository
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *connection) Run() error {
	return c.repo.TestConnection(c.ctx)
}

func (c *connection) Cancel() {
	c.cancel()
}
