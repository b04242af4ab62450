package manager

import (
	"context"
	"errors"
	"time"

	"github.com/tkc/taskdeck/internal/domain"
	"github.com/tkc/taskdeck/internal/tracker"
)

// Issues は全リポジトリから課題を取得する
// 全リポジトリが失敗または未設定の場合はキャッシュ済みの課題を返す
func (m *Manager) Issues(ctx context.Context, query string, max int, since time.Time, forceRequest, withClosed bool) []domain.Issue {
	issues := m.issuesFromRepositories(ctx, query, max, since, forceRequest)
	if issues == nil {
		return m.CachedIssues(withClosed)
	}

	m.issueMu.Lock()
	for _, issue := range issues {
		if _, exists := m.issueCache[issue.ID]; !exists {
			m.issueOrder = append(m.issueOrder, issue.ID)
		}
		m.issueCache[issue.ID] = issue
	}
	m.issueMu.Unlock()

	filtered := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if !withClosed && issue.Closed {
			continue
		}
		filtered = append(filtered, issue)
	}
	return filtered
}

// CachedIssues はキャッシュ済みの課題一覧を返す
func (m *Manager) CachedIssues(withClosed bool) []domain.Issue {
	m.issueMu.Lock()
	defer m.issueMu.Unlock()
	issues := make([]domain.Issue, 0, len(m.issueOrder))
	for _, id := range m.issueOrder {
		issue := m.issueCache[id]
		if !withClosed && issue.Closed {
			continue
		}
		issues = append(issues, issue)
	}
	return issues
}

// UpdateIssue は課題を1件取り直してローカルタスクにマージする
// どのリポジトリにも見つからない場合はnilを返す
func (m *Manager) UpdateIssue(ctx context.Context, id string) *domain.LocalTask {
	for _, repo := range m.Repositories() {
		if repo.ExtractID(id) == "" {
			continue
		}
		issue, err := repo.FindIssue(ctx, id)
		if err != nil {
			m.log.Info("failed to find issue", "repository", repo.Name(), "id", id, "error", err)
			continue
		}
		if issue == nil {
			continue
		}
		m.mu.Lock()
		task, ok := m.tasks[id]
		if ok {
			task.UpdateFromIssue(*issue)
		}
		m.mu.Unlock()
		if ok {
			return task
		}
		return domain.NewLocalTask(*issue)
	}
	return nil
}

// RefreshIssues は全リポジトリから課題を取り直してキャッシュを作り直し、
// 一致するローカルタスクへ内容をマージする
// 実行中の重複起動はupdatingフラグで抑止する
func (m *Manager) RefreshIssues(ctx context.Context) {
	configured := false
	for _, repo := range m.Repositories() {
		if repo.IsConfigured() {
			configured = true
			break
		}
	}
	if !configured {
		m.issueMu.Lock()
		m.issueCache = make(map[string]domain.Issue)
		m.issueOrder = nil
		m.issueMu.Unlock()
		return
	}

	if !m.updating.CompareAndSwap(false, true) {
		return
	}
	defer m.updating.Store(false)

	issues := m.issuesFromRepositories(ctx, "", m.opts.RefreshPageSize, time.Time{}, false)
	if issues == nil {
		return
	}

	// キャッシュを返ってきた集合と一致させる
	m.issueMu.Lock()
	m.issueCache = make(map[string]domain.Issue, len(issues))
	m.issueOrder = make([]string, 0, len(issues))
	for _, issue := range issues {
		if _, exists := m.issueCache[issue.ID]; !exists {
			m.issueOrder = append(m.issueOrder, issue.ID)
		}
		m.issueCache[issue.ID] = issue
	}
	m.issueMu.Unlock()

	// ローカルタスクをIDの一致でその場で更新する
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issueMu.Lock()
	defer m.issueMu.Unlock()
	for id, task := range m.tasks {
		if issue, ok := m.issueCache[id]; ok {
			task.UpdateFromIssue(issue)
		}
	}
}

// issuesFromRepositories は設定済みの全リポジトリから課題を集める
// badなリポジトリはforceRequestでない限り飛ばす。リポジトリ単位の失敗は
// ログに残してbadに積み、forceRequestの場合のみ通知する
// 1件も成功しなかった場合はnil（空の成功結果とは区別される）
// リポジトリをまたいだIDの重複排除は行わない
func (m *Manager) issuesFromRepositories(ctx context.Context, query string, max int, since time.Time, forceRequest bool) []domain.Issue {
	var issues []domain.Issue
	for _, repo := range m.Repositories() {
		if !repo.IsConfigured() || (!forceRequest && m.isBad(repo)) {
			continue
		}
		got, err := repo.GetIssues(ctx, query, max, since)
		if err != nil {
			if ctx.Err() != nil {
				// 集約側のキャンセルだけは上に伝える
				return issues
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				// リポジトリ単位のキャンセルは失敗として扱わない
				continue
			}
			m.log.Warn("cannot connect to repository", "repository", repo.Name(), "error", err)
			m.markBad(repo)
			if forceRequest && m.notifier != nil {
				m.notifier.ConnectionFailed(repo.URL())
			}
			continue
		}
		m.clearBad(repo)
		if issues == nil {
			issues = make([]domain.Issue, 0, len(got))
		}
		issues = append(issues, got...)
	}
	return issues
}

func (m *Manager) isBad(repo tracker.Repository) bool {
	m.badMu.Lock()
	defer m.badMu.Unlock()
	return m.bad[repo]
}

func (m *Manager) markBad(repo tracker.Repository) {
	m.badMu.Lock()
	defer m.badMu.Unlock()
	m.bad[repo] = true
}

func (m *Manager) clearBad(repo tracker.Repository) {
	m.badMu.Lock()
	defer m.badMu.Unlock()
	delete(m.bad, repo)
}

// BadRepositories は直近の取得または接続テストに失敗したリポジトリを返す
func (m *Manager) BadRepositories() []tracker.Repository {
	m.badMu.Lock()
	defer m.badMu.Unlock()
	repos := make([]tracker.Repository, 0, len(m.bad))
	for repo := range m.bad {
		repos = append(repos, repo)
	}
	return repos
}
