package manager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tkc/taskdeck/internal/domain"
	"github.com/tkc/taskdeck/internal/tracker"
)

func TestIssuesMergesSuccessfulRepositories(t *testing.T) {
	r1 := &fakeRepo{name: "r1", url: "file:///r1", configured: true, issues: []domain.Issue{
		{ID: "A-1", Summary: "one"},
		{ID: "A-2", Summary: "two"},
	}}
	r2 := &fakeRepo{name: "r2", url: "file:///r2", configured: true, issues: []domain.Issue{
		{ID: "B-1", Summary: "three"},
	}}
	m := newTestManager(Options{})
	m.SetRepositories([]tracker.Repository{r1, r2})

	issues := m.Issues(context.Background(), "", 50, time.Time{}, false, true)
	if len(issues) != 3 {
		t.Fatalf("Expected 3 issues, got %d", len(issues))
	}
}

func TestIssuesFallsBackToCacheWhenAllFail(t *testing.T) {
	repo := &fakeRepo{name: "r1", url: "file:///r1", configured: true, issues: []domain.Issue{
		{ID: "A-1", Summary: "one"},
	}}
	m := newTestManager(Options{})
	m.SetRepositories([]tracker.Repository{repo})

	// 成功してキャッシュを温める
	if got := m.Issues(context.Background(), "", 50, time.Time{}, false, true); len(got) != 1 {
		t.Fatalf("Expected 1 issue, got %d", len(got))
	}

	// 全リポジトリが失敗するとキャッシュが返る
	repo.err = errors.New("connection refused")
	got := m.Issues(context.Background(), "", 50, time.Time{}, true, true)
	if len(got) != 1 || got[0].ID != "A-1" {
		t.Errorf("Expected the cached issue, got %v", got)
	}
}

func TestIssuesEmptySuccessIsNotAFailure(t *testing.T) {
	ok := &fakeRepo{name: "empty", url: "file:///empty", configured: true}
	m := newTestManager(Options{})
	m.SetRepositories([]tracker.Repository{ok})

	// キャッシュに古い課題を残しておく
	m.issueMu.Lock()
	m.issueCache["OLD-1"] = domain.Issue{ID: "OLD-1"}
	m.issueOrder = []string{"OLD-1"}
	m.issueMu.Unlock()

	// 1件でも成功すれば空リストでもキャッシュへは逃げない
	got := m.Issues(context.Background(), "", 50, time.Time{}, false, true)
	if len(got) != 0 {
		t.Errorf("Expected an empty result, got %v", got)
	}
}

func TestIssuesFiltersClosed(t *testing.T) {
	repo := &fakeRepo{name: "r1", url: "file:///r1", configured: true, issues: []domain.Issue{
		{ID: "A-1", Summary: "open"},
		{ID: "A-2", Summary: "done", Closed: true},
	}}
	m := newTestManager(Options{})
	m.SetRepositories([]tracker.Repository{repo})

	open := m.Issues(context.Background(), "", 50, time.Time{}, false, false)
	if len(open) != 1 || open[0].ID != "A-1" {
		t.Errorf("Expected only the open issue, got %v", open)
	}
}

func TestFailedRepositoryMarkedBadSilently(t *testing.T) {
	bad := &fakeRepo{name: "bad", url: "file:///bad", configured: true, err: errors.New("connection refused")}
	good := &fakeRepo{name: "good", url: "file:///good", configured: true, issues: []domain.Issue{
		{ID: "A-1"}, {ID: "A-2"}, {ID: "A-3"},
	}}
	notifier := &fakeNotifier{}
	m := New(nil, &fakeContexts{}, nil, notifier, Options{})
	m.SetRepositories([]tracker.Repository{bad, good})

	issues := m.Issues(context.Background(), "", 50, time.Time{}, false, true)
	if len(issues) != 3 {
		t.Errorf("Expected the surviving repository's 3 issues, got %d", len(issues))
	}
	if got := m.BadRepositories(); len(got) != 1 || got[0] != tracker.Repository(bad) {
		t.Errorf("Expected only the failing repository to be bad, got %v", got)
	}
	if notifier.count() != 0 {
		t.Error("Expected no notification on a background request")
	}
}

func TestForcedRequestNotifiesAndRetriesBad(t *testing.T) {
	bad := &fakeRepo{name: "bad", url: "file:///bad", configured: true, err: errors.New("connection refused")}
	notifier := &fakeNotifier{}
	m := New(nil, &fakeContexts{}, nil, notifier, Options{})
	m.SetRepositories([]tracker.Repository{bad})

	m.Issues(context.Background(), "", 50, time.Time{}, false, true)
	if notifier.count() != 0 {
		t.Fatal("Expected no notification without force")
	}

	// badでも強制リクエストでは再試行し、失敗を通知する
	m.Issues(context.Background(), "", 50, time.Time{}, true, true)
	if got := bad.calls.Load(); got != 2 {
		t.Errorf("Expected a forced retry, got %d calls", got)
	}
	if notifier.count() != 1 {
		t.Errorf("Expected 1 notification, got %d", notifier.count())
	}
}

func TestBadRepositorySkippedWithoutForce(t *testing.T) {
	bad := &fakeRepo{name: "bad", url: "file:///bad", configured: true, err: errors.New("connection refused")}
	m := newTestManager(Options{})
	m.SetRepositories([]tracker.Repository{bad})

	m.Issues(context.Background(), "", 50, time.Time{}, false, true)
	m.Issues(context.Background(), "", 50, time.Time{}, false, true)
	if got := bad.calls.Load(); got != 1 {
		t.Errorf("Expected the bad repository to be skipped, got %d calls", got)
	}
}

func TestUnconfiguredRepositorySkipped(t *testing.T) {
	repo := &fakeRepo{name: "r1", url: "file:///r1", issues: []domain.Issue{{ID: "A-1"}}}
	m := newTestManager(Options{})
	m.SetRepositories([]tracker.Repository{repo})

	m.Issues(context.Background(), "", 50, time.Time{}, true, true)
	if repo.calls.Load() != 0 {
		t.Error("Expected unconfigured repositories to never be queried")
	}
}

func TestRefreshIssuesRebuildsCacheAndMergesTasks(t *testing.T) {
	repo := &fakeRepo{name: "r1", url: "file:///r1", configured: true, issues: []domain.Issue{
		{ID: "A-1", Summary: "renamed", Updated: time.Now()},
	}}
	m := newTestManager(Options{})
	m.SetRepositories([]tracker.Repository{repo})

	m.AdoptIssue(domain.Issue{ID: "A-1", Summary: "stale", Updated: time.Now().Add(-time.Hour)})
	m.issueMu.Lock()
	m.issueCache["GONE-1"] = domain.Issue{ID: "GONE-1"}
	m.issueOrder = []string{"GONE-1"}
	m.issueMu.Unlock()

	m.RefreshIssues(context.Background())

	// キャッシュは取得結果と一致する
	cached := m.CachedIssues(true)
	if len(cached) != 1 || cached[0].ID != "A-1" {
		t.Errorf("Expected the cache to be rebuilt, got %v", cached)
	}
	if m.FindTask("A-1").Summary != "renamed" {
		t.Error("Expected the local task to be merged from the refreshed issue")
	}
}

func TestRefreshIssuesClearsCacheWithoutConfiguredRepository(t *testing.T) {
	m := newTestManager(Options{})
	m.issueMu.Lock()
	m.issueCache["A-1"] = domain.Issue{ID: "A-1"}
	m.issueOrder = []string{"A-1"}
	m.issueMu.Unlock()

	m.RefreshIssues(context.Background())
	if got := m.CachedIssues(true); len(got) != 0 {
		t.Errorf("Expected the cache to be cleared, got %v", got)
	}
}

func TestRefreshIssuesKeepsCacheWhenAllFail(t *testing.T) {
	repo := &fakeRepo{name: "r1", url: "file:///r1", configured: true, err: errors.New("connection refused")}
	m := newTestManager(Options{})
	m.SetRepositories([]tracker.Repository{repo})

	m.issueMu.Lock()
	m.issueCache["A-1"] = domain.Issue{ID: "A-1"}
	m.issueOrder = []string{"A-1"}
	m.issueMu.Unlock()

	m.RefreshIssues(context.Background())
	if got := m.CachedIssues(true); len(got) != 1 {
		t.Errorf("Expected the cache to survive a failed refresh, got %v", got)
	}
}

func TestUpdateIssueMergesLocalTask(t *testing.T) {
	repo := &fakeRepo{name: "r1", url: "file:///r1", configured: true, issues: []domain.Issue{
		{ID: "A-1", Summary: "fresh", Updated: time.Now()},
	}}
	m := newTestManager(Options{})
	m.SetRepositories([]tracker.Repository{repo})
	m.AdoptIssue(domain.Issue{ID: "A-1", Summary: "stale", Updated: time.Now().Add(-time.Hour)})

	task := m.UpdateIssue(context.Background(), "A-1")
	if task == nil {
		t.Fatal("Expected the issue to be found")
	}
	if task.Summary != "fresh" {
		t.Errorf("Expected the merged summary, got %s", task.Summary)
	}
	if m.FindTask("A-1") != task {
		t.Error("Expected the registered task to be updated in place")
	}
}

func TestUpdateIssueUnknownID(t *testing.T) {
	repo := &fakeRepo{name: "r1", url: "file:///r1", configured: true}
	m := newTestManager(Options{})
	m.SetRepositories([]tracker.Repository{repo})

	if task := m.UpdateIssue(context.Background(), "NOPE-1"); task != nil {
		t.Errorf("Expected nil for an unknown issue, got %v", task)
	}
}
