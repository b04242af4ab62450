package domain

import (
	"testing"
	"time"
)

func TestNewLocalTask(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)
	issue := Issue{
		ID:         "PROJ-7",
		Summary:    "Fix login",
		Created:    created,
		Updated:    updated,
		Closed:     true,
		IssueURL:   "https://tracker.example/PROJ-7",
		Repository: "example",
	}

	task := NewLocalTask(issue)
	if task.ID != issue.ID {
		t.Errorf("Expected id %s, got %s", issue.ID, task.ID)
	}
	if task.Summary != issue.Summary {
		t.Errorf("Expected summary %s, got %s", issue.Summary, task.Summary)
	}
	if !task.FromIssue {
		t.Error("Expected task to be marked as issue-backed")
	}
	if !task.Closed {
		t.Error("Expected closed flag to carry over")
	}
	if task.Active {
		t.Error("New tasks must not be active")
	}
}

func TestUpdateFromIssue(t *testing.T) {
	now := time.Now()
	task := &LocalTask{ID: "PROJ-7", Summary: "old", Created: now.Add(-time.Hour), Updated: now.Add(-time.Hour)}

	task.UpdateFromIssue(Issue{ID: "PROJ-7", Summary: "new", Closed: true, Updated: now})
	if task.Summary != "new" {
		t.Errorf("Expected summary to be merged, got %s", task.Summary)
	}
	if !task.Closed {
		t.Error("Expected closed flag to be merged")
	}
	if !task.Updated.Equal(now) {
		t.Errorf("Expected updated to advance to %v, got %v", now, task.Updated)
	}

	// 古い更新日時で巻き戻らないこと
	task.UpdateFromIssue(Issue{ID: "PROJ-7", Summary: "newer", Updated: now.Add(-2 * time.Hour)})
	if !task.Updated.Equal(now) {
		t.Errorf("Expected updated to stay at %v, got %v", now, task.Updated)
	}
}

func TestChangeListAssociation(t *testing.T) {
	task := &LocalTask{ID: "LOCAL-00001"}

	task.AddChangeList(ChangeListInfo{ID: "cl-1", Name: "feature"})
	task.AddChangeList(ChangeListInfo{ID: "cl-1", Name: "feature"}) // 重複は無視
	task.AddChangeList(ChangeListInfo{ID: "cl-2", Name: "bugfix"})

	if len(task.ChangeLists) != 2 {
		t.Fatalf("Expected 2 changelists, got %d", len(task.ChangeLists))
	}
	if !task.HasChangeList("cl-1") {
		t.Error("Expected cl-1 to be associated")
	}

	task.RemoveChangeList("cl-1")
	if task.HasChangeList("cl-1") {
		t.Error("Expected cl-1 to be removed")
	}
	if !task.HasChangeList("cl-2") {
		t.Error("Expected cl-2 to survive")
	}
}

func TestMoreRecentlyUpdated(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := &LocalTask{ID: "a", Created: base, Updated: base.Add(time.Hour)}
	b := &LocalTask{ID: "b", Created: base, Updated: base}

	if !MoreRecentlyUpdated(a, b) {
		t.Error("Expected a to be more recent than b")
	}
	if MoreRecentlyUpdated(b, a) {
		t.Error("Expected b to be older than a")
	}

	// 更新日時が同じ場合は作成日時で決める
	c := &LocalTask{ID: "c", Created: base.Add(time.Minute), Updated: base}
	if !MoreRecentlyUpdated(c, b) {
		t.Error("Expected creation time to break the tie")
	}
}

func TestIsDefault(t *testing.T) {
	if !NewDefaultTask().IsDefault() {
		t.Error("Expected the default task to report IsDefault")
	}
	if (&LocalTask{ID: "LOCAL-00001"}).IsDefault() {
		t.Error("Expected a plain task to not be default")
	}
}
