package domain

import "time"

// DefaultTaskID はデフォルトタスクの固定ID
const DefaultTaskID = "Default"

// DefaultTaskSummary はデフォルトタスクのサマリー
const DefaultTaskSummary = "Default task"

// Issue はリモートトラッカーから取得した課題のスナップショット
type Issue struct {
	ID          string    // トラッカー内で一意なキー
	Summary     string    // タイトル
	Description string    // 本文
	Created     time.Time // 作成日時
	Updated     time.Time // 最終更新日時
	Closed      bool      // クローズ済みかどうか
	IssueURL    string    // 課題のURL
	Repository  string    // 取得元リポジトリ名
}

// LocalTask はローカルレジストリで管理されるタスク
type LocalTask struct {
	ID          string           `yaml:"id"`
	Summary     string           `yaml:"summary"`
	Created     time.Time        `yaml:"created"`
	Updated     time.Time        `yaml:"updated"`
	Closed      bool             `yaml:"closed,omitempty"`
	Active      bool             `yaml:"active,omitempty"`
	FromIssue   bool             `yaml:"issue,omitempty"`
	IssueURL    string           `yaml:"issue_url,omitempty"`
	TimeSpent   time.Duration    `yaml:"time_spent,omitempty"`
	ChangeLists []ChangeListInfo `yaml:"changelists,omitempty"`
}

// NewLocalTask はIssueをLocalTaskに昇格する
func NewLocalTask(issue Issue) *LocalTask {
	return &LocalTask{
		ID:        issue.ID,
		Summary:   issue.Summary,
		Created:   issue.Created,
		Updated:   issue.Updated,
		Closed:    issue.Closed,
		FromIssue: true,
		IssueURL:  issue.IssueURL,
	}
}

// NewDefaultTask はデフォルトタスクを作成する
func NewDefaultTask() *LocalTask {
	now := time.Now()
	return &LocalTask{
		ID:      DefaultTaskID,
		Summary: DefaultTaskSummary,
		Created: now,
		Updated: now,
	}
}

// IsDefault はデフォルトタスクかどうかを返す
func (t *LocalTask) IsDefault() bool {
	return t.ID == DefaultTaskID
}

// UpdateFromIssue はリモート課題の内容をタスクにマージする
func (t *LocalTask) UpdateFromIssue(issue Issue) {
	t.Summary = issue.Summary
	t.Closed = issue.Closed
	t.FromIssue = true
	if issue.IssueURL != "" {
		t.IssueURL = issue.IssueURL
	}
	if issue.Updated.After(t.Updated) {
		t.Updated = issue.Updated
	}
}

// AddChangeList はチェンジリストへの関連付けを追加する
func (t *LocalTask) AddChangeList(info ChangeListInfo) {
	for _, cl := range t.ChangeLists {
		if cl.ID == info.ID {
			return
		}
	}
	t.ChangeLists = append(t.ChangeLists, info)
}

// RemoveChangeList はチェンジリストへの関連付けを解除する
func (t *LocalTask) RemoveChangeList(id string) {
	for i, cl := range t.ChangeLists {
		if cl.ID == id {
			t.ChangeLists = append(t.ChangeLists[:i], t.ChangeLists[i+1:]...)
			return
		}
	}
}

// HasChangeList は指定IDのチェンジリストと関連付いているかを返す
func (t *LocalTask) HasChangeList(id string) bool {
	for _, cl := range t.ChangeLists {
		if cl.ID == id {
			return true
		}
	}
	return false
}

// MoreRecentlyUpdated はaがbより新しいかどうかを返す
// 更新日時が同じ場合は作成日時で比較する
func MoreRecentlyUpdated(a, b *LocalTask) bool {
	if !a.Updated.Equal(b.Updated) {
		return a.Updated.After(b.Updated)
	}
	return a.Created.After(b.Created)
}
