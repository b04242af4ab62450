package manager

import (
	"fmt"
	"strings"

	"github.com/tkc/taskdeck/internal/domain"
	"github.com/tkc/taskdeck/internal/vcs"
)

// VcsEnabled はVCS連携が有効かどうかを返す
func (m *Manager) VcsEnabled() bool {
	return m.clm != nil
}

// AssociatedTask は指定のチェンジリストに関連付いたタスクを返す
// 1つのチェンジリストが複数のタスクに関連付くことはない
func (m *Manager) AssociatedTask(changeListID string) *domain.LocalTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		if m.tasks[id].HasChangeList(changeListID) {
			return m.tasks[id]
		}
	}
	return nil
}

// TrackChangeList はチェンジリストに対応するローカルタスクを作成して関連付ける
// デフォルトのチェンジリストだった場合はそのタスクをアクティブにする
func (m *Manager) TrackChangeList(list vcs.ChangeList) *domain.LocalTask {
	task := m.newLocalTask(list.Name)
	task.AddChangeList(domain.ChangeListInfo{ID: list.ID, Name: list.Name, Comment: list.Comment})
	m.AddTask(task)
	if list.Default {
		m.ActivateTask(task, false, false)
	}
	return task
}

// DisassociateChangeList はチェンジリストへの関連付けを全タスクから外す
func (m *Manager) DisassociateChangeList(changeListID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		m.tasks[id].RemoveChangeList(changeListID)
	}
}

// CreateChangeList はタスク用のチェンジリストを作成または再利用して
// デフォルトに設定する。既存のチェンジリストを再利用する場合は
// 先に以前の関連付けを外す
func (m *Manager) CreateChangeList(task *domain.LocalTask, name, comment string) error {
	cl, found := m.clm.FindChangeListByName(name)
	if !found {
		var err error
		cl, err = m.clm.AddChangeList(name, comment)
		if err != nil {
			return fmt.Errorf("failed to add changelist %q: %w", name, err)
		}
	} else {
		if prior := m.AssociatedTask(cl.ID); prior != nil {
			m.mu.Lock()
			prior.RemoveChangeList(cl.ID)
			m.mu.Unlock()
		}
		if err := m.clm.SetComment(cl.ID, comment); err != nil {
			m.log.Warn("failed to set changelist comment", "changelist", name, "error", err)
		}
	}

	m.mu.Lock()
	task.AddChangeList(domain.ChangeListInfo{ID: cl.ID, Name: name, Comment: comment})
	m.mu.Unlock()

	return m.clm.SetDefaultChangeList(cl.ID)
}

// ChangeListName はタスク用のチェンジリスト名を組み立てる
// 課題由来のタスクは設定されたテンプレートを使う
func (m *Manager) ChangeListName(task *domain.LocalTask) string {
	if task.FromIssue && m.opts.ChangeListNameFormat != "" {
		return FormatTask(task, m.opts.ChangeListNameFormat)
	}
	return task.Summary
}

// FormatTask はテンプレート中の{id}と{summary}をタスクの値で置換する
func FormatTask(task *domain.LocalTask, format string) string {
	s := strings.ReplaceAll(format, "{id}", task.ID)
	return strings.ReplaceAll(s, "{summary}", task.Summary)
}

func changeListComment(task *domain.LocalTask) string {
	if task.FromIssue && task.IssueURL != "" {
		return task.IssueURL
	}
	return ""
}

// pruneDeadChangeLists は削除済みチェンジリストへの参照をタスクから取り除く
func (m *Manager) pruneDeadChangeLists() {
	for _, task := range m.LocalTasks(true) {
		m.mu.Lock()
		refs := append([]domain.ChangeListInfo(nil), task.ChangeLists...)
		m.mu.Unlock()
		for _, ref := range refs {
			if _, ok := m.clm.FindChangeList(ref.ID); !ok {
				m.mu.Lock()
				task.RemoveChangeList(ref.ID)
				m.mu.Unlock()
			}
		}
	}
}

// changeListListener はChangeListManagerの変化をレジストリに反映する
type changeListListener struct {
	m *Manager
}

func (l *changeListListener) ChangeListRemoved(list vcs.ChangeList) {
	l.m.DisassociateChangeList(list.ID)
}

func (l *changeListListener) DefaultChanged(previous, current vcs.ChangeList) {
	task := l.m.AssociatedTask(current.ID)
	if task != nil && task.ID != l.m.ActiveTask().ID {
		l.m.ActivateTask(task, true, false)
	}
}
