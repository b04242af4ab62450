package manager

import (
	"time"

	"github.com/tkc/taskdeck/internal/domain"
)

// ActiveTask は現在アクティブなタスクを返す。常に1つだけ存在する
func (m *Manager) ActiveTask() *domain.LocalTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// ActivateTask はタスクをアクティブにする
// 既にアクティブな場合は何もしない。現在のアクティブタスクのコンテキストを
// 保存してから対象のコンテキストを復元し、TaskDeactivated、TaskActivatedの
// 順でイベントを通知する。VCSが有効な場合は関連チェンジリストへの切り替え、
// またはcreateChangelistに応じた新規作成を行う
// 副作用の失敗はログに残すだけで呼び出し元には伝播しない
func (m *Manager) ActivateTask(origin *domain.LocalTask, clearContext, createChangelist bool) {
	if origin.ID == m.ActiveTask().ID {
		return
	}

	m.saveActiveTask()

	if m.contexts != nil {
		if clearContext {
			if err := m.contexts.ClearContext(); err != nil {
				m.log.Warn("failed to clear context", "error", err)
			}
		}
		if err := m.contexts.RestoreContext(origin); err != nil {
			m.log.Warn("failed to restore context", "task", origin.ID, "error", err)
		}
	}

	task := m.doActivate(origin, true)

	if !m.VcsEnabled() {
		return
	}
	m.mu.Lock()
	var firstList string
	if len(task.ChangeLists) > 0 {
		firstList = task.ChangeLists[0].ID
	}
	m.mu.Unlock()

	if firstList != "" {
		if cl, ok := m.clm.FindChangeList(firstList); ok {
			if err := m.clm.SetDefaultChangeList(cl.ID); err != nil {
				m.log.Warn("failed to switch changelist", "changelist", cl.Name, "error", err)
			}
		}
		return
	}
	if createChangelist {
		name := m.ChangeListName(task)
		if err := m.CreateChangeList(task, name, changeListComment(task)); err != nil {
			m.log.Warn("failed to create changelist", "task", task.ID, "error", err)
		}
	}
}

// ActivateIssue はリモート課題をローカルタスクに昇格させてアクティブにする
func (m *Manager) ActivateIssue(issue domain.Issue, clearContext, createChangelist bool) *domain.LocalTask {
	task := m.AdoptIssue(issue)
	m.ActivateTask(task, clearContext, createChangelist)
	return task
}

// saveActiveTask は現在のアクティブタスクのコンテキストを保存して
// 更新日時を刻む
func (m *Manager) saveActiveTask() {
	m.mu.Lock()
	active := m.active
	active.Updated = time.Now()
	m.mu.Unlock()

	if m.contexts != nil {
		if err := m.contexts.SaveContext(active); err != nil {
			m.log.Warn("failed to save context", "task", active.ID, "error", err)
		}
	}
}

// doActivate はアクティブタスクを差し替えてイベントを通知する
// 課題由来のタスクはバックグラウンドで内容を再取得する
func (m *Manager) doActivate(task *domain.LocalTask, explicitly bool) *domain.LocalTask {
	m.mu.Lock()
	if explicitly {
		task.Updated = time.Now()
	}
	old := m.active
	old.Active = false
	task.Active = true
	m.putTaskLocked(task)
	changed := old.ID != task.ID
	m.active = task
	m.mu.Unlock()

	m.notifyAdded(task)
	if changed {
		m.notifyDeactivated(old)
		m.notifyActivated(task)
	}

	if task.FromIssue {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if updated := m.UpdateIssue(m.stopCtx, task.ID); updated == nil {
				m.log.Info("issue not refreshed", "id", task.ID)
			}
		}()
	}
	return task
}
