package vcs

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DefaultChangeListName はデフォルトチェンジリストの名前
const DefaultChangeListName = "Default"

// LocalChangeListManager はメモリ上で動くChangeListManager
// 常に1つ以上のチェンジリストを持ち、そのうち1つがデフォルトになる
type LocalChangeListManager struct {
	mu        sync.Mutex
	lists     []ChangeList
	listeners []Listener
}

// NewLocalChangeListManager はデフォルトチェンジリストだけを持つマネージャを作成する
func NewLocalChangeListManager() *LocalChangeListManager {
	return &LocalChangeListManager{
		lists: []ChangeList{
			{ID: uuid.NewString(), Name: DefaultChangeListName, Default: true},
		},
	}
}

// Load は保存されていたチェンジリスト一覧を復元する
// デフォルトが1つもない場合は先頭をデフォルトにする
func (m *LocalChangeListManager) Load(lists []ChangeList) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(lists) == 0 {
		return
	}
	m.lists = append([]ChangeList(nil), lists...)

	hasDefault := false
	for i := range m.lists {
		if m.lists[i].Default {
			if hasDefault {
				m.lists[i].Default = false
			}
			hasDefault = true
		}
	}
	if !hasDefault {
		m.lists[0].Default = true
	}
}

// ChangeLists は全チェンジリストのコピーを返す
func (m *LocalChangeListManager) ChangeLists() []ChangeList {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ChangeList(nil), m.lists...)
}

// FindChangeList はIDでチェンジリストを探す
func (m *LocalChangeListManager) FindChangeList(id string) (ChangeList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cl := range m.lists {
		if cl.ID == id {
			return cl, true
		}
	}
	return ChangeList{}, false
}

// FindChangeListByName は名前でチェンジリストを探す
func (m *LocalChangeListManager) FindChangeListByName(name string) (ChangeList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cl := range m.lists {
		if cl.Name == name {
			return cl, true
		}
	}
	return ChangeList{}, false
}

// AddChangeList は新しいチェンジリストを追加する
func (m *LocalChangeListManager) AddChangeList(name, comment string) (ChangeList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, cl := range m.lists {
		if cl.Name == name {
			return ChangeList{}, fmt.Errorf("changelist %q already exists", name)
		}
	}
	cl := ChangeList{ID: uuid.NewString(), Name: name, Comment: comment}
	m.lists = append(m.lists, cl)
	return cl, nil
}

// RemoveChangeList はチェンジリストを削除する。デフォルトは削除できない
func (m *LocalChangeListManager) RemoveChangeList(id string) error {
	m.mu.Lock()
	var removed *ChangeList
	for i, cl := range m.lists {
		if cl.ID == id {
			if cl.Default {
				m.mu.Unlock()
				return fmt.Errorf("cannot remove the default changelist")
			}
			removed = &cl
			m.lists = append(m.lists[:i], m.lists[i+1:]...)
			break
		}
	}
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if removed == nil {
		return fmt.Errorf("changelist not found: %s", id)
	}
	for _, l := range listeners {
		l.ChangeListRemoved(*removed)
	}
	return nil
}

// SetComment はチェンジリストのコメントを更新する
func (m *LocalChangeListManager) SetComment(id, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.lists {
		if m.lists[i].ID == id {
			m.lists[i].Comment = comment
			return nil
		}
	}
	return fmt.Errorf("changelist not found: %s", id)
}

// SetDefaultChangeList はデフォルトのチェンジリストを切り替える
func (m *LocalChangeListManager) SetDefaultChangeList(id string) error {
	m.mu.Lock()
	var previous, current *ChangeList
	for i := range m.lists {
		if m.lists[i].Default {
			previous = &m.lists[i]
		}
		if m.lists[i].ID == id {
			current = &m.lists[i]
		}
	}
	if current == nil {
		m.mu.Unlock()
		return fmt.Errorf("changelist not found: %s", id)
	}
	if previous != nil && previous.ID == current.ID {
		m.mu.Unlock()
		return nil
	}
	if previous != nil {
		previous.Default = false
	}
	current.Default = true

	prevCopy := ChangeList{}
	if previous != nil {
		prevCopy = *previous
	}
	currCopy := *current
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l.DefaultChanged(prevCopy, currCopy)
	}
	return nil
}

// DefaultChangeList は現在のデフォルトチェンジリストを返す
func (m *LocalChangeListManager) DefaultChangeList() (ChangeList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cl := range m.lists {
		if cl.Default {
			return cl, true
		}
	}
	return ChangeList{}, false
}

// AddListener はリスナーを登録する
func (m *LocalChangeListManager) AddListener(listener Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// RemoveListener はリスナーを解除する
func (m *LocalChangeListManager) RemoveListener(listener Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, registered := range m.listeners {
		if registered == listener {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}
