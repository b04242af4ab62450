// Package manager はローカルタスクのレジストリとリモートトラッカーの同期エンジン
//
// レジストリはタスクIDをキーとする登録順のマップを1つのロックで守る
// 操作の頻度が低いため粗い同期で足りる
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tkc/taskdeck/internal/domain"
	"github.com/tkc/taskdeck/internal/tracker"
	"github.com/tkc/taskdeck/internal/vcs"
)

// ContextStore はタスクごとの作業コンテキストの保存先
type ContextStore interface {
	SaveContext(task *domain.LocalTask) error
	RestoreContext(task *domain.LocalTask) error
	ClearContext() error
	RemoveContext(task *domain.LocalTask) error
}

// Notifier は接続失敗をユーザーに知らせる通知先
type Notifier interface {
	// ConnectionFailed は強制リクエストでリポジトリへの接続に失敗したときに呼ばれる
	ConnectionFailed(repositoryURL string)
}

// デフォルト設定値
const (
	DefaultHistoryLength        = 50
	DefaultRefreshPageSize      = 100
	DefaultChangeListNameFormat = "{id} {summary}"
)

// timeTrackingUnit は作業時間を積算する刻み
const timeTrackingUnit = time.Second

// localTaskIDFormat はローカルタスクの連番ID形式
const localTaskIDFormat = "LOCAL-%05d"

// Options はエンジンの設定
type Options struct {
	HistoryLength        int           // 保持するタスク数の上限
	RefreshEnabled       bool          // 定期リフレッシュを行うかどうか
	RefreshInterval      time.Duration // リフレッシュ間隔
	RefreshPageSize      int           // リフレッシュ時の取得件数
	ChangeListNameFormat string        // チェンジリスト名のテンプレート（{id}と{summary}を置換）
	TimeTracking         bool          // 作業時間を積算するかどうか
}

func (o *Options) normalize() {
	if o.HistoryLength <= 0 {
		o.HistoryLength = DefaultHistoryLength
	}
	if o.RefreshPageSize <= 0 {
		o.RefreshPageSize = DefaultRefreshPageSize
	}
	if o.ChangeListNameFormat == "" {
		o.ChangeListNameFormat = DefaultChangeListNameFormat
	}
}

// Manager はタスクレジストリと同期エンジン本体
type Manager struct {
	log      *slog.Logger
	opts     Options
	contexts ContextStore
	clm      vcs.ChangeListManager
	notifier Notifier

	mu             sync.Mutex
	tasks          map[string]*domain.LocalTask
	order          []string // 登録順のタスクID
	active         *domain.LocalTask
	taskCounter    int
	totalTimeSpent time.Duration

	listenerMu sync.Mutex
	listeners  []domain.TaskListener

	repoMu       sync.Mutex
	repositories []tracker.Repository

	badMu sync.Mutex
	bad   map[tracker.Repository]bool

	issueMu    sync.Mutex
	issueCache map[string]domain.Issue
	issueOrder []string

	updating atomic.Bool

	clListener *changeListListener
	stopCtx    context.Context
	stopCancel context.CancelFunc
	wg         sync.WaitGroup
	started    bool
}

// New は新しいManagerを作成する
// clmがnilの場合はVCS連携なしとして動く
func New(logger *slog.Logger, contexts ContextStore, clm vcs.ChangeListManager, notifier Notifier, opts Options) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	opts.normalize()
	m := &Manager{
		log:        logger,
		opts:       opts,
		contexts:   contexts,
		clm:        clm,
		notifier:   notifier,
		tasks:      make(map[string]*domain.LocalTask),
		bad:        make(map[tracker.Repository]bool),
		issueCache: make(map[string]domain.Issue),
		active:     domain.NewDefaultTask(),
	}
	m.clListener = &changeListListener{m: m}
	m.stopCtx, m.stopCancel = context.WithCancel(context.Background())
	return m
}

// AddTaskListener はタスクイベントのリスナーを登録する
func (m *Manager) AddTaskListener(listener domain.TaskListener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// RemoveTaskListener はリスナーを解除する
func (m *Manager) RemoveTaskListener(listener domain.TaskListener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	for i, registered := range m.listeners {
		if registered == listener {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

func (m *Manager) taskListeners() []domain.TaskListener {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	return append([]domain.TaskListener(nil), m.listeners...)
}

func (m *Manager) notifyAdded(task *domain.LocalTask) {
	for _, l := range m.taskListeners() {
		l.TaskAdded(task)
	}
}

func (m *Manager) notifyRemoved(task *domain.LocalTask) {
	for _, l := range m.taskListeners() {
		l.TaskRemoved(task)
	}
}

func (m *Manager) notifyActivated(task *domain.LocalTask) {
	for _, l := range m.taskListeners() {
		l.TaskActivated(task)
	}
}

func (m *Manager) notifyDeactivated(task *domain.LocalTask) {
	for _, l := range m.taskListeners() {
		l.TaskDeactivated(task)
	}
}

// AddTask はタスクをレジストリに登録する（同一IDは上書き）
// 上限を超えた場合は最も古い非デフォルトタスクが追い出される
func (m *Manager) AddTask(task *domain.LocalTask) {
	m.mu.Lock()
	m.putTaskLocked(task)
	m.mu.Unlock()
	m.notifyAdded(task)
}

func (m *Manager) putTaskLocked(task *domain.LocalTask) {
	if _, exists := m.tasks[task.ID]; !exists {
		m.order = append(m.order, task.ID)
	}
	m.tasks[task.ID] = task

	// デフォルトタスクは上限に数えない
	count := len(m.order)
	if _, ok := m.tasks[domain.DefaultTaskID]; ok {
		count--
	}
	if count <= m.opts.HistoryLength {
		return
	}
	// 最終更新が最も古い非デフォルトタスクを1つ追い出す
	var oldest *domain.LocalTask
	for _, id := range m.order {
		t := m.tasks[id]
		if t.IsDefault() {
			continue
		}
		if oldest == nil || domain.MoreRecentlyUpdated(oldest, t) {
			oldest = t
		}
	}
	if oldest != nil {
		m.removeTaskLocked(oldest.ID)
	}
}

func (m *Manager) removeTaskLocked(id string) {
	delete(m.tasks, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// RemoveTask はタスクをレジストリから削除する
// デフォルトタスクは削除できない。アクティブなタスクを削除する場合は
// 先にデフォルトタスクをアクティブにする
func (m *Manager) RemoveTask(task *domain.LocalTask) {
	if task.IsDefault() {
		return
	}
	if m.ActiveTask().ID == task.ID {
		if def := m.FindTask(domain.DefaultTaskID); def != nil {
			m.ActivateTask(def, true, false)
		}
	}
	m.mu.Lock()
	m.removeTaskLocked(task.ID)
	m.mu.Unlock()
	m.notifyRemoved(task)

	if m.contexts != nil {
		if err := m.contexts.RemoveContext(task); err != nil {
			m.log.Warn("failed to remove context", "task", task.ID, "error", err)
		}
	}
}

// FindTask はIDでタスクを探す。見つからない場合はnilを返す
func (m *Manager) FindTask(id string) *domain.LocalTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasks[id]
}

// LocalTasks は登録順のタスク一覧を返す
// withClosedがfalseの場合、ローカルでクローズ扱いのタスクを除く
func (m *Manager) LocalTasks(withClosed bool) []*domain.LocalTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks := make([]*domain.LocalTask, 0, len(m.order))
	for _, id := range m.order {
		t := m.tasks[id]
		if !withClosed && m.isLocallyClosedLocked(t) {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

// IsLocallyClosed はVCSが有効でチェンジリストを1つも持たないタスクを
// ローカルでクローズ扱いとみなす
func (m *Manager) IsLocallyClosed(task *domain.LocalTask) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isLocallyClosedLocked(task)
}

func (m *Manager) isLocallyClosedLocked(task *domain.LocalTask) bool {
	return m.VcsEnabled() && len(task.ChangeLists) == 0
}

func (m *Manager) newLocalTask(summary string) *domain.LocalTask {
	m.mu.Lock()
	m.taskCounter++
	id := fmt.Sprintf(localTaskIDFormat, m.taskCounter)
	m.mu.Unlock()

	now := time.Now()
	return &domain.LocalTask{ID: id, Summary: summary, Created: now, Updated: now}
}

// CreateLocalTask は連番IDのローカルタスクを作成して登録する
func (m *Manager) CreateLocalTask(summary string) *domain.LocalTask {
	task := m.newLocalTask(summary)
	m.AddTask(task)
	return task
}

// AdoptIssue はリモート課題をローカルタスクとして取り込む
// 既に同じIDのタスクがあれば課題の内容をマージして返す
func (m *Manager) AdoptIssue(issue domain.Issue) *domain.LocalTask {
	m.mu.Lock()
	if existing, ok := m.tasks[issue.ID]; ok {
		existing.UpdateFromIssue(issue)
		m.mu.Unlock()
		return existing
	}
	m.mu.Unlock()

	task := domain.NewLocalTask(issue)
	m.AddTask(task)
	return task
}

// SetRepositories はリポジトリ一覧を置き換える
// 外れたリポジトリのbadフラグと課題キャッシュは破棄する
func (m *Manager) SetRepositories(repos []tracker.Repository) {
	m.repoMu.Lock()
	m.repositories = append([]tracker.Repository(nil), repos...)
	m.repoMu.Unlock()

	m.badMu.Lock()
	for repo := range m.bad {
		kept := false
		for _, r := range repos {
			if r == repo {
				kept = true
				break
			}
		}
		if !kept {
			delete(m.bad, repo)
		}
	}
	m.badMu.Unlock()

	m.issueMu.Lock()
	m.issueCache = make(map[string]domain.Issue)
	m.issueOrder = nil
	m.issueMu.Unlock()
}

// Repositories はリポジトリ一覧のコピーを返す
func (m *Manager) Repositories() []tracker.Repository {
	m.repoMu.Lock()
	defer m.repoMu.Unlock()
	return append([]tracker.Repository(nil), m.repositories...)
}

// LoadTasks は永続化されていたタスクと連番・累計時間を復元する
func (m *Manager) LoadTasks(tasks []*domain.LocalTask, counter int, totalTimeSpent time.Duration) {
	m.mu.Lock()
	m.tasks = make(map[string]*domain.LocalTask)
	m.order = nil
	m.taskCounter = counter
	m.totalTimeSpent = totalTimeSpent
	for _, task := range tasks {
		m.putTaskLocked(task)
	}
	m.mu.Unlock()
}

// TaskCounter はローカルタスクの連番の現在値を返す
func (m *Manager) TaskCounter() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.taskCounter
}

// TotalTimeSpent は全タスクの累計作業時間を返す
func (m *Manager) TotalTimeSpent() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalTimeSpent
}

// Start はレジストリの状態を正規化してタイマーを開始する
func (m *Manager) Start() {
	def := m.FindTask(domain.DefaultTaskID)
	if def == nil {
		def = domain.NewDefaultTask()
		m.AddTask(def)
	}

	if m.VcsEnabled() {
		// デフォルトタスクをデフォルトチェンジリストに関連付ける
		if dl, ok := m.clm.DefaultChangeList(); ok {
			m.mu.Lock()
			def.AddChangeList(domain.ChangeListInfo{ID: dl.ID, Name: dl.Name})
			m.mu.Unlock()
		}
		m.pruneDeadChangeLists()
	}

	// アクティブなタスクを1つに絞る（最終更新が新しいものが勝つ）
	m.mu.Lock()
	var active *domain.LocalTask
	for _, t := range m.sortedTasksLocked() {
		if active == nil {
			if t.Active {
				active = t
			}
			continue
		}
		t.Active = false
	}
	if active == nil {
		active = def
	}
	m.active = active
	m.mu.Unlock()

	m.doActivate(active, false)
	m.notifyActivated(active)

	if m.VcsEnabled() {
		m.clm.AddListener(m.clListener)
	}

	if m.opts.RefreshEnabled && m.opts.RefreshInterval > 0 {
		m.wg.Add(1)
		go m.refreshLoop()
	}
	if m.opts.TimeTracking {
		m.wg.Add(1)
		go m.trackingLoop()
	}
	m.started = true
}

// Stop はタイマーと実行中のバックグラウンド処理を確実に止めてリスナーを解除する
// 戻った時点でタスクを書き換えるゴルーチンは残っていない
func (m *Manager) Stop() {
	m.stopCancel()
	m.wg.Wait()
	if !m.started {
		return
	}
	m.started = false
	if m.VcsEnabled() {
		m.clm.RemoveListener(m.clListener)
	}
}

// sortedTasksLocked は更新が新しい順のタスク一覧を返す
func (m *Manager) sortedTasksLocked() []*domain.LocalTask {
	tasks := make([]*domain.LocalTask, 0, len(m.order))
	for _, id := range m.order {
		tasks = append(tasks, m.tasks[id])
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return domain.MoreRecentlyUpdated(tasks[i], tasks[j])
	})
	return tasks
}

func (m *Manager) refreshLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.RefreshInterval)
	defer ticker.Stop()

	// 初回は待たずに実行する
	m.RefreshIssues(m.stopCtx)
	for {
		select {
		case <-ticker.C:
			m.RefreshIssues(m.stopCtx)
		case <-m.stopCtx.Done():
			return
		}
	}
}

func (m *Manager) trackingLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(timeTrackingUnit)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.active.TimeSpent += timeTrackingUnit
			m.totalTimeSpent += timeTrackingUnit
			m.mu.Unlock()
		case <-m.stopCtx.Done():
			return
		}
	}
}
