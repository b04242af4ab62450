package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tkc/taskdeck/internal/config"
	"github.com/tkc/taskdeck/internal/manager"
	"github.com/tkc/taskdeck/internal/notify"
	"github.com/tkc/taskdeck/internal/taskctx"
	"github.com/tkc/taskdeck/internal/tracker"
	"github.com/tkc/taskdeck/internal/vcs"

	// リポジトリ種別の登録
	_ "github.com/tkc/taskdeck/internal/tracker/github"
	_ "github.com/tkc/taskdeck/internal/tracker/jsonl"
)

// contextDBName は作業コンテキストのDBファイル名
const contextDBName = "contexts.db"

// host はエンジンとそのコラボレータを組み立てて動かす
type host struct {
	dir      string
	mgr      *manager.Manager
	clm      *vcs.LocalChangeListManager
	contexts *taskctx.Store
}

// newHost は永続化された状態からエンジンを立ち上げる
// withTimersがtrueの場合は定期リフレッシュと時間計測のタイマーも動かす
func newHost(withTimers bool) (*host, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	state, err := config.LoadState(dir)
	if err != nil {
		return nil, err
	}

	contexts, err := taskctx.Open(filepath.Join(dir, contextDBName))
	if err != nil {
		return nil, err
	}

	clm := vcs.NewLocalChangeListManager()
	clm.Load(state.ChangeLists)

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := manager.Options{
		HistoryLength:        cfg.HistoryLength,
		RefreshEnabled:       withTimers && cfg.RefreshEnabled,
		RefreshInterval:      time.Duration(cfg.RefreshInterval) * time.Minute,
		RefreshPageSize:      cfg.RefreshPageSize,
		ChangeListNameFormat: cfg.ChangelistNameFormat,
		TimeTracking:         withTimers && cfg.TimeTracking,
	}

	mgr := manager.New(logger, contexts, clm, consoleNotifier{}, opts)
	mgr.LoadTasks(state.Tasks, state.TaskCounter, state.TotalTimeSpent)
	mgr.SetRepositories(tracker.UnmarshalRepositories(state.Repositories))
	mgr.Start()

	// 古い作業コンテキストの整理
	if err := contexts.Pack(200, 50); err != nil {
		logger.Warn("failed to pack contexts", "error", err)
	}

	return &host{dir: dir, mgr: mgr, clm: clm, contexts: contexts}, nil
}

// close はエンジンを止めて状態を保存する
func (h *host) close() error {
	h.mgr.Stop()

	repos, err := tracker.MarshalRepositories(h.mgr.Repositories())
	if err != nil {
		return err
	}
	state := &config.State{
		Tasks:          h.mgr.LocalTasks(true),
		TaskCounter:    h.mgr.TaskCounter(),
		TotalTimeSpent: h.mgr.TotalTimeSpent(),
		Repositories:   repos,
		ChangeLists:    h.clm.ChangeLists(),
	}
	if err := state.Save(h.dir); err != nil {
		return err
	}
	return h.contexts.Close()
}

// consoleNotifier は接続失敗を標準エラーとOS通知に流す
type consoleNotifier struct{}

func (consoleNotifier) ConnectionFailed(repositoryURL string) {
	fmt.Fprintf(os.Stderr, "⚠️  Cannot connect to %s. Run: taskdeck repo test\n", repositoryURL)
	_ = notify.SendConnectionFailure(repositoryURL)
}
