package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tkc/taskdeck/internal/domain"
	"github.com/tkc/taskdeck/internal/tracker"
	"github.com/tkc/taskdeck/internal/vcs"
)

// stateFileName は永続化状態のファイル名
const stateFileName = "state.yaml"

// State は永続化されるレジストリの状態
// リポジトリは種別ごとのスキーマでシリアライズされる
type State struct {
	Tasks          []*domain.LocalTask `yaml:"tasks"`
	TaskCounter    int                 `yaml:"task_counter"`
	TotalTimeSpent time.Duration       `yaml:"total_time_spent,omitempty"`
	Repositories   []tracker.Saved     `yaml:"repositories,omitempty"`
	ChangeLists    []vcs.ChangeList    `yaml:"changelists,omitempty"`
}

// LoadState は状態ファイルを読み込む。存在しなければ空の状態を返す
func LoadState(dir string) (*State, error) {
	data, err := os.ReadFile(filepath.Join(dir, stateFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}
	return &state, nil
}

// Save は状態ファイルを保存する
func (s *State) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, stateFileName), data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}
