package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config はアプリケーション設定
type Config struct {
	HistoryLength        int    `json:"history_length"`         // 保持するタスク数の上限
	RefreshEnabled       bool   `json:"refresh_enabled"`        // 定期リフレッシュを行うかどうか
	RefreshInterval      int    `json:"refresh_interval"`       // リフレッシュ間隔（分）
	RefreshPageSize      int    `json:"refresh_page_size"`      // リフレッシュ時の取得件数
	ClearContext         bool   `json:"clear_context"`          // アクティブ化時にコンテキストをクリアするか
	CreateChangelist     bool   `json:"create_changelist"`      // アクティブ化時にチェンジリストを作るか
	ChangelistNameFormat string `json:"changelist_name_format"` // チェンジリスト名のテンプレート
	TimeTracking         bool   `json:"time_tracking"`          // 作業時間を積算するか
	SearchClosedTasks    bool   `json:"search_closed_tasks"`    // クローズ済みの課題も検索するか
}

// configFileName は設定ファイル名
const configFileName = "config.json"

// configDirName は設定ディレクトリ名
const configDirName = ".taskdeck"

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		HistoryLength:        50,
		RefreshEnabled:       true,
		RefreshInterval:      20,
		RefreshPageSize:      100,
		ClearContext:         true,
		CreateChangelist:     true,
		ChangelistNameFormat: "{id} {summary}",
	}
}

// Dir は設定ディレクトリのパスを返す
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

// Load は設定ファイルを読み込む。存在しなければデフォルトを返す
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(dir)
}

// LoadFrom は指定ディレクトリから設定ファイルを読み込む
func LoadFrom(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.HistoryLength <= 0 {
		cfg.HistoryLength = 50
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = 20
	}
	if cfg.RefreshPageSize <= 0 {
		cfg.RefreshPageSize = 100
	}
	if cfg.ChangelistNameFormat == "" {
		cfg.ChangelistNameFormat = "{id} {summary}"
	}

	return cfg, nil
}

// Save は設定ファイルを保存する
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return c.SaveTo(dir)
}

// SaveTo は指定ディレクトリへ設定ファイルを保存する
func (c *Config) SaveTo(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, configFileName), data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
