package tracker

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Factory は空のRepositoryを生成する
type Factory func() Repository

var (
	typesMu sync.Mutex
	types   = make(map[string]Factory)
)

// RegisterType はリポジトリ種別を登録する
// コネクタパッケージのinitから呼ばれる
func RegisterType(name string, factory Factory) {
	typesMu.Lock()
	defer typesMu.Unlock()
	if _, dup := types[name]; dup {
		panic(fmt.Sprintf("tracker: type %q registered twice", name))
	}
	types[name] = factory
}

// TypeNames は登録済みの種別名を返す
func TypeNames() []string {
	typesMu.Lock()
	defer typesMu.Unlock()
	names := make([]string, 0, len(types))
	for name := range types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Saved はリポジトリのシリアライズ形式
// Specの中身は種別ごとのスキーマに従う
type Saved struct {
	Type string    `yaml:"type"`
	Spec yaml.Node `yaml:"spec"`
}

// MarshalRepositories はリポジトリ一覧をシリアライズ形式に変換する
func MarshalRepositories(repos []Repository) ([]Saved, error) {
	saved := make([]Saved, 0, len(repos))
	for _, repo := range repos {
		var node yaml.Node
		if err := node.Encode(repo); err != nil {
			return nil, fmt.Errorf("failed to encode repository %s: %w", repo.Name(), err)
		}
		saved = append(saved, Saved{Type: repo.Type(), Spec: node})
	}
	return saved, nil
}

// UnmarshalRepositories はシリアライズ形式からリポジトリ一覧を復元する
// 種別が未登録、またはデコードに失敗したエントリは捨てて残りを返す
func UnmarshalRepositories(saved []Saved) []Repository {
	typesMu.Lock()
	defer typesMu.Unlock()

	repos := make([]Repository, 0, len(saved))
	for _, s := range saved {
		factory, ok := types[s.Type]
		if !ok {
			continue
		}
		repo := factory()
		if err := s.Spec.Decode(repo); err != nil {
			continue
		}
		repos = append(repos, repo)
	}
	return repos
}
