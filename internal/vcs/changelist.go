package vcs

// ChangeList はVCS上の保留中変更のグルーピング
type ChangeList struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Comment string `yaml:"comment,omitempty"`
	Default bool   `yaml:"default,omitempty"`
}

// Listener はチェンジリストの変化を受け取る
type Listener interface {
	// ChangeListRemoved はチェンジリストが削除されたときに呼ばれる
	ChangeListRemoved(list ChangeList)
	// DefaultChanged はデフォルトのチェンジリストが切り替わったときに呼ばれる
	DefaultChanged(previous, current ChangeList)
}

// ChangeListManager はチェンジリストの管理機能
// ライブなチェンジリスト集合のソース・オブ・トゥルースはこちら側にある
type ChangeListManager interface {
	ChangeLists() []ChangeList
	FindChangeList(id string) (ChangeList, bool)
	FindChangeListByName(name string) (ChangeList, bool)
	AddChangeList(name, comment string) (ChangeList, error)
	RemoveChangeList(id string) error
	SetComment(id, comment string) error
	SetDefaultChangeList(id string) error
	DefaultChangeList() (ChangeList, bool)
	AddListener(listener Listener)
	RemoveListener(listener Listener)
}
