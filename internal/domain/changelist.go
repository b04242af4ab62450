package domain

// ChangeListInfo はタスクに関連付けられたチェンジリストの参照情報
type ChangeListInfo struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name,omitempty"`
	Comment string `yaml:"comment,omitempty"`
}
