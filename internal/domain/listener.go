package domain

// TaskListener はタスクのライフサイクルイベントを受け取る
// 各メソッドはイベントを発生させたゴルーチン上で登録順に同期的に呼ばれる
// アクティブタスクの切り替え時はTaskDeactivated、TaskActivatedの順で通知される
type TaskListener interface {
	TaskAdded(task *LocalTask)
	TaskRemoved(task *LocalTask)
	TaskActivated(task *LocalTask)
	TaskDeactivated(task *LocalTask)
}
