package manager

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/tkc/taskdeck/internal/tracker"
)

// connectionPollInterval は接続テスト中にキャンセルを確認する間隔
// 外部からの中断要求に素早く反応しつつビジースピンしないための値
const connectionPollInterval = 100 * time.Millisecond

// TestConnection はリポジトリへの接続テストを行う
// キャンセル可能な接続をサポートするリポジトリはワーカーで実行しつつ
// 100ms刻みでctxのキャンセルを確認し、キャンセル時は接続側のCancelを
// 呼んでから戻る。サポートしないリポジトリは呼び出し元のゴルーチンで
// 同期的にテストする
// 成功した場合はbadフラグを外す。結果は成功・失敗・キャンセルのいずれか
// 1つで、キャンセルはctx.Errがそのまま返る
func (m *Manager) TestConnection(ctx context.Context, repo tracker.Repository) error {
	var err error
	if connector, ok := repo.(tracker.CancellableConnector); ok {
		conn := connector.NewCancellableConnection()
		result := make(chan error, 1)
		go func() {
			result <- conn.Run()
		}()

	poll:
		for {
			select {
			case err = <-result:
				break poll
			case <-time.After(connectionPollInterval):
				if ctx.Err() != nil {
					conn.Cancel()
					err = ctx.Err()
					break poll
				}
			}
		}
	} else {
		err = repo.TestConnection(ctx)
	}

	if err == nil {
		m.clearBad(repo)
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("unknown host: %s", dnsErr.Name)
	}
	return err
}
