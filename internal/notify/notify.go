// Package notify 审批结果的外部通知投递
//
// 送达是 best-effort：endpoint 未配置则静默跳过，投递失败只记日志，
// 绝不影响审批本身的结果。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/banci/banci/pkg/logger"
)

const defaultTimeout = 5 * time.Second

// Message 发送给外部通知服务的载荷
type Message struct {
	NotifyUserID string `json:"notify_user_id,omitempty"`
	Text         string `json:"message"`
}

// Notifier 向固定 endpoint POST 通知
type Notifier struct {
	endpoint string
	client   *http.Client
}

// New 创建通知客户端。endpoint 为空表示通知功能关闭。
func New(endpoint string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Enabled 检查是否配置了通知 endpoint
func (n *Notifier) Enabled() bool {
	return n != nil && n.endpoint != ""
}

// Send 投递一条通知。失败只记日志，不向调用方返回错误。
func (n *Notifier) Send(ctx context.Context, userID, text string) {
	if !n.Enabled() {
		return
	}

	body, err := json.Marshal(Message{NotifyUserID: userID, Text: text})
	if err != nil {
		logger.WithError(err).Msg("通知ペイロードの作成に失敗しました")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		logger.WithError(err).Msg("通知リクエストの作成に失敗しました")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		logger.WithError(err).Str("endpoint", n.endpoint).Msg("通知の送信に失敗しました")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		logger.Warn().
			Int("status", resp.StatusCode).
			Str("endpoint", n.endpoint).
			Msg("通知先がエラーを返しました")
		return
	}

	logger.Debug().Str("user_id", userID).Msg("通知を送信しました")
}
