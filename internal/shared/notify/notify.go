// Package notify 审批流转通知，Webhook 卡片消息投递。
// 通知为尽力而为：发送失败只记日志，不影响主流程事务。
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Notifier 通知接口
type Notifier interface {
	NotifyUser(ctx context.Context, userID, title, content string) error
	NotifyRole(ctx context.Context, role, title, content string) error
}

// WebhookNotifier 机器人Webhook通知器
type WebhookNotifier struct {
	webhookURL string
	secret     string
	client     *http.Client
	logger     *zap.Logger
}

// NewWebhookNotifier 创建Webhook通知器
func NewWebhookNotifier(webhookURL, secret string, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		webhookURL: webhookURL,
		secret:     secret,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// NotifyUser 向指定用户推送卡片消息
func (n *WebhookNotifier) NotifyUser(ctx context.Context, userID, title, content string) error {
	return n.sendCard(ctx, title, content, map[string]string{"user_id": userID})
}

// NotifyRole 向指定角色组广播卡片消息
func (n *WebhookNotifier) NotifyRole(ctx context.Context, role, title, content string) error {
	return n.sendCard(ctx, title, content, map[string]string{"role": role})
}

func (n *WebhookNotifier) sendCard(ctx context.Context, title, content string, target map[string]string) error {
	if n.webhookURL == "" {
		return nil
	}

	timestamp := time.Now().Unix()
	message := map[string]interface{}{
		"timestamp": fmt.Sprintf("%d", timestamp),
		"sign":      n.genSign(timestamp),
		"msg_type":  "interactive",
		"target":    target,
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"title":    map[string]interface{}{"tag": "plain_text", "content": title},
				"template": "blue",
			},
			"elements": []map[string]interface{}{
				{
					"tag":  "div",
					"text": map[string]interface{}{"tag": "lark_md", "content": content},
				},
				{"tag": "hr"},
				{
					"tag": "note",
					"elements": []map[string]interface{}{
						{"tag": "plain_text", "content": fmt.Sprintf("通知时间: %s", time.Now().Format("2006-01-02 15:04:05"))},
					},
				},
			},
		},
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("序列化通知消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("构建通知请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送通知失败: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("通知服务返回状态码 %d", resp.StatusCode)
	}
	return nil
}

// genSign 计算Webhook签名（HMAC-SHA256）
func (n *WebhookNotifier) genSign(timestamp int64) string {
	if n.secret == "" {
		return ""
	}
	stringToSign := fmt.Sprintf("%d\n%s", timestamp, n.secret)
	h := hmac.New(sha256.New, []byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Nop 空通知器，通知未配置或测试时使用
type Nop struct{}

func (Nop) NotifyUser(ctx context.Context, userID, title, content string) error { return nil }
func (Nop) NotifyRole(ctx context.Context, role, title, content string) error  { return nil }
