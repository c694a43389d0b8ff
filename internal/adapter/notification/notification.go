package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pages-cd/internal/core/outcome"
	"pages-cd/internal/pkg/config"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotifyJobFailed NotificationType = "job_failed" // 定时任务失败
)

// NotificationMessage 通知消息
type NotificationMessage struct {
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"` // 额外信息
}

// Notifier 通知器接口
type Notifier interface {
	// Send 发送通知
	Send(ctx context.Context, msg *NotificationMessage) error

	// SendJobFailure 发送定时任务失败通知
	SendJobFailure(ctx context.Context, job, runID string, jobErr error) error
}

// NewNotifier 按配置创建通知器, 未启用时只记录日志
func NewNotifier(cfg *config.NotificationConfig, logger *zap.Logger) Notifier {
	logNotifier := NewLogNotifier(logger)
	if !cfg.Enabled || cfg.Provider != "lark" {
		return logNotifier
	}
	return NewMultiNotifier(logger, logNotifier, NewLarkNotifier(cfg.LarkWebhook, cfg.Enabled, logger))
}

// jobFailureMessage 构建定时任务失败消息
func jobFailureMessage(job, runID string, jobErr error) *NotificationMessage {
	extra := map[string]interface{}{
		"job":    job,
		"run_id": runID,
		"color":  "red",
	}

	var aggErr *outcome.AggregateError
	if errors.As(jobErr, &aggErr) {
		extra["fulfilled"] = aggErr.Fulfilled
		extra["rejected"] = aggErr.Rejected
	}

	return &NotificationMessage{
		Type:      NotifyJobFailed,
		Title:     "❌ 定时任务执行失败",
		Content:   fmt.Sprintf("**任务**: %s\n**执行ID**: %s\n**错误**: %s", job, runID, jobErr.Error()),
		Timestamp: time.Now(),
		Extra:     extra,
	}
}

// ============= Lark 通知适配器 =============

// LarkNotifier Lark通知器
type LarkNotifier struct {
	webhookURL string
	enabled    bool
	logger     *zap.Logger
	client     *http.Client
}

// NewLarkNotifier 创建Lark通知器
func NewLarkNotifier(webhookURL string, enabled bool, logger *zap.Logger) *LarkNotifier {
	return &LarkNotifier{
		webhookURL: webhookURL,
		enabled:    enabled,
		logger:     logger,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send 发送通知
func (n *LarkNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	if !n.enabled {
		n.logger.Debug("通知已禁用,跳过发送")
		return nil
	}

	if n.webhookURL == "" {
		n.logger.Warn("Lark Webhook URL未配置")
		return nil
	}

	jsonData, err := json.Marshal(n.buildLarkMessage(msg))
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Lark API返回错误状态码: %d", resp.StatusCode)
	}

	n.logger.Info("Lark通知发送成功",
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title))

	return nil
}

// SendJobFailure 发送定时任务失败通知
func (n *LarkNotifier) SendJobFailure(ctx context.Context, job, runID string, jobErr error) error {
	return n.Send(ctx, jobFailureMessage(job, runID, jobErr))
}

// buildLarkMessage 构建Lark卡片消息
func (n *LarkNotifier) buildLarkMessage(msg *NotificationMessage) map[string]interface{} {
	color := "grey"
	if c, ok := msg.Extra["color"].(string); ok {
		color = c
	}

	return map[string]interface{}{
		"msg_type": "interactive",
		"card": map[string]interface{}{
			"header": map[string]interface{}{
				"title": map[string]interface{}{
					"tag":     "plain_text",
					"content": msg.Title,
				},
				"template": color,
			},
			"elements": []interface{}{
				map[string]interface{}{
					"tag": "div",
					"text": map[string]interface{}{
						"tag":     "lark_md",
						"content": msg.Content,
					},
				},
				map[string]interface{}{
					"tag": "div",
					"text": map[string]interface{}{
						"tag":     "plain_text",
						"content": fmt.Sprintf("时间: %s", msg.Timestamp.Format("2006-01-02 15:04:05")),
					},
				},
			},
		},
	}
}

// ============= 多通知器 =============

// MultiNotifier 同时发送到多个渠道
type MultiNotifier struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewMultiNotifier 创建多通知器
func NewMultiNotifier(logger *zap.Logger, notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{
		notifiers: notifiers,
		logger:    logger,
	}
}

// Send 发送到所有通知器, 单个渠道失败不影响其他渠道
func (m *MultiNotifier) Send(ctx context.Context, msg *NotificationMessage) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, msg); err != nil {
			m.logger.Error("发送通知失败", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendJobFailure 发送定时任务失败通知到所有通知器
func (m *MultiNotifier) SendJobFailure(ctx context.Context, job, runID string, jobErr error) error {
	return m.Send(ctx, jobFailureMessage(job, runID, jobErr))
}

// ============= 日志通知器(仅记录日志,不发送实际通知) =============

// LogNotifier 日志通知器
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{
		logger: logger,
	}
}

// Send 记录通知到日志
func (n *LogNotifier) Send(_ context.Context, msg *NotificationMessage) error {
	n.logger.Info("📢 通知",
		zap.String("type", string(msg.Type)),
		zap.String("title", msg.Title),
		zap.String("content", msg.Content),
		zap.Any("extra", msg.Extra))
	return nil
}

// SendJobFailure 记录定时任务失败通知到日志
func (n *LogNotifier) SendJobFailure(ctx context.Context, job, runID string, jobErr error) error {
	return n.Send(ctx, jobFailureMessage(job, runID, jobErr))
}
