package alert

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// LogChannel 把告警写入结构化日志。
type LogChannel struct {
	logger *zap.Logger
	name   string
}

func NewLogChannel(name string, logger *zap.Logger) *LogChannel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogChannel{logger: logger, name: name}
}

func (c *LogChannel) Send(a Alert) error {
	fields := []zap.Field{
		zap.String("level", a.Level),
		zap.Time("ts", a.Timestamp),
	}
	for k, v := range a.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	switch a.Level {
	case "ERROR", "CRITICAL":
		c.logger.Error(a.Message, fields...)
	default:
		c.logger.Warn(a.Message, fields...)
	}
	return nil
}

func (c *LogChannel) Name() string { return c.name }

// WebhookChannel 把告警 POST 到外部 webhook（聊天机器人等）。
type WebhookChannel struct {
	client *resty.Client
	url    string
	name   string
}

func NewWebhookChannel(name, url string, timeout time.Duration) *WebhookChannel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookChannel{
		client: resty.New().SetTimeout(timeout),
		url:    url,
		name:   name,
	}
}

func (c *WebhookChannel) Send(a Alert) error {
	payload := map[string]interface{}{
		"level":   a.Level,
		"message": a.Message,
		"ts":      a.Timestamp.UTC().Format(time.RFC3339),
		"fields":  a.Fields,
	}
	resp, err := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook status %d", resp.StatusCode())
	}
	return nil
}

func (c *WebhookChannel) Name() string { return c.name }

// MockChannel 模拟告警通道（用于测试）
type MockChannel struct {
	name      string
	alerts    []Alert
	shouldErr bool
}

func NewMockChannel(name string) *MockChannel {
	return &MockChannel{name: name}
}

func (c *MockChannel) Send(a Alert) error {
	if c.shouldErr {
		return fmt.Errorf("mock error")
	}
	c.alerts = append(c.alerts, a)
	return nil
}

func (c *MockChannel) Name() string { return c.name }

func (c *MockChannel) Alerts() []Alert { return c.alerts }

func (c *MockChannel) Count() int { return len(c.alerts) }

func (c *MockChannel) SetShouldError(b bool) { c.shouldErr = b }
