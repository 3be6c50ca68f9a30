package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"taxtrail/internal/logging"
	"taxtrail/internal/metrics"
)

// Notification 封装一次需要关注的分析结论。
type Notification struct {
	Analysis       string
	Subject        string
	Classification string
	Value          decimal.Decimal
	Benchmark      decimal.NullDecimal
	Gap            string
	Message        string
	Source         string
	OccurredAt     time.Time
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// NopNotifier drops every notification.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Notification) error { return nil }

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.Component(logger, "alert_telegram"),
	}
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	start := time.Now()
	err := n.send(ctx, sendMessageRequest{ChatID: n.chatID, Text: renderMessage(note)})
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveUpstream("telegram", result, time.Since(start))
	if err != nil {
		return err
	}

	n.logger.Info().
		Str("analysis", note.Analysis).
		Str("subject", note.Subject).
		Str("classification", note.Classification).
		Msg("告警已发送 (Telegram)")
	return nil
}

func (n *TelegramNotifier) send(ctx context.Context, msg sendMessageRequest) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	var result sendMessageResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && result.Description != "" {
			return fmt.Errorf("telegram 响应码异常: %d (%s)", resp.StatusCode, result.Description)
		}
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}
	if decodeErr == nil && !result.OK {
		return fmt.Errorf("telegram 返回 ok=false: %s", result.Description)
	}
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[TaxTrail %s alert]\n", note.Analysis))
	builder.WriteString(fmt.Sprintf("Subject: %s\n", note.Subject))
	builder.WriteString(fmt.Sprintf("Classification: %s\n", note.Classification))
	builder.WriteString(fmt.Sprintf("Value: %s\n", note.Value.StringFixed(2)))
	if note.Benchmark.Valid {
		builder.WriteString(fmt.Sprintf("Benchmark: %s\n", note.Benchmark.Decimal.StringFixed(2)))
	}
	if note.Gap != "" {
		builder.WriteString(fmt.Sprintf("Gap: %s\n", note.Gap))
	}
	if note.Source != "" {
		builder.WriteString(fmt.Sprintf("Source: %s\n", note.Source))
	}
	if !note.OccurredAt.IsZero() {
		builder.WriteString(fmt.Sprintf("At: %s UTC\n", note.OccurredAt.UTC().Format(time.RFC3339)))
	}
	if note.Message != "" {
		builder.WriteString(note.Message)
	}
	return builder.String()
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = NopNotifier{}
)
