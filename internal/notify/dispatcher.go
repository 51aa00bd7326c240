// Package notify sends call and voicemail alerts to the operations chat
// recipient through the 2Chat WhatsApp API.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"call-desk/internal/metrics"
	"call-desk/pkg/logger"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://api.p.2chat.io"

	sendMessagePath = "/open/whatsapp/send-message"
	apiKeyHeader    = "X-User-API-Key"
)

// Config holds the chat API settings resolved at startup.
type Config struct {
	APIKey       string
	SenderNumber string
	Recipient    string
	BaseURL      string
	Timeout      time.Duration
}

// CallNotice announces a new inbound call.
type CallNotice struct {
	CallerPhone string
	Duration    int
	// AudioURL must be publicly fetchable; provider URLs never go here.
	AudioURL string
}

// VoicemailNotice announces a finished voicemail. An empty AudioURL means the
// archive step failed and the text fallback is sent.
type VoicemailNotice struct {
	CallerPhone string
	AudioURL    string
}

type message struct {
	ToNumber   string `json:"to_number"`
	FromNumber string `json:"from_number"`
	Text       string `json:"text"`
	URL        string `json:"url,omitempty"`
}

// Dispatcher never returns errors: every failure is logged and counted.
type Dispatcher struct {
	cfg     Config
	client  *resty.Client
	metrics *metrics.Metrics
}

func NewDispatcher(cfg Config, m *metrics.Metrics) *Dispatcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &Dispatcher{cfg: cfg, client: client, metrics: m}
}

// Enabled reports whether key, sender and recipient are all configured.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.cfg.APIKey != "" && d.cfg.SenderNumber != "" && d.cfg.Recipient != ""
}

func (d *Dispatcher) NotifyCall(ctx context.Context, n CallNotice) {
	const kind = "call"
	if !d.skip(ctx, kind) {
		return
	}
	msgs := []message{d.text(fmt.Sprintf("📞 Neuer Anruf!\n\nVon: %s\nDauer: %d Sekunden", displayPhone(n.CallerPhone), n.Duration))}
	if n.AudioURL != "" {
		msgs = append(msgs, d.audio(n.AudioURL))
	}
	d.deliver(ctx, kind, msgs)
}

func (d *Dispatcher) NotifyVoicemail(ctx context.Context, n VoicemailNotice) {
	const kind = "voicemail"
	if !d.skip(ctx, kind) {
		return
	}
	text := fmt.Sprintf("📞 Neue Voicemail!\n\nVon: %s", displayPhone(n.CallerPhone))
	if n.AudioURL == "" {
		d.deliver(ctx, "voicemail_fallback", []message{d.text(text + "\n\n(Audio konnte nicht geladen werden)")})
		return
	}
	d.deliver(ctx, kind, []message{d.text(text), d.audio(n.AudioURL)})
}

// skip returns false (and logs) when the dispatcher is unconfigured.
func (d *Dispatcher) skip(ctx context.Context, kind string) bool {
	if d.Enabled() {
		return true
	}
	logger.From(ctx).Info("chat api not configured, skipping notification", "kind", kind)
	if d != nil {
		d.metrics.Notification(kind, metrics.OutcomeSkipped)
	}
	return false
}

// deliver sends msgs in order and stops at the first failure so an audio
// message is never sent without its text.
func (d *Dispatcher) deliver(ctx context.Context, kind string, msgs []message) {
	for i, m := range msgs {
		if err := d.send(ctx, m); err != nil {
			logger.From(ctx).Warn("chat notification failed", "kind", kind, "message", i, "err", err)
			d.metrics.Notification(kind, metrics.OutcomeError)
			return
		}
	}
	d.metrics.Notification(kind, metrics.OutcomeOK)
}

func (d *Dispatcher) send(ctx context.Context, m message) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetHeader(apiKeyHeader, d.cfg.APIKey).
		SetBody(m).
		Post(sendMessagePath)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("chat api returned %d", resp.StatusCode())
	}
	return nil
}

func (d *Dispatcher) text(s string) message {
	return message{ToNumber: d.cfg.Recipient, FromNumber: d.cfg.SenderNumber, Text: s}
}

func (d *Dispatcher) audio(url string) message {
	return message{ToNumber: d.cfg.Recipient, FromNumber: d.cfg.SenderNumber, Text: "🎵 Voicemail Audio:", URL: url}
}

func displayPhone(p string) string {
	if strings.TrimSpace(p) == "" {
		return "unbekannt"
	}
	return p
}
