package football

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// Notification channels
const (
	ChannelLogger = "logger"
	ChannelNtfy   = "ntfy"
	ChannelSlack  = "slack"
)

const DefaultNtfyServer = "https://ntfy.sh"

var ErrUnknownChannel = errors.New("unknown notification channel")

func BuildGoalNotification(competitionName string, event GoalEvent) Notification {
	notification := Notification{
		Title:    competitionName + " LIVE",
		Priority: "high",
		Tags:     []string{"soccer"},
	}

	// Goal notification looks like this:
	// ⚽ GOAL! Real Madrid CF 2:1 FC Bayern München (67')
	switch event.Kind {
	case KindCorrection:
		notification.Message = fmt.Sprintf("🚩 Goal disallowed: %s %s %s (%s')",
			event.HomeTeam, event.ScoreText(), event.AwayTeam, event.Minute)
		notification.Priority = "default"
	default:
		notification.Message = fmt.Sprintf("⚽ GOAL! %s %s %s (%s')",
			event.HomeTeam, event.ScoreText(), event.AwayTeam, event.Minute)
	}
	return notification
}

// NotifierConfig configures the outbound channels. Channels with no
// destination configured fail on send instead of at startup.
type NotifierConfig struct {
	HTTPClient      *http.Client
	NtfyServer      string
	NtfyTopic       string
	SlackWebhookURL string
	Logger          *slog.Logger
}

// Notifier delivers a Notification to one channel, one attempt per call.
type Notifier struct {
	httpClient      *http.Client
	ntfyServer      string
	ntfyTopic       string
	slackWebhookURL string
	logger          *slog.Logger
}

func NewNotifier(cfg NotifierConfig) *Notifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	server := strings.TrimRight(strings.TrimSpace(cfg.NtfyServer), "/")
	if server == "" {
		server = DefaultNtfyServer
	}
	return &Notifier{
		httpClient:      httpClient,
		ntfyServer:      server,
		ntfyTopic:       strings.TrimSpace(cfg.NtfyTopic),
		slackWebhookURL: strings.TrimSpace(cfg.SlackWebhookURL),
		logger:          logger,
	}
}

func (n *Notifier) Send(ctx context.Context, channel string, notification Notification) error {
	switch strings.ToLower(strings.TrimSpace(channel)) {
	case ChannelLogger:
		n.logger.Info("Goal notification", "title", notification.Title, "message", notification.Message)
		return nil
	case ChannelNtfy:
		return n.sendNtfy(ctx, notification)
	case ChannelSlack:
		return n.sendSlack(ctx, notification)
	}
	return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
}

func (n *Notifier) sendNtfy(ctx context.Context, notification Notification) error {
	if n.ntfyTopic == "" {
		return errors.New("ntfy topic is not set")
	}
	endpoint := n.ntfyServer + "/" + url.PathEscape(n.ntfyTopic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(notification.Message))
	if err != nil {
		return err
	}
	req.Header.Set("Title", notification.Title)
	req.Header.Set("Priority", notification.Priority)
	req.Header.Set("Tags", strings.Join(notification.Tags, ","))

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post to ntfy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("ntfy returned status %d", resp.StatusCode)
	}
	return nil
}

func (n *Notifier) sendSlack(ctx context.Context, notification Notification) error {
	if n.slackWebhookURL == "" {
		return errors.New("slack webhook URL is not set")
	}
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf("*%s*\n%s", notification.Title, notification.Message),
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, n.slackWebhookURL, n.httpClient, msg); err != nil {
		return fmt.Errorf("failed to post to slack: %w", err)
	}
	return nil
}

// ParseChannels splits a comma separated channel list, dropping blanks and duplicates.
func ParseChannels(s string) []string {
	var channels []string
	seen := make(map[string]bool)
	for _, c := range strings.Split(s, ",") {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		channels = append(channels, c)
	}
	return channels
}

// ValidateChannels rejects a channel list with a name Send would not know.
func ValidateChannels(channels []string) error {
	for _, c := range channels {
		switch c {
		case ChannelLogger, ChannelNtfy, ChannelSlack:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownChannel, c)
		}
	}
	return nil
}
