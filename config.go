package football

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // DISPLAY_TIMEZONE in minimal containers

	"github.com/joho/godotenv"
)

// Config is everything the worker, the starter and the web server read from
// the environment.
type Config struct {
	APIKey            string
	APIBaseURL        string
	Competition       string
	PollInterval      time.Duration
	RequestsPerMinute int

	Channels        []string
	NtfyServer      string
	NtfyTopic       string
	SlackWebhookURL string

	TaskQueue         string
	TemporalHost      string
	TemporalNamespace string
	TemporalAPIKey    string

	Port            string
	RefreshInterval time.Duration
	Location        *time.Location
}

// LoadConfig loads .env (if present) and then reads the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on environment variables")
	}
	return ConfigFromEnv(os.Getenv)
}

// ConfigFromEnv builds a Config from a getenv-style lookup.
func ConfigFromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		APIKey:            getenv("FOOTBALL_API_KEY"),
		APIBaseURL:        stringOr(getenv("FOOTBALL_API_URL"), DefaultAPIBaseURL),
		Competition:       strings.ToUpper(stringOr(getenv("COMPETITION"), DefaultCompetition)),
		NtfyServer:        stringOr(getenv("NTFY_SERVER"), DefaultNtfyServer),
		NtfyTopic:         stringOr(getenv("NTFY_TOPIC"), "champions-league-goals"),
		SlackWebhookURL:   getenv("SLACK_WEBHOOK_URL"),
		TaskQueue:         stringOr(getenv("TASK_QUEUE"), TaskQueueName),
		TemporalHost:      stringOr(getenv("TEMPORAL_HOST"), "localhost:7233"),
		TemporalNamespace: stringOr(getenv("TEMPORAL_NAMESPACE"), "default"),
		TemporalAPIKey:    getenv("TEMPORAL_API_KEY"),
		Port:              stringOr(getenv("PORT"), "8080"),
	}

	channelsStr := getenv("NOTIFICATION_CHANNELS")
	if channelsStr == "" {
		cfg.Channels = []string{ChannelLogger, ChannelNtfy} // if not set, log and push to ntfy
	} else {
		cfg.Channels = ParseChannels(channelsStr)
	}
	if err := ValidateChannels(cfg.Channels); err != nil {
		return Config{}, fmt.Errorf("NOTIFICATION_CHANNELS: %w", err)
	}

	var err error
	if cfg.PollInterval, err = durationEnv(getenv, "POLL_INTERVAL", DefaultPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.RefreshInterval, err = durationEnv(getenv, "REFRESH_INTERVAL", 5*time.Second); err != nil {
		return Config{}, err
	}

	cfg.RequestsPerMinute = DefaultRequestsPerMinute
	if s := getenv("REQUESTS_PER_MINUTE"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Config{}, fmt.Errorf("REQUESTS_PER_MINUTE: %w", err)
		}
		cfg.RequestsPerMinute = n
	}

	cfg.Location = time.Local
	if tz := getenv("DISPLAY_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("DISPLAY_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	return cfg, nil
}

// DashboardRequest is the request the starter and the web UI send for a competition.
func (c Config) DashboardRequest(competition string) DashboardRequest {
	if strings.TrimSpace(competition) == "" {
		competition = c.Competition
	}
	return DashboardRequest{
		Competition:  competition,
		PollInterval: c.PollInterval,
		Channels:     c.Channels,
	}.withDefaults()
}

// Activities wires the football-data client and the notifier from the config.
func (c Config) Activities(logger *slog.Logger) *Activities {
	return &Activities{
		API: NewAPIClient(APIClientConfig{
			BaseURL:           c.APIBaseURL,
			APIKey:            c.APIKey,
			RequestsPerMinute: c.RequestsPerMinute,
			Logger:            logger,
		}),
		Notifier: NewNotifier(NotifierConfig{
			NtfyServer:      c.NtfyServer,
			NtfyTopic:       c.NtfyTopic,
			SlackWebhookURL: c.SlackWebhookURL,
			Logger:          logger,
		}),
	}
}

func durationEnv(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	s := getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, s)
	}
	return d, nil
}

func stringOr(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
