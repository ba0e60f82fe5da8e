package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Channels holds the Slack channel IDs the monitor watches. An empty ID
// disables that channel's handler.
type Channels struct {
	ManagerAlerts string
	ParserOrders  string
	Wixez         string
	HarixxReports string
	ProxyAlerts   string
	Warehouse     string
}

// Mentions holds the Slack user IDs tagged in escalation messages.
type Mentions struct {
	ParserDev  string
	ReportsDev string
	ProxyDev   string
	Owner      string
	Manager    string
}

// Config holds application configuration loaded from environment.
type Config struct {
	Slack struct {
		BotToken string
		Channels Channels
		Mentions Mentions
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
	DB struct {
		DSN string
	}
	Kafka struct {
		Broker  string
		Topic   string
		GroupID string
	}
	Telegram struct {
		BotToken string
		ChatID   int64
	}
	Monitor struct {
		QueueSize          int
		RepeatWindow       time.Duration
		EscalationCooldown time.Duration
		StateTTL           time.Duration
		TroubleThreshold   float64
		DeviationThreshold float64
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	cfg.Slack.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	cfg.Slack.Channels.ManagerAlerts = os.Getenv("SLACK_MANAGER_ALERT_CHANNEL_ID")
	cfg.Slack.Channels.ParserOrders = os.Getenv("SLACK_PARSER_ORDERS_ALERTS_CHANNEL_ID")
	cfg.Slack.Channels.Wixez = os.Getenv("SLACK_WIXEZ_ALERT_CHANNEL_ID")
	cfg.Slack.Channels.HarixxReports = os.Getenv("SLACK_HARIXX_REPORT_CHANNEL_ID")
	cfg.Slack.Channels.ProxyAlerts = os.Getenv("SLACK_PROXI_ALERT_CHANNEL_ID")
	cfg.Slack.Channels.Warehouse = os.Getenv("SLACK_WAREHOUSE_ALERT_CHANNEL_ID")

	cfg.Slack.Mentions.ParserDev = os.Getenv("SLACK_PARSER_DEV_USER_ID")
	cfg.Slack.Mentions.ReportsDev = os.Getenv("SLACK_REPORTS_DEV_USER_ID")
	cfg.Slack.Mentions.ProxyDev = os.Getenv("SLACK_PROXY_DEV_USER_ID")
	cfg.Slack.Mentions.Owner = os.Getenv("SLACK_OWNER_USER_ID")
	cfg.Slack.Mentions.Manager = os.Getenv("SLACK_MANAGER_USER_ID")

	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	cfg.DB.DSN = os.Getenv("DB_DSN")

	cfg.Kafka.Broker = os.Getenv("KAFKA_BROKER")
	cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
	cfg.Kafka.GroupID = os.Getenv("KAFKA_GROUP_ID")

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if id, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64); err == nil {
		cfg.Telegram.ChatID = id
	}

	if qs, err := strconv.Atoi(os.Getenv("QUEUE_SIZE")); err == nil {
		cfg.Monitor.QueueSize = qs
	}
	cfg.Monitor.RepeatWindow = durationEnv("ALERT_REPEAT_WINDOW", 10*time.Second)
	cfg.Monitor.EscalationCooldown = durationEnv("ALERT_ESCALATION_COOLDOWN", 5*time.Minute)
	cfg.Monitor.StateTTL = durationEnv("ALERT_STATE_TTL", 24*time.Hour)
	cfg.Monitor.TroubleThreshold = floatEnv("TROUBLE_PERCENT_THRESHOLD", 7.0)
	cfg.Monitor.DeviationThreshold = floatEnv("DEVIATION_PERCENT_THRESHOLD", -3.0)

	// Validate required settings
	missing := []string{}
	if cfg.Slack.BotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	// Apply defaults
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Monitor.QueueSize == 0 {
		cfg.Monitor.QueueSize = 500
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "chat_events"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "ai-assistant"
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func floatEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
