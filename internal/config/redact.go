package config

import (
	"fmt"
	"net/url"
	"strings"
)

const tokenPrefixLen = 4

// FormatRedacted renders cfg for display with secrets masked: the token keeps
// a short prefix and Mongo credentials are dropped.
func FormatRedacted(cfg Config) string {
	lines := []string{
		"telegram_token: " + redactToken(cfg.TelegramToken),
		fmt.Sprintf("bot_owner: %d", cfg.BotOwnerID),
		"store_driver: " + cfg.StoreDriver,
	}

	switch cfg.StoreDriver {
	case DriverMongo:
		lines = append(lines,
			"mongo_uri: "+redactMongoURI(cfg.MongoURI),
			"mongo_db: "+cfg.MongoDB,
		)
	default:
		lines = append(lines, "sqlite_path: "+cfg.SQLitePath)
	}

	lines = append(lines,
		"app_env: "+cfg.AppEnv,
		"log_level: "+cfg.LogLevel,
		fmt.Sprintf("http_port: %d", cfg.HTTPPort),
		"shutdown_delay: "+cfg.ShutdownDelay.String(),
	)

	return strings.Join(lines, "\n")
}

func redactToken(token string) string {
	if len(token) <= tokenPrefixLen {
		return "redacted"
	}
	return token[:tokenPrefixLen] + "...redacted"
}

func redactMongoURI(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Host == "" {
		return "redacted"
	}
	parsed.User = nil
	return parsed.String()
}
