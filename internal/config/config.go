// Package config defines the configuration contract and handles loading and validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken = "TELEGRAM_TOKEN"
	KeyBotOwner      = "BOT_OWNER"
	KeyStoreDriver   = "STORE_DRIVER"
	KeySQLitePath    = "SQLITE_PATH"
	KeyMongoURI      = "MONGO_URI"
	KeyMongoDB       = "MONGO_DB"
	KeyAppEnv        = "APP_ENV"
	KeyLogLevel      = "LOG_LEVEL"
	KeyHTTPPort      = "HTTP_PORT"
	KeyShutdownDelay = "SHUTDOWN_DELAY"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Supported persistence backends.
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"

	// Defaults for optional settings.
	DefaultAppEnv        = EnvProduction
	DefaultLogLevel      = "info"
	DefaultHTTPPort      = 8080
	DefaultStoreDriver   = DriverSQLite
	DefaultSQLitePath    = "kcal.sqlite"
	DefaultShutdownDelay = time.Second

	// Recommended database names by environment.
	DefaultMongoDBProd = "kcal_bot"
	DefaultMongoDBDev  = "kcal_bot_dev"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyBotOwner,
		Example:     "123456789",
		Required:    true,
		Description: "Telegram user_id allowed to run admin commands (superstat, removeforce, kill).",
	},
	{
		Key:         KeyStoreDriver,
		Example:     DriverSQLite + " / " + DriverMongo,
		Default:     DefaultStoreDriver,
		Description: "Persistence backend for users and consumed items.",
	},
	{
		Key:         KeySQLitePath,
		Example:     DefaultSQLitePath,
		Default:     DefaultSQLitePath,
		Description: "SQLite database file.",
		Notes:       "Used when " + KeyStoreDriver + "=" + DriverSQLite + ".",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Description: "MongoDB connection string.",
		Notes:       "Required when " + KeyStoreDriver + "=" + DriverMongo + ".",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Description: "MongoDB database name.",
		Notes:       "Required when " + KeyStoreDriver + "=" + DriverMongo + ". Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP health port.",
	},
	{
		Key:         KeyShutdownDelay,
		Example:     DefaultShutdownDelay.String(),
		Default:     DefaultShutdownDelay.String(),
		Description: "Delay between the kill acknowledgement and stopping the receive loop.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken string        `env:"TELEGRAM_TOKEN" validate:"required"`
	BotOwnerID    int64         `env:"BOT_OWNER" validate:"required"`
	StoreDriver   string        `env:"STORE_DRIVER" validate:"oneof=sqlite mongo"`
	SQLitePath    string        `env:"SQLITE_PATH" validate:"required_if=StoreDriver sqlite"`
	MongoURI      string        `env:"MONGO_URI" validate:"required_if=StoreDriver mongo"`
	MongoDB       string        `env:"MONGO_DB" validate:"required_if=StoreDriver mongo"`
	AppEnv        string        `env:"APP_ENV" validate:"oneof=development production"`
	LogLevel      string        `env:"LOG_LEVEL" validate:"required"`
	HTTPPort      int           `env:"HTTP_PORT" validate:"min=1,max=65535"`
	ShutdownDelay time.Duration `env:"SHUTDOWN_DELAY" validate:"min=0s"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("env")
	})
	return v
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:        firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken: strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		StoreDriver:   firstNonEmpty(normalizeEnv(os.Getenv(KeyStoreDriver)), DefaultStoreDriver),
		SQLitePath:    firstNonEmpty(os.Getenv(KeySQLitePath), DefaultSQLitePath),
		MongoURI:      strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:       strings.TrimSpace(os.Getenv(KeyMongoDB)),
		LogLevel:      firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:      DefaultHTTPPort,
		ShutdownDelay: DefaultShutdownDelay,
	}

	if ownerRaw := strings.TrimSpace(os.Getenv(KeyBotOwner)); ownerRaw != "" {
		ownerID, parseErr := strconv.ParseInt(ownerRaw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyBotOwner, parseErr)
		}
		cfg.BotOwnerID = ownerID
	}

	if httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort)); httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		cfg.HTTPPort = port
	}

	if delayRaw := strings.TrimSpace(os.Getenv(KeyShutdownDelay)); delayRaw != "" {
		delay, parseErr := time.ParseDuration(delayRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyShutdownDelay, parseErr)
		}
		cfg.ShutdownDelay = delay
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks required keys and value ranges. Missing keys are reported
// together.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate config: %w", err)
		}

		missing := make([]string, 0)
		for _, fe := range fieldErrs {
			switch fe.Tag() {
			case "required", "required_if":
				missing = append(missing, fe.Field())
			default:
				return fmt.Errorf("invalid %s: %q does not satisfy %s=%s", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag(), fe.Param())
			}
		}

		return fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if c.StoreDriver == DriverMongo {
		if err := validateMongoURI(c.MongoURI); err != nil {
			return err
		}
	}

	return nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

func validateMongoURI(uri string) error {
	if strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://") {
		return nil
	}

	return fmt.Errorf("invalid %s: must start with mongodb:// or mongodb+srv://", KeyMongoURI)
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
