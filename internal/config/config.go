// Package config loads and saves the persisted settings file.
//
// Settings come from, in increasing precedence: built-in defaults, the
// settings file (JSON), a .env file in the working directory, and TUGAS_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultPath is the settings file used when none is given.
const DefaultPath = "settings.json"

// EnvPrefix prefixes environment overrides, e.g. TUGAS_TELEGRAM_TOKEN.
const EnvPrefix = "TUGAS"

// Setting keys as they appear in the settings file.
const (
	KeyTelegramToken        = "telegram_token"
	KeyTelegramID           = "telegram_id"
	KeyFirebaseCredentials  = "firebase_credentials"
	KeyFirebaseProjectID    = "firebase_project_id"
	KeyAnthropicAPIKey      = "anthropic_api_key"
	KeyAnthropicModel       = "anthropic_model"
	KeyDBPath               = "db_path"
	KeyListenAddr           = "listen_addr"
	KeyTimezone             = "timezone"
	KeyLogFile              = "log_file"
	KeyNotifyInterval       = "notify_interval"
	KeyNotifyRetry          = "notify_retry"
	KeySyncInterval         = "sync_interval"
	KeyFCMTokens            = "fcm_tokens"
	KeyDesktopNotifications = "desktop_notifications"
)

// ErrOwnerNotSet is returned by OwnerID when no telegram id is configured.
var ErrOwnerNotSet = errors.New("Telegram User ID is not set in Settings")

// Settings is the persisted configuration.
type Settings struct {
	TelegramToken string `mapstructure:"telegram_token"`
	// TelegramID is the owner's Telegram user id. It scopes every remote
	// query.
	TelegramID string `mapstructure:"telegram_id"`

	FirebaseCredentials string `mapstructure:"firebase_credentials"`
	FirebaseProjectID   string `mapstructure:"firebase_project_id"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	AnthropicModel  string `mapstructure:"anthropic_model"`

	DBPath     string `mapstructure:"db_path"`
	ListenAddr string `mapstructure:"listen_addr"`
	Timezone   string `mapstructure:"timezone"`
	LogFile    string `mapstructure:"log_file"`

	NotifyInterval time.Duration `mapstructure:"notify_interval"`
	NotifyRetry    time.Duration `mapstructure:"notify_retry"`
	SyncInterval   time.Duration `mapstructure:"sync_interval"`

	FCMTokens            []string `mapstructure:"fcm_tokens"`
	DesktopNotifications bool     `mapstructure:"desktop_notifications"`
}

// Defaults returns the built-in settings.
func Defaults() Settings {
	return Settings{
		FirebaseCredentials:  "firebase-credentials.json",
		AnthropicModel:       "claude-sonnet-4-5",
		DBPath:               "notes.db",
		ListenAddr:           ":5000",
		Timezone:             "Asia/Jakarta",
		NotifyInterval:       time.Hour,
		NotifyRetry:          5 * time.Minute,
		DesktopNotifications: true,
	}
}

// OwnerID parses the configured telegram id.
func (s *Settings) OwnerID() (int64, error) {
	raw := strings.TrimSpace(s.TelegramID)
	if raw == "" {
		return 0, ErrOwnerNotSet
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram id %q: %w", raw, err)
	}
	return id, nil
}

// Public returns the settings with secrets other than the telegram pair
// masked, for display.
func (s *Settings) Public() map[string]interface{} {
	return map[string]interface{}{
		KeyTelegramToken:        s.TelegramToken,
		KeyTelegramID:           s.TelegramID,
		KeyFirebaseCredentials:  s.FirebaseCredentials,
		KeyFirebaseProjectID:    s.FirebaseProjectID,
		KeyAnthropicAPIKey:      mask(s.AnthropicAPIKey),
		KeyAnthropicModel:       s.AnthropicModel,
		KeyDBPath:               s.DBPath,
		KeyListenAddr:           s.ListenAddr,
		KeyTimezone:             s.Timezone,
		KeyLogFile:              s.LogFile,
		KeyNotifyInterval:       s.NotifyInterval.String(),
		KeyNotifyRetry:          s.NotifyRetry.String(),
		KeySyncInterval:         s.SyncInterval.String(),
		KeyFCMTokens:            len(s.FCMTokens),
		KeyDesktopNotifications: s.DesktopNotifications,
	}
}

func mask(secret string) string {
	if len(secret) <= 4 {
		if secret == "" {
			return ""
		}
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// newViper returns a viper instance with defaults, env binding and the
// settings file registered.
func newViper(path string) *viper.Viper {
	v := viper.New()

	d := Defaults()
	v.SetDefault(KeyTelegramToken, d.TelegramToken)
	v.SetDefault(KeyTelegramID, d.TelegramID)
	v.SetDefault(KeyFirebaseCredentials, d.FirebaseCredentials)
	v.SetDefault(KeyFirebaseProjectID, d.FirebaseProjectID)
	v.SetDefault(KeyAnthropicAPIKey, d.AnthropicAPIKey)
	v.SetDefault(KeyAnthropicModel, d.AnthropicModel)
	v.SetDefault(KeyDBPath, d.DBPath)
	v.SetDefault(KeyListenAddr, d.ListenAddr)
	v.SetDefault(KeyTimezone, d.Timezone)
	v.SetDefault(KeyLogFile, d.LogFile)
	v.SetDefault(KeyNotifyInterval, d.NotifyInterval)
	v.SetDefault(KeyNotifyRetry, d.NotifyRetry)
	v.SetDefault(KeySyncInterval, d.SyncInterval)
	v.SetDefault(KeyFCMTokens, []string{})
	v.SetDefault(KeyDesktopNotifications, d.DesktopNotifications)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("json")
	return v
}

// Load reads settings from path. A missing file yields the defaults plus
// environment overrides. A .env file in the working directory is loaded
// into the environment first.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = DefaultPath
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &s, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Save writes s to path as JSON, creating parent directories.
func Save(path string, s *Settings) error {
	if path == "" {
		path = DefaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("json")
	v.Set(KeyTelegramToken, s.TelegramToken)
	v.Set(KeyTelegramID, s.TelegramID)
	v.Set(KeyFirebaseCredentials, s.FirebaseCredentials)
	v.Set(KeyFirebaseProjectID, s.FirebaseProjectID)
	v.Set(KeyAnthropicAPIKey, s.AnthropicAPIKey)
	v.Set(KeyAnthropicModel, s.AnthropicModel)
	v.Set(KeyDBPath, s.DBPath)
	v.Set(KeyListenAddr, s.ListenAddr)
	v.Set(KeyTimezone, s.Timezone)
	v.Set(KeyLogFile, s.LogFile)
	v.Set(KeyNotifyInterval, s.NotifyInterval.String())
	v.Set(KeyNotifyRetry, s.NotifyRetry.String())
	v.Set(KeySyncInterval, s.SyncInterval.String())
	v.Set(KeyFCMTokens, s.FCMTokens)
	v.Set(KeyDesktopNotifications, s.DesktopNotifications)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write settings %s: %w", path, err)
	}
	return nil
}

// Update is a partial settings change. Nil fields are left unchanged.
type Update struct {
	TelegramToken   *string  `json:"telegram_token"`
	TelegramID      *string  `json:"telegram_id"`
	AnthropicAPIKey *string  `json:"anthropic_api_key"`
	AnthropicModel  *string  `json:"anthropic_model"`
	Timezone        *string  `json:"timezone"`
	FCMTokens       []string `json:"fcm_tokens"`
}

// Apply copies the set fields onto s.
func (u Update) Apply(s *Settings) {
	if u.TelegramToken != nil {
		s.TelegramToken = strings.TrimSpace(*u.TelegramToken)
	}
	if u.TelegramID != nil {
		s.TelegramID = strings.TrimSpace(*u.TelegramID)
	}
	if u.AnthropicAPIKey != nil {
		s.AnthropicAPIKey = strings.TrimSpace(*u.AnthropicAPIKey)
	}
	if u.AnthropicModel != nil {
		s.AnthropicModel = strings.TrimSpace(*u.AnthropicModel)
	}
	if u.Timezone != nil {
		s.Timezone = strings.TrimSpace(*u.Timezone)
	}
	if u.FCMTokens != nil {
		s.FCMTokens = u.FCMTokens
	}
}

// Watch calls fn with the reloaded settings whenever the file at path
// changes. Running components are not reconfigured; the owner id and
// credentials take effect on restart.
func Watch(path string, logger *log.Logger, fn func(*Settings)) error {
	if logger == nil {
		logger = log.New(os.Stderr, "[config] ", log.LstdFlags)
	}

	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read settings %s: %w", path, err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
			return
		}
		s, err := decode(v)
		if err != nil {
			logger.Printf("Settings changed but could not be decoded: %v", err)
			return
		}
		logger.Printf("Settings file changed: %s (restart to apply owner or credential changes)", e.Name)
		if fn != nil {
			fn(s)
		}
	})
	v.WatchConfig()
	return nil
}
