package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// All values must come from env (or an env file loaded before parsing).
// No business logic should depend on raw environment variables.
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Twilio     TwilioConfig
	Inbound    InboundConfig
	Chat       ChatConfig
	Storage    StorageConfig
	Staff      StaffConfig
	AudioProxy AudioProxyConfig
	Log        LogConfig
}

type AppConfig struct {
	Env  string
	Port int

	// Timezone drives the "today"/"yesterday" list windows.
	Timezone string

	// PublicBaseURL is the externally reachable base used in TwiML callback URLs.
	PublicBaseURL string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Pool sizing; zero keeps the utils.OpenPostgres defaults.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// Enabled reports whether the staff API is protected by bearer tokens.
func (a AuthConfig) Enabled() bool { return a.JWTSecret != "" }

type TwilioConfig struct {
	AccountSID string
	AuthToken  string

	ValidateSignature bool

	// RecordingHosts lists the only hosts provider credentials are sent to,
	// for both the audio proxy and voicemail archiving.
	RecordingHosts []string
}

// HasCredentials reports whether authenticated provider fetches are possible.
func (t TwilioConfig) HasCredentials() bool {
	return t.AccountSID != "" && t.AuthToken != ""
}

const (
	InboundModeAck       = "ack"
	InboundModeVoicemail = "voicemail"
)

type InboundConfig struct {
	Mode             string
	Greeting         string
	Language         string
	MaxLengthSeconds int
}

type ChatConfig struct {
	APIKey       string
	SenderNumber string
	// Recipient is the operations chat target for every notification.
	Recipient string
	BaseURL   string

	NotifyOnStatusCompleted bool
}

// Enabled reports whether outbound chat notifications can be sent.
func (c ChatConfig) Enabled() bool {
	return c.APIKey != "" && c.SenderNumber != "" && c.Recipient != ""
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// Enabled reports whether voicemail audio can be mirrored to object storage.
func (s StorageConfig) Enabled() bool { return s.Endpoint != "" }

type StaffConfig struct {
	File string
}

type AudioProxyConfig struct {
	MaxConcurrent int
}

type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

const (
	defaultTimezone        = "Europe/Berlin"
	defaultGreeting        = "Hallo, Sie haben uns außerhalb der Geschäftszeiten erreicht. Bitte hinterlassen Sie eine Nachricht nach dem Signalton."
	defaultLanguage        = "de-DE"
	defaultMaxLength       = 120
	defaultChatBaseURL     = "https://api.p.2chat.io"
	defaultRecordingHost   = "api.twilio.com"
	defaultBucket          = "voicemails"
	defaultProxyConcurrent = 4
)

func Load() (Config, error) {
	if err := loadEnvFile(); err != nil {
		return Config{}, err
	}

	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.Timezone = strings.TrimSpace(os.Getenv("APP_TIMEZONE"))
	c.App.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/")

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	for key, dst := range map[string]*int{
		"DB_MAX_OPEN_CONNS": &c.DB.MaxOpenConns,
		"DB_MAX_IDLE_CONNS": &c.DB.MaxIdleConns,
	} {
		n, err := optionalInt(key)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		*dst = n
	}
	c.DB.ConnMaxLifetime = mustDuration("DB_CONN_MAX_LIFETIME")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	{
		b, err := optionalBool("TWILIO_VALIDATE_SIGNATURE")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Twilio.ValidateSignature = b
	}
	c.Twilio.RecordingHosts = splitList(os.Getenv("TWILIO_RECORDING_HOSTS"))

	c.Inbound.Mode = strings.ToLower(strings.TrimSpace(os.Getenv("INBOUND_MODE")))
	c.Inbound.Greeting = strings.TrimSpace(os.Getenv("VOICEMAIL_GREETING"))
	c.Inbound.Language = strings.TrimSpace(os.Getenv("VOICEMAIL_LANGUAGE"))
	{
		n, err := optionalInt("VOICEMAIL_MAX_LENGTH")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Inbound.MaxLengthSeconds = n
	}

	c.Chat.APIKey = os.Getenv("CHAT_API_KEY")
	c.Chat.SenderNumber = strings.TrimSpace(os.Getenv("CHAT_SENDER_NUMBER"))
	c.Chat.Recipient = strings.TrimSpace(os.Getenv("CHAT_RECIPIENT"))
	c.Chat.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("CHAT_API_BASE_URL")), "/")
	{
		b, err := optionalBool("NOTIFY_ON_STATUS_COMPLETED")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Chat.NotifyOnStatusCompleted = b
	}

	c.Storage.Endpoint = strings.TrimSpace(os.Getenv("STORAGE_ENDPOINT"))
	c.Storage.AccessKey = strings.TrimSpace(os.Getenv("STORAGE_ACCESS_KEY"))
	c.Storage.SecretKey = os.Getenv("STORAGE_SECRET_KEY")
	c.Storage.Bucket = strings.TrimSpace(os.Getenv("STORAGE_BUCKET"))
	c.Storage.PublicBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_PUBLIC_BASE_URL")), "/")
	{
		b, err := optionalBool("STORAGE_USE_SSL")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Storage.UseSSL = b
	}

	c.Staff.File = strings.TrimSpace(os.Getenv("STAFF_FILE"))

	{
		n, err := optionalInt("AUDIO_PROXY_MAX_CONCURRENT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.AudioProxy.MaxConcurrent = n
	}

	c.Log.File = strings.TrimSpace(os.Getenv("LOG_FILE"))
	for key, dst := range map[string]*int{
		"LOG_MAX_SIZE_MB":  &c.Log.MaxSizeMB,
		"LOG_MAX_BACKUPS":  &c.Log.MaxBackups,
		"LOG_MAX_AGE_DAYS": &c.Log.MaxAgeDays,
	} {
		n, err := optionalInt(key)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		*dst = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.Timezone == "" {
		c.App.Timezone = defaultTimezone
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE is not a valid IANA zone, got %q", c.App.Timezone))
	}
	if c.App.PublicBaseURL != "" {
		if u, err := url.Parse(c.App.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PUBLIC_BASE_URL must be an absolute URL, got %q", c.App.PublicBaseURL))
		}
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	if c.DB.MaxOpenConns < 0 || c.DB.MaxIdleConns < 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative"))
	}
	if c.DB.MaxOpenConns > 0 && c.DB.MaxIdleConns > c.DB.MaxOpenConns {
		c.DB.MaxIdleConns = c.DB.MaxOpenConns
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.IsProduction() {
		if c.Auth.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		}
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		// Staff sessions live for a working day.
		c.Auth.AccessTokenTTL = 12 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Twilio.ValidateSignature && c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required when TWILIO_VALIDATE_SIGNATURE is set"))
	}
	if c.Twilio.ValidateSignature && c.App.PublicBaseURL == "" {
		errs = append(errs, errors.New("PUBLIC_BASE_URL is required when TWILIO_VALIDATE_SIGNATURE is set"))
	}
	if len(c.Twilio.RecordingHosts) == 0 {
		c.Twilio.RecordingHosts = []string{defaultRecordingHost}
	}

	if c.Inbound.Mode == "" {
		c.Inbound.Mode = InboundModeAck
	}
	switch c.Inbound.Mode {
	case InboundModeAck:
	case InboundModeVoicemail:
		if c.App.PublicBaseURL == "" {
			errs = append(errs, errors.New("PUBLIC_BASE_URL is required when INBOUND_MODE is voicemail"))
		}
	default:
		errs = append(errs, fmt.Errorf("INBOUND_MODE must be one of ack, voicemail, got %q", c.Inbound.Mode))
	}
	if c.Inbound.Greeting == "" {
		c.Inbound.Greeting = defaultGreeting
	}
	if c.Inbound.Language == "" {
		c.Inbound.Language = defaultLanguage
	}
	if c.Inbound.MaxLengthSeconds <= 0 {
		c.Inbound.MaxLengthSeconds = defaultMaxLength
	}
	if c.Inbound.MaxLengthSeconds > 3600 {
		errs = append(errs, fmt.Errorf("VOICEMAIL_MAX_LENGTH must be at most 3600 seconds, got %d", c.Inbound.MaxLengthSeconds))
	}

	if c.Chat.BaseURL == "" {
		c.Chat.BaseURL = defaultChatBaseURL
	}

	if c.Storage.Enabled() {
		if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
			errs = append(errs, errors.New("STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required when STORAGE_ENDPOINT is set"))
		}
		if c.Storage.Bucket == "" {
			c.Storage.Bucket = defaultBucket
		}
	}

	if c.AudioProxy.MaxConcurrent <= 0 {
		c.AudioProxy.MaxConcurrent = defaultProxyConcurrent
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// Location returns the configured zone, falling back to time.Local.
func (c Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.App.Timezone); err == nil {
		return loc
	}
	return time.Local
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// loadEnvFile reads ENV_FILE (default .env) into the process environment.
// Values already set in the environment win; a missing file is not an error.
func loadEnvFile() error {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalBool(key string) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
