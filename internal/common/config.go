package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Account    AccountConfig    `toml:"account"`
	Tracker    TrackerConfig    `toml:"tracker"`
	Actions    ActionsConfig    `toml:"actions"`
	Thresholds ThresholdsConfig `toml:"thresholds"`
	Schedule   ScheduleConfig   `toml:"schedule"`
	Storage    StorageConfig    `toml:"storage"`
	Logging    LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host" validate:"required"`
}

// AccountConfig identifies the tracker account and its credentials. The
// session token here is only the seed value; rotated tokens persisted in
// storage take precedence once present.
type AccountConfig struct {
	BaseURL      string `toml:"base_url" validate:"required,url"`
	UserID       string `toml:"user_id" validate:"omitempty,numeric"`
	SessionToken string `toml:"session_token"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
}

// TrackerConfig carries the site's endpoint paths and cookie names. Defaults
// match the public site; they are configurable so a mirror or test server
// can stand in.
type TrackerConfig struct {
	StatsPath       string `toml:"stats_path"`
	BuyVIPPath      string `toml:"buy_vip_path"`
	BuyCreditPath   string `toml:"buy_credit_path"`
	DonatePath      string `toml:"donate_path"`
	LoginPath       string `toml:"login_path"`
	LoginSubmitPath string `toml:"login_submit_path"`
	SessionCookie   string `toml:"session_cookie"`
	DonationCookie  string `toml:"donation_cookie"`
	RequestTimeout  string `toml:"request_timeout"` // e.g. "15s" - data and action calls
	LoginTimeout    string `toml:"login_timeout"`   // e.g. "20s" - login handshake
	RateLimit       int    `toml:"rate_limit"`      // max requests per second
}

// ActionsConfig holds the three automation toggles and the donation amount.
type ActionsConfig struct {
	DonateVault  bool `toml:"donate_vault"`
	BuyVIP       bool `toml:"buy_vip"`
	BuyCredit    bool `toml:"buy_credit"`
	DonatePoints int  `toml:"donate_points" validate:"min=100,max=2000"`
}

// ThresholdsConfig holds the eligibility thresholds.
type ThresholdsConfig struct {
	DonateMinRatio     float64  `toml:"donate_min_ratio"`
	VIPMinSeedBonus    int64    `toml:"vip_min_seedbonus"`
	CreditMinSeedBonus int64    `toml:"credit_min_seedbonus"`
	VIPClasses         []string `toml:"vip_classes"`
}

// ScheduleConfig controls when the daily run and the stats poll fire.
// DayBoundary decides which calendar the once-per-day guarantee uses; the
// 02:00 scheduled trigger makes UTC the operative default.
type ScheduleConfig struct {
	Daily       string `toml:"daily"` // cron expression for the daily actions
	Poll        string `toml:"poll"`  // cron expression for the stats refresh
	DayBoundary string `toml:"day_boundary" validate:"oneof=utc local"`
	RunOnStart  bool   `toml:"run_on_start"` // fire the daily job once at boot
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values. Endpoint
// paths and thresholds mirror the tracker's published rules.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Account: AccountConfig{
			BaseURL: "https://www.myanonamouse.net",
		},
		Tracker: TrackerConfig{
			StatsPath:       "/jsonLoad.php",
			BuyVIPPath:      "/json/bonusBuy.php/?spendtype=VIP&amount=max",
			BuyCreditPath:   "/json/bonusBuy.php/?spendtype=upload&amount=50",
			DonatePath:      "/millionaires/donate.php",
			LoginPath:       "/login.php",
			LoginSubmitPath: "/takelogin.php",
			SessionCookie:   "mam_id",
			DonationCookie:  "mbsc",
			RequestTimeout:  "15s",
			LoginTimeout:    "20s",
			RateLimit:       2,
		},
		Actions: ActionsConfig{
			DonateVault:  false,
			BuyVIP:       false,
			BuyCredit:    false,
			DonatePoints: 2000,
		},
		Thresholds: ThresholdsConfig{
			DonateMinRatio:     1.05,
			VIPMinSeedBonus:    5000,
			CreditMinSeedBonus: 25000,
			VIPClasses:         []string{"vip", "power user"},
		},
		Schedule: ScheduleConfig{
			Daily:       "0 2 * * *",    // 02:00 in the day-boundary location
			Poll:        "*/15 * * * *", // refresh stats every 15 minutes
			DayBoundary: "utc",
			RunOnStart:  true,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Actions.DonatePoints%100 != 0 {
		return fmt.Errorf("invalid configuration: donate_points must be a multiple of 100, got %d", c.Actions.DonatePoints)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("SEEDKEEPER_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SEEDKEEPER_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if baseURL := os.Getenv("SEEDKEEPER_BASE_URL"); baseURL != "" {
		config.Account.BaseURL = baseURL
	}
	if userID := os.Getenv("SEEDKEEPER_USER_ID"); userID != "" {
		config.Account.UserID = userID
	}
	if token := os.Getenv("SEEDKEEPER_SESSION_TOKEN"); token != "" {
		config.Account.SessionToken = token
	}
	if username := os.Getenv("SEEDKEEPER_USERNAME"); username != "" {
		config.Account.Username = username
	}
	if password := os.Getenv("SEEDKEEPER_PASSWORD"); password != "" {
		config.Account.Password = password
	}

	if donate := os.Getenv("SEEDKEEPER_DONATE_VAULT"); donate != "" {
		if d, err := strconv.ParseBool(donate); err == nil {
			config.Actions.DonateVault = d
		}
	}
	if vip := os.Getenv("SEEDKEEPER_BUY_VIP"); vip != "" {
		if v, err := strconv.ParseBool(vip); err == nil {
			config.Actions.BuyVIP = v
		}
	}
	if credit := os.Getenv("SEEDKEEPER_BUY_CREDIT"); credit != "" {
		if cr, err := strconv.ParseBool(credit); err == nil {
			config.Actions.BuyCredit = cr
		}
	}

	if daily := os.Getenv("SEEDKEEPER_DAILY_SCHEDULE"); daily != "" {
		config.Schedule.Daily = daily
	}
	if poll := os.Getenv("SEEDKEEPER_POLL_SCHEDULE"); poll != "" {
		config.Schedule.Poll = poll
	}
	if boundary := os.Getenv("SEEDKEEPER_DAY_BOUNDARY"); boundary != "" {
		config.Schedule.DayBoundary = strings.ToLower(boundary)
	}

	if badgerPath := os.Getenv("SEEDKEEPER_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("SEEDKEEPER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("SEEDKEEPER_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// DayLocation returns the time.Location the once-per-day guarantee uses.
func (c *Config) DayLocation() *time.Location {
	if strings.EqualFold(c.Schedule.DayBoundary, "local") {
		return time.Local
	}
	return time.UTC
}

// ParsedRequestTimeout returns the parsed data/action call timeout.
func (c *TrackerConfig) ParsedRequestTimeout() time.Duration {
	if d, err := time.ParseDuration(c.RequestTimeout); err == nil && d > 0 {
		return d
	}
	return 15 * time.Second
}

// ParsedLoginTimeout returns the parsed login handshake timeout.
func (c *TrackerConfig) ParsedLoginTimeout() time.Duration {
	if d, err := time.ParseDuration(c.LoginTimeout); err == nil && d > 0 {
		return d
	}
	return 20 * time.Second
}
