package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Feed     FeedConfig     `mapstructure:"feed"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
	Poll     PollConfig     `mapstructure:"poll"`
	Watchdog WatchdogConfig `mapstructure:"watchdog"`
	Track    TrackConfig    `mapstructure:"track"`
	Screen   ScreenConfig   `mapstructure:"screen"`
	Status   StatusConfig   `mapstructure:"status"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// FeedConfig describes the inbound OSC feed (deck changes and heartbeats).
type FeedConfig struct {
	BindAddr      string `mapstructure:"bind_addr"`
	Port          int    `mapstructure:"port"`
	DeckPath      string `mapstructure:"deck_path"`
	HeartbeatPath string `mapstructure:"heartbeat_path"`
}

// ConsumerConfig describes the downstream display consumer.
type ConsumerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	TitlePath   string `mapstructure:"title_path"`
	ArtistPath  string `mapstructure:"artist_path"`
	PlayingPath string `mapstructure:"playing_path"`
	DryRun      bool   `mapstructure:"dry_run"`
}

type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type WatchdogConfig struct {
	Threshold time.Duration `mapstructure:"threshold"`
}

type TrackConfig struct {
	Placeholder string `mapstructure:"placeholder"`
}

type ScreenConfig struct {
	Driver             string        `mapstructure:"driver"`
	SnapshotPath       string        `mapstructure:"snapshot_path"`
	WindowTitle        string        `mapstructure:"window_title"`
	ReconnectPerSecond float64       `mapstructure:"reconnect_per_second"`
	RestoreDelay       time.Duration `mapstructure:"restore_delay"`
	Layout             LayoutConfig  `mapstructure:"layout"`
}

// LayoutConfig pins the deck text fields inside the anchored container.
type LayoutConfig struct {
	Anchor      string     `mapstructure:"anchor"`
	MinChildren int        `mapstructure:"min_children"`
	Deck0       DeckLayout `mapstructure:"deck0"`
	Deck1       DeckLayout `mapstructure:"deck1"`
}

type DeckLayout struct {
	TitleIndex  int `mapstructure:"title_index"`
	ArtistIndex int `mapstructure:"artist_index"`
}

type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

// ZapLevel parses Level. An empty or unknown level reports false.
func (l LoggingConfig) ZapLevel() (zapcore.Level, bool) {
	var level zapcore.Level
	if l.Level == "" || level.UnmarshalText([]byte(l.Level)) != nil {
		return zapcore.InfoLevel, false
	}
	return level, true
}

// FilePath returns the log file for a run of the named command started at
// the given time.
func (l LoggingConfig) FilePath(name string, started time.Time) string {
	return filepath.Join(l.Directory, fmt.Sprintf("%s_%s.log", name, started.Format("2006-01-02_15-04-05")))
}

// Addr returns the host:port the feed listener binds to.
func (f FeedConfig) Addr() string {
	return fmt.Sprintf("%s:%d", f.BindAddr, f.Port)
}

// Addr returns the host:port events are sent to.
func (c ConsumerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("feed.bind_addr", "0.0.0.0")
	v.SetDefault("feed.port", 4455)
	v.SetDefault("feed.deck_path", "/deck/master")
	v.SetDefault("feed.heartbeat_path", "/time/master")
	v.SetDefault("consumer.host", "127.0.0.1")
	v.SetDefault("consumer.port", 4460)
	v.SetDefault("consumer.title_path", "/track/master/title")
	v.SetDefault("consumer.artist_path", "/track/master/artist")
	v.SetDefault("consumer.playing_path", "/status/playing")
	v.SetDefault("consumer.dry_run", false)
	v.SetDefault("poll.interval", "500ms")
	v.SetDefault("poll.read_timeout", "450ms")
	v.SetDefault("watchdog.threshold", "300ms")
	v.SetDefault("track.placeholder", "Loading...")
	v.SetDefault("screen.driver", "snapshot")
	v.SetDefault("screen.snapshot_path", "rekordbox-ui.json")
	v.SetDefault("screen.window_title", ".*rekordbox.*")
	v.SetDefault("screen.reconnect_per_second", 2)
	v.SetDefault("screen.restore_delay", "200ms")
	v.SetDefault("screen.layout.anchor", "4Deck Horizontal")
	v.SetDefault("screen.layout.min_children", 160)
	v.SetDefault("screen.layout.deck0.title_index", 133)
	v.SetDefault("screen.layout.deck0.artist_index", 135)
	v.SetDefault("screen.layout.deck1.title_index", 156)
	v.SetDefault("screen.layout.deck1.artist_index", 158)
	v.SetDefault("status.enabled", true)
	v.SetDefault("status.addr", "127.0.0.1:4470")
	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")

	// Environment variable support
	v.SetEnvPrefix("DECKBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	validatePort(errs, "feed.port", c.Feed.Port)
	validatePort(errs, "consumer.port", c.Consumer.Port)
	validatePath(errs, "feed.deck_path", c.Feed.DeckPath)
	validatePath(errs, "feed.heartbeat_path", c.Feed.HeartbeatPath)
	validatePath(errs, "consumer.title_path", c.Consumer.TitlePath)
	validatePath(errs, "consumer.artist_path", c.Consumer.ArtistPath)
	validatePath(errs, "consumer.playing_path", c.Consumer.PlayingPath)
	validatePositive(errs, "poll.interval", c.Poll.Interval)
	validatePositive(errs, "poll.read_timeout", c.Poll.ReadTimeout)
	validatePositive(errs, "watchdog.threshold", c.Watchdog.Threshold)

	if c.Feed.DeckPath == c.Feed.HeartbeatPath {
		errs.add("feed.heartbeat_path", "must differ from feed.deck_path")
	}
	if c.Consumer.Host == "" {
		errs.add("consumer.host", "is required")
	}
	if c.Status.Enabled && c.Status.Addr == "" {
		errs.add("status.addr", "is required when status.enabled=true")
	}

	validateScreen(errs, c.Screen)

	// A reconnect to a minimized window waits restore_delay inside the
	// read, so it must fit within the poll's read deadline.
	if c.Poll.ReadTimeout > 0 && c.Screen.RestoreDelay >= c.Poll.ReadTimeout {
		errs.add("screen.restore_delay", fmt.Sprintf("%s must be < poll.read_timeout (%s)", c.Screen.RestoreDelay, c.Poll.ReadTimeout))
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
