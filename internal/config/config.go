package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Config holds application settings sourced from environment variables.
type Config struct {
	LogLevel     string `env:"LOG_LEVEL,default=info"`
	LogFormat    string `env:"LOG_FORMAT,default=console"`
	DatabasePath string `env:"DATABASE_PATH,default=nowplaying.db"`
	HTTPAddr     string `env:"HTTP_ADDR,default=:8080"`
	BaseURL      string `env:"BASE_URL,default=http://localhost:8080"`
	StateSecret  string `env:"STATE_SECRET"`
	DonateURL    string `env:"DONATE_URL"`

	Telegram struct {
		Token       string `env:"TELEGRAM_TOKEN"`
		SecondToken string `env:"TELEGRAM_2_TOKEN"`
		FeedChatID  int64  `env:"TELEGRAM_FEED_CHAT_ID"`
	}

	Discord struct {
		Token         string `env:"DISCORD_TOKEN"`
		FeedChannelID string `env:"DISCORD_FEED_CHANNEL_ID"`
	}

	Spotify struct {
		ClientID     string `env:"SPOTIFY_CLIENT_ID"`
		ClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	}

	Deezer struct {
		AppID  string `env:"DEEZER_APP_ID"`
		Secret string `env:"DEEZER_SECRET"`
	}
}

// Load reads configuration from the environment.
func Load(ctx context.Context) (Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &cfg, l); err != nil {
		return Config{}, fmt.Errorf("parsing env vars: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Telegram.Token == "" && c.Telegram.SecondToken == "" && c.Discord.Token == "" {
		return fmt.Errorf("no messenger configured: set TELEGRAM_TOKEN, TELEGRAM_2_TOKEN or DISCORD_TOKEN")
	}
	if !c.SpotifyEnabled() && !c.DeezerEnabled() {
		return fmt.Errorf("no music service configured: set SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET or DEEZER_APP_ID/DEEZER_SECRET")
	}
	if c.StateSecret == "" {
		return fmt.Errorf("STATE_SECRET is not set")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// SpotifyEnabled reports whether Spotify credentials are set.
func (c Config) SpotifyEnabled() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// DeezerEnabled reports whether Deezer credentials are set.
func (c Config) DeezerEnabled() bool {
	return c.Deezer.AppID != "" && c.Deezer.Secret != ""
}

// CallbackURL is the OAuth redirect target for a music service.
func (c Config) CallbackURL(service string) string {
	return c.BaseURL + "/callback/" + service
}
