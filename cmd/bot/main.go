package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nowplaying-bot/internal/botcore"
	"nowplaying-bot/internal/client/deezer"
	"nowplaying-bot/internal/client/songwhip"
	"nowplaying-bot/internal/client/spotify"
	"nowplaying-bot/internal/config"
	"nowplaying-bot/internal/queue"
	"nowplaying-bot/internal/services/music"
	"nowplaying-bot/internal/storage/sqlite"
	"nowplaying-bot/internal/transport/discord"
	"nowplaying-bot/internal/transport/telegram"
	"nowplaying-bot/internal/transport/web"
	"nowplaying-bot/internal/utils"
)

// shareDefaults applies to shares that do not set a flag explicitly.
var shareDefaults = botcore.ShareSongConfig{
	Control:   botcore.Flag(true),
	Anonymous: botcore.Flag(false),
	Loading:   botcore.Flag(true),
	Donate:    botcore.Flag(false),
}

func main() {
	// Load .env when running locally; ignored if file is absent.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() // best-effort flush

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("bot stopped with error", zap.Error(err))
	}
	logger.Info("bot stopped")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	db, err := sqlite.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	accounts := sqlite.NewAccounts(db)
	shares := sqlite.NewShares(db)

	httpClient := &http.Client{Timeout: 20 * time.Second}
	var backends []music.Backend
	if cfg.SpotifyEnabled() {
		backends = append(backends, spotify.NewClient(httpClient, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret,
			cfg.CallbackURL(string(botcore.Spotify)), logger.Named("spotify")))
	}
	if cfg.DeezerEnabled() {
		backends = append(backends, deezer.NewClient(httpClient, cfg.Deezer.AppID, cfg.Deezer.Secret,
			cfg.CallbackURL(string(botcore.Deezer)), logger.Named("deezer")))
	}
	musicService := music.NewService(accounts, cfg.StateSecret, logger.Named("music"), backends...)
	enricher := songwhip.NewClient(httpClient, "", logger.Named("songwhip"))

	q := queue.New(sqlite.NewJobs(db), logger.Named("queue"))
	processor := botcore.NewProcessor(logger.Named("processor"))
	processor.Register(q)

	newService := func(messenger botcore.MessengerType, sender botcore.Sender, messages botcore.Messages, feed bool) (*botcore.Service, error) {
		svc, err := botcore.NewService(botcore.Options{
			Messenger:     messenger,
			Sender:        sender,
			Messages:      messages,
			Music:         musicService,
			Queue:         q,
			Users:         accounts,
			History:       shares,
			Enricher:      enricher,
			ShareDefaults: shareDefaults,
			PostToChat:    feed,
			Logger:        logger.Named("bot"),
		})
		if err != nil {
			return nil, err
		}
		processor.Add(svc)
		return svc, nil
	}

	g, ctx := errgroup.WithContext(ctx)

	telegramTokens := []struct {
		messenger botcore.MessengerType
		token     string
	}{
		{botcore.MessengerTelegram1, cfg.Telegram.Token},
		{botcore.MessengerTelegram2, cfg.Telegram.SecondToken},
	}
	for _, tt := range telegramTokens {
		if tt.token == "" {
			continue
		}
		api, err := telegram.NewAPI(tt.token)
		if err != nil {
			return err
		}
		tgLogger := logger.Named(string(tt.messenger))
		sender := telegram.NewSender(api, cfg.Telegram.FeedChatID, tgLogger)
		svc, err := newService(tt.messenger, sender, telegram.NewMessages(cfg.DonateURL), cfg.Telegram.FeedChatID != 0)
		if err != nil {
			return err
		}
		bot, err := telegram.NewBot(api, api.Self.UserName, svc, tgLogger)
		if err != nil {
			return err
		}
		g.Go(func() error { return bot.Start(ctx) })
	}

	if cfg.Discord.Token != "" {
		session, err := discord.NewSession(cfg.Discord.Token)
		if err != nil {
			return err
		}
		dcLogger := logger.Named("discord")
		sender := discord.NewSender(session, cfg.Discord.FeedChannelID, dcLogger)
		svc, err := newService(botcore.MessengerDiscord, sender, discord.NewMessages(cfg.DonateURL), cfg.Discord.FeedChannelID != "")
		if err != nil {
			return err
		}
		bot, err := discord.NewBot(session, sender, svc, dcLogger)
		if err != nil {
			return err
		}
		g.Go(func() error { return bot.Start(ctx) })
	}

	g.Go(func() error { return q.Run(ctx) })

	server, err := web.NewServer(web.Options{
		Addr:       cfg.HTTPAddr,
		Tokens:     musicService,
		Shares:     shares,
		Collectors: q.Collectors(),
		Logger:     logger.Named("web"),
	})
	if err != nil {
		return err
	}
	g.Go(func() error { return server.Start(ctx) })

	logger.Info("bot is starting", zap.Strings("services", servicesOf(musicService)))
	return g.Wait()
}

func servicesOf(s *music.Service) []string {
	var out []string
	for _, t := range s.Services() {
		out = append(out, string(t))
	}
	return out
}
