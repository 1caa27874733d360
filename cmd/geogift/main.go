package main

import (
	"context"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/go-redsync/redsync/v4"
	redsyncgoredis "github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/geogift/geogift/adapters/events"
	"github.com/geogift/geogift/adapters/locker"
	"github.com/geogift/geogift/adapters/mailer"
	"github.com/geogift/geogift/adapters/notifier"
	"github.com/geogift/geogift/adapters/postgres"
	"github.com/geogift/geogift/adapters/store"
	"github.com/geogift/geogift/adapters/tokenizer"
	"github.com/geogift/geogift/config"
	"github.com/geogift/geogift/service"
	transport "github.com/geogift/geogift/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("config")
	}

	log := newLogger(cfg)

	signKey, err := cfg.SigningKey()
	if err != nil {
		log.Fatal().Err(err).Msg("signing key")
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("redis url")
	}
	redisClient := redis.NewClient(opts)

	db := postgres.Connect(cfg.PostgresDSN)
	if err := postgres.CreateTables(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("create tables")
	}

	wmLogger := watermill.NewStdLogger(false, false)
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("event publisher")
	}
	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        redisClient,
		ConsumerGroup: "geogift-notifier",
	}, wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("event subscriber")
	}

	mail, err := mailer.New(cfg.Mail, log)
	if err != nil {
		log.Fatal().Err(err).Msg("mailer")
	}

	rs := redsync.New(redsyncgoredis.NewPool(redisClient))

	nonceStore := store.NewRedisStore(redisClient)
	tok := tokenizer.NewJWTTokenizer(signKey)
	eventPub := events.NewWatermillPublisher(publisher)
	chainLocker := locker.NewRedsyncLocker(rs)

	userRepo := postgres.NewUserRepo(db)
	giftRepo := postgres.NewGiftRepo(db)
	chainRepo := postgres.NewChainRepo(db)
	claimRepo := postgres.NewClaimRepo(db)

	svc := transport.Services{
		Auth:   service.NewAuthService(nonceStore, tok, userRepo, log),
		Users:  service.NewUserService(userRepo, log),
		Gifts:  service.NewGiftService(giftRepo, userRepo, eventPub, log),
		Chains: service.NewChainService(chainRepo, claimRepo, userRepo, chainLocker, eventPub, log),
	}

	notifierRouter, err := notifier.New(mail, log).Router(subscriber, wmLogger)
	if err != nil {
		log.Fatal().Err(err).Msg("notifier")
	}
	go func() {
		if err := notifierRouter.Run(context.Background()); err != nil {
			log.Error().Err(err).Msg("notifier stopped")
		}
	}()

	checks := map[string]transport.HealthCheck{
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		"postgres": func(ctx context.Context) error { return db.PingContext(ctx) },
	}

	router := transport.SetupRouter(svc, checks, log)
	log.Info().Str("addr", cfg.ListenAddr).Msg("listening")
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	log := zerolog.New(os.Stderr)
	if cfg.LogPretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log.Level(level).With().Timestamp().Logger()
}
