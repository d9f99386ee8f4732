package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"renamer/server/common/infra/cache"
	"renamer/server/common/infra/db"
	"renamer/server/common/infra/mq"
	commonlog "renamer/server/common/log"
	"renamer/server/records/repository"
	"renamer/server/renamebot/api"
	"renamer/server/renamebot/bot"
	"renamer/server/renamebot/service"
)

const memorySessionCap = 64

type Server struct {
	HTTPServer *http.Server
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Publisher  *mq.Publisher
	BotAPI     *tgbotapi.BotAPI
	Bot        *bot.Bot

	pollTimeout int
}

func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := &Server{pollTimeout: cfg.PollTimeout}
	ok := false
	defer func() {
		if !ok {
			s.closeResources()
		}
	}()

	if err := repository.Migrate(cfg.PostgresDSN); err != nil {
		return nil, fmt.Errorf("migrate postgres: %w", err)
	}
	pool, err := db.NewPool(ctx, cfg.PostgresDSN, int32(cfg.PostgresMaxConns))
	if err != nil {
		return nil, fmt.Errorf("initialize postgres: %w", err)
	}
	s.DB = pool
	pgStore := repository.NewPostgresStore(pool)
	checks := map[string]api.ReadyCheck{"postgres": pgStore.Ping}

	var store repository.Store = pgStore
	var sessions bot.SessionStore
	if cfg.UseRedis {
		s.Redis = cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := cache.Ping(ctx, s.Redis); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		store = repository.NewCachedStore(pgStore, s.Redis, cfg.RecordCacheTTL)
		sessions = bot.NewRedisSessionStore(s.Redis)
		checks["redis"] = func(ctx context.Context) error { return cache.Ping(ctx, s.Redis) }
	} else {
		sessions = bot.NewMemorySessionStore(memorySessionCap, cfg.SessionTTL)
	}

	var events service.EventPublisher
	if cfg.UseMQ {
		conn, err := mq.NewConnection(cfg.LavinMQURL)
		if err != nil {
			return nil, fmt.Errorf("initialize lavinmq: %w", err)
		}
		s.Publisher, err = mq.NewPublisher(conn)
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("initialize amqp publisher: %w", err)
		}
		events = s.Publisher
	}

	s.BotAPI, err = tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("initialize bot api: %w", err)
	}
	s.BotAPI.Debug = cfg.Debug
	commonlog.Infof("authorized as @%s", s.BotAPI.Self.UserName)

	renamer := service.NewRenameService(s.BotAPI, store, events, cfg.BinChannel, cfg.PublicURL)
	s.Bot = bot.New(s.BotAPI, cfg.OwnerID, sessions, renamer, cfg.SessionTTL)

	h := api.NewHandler(checks, cfg.MetricsToken)
	r := gin.Default()
	h.RegisterRoutes(r)

	s.HTTPServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	ok = true
	return s, nil
}

// RunBot long-polls updates until ctx is done, then waits for in-flight
// handlers.
func (s *Server) RunBot(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = s.pollTimeout
	updates := s.BotAPI.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		s.BotAPI.StopReceivingUpdates()
	}()
	s.Bot.Run(ctx, updates)
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.HTTPServer.Shutdown(ctx)
	s.closeResources()
	return err
}

func (s *Server) closeResources() {
	s.Publisher.Close()
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
