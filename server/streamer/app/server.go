package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"renamer/server/common/infra/cache"
	"renamer/server/common/infra/db"
	"renamer/server/common/infra/mq"
	"renamer/server/common/infra/object"
	commonlog "renamer/server/common/log"
	"renamer/server/records/repository"
	"renamer/server/streamer/api"
	"renamer/server/streamer/relay"
	"renamer/server/streamer/source"
	objectsource "renamer/server/streamer/source/object"
	"renamer/server/streamer/source/telegram"
)

type Server struct {
	HTTPServer *http.Server
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Publisher  *mq.Publisher
	Telegram   *telegram.Client
	Sessions   *telegram.Storage

	binChannel int64
	source     source.Source
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := &Server{binChannel: cfg.BinChannel}
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

	var store repository.Store = pgStore
	if cfg.UseRedis {
		s.Redis = cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := cache.Ping(ctx, s.Redis); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		store = repository.NewCachedStore(pgStore, s.Redis, cfg.RecordCacheTTL)
	}

	handles := source.NewHandleCache(cfg.HandleCacheSize, cfg.HandleCacheTTL)
	checks := map[string]api.ReadyCheck{"postgres": pgStore.Ping}

	switch cfg.Source {
	case SourceTelegram:
		if cfg.APIID == 0 || cfg.APIHash == "" || cfg.BotToken == "" {
			return nil, errors.New("API_ID, API_HASH and BOT_TOKEN are required for the telegram source")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.SessionPath), 0o700); err != nil {
			return nil, fmt.Errorf("create session dir: %w", err)
		}
		s.Sessions, err = telegram.OpenStorage(cfg.SessionPath)
		if err != nil {
			return nil, fmt.Errorf("initialize session storage: %w", err)
		}
		s.Telegram = telegram.NewClient(cfg.APIID, cfg.APIHash, cfg.BotToken, s.Sessions)
		s.source = telegram.NewSource(s.Telegram, s.Sessions, handles)
		checks["telegram"] = func(context.Context) error {
			if !s.Telegram.Ready() {
				return errors.New("connecting")
			}
			return nil
		}
	case SourceObject:
		minioClient, err := object.NewClient(object.Options{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Region:    cfg.MinioRegion,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize minio: %w", err)
		}
		if err := object.EnsureBucket(ctx, minioClient, cfg.MinioBucket, cfg.MinioRegion, cfg.MinioCreateBucket); err != nil {
			return nil, fmt.Errorf("ensure minio bucket: %w", err)
		}
		s.source = objectsource.NewSource(minioClient, cfg.MinioBucket, cfg.ChunkSize, handles)
		checks["minio"] = func(ctx context.Context) error {
			_, err := minioClient.BucketExists(ctx, cfg.MinioBucket)
			return err
		}
	default:
		return nil, fmt.Errorf("unknown STREAMER_SOURCE %q", cfg.Source)
	}

	var events relay.EventPublisher
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

	h := api.NewHandler(relay.New(store, s.source, events), checks).WithMetricsToken(cfg.MetricsToken)
	r := gin.Default()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}
	h.RegisterRoutes(r)

	// no WriteTimeout: downloads run as long as the client keeps reading
	s.HTTPServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	ok = true
	return s, nil
}

// RunSource keeps the MTProto connection alive and verifies the bin channel
// once connected. It returns immediately for the object source.
func (s *Server) RunSource(ctx context.Context) error {
	if s.Telegram == nil {
		return nil
	}
	go func() {
		if err := s.Telegram.WaitReady(ctx); err != nil {
			return
		}
		if s.binChannel == 0 {
			commonlog.Warnf("BIN_CHANNEL not set; skipping channel check")
			return
		}
		if err := s.source.Refresh(ctx, s.binChannel); err != nil {
			commonlog.Warnf("bin channel check failed (is the bot an admin?): %v", err)
			return
		}
		commonlog.Infof("bin channel %d connected", s.binChannel)
	}()
	return s.Telegram.Run(ctx)
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
	if s.Sessions != nil {
		_ = s.Sessions.Close()
	}
}
