package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Tnhann/GoatDevelopers/internal/api"
	"github.com/Tnhann/GoatDevelopers/internal/auth"
	"github.com/Tnhann/GoatDevelopers/internal/event"
	"github.com/Tnhann/GoatDevelopers/internal/quiz"
	"github.com/Tnhann/GoatDevelopers/internal/stats"
	"github.com/Tnhann/GoatDevelopers/internal/telemetry"
	"github.com/Tnhann/GoatDevelopers/internal/wordlist"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	Redis struct {
		Notify struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Vocab struct {
			Addr string
			User string
			Pass string
			Name string
		}

		Stats struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	Auth struct {
		JWTSecret     string
		TokenTTLHours int
	}

	Quiz struct {
		QuestionSeconds int
		RevealSeconds   int
	}

	Migrations struct {
		Path string
	}
}

type Server struct {
	c Config

	eb *event.Bus

	infra struct {
		redis struct {
			notify redis.UniversalClient
		}

		postgres struct {
			vocab *pgxpool.Pool
			stats *pgxpool.Pool
		}
	}

	service struct {
		auth  *auth.Service
		lists *wordlist.Service
		quiz  *quiz.Service
		stats *stats.Service
	}

	http *http.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	s.eb = event.NewBus()

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("server: migrate: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := s.initPostgres(); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}

	return nil
}

func (s *Server) initRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    s.c.Redis.Notify.Addrs,
		Password: s.c.Redis.Notify.Pass,
	})

	if err := telemetry.MonitorRedis(r); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	if err := r.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}

	s.infra.redis.notify = r
	return nil
}

func (s *Server) initPostgres() (err error) {
	connect := func(addr, user, pass, name string) (*pgxpool.Pool, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", user, pass, addr, name))
		if err != nil {
			return nil, err
		}

		db, err := pgxpool.NewWithConfig(ctx, cc)
		if err != nil {
			return nil, err
		}

		if err := db.Ping(ctx); err != nil {
			return nil, err
		}

		return db, nil
	}

	s.infra.postgres.vocab, err = connect(s.c.Postgres.Vocab.Addr, s.c.Postgres.Vocab.User, s.c.Postgres.Vocab.Pass, s.c.Postgres.Vocab.Name)
	if err != nil {
		return fmt.Errorf("postgres: vocab: %w", err)
	}

	s.infra.postgres.stats, err = connect(s.c.Postgres.Stats.Addr, s.c.Postgres.Stats.User, s.c.Postgres.Stats.Pass, s.c.Postgres.Stats.Name)
	if err != nil {
		return fmt.Errorf("postgres: stats: %w", err)
	}

	return nil
}

// migrate brings both databases up to the latest schema before any service
// touches them.
func (s *Server) migrate() error {
	path := s.c.Migrations.Path
	if path == "" {
		path = "migrations"
	}

	run := func(dir, addr, user, pass, name string) error {
		db, err := sql.Open("postgres", fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, pass, addr, name))
		if err != nil {
			return err
		}
		defer db.Close()

		driver, err := migratepg.WithInstance(db, &migratepg.Config{})
		if err != nil {
			return err
		}

		m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s/%s", path, dir), "postgres", driver)
		if err != nil {
			return err
		}

		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}

		return nil
	}

	if err := run("vocab", s.c.Postgres.Vocab.Addr, s.c.Postgres.Vocab.User, s.c.Postgres.Vocab.Pass, s.c.Postgres.Vocab.Name); err != nil {
		return fmt.Errorf("vocab: %w", err)
	}

	if err := run("stats", s.c.Postgres.Stats.Addr, s.c.Postgres.Stats.User, s.c.Postgres.Stats.Pass, s.c.Postgres.Stats.Name); err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	return nil
}

func (s *Server) initService() {
	s.service.auth = auth.NewService(auth.Config{
		Store:     auth.NewPostgresStore(s.infra.postgres.vocab),
		SignToken: auth.NewHS256Signer([]byte(s.c.Auth.JWTSecret)),
		TokenTTL:  time.Duration(s.c.Auth.TokenTTLHours) * time.Hour,
	})

	s.service.lists = wordlist.NewService(wordlist.Config{
		DB:       s.infra.postgres.vocab,
		EventBus: s.eb,
	})

	s.service.quiz = quiz.NewService(quiz.Config{
		Words:         s.service.lists,
		EventBus:      s.eb,
		QuestionUnits: s.c.Quiz.QuestionSeconds,
		TickInterval:  time.Second,
		RevealDelay:   time.Duration(s.c.Quiz.RevealSeconds) * time.Second,
	})

	s.service.stats = stats.NewService(stats.Config{
		DB:       s.infra.postgres.stats,
		EventBus: s.eb,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())
	e.Use(telemetry.RequestLogger())

	e.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.New(api.Config{
		Router:   e,
		EventBus: s.eb,

		Auth:  s.service.auth,
		Lists: s.service.lists,
		Quiz:  s.service.quiz,
		Stats: s.service.stats,

		Redis:        s.infra.redis.notify,
		NotifyPrefix: s.c.Redis.Notify.Prefix,
		JWTSecret:    []byte(s.c.Auth.JWTSecret),
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

func (s *Server) Start() {
	ctx := context.Background()

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	s.infra.postgres.vocab.Close()
	s.infra.postgres.stats.Close()
	if err := s.infra.redis.notify.Close(); err != nil {
		slog.ErrorContext(ctx, "server: close redis failed", "error", err)
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}
