package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ExploreWilder/MainWebsite/internal/auth"
	"github.com/ExploreWilder/MainWebsite/internal/catalog"
	"github.com/ExploreWilder/MainWebsite/internal/config"
	"github.com/ExploreWilder/MainWebsite/internal/db"
	"github.com/ExploreWilder/MainWebsite/internal/livesync"
	"github.com/ExploreWilder/MainWebsite/internal/storage"
	"github.com/ExploreWilder/MainWebsite/internal/story"
	"github.com/ExploreWilder/MainWebsite/internal/stream"
	"github.com/ExploreWilder/MainWebsite/internal/thumbnail"
	"github.com/ExploreWilder/MainWebsite/internal/tracks"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
	Tracks *tracks.Store
	Auth   *auth.Service
	Log    *slog.Logger
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	app := fiber.New(fiber.Config{BodyLimit: bodyLimit(cfg)})
	app.Use(recover.New())
	app.Use(logger.New())

	// a nil pool must not become a non-nil Querier
	var querier db.Querier
	var indexer tracks.Indexer
	var catalogSvc *catalog.Service
	if pool != nil {
		querier = pool
		catalogSvc = catalog.NewService(pool)
		indexer = catalogSvc
	}

	store, err := tracks.NewStore(tracks.Options{
		Dir:       cfg.TracksDir,
		CacheSize: cfg.TrackCacheSize,
		Renderer: thumbnail.New(
			thumbnail.WithTiles("tiles", cfg.TileURLPattern, "© OpenStreetMap contributors"),
			thumbnail.WithCacheDir(cfg.TileCacheDir),
		),
		Indexer: indexer,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient, log),
		Tracks: store,
		Auth:   auth.NewService(cfg.JWTSecret, querier),
		Log:    log,
	}

	registerRoutes(s, catalogSvc, querier, loadStory(cfg.StoryFile, log))
	return s, nil
}

// Close stops the background work of the server.
func (s *Server) Close() {
	s.Stream.Close()
}

func bodyLimit(cfg config.Config) int {
	// room for the multipart envelope around the GPX file
	const overhead = 64 << 10
	if cfg.UploadMaxBytes <= 0 {
		return fiber.DefaultBodyLimit
	}
	return cfg.UploadMaxBytes + overhead
}

func loadStory(path string, log *slog.Logger) *story.Story {
	if path == "" {
		return nil
	}
	st, err := story.Load(path)
	if err != nil {
		log.Warn("story not loaded", "path", path, "error", err)
		return nil
	}
	return st
}

func registerRoutes(s *Server, catalogSvc *catalog.Service, querier db.Querier, st *story.Story) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	mapGroup := s.App.Group("/map")
	tracks.RegisterRoutes(mapGroup, tracks.NewHandler(s.Tracks, s.Cfg.Framing()))
	if catalogSvc != nil {
		catalog.RegisterRoutes(mapGroup, catalogSvc)
	}

	if querier != nil {
		auth.RegisterRoutes(s.App.Group("/auth"), s.Auth)
		storage.RegisterRoutes(s.App.Group("/admin"), storage.NewService(querier, s.Tracks, s.Cfg.UploadMaxBytes), jwtMiddleware)
	}

	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
	livesync.RegisterRoutes(s.App.Group("/sync"), livesync.NewHandler(s.Tracks, s.Stream, livesync.Options{
		IdleTimeout: s.Cfg.IdleTimeout(),
		Story:       st,
		Logger:      s.Log,
	}))
}
