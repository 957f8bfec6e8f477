package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/DMarby/photo-editor/internal/cache"
	"github.com/DMarby/photo-editor/internal/cache/memory"
	"github.com/DMarby/photo-editor/internal/cache/redis"
	"github.com/DMarby/photo-editor/internal/cmd"
	"github.com/DMarby/photo-editor/internal/health"
	"github.com/DMarby/photo-editor/internal/image"
	"github.com/DMarby/photo-editor/internal/image/editor"
	"github.com/DMarby/photo-editor/internal/logger"
	"github.com/DMarby/photo-editor/internal/metrics"
	"github.com/DMarby/photo-editor/internal/session"
	"github.com/DMarby/photo-editor/internal/storage"
	fileStorage "github.com/DMarby/photo-editor/internal/storage/file"
	"github.com/DMarby/photo-editor/internal/storage/spaces"
	"github.com/DMarby/photo-editor/internal/tracing"

	api "github.com/DMarby/photo-editor/internal/editorapi"

	"github.com/jamiealquiza/envy"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

// Comandline flags
var (
	// Global
	listen        = flag.String("listen", ":8080", "listen address")
	metricsListen = flag.String("metrics-listen", "127.0.0.1:8082", "metrics listen address")
	loglevel      = zap.LevelFlag("log-level", zap.InfoLevel, "log level (default \"info\") (debug, info, warn, error, dpanic, panic, fatal)")

	// Processing
	workers       = flag.Int("workers", 3, "number of render workers")
	maxUploadSize = flag.Int64("max-upload-size", 32<<20, "maximum size in bytes of an uploaded image")
	maxPixels     = flag.Int64("max-pixels", 25000000, "maximum width*height of an image to decode, -1 for unlimited")

	// Sessions
	sessionTTL  = flag.Duration("session-ttl", 30*time.Minute, "how long an idle session is kept")
	maxSessions = flag.Int("max-sessions", 100, "maximum number of sessions, 0 for unlimited")

	// Storage
	storageBackend = flag.String("storage", "file", "which storage backend to use (file, spaces)")

	// Storage - File
	storageFilePath = flag.String("storage-file-path", "./images", "path to the file storage")

	// Storage - Spaces
	storageSpacesSpace          = flag.String("storage-spaces-space", "", "digitalocean space to use")
	storageSpacesEndpoint       = flag.String("storage-spaces-endpoint", "", "spaces endpoint")
	storageSpacesAccessKey      = flag.String("storage-spaces-access-key", "", "spaces access key")
	storageSpacesSecretKey      = flag.String("storage-spaces-secret-key", "", "spaces secret key")
	storageSpacesPrefix         = flag.String("storage-spaces-prefix", "", "key prefix for images in the space")
	storageSpacesForcePathStyle = flag.Bool("storage-spaces-force-path-style", false, "use path style addressing, for s3 compatible servers")

	// Cache
	cacheBackend = flag.String("cache", "memory", "which cache backend to use (memory, redis)")

	// Cache - Memory
	cacheMemoryMaxBytes = flag.Int64("cache-memory-max-bytes", 256<<20, "maximum size of the memory cache, 0 for unlimited")

	// Cache - Redis
	cacheRedisAddress  = flag.String("cache-redis-address", "redis://127.0.0.1:6379", "redis address, may contain authentication details")
	cacheRedisPoolSize = flag.Int("cache-redis-pool-size", 10, "redis connection pool size")
	cacheRedisTTL      = flag.Duration("cache-redis-ttl", time.Hour, "how long source images are kept in redis, 0 to keep them forever")

	// Healthcheck
	healthCheckObject = flag.String("health-check-object", "health.jpg", "object to request from the storage to check storage health")

	// Tracing
	tracingSampleRatio = flag.Float64("tracing-sample-ratio", 0.1, "fraction of requests to trace")
)

func main() {
	ctx := context.Background()

	// Parse environment variables
	envy.Parse("EDITOR")

	// Parse commandline flags
	flag.Parse()

	// Initialize the logger
	log := logger.New(*loglevel)
	defer log.Sync()

	// Set GOMAXPROCS
	maxprocs.Set(maxprocs.Logger(log.Infof))

	// Set up context for shutting down
	shutdownCtx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	// Initialize tracing
	tracer, err := tracing.New(ctx, log, "photo-editor", *tracingSampleRatio)
	if err != nil {
		log.Fatalf("error initializing tracing: %s", err)
	}
	defer tracer.Shutdown(ctx)

	// Initialize the storage, cache
	storage, cache, err := setupBackends(ctx, tracer)
	if err != nil {
		log.Fatalf("error initializing backends: %s", err)
	}
	defer cache.Shutdown()

	images := image.NewCache(tracer, cache, storage)

	// Initialize the image processor
	imageProcessorCtx, imageProcessorCancel := context.WithCancel(ctx)
	defer imageProcessorCancel()

	imageProcessor := editor.New(imageProcessorCtx, log, tracer, *workers, *maxPixels, images)

	// Initialize the session store and start expiring idle sessions
	sessions := session.NewStore(*sessionTTL, *maxSessions)

	sessionsCtx, sessionsCancel := context.WithCancel(ctx)
	defer sessionsCancel()

	go sessions.Run(sessionsCtx, func(count int) {
		log.Debugf("expired %d idle sessions", count)
	})

	// Initialize and start the health checker
	checkerCtx, checkerCancel := context.WithCancel(ctx)
	defer checkerCancel()

	checker := &health.Checker{
		Ctx:        checkerCtx,
		Storage:    storage,
		ObjectName: *healthCheckObject,
		Cache:      cache,
		Log:        log,
	}
	go checker.Run()

	// Start and listen on http
	api := &api.API{
		ImageProcessor: imageProcessor,
		Sessions:       sessions,
		Images:         images,
		Storage:        storage,
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		HandlerTimeout: cmd.HandlerTimeout,
		MaxUploadSize:  *maxUploadSize,
		MaxPixels:      *maxPixels,
	}
	server := &http.Server{
		Addr:         *listen,
		Handler:      api.Router(),
		ReadTimeout:  cmd.ReadTimeout,
		WriteTimeout: cmd.WriteTimeout,
		ErrorLog:     logger.NewHTTPErrorLog(log),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Infof("shutting down the http server: %s", err)
			shutdown()
		}
	}()

	log.Infof("http server listening on %s", *listen)

	// Start the metrics http server
	go metrics.Serve(shutdownCtx, log, checker, *metricsListen)

	// Wait for shutdown or error
	err = cmd.WaitForInterrupt(shutdownCtx)
	log.Infof("shutting down: %s", err)

	// Shut down http server
	serverCtx, serverCancel := context.WithTimeout(ctx, cmd.WriteTimeout)
	defer serverCancel()
	if err := server.Shutdown(serverCtx); err != nil {
		log.Warnf("error shutting down: %s", err)
	}
}

func setupBackends(ctx context.Context, tracer *tracing.Tracer) (storage storage.Provider, cache cache.Provider, err error) {
	// Storage
	switch *storageBackend {
	case "file":
		storage, err = fileStorage.New(*storageFilePath)
	case "spaces":
		storage, err = spaces.New(*storageSpacesSpace, *storageSpacesEndpoint, *storageSpacesAccessKey, *storageSpacesSecretKey, *storageSpacesPrefix, *storageSpacesForcePathStyle)
	default:
		err = fmt.Errorf("invalid storage backend")
	}

	if err != nil {
		return
	}

	// Cache
	switch *cacheBackend {
	case "memory":
		cache = memory.New(*cacheMemoryMaxBytes)
	case "redis":
		cache, err = redis.New(ctx, tracer, *cacheRedisAddress, *cacheRedisPoolSize, *cacheRedisTTL)
	default:
		err = fmt.Errorf("invalid cache backend")
	}

	return
}
