package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"codearena/internal/assistant"
	assistantController "codearena/internal/assistant/controller"
	"codearena/internal/challenge/catalog"
	challengeController "codearena/internal/challenge/controller"
	challengeRepo "codearena/internal/challenge/repository"
	codeController "codearena/internal/codestore/controller"
	codeService "codearena/internal/codestore/service"
	"codearena/internal/common/auth"
	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	commonmw "codearena/internal/common/http/middleware"
	"codearena/internal/common/mq"
	"codearena/internal/common/ratelimit"
	"codearena/internal/common/storage"
	judgeController "codearena/internal/judge/controller"
	judgeRepo "codearena/internal/judge/repository"
	"codearena/internal/judge/sandbox"
	judgeService "codearena/internal/judge/service"
	"codearena/internal/remote"
	remoteController "codearena/internal/remote/controller"
	"codearena/pkg/utils/logger"
	"codearena/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/judge_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "judge service stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx := context.Background()

	// Redis backs challenge caching, token revocation and rate limiting.
	// Each of those degrades gracefully when it is absent.
	var redisCache cache.Cache
	if appCfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			return fmt.Errorf("init redis failed: %w", err)
		}
		defer func() {
			_ = rc.Close()
		}()
		redisCache = rc
	}

	challenges, closeChallenges, err := buildChallengeStore(appCfg, redisCache)
	if err != nil {
		return err
	}
	defer closeChallenges()

	var publisher judgeRepo.ReportPublisher
	if appCfg.Kafka.Enabled {
		producer, err := mq.NewKafkaProducer(appCfg.Kafka.toMQConfig())
		if err != nil {
			return fmt.Errorf("init kafka failed: %w", err)
		}
		defer func() {
			_ = producer.Close()
		}()
		publisher = judgeRepo.NewMQReportPublisher(producer, appCfg.Kafka.ReportTopic)
	}

	judgeSvc, err := judgeService.NewService(judgeService.Config{
		Runner:            sandbox.New(appCfg.Sandbox),
		Loader:            sandbox.Loader{MaxSourceBytes: appCfg.Judge.MaxSourceBytes},
		Challenges:        challenges,
		Publisher:         publisher,
		PoolSize:          appCfg.Judge.PoolSize,
		QueueWait:         appCfg.Judge.QueueWait,
		TestTimeout:       appCfg.Judge.TestTimeout,
		SubmissionTimeout: appCfg.Judge.SubmissionTimeout,
		PublishTimeout:    appCfg.Kafka.PublishTimeout,
	})
	if err != nil {
		return fmt.Errorf("init judge service failed: %w", err)
	}

	remoteClient := remote.NewClient(appCfg.Remote, nil)
	if !remoteClient.Configured() {
		logger.Warn(ctx, "JUDGE0_API_KEY is not set; compile endpoints will return configuration errors")
	}

	assistantClient := assistant.NewClient(appCfg.Assistant, nil)

	objectStorage, err := buildObjectStorage(ctx, appCfg)
	if err != nil {
		return err
	}
	codeStore, err := codeService.NewService(objectStorage, appCfg.CodeStore.Config)
	if err != nil {
		return fmt.Errorf("init code store failed: %w", err)
	}
	defer codeStore.Close()

	var verifier commonmw.TokenVerifier
	if appCfg.Auth.Mode != commonmw.AuthOff {
		verifier = auth.NewVerifier(appCfg.Auth.Config, redisCache)
	}
	var limiter commonmw.Limiter
	if redisCache != nil {
		limiter = ratelimit.NewLimiter(redisCache, appCfg.RateLimit.Submit.Window, appCfg.RateLimit.RedisTimeout)
	} else {
		logger.Warn(ctx, "redis is not configured; rate limiting is disabled")
	}

	router := buildRouter(routerDeps{
		cfg:            appCfg,
		challenges:     challenges,
		judge:          judgeSvc,
		remote:         remoteClient,
		assistant:      assistantClient,
		codeStore:      codeStore,
		verifier:       verifier,
		limiter:        limiter,
		maxSourceBytes: appCfg.Judge.MaxSourceBytes,
	})
	httpServer := &http.Server{
		Addr:         appCfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  appCfg.Server.ReadTimeout,
		WriteTimeout: appCfg.Server.WriteTimeout,
		IdleTimeout:  appCfg.Server.IdleTimeout,
	}
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "judge http server started",
			zap.String("addr", appCfg.Server.Addr),
			zap.String("challenge_source", appCfg.Challenge.Source),
			zap.String("code_store", appCfg.CodeStore.Backend),
			zap.Bool("kafka", appCfg.Kafka.Enabled),
		)
		errCh <- httpServer.Serve(listener)
	}()

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	timeoutCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	return nil
}

func buildChallengeStore(appCfg *AppConfig, redisCache cache.Cache) (challengeRepo.ChallengeRepository, func(), error) {
	noop := func() {}
	if appCfg.Challenge.Source == "mysql" {
		mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
		if err != nil {
			return nil, noop, fmt.Errorf("init database failed: %w", err)
		}
		var cacheOps cache.BasicOps
		if redisCache != nil {
			cacheOps = redisCache
		}
		repo := challengeRepo.NewMySQLChallengeRepository(mysqlDB, cacheOps, appCfg.Challenge.CacheTTL, appCfg.Challenge.EmptyTTL)
		return repo, func() { _ = mysqlDB.Close() }, nil
	}

	var (
		c   *catalog.Catalog
		err error
	)
	if appCfg.Challenge.CatalogPath != "" {
		c, err = catalog.LoadFile(appCfg.Challenge.CatalogPath)
	} else {
		c, err = catalog.Default()
	}
	if err != nil {
		return nil, noop, fmt.Errorf("load challenge catalog failed: %w", err)
	}
	logger.Info(context.Background(), "challenge catalog loaded", zap.Int("challenges", c.Len()))
	return c, noop, nil
}

func buildObjectStorage(ctx context.Context, appCfg *AppConfig) (storage.ObjectStorage, error) {
	if appCfg.CodeStore.Backend == "minio" {
		minioStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("init minio failed: %w", err)
		}
		if err := minioStorage.EnsureBucket(ctx, appCfg.CodeStore.Bucket); err != nil {
			return nil, fmt.Errorf("ensure code bucket failed: %w", err)
		}
		return minioStorage, nil
	}
	local, err := storage.NewLocalStorage(appCfg.CodeStore.LocalRoot)
	if err != nil {
		return nil, fmt.Errorf("init local storage failed: %w", err)
	}
	return local, nil
}

type routerDeps struct {
	cfg            *AppConfig
	challenges     challengeRepo.ChallengeRepository
	judge          judgeController.Submitter
	remote         remoteController.Executor
	assistant      assistantController.Assistant
	codeStore      codeController.CodeStore
	verifier       commonmw.TokenVerifier
	limiter        commonmw.Limiter
	maxSourceBytes int
}

func buildRouter(deps routerDeps) *gin.Engine {
	router := gin.New()
	router.Use(commonmw.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.RequestLogger())
	router.Use(commonmw.CORSMiddleware(deps.cfg.CORS))
	router.Use(commonmw.BodyLimit(deps.cfg.Server.MaxBodyBytes))

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(commonmw.AuthMiddleware(deps.verifier, deps.cfg.Auth.Mode))

	challenges := challengeController.NewChallengeController(deps.challenges)
	api.GET("/challenges", challenges.List)
	api.GET("/challenges/:id", challenges.Get)

	judge := judgeController.NewJudgeController(deps.judge, deps.maxSourceBytes)
	api.POST("/judge/submissions",
		commonmw.BodyLimit(submissionBodyLimit(deps.maxSourceBytes)),
		commonmw.RateLimitMiddleware(deps.limiter, "judge_submit", deps.cfg.RateLimit.Submit),
		judge.Submit,
	)

	compile := remoteController.NewCompileController(deps.remote)
	api.POST("/compile",
		commonmw.RateLimitMiddleware(deps.limiter, "compile", deps.cfg.RateLimit.Compile),
		compile.Compile,
	)
	api.GET("/compile/languages", compile.Languages)

	code := codeController.NewCodeController(deps.codeStore)
	api.POST("/code/save", code.Save)
	api.GET("/code/load/:filename", code.Load)

	gpt := assistantController.NewAssistantController(deps.assistant)
	api.POST("/assistant/gpt",
		commonmw.RateLimitMiddleware(deps.limiter, "assistant", deps.cfg.RateLimit.Assistant),
		gpt.Ask,
	)

	return router
}

// submissionBodyLimit leaves room for the JSON escaping of a source at the
// size cap, where each byte may expand to a six byte \u escape.
func submissionBodyLimit(maxSourceBytes int) int64 {
	if maxSourceBytes <= 0 {
		return 0
	}
	return int64(maxSourceBytes)*6 + 4<<10
}
