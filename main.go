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

	"github.com/Shubhojit-Official/Mailto/internal/ai"
	"github.com/Shubhojit-Official/Mailto/internal/config"
	"github.com/Shubhojit-Official/Mailto/internal/gmail"
	"github.com/Shubhojit-Official/Mailto/internal/handler"
	"github.com/Shubhojit-Official/Mailto/internal/lock"
	"github.com/Shubhojit-Official/Mailto/internal/logger"
	"github.com/Shubhojit-Official/Mailto/internal/profile"
	"github.com/Shubhojit-Official/Mailto/internal/repository"
	"github.com/Shubhojit-Official/Mailto/internal/repository/memory"
	"github.com/Shubhojit-Official/Mailto/internal/repository/mongodb"
	"github.com/Shubhojit-Official/Mailto/internal/repository/postgres"
	"github.com/Shubhojit-Official/Mailto/internal/router"
	"github.com/Shubhojit-Official/Mailto/internal/service"
	"github.com/Shubhojit-Official/Mailto/internal/sse"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type repositories struct {
	users      repository.UserRepository
	workspaces repository.WorkspaceRepository
	contexts   repository.SenderContextRepository
	recipients repository.RecipientRepository
	emails     repository.EmailRepository
	close      func()
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal("Config validation failed:", err)
	}

	appLogger := logger.NewWithLevel(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg, appLogger)
	if err != nil {
		log.Fatal("Failed to initialize storage:", err)
	}
	defer repos.close()

	locker, closeLocker, err := openLocker(ctx, cfg, appLogger)
	if err != nil {
		log.Fatal("Failed to initialize locks:", err)
	}
	defer closeLocker()

	aiLogger := appLogger.With("component", "ai")
	aiClient, err := ai.NewClient(ai.Config{
		Provider: cfg.AIProvider,
		APIKey:   cfg.AIKey,
		Model:    cfg.AIModel,
		Timeout:  cfg.AITimeout,
	}, aiLogger)
	if err != nil {
		log.Fatal("Failed to initialize AI client:", err)
	}
	aiLogger.Infof("Using %s model %s", aiClient.Provider(), aiClient.Model())

	profileClient := profile.NewTwitterClient(profile.Config{
		APIKey:  cfg.RapidAPIKey,
		Host:    cfg.RapidAPIHost,
		Timeout: cfg.ProfileTimeout,
	}, appLogger.With("component", "profile"))

	mailTransport := gmail.NewTransport(gmail.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Timeout:      cfg.MailTimeout,
	}, appLogger.With("component", "mail"))

	// Initialize SSE manager for real-time email updates
	sseManager := sse.NewSSEManager(appLogger)
	defer sseManager.Close()

	// Initialize services
	authService := service.NewAuthService(repos.users, cfg.JWTSecret, cfg.JWTTTL, appLogger)
	workspaceService := service.NewWorkspaceService(repos.workspaces, appLogger)
	recipientService := service.NewRecipientService(
		repos.recipients,
		repos.workspaces,
		profileClient,
		service.NewPersonalitySummarizer(aiClient, appLogger),
		cfg.PostCount,
		appLogger,
	)
	contextService := service.NewContextService(
		repos.contexts,
		repos.workspaces,
		service.NewContextSummarizer(aiClient, appLogger),
		appLogger,
	)
	emailService := service.NewEmailService(
		repos.emails,
		repos.recipients,
		repos.contexts,
		repos.workspaces,
		repos.users,
		service.NewDraftGenerator(aiClient, appLogger),
		mailTransport,
		locker,
		sseManager,
		appLogger,
	)

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "token"},
	}))

	router.SetupRoutes(e, router.Handlers{
		Auth:      handler.NewAuthHandler(authService, cfg, e.Logger),
		Workspace: handler.NewWorkspaceHandler(workspaceService, e.Logger),
		Recipient: handler.NewRecipientHandler(recipientService, e.Logger),
		Context:   handler.NewContextHandler(contextService, e.Logger),
		Email:     handler.NewEmailHandler(emailService, sseManager, e.Logger),
	}, authService)

	go func() {
		appLogger.Info("Starting server on port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Failed to start server:", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	// Open event streams end here so Shutdown does not wait on them.
	sseManager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server shutdown failed:", err)
	}
}

// openRepositories picks PostgreSQL when DATABASE_URL is set, MongoDB when
// MONGO_URL is set, and memory otherwise.
func openRepositories(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (*repositories, error) {
	switch {
	case cfg.DatabaseURL != "":
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.InitializeDatabase(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		appLogger.Info("Using PostgreSQL repositories")
		return &repositories{
			users:      postgres.NewPostgresUserRepository(db),
			workspaces: postgres.NewPostgresWorkspaceRepository(db),
			contexts:   postgres.NewPostgresSenderContextRepository(db),
			recipients: postgres.NewPostgresRecipientRepository(db),
			emails:     postgres.NewPostgresEmailRepository(db),
			close:      func() { db.Close() },
		}, nil

	case cfg.MongoURL != "":
		client, err := mongodb.NewClient(ctx, cfg.MongoURL)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		appLogger.Info("Using MongoDB repositories")
		return &repositories{
			users:      mongodb.NewUserRepository(db),
			workspaces: mongodb.NewWorkspaceRepository(db),
			contexts:   mongodb.NewSenderContextRepository(db),
			recipients: mongodb.NewRecipientRepository(db),
			emails:     mongodb.NewEmailRepository(db),
			close:      func() { _ = client.Disconnect(context.Background()) },
		}, nil
	}

	appLogger.Info("Using in-memory repositories")
	return &repositories{
		users:      memory.NewInMemoryUserRepository(),
		workspaces: memory.NewInMemoryWorkspaceRepository(),
		contexts:   memory.NewInMemorySenderContextRepository(),
		recipients: memory.NewInMemoryRecipientRepository(),
		emails:     memory.NewInMemoryEmailRepository(),
		close:      func() {},
	}, nil
}

// openLocker shares the per-recipient locks through Redis when REDIS_URL
// is set, so several instances see each other's work.
func openLocker(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (lock.Locker, func(), error) {
	if cfg.RedisURL == "" {
		return lock.NewMemoryLocker(), func() {}, nil
	}
	rdb, err := lock.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	appLogger.Info("Using Redis locks")
	// Locks outlive the slowest upstream call by a margin.
	ttl := cfg.AITimeout + cfg.MailTimeout + time.Minute
	return lock.NewRedisLocker(rdb, "mailto:lock:", ttl), func() { _ = rdb.Close() }, nil
}
