package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"

	"github.com/tendant/simple-registration/pkg/actioncode"
	"github.com/tendant/simple-registration/pkg/authbroker"
	"github.com/tendant/simple-registration/pkg/cachestore"
	"github.com/tendant/simple-registration/pkg/config"
	"github.com/tendant/simple-registration/pkg/directory"
	"github.com/tendant/simple-registration/pkg/notice"
	"github.com/tendant/simple-registration/pkg/ratelimit"
	"github.com/tendant/simple-registration/pkg/registration"
	"github.com/tendant/simple-registration/pkg/registration/api"
	"github.com/tendant/simple-registration/pkg/replay"
)

// Cache key namespaces, one per flow. The email-change prefix extends the
// confirmation prefix so both flows share the throttle namespace layout.
const (
	confirmationPrefix  = "EMAIL_CONFIRMATION"
	passwordResetPrefix = "PASSWORD_RESET"
	emailChangePrefix   = "EMAIL_CONFIRMATIONNEW_EMAIL"
)

type Config struct {
	AppConfig    app.AppConfig
	RedisConfig  config.RedisConfig
	BrokerConfig config.BrokerConfig
	UsersAPI     config.UsersAPIConfig
	EmailConfig  config.EmailConfig
	CodesConfig  config.CodesConfig
	BasePath     string `env:"API_BASE_PATH" env-default:"/api/registration"`
	ClientOrigin string `env:"CLIENT_ORIGIN" env-default:"http://localhost:3000"`
}

func main() {
	loadEnv()

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	// Redis backs the replay cache; fail fast if it is unreachable.
	redisClient := redis.NewClient(cfg.RedisConfig.Options())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("Failed connecting to redis", "err", err, "addr", cfg.RedisConfig.Addr())
		os.Exit(-1)
	}

	conn, err := amqp.Dial(cfg.BrokerConfig.URL)
	if err != nil {
		slog.Error("Failed connecting to message broker", "err", err)
		os.Exit(-1)
	}
	defer conn.Close()

	tokens, err := authbroker.New(conn, cfg.BrokerConfig.RequestQueue)
	if err != nil {
		slog.Error("Failed setting up auth token messenger", "err", err)
		os.Exit(-1)
	}
	defer tokens.Close()

	notificationManager, err := notice.NewNotificationManager(
		notice.WithSMTP(cfg.EmailConfig.ToSMTPConfig()),
		notice.WithDefaultTemplates(),
	)
	if err != nil {
		slog.Error("Failed setting up notification manager", "err", err)
		os.Exit(-1)
	}

	users := directory.NewClient(cfg.UsersAPI.BaseURL, tokens)

	registrationService := registration.NewService(
		registration.WithDirectory(users),
		registration.WithSender(notificationManager),
		registration.WithClientOrigin(cfg.ClientOrigin),
		registration.WithConfirmation(
			actioncode.NewCodec(actioncode.KindConfirmation, cfg.CodesConfig.ConfirmationSecret,
				actioncode.WithTTL(cfg.CodesConfig.ConfirmationTTL)),
			replay.New(cachestore.New(redisClient, confirmationPrefix)),
		),
		registration.WithPasswordReset(
			actioncode.NewCodec(actioncode.KindPasswordReset, cfg.CodesConfig.PasswordResetSecret,
				actioncode.WithTTL(cfg.CodesConfig.PasswordResetTTL)),
			replay.New(cachestore.New(redisClient, passwordResetPrefix)),
		),
		registration.WithEmailChange(
			actioncode.NewCodec(actioncode.KindEmailChange, cfg.CodesConfig.EmailChangeSecret,
				actioncode.WithTTL(cfg.CodesConfig.EmailChangeTTL)),
			replay.New(cachestore.New(redisClient, emailChangePrefix)),
		),
	)

	rateLimiter := ratelimit.NewMiddleware(
		config.NewRateLimitConfigFromEnv().ToMiddlewareConfig(cfg.BasePath),
	)
	server.R.Use(rateLimiter.Handler)

	handler := api.NewHandler(registrationService)
	server.R.Route(cfg.BasePath, func(r chi.Router) {
		handler.Routes(r)
	})

	slog.Info("Registration gateway ready", "base_path", cfg.BasePath)
	server.Run()
}

// loadEnv loads a .env file when one exists next to the binary. Real
// environment variables still win.
func loadEnv() {
	envFile := config.GetEnvOrDefault("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found (using environment variables or defaults)")
		return
	}

	slog.Info("Loading configuration from .env file", "path", envFile)
	if err := godotenv.Load(envFile); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}
}
