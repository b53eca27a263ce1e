package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"tasktracker/configs"
	"tasktracker/internal/models"
	"tasktracker/internal/notify"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
	"tasktracker/internal/websocket"
	"tasktracker/pkg/database"
	"tasktracker/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Dependencies is the object graph shared by routes and the realtime channel.
type Dependencies struct {
	Config   configs.Config
	Validate *validator.Validate
	Accounts *repository.AccountStore
	Board    *repository.TaskBoard
	Sessions *service.SessionIssuer
	Auth     *service.AuthService
	Hub      *websocket.Hub
	Syncer   *websocket.Syncer
	Redis    *redis.Client
}

// NewValidator returns a validator that knows the task enum rules.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
		return models.TaskStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("task_priority", func(fl validator.FieldLevel) bool {
		return models.TaskPriority(fl.Field().String()).Valid()
	})
	return v
}

// Build wires every component from cfg. The caller owns Close.
func Build(ctx context.Context, cfg configs.Config) (*Dependencies, error) {
	mode, err := websocket.ParseMode(cfg.SyncMode)
	if err != nil {
		return nil, err
	}

	accounts := repository.NewAccountStore(repository.FilePersister{Path: filepath.Join(cfg.DataDir, "users.json")})
	if err := accounts.Load(); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}

	deps := &Dependencies{
		Config:   cfg,
		Validate: NewValidator(),
		Accounts: accounts,
	}

	var otpStore repository.OTPStore = repository.NewMemoryOTPStore()
	if cfg.RedisHost != "" {
		client, err := database.ConnectRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.Redis = client
		otpStore = repository.NewRedisOTPStore(client)
		logger.SystemLogger.Info("OTP store backed by Redis", zap.String("host", cfg.RedisHost))
	}

	var gateway notify.Gateway
	smtp, err := notify.NewSMTPGateway(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		Secure:   cfg.SMTPSecure,
		From:     cfg.FromEmail,
	})
	switch {
	case errors.Is(err, notify.ErrNotConfigured):
		logger.SystemLogger.Warn("SMTP not configured, OTP email delivery disabled")
	case err != nil:
		deps.Close()
		return nil, fmt.Errorf("smtp gateway: %w", err)
	default:
		gateway = smtp
	}

	deps.Sessions = service.NewSessionIssuer(cfg.JWTSecret, cfg.JWTExpiresIn)
	deps.Auth = service.NewAuthService(
		accounts,
		service.NewOTPIssuer(otpStore, cfg.OTPTTL),
		deps.Sessions,
		gateway,
		deps.Validate,
		service.AuthConfig{DevMode: cfg.OTPDevMode, RequireDelivery: cfg.OTPRequireDelivery},
	)

	deps.Board = repository.NewTaskBoard(repository.DefaultTasks(time.Now().UTC()))
	deps.Hub = websocket.NewHub()
	deps.Syncer = websocket.NewSyncer(deps.Hub, deps.Board, mode)
	return deps, nil
}

func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			logger.ErrorLogger.Error("Error closing Redis client", zap.Error(err))
		}
	}
}
