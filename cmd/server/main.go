// Command server runs the qrforge backend: the authentication API and the
// QR code service over one HTTP listener.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/qrforge/qrforge/internal/auth"
	"github.com/qrforge/qrforge/internal/config"
	"github.com/qrforge/qrforge/internal/googleid"
	"github.com/qrforge/qrforge/internal/httpapi"
	"github.com/qrforge/qrforge/internal/mail"
	"github.com/qrforge/qrforge/internal/password"
	"github.com/qrforge/qrforge/internal/qr"
	"github.com/qrforge/qrforge/internal/store"
	"github.com/qrforge/qrforge/internal/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	var log *zap.Logger
	if cfg.IsProduction() {
		log, err = zap.NewProduction()
		gin.SetMode(gin.ReleaseMode)
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	if err := mongoClient.Ping(connectCtx, nil); err != nil {
		return err
	}
	db := mongoClient.Database(cfg.MongoDatabase)

	users, err := store.NewMongoUserRepository(connectCtx, db)
	if err != nil {
		return err
	}
	qrRepo, err := store.NewMongoQRRepository(connectCtx, db)
	if err != nil {
		return err
	}

	hasher, err := password.NewHasher(password.DefaultParams())
	if err != nil {
		return err
	}

	tokens, err := token.NewManager(token.Config{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.SessionTTL,
		Issuer: "qrforge",
	})
	if err != nil {
		return err
	}

	var mailer mail.Sender
	if cfg.SMTPHost != "" {
		mailer, err = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			return err
		}
	} else {
		log.Warn("SMTP_HOST not set; OTP flows will fail on delivery")
	}

	var identity googleid.Verifier
	if cfg.GoogleClientID != "" {
		identity = googleid.NewTokenInfoVerifier(cfg.GoogleClientID, &http.Client{Timeout: cfg.GoogleTimeout})
	} else {
		log.Warn("GOOGLE_CLIENT_ID not set; federated sign-in disabled")
	}

	var limiter *auth.RateLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if err := rdb.Ping(connectCtx).Err(); err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		limiter = auth.NewRateLimiter(rdb, cfg.RateLimitWindow, cfg.RateLimitMaxAttempts)
	} else {
		log.Warn("REDIS_ADDR not set; rate limiting disabled")
	}

	engine, err := auth.New(auth.Config{
		OTPTTL:      cfg.OTPTTL,
		OTPDigits:   cfg.OTPDigits,
		MailTimeout: cfg.MailTimeout,
	}, auth.Deps{
		Users:    users,
		Hasher:   hasher,
		Tokens:   tokens,
		Mailer:   mailer,
		Identity: identity,
		Limiter:  limiter,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	var images qr.ImageStore
	if cfg.S3Bucket != "" {
		images, err = qr.NewS3Store(connectCtx, qr.S3Config{
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.PublicBaseURL + "/assets",
		})
		if err != nil {
			return err
		}
	} else {
		log.Warn("S3_BUCKET not set; storing QR images in memory")
		images = qr.NewMemoryImageStore()
	}

	qrSvc, err := qr.NewService(qr.Config{PublicBaseURL: cfg.PublicBaseURL},
		qrRepo, &qr.PNGRenderer{}, images, log)
	if err != nil {
		return err
	}

	_, router := httpapi.NewServer(engine, qrSvc, log, httpapi.Options{
		SecureCookies: cfg.IsProduction(),
		SessionTTL:    cfg.SessionTTL,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
