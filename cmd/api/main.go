package main

import (
	"io"
	"log"
	"os"

	"github.com/macroforge/license-backend/internal/config"
	"github.com/macroforge/license-backend/internal/logging"
	minioRepo "github.com/macroforge/license-backend/internal/repository/minio"
	"github.com/macroforge/license-backend/internal/repository/ports"
	"github.com/macroforge/license-backend/internal/repository/postgres"
	"github.com/macroforge/license-backend/internal/service"
	transport "github.com/macroforge/license-backend/internal/transport/http"
	"github.com/macroforge/license-backend/internal/transport/mail"
	"github.com/macroforge/license-backend/internal/util"
)

func main() {
	cfg := config.Load()

	if cfg.LogstashTCPAddr != "" {
		writer, err := logging.NewLogstashWriter(cfg.LogstashTCPAddr)
		if err != nil {
			log.Printf("Warning: logstash mirror disabled: %v", err)
		} else {
			defer writer.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, writer))
		}
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to database: %v", err)
	}
	defer db.Close()

	accountRepo := postgres.NewAccountRepo(db)
	sessionRepo := postgres.NewSessionRepo(db)
	adminRepo := postgres.NewAdminUserRepo(db)

	var storage ports.ObjectStorage
	if cfg.MinIOEndpoint != "" {
		client, err := minioRepo.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
		if err != nil {
			log.Printf("Warning: audit archive disabled: %v", err)
		} else {
			storage = minioRepo.NewStorage(client)
		}
	}

	var mailer service.LicenseKeySender
	if cfg.SMTPHost != "" {
		mailer = mail.NewLicenseMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}

	cache := service.NewAccountCache(accountRepo, cfg.AccountCacheTTL)
	licenses := service.NewLicenseService(sessionRepo, accountRepo, cache, service.LicensePolicy{
		SessionTTL:              cfg.SessionTTL,
		FullValidationInterval:  cfg.FullValidationInterval,
		ExpiryCheckInterval:     cfg.ExpiryCheckInterval,
		ApproachingExpiryWindow: cfg.ApproachingExpiryWindow,
		RenewalThreshold:        cfg.SessionRenewalThreshold,
	})

	janitor := service.NewJanitor(sessionRepo, cache, storage, cfg.MinIOBucketAudit, cfg.JanitorSweepInterval, cfg.JanitorBatchSize)
	go janitor.Run()
	defer janitor.Stop()

	jwtManager := util.NewJWTManager(cfg.AdminJWTSecret, cfg.AdminJWTTTL)
	admin := service.NewAdminService(adminRepo, accountRepo, licenses, mailer, jwtManager, cfg.GoogleAudience)

	e := transport.NewRouter(cfg.AllowOrigins)
	transport.RegisterLicense(e, licenses)
	transport.RegisterAdmin(e, admin, jwtManager)
	transport.RegisterSwagger(e)

	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
