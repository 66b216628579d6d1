package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hydrazin60/waterManagment-server/internal/config"
	"github.com/hydrazin60/waterManagment-server/internal/domain"
	"github.com/hydrazin60/waterManagment-server/internal/infrastructure/dynamo"
	jwtinfra "github.com/hydrazin60/waterManagment-server/internal/infrastructure/jwt"
	redisinfra "github.com/hydrazin60/waterManagment-server/internal/infrastructure/redis"
	s3infra "github.com/hydrazin60/waterManagment-server/internal/infrastructure/s3"
	"github.com/hydrazin60/waterManagment-server/internal/infrastructure/smtp"
	"github.com/hydrazin60/waterManagment-server/internal/infrastructure/sns"
	transporthttp "github.com/hydrazin60/waterManagment-server/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Redis holds the OTP gates.
	redisClient := redisinfra.NewClient(cfg)
	gates := redisinfra.NewGateStore(redisClient)

	// JWT provider (optional — graceful fallback if keys are missing; login
	// and refresh answer 500 until keys are provided).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store for identity documents.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer delivers email OTPs.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	deps := &transporthttp.Deps{
		BusinessRepo: dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.BusinessAccounts, domain.AccountBusiness),
		CustomerRepo: dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Customers, domain.AccountCustomer),
		StaffRepo:    dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Staff, domain.AccountStaff),
		AdminRepo:    dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Admins, domain.AccountAdmin),
		Gates:        gates,
		S3Store:      s3Store,
		Mailer:       mailer,
		SMSSender:    smsSender,
		JWTProvider:  jwtProvider,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	_ = redisClient.Close()
	log.Println("Server stopped")
}
