package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"log/slog"
	"os"

	firebase "firebase.google.com/go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/google"
	androidpublisher "google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"

	"wonmoreBack/internal/config"
	"wonmoreBack/internal/handlers"
	"wonmoreBack/internal/repositories"
	"wonmoreBack/internal/services"
)

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	cfg      config.Config

	verifyHandler    *handlers.VerifyHandler
	pushHandler      *handlers.PushHandler
	anonymizeHandler *handlers.AnonymizeHandler
}

func initializeApp(ctx context.Context, cfg config.Config, errorLog, infoLog *log.Logger) (*application, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	rest, err := repositories.NewSupabaseREST(repositories.SupabaseRESTConfig{
		ProjectURL:     cfg.Supabase.ProjectURL,
		ServiceRoleKey: cfg.Supabase.ServiceRoleKey,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}
	subscriptionRepo := repositories.NewSubscriptionRepository(rest)
	accountRepo := repositories.NewAccountRepository(rest)

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	}

	serviceAccountJSON, err := decodeServiceAccount(cfg.Google.ServiceAccountJSONBase64)
	if err != nil {
		return nil, err
	}

	// Google Play and FCM share the same service account.
	var googlePlay *services.GooglePlayService
	if serviceAccountJSON != "" && cfg.Google.PackageName != "" {
		playCfg := services.GooglePlayConfig{
			PackageName:        cfg.Google.PackageName,
			ServiceAccountJSON: serviceAccountJSON,
		}
		if rdb != nil {
			jwtCfg, err := google.JWTConfigFromJSON([]byte(serviceAccountJSON), androidpublisher.AndroidpublisherScope)
			if err != nil {
				return nil, fmt.Errorf("parse service account: %w", err)
			}
			playCfg.TokenSource = services.NewCachedTokenSource(rdb, "oauth:androidpublisher", jwtCfg.TokenSource(ctx))
		}
		googlePlay, err = services.NewGooglePlayService(ctx, playCfg)
		if err != nil {
			return nil, err
		}
	} else {
		infoLog.Println("google play verification disabled: service account or package name missing")
	}

	var appStore *services.AppStoreService
	if cfg.Apple.IssuerID != "" && cfg.Apple.KeyID != "" && cfg.Apple.PrivateKey != "" {
		appStore, err = services.NewAppStoreService(services.AppStoreConfig{
			IssuerID:     cfg.Apple.IssuerID,
			KeyID:        cfg.Apple.KeyID,
			BundleID:     cfg.Apple.BundleID,
			PrivateKey:   cfg.Apple.PrivateKey,
			SharedSecret: cfg.Apple.SharedSecret,
			Logger:       logger,
		})
		if err != nil {
			return nil, err
		}
	} else {
		infoLog.Println("app store verification disabled: issuer id, key id or private key missing")
	}

	verification := &services.VerificationService{
		Subscriptions: subscriptionRepo,
		Logger:        logger,
	}
	if googlePlay != nil {
		verification.Google = googlePlay
	}
	if appStore != nil {
		verification.Apple = appStore
	}

	push := &services.PushService{
		DefaultTitle: cfg.Push.DefaultTitle,
		Logger:       logger,
	}
	if serviceAccountJSON != "" {
		fbApp, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
		if err != nil {
			return nil, fmt.Errorf("firebase.NewApp: %w", err)
		}
		fcm, err := fbApp.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase messaging: %w", err)
		}
		push.Client = fcm
	} else {
		infoLog.Println("push relay disabled: service account missing")
	}

	var storage *services.StorageService
	if cfg.Storage.Endpoint != "" && cfg.Storage.Bucket != "" {
		storage, err = services.NewStorageService(services.StorageConfig{
			Endpoint:  cfg.Storage.Endpoint,
			Region:    cfg.Storage.Region,
			Bucket:    cfg.Storage.Bucket,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
		if err != nil {
			return nil, err
		}
	}

	account := &services.AccountService{
		Accounts: accountRepo,
		Auth:     rest,
		Logger:   logger,
	}
	if storage != nil {
		account.Storage = storage
	}

	return &application{
		errorLog:         errorLog,
		infoLog:          infoLog,
		cfg:              cfg,
		verifyHandler:    handlers.NewVerifyHandler(verification),
		pushHandler:      handlers.NewPushHandler(push),
		anonymizeHandler: handlers.NewAnonymizeHandler(account, cfg.Supabase.JWTSecret),
	}, nil
}

func decodeServiceAccount(b64 string) (string, error) {
	if b64 == "" {
		return "", nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("decode GOOGLE_SERVICE_ACCOUNT_JSON_BASE64: %w", err)
	}
	return string(raw), nil
}
