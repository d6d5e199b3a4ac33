package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"daytasks/analytics"
	"daytasks/api"
	"daytasks/domain"
	"daytasks/live"
	"daytasks/session"
	"daytasks/storage"
)

// liveFeed narrows the concrete feed to the handler-facing interface.
type liveFeed struct {
	*live.Feed
}

func (f liveFeed) Subscribe(ctx context.Context, ownerID, day string, onSnapshot func([]domain.Task), onError func(error)) session.Subscription {
	return f.Feed.Subscribe(ctx, ownerID, day, onSnapshot, onError)
}

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	connStr := os.Getenv("STORAGE_CONNECTION_STRING")
	tasksTableName := os.Getenv("TASKS_TABLE")
	if connStr == "" || tasksTableName == "" {
		log.Fatal("missing storage config")
	}
	store, err := storage.New(connStr, tasksTableName)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	redisConn := os.Getenv("REDIS_CONNECTION_STRING")
	if redisConn == "" {
		log.Fatal("missing redis config")
	}
	redisOpts, err := redis.ParseURL(redisConn)
	if err != nil {
		parts := strings.Split(redisConn, ",")
		redisOpts = &redis.Options{Addr: parts[0]}
		for _, p := range parts[1:] {
			kv := strings.SplitN(p, "=", 2)
			if len(kv) != 2 {
				continue
			}
			switch strings.ToLower(kv[0]) {
			case "password":
				redisOpts.Password = kv[1]
			case "ssl":
				if strings.ToLower(kv[1]) == "true" {
					redisOpts.TLSConfig = &tls.Config{}
				}
			}
		}
	}
	rc := redis.NewClient(redisOpts)

	cacheTTL := 30 * time.Second
	if v := os.Getenv("SNAPSHOT_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			log.Fatalf("invalid SNAPSHOT_CACHE_TTL: %v", err)
		}
		cacheTTL = d
	}
	cached := storage.NewCache(store, rc, cacheTTL)

	updatesChannel := os.Getenv("UPDATES_CHANNEL")
	if updatesChannel == "" {
		updatesChannel = "task-updates"
	}
	feed := live.NewFeed(rc, cached, updatesChannel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)

	var tracker analytics.Tracker = analytics.NopTracker{}
	if queueName := os.Getenv("EVENTS_QUEUE"); queueName != "" {
		qt, err := analytics.NewQueueTracker(connStr, queueName)
		if err != nil {
			log.Fatalf("analytics: %v", err)
		}
		tracker = qt
	} else {
		log.Warn("EVENTS_QUEUE not set; usage events are discarded")
	}

	testMode := os.Getenv("AUTH0_TEST_MODE") == "1"
	var auth *api.Auth
	if testMode {
		auth = api.NewAuth(nil, "", "")
	} else {
		jwtAudience := os.Getenv("AUTH0_AUDIENCE")
		domain := os.Getenv("AUTH0_DOMAIN")
		if jwtAudience == "" || domain == "" {
			log.Fatal("missing Auth0 config")
		}
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", domain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, jwtAudience, "https://"+domain+"/")
	}

	tp := sdktrace.NewTracerProvider()
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warnf("trace provider shutdown: %v", err)
		}
	}()
	otel.SetTracerProvider(tp)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	logger := log.New()
	api.Register(e, cached, auth, liveFeed{feed}, tracker, logger, time.Now)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
