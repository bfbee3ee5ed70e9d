package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/didip/tollbooth/v6"
	"github.com/didip/tollbooth/v6/limiter"
	esv7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	rv8 "github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riandyrn/otelchi"
	"go.uber.org/zap"

	cmdinternal "github.com/studytrack/coursetasks/cmd/internal"
	"github.com/studytrack/coursetasks/internal"
	"github.com/studytrack/coursetasks/internal/elasticsearch"
	"github.com/studytrack/coursetasks/internal/envvar"
	"github.com/studytrack/coursetasks/internal/feed"
	"github.com/studytrack/coursetasks/internal/kafka"
	"github.com/studytrack/coursetasks/internal/memcached"
	"github.com/studytrack/coursetasks/internal/postgresql"
	"github.com/studytrack/coursetasks/internal/rabbitmq"
	"github.com/studytrack/coursetasks/internal/rest"
	"github.com/studytrack/coursetasks/internal/service"
	"github.com/studytrack/coursetasks/internal/session"
)

func main() {
	var env, address string

	flag.StringVar(&env, "env", "", "Environment Variables filename")
	flag.StringVar(&address, "address", ":9234", "HTTP Server Address")
	flag.Parse()

	errC, err := run(env, address)
	if err != nil {
		log.Fatalf("Couldn't run: %s", err)
	}

	if err := <-errC; err != nil {
		log.Fatalf("Error while running: %s", err)
	}
}

func run(env, address string) (<-chan error, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "zap.NewProduction")
	}

	if err := envvar.Load(env); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "envvar.Load")
	}

	vault, err := cmdinternal.NewVaultProvider()
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewVaultProvider")
	}

	conf := envvar.New(vault)

	pool, err := cmdinternal.NewPostgreSQL(conf)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewPostgreSQL")
	}

	es, err := cmdinternal.NewElasticSearch(conf)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewElasticSearch")
	}

	rmq, err := cmdinternal.NewRabbitMQ(conf)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewRabbitMQ")
	}

	mc, err := cmdinternal.NewMemcached(conf)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewMemcached")
	}

	rdb, err := cmdinternal.NewRedis(conf)
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewRedis")
	}

	if _, err := cmdinternal.NewOTExporter(conf); err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewOTExporter")
	}

	broker, _ := conf.Get("MESSAGE_BROKER")

	var (
		producer *cmdinternal.KafkaProducer
		changes  feed.ChangeSource
	)

	if broker == "kafka" {
		producer, err = cmdinternal.NewKafkaProducer(conf)
		if err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "internal.NewKafkaProducer")
		}

		host, err := conf.Get("KAFKA_HOST")
		if err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get KAFKA_HOST")
		}

		changes = kafka.NewChangeSource(host, producer.Topic, logger)
	}

	logging := func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info(r.Method,
				zap.Time("time", time.Now()),
				zap.String("url", r.URL.String()),
			)

			h.ServeHTTP(w, r)
		})
	}

	srv, err := newServer(serverConfig{
		Address:       address,
		DB:            pool,
		ElasticSearch: es,
		RabbitMQ:      rmq,
		Kafka:         producer,
		Changes:       changes,
		Memcached:     mc,
		Redis:         rdb,
		Middlewares:   []func(next http.Handler) http.Handler{otelchi.Middleware("coursetasks-feed-server"), logging},
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("newServer %w", err)
	}

	errC := make(chan error, 1)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		defer func() {
			_ = logger.Sync()
			pool.Close()
			rmq.Close()
			stop()
			cancel()
			close(errC)
		}()

		srv.SetKeepAlivesEnabled(false)

		if err := srv.Shutdown(ctxTimeout); err != nil {
			errC <- err
		}

		logger.Info("Shutdown completed")
	}()

	go func() {
		logger.Info("Listening and serving", zap.String("address", address))

		// "ListenAndServe always returns a non-nil error. After Shutdown or
		// Close, the returned error is ErrServerClosed."
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errC <- err
		}
	}()

	return errC, nil
}

type serverConfig struct {
	Address       string
	DB            *pgxpool.Pool
	ElasticSearch *esv7.Client
	RabbitMQ      *cmdinternal.RabbitMQ
	Kafka         *cmdinternal.KafkaProducer
	Changes       feed.ChangeSource
	Memcached     *memcache.Client
	Redis         *rv8.Client
	Middlewares   []func(next http.Handler) http.Handler
	Logger        *zap.Logger
}

func newServer(conf serverConfig) (*http.Server, error) {
	router := chi.NewRouter()
	router.Use(render.SetContentType(render.ContentTypeJSON))

	for _, mw := range conf.Middlewares {
		router.Use(mw)
	}

	store := postgresql.NewTask(conf.DB)
	repo := memcached.NewTask(conf.Memcached, store, conf.Logger)
	search := elasticsearch.NewTask(conf.ElasticSearch)

	var msgBroker service.TaskMessageBrokerRepository

	if conf.Kafka != nil {
		msgBroker = kafka.NewTask(conf.Kafka.Producer, conf.Kafka.Topic)
	} else {
		var err error

		msgBroker, err = rabbitmq.NewTask(conf.RabbitMQ.Channel)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq.NewTask %w", err)
		}
	}

	svc := service.NewTask(conf.Logger, repo, search, msgBroker)

	changes := conf.Changes
	if changes == nil {
		changes = rabbitmq.NewChangeSource(conf.RabbitMQ.Channel, conf.Logger)
	}

	// Signal-triggered re-reads bypass the cache decorator, a change signal
	// must never push a stale cached snapshot.
	taskFeed := feed.New(store, changes, conf.Logger)

	sessions := rest.NewSessionHandler(session.NewStore(conf.Redis))

	rest.RegisterOpenAPI(router)
	sessions.Register(router)

	router.Group(func(r chi.Router) {
		r.Use(sessions.Authenticate)

		rest.NewTaskHandler(svc).Register(r)
		rest.NewStreamHandler(taskFeed, conf.Logger).Register(r)
	})

	router.Handle("/metrics", promhttp.Handler())

	lmt := tollbooth.NewLimiter(3, &limiter.ExpirableOptions{DefaultExpirationTTL: time.Second})
	lmtmw := tollbooth.LimitHandler(lmt, router)

	//nolint: exhaustivestruct
	return &http.Server{
		Handler:           lmtmw,
		Addr:              conf.Address,
		ReadTimeout:       1 * time.Second,
		ReadHeaderTimeout: 1 * time.Second,
		// WriteTimeout stays unset so event streams can outlive a
		// fixed deadline.
		IdleTimeout: 1 * time.Second,
	}, nil
}
