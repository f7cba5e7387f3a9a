// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"courier/commons"
	"courier/db"
	"courier/engine"
	"courier/handlers"
	"courier/metrics"
	"courier/migrations"
	"courier/rabbitmq"
	"courier/routes"
	"courier/transport"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

func main() {
	commons.LoadEnvFile()
	cfg := commons.LoadConfig()

	e := echo.New()
	e.HideBanner = true

	e.Logger.SetLevel(commons.Logger.Level())
	e.Logger.SetHeader(commons.LogHeader)

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logMsg := func(format string, args ...any) {
				switch {
				case v.Status >= 500:
					e.Logger.Errorf(format, args...)
				case v.Status >= 400:
					e.Logger.Warnf(format, args...)
				default:
					e.Logger.Infof(format, args...)
				}
			}
			logMsg("%s %s - %d - %.2fms - %s",
				v.Method,
				v.URI,
				v.Status,
				float64(v.Latency.Microseconds())/1000.0,
				v.RemoteIP,
			)
			return nil
		},
	}))
	debugMode := slices.Contains(os.Args[1:], "--debug")
	if debugMode {
		e.Logger.Warn("Debug mode is enabled.")
		e.Debug = true
		e.Logger.SetLevel(log.DEBUG)
		commons.Logger.SetLevel(log.DEBUG)
	}

	e.Use(middleware.Recover())

	var conn *gorm.DB
	var slot db.Slot
	if cfg.DBDialect == "memory" {
		commons.Logger.Warn("DB_DIALECT=memory, messages will not survive a restart")
		slot = db.NewMemorySlot(nil)
	} else {
		var err error
		conn, err = db.Open(cfg)
		if err != nil {
			commons.Logger.Fatalf("Failed to open database: %v", err)
		}
		if slices.Contains(os.Args[1:], "--migrate-db") {
			commons.Logger.Debug("--migrate-db flag detected, running migrations")
			if err := migrations.Run(conn); err != nil {
				commons.Logger.Fatalf("Failed to run migrations: %v", err)
			}
		}
		slot = db.NewGormSlot(conn, db.MessagesKey)
	}

	sw := transport.NewSwitch(cfg.StartOffline)
	tr, rmq := newTransport(cfg, sw)

	delivery := metrics.NewDelivery(prometheus.DefaultRegisterer)
	eng, err := engine.New(context.Background(), engine.Config{
		Transport:   tr,
		Slot:        slot,
		Metrics:     delivery,
		SendTimeout: cfg.SendTimeout,
	})
	if err != nil {
		commons.Logger.Fatalf("Failed to start delivery engine: %v", err)
	}
	metrics.RegisterStatusGauges(prometheus.DefaultRegisterer, eng.CountByStatus)

	routes.RegisterRoutes(e, handlers.New(eng, sw))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		if err := e.Start(cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			commons.Logger.Fatalf("Server stopped: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	commons.Logger.Infof("Received %s, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SendTimeout+5*time.Second)
	defer cancel()

	// The engine closes before its transport so in-flight sends can settle.
	err = multierr.Combine(
		e.Shutdown(ctx),
		eng.Close(ctx),
	)
	// The transport only cancels its reply consumer; the client closes the channel.
	if closer, ok := tr.(interface{ Close() error }); ok {
		err = multierr.Append(err, closer.Close())
	}
	if rmq != nil {
		err = multierr.Append(err, rmq.Close())
	}
	if conn != nil {
		err = multierr.Append(err, db.Close(conn))
	}
	for _, cerr := range multierr.Errors(err) {
		commons.Logger.Errorf("Shutdown: %v", cerr)
	}
	commons.Logger.Info("Shutdown complete")
}

func newTransport(cfg commons.Config, sw *transport.Switch) (transport.Transport, *rabbitmq.Client) {
	switch cfg.Transport {
	case "amqp":
		client, err := rabbitmq.NewClient(rabbitmq.RabbitMQConfig{
			AMQPURL:  cfg.AMQPURL,
			Exchange: cfg.AMQPExchange,
		})
		if err != nil {
			commons.Logger.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		if _, err := rabbitmq.DeclareBoundQueue(client.AMQPChannel, "", cfg.AMQPExchange, cfg.AMQPRoutingKey); err != nil {
			commons.Logger.Fatalf("Failed to declare outbound queue: %v", err)
		}
		tr, err := transport.NewAMQP(client.AMQPChannel, sw, transport.AMQPConfig{
			Exchange:   cfg.AMQPExchange,
			RoutingKey: cfg.AMQPRoutingKey,
			Timeout:    cfg.SendTimeout,
		})
		if err != nil {
			commons.Logger.Fatalf("Failed to start AMQP transport: %v", err)
		}
		return tr, client
	default:
		commons.Logger.Infof("Using simulated transport (latency %s-%s, failure rate %.2f)",
			cfg.SimMinLatency, cfg.SimMaxLatency, cfg.SimFailureRate)
		return transport.NewSimulated(sw, transport.SimulatedConfig{
			MinLatency:  cfg.SimMinLatency,
			MaxLatency:  cfg.SimMaxLatency,
			FailureRate: cfg.SimFailureRate,
		}), nil
	}
}
