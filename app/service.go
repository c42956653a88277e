// Package app wires the relief components from the configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kilianp07/relief/api"
	_ "github.com/kilianp07/relief/app/plugins"
	"github.com/kilianp07/relief/config"
	"github.com/kilianp07/relief/core/coordinator"
	"github.com/kilianp07/relief/core/journal"
	coremetrics "github.com/kilianp07/relief/core/metrics"
	coremon "github.com/kilianp07/relief/core/monitoring"
	"github.com/kilianp07/relief/core/notify"
	"github.com/kilianp07/relief/core/scenario"
	"github.com/kilianp07/relief/core/store"
	"github.com/kilianp07/relief/infra/logger"
	"github.com/kilianp07/relief/infra/metrics"
	"github.com/kilianp07/relief/infra/monitoring"
	"github.com/kilianp07/relief/infra/mqtt"
)

// Service owns the coordinator and its surrounding infrastructure.
type Service struct {
	Coordinator   *coordinator.Coordinator
	Notifications *notify.Center

	cfg     *config.Config
	sink    coremetrics.Sink
	mqtt    *mqtt.PahoClient
	monitor coremon.Monitor
	log     logger.Logger

	closeOnce sync.Once
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("monitoring: %w", err)
	}
	st, err := store.New(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	j, err := journal.Open(cfg.Journal)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("journal: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = st.Close()
		_ = j.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	coord := coordinator.New(cfg.Coordinator(), logger.New("coordinator"),
		coordinator.WithStore(st), coordinator.WithJournal(j))

	svc := &Service{
		Coordinator: coord,
		cfg:         cfg,
		sink:        sink,
		monitor:     mon,
		log:         logg,
	}

	var nopts []notify.Option
	if cfg.MQTT.Enabled {
		mcfg := cfg.MQTT
		mcfg.Monitor = mon
		client, err := mqtt.NewPahoClient(mcfg, nil)
		if err != nil {
			_ = coord.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.mqtt = client
		nopts = append(nopts, notify.WithPublisher(client))
	}
	svc.Notifications = notify.New(cfg.Notifications, logger.New("notifications"), nopts...)
	if svc.mqtt != nil {
		svc.mqtt.OnAck(func(id string) {
			if _, err := svc.Notifications.MarkRead(id); err != nil {
				logg.Debugf("ack for unknown notification %s", id)
			}
		})
	}
	return svc, nil
}

// Prepare restores the persisted state, or seeds the configured scenario when
// the store is empty.
func (s *Service) Prepare(ctx context.Context) error {
	restored, err := s.Coordinator.Restore(ctx)
	if err != nil {
		return err
	}
	if restored || s.cfg.Seed.Scenario == "" {
		return nil
	}
	sc, err := scenario.Load(s.cfg.Seed.Scenario)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	applied, err := s.Coordinator.Seed(ctx, sc)
	if err != nil {
		return fmt.Errorf("seed %s: %w", sc.Name, err)
	}
	s.log.Infow("scenario seeded", map[string]any{"scenario": sc.Name, "zones": len(applied.Zones), "routes": applied.Routes})
	return nil
}

// Handler returns the HTTP API handler.
func (s *Service) Handler() http.Handler {
	return api.NewHandler(api.Options{
		Coordinator:   s.Coordinator,
		Notifications: s.Notifications,
		JournalToken:  s.cfg.Journal.Token,
		CriticalRisk:  s.cfg.Notifications.RiskThreshold,
		Monitor:       s.monitor,
		Logger:        logger.New("http"),
	})
}

// Run starts the consumers and the servers, and blocks until ctx is
// cancelled or the API server fails.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Prepare(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	notesDone := s.Notifications.Run(ctx, s.Coordinator.Bus())
	metricsDone := metrics.StartEventCollector(ctx, s.Coordinator.Bus(), s.sink)

	if port := s.cfg.Metrics.PrometheusPort; port != "" {
		go func() {
			defer s.recoverPanic("prom-server")
			if err := metrics.StartPromServer(ctx, port); err != nil {
				s.log.Errorf("prom server: %v", err)
				s.monitor.CaptureException(err, map[string]string{"module": "prom-server"})
			}
		}()
	}

	err := api.Serve(ctx, s.cfg.HTTP.Addr, s.Handler(), logger.New("http"))
	cancel()
	<-notesDone
	<-metricsDone
	if err != nil {
		s.monitor.CaptureException(err, map[string]string{"module": "http"})
	}
	return err
}

func (s *Service) recoverPanic(module string) {
	if v := recover(); v != nil {
		s.log.Errorf("%s panic: %v", module, v)
		s.monitor.CapturePanic(v, map[string]string{"module": module})
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		var errs []error
		if cerr := s.Coordinator.Close(); cerr != nil {
			errs = append(errs, cerr)
		}
		if s.mqtt != nil {
			s.mqtt.Disconnect()
		}
		if c, ok := s.sink.(interface{ Close() }); ok {
			c.Close()
		}
		s.monitor.Flush(2 * time.Second)
		err = errors.Join(errs...)
	})
	return err
}
