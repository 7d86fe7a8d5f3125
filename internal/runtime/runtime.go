// Package runtime assembles the service: telemetry, the job pipeline,
// optional notification and audit components, and the HTTP surface.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/recaplabs/recapd/internal/asr"
	"github.com/recaplabs/recapd/internal/bus"
	"github.com/recaplabs/recapd/internal/config"
	"github.com/recaplabs/recapd/internal/httpapi"
	"github.com/recaplabs/recapd/internal/intake"
	"github.com/recaplabs/recapd/internal/job"
	"github.com/recaplabs/recapd/internal/joblog"
	"github.com/recaplabs/recapd/internal/llm"
	"github.com/recaplabs/recapd/internal/natsserver"
	"github.com/recaplabs/recapd/internal/notify"
	"github.com/recaplabs/recapd/internal/pipeline"
	"github.com/recaplabs/recapd/internal/summary"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup

	prober llm.Prober
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings the service up and blocks until ctx is cancelled.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	uploads, err := intake.NewStore(r.cfg.Intake, r.logger)
	if err != nil {
		return fmt.Errorf("init intake store: %w", err)
	}

	recognizer, err := asr.New(r.cfg.ASR)
	if err != nil {
		return fmt.Errorf("init recognizer: %w", err)
	}

	generator, err := llm.New(r.cfg.LLM)
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}
	if p, ok := generator.(llm.Prober); ok {
		r.prober = p
		probeCtx, cancelProbe := context.WithTimeout(ctx, 2*time.Second)
		if err := p.Probe(probeCtx); err != nil {
			// Cold start is expected; readiness keeps probing.
			r.logger.Warn("model backend not reachable yet", slog.String("error", err.Error()))
		} else {
			r.logger.Info("model backend reachable", slog.String("endpoint", r.cfg.LLM.Endpoint))
		}
		cancelProbe()
	}

	orchestrator := summary.NewOrchestrator(r.cfg.LLM, generator, r.logger)

	controller := pipeline.NewController(ctx, r.cfg, job.NewStore(), uploads, recognizer, orchestrator, r.logger)

	audit, err := joblog.Open(ctx, r.cfg.JobLog, r.logger)
	if err != nil {
		return fmt.Errorf("open job log: %w", err)
	}
	defer audit.Close()
	controller.SetEventLog(audit)

	var (
		embedded  *natsserver.EmbeddedServer
		busClient *bus.Client
	)
	if r.cfg.Notify.Enabled {
		embedded, err = natsserver.Start(r.cfg.Notify, r.logger)
		if err != nil {
			return fmt.Errorf("start embedded broker: %w", err)
		}
		defer embedded.Shutdown()

		busCfg := r.cfg.Notify
		if embedded != nil {
			busCfg.Servers = []string{embedded.ClientURL()}
		}
		busClient, err = bus.Connect(busCfg, r.logger)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer busClient.Close()
		controller.SetNotifier(notify.NewPublisher(busClient, r.logger))
	}

	controller.Start()
	defer controller.Close()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	var history httpapi.HistorySource
	if r.cfg.JobLog.RetentionMode != "ephemeral" {
		history = audit
	}
	httpapi.New(controller, history, r.cfg.Intake.MaxUploadBytes, r.logger).Register(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("asr_mode", r.cfg.ASR.Mode),
		slog.String("llm_mode", r.cfg.LLM.Mode))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady also probes the summarization backend so load balancers stop
// routing uploads while the model server is down.
func (r *Runtime) handleReady(w http.ResponseWriter, req *http.Request) {
	if !r.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	if r.prober != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := r.prober.Probe(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("model backend unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
