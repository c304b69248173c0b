// Package extraq wires the rate limited scheduler, the run store, the
// record sink and the control server into a single embeddable service.
package extraq

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tqviet/extraq/internal/runner"
	"github.com/tqviet/extraq/internal/runs"
	"github.com/tqviet/extraq/internal/server"
	"github.com/tqviet/extraq/internal/utils"
	"github.com/tqviet/extraq/pkg/scheduler"
	"github.com/tqviet/extraq/pkg/sinks/boltsink"
)

type Extraq struct {
	opts *Options

	stop chan utils.Empty

	logger *slog.Logger

	sched *scheduler.Scheduler
	st    runs.Store
	sink  *boltsink.Sink
	rn    *runner.Runner

	hs *server.Server
}

func NewExtraq(opts *Options) *Extraq {
	o := DefaultOptions(opts)

	logger := slog.NewTextHandler(
		os.Stdout,
		&slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	)

	eq := &Extraq{
		opts:   o,
		logger: slog.New(logger),
		stop:   make(chan utils.Empty, 1),
	}
	if err := eq.init(); err != nil {
		eq.logger.
			With("err", err).
			Error("failed to initialize extraq")
		log.Fatalf("failed to initialize extraq: %v", err)
	}

	return eq
}

func (e *Extraq) init() error {
	sched, err := scheduler.New(&scheduler.Config{
		RequestsPerSecond: e.opts.RequestsPerSecond,
		Concurrency:       e.opts.Concurrency,
		MaxRetries:        e.opts.MaxRetries,
		RetryDelay:        e.opts.RetryDelay,
		Logger:            e.logger,
	})
	if err != nil {
		e.logger.
			With("err", err).
			Error("failed to create scheduler")
		log.Fatalf("failed to create scheduler: %v", err)
	}
	e.sched = sched

	e.mkdir(e.opts.StatePath)
	st, err := runs.NewStore(&runs.StoreOpts{
		Logger: e.logger,
		Path:   e.opts.StatePath,
	})
	if err != nil {
		e.logger.
			With("err", err).
			Error("failed to create run store")
		log.Fatalf("failed to create run store: %v", err)
	}
	e.st = st

	e.mkdir(e.opts.RecordsPath)
	sink, err := boltsink.New(&boltsink.Options{
		Logger: e.logger,
		Path:   e.opts.RecordsPath,
	})
	if err != nil {
		e.logger.
			With("err", err).
			Error("failed to create record sink")
		log.Fatalf("failed to create record sink: %v", err)
	}
	e.sink = sink

	e.rn = runner.New(&runner.Options{
		Logger:     e.logger,
		MaxPending: e.opts.MaxPending,
	},
		e.sched,
		e.st,
		e.sink,
	)

	s := server.NewServer(&server.Options{
		Addr:   e.opts.Addr,
		Logger: e.logger,
	},
		e.st,
		e.rn,
		e.sched,
	)
	e.hs = s

	return nil
}

func (e *Extraq) mkdir(path string) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		e.logger.
			With("err", err).
			Error("failed to create directory")
		log.Fatalf("failed to create directory: %v", err)
	}
	e.logger.
		With("dir", dir).
		Info("directory created")
}

// Register makes an importer startable by name through the control API.
func (e *Extraq) Register(name string, f runner.Factory) error {
	return e.rn.Register(name, f)
}

func (e *Extraq) Run() error {
	if err := e.hs.Run(); err != nil {
		e.logger.
			With("err", err).
			Error("failed to run server")
		return err
	}

	<-e.stop

	e.logger.Info("extraq is stopping")
	if err := e.hs.Close(); err != nil {
		e.logger.
			With("err", err).
			Error("failed to close server")
	}

	e.sched.Close()

	if err := e.st.Close(); err != nil {
		e.logger.
			With("err", err).
			Error("failed to close run store")
	}

	if err := e.sink.Close(); err != nil {
		e.logger.
			With("err", err).
			Error("failed to close record sink")
	}

	e.logger.Info("extraq is stopped")

	return nil
}

func (e *Extraq) Close() {
	e.stop <- utils.Empty{}
}
