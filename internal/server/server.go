package server

import (
	"log/slog"
	"net/http"

	httpin_integ "github.com/ggicci/httpin/integration"
	"github.com/go-chi/chi/v5"

	"github.com/tqviet/extraq/internal/runner"
	"github.com/tqviet/extraq/internal/runs"
	"github.com/tqviet/extraq/pkg/scheduler"
)

type Options struct {
	Addr   string
	Logger *slog.Logger
}

type runtime struct {
	logger *slog.Logger
	st     runs.Store
	rn     *runner.Runner
	sc     *scheduler.Scheduler
}

type Server struct {
	opts    *Options
	logger  *slog.Logger
	sm      chi.Router
	hs      *http.Server
	runtime *runtime
}

func NewServer(opts *Options, st runs.Store, rn *runner.Runner, sc *scheduler.Scheduler) *Server {
	o := defaultOpts(opts)

	s := &Server{
		logger: o.Logger,
		opts:   o,
		sm:     chi.NewRouter(),
		runtime: &runtime{
			st:     st,
			rn:     rn,
			sc:     sc,
			logger: o.Logger,
		},
	}

	s.registerV1()

	hs := http.Server{
		Addr:    o.Addr,
		Handler: s.sm,
	}
	s.hs = &hs

	return s
}

func defaultOpts(opts *Options) *Options {
	o := &Options{
		Addr:   ":8080",
		Logger: slog.Default(),
	}

	if len(opts.Addr) > 0 {
		o.Addr = opts.Addr
	}

	if opts.Logger != nil {
		o.Logger = opts.Logger
	}

	return o
}

func init() {
	httpin_integ.UseGochiURLParam("path", chi.URLParam)
}

func (s *Server) registerV1() {
	startRun(s.sm, s.runtime)
	getRun(s.sm, s.runtime)
	listRuns(s.sm, s.runtime)
	listImporters(s.sm, s.runtime)
	schedulerStats(s.sm, s.runtime)
	pauseScheduler(s.sm, s.runtime)
	resumeScheduler(s.sm, s.runtime)
	clearScheduler(s.sm, s.runtime)
}

func (s *Server) Run() error {
	go func() {
		s.logger.
			With("addr", s.opts.Addr).
			Info("server is running")

		err := s.hs.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			s.logger.
				With("err", err).
				Error("failed to run server")
			return
		}
	}()

	return nil
}

func (s *Server) Close() error {
	s.logger.Info("server is closing")
	return s.hs.Close()
}
