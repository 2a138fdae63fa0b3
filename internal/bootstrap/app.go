// Package bootstrap wires the job management subsystem's composition root
// and runs it as one of three processes, mirroring how the crawler this
// module is descended from splits httpd, crawl, and scheduler into
// independently-scalable binaries sharing one codebase:
//
//   - serve: the HTTP API, backed by the dispatcher and scheduler so a
//     single-node deployment needs only one process.
//   - worker: the Worker Dispatcher alone, for a fleet of horizontally
//     scaled crawl workers with no API surface.
//   - scheduler: the Scheduler alone, for the one process responsible for
//     turning due Schedules into child Jobs.
//
// Every command also runs the Prometheus metrics poller. The Notification
// Router runs only in the serve process.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/jonesrussell/crawljobs/internal/config/commands"
)

// Start loads configuration, wires the composition root, and runs the
// process for the given command until interrupted.
func Start(command string) error {
	deps, err := NewCommandDeps(command)
	if err != nil {
		return fmt.Errorf("bootstrap deps: %w", err)
	}
	log := deps.Logger

	db, err := SetupDatabase(deps.Config)
	if err != nil {
		return fmt.Errorf("setup database: %w", err)
	}

	rdb, err := CreateRedisClient(deps.Config)
	if err != nil {
		return fmt.Errorf("setup redis: %w", err)
	}

	svc, err := SetupServices(deps.Config, log, db, rdb)
	if err != nil {
		return fmt.Errorf("setup services: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	var stops []StopFunc

	switch command {
	case commands.Serve:
		go func() { errChan <- svc.Dispatcher.Run(ctx) }()
		svc.Scheduler.Start(ctx)
		go func() {
			if runErr := svc.Notify.Run(ctx); runErr != nil {
				log.Error("notification router stopped with error", "error", runErr.Error())
			}
		}()
		svc.Poller.Start(ctx)

		srv, err := SetupHTTPServer(deps.Config, log, svc.Handlers)
		if err != nil {
			cancel()
			return fmt.Errorf("setup http server: %w", err)
		}
		go func() {
			if serveErr := <-srv.ErrorChan; serveErr != nil {
				errChan <- serveErr
			}
		}()

		stops = []StopFunc{
			func(ctx context.Context) error { return srv.Stop(ctx) },
			func(ctx context.Context) error { svc.Poller.Stop(); return nil },
			func(ctx context.Context) error { svc.Scheduler.Stop(); return nil },
			func(ctx context.Context) error { cancel(); return nil },
			func(ctx context.Context) error { return db.DB.Close() },
			func(ctx context.Context) error { return rdb.Close() },
		}

	case commands.Worker:
		go func() { errChan <- svc.Dispatcher.Run(ctx) }()
		svc.Poller.Start(ctx)

		stops = []StopFunc{
			func(ctx context.Context) error { svc.Poller.Stop(); return nil },
			func(ctx context.Context) error { cancel(); return nil },
			func(ctx context.Context) error { return db.DB.Close() },
			func(ctx context.Context) error { return rdb.Close() },
		}

	case commands.Scheduler:
		svc.Scheduler.Start(ctx)
		svc.Poller.Start(ctx)

		stops = []StopFunc{
			func(ctx context.Context) error { svc.Poller.Stop(); return nil },
			func(ctx context.Context) error { svc.Scheduler.Stop(); return nil },
			func(ctx context.Context) error { cancel(); return nil },
			func(ctx context.Context) error { return db.DB.Close() },
			func(ctx context.Context) error { return rdb.Close() },
		}

	default:
		cancel()
		return fmt.Errorf("unknown command: %q", command)
	}

	log.Info("crawljobsd started", "command", command)
	return RunUntilInterrupt(log, errChan, stops...)
}
