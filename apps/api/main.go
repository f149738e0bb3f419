package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // /debug/pprof

	"github.com/pkg/errors"

	dig_container "github.com/infast/crm/apps/api/di/dig"
	echoapi "github.com/infast/crm/apps/api/echo"
	"github.com/infast/crm/core"
	"github.com/infast/crm/services/scheduler"
)

type app struct {
	conf    *core.Config
	logger  core.Logger
	sched   *scheduler.Scheduler
	server  *echoapi.Server
	closeDB dig_container.CloseDB
}

func main() {
	c := dig_container.New(core.NewConfig)

	err := c.Invoke(func(
		conf *core.Config,
		logger core.Logger,
		closeDB dig_container.CloseDB,
		sched *scheduler.Scheduler,
		server *echoapi.Server,
	) error {
		a := app{conf: conf, logger: logger, sched: sched, server: server, closeDB: closeDB}
		return a.run()
	})
	if err != nil {
		log.Fatal(err)
	}
}

// run serves the API and the sweep until a shutdown signal or a server error.
func (a app) run() error {
	a.logger.Info(fmt.Sprintf("CRM starting : version %q, env %s", a.conf.Build, a.conf.Env))
	defer a.logger.Info("CRM stopped")
	defer func() {
		if err := a.closeDB(); err != nil {
			a.logger.Error(fmt.Sprintf("closing database: %v", err), err)
		}
	}()

	a.serveDebug()

	a.sched.Start()
	a.logger.Info(fmt.Sprintf("debtor sweep scheduled %q (%s)", a.conf.Sweep.Schedule, a.conf.Location))
	go a.server.Start()

	var runErr error
	select {
	case runErr = <-a.server.Errors():
		a.logger.Error(fmt.Sprintf("server error: %v", runErr), runErr)
	case sig := <-a.server.ShutdownSignal():
		a.logger.Info(fmt.Sprintf("%v: shutting down", sig))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.conf.Server.ShutdownTimeout)
	defer cancel()

	// a sweep in flight gets the same deadline as open requests
	if err := a.sched.Stop(ctx); err != nil {
		a.logger.Warn(fmt.Sprintf("scheduler did not stop in time: %v", err), err)
	}
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn(fmt.Sprintf("graceful shutdown failed: %v", err), err)
		if err = a.server.Close(); err != nil {
			return errors.Wrap(err, "forcing server close")
		}
	}
	return runErr
}

// serveDebug exposes /debug/pprof and /debug/vars on the debug host.
func (a app) serveDebug() {
	expvar.NewString("build").Set(a.conf.Build)
	expvar.NewString("env").Set(a.conf.Env)

	go func() {
		if err := http.ListenAndServe(a.conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			a.logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()
}
