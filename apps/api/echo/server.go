package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/attendance"
	"github.com/infast/crm/core/course"
	"github.com/infast/crm/core/dashboard"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/lead"
	"github.com/infast/crm/core/payment"
	"github.com/infast/crm/core/student"
)

type (
	ServerDeps struct {
		Conf   *core.Config
		Logger core.Logger
		Clock  core.Clock

		CourseSvc     *course.Service
		GroupSvc      *group.Service
		LeadSvc       *lead.Service
		StudentSvc    *student.Service
		PaymentSvc    *payment.Service
		AttendanceSvc *attendance.Service
		DashboardSvc  *dashboard.Service
	}

	Server struct {
		deps      ServerDeps
		app       *echo.Echo
		jwtConfig middleware.JWTConfig
		errors    chan error
		shutdown  chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.jwtConfig = newJWTConfig(deps.Conf)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.jwtConfig, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwtConfig)

	registerAuthAPI(v1, jwt, conf.Auth, s.tokens())
	registerCourseAPI(v1.Group("/courses", jwt), s.deps.CourseSvc)
	registerGroupAPI(v1.Group("/groups", jwt), s.deps.GroupSvc)
	registerLeadAPI(v1.Group("/leads", jwt), s.deps.LeadSvc)
	registerStudentAPI(v1.Group("/students", jwt), s.deps.StudentSvc)
	registerPaymentAPI(v1.Group("/payments", jwt), s.deps.PaymentSvc)
	registerAttendanceAPI(v1.Group("/attendance", jwt), s.deps.AttendanceSvc)
	registerDashboardAPI(v1.Group("/dashboard", jwt), s.deps.DashboardSvc, s.deps.Clock)
}

func (s *Server) tokens() *tokenGenerator {
	return &tokenGenerator{
		conf:      s.jwtConfig,
		appName:   s.deps.Conf.AppName,
		expDelta:  s.deps.Conf.Server.JWTExpirationDelta,
		refrDelta: s.deps.Conf.Server.JWTRefreshExpirationDelta,
	}
}

// Start listens until the server is shut down. Listen failures are sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" CRM API!")
}
