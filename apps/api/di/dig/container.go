package dig_container

import (
	"fmt"
	"log"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/infast/crm/apps/api/echo"
	"github.com/infast/crm/core"
	"github.com/infast/crm/core/attendance"
	"github.com/infast/crm/core/course"
	"github.com/infast/crm/core/dashboard"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/lead"
	"github.com/infast/crm/core/payment"
	"github.com/infast/crm/core/student"
	emailsvc "github.com/infast/crm/services/email"
	logsvc "github.com/infast/crm/services/logger"
	"github.com/infast/crm/services/scheduler"
	"github.com/infast/crm/storage/database"
	dummydb "github.com/infast/crm/storage/database/dummy"
	pgrepos "github.com/infast/crm/storage/database/postgres"
)

// MemoryDriver selects the in-memory store instead of Postgres.
const MemoryDriver = "memory"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// CloseDB releases the storage opened by the container.
type CloseDB func() error

type storageResult struct {
	dig.Out

	Close      CloseDB
	Tx         core.Transactor
	Courses    course.Repository
	Groups     group.Repository
	Leads      lead.Repository
	Students   student.Repository
	Payments   payment.Repository
	Attendance attendance.Repository
}

type serverParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	Clock         core.Clock
	CourseSvc     *course.Service
	GroupSvc      *group.Service
	LeadSvc       *lead.Service
	StudentSvc    *student.Service
	PaymentSvc    *payment.Service
	AttendanceSvc *attendance.Service
	DashboardSvc  *dashboard.Service
}

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("API : ", log.LstdFlags, conf), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger("DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile, conf), conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) storageResult {
	if conf.Database.Driver == MemoryDriver {
		db, err := dummydb.Open()
		if err != nil {
			loggerParam.Logger.Fatal(fmt.Sprintf("opening in-memory database: %v", err), err)
		}
		loggerParam.Logger.Warn("using the in-memory database, data is lost on exit")
		return storageResult{
			Close:      func() error { return nil },
			Tx:         db,
			Courses:    dummydb.NewCourseRepository(db),
			Groups:     dummydb.NewGroupRepository(db),
			Leads:      dummydb.NewLeadRepository(db),
			Students:   dummydb.NewStudentRepository(db),
			Payments:   dummydb.NewPaymentRepository(db),
			Attendance: dummydb.NewAttendanceRepository(db),
		}
	}

	db, err := database.Setup(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return storageResult{
		Close:      db.Close,
		Tx:         database.NewTransactor(db),
		Courses:    pgrepos.NewCourseRepository(db),
		Groups:     pgrepos.NewGroupRepository(db),
		Leads:      pgrepos.NewLeadRepository(db),
		Students:   pgrepos.NewStudentRepository(db),
		Payments:   pgrepos.NewPaymentRepository(db),
		Attendance: pgrepos.NewAttendanceRepository(db),
	}
}

func newClock(conf *core.Config) core.Clock {
	return core.NewClock(conf.Location)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newPaymentService(
	repo payment.Repository,
	students student.Repository,
	groups group.Repository,
	tx core.Transactor,
	clock core.Clock,
	conf *core.Config,
) *payment.Service {
	return payment.NewService(repo, students, groups, tx, clock, conf.Payments)
}

func studentCounter(svc *student.Service) group.StudentCounter { return svc }
func leadConverter(svc *lead.Service) group.LeadConverter      { return svc }

func newScheduler(
	conf *core.Config,
	logger core.Logger,
	clock core.Clock,
	students *student.Service,
	mailSvc core.EmailService,
) (*scheduler.Scheduler, error) {
	s := scheduler.New(conf.Location, logger)
	job := scheduler.NewSweepJob(students, clock, mailSvc, conf.Sweep.Notify, logger)
	if err := s.Add(scheduler.SweepJobName, conf.Sweep.Schedule, conf.Sweep.Timeout, job); err != nil {
		return nil, err
	}
	return s, nil
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Clock:         p.Clock,
		CourseSvc:     p.CourseSvc,
		GroupSvc:      p.GroupSvc,
		LeadSvc:       p.LeadSvc,
		StudentSvc:    p.StudentSvc,
		PaymentSvc:    p.PaymentSvc,
		AttendanceSvc: p.AttendanceSvc,
		DashboardSvc:  p.DashboardSvc,
	})
}

// New returns a new dependency injection dig.Container
func New(newConfig func() *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newClock))
	must(c.Provide(newEmailService))

	must(c.Provide(course.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(studentCounter))
	must(c.Provide(lead.NewService))
	must(c.Provide(leadConverter))
	must(c.Provide(group.NewService))
	must(c.Provide(newPaymentService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(dashboard.NewService))

	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
