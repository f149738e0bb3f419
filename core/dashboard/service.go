// Package dashboard computes the daily overview shown on the CRM home page.
package dashboard

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/course"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/payment"
	"github.com/infast/crm/core/student"
)

type Summary struct {
	Date                  time.Time         `json:"date"`
	TodayGroups           []group.Group     `json:"today_groups"`
	PaymentsDueToday      []student.Student `json:"payments_due_today"`
	Debtors               []student.Student `json:"debtors"`
	MonthlyRevenue        decimal.Decimal   `json:"monthly_revenue"`
	ActiveGroupsCount     int               `json:"active_groups_count"`
	RecruitingGroupsCount int               `json:"recruiting_groups_count"`
	ActiveStudentsCount   int               `json:"active_students_count"`
}

type Service struct {
	groups   group.Repository
	courses  course.Repository
	students student.Repository
	payments *payment.Service
}

func NewService(groups group.Repository, courses course.Repository, students student.Repository, payments *payment.Service) *Service {
	return &Service{groups: groups, courses: courses, students: students, payments: payments}
}

// Summary builds the overview for the calendar day of now.
func (svc *Service) Summary(ctx context.Context, now time.Time) (Summary, error) {
	today := core.DateOf(now)
	tomorrow := today.AddDate(0, 0, 1)
	horizon := today.AddDate(0, 0, student.DebtorHorizonDays)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	byName := []core.DBOrdering{{Field: "full_name", Ascending: true}}

	sum := Summary{Date: today}
	var err error

	sum.TodayGroups, err = svc.groups.QueryGroups(ctx, &group.QueryFilter{
		Status:  group.StatusActive,
		Weekday: group.WeekdayOf(today),
	}, []core.DBOrdering{{Field: "name", Ascending: true}})
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying today's groups")
	}
	ptrs := make([]*group.Group, 0, len(sum.TodayGroups))
	for i := range sum.TodayGroups {
		ptrs = append(ptrs, &sum.TodayGroups[i])
	}
	if err = group.Populate(ctx, svc.courses, ptrs...); err != nil {
		return Summary{}, err
	}

	sum.PaymentsDueToday, err = svc.students.QueryStudents(ctx, &student.QueryFilter{
		NextPaymentFrom: &today,
		NextPaymentTo:   &tomorrow,
		ExcludeStatuses: []string{student.StatusStopped},
	}, byName)
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying payments due today")
	}

	sum.Debtors, err = svc.students.QueryStudents(ctx, &student.QueryFilter{
		Status:        student.StatusDebtor,
		NextPaymentTo: &horizon,
	}, []core.DBOrdering{{Field: "next_payment_date", Ascending: true}})
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying debtors")
	}

	if err = student.Populate(ctx, svc.groups, sum.PaymentsDueToday); err != nil {
		return Summary{}, err
	}
	if err = student.Populate(ctx, svc.groups, sum.Debtors); err != nil {
		return Summary{}, err
	}

	sum.MonthlyRevenue, err = svc.payments.Revenue(ctx, monthStart, monthEnd)
	if err != nil {
		return Summary{}, errors.Wrap(err, "summing monthly revenue")
	}

	if sum.ActiveGroupsCount, err = svc.groups.CountGroups(ctx, &group.QueryFilter{Status: group.StatusActive}); err != nil {
		return Summary{}, errors.Wrap(err, "counting active groups")
	}
	if sum.RecruitingGroupsCount, err = svc.groups.CountGroups(ctx, &group.QueryFilter{Status: group.StatusRecruiting}); err != nil {
		return Summary{}, errors.Wrap(err, "counting recruiting groups")
	}
	if sum.ActiveStudentsCount, err = svc.students.CountStudents(ctx, &student.QueryFilter{Status: student.StatusActive}); err != nil {
		return Summary{}, errors.Wrap(err, "counting active students")
	}
	return sum, nil
}
