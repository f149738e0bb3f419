package dashboard_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/payment"
	"github.com/infast/crm/core/student"
	testutil "github.com/infast/crm/tests"
)

// a Monday
var now = time.Date(2024, time.April, 8, 8, 0, 0, 0, time.UTC)

func TestService_Summary(t *testing.T) {
	ctx := context.Background()
	today := core.DateOf(now)
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "English")

	monday := env.CreateGroup(t, crs.ID, "B-Mon", group.StatusActive, 1, "Mon", "Wed")
	env.CreateGroup(t, crs.ID, "A-Mon", group.StatusActive, 1, "Mon")
	env.CreateGroup(t, crs.ID, "Tue", group.StatusActive, 1, "Tue")
	env.CreateGroup(t, crs.ID, "Recruiting Mon", group.StatusRecruiting, 3, "Mon")

	due := env.CreateStudent(t, monday.ID, "Due Today", testutil.Phone(1), student.StatusActive, testutil.DatePtr(today))
	env.CreateStudent(t, monday.ID, "Stopped Due", testutil.Phone(2), student.StatusStopped, testutil.DatePtr(today))
	debtor := env.CreateStudent(t, monday.ID, "Debtor", testutil.Phone(3), student.StatusDebtor, testutil.DatePtr(today.AddDate(0, 0, -10)))
	env.CreateStudent(t, monday.ID, "Paid Up", testutil.Phone(4), student.StatusActive, testutil.DatePtr(today.AddDate(0, 0, 20)))

	amount := decimal.NewFromInt(250000)
	for _, d := range []time.Time{core.NewDate(2024, time.March, 31), core.NewDate(2024, time.April, 1), core.NewDate(2024, time.April, 8)} {
		_, err := env.Payments.CreatePayment(ctx, payment.Payment{StudentID: due.ID, Amount: amount, PaymentDate: d, PaymentMethod: payment.MethodCard})
		require.NoError(t, err)
	}

	sum, err := env.DashboardSvc.Summary(ctx, now)
	require.NoError(t, err)

	assert.True(t, sum.Date.Equal(today))
	require.Len(t, sum.TodayGroups, 2)
	assert.Equal(t, "A-Mon", sum.TodayGroups[0].Name)
	assert.Equal(t, "B-Mon", sum.TodayGroups[1].Name)
	assert.NotNil(t, sum.TodayGroups[0].Course)

	require.Len(t, sum.PaymentsDueToday, 1)
	assert.Equal(t, due.ID, sum.PaymentsDueToday[0].ID)
	assert.NotNil(t, sum.PaymentsDueToday[0].Group)

	require.Len(t, sum.Debtors, 1)
	assert.Equal(t, debtor.ID, sum.Debtors[0].ID)

	assert.True(t, sum.MonthlyRevenue.Equal(decimal.NewFromInt(500000)), "got %s", sum.MonthlyRevenue)
	assert.Equal(t, 3, sum.ActiveGroupsCount)
	assert.Equal(t, 1, sum.RecruitingGroupsCount)
	assert.Equal(t, 2, sum.ActiveStudentsCount)
}
