package course_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/course"
	testutil "github.com/infast/crm/tests"
)

var now = time.Date(2024, time.January, 10, 10, 0, 0, 0, time.UTC)

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	inactive := false

	tests := []struct {
		name       string
		nc         course.NewCourse
		wantFields []string
		wantActive bool
	}{
		{
			name:       "valid",
			nc:         course.NewCourse{Name: " IELTS ", MonthlyPrice: decimal.NewFromInt(600000), LessonsPerMonth: 12},
			wantActive: true,
		},
		{
			name: "inactive",
			nc:   course.NewCourse{Name: "Old", MonthlyPrice: decimal.Zero, LessonsPerMonth: 8, IsActive: &inactive},
		},
		{
			name:       "invalid",
			nc:         course.NewCourse{MonthlyPrice: decimal.NewFromInt(-5)},
			wantFields: []string{"name", "monthly_price", "lessons_per_month"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := env.CourseSvc.Create(ctx, tt.nc)
			if tt.wantFields != nil {
				var valErr *core.ValidationError
				require.True(t, errors.As(err, &valErr), "got %v", err)
				fields := make([]string, 0, len(valErr.Fields))
				for _, f := range valErr.Fields {
					fields = append(fields, f.Field)
				}
				assert.ElementsMatch(t, tt.wantFields, fields)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, c.ID)
			assert.Equal(t, tt.wantActive, c.IsActive)
			assert.True(t, c.CreatedAt.Equal(now))
		})
	}
}

func TestService_QueryUpdateDelete(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	env.CreateCourse(t, "Math")
	eng := env.CreateCourse(t, "English")

	courses, err := env.CourseSvc.Query(ctx, &course.QueryFilter{Search: "ENG"}, nil)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, eng.ID, courses[0].ID)

	courses, err = env.CourseSvc.Query(ctx, nil, []core.DBOrdering{{Field: "name", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "English", courses[0].Name)

	env.Clock.Set(now.Add(time.Hour))
	price := decimal.NewFromInt(700000)
	updated, err := env.CourseSvc.Update(ctx, eng.ID, course.UpdateCourse{MonthlyPrice: &price})
	require.NoError(t, err)
	assert.True(t, updated.MonthlyPrice.Equal(price))
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	require.NoError(t, env.CourseSvc.Delete(ctx, eng.ID))
	_, err = env.CourseSvc.GetByID(ctx, eng.ID)
	assert.True(t, core.IsNotFound(err), "got %v", err)
	assert.True(t, core.IsNotFound(env.CourseSvc.Delete(ctx, eng.ID)))
}
