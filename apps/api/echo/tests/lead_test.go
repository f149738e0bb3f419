package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/lead"
	"github.com/infast/crm/core/student"
	testutil "github.com/infast/crm/tests"
)

func Test_leadApi(t *testing.T) {
	app := setup(t)
	env := app.env
	crs := env.CreateCourse(t, "English")
	recruiting := env.CreateGroup(t, crs.ID, "EN-1", group.StatusRecruiting, 3, "Mon")
	active := env.CreateGroup(t, crs.ID, "EN-0", group.StatusActive, 1, "Tue")

	tests := []httpTest{
		{
			name: "active group takes no leads", body: []byte(`{"name": "Ali", "phone": "+998901112233", "group_id": "` + active.ID + `"}`),
			wantCode: http.StatusConflict,
		},
		{name: "invalid phone", body: []byte(`{"name": "Ali", "phone": "call me", "group_id": "` + recruiting.ID + `"}`), wantCode: http.StatusBadRequest},
		{name: "created", body: []byte(`{"name": " Ali ", "phone": "+998901112233", "group_id": "` + recruiting.ID + `"}`), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(http.MethodPost, "/v1/leads", tt.body))
		})
	}

	rec := app.do(http.MethodGet, "/v1/leads?search=ALI")
	require.Equal(t, http.StatusOK, rec.Code)
	var leads []lead.Lead
	decode(t, rec, &leads)
	require.Len(t, leads, 1)
	assert.Equal(t, "Ali", leads[0].Name)
	assert.Equal(t, lead.StatusInterested, leads[0].LeadStatus)

	t.Run("convert", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/v1/leads/"+leads[0].ID+"/convert")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var std student.Student
		decode(t, rec, &std)
		assert.Equal(t, student.StatusActive, std.Status)
		assert.Equal(t, recruiting.ID, std.GroupID)
		assert.Equal(t, "2024-04-08", std.JoinedDate.Format("2006-01-02"))

		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "lead not found"})},
			app.do(http.MethodPost, "/v1/leads/"+leads[0].ID+"/convert"))
	})

	t.Run("convert duplicate phone", func(t *testing.T) {
		dup := env.CreateLead(t, recruiting.ID, "Ali again", "+998901112233", time.Minute)
		rec := app.do(http.MethodPost, "/v1/leads/"+dup.ID+"/convert")
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
		assert.Equal(t, http.StatusOK, app.do(http.MethodGet, "/v1/leads/"+dup.ID).Code, "lead is kept")
	})

	t.Run("update and delete", func(t *testing.T) {
		ld := env.CreateLead(t, recruiting.ID, "Sardor", testutil.Phone(9), 0)
		rec := app.do(http.MethodPut, "/v1/leads/"+ld.ID, []byte(`{"lead_status": "CONFIRMED"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got lead.Lead
		decode(t, rec, &got)
		assert.Equal(t, lead.StatusConfirmed, got.LeadStatus)

		assert.Equal(t, http.StatusBadRequest, app.do(http.MethodPut, "/v1/leads/"+ld.ID, []byte(`{"lead_status": "MAYBE"}`)).Code)
		assert.Equal(t, http.StatusNoContent, app.do(http.MethodDelete, "/v1/leads/"+ld.ID).Code)
		assert.Equal(t, http.StatusNotFound, app.do(http.MethodDelete, "/v1/leads/"+ld.ID).Code)
	})
}
