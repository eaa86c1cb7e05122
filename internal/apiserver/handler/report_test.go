package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantierhq/chantier/internal/apiserver/database"
)

func TestCreateReportAssignmentScope(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.createUser("owner", database.RoleMember)
	tech, techToken := e.createUser("tech", database.RoleTechnician)
	_, otherToken := e.createUser("tech2", database.RoleTechnician)
	_, memberToken := e.createUser("member", database.RoleMember)

	p := e.createProject("site", owner.ID)
	assigned := e.createTask(p.ID, owner.ID, &tech.ID)
	unassigned := e.createTask(p.ID, owner.ID, nil)

	w := e.request("POST", "/api/reports", techToken, gin.H{
		"taskId":    assigned.ID,
		"title":     "fixed the pump",
		"timeSpent": 2.5,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "draft", body["status"])
	assert.Equal(t, float64(tech.ID), body["technicianId"])

	// not the assignee
	w = e.request("POST", "/api/reports", otherToken, gin.H{
		"taskId":    assigned.ID,
		"title":     "not mine",
		"timeSpent": 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.request("POST", "/api/reports", techToken, gin.H{
		"taskId":    unassigned.ID,
		"title":     "unassigned",
		"timeSpent": 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// only technicians file reports
	w = e.request("POST", "/api/reports", memberToken, gin.H{
		"taskId":    assigned.ID,
		"title":     "wrong role",
		"timeSpent": 1,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.request("POST", "/api/reports", techToken, gin.H{"taskId": assigned.ID, "title": "no time"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request("POST", "/api/reports", techToken, gin.H{"taskId": 9999, "title": "gone", "timeSpent": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTaskReportsNarrowedForTechnicians(t *testing.T) {
	e := newTestEnv(t)
	owner, ownerToken := e.createUser("owner", database.RoleMember)
	tech, techToken := e.createUser("tech", database.RoleTechnician)
	other, _ := e.createUser("tech2", database.RoleTechnician)

	p := e.createProject("site", owner.ID)
	task := e.createTask(p.ID, owner.ID, &tech.ID)

	for _, r := range []*database.InterventionReport{
		{TaskID: task.ID, TechnicianID: tech.ID, Title: "mine", TimeSpent: 1, Status: database.ReportStatusDraft},
		{TaskID: task.ID, TechnicianID: other.ID, Title: "theirs", TimeSpent: 1, Status: database.ReportStatusDraft},
	} {
		require.NoError(t, e.db.CreateReport(context.Background(), r))
	}
	path := fmt.Sprintf("/api/reports/task/%d", task.ID)

	var reports []map[string]any
	w := e.request("GET", path, techToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "mine", reports[0]["title"])

	w = e.request("GET", path, ownerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	assert.Len(t, reports, 2)
}

func TestReportListingRoleGates(t *testing.T) {
	e := newTestEnv(t)
	_, supportToken := e.createUser("support", database.RoleSupport)
	tech, techToken := e.createUser("tech", database.RoleTechnician)
	owner, _ := e.createUser("owner", database.RoleMember)

	p := e.createProject("site", owner.ID)
	task := e.createTask(p.ID, owner.ID, &tech.ID)
	require.NoError(t, e.db.CreateReport(context.Background(), &database.InterventionReport{
		TaskID: task.ID, TechnicianID: tech.ID, Title: "r", TimeSpent: 1, Status: database.ReportStatusDraft,
	}))

	w := e.request("GET", "/api/reports", supportToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.request("GET", "/api/reports", techToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.request("GET", "/api/reports/mine", techToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var reports []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reports))
	assert.Len(t, reports, 1)

	w = e.request("GET", "/api/reports/mine", supportToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateReport(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.createUser("owner", database.RoleMember)
	tech, techToken := e.createUser("tech", database.RoleTechnician)
	_, otherToken := e.createUser("tech2", database.RoleTechnician)
	_, leadToken := e.createUser("lead", database.RoleProjectLead)

	p := e.createProject("site", owner.ID)
	task := e.createTask(p.ID, owner.ID, &tech.ID)
	report := &database.InterventionReport{
		TaskID: task.ID, TechnicianID: tech.ID, Title: "r", TimeSpent: 1, Status: database.ReportStatusDraft,
	}
	require.NoError(t, e.db.CreateReport(context.Background(), report))
	path := fmt.Sprintf("/api/reports/%d", report.ID)

	w := e.request("PUT", path, techToken, gin.H{"status": "submitted"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "submitted", decodeBody(t, w)["status"])

	w = e.request("PUT", path, techToken, gin.H{"status": "rejected"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request("PUT", path, otherToken, gin.H{"title": "hijack"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// supervising role may edit
	w = e.request("PUT", path, leadToken, gin.H{"status": "approved"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDeleteReport(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.createUser("owner", database.RoleMember)
	tech, techToken := e.createUser("tech", database.RoleTechnician)
	_, leadToken := e.createUser("lead", database.RoleProjectLead)
	_, adminToken := e.createUser("admin", database.RoleAdmin)

	p := e.createProject("site", owner.ID)
	task := e.createTask(p.ID, owner.ID, &tech.ID)

	newReport := func() *database.InterventionReport {
		r := &database.InterventionReport{
			TaskID: task.ID, TechnicianID: tech.ID, Title: "r", TimeSpent: 1, Status: database.ReportStatusDraft,
		}
		require.NoError(t, e.db.CreateReport(context.Background(), r))
		return r
	}

	r := newReport()
	w := e.request("DELETE", fmt.Sprintf("/api/reports/%d", r.ID), leadToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.request("DELETE", fmt.Sprintf("/api/reports/%d", r.ID), techToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	r = newReport()
	w = e.request("DELETE", fmt.Sprintf("/api/reports/%d", r.ID), adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
