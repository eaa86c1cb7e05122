package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chantierhq/chantier/internal/apiserver/database"
)

func TestMe(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.createUser("alice", database.RoleTechnician)

	w := e.request("GET", "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "technicien", body["role"])
	assert.NotContains(t, w.Body.String(), "password")
}

func TestUpdateMe(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.createUser("alice", database.RoleMember)
	e.createUser("bob", database.RoleMember)

	w := e.request("PUT", "/api/users/me", token, gin.H{"firstName": "Alice", "email": "new@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Alice", body["firstName"])
	assert.Equal(t, "new@example.com", body["email"])

	// taken email is rejected
	w = e.request("PUT", "/api/users/me", token, gin.H{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request("PUT", "/api/users/me", token, gin.H{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchUsers(t *testing.T) {
	e := newTestEnv(t)
	_, token := e.createUser("alice", database.RoleMember)
	e.createUser("alfred", database.RoleMember)
	e.createUser("bob", database.RoleMember)

	w := e.request("GET", "/api/users/search?q=al", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 2)

	w = e.request("GET", "/api/users/search?q=a", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.request("GET", "/api/users/search", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMyTasks(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.createUser("owner", database.RoleMember)
	tech, token := e.createUser("tech", database.RoleTechnician)

	p := e.createProject("site", owner.ID)
	e.createTask(p.ID, owner.ID, &tech.ID)
	done := e.createTask(p.ID, owner.ID, &tech.ID)
	done.Status = "completed"
	require.NoError(t, e.db.UpdateTask(context.Background(), done))

	w := e.request("GET", "/api/users/me/tasks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tasks []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	assert.Len(t, tasks, 1)
}
