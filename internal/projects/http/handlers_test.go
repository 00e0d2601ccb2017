package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birdboard/birdboard-backend/internal/auth"
	"github.com/birdboard/birdboard-backend/internal/projects/domain"
	"github.com/birdboard/birdboard-backend/internal/projects/service"
	"github.com/birdboard/birdboard-backend/internal/testing/fakes"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(store *fakes.Store) *gin.Engine {
	projects := service.NewProjectService(store.Projects(), store.Tasks(), nil)
	tasks := service.NewTaskService(store.Projects(), store.Tasks(), nil)

	r := gin.New()
	r.Use(auth.Identify(auth.HeaderResolver{}, store.Users()))
	New(projects, tasks, "/login").Register(r.Group("/", auth.RequireUser("/login")))
	return r
}

func do(r http.Handler, method, path, user string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// createProject posts a project as user and returns its path.
func createProject(t *testing.T, r http.Handler, user, title string) string {
	t.Helper()
	w := do(r, http.MethodPost, "/projects", user, gin.H{"title": title, "description": "D"})
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	loc := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(loc, "/projects/"), loc)
	return loc
}

func decodeErrors(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Errors
}

func TestGuestsAreRedirectedToLogin(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)
	path := createProject(t, r, "alice", "T")

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/projects", nil},
		{http.MethodGet, "/projects/create", nil},
		{http.MethodPost, "/projects", gin.H{"title": "T", "description": "D"}},
		{http.MethodGet, path, nil},
		{http.MethodPatch, path, gin.H{"notes": "x"}},
		{http.MethodPost, path + "/tasks", gin.H{"body": "Test task"}},
		{http.MethodPatch, "/tasks/some-task", gin.H{"completed": true}},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := do(r, tc.method, tc.path, "", tc.body)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, "/login", w.Header().Get("Location"))
		})
	}

	assert.Len(t, store.AllProjects(), 1)
	assert.Empty(t, store.AllTasks())
}

func TestUserCanCreateProject(t *testing.T) {
	r := newTestRouter(fakes.NewStore())

	path := createProject(t, r, "alice", "T")

	w := do(r, http.MethodGet, "/projects", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"T"`)

	w = do(r, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"description":"D"`)
}

func TestCreateProjectFromForm(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)

	form := url.Values{"title": {"Form"}, "description": {"From a form"}, "notes": {"n"}}
	req := httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-User-Id", "alice")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusSeeOther, w.Code)
	projects := store.AllProjects()
	require.Len(t, projects, 1)
	assert.Equal(t, "Form", projects[0].Title)
	assert.Equal(t, "n", projects[0].Notes)
	assert.Equal(t, projects[0].Path(), w.Header().Get("Location"))
}

func TestProjectValidation(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)

	t.Run("title required", func(t *testing.T) {
		w := do(r, http.MethodPost, "/projects", "alice", gin.H{"title": "", "description": "x"})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		errs := decodeErrors(t, w)
		assert.Contains(t, errs, "title")
		assert.NotContains(t, errs, "description")
	})

	t.Run("description required", func(t *testing.T) {
		w := do(r, http.MethodPost, "/projects", "alice", gin.H{"title": "T"})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeErrors(t, w), "description")
	})

	t.Run("notes limited to 255 characters", func(t *testing.T) {
		w := do(r, http.MethodPost, "/projects", "alice", gin.H{"title": "T", "description": "D", "notes": strings.Repeat("a", 256)})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeErrors(t, w), "notes")
	})

	assert.Empty(t, store.AllProjects())
}

func TestCreateForm(t *testing.T) {
	r := newTestRouter(fakes.NewStore())

	w := do(r, http.MethodGet, "/projects/create", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"action":"/projects"`)
	assert.Contains(t, w.Body.String(), `"name":"notes"`)
}

func TestOnlyOwnProjectsAreListed(t *testing.T) {
	r := newTestRouter(fakes.NewStore())
	createProject(t, r, "alice", "Mine")
	createProject(t, r, "bob", "Theirs")

	w := do(r, http.MethodGet, "/projects", "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Mine")
	assert.NotContains(t, w.Body.String(), "Theirs")
}

func TestUserCannotViewOthersProjects(t *testing.T) {
	r := newTestRouter(fakes.NewStore())
	path := createProject(t, r, "alice", "T")

	w := do(r, http.MethodGet, path, "bob", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/projects/proj-00000-0000", "alice", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOwnerCanUpdateNotes(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)
	path := createProject(t, r, "alice", "T")

	w := do(r, http.MethodPatch, path, "alice", gin.H{"notes": "changed", "title": "ignored"})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, path, w.Header().Get("Location"))

	p := store.AllProjects()[0]
	assert.Equal(t, "changed", p.Notes)
	assert.Equal(t, "T", p.Title)

	w = do(r, http.MethodPatch, path, "alice", gin.H{"notes": strings.Repeat("n", 256)})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeErrors(t, w), "notes")
	assert.Equal(t, "changed", store.AllProjects()[0].Notes)
}

func TestNonOwnerCannotUpdateProject(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)
	path := createProject(t, r, "alice", "T")

	w := do(r, http.MethodPatch, path, "bob", gin.H{"notes": "x"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "", store.AllProjects()[0].Notes)
}

func TestOwnerCanAddTasks(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)
	path := createProject(t, r, "alice", "T")

	w := do(r, http.MethodPost, path+"/tasks", "alice", gin.H{"body": "Test task"})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, path, w.Header().Get("Location"))

	w = do(r, http.MethodGet, path, "alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Test task")
}

func TestNonOwnerCannotAddTasks(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)
	path := createProject(t, r, "alice", "T")

	w := do(r, http.MethodPost, path+"/tasks", "bob", gin.H{"body": "Test task"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, store.AllTasks())
}

func TestTaskRequiresBody(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)
	path := createProject(t, r, "alice", "T")

	w := do(r, http.MethodPost, path+"/tasks", "alice", gin.H{"body": ""})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decodeErrors(t, w), "body")
	assert.Empty(t, store.AllTasks())
}

func TestTaskUpdates(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)
	path := createProject(t, r, "alice", "T")
	require.Equal(t, http.StatusSeeOther, do(r, http.MethodPost, path+"/tasks", "alice", gin.H{"body": "test task"}).Code)
	task := store.AllTasks()[0]

	t.Run("non-owner cannot update", func(t *testing.T) {
		w := do(r, http.MethodPatch, task.Path(), "bob", gin.H{"body": "changed"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "test task", store.AllTasks()[0].Body)
	})

	t.Run("owner updates body and completed", func(t *testing.T) {
		w := do(r, http.MethodPatch, task.Path(), "alice", gin.H{"body": "changed", "completed": true})
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, path, w.Header().Get("Location"))

		got := store.AllTasks()[0]
		assert.Equal(t, "changed", got.Body)
		assert.True(t, got.Completed)
	})

	t.Run("nested path", func(t *testing.T) {
		w := do(r, http.MethodPatch, path+"/tasks/"+task.ID, "alice", gin.H{"completed": false})
		require.Equal(t, http.StatusSeeOther, w.Code)
		got := store.AllTasks()[0]
		assert.False(t, got.Completed)
		assert.Equal(t, "changed", got.Body)
	})

	t.Run("nested path under the wrong project", func(t *testing.T) {
		other := createProject(t, r, "alice", "Other")
		w := do(r, http.MethodPatch, other+"/tasks/"+task.ID, "alice", gin.H{"completed": true})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("empty body rejected", func(t *testing.T) {
		w := do(r, http.MethodPatch, task.Path(), "alice", gin.H{"body": ""})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, decodeErrors(t, w), "body")
	})

	t.Run("unknown task", func(t *testing.T) {
		w := do(r, http.MethodPatch, "/tasks/nope", "alice", gin.H{"completed": true})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMalformedBody(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)
	path := createProject(t, r, "alice", "T")
	require.Equal(t, http.StatusSeeOther, do(r, http.MethodPost, path+"/tasks", "alice", gin.H{"body": "x"}).Code)
	taskID := store.AllTasks()[0].ID

	send := func(method, target, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-Id", user)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	tests := []struct {
		name   string
		method string
		target string
		user   string
		want   int
	}{
		{"owner creates project", http.MethodPost, "/projects", "alice", http.StatusBadRequest},
		{"owner updates project", http.MethodPatch, path, "alice", http.StatusBadRequest},
		{"non-owner updates project", http.MethodPatch, path, "bob", http.StatusForbidden},
		{"non-owner adds task", http.MethodPost, path + "/tasks", "bob", http.StatusForbidden},
		{"non-owner updates task", http.MethodPatch, "/tasks/" + taskID, "bob", http.StatusForbidden},
		{"non-owner updates nested task", http.MethodPatch, path + "/tasks/" + taskID, "bob", http.StatusForbidden},
		{"owner updates task", http.MethodPatch, "/tasks/" + taskID, "alice", http.StatusBadRequest},
		{"missing project", http.MethodPatch, "/projects/proj-missing", "bob", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, send(tt.method, tt.target, tt.user).Code)
		})
	}

	assert.Equal(t, "", store.AllProjects()[0].Notes)
	assert.Len(t, store.AllTasks(), 1)
}

func TestStoreFailureIsInternalError(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)
	path := createProject(t, r, "alice", "T")

	// the user row exists already; break the store only for the project lookup
	projects := service.NewProjectService(store.Projects(), store.Tasks(), nil)
	tasks := service.NewTaskService(store.Projects(), store.Tasks(), nil)
	h := New(projects, tasks, "/login")

	broken := gin.New()
	broken.Use(func(c *gin.Context) {
		c.Set(auth.CtxUserID, store.UserID("alice"))
		c.Next()
	})
	h.Register(broken)

	store.Err = errors.New("db down")
	w := do(broken, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestOwnerSeesOwnProjectPath(t *testing.T) {
	store := fakes.NewStore()
	r := newTestRouter(store)
	path := createProject(t, r, "alice", "T")

	p := store.AllProjects()[0]
	assert.Equal(t, store.UserID("alice"), p.OwnerID)
	assert.Equal(t, p.Path(), path)
	assert.Equal(t, (&domain.Project{ID: p.ID}).TasksPath(), path+"/tasks")
}
