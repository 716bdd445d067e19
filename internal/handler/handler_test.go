package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/komix/komix-api/internal/config"
	"github.com/komix/komix-api/internal/middleware"
	"github.com/komix/komix-api/internal/models"
	"github.com/komix/komix-api/internal/repository/memstore"
	"github.com/komix/komix-api/internal/service"
	"github.com/komix/komix-api/internal/session"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type captureMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *captureMailer) SendPasswordReset(_, _, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

func (m *captureMailer) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.links) == 0 {
		return ""
	}
	return m.links[len(m.links)-1]
}

type testEnv struct {
	server *httptest.Server
	svc    *service.Service
	mailer *captureMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.Config{
		BcryptCost:     bcrypt.MinCost,
		ResetTTL:       models.DefaultResetTTL,
		ResetRetention: 24 * time.Hour,
		ResetBaseURL:   "http://localhost:3000/",
	}
	sessions := session.NewManager(client, "test-secret", time.Hour)
	mailer := &captureMailer{}
	svc := service.NewService(memstore.New(), sessions, mailer, logger, cfg)

	h := NewHandler(svc, sessions, logger, cfg)
	server := httptest.NewServer(h.Routes(middleware.AuthMiddleware(sessions, logger)))
	t.Cleanup(server.Close)

	return &testEnv{server: server, svc: svc, mailer: mailer}
}

// client is one browser with its own cookie jar
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (e *testEnv) newClient(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: e.server.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, route string, body any) (int, []byte) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.base+route, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func (c *client) decode(data []byte, v any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(data, v), string(data))
}

// signup registers and logs in a user, returning its id
func (c *client) signup(username string) int64 {
	c.t.Helper()
	status, data := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": username,
		"password": "pass",
		"email":    username + "@example.com",
	})
	require.Equal(c.t, http.StatusOK, status, string(data))
	var created struct {
		ID int64 `json:"id"`
	}
	c.decode(data, &created)

	status, data = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": "pass",
	})
	require.Equal(c.t, http.StatusNoContent, status, string(data))
	return created.ID
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestAlive(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)

	status, data := c.do(http.MethodGet, "/alive", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"alive":true}`, string(data))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)

	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/v1/auth/logout"},
		{http.MethodGet, "/api/v1/projects"},
		{http.MethodPost, "/api/v1/projects"},
		{http.MethodGet, "/api/v1/projects/1"},
		{http.MethodPatch, "/api/v1/projects/1"},
		{http.MethodDelete, "/api/v1/projects/1"},
		{http.MethodGet, "/api/v1/projects/1/chapters"},
		{http.MethodPost, "/api/v1/projects/1/chapters"},
		{http.MethodGet, "/api/v1/projects/1/chapters/1"},
		{http.MethodPatch, "/api/v1/projects/1/chapters/1"},
		{http.MethodDelete, "/api/v1/projects/1/chapters/1"},
		{http.MethodGet, "/api/v1/feed/following"},
		{http.MethodGet, "/api/v1/feed/followers"},
		{http.MethodPost, "/api/v1/feed/follow/1"},
		{http.MethodDelete, "/api/v1/feed/follow/1"},
		{http.MethodGet, "/api/v1/feed/subscriptions"},
		{http.MethodPost, "/api/v1/feed/subscribe/1"},
		{http.MethodDelete, "/api/v1/feed/subscribe/1"},
		{http.MethodGet, "/api/v1/feed/projects/1/subscribers"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			status, data := c.do(rt.method, rt.path, nil)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.JSONEq(t, `{"error":"unauthenticated"}`, string(data))
		})
	}
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)

	c.signup("alice")

	t.Run("duplicate username", func(t *testing.T) {
		status, _ := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"username": "alice", "password": "other", "email": "a2@example.com",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("validation errors name the fields", func(t *testing.T) {
		status, data := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"username": "bob", "email": "not-an-email",
		})
		require.Equal(t, http.StatusBadRequest, status)
		var body errorResponse
		c.decode(data, &body)
		assert.Equal(t, "required", body.Details["password"])
		assert.Equal(t, "email", body.Details["email"])
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		status, _ := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
			"username": "carol", "password": "p", "email": "c@example.com", "role": "admin",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)
	c.signup("alice")

	status, _ := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "alice", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": "nobody", "password": "pass",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)
	c.signup("alice")

	status, _ := c.do(http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = c.do(http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestArtistScenario(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)
	c.signup("artist")

	status, data := c.do(http.MethodPost, "/api/v1/projects", map[string]string{"name": "Book"})
	require.Equal(t, http.StatusOK, status, string(data))
	var project models.Project
	c.decode(data, &project)
	assert.Equal(t, "Book", project.Name)
	projectPath := "/api/v1/projects/" + itoa(project.ID)

	status, _ = c.do(http.MethodPost, "/api/v1/projects", map[string]string{"name": "Book"})
	assert.Equal(t, http.StatusConflict, status)

	status, data = c.do(http.MethodPost, projectPath+"/chapters", map[string]string{"url": "https://cdn.example.com/ch1"})
	require.Equal(t, http.StatusOK, status, string(data))
	var chapter models.Chapter
	c.decode(data, &chapter)
	assert.Equal(t, project.ID, chapter.ProjectID)

	status, data = c.do(http.MethodGet, projectPath+"/chapters", nil)
	require.Equal(t, http.StatusOK, status)
	var chapters []models.Chapter
	c.decode(data, &chapters)
	assert.Len(t, chapters, 1)

	status, data = c.do(http.MethodPatch, projectPath, map[string]string{"description": "A story"})
	require.Equal(t, http.StatusOK, status, string(data))
	c.decode(data, &project)
	assert.Equal(t, "Book", project.Name)
	assert.Equal(t, "A story", project.Description)

	status, _ = c.do(http.MethodDelete, projectPath, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = c.do(http.MethodGet, projectPath+"/chapters", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, data = c.do(http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(data))
}

func TestChapterURLValidation(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)
	c.signup("artist")

	_, data := c.do(http.MethodPost, "/api/v1/projects", map[string]string{"name": "Book"})
	var project models.Project
	c.decode(data, &project)

	status, _ := c.do(http.MethodPost, "/api/v1/projects/"+itoa(project.ID)+"/chapters", map[string]string{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProjectsAreOwnerScoped(t *testing.T) {
	env := newTestEnv(t)
	owner := env.newClient(t)
	other := env.newClient(t)
	owner.signup("owner")
	other.signup("other")

	_, data := owner.do(http.MethodPost, "/api/v1/projects", map[string]string{"name": "Book"})
	var project models.Project
	owner.decode(data, &project)
	projectPath := "/api/v1/projects/" + itoa(project.ID)

	status, _ := other.do(http.MethodGet, projectPath, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = other.do(http.MethodDelete, projectPath, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = other.do(http.MethodPost, projectPath+"/chapters", map[string]string{"url": "https://example.com/x"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFollowScenario(t *testing.T) {
	env := newTestEnv(t)
	reader := env.newClient(t)
	artist := env.newClient(t)
	reader.signup("reader")
	artistID := artist.signup("artist")

	status, data := reader.do(http.MethodPost, "/api/v1/feed/follow/"+itoa(artistID), nil)
	require.Equal(t, http.StatusOK, status, string(data))
	assert.JSONEq(t, `{"id":`+itoa(artistID)+`,"username":"artist"}`, string(data))

	status, data = reader.do(http.MethodGet, "/api/v1/feed/following", nil)
	require.Equal(t, http.StatusOK, status)
	var following []models.UserSummary
	reader.decode(data, &following)
	require.Len(t, following, 1)
	assert.Equal(t, "artist", following[0].Username)

	status, data = artist.do(http.MethodGet, "/api/v1/feed/followers", nil)
	require.Equal(t, http.StatusOK, status)
	var followers []models.UserSummary
	artist.decode(data, &followers)
	require.Len(t, followers, 1)
	assert.Equal(t, "reader", followers[0].Username)

	status, _ = reader.do(http.MethodDelete, "/api/v1/feed/follow/"+itoa(artistID), nil)
	require.Equal(t, http.StatusNoContent, status)

	status, data = artist.do(http.MethodGet, "/api/v1/feed/followers", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(data))

	t.Run("self follow", func(t *testing.T) {
		self := env.newClient(t)
		id := self.signup("narcissus")
		status, _ := self.do(http.MethodPost, "/api/v1/feed/follow/"+itoa(id), nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown user", func(t *testing.T) {
		status, _ := reader.do(http.MethodPost, "/api/v1/feed/follow/9999", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestSubscriptions(t *testing.T) {
	env := newTestEnv(t)
	artist := env.newClient(t)
	reader := env.newClient(t)
	artist.signup("artist")
	reader.signup("reader")

	_, data := artist.do(http.MethodPost, "/api/v1/projects", map[string]string{"name": "Book"})
	var project models.Project
	artist.decode(data, &project)
	id := itoa(project.ID)

	status, data := reader.do(http.MethodPost, "/api/v1/feed/subscribe/"+id, nil)
	require.Equal(t, http.StatusOK, status, string(data))
	assert.JSONEq(t, `{"id":`+id+`,"name":"Book"}`, string(data))

	status, data = reader.do(http.MethodGet, "/api/v1/feed/subscriptions", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[{"id":`+id+`,"name":"Book"}]`, string(data))

	status, data = artist.do(http.MethodGet, "/api/v1/feed/projects/"+id+"/subscribers", nil)
	require.Equal(t, http.StatusOK, status)
	var subscribers []models.UserSummary
	artist.decode(data, &subscribers)
	require.Len(t, subscribers, 1)
	assert.Equal(t, "reader", subscribers[0].Username)

	status, _ = reader.do(http.MethodGet, "/api/v1/feed/projects/"+id+"/subscribers", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = reader.do(http.MethodDelete, "/api/v1/feed/subscribe/"+id, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = reader.do(http.MethodPost, "/api/v1/feed/subscribe/9999", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)
	c.signup("alice")

	status, _ := c.do(http.MethodPost, "/api/v1/auth/login/reset", map[string]string{"username": "nobody"})
	assert.Equal(t, http.StatusNotFound, status)

	status, data := c.do(http.MethodPost, "/api/v1/auth/login/reset", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusNoContent, status, string(data))
	env.svc.Wait()
	link := env.mailer.last()
	require.NotEmpty(t, link)
	token := path.Base(link)

	apply := map[string]string{"token": token, "password": "new-pass"}
	status, data = c.do(http.MethodPost, "/api/v1/auth/reset", apply)
	require.Equal(t, http.StatusNoContent, status, string(data))

	// sessions opened before the reset are gone
	status, _ = c.do(http.MethodGet, "/api/v1/projects", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/reset", apply)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice", "password": "pass"})
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"username": "alice", "password": "new-pass"})
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = c.do(http.MethodPost, "/api/v1/auth/reset", map[string]string{
		"token": "6f1c1f0e-2b7a-4c3e-9d1e-000000000000", "password": "x",
	})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMultibytePasswordOverBcryptLimit(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)
	long := strings.Repeat("é", 72)

	status, data := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"username": "multi", "password": long, "email": "multi@example.com",
	})
	require.Equal(t, http.StatusBadRequest, status, string(data))
	var body errorResponse
	c.decode(data, &body)
	assert.Equal(t, "max", body.Details["password"])

	c.signup("alice")
	status, _ = c.do(http.MethodPost, "/api/v1/auth/login/reset", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusNoContent, status)
	env.svc.Wait()
	token := path.Base(env.mailer.last())

	status, data = c.do(http.MethodPost, "/api/v1/auth/reset", map[string]string{"token": token, "password": long})
	require.Equal(t, http.StatusBadRequest, status, string(data))
	c.decode(data, &body)
	assert.Equal(t, "max", body.Details["password"])
}

// post sends a raw body, bypassing JSON encoding
func (c *client) post(route, body string) (int, []byte) {
	c.t.Helper()
	resp, err := c.http.Post(c.base+route, "application/json", strings.NewReader(body))
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	c := env.newClient(t)

	cases := map[string]string{
		"not json":       `username=alice`,
		"truncated":      `{"username":"alice"`,
		"trailing value": `{"username":"alice","password":"pass","email":"a@example.com"}{"x":1}`,
		"trailing junk":  `{"username":"alice","password":"pass","email":"a@example.com"} x`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			status, data := c.post("/api/v1/auth/register", body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.JSONEq(t, `{"error":"malformed request body"}`, string(data))
		})
	}

	// nothing was registered by the rejected bodies
	status, _ := c.post("/api/v1/auth/register", `{"username":"alice","password":"pass","email":"a@example.com"}`)
	assert.Equal(t, http.StatusOK, status)
}
