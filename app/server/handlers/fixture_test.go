package handlers

import (
	"alumni-network/app/server/envelope"
	"alumni-network/app/server/jwt"
	"alumni-network/app/server/metrics"
	"alumni-network/app/server/middlewares"
	"alumni-network/app/server/models"
	"alumni-network/app/server/notify"
	"alumni-network/app/server/principals"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// 测试用的轻量参数
var testArgon = &argon2id.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type captureDispatcher struct {
	mu    sync.Mutex
	codes map[string]string
	fail  bool
}

func (d *captureDispatcher) SendOTP(_ context.Context, email, code string) notify.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fail {
		return notify.Result{Success: false, Message: "mailbox unavailable"}
	}
	d.codes[email] = code
	return notify.Result{Success: true}
}

func (d *captureDispatcher) code(email string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.codes[email]
}

type fixture struct {
	e       *echo.Echo
	app     *App
	mr      *miniredis.Miniredis
	members *principals.MemoryStore[models.Member]
	admins  *principals.MemoryStore[models.Admin]
	mail    *captureDispatcher
	metrics *metrics.Provider
	clock   time.Time
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		members: principals.NewMemoryStore[models.Member](),
		admins:  principals.NewMemoryStore[models.Admin](),
		mail:    &captureDispatcher{codes: map[string]string{}},
		clock:   time.Now(),
	}

	var rdb *redis.Client
	f.mr, rdb = newTestRedis(t)

	j, err := jwt.New("access-secret", 15*time.Minute, "refresh-secret", 240*time.Hour)
	require.NoError(t, err)

	f.metrics = metrics.NewProvider()
	mtr, err := metrics.NewAuth(f.metrics.MeterProvider())
	require.NoError(t, err)

	dir := principals.NewDirectory(f.members, f.admins)
	l := zap.NewNop()

	f.app = NewApp(l, rdb, j, dir, f.mail, mtr, f.metrics, false)
	f.app.argon = testArgon
	f.app.now = func() time.Time { return f.clock }

	f.e = echo.New()
	f.e.HTTPErrorHandler = envelope.ErrorHandler(l)
	f.app.RegisterRoutes(f.e, middlewares.NewGuard(j, dir, rdb, l))

	return f
}

func (f *fixture) seedMember(t *testing.T, email, username, password string, role models.Role) *models.Member {
	t.Helper()

	hash, err := argon2id.CreateHash(password, testArgon)
	require.NoError(t, err)

	m := &models.Member{Email: email, Username: username, Role: role}
	m.Password = hash
	require.NoError(t, f.members.Create(context.Background(), m))
	return m
}

func (f *fixture) seedAdmin(t *testing.T, email, password string) *models.Admin {
	t.Helper()

	hash, err := argon2id.CreateHash(password, testArgon)
	require.NoError(t, err)

	a := &models.Admin{Email: email, Name: "Root"}
	a.Password = hash
	require.NoError(t, f.admins.Create(context.Background(), a))
	return a
}

type result struct {
	rec *httptest.ResponseRecorder

	StatusCode int             `json:"statusCode"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Success    bool            `json:"success"`
	Errors     *[]string       `json:"errors"`
}

func (r *result) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v))
}

func (r *result) cookie(name string) *http.Cookie {
	for _, c := range r.rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func withBearer(tok string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
}

func withCookie(name, value string) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

// do 发送请求，并检查响应是否符合统一的信封格式
func (f *fixture) do(t *testing.T, method, path string, body interface{}, opts ...func(*http.Request)) *result {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	res := &result{rec: rec}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), res), rec.Body.String())

	assert.Equal(t, rec.Code, res.StatusCode)
	if rec.Code < http.StatusBadRequest {
		assert.True(t, res.Success)
		assert.Nil(t, res.Errors)
	} else {
		assert.False(t, res.Success)
		assert.NotNil(t, res.Errors)
		assert.NotEmpty(t, res.Message)
	}

	return res
}

type loginData struct {
	User         *models.Member `json:"user"`
	Admin        *models.Admin  `json:"admin"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	UserType     models.Kind    `json:"userType"`
}

func (f *fixture) login(t *testing.T, email, password string) loginData {
	t.Helper()

	res := f.do(t, http.MethodPost, "/api/v1/login", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, res.StatusCode, res.Message)

	var data loginData
	res.decode(t, &data)
	return data
}
