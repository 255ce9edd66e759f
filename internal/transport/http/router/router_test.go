package router_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/core/config"
	"hrms-backend/internal/core/database"
	"hrms-backend/internal/core/metrics"
	"hrms-backend/internal/domain"
	"hrms-backend/internal/repo"
	"hrms-backend/internal/service"
	"hrms-backend/internal/transport/http/router"
)

type pingModule struct {
	name string
	prio int
	log  *[]string
}

func (m pingModule) Priority() int { return m.prio }

func (m pingModule) MountAPI(g *gin.RouterGroup) {
	*m.log = append(*m.log, m.name)
	g.GET("/"+m.name, func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"user": c.GetString("userId")}) })
}

func newDeps(t *testing.T) router.Deps {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	store := repo.NewStore(db)
	d := service.Deps{
		Store:   store,
		Hasher:  auth.NewHasher(4),
		JWT:     &auth.JWTer{Secret: []byte("router-test"), Issuer: "hrms", TTL: time.Minute},
		Refresh: service.NewRefreshManager(&auth.RefreshTokens{TTL: auth.DefaultRefreshTTL}, nil),
		Roles:   service.NewRoleService(store, "", nil),
	}
	return router.Deps{
		Auth:  service.NewAuthService(d, nil),
		Users: service.NewUserService(d),
	}
}

func serve(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegistry_PriorityOrder(t *testing.T) {
	var order []string
	reg := router.NewRegistry(
		pingModule{name: "late", prio: 200, log: &order},
		pingModule{name: "early", prio: 10, log: &order},
	)
	assert.False(t, reg.Register(struct{}{}))

	r := gin.New()
	reg.MountAll(r.Group("/api/v1"))
	assert.Equal(t, []string{"early", "late"}, order)
}

func TestAPIEngine_HealthAndRequestID(t *testing.T) {
	d := newDeps(t)
	r := router.NewAPIEngine(d, router.Options{})

	w := serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	d.Health = func(context.Context) error { return errors.New("db down") }
	r = router.NewAPIEngine(d, router.Options{})
	w = serve(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPIEngine_ModulesAreGuarded(t *testing.T) {
	d := newDeps(t)
	var order []string
	d.Modules = router.NewRegistry(pingModule{name: "ping", log: &order})
	r := router.NewAPIEngine(d, router.Options{})

	w := serve(r, http.MethodGet, "/api/v1/ping", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodPost, "/api/v1/auth/register", `{"email":"a@example.com","password":"Passw0rd!","full_name":"A"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	pair, err := d.Auth.Login(context.Background(), service.LoginInput{Email: "a@example.com", Password: "Passw0rd!"}, domain.ClientMeta{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), pair.User.UserID)
}

func TestAPIEngine_AuthRateLimitPerIP(t *testing.T) {
	d := newDeps(t)
	r := router.NewAPIEngine(d, router.Options{Limits: config.Limits{AuthRPS: 0.001, AuthBurst: 1}})

	body := `{"email":"nobody@example.com","password":"x"}`
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/api/v1/auth/login", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/api/v1/auth/login", body).Code)
}

func TestAPIEngine_Metrics(t *testing.T) {
	d := newDeps(t)
	reg := prometheus.NewRegistry()
	d.Metrics = metrics.NewCollector(reg)
	d.Gatherer = reg
	r := router.NewAPIEngine(d, router.Options{})

	serve(r, http.MethodGet, "/health", "")
	w := serve(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `hrms_http_requests_total{method="GET",path="/health",status="200"} 1`)
}
