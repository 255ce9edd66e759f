package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/core/database"
	"hrms-backend/internal/domain"
	"hrms-backend/internal/repo"
	"hrms-backend/internal/service"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type published struct {
	key     string
	payload any
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(_ context.Context, key string, payload any) error {
	r.mu.Lock()
	r.events = append(r.events, published{key, payload})
	r.mu.Unlock()
	return nil
}

func (r *recorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.key)
	}
	return out
}

type fixture struct {
	store  *repo.Store
	auth   *service.AuthService
	users  *service.UserService
	clock  *clock
	events *recorder
	jwt    *auth.JWTer
}

type fixtureOpts struct {
	defaultRole string
	publicRoles []string
	vocabulary  []string
	// wrap 包装服务看到的 Store；f.store 仍是底层实现
	wrap func(domain.Store) domain.Store
}

func newFixture(t *testing.T, o fixtureOpts) *fixture {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	clk := &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := repo.NewStore(db)
	jwter := &auth.JWTer{Secret: []byte("test-secret"), Issuer: "hrms", TTL: 30 * time.Minute, Now: clk.Now}
	ev := &recorder{}
	var svcStore domain.Store = store
	if o.wrap != nil {
		svcStore = o.wrap(store)
	}
	d := service.Deps{
		Store:   svcStore,
		Hasher:  auth.NewHasher(4),
		JWT:     jwter,
		Refresh: service.NewRefreshManager(&auth.RefreshTokens{TTL: auth.DefaultRefreshTTL}, clk.Now),
		Roles:   service.NewRoleService(svcStore, o.defaultRole, o.vocabulary),
		Events:  ev,
		Now:     clk.Now,
	}
	return &fixture{
		store:  store,
		auth:   service.NewAuthService(d, o.publicRoles),
		users:  service.NewUserService(d),
		clock:  clk,
		events: ev,
		jwt:    jwter,
	}
}

func (f *fixture) register(t *testing.T, email, password string) domain.UserView {
	t.Helper()
	v, err := f.auth.Register(context.Background(), service.RegisterInput{Email: email, Password: password, FullName: "User " + email})
	require.NoError(t, err)
	return v
}

func (f *fixture) countTokens(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.store.DB().Model(&domain.RefreshToken{}).Count(&n).Error)
	return n
}
