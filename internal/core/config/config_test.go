package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_FileAndDefaults(t *testing.T) {
	p := writeYAML(t, `
app:
  env: prod
  http:
    port: 9090
jwt:
  secret: file-secret
auth:
  public_roles: [guest]
db:
  driver: postgres
  dsn: postgres://u:p@db/hrms
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 9090, c.App.HTTP.Port)
	assert.Equal(t, "file-secret", c.JWT.Secret)
	assert.Equal(t, 15, c.JWT.AccessTokenTTLMin)
	assert.Equal(t, 15, c.Auth.RefreshTokenTTLDays)
	assert.Equal(t, 12, c.Auth.BcryptCost)
	assert.Equal(t, []string{"guest"}, c.Auth.PublicRoles)
	assert.Equal(t, []string{"SUPER-ADMIN", "ADMIN"}, c.Auth.AssignRolesAllowed)
	assert.Equal(t, "postgres", c.DB.Driver)
	assert.False(t, c.IsDev())
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := writeYAML(t, "jwt:\n  secret: file-secret\n")
	t.Setenv("APP_JWT_SECRET", "env-secret")
	t.Setenv("APP_JWT_ACCESS_TOKEN_TTL_MIN", "5")
	t.Setenv("APP_AUTH_USERS_ENDPOINT_ALLOWED", "ADMIN,HR")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", c.JWT.Secret)
	assert.Equal(t, 5, c.JWT.AccessTokenTTLMin)
	assert.Equal(t, []string{"ADMIN", "HR"}, c.Auth.UsersEndpointAllowed)
}

func TestLoad_MissingDefaultFileIsAllowed(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", c.DB.Driver)
	assert.Equal(t, InsecureSecret, c.JWT.Secret)
	assert.Empty(t, c.Warnings())
}

func TestLoad_MissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateAndWarnings(t *testing.T) {
	p := writeYAML(t, "db:\n  driver: oracle\n")
	_, err := Load(p)
	assert.Error(t, err)

	c := &Config{App: App{Env: "prod"}, JWT: JWT{Secret: InsecureSecret}}
	assert.Len(t, c.Warnings(), 1)
}
