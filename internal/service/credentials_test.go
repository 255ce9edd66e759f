package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hrms-backend/internal/service"
)

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", service.BearerToken("Bearer abc"))
	assert.Equal(t, "abc", service.BearerToken("bearer   abc "))
	assert.Equal(t, "", service.BearerToken("Basic abc"))
	assert.Equal(t, "", service.BearerToken("abc"))
	assert.Equal(t, "", service.BearerToken(""))
}

func TestRefreshSources_Precedence(t *testing.T) {
	all := service.RefreshSources{Body: "body", Cookie: "cookie", Header: "header", Authorization: "Refresh auth"}
	assert.Equal(t, "body", all.Pick())

	all.Body = ""
	assert.Equal(t, "cookie", all.Pick())

	all.Cookie = " "
	assert.Equal(t, "header", all.Pick())

	all.Header = ""
	assert.Equal(t, "auth", all.Pick())

	all.Authorization = "Bearer auth"
	assert.Equal(t, "", all.Pick())
}
