package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrms-backend/internal/core/auth"
	"hrms-backend/internal/domain"
	"hrms-backend/internal/service"
)

func TestAssignRoles_ReplacesWholeSet(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	v := f.register(t, "emp@x.com", "pw")
	require.Equal(t, []string{auth.RoleEmployee}, v.Roles)

	got, err := f.users.AssignRoles(ctx, v.UserID, []string{"manager", "ADMIN"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{auth.RoleManager, auth.RoleAdmin}, got.Roles)

	u, err := f.store.Users().FindByID(ctx, v.UserID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{auth.RoleManager, auth.RoleAdmin}, u.RoleNames())
	assert.Contains(t, f.events.keys(), service.EventUserRolesAssigned)
}

func TestAssignRoles_Errors(t *testing.T) {
	f := newFixture(t, fixtureOpts{vocabulary: []string{"EMPLOYEE", "MANAGER"}})
	ctx := context.Background()
	v := f.register(t, "emp@x.com", "pw")

	_, err := f.users.AssignRoles(ctx, "missing", []string{"MANAGER"})
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = f.users.AssignRoles(ctx, v.UserID, nil)
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.users.AssignRoles(ctx, "", []string{"MANAGER"})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.users.AssignRoles(ctx, v.UserID, []string{"ADMIN"})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.users.AssignRoles(ctx, v.UserID, []string{"   "})
	assert.ErrorIs(t, err, service.ErrValidation)

	u, err := f.store.Users().FindByID(ctx, v.UserID)
	require.NoError(t, err)
	assert.Equal(t, []string{auth.RoleEmployee}, u.RoleNames())
}

func TestCreateUser(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	v, err := f.users.CreateUser(ctx, service.CreateUserInput{RegisterInput: service.RegisterInput{Email: "mgr@x.com", Password: "pw", FullName: "M", Role: "Manager"}})
	require.NoError(t, err)
	assert.Equal(t, []string{auth.RoleManager}, v.Roles)

	_, err = f.users.CreateUser(ctx, service.CreateUserInput{RegisterInput: service.RegisterInput{Email: "mgr@x.com", Password: "pw", FullName: "M"}})
	assert.ErrorIs(t, err, service.ErrConflict)

	_, err = f.users.CreateUser(ctx, service.CreateUserInput{RegisterInput: service.RegisterInput{Email: "bad@x.com", Password: "pw", FullName: "B", Role: "no/slash"}})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestListClampsPaging(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.register(t, fmt.Sprintf("u%d@x.com", i), "pw")
	}

	page, err := f.users.List(ctx, domain.UserFilter{}, -5, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, page.Total)
	assert.Len(t, page.Items, 3)

	page, err = f.users.List(ctx, domain.UserFilter{Q: "u1"}, 0, 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "u1@x.com", page.Items[0].Email)
}

func TestGetAndUpdate(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	v := f.register(t, "emp@x.com", "pw")

	_, err := f.users.Get(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)

	got, err := f.users.Get(ctx, v.UserID)
	require.NoError(t, err)
	assert.Equal(t, "emp@x.com", got.Email)

	empty := "  "
	_, err = f.users.Update(ctx, v.UserID, domain.UserPatch{FullName: &empty})
	assert.ErrorIs(t, err, service.ErrValidation)

	name := " New Name "
	got, err = f.users.Update(ctx, v.UserID, domain.UserPatch{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.FullName)

	_, err = f.users.Update(ctx, "missing", domain.UserPatch{FullName: &name})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestUpdatePhoto_StripsDataURI(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	v := f.register(t, "emp@x.com", "pw")

	got, err := f.users.UpdatePhoto(ctx, v.UserID, "data:image/png;base64,iVBORw0KGgo=")
	require.NoError(t, err)
	require.NotNil(t, got.ProfilePhoto)
	assert.Equal(t, "iVBORw0KGgo=", *got.ProfilePhoto)

	_, err = f.users.UpdatePhoto(ctx, v.UserID, "")
	assert.ErrorIs(t, err, service.ErrValidation)
}

func staff(email, empID, aadhar string) service.CreateUserInput {
	return service.CreateUserInput{
		RegisterInput: service.RegisterInput{Email: email, Password: "pw", FullName: "Staff " + empID},
		EmployeeInput: service.EmployeeInput{
			EmployeeID: empID, Phone: "9000000000", Address: "4 Lake View", FathersName: "P. Das",
			AadharNo: aadhar, DateOfBirth: "1988-02-29", WorkPosition: "Accountant",
		},
	}
}

func TestCreateUser_EmployeeProfile(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()

	v, err := f.users.CreateUser(ctx, staff("a@x.com", "E-1", "5555"))
	require.NoError(t, err)
	require.NotNil(t, v.Employee)
	assert.Equal(t, v.UserID, v.Employee.UserID)
	assert.Equal(t, "E-1", v.Employee.EmployeeID)

	_, err = f.users.CreateUser(ctx, staff("b@x.com", "E-1", "6666"))
	assert.ErrorIs(t, err, service.ErrConflict)
	_, err = f.users.CreateUser(ctx, staff("b@x.com", "E-2", "5555"))
	assert.ErrorIs(t, err, service.ErrConflict)
	u, err := f.store.Users().FindByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	assert.Nil(t, u)

	bad := staff("c@x.com", "E-3", "7777")
	bad.DateOfBirth = "03/11/1990"
	_, err = f.users.CreateUser(ctx, bad)
	assert.ErrorIs(t, err, service.ErrValidation)

	bad = staff("c@x.com", "E-3", "7777")
	bad.Phone = " "
	_, err = f.users.CreateUser(ctx, bad)
	assert.ErrorIs(t, err, service.ErrValidation)

	page, err := f.users.List(ctx, domain.UserFilter{EmployeeID: "E-1"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a@x.com", page.Items[0].Email)

	got, err := f.users.Get(ctx, v.UserID)
	require.NoError(t, err)
	require.NotNil(t, got.Employee)
	assert.Equal(t, "1988-02-29", got.Employee.DateOfBirth)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	v := f.register(t, "emp@x.com", "old-pw")
	p1, err := f.auth.Login(ctx, service.LoginInput{Email: "emp@x.com", Password: "old-pw"}, meta)
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, service.LoginInput{Email: "emp@x.com", Password: "old-pw"}, meta)
	require.NoError(t, err)

	assert.ErrorIs(t, f.users.ChangePassword(ctx, v.UserID, ""), service.ErrValidation)
	assert.ErrorIs(t, f.users.ChangePassword(ctx, v.UserID, strings.Repeat("x", 73)), service.ErrValidation)
	assert.ErrorIs(t, f.users.ChangePassword(ctx, "missing", "new-pw"), service.ErrNotFound)

	require.NoError(t, f.users.ChangePassword(ctx, v.UserID, "new-pw"))

	_, err = f.auth.RefreshSession(ctx, p1.RefreshToken, meta)
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	var live int64
	require.NoError(t, f.store.DB().Model(&domain.RefreshToken{}).Where("user_id = ? AND revoked = ?", v.UserID, false).Count(&live).Error)
	assert.Zero(t, live)

	_, err = f.auth.Login(ctx, service.LoginInput{Email: "emp@x.com", Password: "old-pw"}, meta)
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, service.LoginInput{Email: "emp@x.com", Password: "new-pw"}, meta)
	require.NoError(t, err)
	assert.Contains(t, f.events.keys(), service.EventUserPasswordChanged)
}

func TestUpdate_IgnoresPasswordDigest(t *testing.T) {
	f := newFixture(t, fixtureOpts{})
	ctx := context.Background()
	v := f.register(t, "emp@x.com", "pw")

	digest := "not-a-bcrypt-digest"
	_, err := f.users.Update(ctx, v.UserID, domain.UserPatch{PasswordHash: &digest})
	require.NoError(t, err)
	_, err = f.auth.Login(ctx, service.LoginInput{Email: "emp@x.com", Password: "pw"}, meta)
	assert.NoError(t, err)
}
