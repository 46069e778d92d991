package handlers

import (
	"alumni-network/app/server/constants"
	"alumni-network/app/server/models"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMe(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "alice@example.com", "alice", "secret1", models.RoleStudent)
	f.seedAdmin(t, "root@example.com", "rootpass")

	member := f.login(t, "alice@example.com", "secret1")
	res := f.do(t, http.MethodGet, "/api/v1/me", nil, withBearer(member.AccessToken))
	require.Equal(t, http.StatusOK, res.StatusCode)
	var data loginData
	res.decode(t, &data)
	assert.Equal(t, models.KindMember, data.UserType)
	require.NotNil(t, data.User)
	assert.Equal(t, "alice", data.User.Username)

	admin := f.login(t, "root@example.com", "rootpass")
	res = f.do(t, http.MethodGet, "/api/v1/me", nil, withBearer(admin.AccessToken))
	require.Equal(t, http.StatusOK, res.StatusCode)
	data = loginData{}
	res.decode(t, &data)
	assert.Equal(t, models.KindAdmin, data.UserType)
}

func TestProfileUpdate_Member(t *testing.T) {
	f := newFixture(t)
	alice := f.seedMember(t, "alice@example.com", "alice", "secret1", models.RoleStudent)
	tok := f.login(t, "alice@example.com", "secret1").AccessToken

	// 先访问一次，写入缓存
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/users/me", nil, withBearer(tok)).StatusCode)
	key := fmt.Sprintf(constants.CacheKeyPrincipal, models.KindMember, alice.ID)
	require.True(t, f.mr.Exists(key))

	res := f.do(t, http.MethodPatch, "/api/v1/users/me", map[string]interface{}{
		"bio":            "Backend engineer",
		"graduationYear": 2019,
		"skills":         []string{"go", "sql"},
	}, withBearer(tok))
	require.Equal(t, http.StatusOK, res.StatusCode)

	var updated models.Member
	res.decode(t, &updated)
	assert.Equal(t, "Backend engineer", updated.Bio)
	assert.Equal(t, 2019, updated.GraduationYear)
	assert.Equal(t, []string{"go", "sql"}, []string(updated.Skills))
	assert.False(t, f.mr.Exists(key))

	// 密码没有被改动
	f.login(t, "alice@example.com", "secret1")

	res = f.do(t, http.MethodGet, "/api/v1/users/me", nil, withBearer(tok))
	var me models.Member
	res.decode(t, &me)
	assert.Equal(t, "Backend engineer", me.Bio)

	res = f.do(t, http.MethodPatch, "/api/v1/users/me", map[string]interface{}{"graduationYear": -1}, withBearer(tok))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestProfileUpdate_Admin(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "root@example.com", "rootpass")
	tok := f.login(t, "root@example.com", "rootpass").AccessToken

	res := f.do(t, http.MethodPatch, "/api/v1/admin/me", map[string]string{"name": " Head Admin "}, withBearer(tok))
	require.Equal(t, http.StatusOK, res.StatusCode)

	var updated models.Admin
	res.decode(t, &updated)
	assert.Equal(t, "Head Admin", updated.Name)
}

func TestProfile_GuardsByKind(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "alice@example.com", "alice", "secret1", models.RoleStudent)
	tok := f.login(t, "alice@example.com", "secret1").AccessToken

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/admin/me", nil, withBearer(tok)).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/users/me", nil).StatusCode)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.seedMember(t, "alice@example.com", "alice", "secret1", models.RoleStudent)
	tok := f.login(t, "alice@example.com", "secret1").AccessToken

	res := f.do(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{"oldPassword": "nope", "newPassword": "newpass1"}, withBearer(tok))
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res = f.do(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{"oldPassword": "secret1", "newPassword": "abc"}, withBearer(tok))
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res = f.do(t, http.MethodPost, "/api/v1/users/change-password", map[string]string{"oldPassword": "secret1", "newPassword": "newpass1"}, withBearer(tok))
	require.Equal(t, http.StatusOK, res.StatusCode)

	f.login(t, "alice@example.com", "newpass1")
}

func TestChangePassword_ClearsPendingOTP(t *testing.T) {
	f := newFixture(t)
	f.seedAdmin(t, "root@example.com", "rootpass")
	code := f.forgot(t, "root@example.com")
	tok := f.login(t, "root@example.com", "rootpass").AccessToken

	res := f.do(t, http.MethodPost, "/api/v1/admin/change-password", map[string]string{"oldPassword": "rootpass", "newPassword": "rootpass2"}, withBearer(tok))
	require.Equal(t, http.StatusOK, res.StatusCode)

	res = f.do(t, http.MethodPost, "/api/v1/verify-otp", map[string]string{"email": "root@example.com", "otp": code})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}
