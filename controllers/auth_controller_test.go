package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/learnlab/backend/config"
	"github.com/learnlab/backend/models"
	"github.com/learnlab/backend/repository"
	"github.com/learnlab/backend/token"
	"github.com/learnlab/backend/utils"
)

type fakeUserStore struct {
	byEmail map[string]*models.User
	byID    map[bson.ObjectID]*models.User
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{
		byEmail: map[string]*models.User{},
		byID:    map[bson.ObjectID]*models.User{},
	}
	for _, u := range users {
		s.byEmail[u.Email] = u
		s.byID[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string, withPassword bool) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	if !withPassword {
		copied.PasswordHash = ""
	}
	return &copied, nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	copied.PasswordHash = ""
	return &copied, nil
}

type fakeRefreshStore struct {
	records     map[string]*models.RefreshToken
	failInserts bool
}

func newFakeRefreshStore() *fakeRefreshStore {
	return &fakeRefreshStore{records: map[string]*models.RefreshToken{}}
}

func (s *fakeRefreshStore) Insert(_ context.Context, rt models.RefreshToken) error {
	if s.failInserts {
		return errors.New("store down")
	}
	s.records[rt.JTI] = &rt
	return nil
}

func (s *fakeRefreshStore) Rotate(_ context.Context, jti, replacedBy string) (bool, error) {
	rt, ok := s.records[jti]
	if !ok || rt.RevokedAt != nil || time.Now().After(rt.ExpiresAt) {
		return false, nil
	}
	now := time.Now().UTC()
	rt.RevokedAt = &now
	rt.ReplacedBy = &replacedBy
	return true, nil
}

func (s *fakeRefreshStore) Revoke(_ context.Context, jti string) error {
	if rt, ok := s.records[jti]; ok && rt.RevokedAt == nil {
		now := time.Now().UTC()
		rt.RevokedAt = &now
	}
	return nil
}

func (s *fakeRefreshStore) RevokeAllForUser(_ context.Context, userID bson.ObjectID) error {
	now := time.Now().UTC()
	for _, rt := range s.records {
		if rt.UserID == userID && rt.RevokedAt == nil {
			rt.RevokedAt = &now
		}
	}
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	return hash
}

func testConfig() config.Config {
	return config.Config{
		JWTAccessSecret:  "test-access-secret",
		JWTRefreshSecret: "test-refresh-secret",
		AccessTokenTTL:   15 * time.Minute,
		RefreshTokenTTL:  7 * 24 * time.Hour,
	}
}

func newAuthRouter(t *testing.T, users *fakeUserStore, tokens *fakeRefreshStore) (*gin.Engine, *token.Codec) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	codec := token.NewCodec(cfg)
	auth := NewAuthController(cfg, users, tokens, codec, nil)

	r := gin.New()
	r.POST("/auth/login", auth.Login())
	r.POST("/auth/refresh", auth.Refresh())
	r.POST("/auth/logout", auth.Logout())
	r.GET("/auth/verify", auth.VerifyLogin())
	return r, codec
}

func activeStudent(t *testing.T) *models.User {
	return &models.User{
		ID:           bson.NewObjectID(),
		Email:        "a@x.com",
		PasswordHash: mustHash(t, "Correct1!"),
		Role:         models.RoleStudent,
		Name:         "Ada",
		IsActive:     true,
	}
}

func doLogin(t *testing.T, r *gin.Engine, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(gin.H{"email": email, "password": password})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func cookieByName(t *testing.T, resp *http.Response, name string) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestLoginSuccess(t *testing.T) {
	user := activeStudent(t)
	r, codec := newAuthRouter(t, newFakeUserStore(user), newFakeRefreshStore())

	w := doLogin(t, r, "a@x.com", "Correct1!")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		User    struct {
			Role  string `json:"role"`
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	require.Equal(t, "student login successful", body.Message)
	require.Equal(t, "a@x.com", body.User.Email)
	require.Equal(t, "Ada", body.User.Name)

	resp := w.Result()
	access := cookieByName(t, resp, "accessToken")
	refresh := cookieByName(t, resp, "refreshToken")
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	require.True(t, access.HttpOnly)
	require.Equal(t, int(15*time.Minute/time.Second), access.MaxAge)
	require.Equal(t, int(7*24*time.Hour/time.Second), refresh.MaxAge)

	// The cookie verifies right back to the same identity.
	claims, err := codec.VerifyAccess(access.Value)
	require.NoError(t, err)
	require.Equal(t, user.ID.Hex(), claims.UserID)
	require.Equal(t, "a@x.com", claims.Email)
	require.Equal(t, "student", claims.Role)
}

func TestLoginWrongPasswordIsBadRequestNotNotFound(t *testing.T) {
	r, _ := newAuthRouter(t, newFakeUserStore(activeStudent(t)), newFakeRefreshStore())

	w := doLogin(t, r, "a@x.com", "Wrong1!")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Invalid credentials")
}

func TestLoginUnknownEmail(t *testing.T) {
	r, _ := newAuthRouter(t, newFakeUserStore(), newFakeRefreshStore())

	w := doLogin(t, r, "nobody@x.com", "whatever1!")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "User not found")
}

func TestLoginInactiveEvenWithCorrectPassword(t *testing.T) {
	user := activeStudent(t)
	user.IsActive = false
	r, _ := newAuthRouter(t, newFakeUserStore(user), newFakeRefreshStore())

	w := doLogin(t, r, "a@x.com", "Correct1!")
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "not active")
}

func TestVerifyLoginNoCookie(t *testing.T) {
	r, _ := newAuthRouter(t, newFakeUserStore(), newFakeRefreshStore())

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, false, body["loggedIn"])
}

func TestVerifyLoginRoundTrip(t *testing.T) {
	user := activeStudent(t)
	r, _ := newAuthRouter(t, newFakeUserStore(user), newFakeRefreshStore())

	login := doLogin(t, r, "a@x.com", "Correct1!")
	access := cookieByName(t, login.Result(), "accessToken")
	require.NotNil(t, access)

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	req.AddCookie(access)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		LoggedIn bool `json:"loggedIn"`
		User     struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.LoggedIn)
	require.Equal(t, "a@x.com", body.User.Email)
}

func TestVerifyLoginDeactivatedAccountReadsLoggedOut(t *testing.T) {
	user := activeStudent(t)
	store := newFakeUserStore(user)
	r, _ := newAuthRouter(t, store, newFakeRefreshStore())

	login := doLogin(t, r, "a@x.com", "Correct1!")
	access := cookieByName(t, login.Result(), "accessToken")
	require.NotNil(t, access)

	// Deactivate after the token was minted: still a valid signature,
	// but the session must read as logged out.
	user.IsActive = false

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	req.AddCookie(access)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, false, body["loggedIn"])
}

func TestVerifyLoginGarbageCookie(t *testing.T) {
	r, _ := newAuthRouter(t, newFakeUserStore(), newFakeRefreshStore())

	req := httptest.NewRequest(http.MethodGet, "/auth/verify", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "not-a-token"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"loggedIn":false`)
}

func doRefresh(t *testing.T, r *gin.Engine, refresh *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	if refresh != nil {
		req.AddCookie(refresh)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRefreshRotation(t *testing.T) {
	user := activeStudent(t)
	r, _ := newAuthRouter(t, newFakeUserStore(user), newFakeRefreshStore())

	login := doLogin(t, r, "a@x.com", "Correct1!")
	firstAccess := cookieByName(t, login.Result(), "accessToken")
	firstRefresh := cookieByName(t, login.Result(), "refreshToken")
	require.NotNil(t, firstRefresh)

	w := doRefresh(t, r, firstRefresh)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"success":true}`, w.Body.String())

	secondAccess := cookieByName(t, w.Result(), "accessToken")
	secondRefresh := cookieByName(t, w.Result(), "refreshToken")
	require.NotNil(t, secondAccess)
	require.NotNil(t, secondRefresh)
	require.NotEqual(t, firstAccess.Value, secondAccess.Value)
	require.NotEqual(t, firstRefresh.Value, secondRefresh.Value)

	// The rotated pair keeps working.
	w = doRefresh(t, r, secondRefresh)
	require.Equal(t, http.StatusOK, w.Code)
	thirdAccess := cookieByName(t, w.Result(), "accessToken")
	require.NotEqual(t, secondAccess.Value, thirdAccess.Value)
}

func TestRefreshReplayRejected(t *testing.T) {
	user := activeStudent(t)
	r, _ := newAuthRouter(t, newFakeUserStore(user), newFakeRefreshStore())

	login := doLogin(t, r, "a@x.com", "Correct1!")
	firstRefresh := cookieByName(t, login.Result(), "refreshToken")

	w := doRefresh(t, r, firstRefresh)
	require.Equal(t, http.StatusOK, w.Code)
	secondRefresh := cookieByName(t, w.Result(), "refreshToken")

	// Replaying the rotated-out token fails even though its signature
	// is still valid, and burns the rest of the family too.
	w = doRefresh(t, r, firstRefresh)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRefresh(t, r, secondRefresh)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshMissingToken(t *testing.T) {
	r, _ := newAuthRouter(t, newFakeUserStore(), newFakeRefreshStore())

	w := doRefresh(t, r, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "No refresh token")
}

func TestRefreshInactiveAccount(t *testing.T) {
	user := activeStudent(t)
	r, _ := newAuthRouter(t, newFakeUserStore(user), newFakeRefreshStore())

	login := doLogin(t, r, "a@x.com", "Correct1!")
	refresh := cookieByName(t, login.Result(), "refreshToken")

	user.IsActive = false

	w := doRefresh(t, r, refresh)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "User inactive")
}

func TestRefreshReplayForInactiveUserIsUnauthorized(t *testing.T) {
	user := activeStudent(t)
	r, _ := newAuthRouter(t, newFakeUserStore(user), newFakeRefreshStore())

	login := doLogin(t, r, "a@x.com", "Correct1!")
	firstRefresh := cookieByName(t, login.Result(), "refreshToken")

	w := doRefresh(t, r, firstRefresh)
	require.Equal(t, http.StatusOK, w.Code)

	// A replayed token reads as a replay first, account state second.
	user.IsActive = false
	w = doRefresh(t, r, firstRefresh)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRefreshStoreFailureKeepsOldTokenUsable(t *testing.T) {
	user := activeStudent(t)
	tokens := newFakeRefreshStore()
	r, _ := newAuthRouter(t, newFakeUserStore(user), tokens)

	login := doLogin(t, r, "a@x.com", "Correct1!")
	refresh := cookieByName(t, login.Result(), "refreshToken")

	tokens.failInserts = true
	w := doRefresh(t, r, refresh)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	// The failed attempt must not have burned the presented token.
	tokens.failInserts = false
	w = doRefresh(t, r, refresh)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutIdempotent(t *testing.T) {
	user := activeStudent(t)
	tokens := newFakeRefreshStore()
	r, _ := newAuthRouter(t, newFakeUserStore(user), tokens)

	login := doLogin(t, r, "a@x.com", "Correct1!")
	refresh := cookieByName(t, login.Result(), "refreshToken")

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
		if refresh != nil {
			req.AddCookie(refresh)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "Logged out successfully")

		access := cookieByName(t, w.Result(), "accessToken")
		cleared := cookieByName(t, w.Result(), "refreshToken")
		require.NotNil(t, access)
		require.NotNil(t, cleared)
		require.Empty(t, access.Value)
		require.Empty(t, cleared.Value)
		require.Less(t, access.MaxAge, 0)
		require.Less(t, cleared.MaxAge, 0)
	}

	// The presented refresh token was revoked on the first call.
	w := doRefresh(t, r, refresh)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
