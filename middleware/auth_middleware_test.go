package middleware

import (
	"context"
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
)

type fakeUserStore struct {
	byID map[bson.ObjectID]*models.User
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string, _ bool) (*models.User, error) {
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func testCodec() *token.Codec {
	return token.NewCodec(config.Config{
		JWTAccessSecret:  "mw-access-secret",
		JWTRefreshSecret: "mw-refresh-secret",
		AccessTokenTTL:   time.Minute,
		RefreshTokenTTL:  time.Hour,
	})
}

func protectedRouter(codec *token.Codec, users repository.UserStore, roles ...models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthRequired(codec, users)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRole(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userID": c.GetString("userID"),
			"role":   c.GetString("role"),
		})
	})
	r.GET("/protected", handlers...)
	return r
}

func get(r *gin.Engine, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: token.AccessCookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func storeWith(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{byID: map[bson.ObjectID]*models.User{}}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func TestAuthRequiredMissingCookie(t *testing.T) {
	w := get(protectedRouter(testCodec(), storeWith()), "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "User not authenticated")
}

func TestAuthRequiredBadToken(t *testing.T) {
	w := get(protectedRouter(testCodec(), storeWith()), "garbage")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "Invalid or expired token")
}

func TestAuthRequiredSetsClaims(t *testing.T) {
	codec := testCodec()
	user := &models.User{ID: bson.NewObjectID(), Email: "a@x.com", Role: models.RoleInstructor, IsActive: true}
	access, err := codec.IssueAccess(user.ID.Hex(), user.Email, "instructor", "Ada")
	require.NoError(t, err)

	w := get(protectedRouter(codec, storeWith(user)), access)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"userID":"`+user.ID.Hex()+`"`)
	require.Contains(t, w.Body.String(), `"role":"instructor"`)
}

func TestAuthRequiredDeactivatedAccount(t *testing.T) {
	codec := testCodec()
	user := &models.User{ID: bson.NewObjectID(), Email: "a@x.com", Role: models.RoleStudent, IsActive: true}
	access, err := codec.IssueAccess(user.ID.Hex(), user.Email, "student", "Ada")
	require.NoError(t, err)

	r := protectedRouter(codec, storeWith(user))
	require.Equal(t, http.StatusOK, get(r, access).Code)

	// Deactivation locks the account out even while its token is valid.
	user.IsActive = false
	w := get(r, access)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), "User is not active")
}

func TestAuthRequiredDeletedAccount(t *testing.T) {
	codec := testCodec()
	access, err := codec.IssueAccess(bson.NewObjectID().Hex(), "gone@x.com", "student", "G")
	require.NoError(t, err)

	w := get(protectedRouter(codec, storeWith()), access)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRole(t *testing.T) {
	codec := testCodec()
	student := &models.User{ID: bson.NewObjectID(), Email: "s@x.com", Role: models.RoleStudent, IsActive: true}
	admin := &models.User{ID: bson.NewObjectID(), Email: "a@x.com", Role: models.RoleAdmin, IsActive: true}
	r := protectedRouter(codec, storeWith(student, admin), models.RoleInstructor, models.RoleAdmin)

	studentTok, err := codec.IssueAccess(student.ID.Hex(), student.Email, "student", "S")
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, get(r, studentTok).Code)

	adminTok, err := codec.IssueAccess(admin.ID.Hex(), admin.Email, "admin", "A")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, get(r, adminTok).Code)
}
