package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func wishlistRouter(authedAs string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if authedAs != "" {
		r.Use(func(c *gin.Context) {
			c.Set("userID", authedAs)
		})
	}
	r.POST("/wishlist/add/:courseId", AddToWishlist())
	r.DELETE("/wishlist/remove/:courseId", RemoveFromWishlist())
	r.GET("/wishlist", GetWishlist())
	return r
}

func doReq(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWishlistRequiresAuthContext(t *testing.T) {
	r := wishlistRouter("")
	id := bson.NewObjectID().Hex()

	require.Equal(t, http.StatusUnauthorized, doReq(r, http.MethodPost, "/wishlist/add/"+id).Code)
	require.Equal(t, http.StatusUnauthorized, doReq(r, http.MethodDelete, "/wishlist/remove/"+id).Code)
	require.Equal(t, http.StatusUnauthorized, doReq(r, http.MethodGet, "/wishlist").Code)
}

func TestWishlistRejectsMalformedCourseID(t *testing.T) {
	r := wishlistRouter(bson.NewObjectID().Hex())

	require.Equal(t, http.StatusBadRequest, doReq(r, http.MethodPost, "/wishlist/add/not-an-id").Code)
	require.Equal(t, http.StatusBadRequest, doReq(r, http.MethodDelete, "/wishlist/remove/not-an-id").Code)
}
