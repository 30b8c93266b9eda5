package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/learnlab/backend/config"
	"github.com/learnlab/backend/dto"
	"github.com/learnlab/backend/models"
	"github.com/learnlab/backend/ratelimit"
	"github.com/learnlab/backend/repository"
	"github.com/learnlab/backend/token"
	"github.com/learnlab/backend/utils"
)

// AuthController owns the session lifecycle: login, refresh rotation,
// logout, and cookie-based identity verification.
type AuthController struct {
	cfg     config.Config
	users   repository.UserStore
	tokens  repository.RefreshTokenStore
	codec   *token.Codec
	limiter *ratelimit.Limiter
}

func NewAuthController(cfg config.Config, users repository.UserStore, tokens repository.RefreshTokenStore, codec *token.Codec, limiter *ratelimit.Limiter) *AuthController {
	return &AuthController{
		cfg:     cfg,
		users:   users,
		tokens:  tokens,
		codec:   codec,
		limiter: limiter,
	}
}

// POST /auth/login
//
// Check order is fixed: existence, then credentials, then active status.
func (a *AuthController) Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body dto.LoginDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		email := strings.ToLower(strings.TrimSpace(body.Email))

		allowed, err := a.limiter.Allow(ctx, email+":"+c.ClientIP())
		if err == nil && !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many login attempts"})
			return
		}

		user, err := a.users.FindByEmail(ctx, email, true)
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in"})
			return
		}

		if err := utils.CheckPassword(user.PasswordHash, body.Password); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
			return
		}

		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"message": "User is not active"})
			return
		}

		accessToken, err := a.codec.IssueAccess(user.ID.Hex(), user.Email, string(user.Role), user.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in"})
			return
		}
		refreshToken, jti, err := a.codec.IssueRefresh(user.ID.Hex())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in"})
			return
		}

		now := time.Now().UTC()
		if err := a.tokens.Insert(ctx, models.RefreshToken{
			UserID:    user.ID,
			JTI:       jti,
			ExpiresAt: now.Add(a.codec.RefreshTTL()),
			CreatedAt: now,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error logging in"})
			return
		}

		setAuthCookies(c, accessToken, refreshToken, a.codec.AccessTTL(), a.codec.RefreshTTL())

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": fmt.Sprintf("%s login successful", user.Role),
			"user": gin.H{
				"id":    user.ID,
				"role":  user.Role,
				"email": user.Email,
				"name":  user.Name,
			},
		})
	}
}

// POST /auth/refresh
//
// Tokens travel only via cookies; the body carries a bare success flag.
func (a *AuthController) Refresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		refreshToken, err := c.Cookie(refreshCookieName)
		if err != nil || refreshToken == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "No refresh token"})
			return
		}

		claims, err := a.codec.VerifyRefresh(refreshToken)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
			return
		}

		userID, err := bson.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
			return
		}

		newRefreshToken, newJTI, err := a.codec.IssueRefresh(claims.UserID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Refresh failed"})
			return
		}

		// Record the new jti before burning the old one: if anything past
		// this point fails, the presented token is still good for a retry.
		now := time.Now().UTC()
		if err := a.tokens.Insert(ctx, models.RefreshToken{
			UserID:    userID,
			JTI:       newJTI,
			ExpiresAt: now.Add(a.codec.RefreshTTL()),
			CreatedAt: now,
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Refresh failed"})
			return
		}

		rotated, err := a.tokens.Rotate(ctx, claims.ID, newJTI)
		if err != nil {
			_ = a.tokens.Revoke(ctx, newJTI)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Refresh failed"})
			return
		}
		if !rotated {
			// Replay of an already-rotated token: assume the token leaked
			// and invalidate the whole family, the fresh jti included.
			_ = a.tokens.RevokeAllForUser(ctx, userID)
			c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid refresh token"})
			return
		}

		user, err := a.users.FindByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !user.IsActive) {
			_ = a.tokens.RevokeAllForUser(ctx, userID)
			c.JSON(http.StatusForbidden, gin.H{"message": "User inactive"})
			return
		}
		if err != nil {
			_ = a.tokens.Revoke(ctx, newJTI)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Refresh failed"})
			return
		}

		newAccessToken, err := a.codec.IssueAccess(user.ID.Hex(), user.Email, string(user.Role), user.Name)
		if err != nil {
			_ = a.tokens.Revoke(ctx, newJTI)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Refresh failed"})
			return
		}

		setAuthCookies(c, newAccessToken, newRefreshToken, a.codec.AccessTTL(), a.codec.RefreshTTL())

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// POST /auth/logout
//
// Always succeeds and is idempotent; revocation is best effort.
func (a *AuthController) Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if refreshToken, err := c.Cookie(refreshCookieName); err == nil && refreshToken != "" {
			if claims, err := a.codec.VerifyRefresh(refreshToken); err == nil {
				_ = a.tokens.Revoke(c.Request.Context(), claims.ID)
			}
		}

		clearAuthCookies(c)

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Logged out successfully",
		})
	}
}

// GET /auth/verify
//
// "Not logged in" is a normal outcome, not an error. An account that has
// vanished or been deactivated reads as logged out even while its access
// token is still cryptographically valid.
func (a *AuthController) VerifyLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken, err := c.Cookie(accessCookieName)
		if err != nil || accessToken == "" {
			c.JSON(http.StatusOK, gin.H{"loggedIn": false})
			return
		}

		claims, err := a.codec.VerifyAccess(accessToken)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"loggedIn": false})
			return
		}

		userID, err := bson.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusOK, gin.H{"loggedIn": false})
			return
		}

		user, err := a.users.FindByID(c.Request.Context(), userID)
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"loggedIn": false})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error verifying login"})
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusOK, gin.H{"loggedIn": false})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"loggedIn": true,
			"user":     user.PublicProfile(),
		})
	}
}
