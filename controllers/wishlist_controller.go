package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/learnlab/backend/database"
	"github.com/learnlab/backend/models"
)

// POST /wishlist/add/:courseId
func AddToWishlist() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}

		courseID, err := bson.ObjectIDFromHex(c.Param("courseId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
			return
		}

		coursesCol := database.OpenCollection("courses")
		if err := coursesCol.FindOne(ctx, bson.M{"_id": courseID}).Err(); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
			return
		}

		usersCol := database.OpenCollection("users")
		if _, err := usersCol.UpdateByID(ctx, userID, bson.M{
			"$addToSet": bson.M{"wishlist": courseID},
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Course added to wishlist"})
	}
}

// DELETE /wishlist/remove/:courseId
func RemoveFromWishlist() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}

		courseID, err := bson.ObjectIDFromHex(c.Param("courseId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
			return
		}

		usersCol := database.OpenCollection("users")
		if _, err := usersCol.UpdateByID(ctx, userID, bson.M{
			"$pull": bson.M{"wishlist": courseID},
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Course removed from wishlist"})
	}
}

// GET /wishlist
func GetWishlist() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}

		usersCol := database.OpenCollection("users")
		var user models.User
		if err := usersCol.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}

		courses := make([]models.Course, 0)
		if len(user.Wishlist) > 0 {
			coursesCol := database.OpenCollection("courses")
			cursor, err := coursesCol.Find(ctx, bson.M{"_id": bson.M{"$in": user.Wishlist}})
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			defer cursor.Close(ctx)
			if err := cursor.All(ctx, &courses); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"items": courses, "total": len(courses)})
	}
}

// GET /user/courses — courses the user is enrolled in.
func GetMyCourses() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}

		usersCol := database.OpenCollection("users")
		var user models.User
		if err := usersCol.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user"})
			return
		}

		courses := make([]models.Course, 0)
		if len(user.Enrolled) > 0 {
			coursesCol := database.OpenCollection("courses")
			cursor, err := coursesCol.Find(ctx, bson.M{"_id": bson.M{"$in": user.Enrolled}})
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			defer cursor.Close(ctx)
			if err := cursor.All(ctx, &courses); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"items": courses, "total": len(courses)})
	}
}
