package controllers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/learnlab/backend/config"
	"github.com/learnlab/backend/database"
	"github.com/learnlab/backend/dto"
	"github.com/learnlab/backend/models"
	"github.com/learnlab/backend/utils"
)

// POST /payment/checkout — records a pending payment for the given
// courses. The actual gateway session is created by the frontend against
// the provider; this endpoint only mints the record the webhook later
// resolves.
func Checkout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}

		var body dto.CheckoutDTO
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		courseIDs, err := utils.StringsToObjectIDs(body.CourseIDs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
			return
		}

		coursesCol := database.OpenCollection("courses")
		cursor, err := coursesCol.Find(ctx, bson.M{"_id": bson.M{"$in": courseIDs}})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer cursor.Close(ctx)

		courses := make([]models.Course, 0, len(courseIDs))
		if err := cursor.All(ctx, &courses); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(courses) != len(courseIDs) {
			c.JSON(http.StatusNotFound, gin.H{"error": "one or more courses not found"})
			return
		}

		amount := 0.0
		for _, course := range courses {
			amount += course.Price
		}

		currency := body.Currency
		if currency == "" {
			currency = "INR"
		}

		payment := models.Payment{
			ID:        bson.NewObjectID(),
			UserID:    userID,
			SessionID: uuid.NewString(),
			CourseIDs: courseIDs,
			Amount:    amount,
			Currency:  currency,
			Status:    models.PaymentPending,
			CreatedAt: time.Now().UTC(),
			Metadata:  body.Metadata,
		}

		paymentsCol := database.OpenCollection("payments")
		if _, err := paymentsCol.InsertOne(ctx, payment); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success":   true,
			"sessionId": payment.SessionID,
			"amount":    payment.Amount,
			"currency":  payment.Currency,
		})
	}
}

// POST /payment/webhook — provider callback. Transitions are idempotent:
// only a pending record moves, so duplicate deliveries are no-ops.
func PaymentWebhook(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		sig := c.GetHeader("X-Webhook-Secret")
		if cfg.WebhookSecret == "" ||
			subtle.ConstantTimeCompare([]byte(sig), []byte(cfg.WebhookSecret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook signature"})
			return
		}

		var event dto.WebhookEventDTO
		if err := c.ShouldBindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		status := models.PaymentStatus(event.Status)
		switch status {
		case models.PaymentCompleted, models.PaymentFailed, models.PaymentExpired:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported status"})
			return
		}

		now := time.Now().UTC()
		set := bson.M{"status": status}
		if status == models.PaymentCompleted {
			set["completedAt"] = now
		}
		if event.PaymentIntentID != "" {
			set["paymentIntentId"] = event.PaymentIntentID
		}

		paymentsCol := database.OpenCollection("payments")
		var payment models.Payment
		err := paymentsCol.FindOneAndUpdate(ctx,
			bson.M{"sessionId": event.SessionID, "status": models.PaymentPending},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&payment)
		if err != nil {
			// Unknown session or already resolved; acknowledge so the
			// provider stops retrying.
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		if status == models.PaymentCompleted {
			usersCol := database.OpenCollection("users")
			if _, err := usersCol.UpdateByID(ctx, payment.UserID, bson.M{
				"$addToSet": bson.M{"enrolledCourses": bson.M{"$each": payment.CourseIDs}},
				"$pull":     bson.M{"wishlist": bson.M{"$in": payment.CourseIDs}},
			}); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "enrollment failed"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"received": true})
	}
}

// GET /payment/history
func GetPaymentHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		userID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}

		paymentsCol := database.OpenCollection("payments")
		cursor, err := paymentsCol.Find(ctx, bson.M{"userId": userID},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer cursor.Close(ctx)

		payments := make([]models.Payment, 0)
		if err := cursor.All(ctx, &payments); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"items": payments, "total": len(payments)})
	}
}
