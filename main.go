package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/learnlab/backend/config"
	"github.com/learnlab/backend/controllers"
	"github.com/learnlab/backend/database"
	"github.com/learnlab/backend/middleware"
	"github.com/learnlab/backend/models"
	"github.com/learnlab/backend/ratelimit"
	"github.com/learnlab/backend/repository"
	"github.com/learnlab/backend/token"
	"github.com/learnlab/backend/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	database.Connect(cfg)

	ctx := context.Background()
	usersCol := database.OpenCollection("users")
	if cfg.AdminEmail != "" {
		if err := utils.SeedAdminUser(ctx, usersCol, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			log.Fatal(err)
		}
	}

	users := repository.NewUsers(usersCol)
	refreshTokens := repository.NewRefreshTokens(database.OpenCollection("refresh_tokens"))
	codec := token.NewCodec(cfg)

	var limiter *ratelimit.Limiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = ratelimit.New(rdb, "login", 10, time.Minute)
		log.Println("Login rate limiting enabled via", cfg.RedisAddr)
	}

	auth := controllers.NewAuthController(cfg, users, refreshTokens, codec, limiter)
	imageValidator := utils.NewImageValidator()

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	allowedOrigins := map[string]bool{}
	for _, origin := range strings.Split(cfg.AllowedOrigins, ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowedOrigins[origin]
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Connected"})
	})

	r.POST("/auth/login", auth.Login())
	r.POST("/auth/refresh", auth.Refresh())
	r.POST("/auth/logout", auth.Logout())
	r.GET("/auth/verify", auth.VerifyLogin())

	r.GET("/courses", controllers.GetCourses(codec))
	r.GET("/courses/:id", controllers.GetCourse())

	r.POST("/payment/webhook", controllers.PaymentWebhook(cfg))

	authed := r.Group("/")
	authed.Use(middleware.AuthRequired(codec, users))
	{
		authed.GET("/wishlist", controllers.GetWishlist())
		authed.POST("/wishlist/add/:courseId", controllers.AddToWishlist())
		authed.DELETE("/wishlist/remove/:courseId", controllers.RemoveFromWishlist())

		authed.GET("/user/courses", controllers.GetMyCourses())
		authed.POST("/user/me/password", controllers.ChangeMyPassword(refreshTokens))

		authed.POST("/payment/checkout", controllers.Checkout())
		authed.GET("/payment/history", controllers.GetPaymentHistory())
	}

	teaching := r.Group("/")
	teaching.Use(middleware.AuthRequired(codec, users), middleware.RequireRole(models.RoleInstructor, models.RoleAdmin))
	{
		teaching.POST("/courses", controllers.AddCourse(imageValidator))
		teaching.PATCH("/courses/:id", controllers.UpdateCourse(imageValidator))
		teaching.DELETE("/courses/:id", controllers.DeleteCourse())
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(codec, users), middleware.RequireRole(models.RoleAdmin))
	{
		admin.POST("/users", controllers.CreateUser())
		admin.PATCH("/users/:id/status", controllers.UpdateUserStatus(refreshTokens))
	}

	log.Println("Listening on", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
