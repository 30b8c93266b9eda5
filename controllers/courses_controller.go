package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/learnlab/backend/database"
	"github.com/learnlab/backend/dto"
	"github.com/learnlab/backend/models"
	"github.com/learnlab/backend/token"
	"github.com/learnlab/backend/utils"
)

func modulesFromDTO(in []dto.CourseModuleDTO) []models.CourseModule {
	modules := make([]models.CourseModule, 0, len(in))
	for _, m := range in {
		lessons := make([]models.Lesson, 0, len(m.Lessons))
		for _, l := range m.Lessons {
			lessons = append(lessons, models.Lesson{Title: l.Title, Duration: l.Duration})
		}
		modules = append(modules, models.CourseModule{
			ModuleNumber: m.ModuleNumber,
			Title:        m.Title,
			Lessons:      lessons,
		})
	}
	return modules
}

// courseViewer is the identity behind an optional access cookie on the
// public catalog routes. Nil means anonymous.
type courseViewer struct {
	userID bson.ObjectID
	role   string
}

func viewerFromCookie(c *gin.Context, codec *token.Codec) *courseViewer {
	raw, err := c.Cookie(token.AccessCookieName)
	if err != nil || raw == "" {
		return nil
	}
	claims, err := codec.VerifyAccess(raw)
	if err != nil {
		return nil
	}
	id, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return nil
	}
	return &courseViewer{userID: id, role: claims.Role}
}

// buildCourseFilter turns listing query params into a Mongo filter.
// Anonymous and student callers always see published courses only;
// admins may override isPublished freely, instructors only for their
// own drafts.
func buildCourseFilter(c *gin.Context, viewer *courseViewer) bson.M {
	filter := bson.M{"isPublished": true}
	if b, err := utils.ParseBoolQuery(c.Query("isPublished")); err == nil && b != nil && viewer != nil {
		switch viewer.role {
		case string(models.RoleAdmin):
			filter["isPublished"] = *b
		case string(models.RoleInstructor):
			filter["isPublished"] = *b
			if !*b {
				filter["instructor"] = viewer.userID
			}
		}
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		filter["category"] = category
	}
	if level := strings.TrimSpace(c.Query("level")); level != "" {
		filter["level"] = level
	}
	if tag := strings.TrimSpace(c.Query("tag")); tag != "" {
		filter["tags"] = bson.M{"$in": bson.A{tag}}
	}
	priceFilter := bson.M{}
	if v := c.Query("minPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			priceFilter["$gte"] = f
		}
	}
	if v := c.Query("maxPrice"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			priceFilter["$lte"] = f
		}
	}
	if len(priceFilter) > 0 {
		filter["price"] = priceFilter
	}
	return filter
}

// GET /courses
func GetCourses(codec *token.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		maxLimit, defaultLimit := utils.GetDefaultQueryLimits()
		page := utils.ParseIntDefault(c.Query("page"), 1)
		limit := utils.ParseIntDefault(c.Query("limit"), defaultLimit)
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = defaultLimit
		}
		if limit > maxLimit {
			limit = maxLimit
		}
		skip := int64((page - 1) * limit)

		sortDoc := bson.D{{Key: "createdAt", Value: -1}}
		switch strings.TrimSpace(c.Query("sort")) {
		case "price_asc":
			sortDoc = bson.D{{Key: "price", Value: 1}}
		case "price_desc":
			sortDoc = bson.D{{Key: "price", Value: -1}}
		case "title":
			sortDoc = bson.D{{Key: "title", Value: 1}}
		}

		filter := buildCourseFilter(c, viewerFromCookie(c, codec))

		coursesCol := database.OpenCollection("courses")
		findOpts := options.Find().
			SetSkip(skip).
			SetLimit(int64(limit)).
			SetSort(sortDoc)

		cursor, err := coursesCol.Find(ctx, filter, findOpts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		defer cursor.Close(ctx)

		courses := make([]models.Course, 0)
		if err := cursor.All(ctx, &courses); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		total, err := coursesCol.CountDocuments(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"items": courses,
			"page":  page,
			"limit": limit,
			"total": total,
		})
	}
}

// GET /courses/:id — accepts an ObjectID hex or a slug.
func GetCourse() gin.HandlerFunc {
	return func(c *gin.Context) {
		idOrSlug := c.Param("id")

		filter := bson.M{"slug": idOrSlug}
		if id, err := bson.ObjectIDFromHex(idOrSlug); err == nil {
			filter = bson.M{"_id": id}
		}

		var course models.Course
		coursesCol := database.OpenCollection("courses")
		if err := coursesCol.FindOne(c.Request.Context(), filter).Decode(&course); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
			return
		}

		c.JSON(http.StatusOK, course)
	}
}

// POST /courses — multipart: "data" JSON field + "images" file parts.
// The first image becomes the course image; the rest are gallery images.
func AddCourse(v *utils.FileValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		jsonData := c.PostForm("data")
		if jsonData == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing data"})
			return
		}

		var body dto.CreateCourseDTO
		if err := json.Unmarshal([]byte(jsonData), &body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data json"})
			return
		}

		instructorID, ok := currentUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
			return
		}

		slug := utils.GenerateSlug(body.Title)

		var imageUrls []string
		if form, err := c.MultipartForm(); err == nil && form != nil {
			files := form.File["images"]
			for _, fh := range files {
				if _, err := v.ValidateFile(fh); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
			}
			if len(files) > 0 {
				store, err := utils.NewObjectStorage(ctx)
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
					return
				}
				imageUrls, err = store.UploadImages(ctx, slug, files)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
			}
		}

		modules := modulesFromDTO(body.Modules)
		now := time.Now().UTC()
		course := models.Course{
			ID:               bson.NewObjectID(),
			Title:            body.Title,
			Slug:             slug,
			Description:      body.Description,
			Category:         body.Category,
			Price:            body.Price,
			Instructor:       instructorID,
			Level:            body.Level,
			Language:         body.Language,
			PromoVideo:       body.PromoVideo,
			Requirements:     body.Requirements,
			WhatYouWillLearn: body.WhatYouWillLearn,
			Tags:             body.Tags,
			ImageUrls:        imageUrls,
			Modules:          modules,
			TotalDuration:    models.TotalDurationMinutes(modules),
			IsPublished:      body.IsPublished,
			CreatedAt:        now,
			UpdatedAt:        now,
		}

		coursesCol := database.OpenCollection("courses")
		if _, err := coursesCol.InsertOne(ctx, course); err != nil {
			if utils.IsDuplicateKey(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "slug already exists", "field": "slug"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": "Course created successfully",
			"course":  course,
		})
	}
}

// PATCH /courses/:id — multipart like AddCourse; "data" carries pointer
// fields so only provided values change.
func UpdateCourse(v *utils.FileValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		courseID, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
			return
		}

		dataStr := c.PostForm("data")
		if dataStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing data"})
			return
		}

		var body dto.UpdateCourseDTO
		if err := json.Unmarshal([]byte(dataStr), &body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid data json"})
			return
		}

		coursesCol := database.OpenCollection("courses")

		var course models.Course
		if err := coursesCol.FindOne(ctx, bson.M{"_id": courseID}).Decode(&course); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
			return
		}

		if !mayEditCourse(c, course) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not your course"})
			return
		}

		var newUrls []string
		var store utils.ObjectStorage
		if form, err := c.MultipartForm(); err == nil && form != nil && len(form.File["images"]) > 0 {
			files := form.File["images"]
			for _, fh := range files {
				if _, err := v.ValidateFile(fh); err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
					return
				}
			}
			store, err = utils.NewObjectStorage(ctx)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
				return
			}
			newUrls, err = store.UploadImages(ctx, course.Slug, files)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		set := bson.M{"updatedAt": time.Now().UTC()}
		if body.Title != nil {
			set["title"] = *body.Title
			set["slug"] = utils.GenerateSlug(*body.Title)
		}
		if body.Description != nil {
			set["description"] = *body.Description
		}
		if body.Category != nil {
			set["category"] = *body.Category
		}
		if body.Price != nil {
			set["price"] = *body.Price
		}
		if body.Level != nil {
			set["level"] = *body.Level
		}
		if body.Language != nil {
			set["language"] = *body.Language
		}
		if body.PromoVideo != nil {
			set["promoVideo"] = *body.PromoVideo
		}
		if body.Requirements != nil {
			set["requirements"] = *body.Requirements
		}
		if body.WhatYouWillLearn != nil {
			set["whatYouWillLearn"] = *body.WhatYouWillLearn
		}
		if body.Tags != nil {
			set["tags"] = *body.Tags
		}
		if body.Modules != nil {
			modules := modulesFromDTO(*body.Modules)
			set["modules"] = modules
			set["totalDuration"] = models.TotalDurationMinutes(modules)
		}
		if body.IsPublished != nil {
			set["isPublished"] = *body.IsPublished
		}

		removed := intersectStrings(body.RemovedImagesUrls, course.ImageUrls)
		if len(removed) > 0 || len(newUrls) > 0 {
			set["imageUrls"] = mergeImageUrls(course.ImageUrls, removed, newUrls)
		}

		if _, err := coursesCol.UpdateByID(ctx, courseID, bson.M{"$set": set}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db update failed"})
			return
		}

		// DB update went fine; old images can go.
		if len(removed) > 0 {
			if store == nil {
				store, _ = utils.NewObjectStorage(ctx)
			}
			if store != nil {
				objectNames := make([]string, 0, len(removed))
				for _, imageUrl := range removed {
					if obj, err := store.ObjectNameFromPublicURL(imageUrl); err == nil {
						objectNames = append(objectNames, obj)
					}
				}
				_ = store.DeleteObjects(ctx, objectNames)
			}
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// DELETE /courses/:id
func DeleteCourse() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		courseID, err := bson.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid course id"})
			return
		}

		coursesCol := database.OpenCollection("courses")

		var course models.Course
		if err := coursesCol.FindOne(ctx, bson.M{"_id": courseID}).Decode(&course); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "course not found"})
			return
		}

		if !mayEditCourse(c, course) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not your course"})
			return
		}

		if _, err := coursesCol.DeleteOne(ctx, bson.M{"_id": courseID}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		// Best-effort image cleanup; a dangling object is not worth a 500.
		if len(course.ImageUrls) > 0 {
			if store, err := utils.NewObjectStorage(ctx); err == nil {
				objectNames := make([]string, 0, len(course.ImageUrls))
				for _, imageUrl := range course.ImageUrls {
					if obj, err := store.ObjectNameFromPublicURL(imageUrl); err == nil {
						objectNames = append(objectNames, obj)
					}
				}
				_ = store.DeleteObjects(ctx, objectNames)
			}
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Course deleted"})
	}
}

// mayEditCourse: admins edit anything, instructors only their own courses.
func mayEditCourse(c *gin.Context, course models.Course) bool {
	roleVal, _ := c.Get("role")
	if roleVal == string(models.RoleAdmin) {
		return true
	}
	userID, ok := currentUserID(c)
	return ok && userID == course.Instructor
}

func currentUserID(c *gin.Context) (bson.ObjectID, bool) {
	userIDStr, ok := c.Get("userID")
	if !ok {
		return bson.ObjectID{}, false
	}
	id, err := bson.ObjectIDFromHex(userIDStr.(string))
	if err != nil {
		return bson.ObjectID{}, false
	}
	return id, true
}

func intersectStrings(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, x := range b {
		set[x] = struct{}{}
	}
	out := make([]string, 0)
	for _, x := range a {
		if _, ok := set[x]; ok {
			out = append(out, x)
		}
	}
	return out
}

func mergeImageUrls(oldUrls, toRemove, toAdd []string) []string {
	removeSet := make(map[string]struct{}, len(toRemove))
	for _, u := range toRemove {
		removeSet[u] = struct{}{}
	}

	final := make([]string, 0, len(oldUrls)+len(toAdd))
	exists := make(map[string]struct{})

	for _, u := range oldUrls {
		if _, shouldRemove := removeSet[u]; !shouldRemove {
			final = append(final, u)
			exists[u] = struct{}{}
		}
	}
	for _, u := range toAdd {
		if _, already := exists[u]; !already {
			final = append(final, u)
			exists[u] = struct{}{}
		}
	}
	return final
}
