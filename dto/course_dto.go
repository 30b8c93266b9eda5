package dto

type LessonDTO struct {
	Title    string `json:"title" binding:"required"`
	Duration int    `json:"duration" binding:"required,gt=0"`
}

type CourseModuleDTO struct {
	ModuleNumber int         `json:"moduleNumber" binding:"required,gt=0"`
	Title        string      `json:"title" binding:"required"`
	Lessons      []LessonDTO `json:"lessons" binding:"required,min=1"`
}

// CreateCourseDTO is parsed from the "data" multipart field (JSON);
// images travel as separate file parts.
type CreateCourseDTO struct {
	Title            string            `json:"title" binding:"required,min=3"`
	Description      string            `json:"description" binding:"required"`
	Category         string            `json:"category" binding:"required"`
	Price            float64           `json:"price" binding:"gte=0"`
	Level            string            `json:"level"`
	Language         string            `json:"language"`
	PromoVideo       string            `json:"promoVideo"`
	Requirements     []string          `json:"requirements"`
	WhatYouWillLearn []string          `json:"whatYouWillLearn"`
	Tags             []string          `json:"tags"`
	Modules          []CourseModuleDTO `json:"modules" binding:"required,min=1"`
	IsPublished      bool              `json:"isPublished"`
}

// UpdateCourseDTO — all fields are optional pointers
type UpdateCourseDTO struct {
	Title             *string            `json:"title,omitempty"`
	Description       *string            `json:"description,omitempty"`
	Category          *string            `json:"category,omitempty"`
	Price             *float64           `json:"price,omitempty"`
	Level             *string            `json:"level,omitempty"`
	Language          *string            `json:"language,omitempty"`
	PromoVideo        *string            `json:"promoVideo,omitempty"`
	Requirements      *[]string          `json:"requirements,omitempty"`
	WhatYouWillLearn  *[]string          `json:"whatYouWillLearn,omitempty"`
	Tags              *[]string          `json:"tags,omitempty"`
	Modules           *[]CourseModuleDTO `json:"modules,omitempty"`
	IsPublished       *bool              `json:"isPublished,omitempty"`
	RemovedImagesUrls []string           `json:"removedImagesUrls,omitempty"`
}

type CheckoutDTO struct {
	CourseIDs []string          `json:"courseIds" binding:"required,min=1"`
	Currency  string            `json:"currency"`
	Metadata  map[string]string `json:"metadata"`
}

// WebhookEventDTO is the payload the payment provider posts back.
type WebhookEventDTO struct {
	SessionID       string `json:"sessionId" binding:"required"`
	Status          string `json:"status" binding:"required"`
	PaymentIntentID string `json:"paymentIntentId"`
}
