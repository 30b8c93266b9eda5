package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Lesson struct {
	Title    string `bson:"title" json:"title"`
	Duration int    `bson:"duration" json:"duration"` // minutes
	ImageURL string `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
}

type CourseModule struct {
	ModuleNumber int      `bson:"moduleNumber" json:"moduleNumber"`
	Title        string   `bson:"title" json:"title"`
	Lessons      []Lesson `bson:"lessons" json:"lessons"`
}

type Course struct {
	ID               bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title            string         `bson:"title" json:"title"`
	Slug             string         `bson:"slug" json:"slug"`
	Description      string         `bson:"description" json:"description"`
	Category         string         `bson:"category" json:"category"`
	Price            float64        `bson:"price" json:"price"`
	Instructor       bson.ObjectID  `bson:"instructor" json:"instructor"`
	Level            string         `bson:"level,omitempty" json:"level,omitempty"`
	Language         string         `bson:"language,omitempty" json:"language,omitempty"`
	PromoVideo       string         `bson:"promoVideo,omitempty" json:"promoVideo,omitempty"`
	Requirements     []string       `bson:"requirements,omitempty" json:"requirements,omitempty"`
	WhatYouWillLearn []string       `bson:"whatYouWillLearn,omitempty" json:"whatYouWillLearn,omitempty"`
	Tags             []string       `bson:"tags,omitempty" json:"tags,omitempty"`
	ImageUrls        []string       `bson:"imageUrls,omitempty" json:"imageUrls,omitempty"`
	Modules          []CourseModule `bson:"modules" json:"modules"`
	TotalDuration    int            `bson:"totalDuration" json:"totalDuration"` // minutes, computed
	IsPublished      bool           `bson:"isPublished" json:"isPublished"`
	CreatedAt        time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// TotalDurationMinutes sums lesson durations across all modules.
func TotalDurationMinutes(modules []CourseModule) int {
	total := 0
	for _, m := range modules {
		for _, l := range m.Lessons {
			total += l.Duration
		}
	}
	return total
}
