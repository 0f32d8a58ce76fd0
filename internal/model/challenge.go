package model

import (
	"fmt"
	"time"
)

// Challenge is a habit programme template, e.g. "drink water for 21 days".
//
// Icon, Color, BgGradient, Duration and Difficulty are cosmetic tokens the
// frontend renders directly. They are chosen once when the challenge is
// created and never change afterwards; updates only touch Title and
// Description.
type Challenge struct {
	ID          int64     `json:"id"          db:"id"`
	Title       string    `json:"title"       db:"title"`
	Description string    `json:"description" db:"description"`
	Icon        string    `json:"icon"        db:"icon"`
	Color       string    `json:"color"       db:"color"`
	BgGradient  string    `json:"bgGradient"  db:"bg_gradient"`
	Duration    string    `json:"duration"    db:"duration"`
	Difficulty  string    `json:"difficulty"  db:"difficulty"`
	CreatedAt   time.Time `json:"createdAt"   db:"created_at"`
}

// Participant is the displayable part of a user enrolled in a challenge.
type Participant struct {
	Nickname          string  `json:"nickname"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
}

// ChallengeSummary is a challenge plus its enrolment figures.
// Preview is only filled by catalogue listings.
type ChallengeSummary struct {
	Challenge
	ParticipantCount int
	Preview          []Participant
}

// PlaceholderChallenge returns the challenge that is created when a progress
// update references an id nobody created through the catalogue.
func PlaceholderChallenge(id int64) *Challenge {
	return &Challenge{
		ID:          id,
		Title:       fmt.Sprintf("챌린지 %d", id),
		Description: fmt.Sprintf("챌린지 %d에 대한 설명", id),
		Icon:        IconDefault,
		Color:       "text-gray-500",
		BgGradient:  "from-gray-50 to-gray-100",
		Duration:    "21일",
		Difficulty:  "쉬움",
	}
}

// Icon tokens understood by the frontend.
const (
	IconWater   = "Droplets"
	IconWorkout = "Dumbbell"
	IconBook    = "BookOpen"
	IconCode    = "Code"
	IconDefault = "Sparkles"
)

// Cosmetic value sets a new challenge draws from.
var (
	Colors = []string{
		"text-blue-600",
		"text-orange-600",
		"text-green-600",
		"text-purple-600",
		"text-red-600",
	}
	BgGradients = []string{
		"from-blue-50 to-cyan-50",
		"from-orange-50 to-red-50",
		"from-green-50 to-emerald-50",
		"from-purple-50 to-indigo-50",
		"from-red-50 to-pink-50",
	}
	Durations    = []string{"21일", "30일", "60일"}
	Difficulties = []string{"쉬움", "보통", "어려움"}
)
