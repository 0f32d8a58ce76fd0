// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a person who signed in through Kakao.
//
// KakaoID is Kakao's numeric user id rendered as a string. It is the primary
// key: one Kakao account maps to exactly one row, for the lifetime of the
// system.
//
// Email and ProfilePictureURL are pointers because Kakao only returns them
// when the user consented to share them; they are stored as NULL otherwise.
// Email is UNIQUE in the database when present.
type User struct {
	KakaoID           string    `json:"kakaoId"           db:"kakao_id"`
	Email             *string   `json:"email"             db:"email"`
	Nickname          string    `json:"nickname"          db:"nickname"`
	ProfilePictureURL *string   `json:"profilePictureUrl" db:"profile_picture_url"`
	CreatedAt         time.Time `json:"-"                 db:"created_at"`
	UpdatedAt         time.Time `json:"-"                 db:"updated_at"`
}

// DefaultNickname is given to users that are materialised by a progress
// update before they ever logged in.
const DefaultNickname = "기본 닉네임"
