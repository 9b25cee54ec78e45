// Package model defines the data structures used throughout the application.
//
// STRUCT TAGS:
// Every persisted type carries two sets of tags:
//   - `json:"..."` is the HTTP wire format (field names follow the public API: _id, user, date)
//   - `bson:"..."` is the stored document format, used by both store backends
//
// Fields that must never leave the server (password hash, GitHub id) are tagged json:"-".
package model

import "time"

// User is a registered account.
//
// Email is stored exactly as supplied: two addresses differing only in case are
// two different accounts. Avatar is nil until the user sets one.
type User struct {
	ID           string    `json:"_id"    bson:"_id"`
	Name         string    `json:"name"   bson:"name"`
	Email        string    `json:"email"  bson:"email"`
	PasswordHash string    `json:"-"      bson:"password"`
	Avatar       *string   `json:"avatar" bson:"avatar"`
	GitHubID     int64     `json:"-"      bson:"githubId,omitempty"` // set for accounts created through GitHub sign-in
	Date         time.Time `json:"date"   bson:"date"`
}

// PublicUser is the projection of a User that is safe to return to clients.
type PublicUser struct {
	ID     string    `json:"_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Avatar *string   `json:"avatar"`
	Date   time.Time `json:"date"`
}

// Author is the projection embedded into content responses ("populate" of the owner).
type Author struct {
	ID     string  `json:"_id"    bson:"_id"`
	Name   string  `json:"name"   bson:"name"`
	Avatar *string `json:"avatar" bson:"avatar"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
		Date:   u.Date,
	}
}

func (u *User) Author() Author {
	return Author{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}
