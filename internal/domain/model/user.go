package model

import (
	"net/url"
	"strings"
	"time"
)

type User struct {
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PhotoURL       string    `json:"photoURL,omitempty"`
	HashedPassword string    `json:"-"` // Not exposed
	CreatedAt      time.Time `json:"createdAt"`
}

// Principal is the authenticated caller handed to every domain operation.
type Principal struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
}

func (u *User) Principal() Principal {
	return Principal{Email: u.Email, Name: u.Name, PhotoURL: u.PhotoURL}
}

// NormalizeIdentity is the canonical form of an e-mail identity. Everything
// is stored canonical, so later comparisons are plain equality.
func NormalizeIdentity(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func SameIdentity(a, b string) bool {
	return NormalizeIdentity(a) == NormalizeIdentity(b)
}

// AvatarURL is the placeholder shown for identities without a photo.
func AvatarURL(identity string) string {
	return "https://i.pravatar.cc/40?u=" + url.QueryEscape(identity)
}
