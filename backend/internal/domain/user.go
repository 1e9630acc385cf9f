package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultStatus is assigned to users created on first login
const DefaultStatus = "Prefer Not to Say"

// Provider names accepted at login
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// Identity links an external login (provider + provider-assigned id) to a user
type Identity struct {
	Provider   string `json:"provider" bson:"provider"`
	ProviderID string `json:"providerId" bson:"provider_id"`
}

// ProviderIdentity is the typed result of a successful provider login
type ProviderIdentity struct {
	Provider   string
	ProviderID string
	Name       string
	Email      string
	Picture    string
}

// User is the internal account record
type User struct {
	ID         string     `json:"id"`
	Identities []Identity `json:"identities"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Picture    string     `json:"picture"`
	Bio        string     `json:"bio"`
	Status     string     `json:"status"`
	Followers  []string   `json:"followers"`
	Following  []string   `json:"following"`
	SavedPosts []string   `json:"savedPosts"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// NewUser builds the record stored on the first login of an identity
func NewUser(pi ProviderIdentity) *User {
	now := time.Now().UTC()
	return &User{
		ID:         uuid.NewString(),
		Identities: []Identity{{Provider: pi.Provider, ProviderID: pi.ProviderID}},
		Name:       pi.Name,
		Email:      pi.Email,
		Picture:    pi.Picture,
		Status:     DefaultStatus,
		Followers:  []string{},
		Following:  []string{},
		SavedPosts: []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// HasIdentity reports whether the user already carries the provider link
func (u *User) HasIdentity(provider, providerID string) bool {
	for _, id := range u.Identities {
		if id.Provider == provider && id.ProviderID == providerID {
			return true
		}
	}
	return false
}

// IsFollowing reports whether userID is in the following set
func (u *User) IsFollowing(userID string) bool {
	return contains(u.Following, userID)
}

// HasSaved reports whether postID is in the saved-posts set
func (u *User) HasSaved(postID string) bool {
	return contains(u.SavedPosts, postID)
}

// Summary returns the public author card embedded in feeds
func (u *User) Summary() Author {
	return Author{ID: u.ID, Name: u.Name, Picture: u.Picture}
}

// PublicProfile is what other users may see; email and identities stay private
type PublicProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Picture   string    `json:"picture"`
	Bio       string    `json:"bio"`
	Status    string    `json:"status"`
	Followers []string  `json:"followers"`
	Following []string  `json:"following"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips the private fields
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Name:      u.Name,
		Picture:   u.Picture,
		Bio:       u.Bio,
		Status:    u.Status,
		Followers: nonNil(u.Followers),
		Following: nonNil(u.Following),
		CreatedAt: u.CreatedAt,
	}
}

// Author is the compact user view attached to posts and comments
type Author struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ProfileUpdate carries the user-editable fields; nil means unchanged
type ProfileUpdate struct {
	Name    *string `json:"name"`
	Bio     *string `json:"bio"`
	Status  *string `json:"status"`
	Picture *string `json:"picture"`
}

// Apply copies the set fields onto the user
func (p ProfileUpdate) Apply(u *User) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
	if p.Picture != nil {
		u.Picture = *p.Picture
	}
	u.UpdatedAt = time.Now().UTC()
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
