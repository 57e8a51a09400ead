// Package model contains persistence-facing domain entities.
package model

import (
	"strings"
	"time"

	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	apperrors "github.com/quizdeck/quiz-api/internal/errors"
)

// User is the account record held by the principal source. Password is the
// bcrypt digest, never the plaintext, and never serialized.
type User struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Password      string          `json:"-"`
	Role          domainauth.Role `json:"role"`
	EmailVerified bool            `json:"emailVerified"`
	Image         *string         `json:"image"`
	Banned        bool            `json:"banned"`
	BanReason     *string         `json:"banReason,omitempty"`
	BanExpires    *time.Time      `json:"banExpires,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Principal returns the session snapshot for this user.
func (u *User) Principal() *domainauth.Principal {
	return &domainauth.Principal{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		EmailVerified: u.EmailVerified,
		Image:         u.Image,
	}
}

// CreateUserRequest carries the fields needed to create an account.
// The Password field is the already-hashed digest.
type CreateUserRequest struct {
	Name     string
	Email    string
	Password string
}

// Validate checks required fields.
func (r *CreateUserRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return apperrors.ValidationField("name", "name is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return apperrors.ValidationField("email", "email is required")
	}
	if r.Password == "" {
		return apperrors.ValidationField("password", "password is required")
	}
	return nil
}

// UpdateProfileRequest carries the mutable profile fields. Nil means unchanged.
type UpdateProfileRequest struct {
	Name  *string
	Image *string
}

// Search and sort vocabulary for the admin user listing. Values are
// allowlisted before reaching SQL.
const (
	SearchFieldEmail = "email"
	SearchFieldName  = "name"

	SearchOpContains   = "contains"
	SearchOpStartsWith = "startsWith"
	SearchOpEndsWith   = "endsWith"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListUsersQuery describes the admin user listing: optional substring search,
// sorting, and pagination.
type ListUsersQuery struct {
	SearchValue    string
	SearchField    string
	SearchOperator string
	SortBy         string
	SortDirection  string
	Limit          int
	Offset         int
}

// Normalize applies defaults and validates the allowlisted vocabulary.
func (q *ListUsersQuery) Normalize() error {
	if q.SearchField == "" {
		q.SearchField = SearchFieldEmail
	}
	if q.SearchField != SearchFieldEmail && q.SearchField != SearchFieldName {
		return apperrors.ValidationField("searchField", "searchField must be email or name")
	}

	if q.SearchOperator == "" {
		q.SearchOperator = SearchOpContains
	}
	switch q.SearchOperator {
	case SearchOpContains, SearchOpStartsWith, SearchOpEndsWith:
	default:
		return apperrors.ValidationField("searchOperator", "searchOperator must be contains, startsWith or endsWith")
	}

	if q.SortBy == "" {
		q.SortBy = SearchFieldEmail
	}
	if q.SortBy != SearchFieldEmail && q.SortBy != SearchFieldName {
		return apperrors.ValidationField("sortBy", "sortBy must be email or name")
	}

	if q.SortDirection == "" {
		q.SortDirection = SortAsc
	}
	if q.SortDirection != SortAsc && q.SortDirection != SortDesc {
		return apperrors.ValidationField("sortDirection", "sortDirection must be asc or desc")
	}

	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}
