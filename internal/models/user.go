package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserStatus is the employer approval lifecycle:
//
//	incomplete -> pending -> approved
//	                 |
//	                 +-> rejected -> pending (after resubmitting the profile)
type UserStatus string

const (
	UserIncomplete UserStatus = "incomplete"
	UserPending    UserStatus = "pending"
	UserApproved   UserStatus = "approved"
	UserRejected   UserStatus = "rejected"
)

var userTransitions = map[UserStatus][]UserStatus{
	UserIncomplete: {UserPending},
	UserPending:    {UserApproved, UserRejected},
	UserRejected:   {UserPending},
}

// CanTransition reports whether a profile may move from s to the target status.
func (s UserStatus) CanTransition(to UserStatus) bool {
	for _, allowed := range userTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

type UserProfile struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"displayName"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	Organization string     `json:"organization,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	District     string     `json:"district,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
