package domain

import (
	users "github.com/fjod/snapeat/internal/users/domain"
)

// State is everything a client sees of its session.
type State struct {
	Snapshot
	CurrentUser *users.User `json:"currentUser"`
	IsLoading   bool        `json:"isLoading"`
}
