package domain

import "github.com/google/uuid"

// DefaultUsername is assigned on join until members can pick their own.
const DefaultUsername = "User"

type Member struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Perms    Perms     `json:"perms"`
}

func NewMember(id uuid.UUID) *Member {
	return &Member{
		ID:       id,
		Username: DefaultUsername,
		Perms:    PermNone,
	}
}
