package audit

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the console.
const (
	ActionRoleCreate     = "role.create"
	ActionRoleUpdate     = "role.update"
	ActionUserRoleUpdate = "user.role.update"
)

// Entry represents one successful administrative change.
type Entry struct {
	ID         uuid.UUID
	ActorID    string
	ActorEmail string
	Action     string
	TargetType string // "role" or "user"
	TargetID   string
	Detail     string
	CreatedAt  time.Time
}
