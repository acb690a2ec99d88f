package admin

import (
	"github.com/xyz-asif/lostfound/internal/features/analytics"
	"github.com/xyz-asif/lostfound/internal/pkg/access"
	"github.com/xyz-asif/lostfound/internal/pkg/pagination"
)

type ListUsersQuery struct {
	pagination.Query
	Role   string `form:"role" binding:"omitempty,oneof=user staff admin"`
	Active *bool  `form:"active"`
	Search string `form:"search" binding:"max=100"`
}

type UpdateRoleRequest struct {
	Role   access.Role `json:"role" binding:"required,oneof=user staff admin"`
	Branch string      `json:"branch" binding:"max=200"`
}

type UpdateStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

type DeadLettersQuery struct {
	Limit int64 `form:"limit" binding:"omitempty,min=1,max=500"`
}

// Stats is the admin overview.
type Stats struct {
	UsersByRole map[access.Role]int64 `json:"usersByRole"`
	TotalUsers  int64                 `json:"totalUsers"`
	Items       analytics.Totals      `json:"items"`
}
