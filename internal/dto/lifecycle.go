package dto

// GatedRequest carries the administrator password that re-authenticates a
// destructive bulk operation. The password is verified exactly once, before
// any store mutation.
type GatedRequest struct {
	Password string `json:"password" validate:"required"`
}

// DeleteGroupRequest selects the cohort removed by the group cascade.
type DeleteGroupRequest struct {
	GatedRequest
	Grade     int    `json:"grade" validate:"required,min=1"`
	GroupCode string `json:"group_code" validate:"required"`
}
