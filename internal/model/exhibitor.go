package model

// Exhibitor is the company profile that owns slots and schedules.  It is
// linked one-to-one with a user account of role EXHIBITOR.
type Exhibitor struct {
	ID          uint64 `json:"id"`           // exhibitors.id
	UserID      uint64 `json:"user_id"`      // exhibitors.user_id
	CompanyName string `json:"company_name"` // exhibitors.company_name
	IsActive    bool   `json:"is_active"`    // exhibitors.is_active
}
