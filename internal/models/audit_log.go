package models

// AuditLog records user and job operations that change financial state.
// UserID is empty for actions performed by a scheduled job, so it is
// stored as text rather than a foreign key.
type AuditLog struct {
	Base
	UserID       string `gorm:"index" json:"user_id,omitempty"`
	Actor        string `gorm:"not null;default:'user'" json:"actor"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}
