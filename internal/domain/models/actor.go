package models

// Role is the farm membership role supplied by the authentication layer.
type Role string

const (
	RoleOwner    Role = "owner"
	RoleManager  Role = "manager"
	RoleFarmhand Role = "farmhand"
)

// CanReview reports whether the role may decide pending approvals.
func (r Role) CanReview() bool {
	return r == RoleOwner || r == RoleManager
}

// Actor is a verified user acting within one farm.
type Actor struct {
	UserID string `json:"user_id"`
	FarmID string `json:"farm_id"`
	Role   Role   `json:"role"`
}

// Membership links a user to a farm. Phone is the WhatsApp identifier used to map inbound senders.
type Membership struct {
	UserID string `bson:"user_id" json:"user_id"`
	FarmID string `bson:"farm_id" json:"farm_id"`
	Role   Role   `bson:"role" json:"role"`
	Phone  string `bson:"phone,omitempty" json:"phone,omitempty"`
	Name   string `bson:"name,omitempty" json:"name,omitempty"`
}

// Actor converts the membership into the acting identity.
func (m Membership) Actor() Actor {
	return Actor{UserID: m.UserID, FarmID: m.FarmID, Role: m.Role}
}

// FarmSettings holds per-farm ingestion settings.
type FarmSettings struct {
	ID              string `bson:"_id" json:"id"`
	Name            string `bson:"name,omitempty" json:"name,omitempty"`
	MaxBackdateDays int    `bson:"max_backdate_days" json:"max_backdate_days"`
	Timezone        string `bson:"timezone,omitempty" json:"timezone,omitempty"`
}
