package models

// Message privacy settings. Controls whether unconnected users may open a
// direct-message channel to this user.
const (
	PrivacyPublic  = "public"
	PrivacyPrivate = "private"
)

/** --------------------ENTITIES-------------------- */
// User is owned by the auth subsystem; this service only ever reads it.
// The table is migrated here for dev and test environments.
type User struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Username       string `gorm:"uniqueIndex;not null" json:"username"`
	Email          string `gorm:"uniqueIndex;not null" json:"email"`
	MessagePrivacy string `gorm:"not null;default:public;size:16" json:"messagePrivacy"`
}

// Follow is a directed edge in the social graph: FollowerID has chosen to
// track TargetID. It does not imply reciprocity. Created and destroyed by
// the social-graph subsystem; read-only from this service.
type Follow struct {
	ID         uint `gorm:"primaryKey" json:"id"`
	FollowerID uint `gorm:"not null;uniqueIndex:idx_follow_pair" json:"followerId"`
	TargetID   uint `gorm:"not null;uniqueIndex:idx_follow_pair" json:"targetId"`
}

/** --------------------API RESPONSE-------------------- */
// PresenceResponse reports whether a user currently holds a live chat
// connection on any instance.
type PresenceResponse struct {
	UserID uint `json:"user_id"`
	Online bool `json:"online"`
}
