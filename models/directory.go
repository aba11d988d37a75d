package models

// Vehicle is the read-only projection of a listed vehicle.
type Vehicle struct {
	ID      string `bson:"id" json:"id"`
	OwnerID string `bson:"owner_id" json:"ownerId"`
	Active  bool   `bson:"active" json:"active"`
}

// Contact holds the addresses a user can be reached at.
type Contact struct {
	UserID   string `bson:"id" json:"id"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
	FCMToken string `bson:"fcm_token,omitempty" json:"fcmToken,omitempty"`
}
