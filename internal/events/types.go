package events

import (
	"github.com/google/uuid"
)

const (
	UserSignedUp       = "user_signed_up"
	UserSignedIn       = "user_signed_in"
	UserSignedOut      = "user_signed_out"
	UserPasswordChange = "user_password_changed"
	ProfileUpdated     = "profile_updated"

	CampaignCreated       = "campaign_created"
	CampaignUpdated       = "campaign_updated"
	CampaignStatusChanged = "campaign_status_changed"
	CampaignDeleted       = "campaign_deleted"

	ParticipationJoined  = "participation_joined"
	ParticipationChanged = "participation_changed"
	ParticipationLeft    = "participation_left"
)

type UserEvent struct {
	Type     string    `json:"type"`
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email,omitempty"`
	Username string    `json:"username,omitempty"`
}

type CampaignEvent struct {
	Type        string    `json:"type"`
	CampaignID  uuid.UUID `json:"campaign_id"`
	UserID      uuid.UUID `json:"user_id"`
	ProductName string    `json:"product_name,omitempty"`
	Status      string    `json:"status,omitempty"`
}

type ParticipationEvent struct {
	Type       string    `json:"type"`
	CampaignID uuid.UUID `json:"campaign_id"`
	UserID     uuid.UUID `json:"user_id"`
	Quantity   int       `json:"quantity"`
	Added      int       `json:"added,omitempty"`
}
