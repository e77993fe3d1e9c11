package querycache

import "github.com/google/uuid"

const (
	TagCampaign      = "Campaign"
	TagParticipation = "Participation"
	TagProfile       = "Profile"
)

func CampaignTag(id uuid.UUID) string {
	return TagCampaign + ":" + id.String()
}

func UserCampaignsTag(userID uuid.UUID) string {
	return "UserCampaigns:" + userID.String()
}

func UserParticipationsTag(userID uuid.UUID) string {
	return "UserParticipations:" + userID.String()
}

func CampaignParticipationsTag(campaignID uuid.UUID) string {
	return "CampaignParticipations:" + campaignID.String()
}

func ProfileTag(id uuid.UUID) string {
	return TagProfile + ":" + id.String()
}
