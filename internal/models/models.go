package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CampaignStatus string

const (
	CampaignStatusOpen      CampaignStatus = "open"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusOpen, CampaignStatusCompleted, CampaignStatusCancelled:
		return true
	}
	return false
}

// Terminal statuses never change again.
func (s CampaignStatus) Terminal() bool {
	return s == CampaignStatusCompleted || s == CampaignStatusCancelled
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	Email        string    `gorm:"uniqueIndex;not null"  json:"email"`
	PasswordHash string    `gorm:"not null"              json:"-"`
	CreatedAt    time.Time `gorm:"autoCreateTime"        json:"created_at"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"             json:"id"`
	JTI       string    `gorm:"uniqueIndex;not null"   json:"jti"`
	Token     string    `gorm:"uniqueIndex;not null"   json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt int64     `gorm:"not null"               json:"expires_at"`
	Revoked   bool      `gorm:"default:false"          json:"revoked"`
}

type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"   json:"id"`
	Username  string    `gorm:"uniqueIndex;not null"   json:"username"`
	FullName  *string   `                              json:"full_name"`
	AvatarURL *string   `                              json:"avatar_url"`
	Phone     *string   `                              json:"phone"`
	CreatedAt time.Time `gorm:"autoCreateTime"         json:"created_at"`
}

type Campaign struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"                       json:"id"`
	CreatedBy      uuid.UUID       `gorm:"type:uuid;index;not null"                   json:"created_by"`
	ProductName    string          `gorm:"not null"                                   json:"product_name"`
	ProductImage   *string         `                                                  json:"product_image"`
	ProductLink    *string         `                                                  json:"product_link"`
	Description    *string         `                                                  json:"description"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null"                json:"unit_price"`
	MOQ            int             `gorm:"column:moq;not null;check:moq > 0"          json:"moq"`
	Status         CampaignStatus  `gorm:"type:varchar(16);index;not null;default:open" json:"status"`
	CreatedAt      time.Time       `gorm:"autoCreateTime;index"                       json:"created_at"`
	Participations []Participation `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE" json:"participations,omitempty"`
}

// MaxPledgeQuantity bounds a single pledge, including everything a user has added through repeated joins.
const MaxPledgeQuantity = 1_000_000

type Participation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"                                  json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_participation_user_campaign;not null" json:"user_id"`
	CampaignID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_participation_user_campaign;index;not null" json:"campaign_id"`
	Quantity   int       `gorm:"not null;check:quantity > 0 AND quantity <= 1000000"   json:"quantity"`
	JoinedAt   time.Time `gorm:"autoCreateTime;index"                                  json:"joined_at"`
	Profile    *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"         json:"profiles,omitempty"`
	Campaign   *Campaign `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE"     json:"campaigns,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = CampaignStatusOpen
	}
	return nil
}

func (p *Participation) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Profile) TableName() string {
	return "profiles"
}

func (Campaign) TableName() string {
	return "campaigns"
}

func (Participation) TableName() string {
	return "participations"
}

// All lists every model in migration order.
func All() []any {
	return []any{&User{}, &RefreshToken{}, &Profile{}, &Campaign{}, &Participation{}}
}
