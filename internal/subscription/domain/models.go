package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusDraft    SubscriptionStatus = "DRAFT"
	SubscriptionStatusActive   SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue  SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusCanceled SubscriptionStatus = "CANCELED"
	SubscriptionStatusEnded    SubscriptionStatus = "ENDED"
)

func ParseStatus(raw string) (SubscriptionStatus, bool) {
	switch status := SubscriptionStatus(raw); status {
	case SubscriptionStatusDraft,
		SubscriptionStatusActive,
		SubscriptionStatusPastDue,
		SubscriptionStatusCanceled,
		SubscriptionStatusEnded:
		return status, true
	default:
		return "", false
	}
}

// Subscription carries a tenant's base allowance per channel.
// A tenant has at most one row; its lifecycle is owned by provisioning.
type Subscription struct {
	ID               snowflake.ID       `gorm:"primaryKey" json:"id"`
	TenantID         snowflake.ID       `gorm:"not null;uniqueIndex" json:"tenant_id"`
	Status           SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	SMSLimit         int64              `gorm:"column:sms_limit;not null" json:"sms_limit"`
	EmailLimit       int64              `gorm:"column:email_limit;not null" json:"email_limit"`
	WhatsAppLimit    int64              `gorm:"column:whatsapp_limit;not null" json:"whatsapp_limit"`
	VoiceLimit       int64              `gorm:"column:voice_limit;not null" json:"voice_limit"`
	BillingAnchorDay *int16             `gorm:"type:smallint" json:"billing_anchor_day,omitempty"`
	CreatedAt        time.Time          `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time          `gorm:"not null" json:"updated_at"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (s *Subscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}

// LimitFor returns the configured limit for a channel key regardless of status.
func (s *Subscription) LimitFor(channel string) int64 {
	if s == nil {
		return 0
	}
	switch channel {
	case "sms":
		return s.SMSLimit
	case "email":
		return s.EmailLimit
	case "whatsapp":
		return s.WhatsAppLimit
	case "voice":
		return s.VoiceLimit
	default:
		return 0
	}
}

// AllowanceFor is the base allowance granted this period: zero unless active.
func (s *Subscription) AllowanceFor(channel string) int64 {
	if !s.IsActive() {
		return 0
	}
	return s.LimitFor(channel)
}

// AnchorDay returns the billing anchor day or zero when unset.
func (s *Subscription) AnchorDay() int {
	if s == nil || s.BillingAnchorDay == nil {
		return 0
	}
	return int(*s.BillingAnchorDay)
}
