package domain

import (
	"math"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// UsagePeriod is the per-tenant ledger row for one billing window.
// Counters only grow; at most one row exists per (tenant_id, period_start).
type UsagePeriod struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	TenantID     snowflake.ID `gorm:"not null;uniqueIndex:ux_usage_periods_tenant_start"`
	PeriodStart  time.Time    `gorm:"not null;uniqueIndex:ux_usage_periods_tenant_start"`
	PeriodEnd    time.Time    `gorm:"not null"`
	SMSSent      int64        `gorm:"column:sms_sent;not null;default:0"`
	EmailSent    int64        `gorm:"column:email_sent;not null;default:0"`
	WhatsAppSent int64        `gorm:"column:whatsapp_sent;not null;default:0"`
	VoiceSent    int64        `gorm:"column:voice_sent;not null;default:0"`
	CreatedAt    time.Time    `gorm:"not null"`
	UpdatedAt    time.Time    `gorm:"not null"`
}

func (UsagePeriod) TableName() string { return "usage_periods" }

func (u *UsagePeriod) Sent(channel Channel) int64 {
	if u == nil {
		return 0
	}
	switch channel {
	case ChannelSMS:
		return u.SMSSent
	case ChannelEmail:
		return u.EmailSent
	case ChannelWhatsApp:
		return u.WhatsAppSent
	case ChannelVoice:
		return u.VoiceSent
	default:
		return 0
	}
}

// TopUp is an immutable grant of extra credits scoped to the window it was created in.
type TopUp struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID  snowflake.ID      `gorm:"not null;index:ix_credit_topups_tenant_channel_created,priority:1" json:"tenant_id"`
	Channel   Channel           `gorm:"type:text;not null;index:ix_credit_topups_tenant_channel_created,priority:2" json:"channel"`
	Amount    int64             `gorm:"not null" json:"amount"`
	Reason    string            `gorm:"type:text" json:"reason,omitempty"`
	AddedBy   string            `gorm:"type:text" json:"added_by,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;index:ix_credit_topups_tenant_channel_created,priority:3" json:"created_at"`
}

func (TopUp) TableName() string { return "credit_topups" }

// Window is a half-open billing period [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Balance is the derived credit position of one tenant channel in one window.
type Balance struct {
	TenantID    snowflake.ID `json:"tenant_id"`
	Channel     Channel      `json:"channel"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
	Base        int64        `json:"base"`
	TopUps      int64        `json:"top_ups"`
	Used        int64        `json:"used"`
	Available   int64        `json:"available"`
}

// Allowance is base + topUps, saturating at math.MaxInt64.
func Allowance(base, topUps int64) int64 {
	if topUps > 0 && base > math.MaxInt64-topUps {
		return math.MaxInt64
	}
	return base + topUps
}

// NewBalance derives availability as max(0, base + topups - used).
func NewBalance(tenantID snowflake.ID, channel Channel, window Window, base, topUps, used int64) Balance {
	available := Allowance(base, topUps)
	if used > 0 {
		available -= used
	}
	if available < 0 {
		available = 0
	}
	return Balance{
		TenantID:    tenantID,
		Channel:     channel,
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
		Base:        base,
		TopUps:      topUps,
		Used:        used,
		Available:   available,
	}
}

type Summary struct {
	TenantID           snowflake.ID `json:"tenant_id"`
	SubscriptionStatus string       `json:"subscription_status"`
	PeriodStart        time.Time    `json:"period_start"`
	PeriodEnd          time.Time    `json:"period_end"`
	Channels           []Balance    `json:"channels"`
}
