package domain

import (
	"context"
	"errors"
)

type Service interface {
	GetCurrent(ctx context.Context, tenantID string) (Subscription, error)
	Upsert(ctx context.Context, req UpsertRequest) (Subscription, error)
}

type ChannelLimits struct {
	SMS      int64 `json:"sms"`
	Email    int64 `json:"email"`
	WhatsApp int64 `json:"whatsapp"`
	Voice    int64 `json:"voice"`
}

type UpsertRequest struct {
	TenantID         string        `json:"-"`
	Status           string        `json:"status"`
	Limits           ChannelLimits `json:"limits"`
	BillingAnchorDay *int16        `json:"billing_anchor_day"`
}

var (
	ErrInvalidTenant        = errors.New("invalid_tenant")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidLimit         = errors.New("invalid_limit")
	ErrInvalidAnchorDay     = errors.New("invalid_billing_anchor_day")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)
