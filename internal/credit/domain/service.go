package domain

import "context"

//go:generate mockgen -source=service.go -destination=mocks/mock_service.go -package=mocks

type Service interface {
	Available(ctx context.Context, tenantID string, channel string) (int64, error)
	CanUseChannel(ctx context.Context, tenantID string, channel string, amount int64) (bool, error)
	GetCurrentUsage(ctx context.Context, tenantID string, channel string) (int64, error)
	GetBalance(ctx context.Context, tenantID string, channel string) (Balance, error)
	Summary(ctx context.Context, tenantID string) (Summary, error)

	DeductCredits(ctx context.Context, req DeductRequest) (Balance, error)

	AddCredits(ctx context.Context, req AddCreditsRequest) (TopUp, error)
	ListTopUps(ctx context.Context, req ListTopUpsRequest) (ListTopUpsResponse, error)
}

type DeductRequest struct {
	TenantID string `json:"-"`
	Channel  string `json:"-"`
	Amount   int64  `json:"amount"`
}

type AddCreditsRequest struct {
	TenantID string         `json:"-"`
	Channel  string         `json:"-"`
	Amount   int64          `json:"amount"`
	Reason   string         `json:"reason"`
	AddedBy  string         `json:"-"`
	Metadata map[string]any `json:"metadata"`
}

type ListTopUpsRequest struct {
	TenantID  string `json:"-"`
	Channel   string `form:"channel"`
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
}

type ListTopUpsResponse struct {
	TopUps        []TopUp `json:"top_ups"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}
