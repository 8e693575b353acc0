package service

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	"github.com/smallbiznis/commcredit/internal/observability/metrics"
	"github.com/smallbiznis/commcredit/internal/observability/tracing"
	"github.com/smallbiznis/commcredit/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const maxReasonLength = 1024

// AddCredits records an immutable grant for the current window. It never looks at usage.
func (s *Service) AddCredits(ctx context.Context, req creditdomain.AddCreditsRequest) (creditdomain.TopUp, error) {
	tenantID, channel, err := s.parseTenantAndChannel(req.TenantID, req.Channel)
	if err != nil {
		return creditdomain.TopUp{}, err
	}
	if req.Amount <= 0 {
		return creditdomain.TopUp{}, creditdomain.ErrInvalidAmount
	}
	if req.Amount > s.creditsConfig.Get().MaxTopUpAmount {
		return creditdomain.TopUp{}, creditdomain.ErrAmountExceedsLimit
	}
	reason := strings.TrimSpace(req.Reason)
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return creditdomain.TopUp{}, creditdomain.ErrInvalidReason
	}

	ctx, span := s.tracer.Start(ctx, "credit.topup", trace.WithAttributes(tracing.SafeAttributes(
		attribute.String("channel", channel.String()),
		attribute.Int64("amount", req.Amount),
		attribute.String("reason", reason),
	)...))
	defer span.End()

	now := s.clock.Now()
	window, err := s.resolveWindow(ctx, s.db, tenantID, now)
	if err != nil {
		return creditdomain.TopUp{}, err
	}

	topUp := creditdomain.TopUp{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		Channel:   channel,
		Amount:    req.Amount,
		Reason:    reason,
		AddedBy:   strings.TrimSpace(req.AddedBy),
		CreatedAt: now,
	}
	if len(req.Metadata) > 0 {
		topUp.Metadata = datatypes.JSONMap(req.Metadata)
	}

	if err := s.repo.InsertTopUp(ctx, s.db, &topUp); err != nil {
		s.ledgerMetrics.IncError(metrics.LedgerOperationTopUp, err)
		span.RecordError(tracing.SafeError(err))
		return creditdomain.TopUp{}, err
	}

	_ = s.invalidate(ctx, tenantID, channel, window)
	s.metrics.RecordTopUp(ctx, channel.String(), req.Amount)

	s.log.Info("credits added",
		zap.String("tenant_id", tenantID.String()),
		zap.String("channel", channel.String()),
		zap.Int64("amount", req.Amount),
		zap.String("added_by", topUp.AddedBy),
	)
	return topUp, nil
}

// ListTopUps pages through the current window's grants, newest first.
func (s *Service) ListTopUps(ctx context.Context, req creditdomain.ListTopUpsRequest) (creditdomain.ListTopUpsResponse, error) {
	tenantID, err := s.parseID(req.TenantID, creditdomain.ErrInvalidTenant)
	if err != nil {
		return creditdomain.ListTopUpsResponse{}, err
	}

	filter := creditdomain.TopUpFilter{TenantID: tenantID}
	if strings.TrimSpace(req.Channel) != "" {
		channel, err := creditdomain.ParseChannel(req.Channel)
		if err != nil {
			return creditdomain.ListTopUpsResponse{}, err
		}
		filter.Channel = channel
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return creditdomain.ListTopUpsResponse{}, creditdomain.ErrInvalidPageToken
	}
	if cursor != nil {
		createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return creditdomain.ListTopUpsResponse{}, creditdomain.ErrInvalidPageToken
		}
		id, err := s.parseID(cursor.ID, creditdomain.ErrInvalidPageToken)
		if err != nil {
			return creditdomain.ListTopUpsResponse{}, err
		}
		createdAt = createdAt.UTC()
		filter.BeforeCreatedAt = &createdAt
		filter.BeforeID = id
	}

	window, err := s.resolveWindow(ctx, s.db, tenantID, s.clock.Now())
	if err != nil {
		return creditdomain.ListTopUpsResponse{}, err
	}
	filter.Window = window

	pageSize := pagination.PageSize(req.PageSize)
	filter.Limit = pageSize + 1

	rows, err := s.repo.ListTopUps(ctx, s.db, filter)
	if err != nil {
		return creditdomain.ListTopUpsResponse{}, err
	}
	rows, more := pagination.Trim(rows, pageSize)

	resp := creditdomain.ListTopUpsResponse{TopUps: rows}
	if more {
		last := rows[len(rows)-1]
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        strconv.FormatInt(last.ID.Int64(), 10),
			CreatedAt: last.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return creditdomain.ListTopUpsResponse{}, err
		}
		resp.NextPageToken = token
	}
	if resp.TopUps == nil {
		resp.TopUps = []creditdomain.TopUp{}
	}
	return resp, nil
}
