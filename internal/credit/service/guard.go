package service

import (
	"context"
	"errors"
	"time"

	creditdomain "github.com/smallbiznis/commcredit/internal/credit/domain"
	"github.com/smallbiznis/commcredit/internal/observability/metrics"
	"github.com/smallbiznis/commcredit/internal/observability/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DeductCredits reserves amount units in the current window. The availability check and
// the increment run against the locked usage row in one transaction; the cache is never
// consulted on this path.
func (s *Service) DeductCredits(ctx context.Context, req creditdomain.DeductRequest) (creditdomain.Balance, error) {
	tenantID, channel, err := s.parseTenantAndChannel(req.TenantID, req.Channel)
	if err != nil {
		return creditdomain.Balance{}, err
	}
	if req.Amount <= 0 {
		return creditdomain.Balance{}, creditdomain.ErrInvalidAmount
	}
	if limit := s.creditsConfig.Get().MaxDeductAmount; limit > 0 && req.Amount > limit {
		return creditdomain.Balance{}, creditdomain.ErrAmountExceedsLimit
	}

	ctx, span := s.tracer.Start(ctx, "credit.deduct", trace.WithAttributes(tracing.SafeAttributes(
		attribute.String("channel", channel.String()),
		attribute.Int64("amount", req.Amount),
	)...))
	defer span.End()

	now := s.clock.Now()
	window, err := s.resolveWindow(ctx, s.db, tenantID, now)
	if err != nil {
		return creditdomain.Balance{}, s.deductFailed(ctx, span, channel, err)
	}

	usage, created, err := s.repo.FindOrCreateUsage(ctx, s.db, creditdomain.UsagePeriod{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		PeriodStart: window.Start,
		PeriodEnd:   window.End,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.ledgerMetrics.IncError(metrics.LedgerOperationResolvePeriod, err)
		return creditdomain.Balance{}, s.deductFailed(ctx, span, channel, err)
	}
	if created {
		s.ledgerMetrics.IncPeriodResolution(metrics.PeriodRowCreated)
	} else {
		s.ledgerMetrics.IncPeriodResolution(metrics.PeriodRowExisting)
	}

	var balance creditdomain.Balance
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lockStart := time.Now()
		row, err := s.repo.LockUsage(ctx, tx, usage.ID)
		s.ledgerMetrics.ObserveLockWait(channel.String(), time.Since(lockStart))
		if err != nil {
			return err
		}

		sub, err := s.subRepo.FindCurrent(ctx, tx, tenantID)
		if err != nil {
			return err
		}
		topUps, err := s.repo.SumTopUps(ctx, tx, tenantID, channel, window)
		if err != nil {
			return err
		}

		base := baseAllowance(sub, channel)
		allowance := creditdomain.Allowance(base, topUps)
		sent := row.Sent(channel)
		current := creditdomain.NewBalance(tenantID, channel, window, base, topUps, sent)
		if current.Available < req.Amount {
			return &creditdomain.InsufficientCreditsError{Channel: channel, Requested: req.Amount, Available: current.Available}
		}

		applied, err := s.repo.IncrementSent(ctx, tx, row.ID, channel, req.Amount, allowance, now)
		if err != nil {
			return err
		}
		if !applied {
			return &creditdomain.InsufficientCreditsError{Channel: channel, Requested: req.Amount, Available: current.Available}
		}

		balance = creditdomain.NewBalance(tenantID, channel, window, base, topUps, sent+req.Amount)
		return nil
	})
	if err != nil {
		var insufficient *creditdomain.InsufficientCreditsError
		if errors.As(err, &insufficient) {
			s.metrics.RecordDeduction(ctx, channel.String(), metrics.OutcomeInsufficient, req.Amount)
			span.SetAttributes(attribute.String("outcome", metrics.OutcomeInsufficient))
			s.log.Debug("deduction refused",
				zap.String("tenant_id", tenantID.String()),
				zap.String("channel", channel.String()),
				zap.Int64("requested", insufficient.Requested),
				zap.Int64("available", insufficient.Available),
			)
			return creditdomain.Balance{}, err
		}
		s.ledgerMetrics.IncError(metrics.LedgerOperationDeduct, err)
		return creditdomain.Balance{}, s.deductFailed(ctx, span, channel, err)
	}

	// The next read after this call returns must see the increment.
	_ = s.invalidate(ctx, tenantID, channel, window)

	s.metrics.RecordDeduction(ctx, channel.String(), metrics.OutcomeApplied, req.Amount)
	span.SetAttributes(attribute.String("outcome", metrics.OutcomeApplied))
	return balance, nil
}

// deductFailed records a storage fault and hands the error back untouched.
func (s *Service) deductFailed(ctx context.Context, span trace.Span, channel creditdomain.Channel, err error) error {
	s.metrics.RecordDeduction(ctx, channel.String(), metrics.OutcomeError, 0)
	span.RecordError(tracing.SafeError(err))
	span.SetStatus(codes.Error, "deduct failed")
	s.log.Error("deduction failed",
		zap.String("channel", channel.String()),
		zap.String("reason", metrics.ClassifyLedgerReason(err)),
		zap.Bool("retryable", metrics.IsRetryable(err)),
		zap.Error(err),
	)
	return err
}
