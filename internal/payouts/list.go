package payouts

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripcreators/creator-wallet/pkg/db/models"
	"github.com/tripcreators/creator-wallet/pkg/enums"
	pkgerrors "github.com/tripcreators/creator-wallet/pkg/errors"
	"github.com/tripcreators/creator-wallet/pkg/pagination"
)

// Named ranges accepted by ListPayouts.
const (
	RangeToday       = "today"
	RangeThisWeek    = "this_week"
	RangeThisMonth   = "this_month"
	RangeLast3Months = "last_3_months"
)

// ListFilter narrows a creator's payout history. Range and explicit dates are
// mutually exclusive; EndDate is inclusive of the whole day.
type ListFilter struct {
	Range      string
	StartDate  *time.Time
	EndDate    *time.Time
	Status     string
	Pagination pagination.Params
}

// ListResult is one page of payouts.
type ListResult struct {
	Payouts    []models.Payout
	NextCursor string
}

func (s *service) ListPayouts(ctx context.Context, creatorID uuid.UUID, filter ListFilter) (*ListResult, error) {
	query := ListQuery{CreatorID: creatorID}

	if status := strings.TrimSpace(filter.Status); status != "" {
		parsed, err := enums.ParsePayoutStatus(strings.ToLower(status))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &parsed
	}

	from, to, err := resolveWindow(filter, s.now().UTC())
	if err != nil {
		return nil, err
	}
	query.From, query.To = from, to

	cursor, err := pagination.ParseCursor(filter.Pagination.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor
	query.Limit = pagination.LimitWithBuffer(filter.Pagination.Limit)

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}

	result := &ListResult{}
	result.Payouts, result.NextCursor = pagination.Trim(rows, filter.Pagination.Limit, func(p models.Payout) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return result, nil
}

func resolveWindow(filter ListFilter, now time.Time) (*time.Time, *time.Time, error) {
	rng := strings.ToLower(strings.TrimSpace(filter.Range))
	if rng != "" && (filter.StartDate != nil || filter.EndDate != nil) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "range cannot be combined with start_date or end_date")
	}

	if rng != "" {
		today := startOfDay(now)
		var from time.Time
		switch rng {
		case RangeToday:
			from = today
		case RangeThisWeek:
			offset := (int(today.Weekday()) + 6) % 7
			from = today.AddDate(0, 0, -offset)
		case RangeThisMonth:
			from = startOfMonth(now)
		case RangeLast3Months:
			from = today.AddDate(0, -3, 0)
		default:
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid range").
				WithDetails(map[string]any{"range": filter.Range})
		}
		return &from, nil, nil
	}

	var from, to *time.Time
	if filter.StartDate != nil {
		v := startOfDay(filter.StartDate.UTC())
		from = &v
	}
	if filter.EndDate != nil {
		v := startOfDay(filter.EndDate.UTC()).AddDate(0, 0, 1)
		to = &v
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "start_date must not be after end_date")
	}
	return from, to, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
