package transaction

import (
	"context"
	"fmt"
	"regexp"

	"github.com/goliatone/go-fintrack/logging"
	"github.com/goliatone/go-fintrack/pagination"
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Service owns transaction use cases.
type Service struct {
	repo      *Repository
	publisher Publisher
	logger    logging.Logger
}

// NewService creates a service publishing change events on publisher.
func NewService(repo *Repository, publisher Publisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logging.Default(),
	}
}

// WithLogger overrides the logger.
func (s *Service) WithLogger(logger logging.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Create stores a transaction for userID and publishes TopicCreated.
func (s *Service) Create(ctx context.Context, userID string, req Request) (*Transaction, error) {
	req = req.normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t := &Transaction{
		UserID:      userID,
		Type:        req.Type,
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        req.Date,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.publish(ctx, TopicCreated, eventFrom(t))
	return t, nil
}

// Update replaces the fields of a transaction owned by userID and publishes
// TopicUpdated with the previous values.
func (s *Service) Update(ctx context.Context, userID string, id int64, req Request) (*Transaction, error) {
	req = req.normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	previous := Snapshot{Type: t.Type, Amount: t.Amount, Date: t.Date}

	t.Type = req.Type
	t.Amount = req.Amount
	t.Category = req.Category
	t.Date = req.Date
	t.Description = req.Description

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	event := eventFrom(t)
	event.Previous = &previous
	s.publish(ctx, TopicUpdated, event)
	return t, nil
}

// Get returns a transaction owned by userID.
func (s *Service) Get(ctx context.Context, userID string, id int64) (*Transaction, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserID != userID {
		return nil, fmt.Errorf("%w with id %d", ErrNotFound, id)
	}
	return t, nil
}

// List pages through userID's transactions, optionally in one period.
func (s *Service) List(ctx context.Context, userID, period string, page pagination.Request) (pagination.Page[Transaction], error) {
	if period != "" && !periodPattern.MatchString(period) {
		return pagination.Page[Transaction]{}, ErrInvalidPeriod
	}

	page = page.Normalize()
	items, total, err := s.repo.List(ctx, Filter{UserID: userID, Period: period}, page)
	if err != nil {
		return pagination.Page[Transaction]{}, err
	}
	return pagination.NewPage(items, page, total), nil
}

// Totals sums userID's transactions in period.
func (s *Service) Totals(ctx context.Context, userID, period string) (Totals, error) {
	if !periodPattern.MatchString(period) {
		return Totals{}, ErrInvalidPeriod
	}
	return s.repo.Totals(ctx, userID, period)
}

// publish is best effort: the transaction is already stored and reports can
// be recalculated from it.
func (s *Service) publish(ctx context.Context, topic string, event Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Error("failed to publish transaction event",
			"topic", topic,
			"transaction_id", event.TransactionID,
			"error", err,
		)
	}
}
