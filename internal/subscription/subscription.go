// Package subscription implements Sonar's recurring acquisition-intent
// model: CRUD over subscriptions plus a background scheduler that selects
// due subscriptions and dispatches them to the registered provider for
// their media_type, retrying failures with exponential backoff capped at
// the subscription's own interval (spec §4.9, §5).
package subscription

import (
	"context"
	"log"
	"time"

	"sonar/internal/catalog"
)

// Submitter dispatches a due subscription to whatever external system
// fulfils its media_type (a provider registry, a download queue, ...).
// The engine wires a concrete implementation in; this package only
// orchestrates timing and retry state.
type Submitter interface {
	Submit(ctx context.Context, sub *catalog.Subscription) error
}

type Service struct {
	cat       *catalog.Catalog
	submitter Submitter
}

func New(cat *catalog.Catalog, submitter Submitter) *Service {
	return &Service{cat: cat, submitter: submitter}
}

func (s *Service) Create(sub catalog.NewSubscription) (*catalog.Subscription, error) {
	return s.cat.CreateSubscription(sub)
}

func (s *Service) Get(id int64) (*catalog.Subscription, error) {
	return s.cat.GetSubscription(id)
}

func (s *Service) ListByUser(userID int64, page catalog.Page) ([]*catalog.Subscription, error) {
	return s.cat.ListSubscriptionsByUser(userID, page)
}

func (s *Service) Delete(id int64) error {
	return s.cat.DeleteSubscription(id)
}

// RunScheduler polls for due subscriptions every tick until ctx is
// cancelled, dispatching each to the Submitter and updating its
// last_submitted/backoff_seconds state accordingly. Intended to run as
// one long-lived goroutine for the process lifetime.
func (s *Service) RunScheduler(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Service) runOnce(ctx context.Context) {
	due, err := s.cat.DueSubscriptions(time.Now(), 50)
	if err != nil {
		log.Printf("subscription: listing due subscriptions: %v", err)
		return
	}
	for _, sub := range due {
		if err := s.submitter.Submit(ctx, sub); err != nil {
			log.Printf("subscription: submit %d failed, backing off: %v", sub.ID, err)
			if markErr := s.cat.MarkSubscriptionFailed(sub.ID); markErr != nil {
				log.Printf("subscription: recording failure for %d: %v", sub.ID, markErr)
			}
			continue
		}
		if err := s.cat.MarkSubscriptionSubmitted(sub.ID, time.Now()); err != nil {
			log.Printf("subscription: recording success for %d: %v", sub.ID, err)
		}
	}
}
