package payments

import (
	"context"
	"log"
	"time"

	"github.com/kurshub/kurshub/app/models"
)

const lapseSweepBatchSize = 200

// ExpireLapsedSubscriptions forces subscriptions whose end timestamp has
// passed out of active. Entitlement checks already treat lapsed rows as
// non-entitling; the sweep keeps the stored status honest.
func (s *Service) ExpireLapsedSubscriptions(ctx context.Context) (int, error) {
	_ = ctx
	expired := 0
	err := s.repo.InTransaction(func(r Repository) error {
		lapsed, err := r.ListLapsedActiveSubscriptions(time.Now(), lapseSweepBatchSize)
		if err != nil {
			return err
		}
		for i := range lapsed {
			sub, err := r.GetSubscriptionForUpdate(lapsed[i].ID)
			if err != nil {
				return err
			}
			if !sub.IsLapsed(time.Now()) {
				// A renewal slipped in between listing and locking.
				continue
			}
			sub.Status = models.SubscriptionInactive
			if err := r.UpdateSubscription(sub); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	return expired, err
}

// StartLapseSweeper runs the lapse sweep periodically until ctx is canceled.
func StartLapseSweeper(ctx context.Context, svc *Service, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := svc.ExpireLapsedSubscriptions(ctx)
				if err != nil {
					log.Printf("[payments] lapse sweep failed: %v", err)
				} else if n > 0 {
					log.Printf("[payments] lapse sweep expired %d subscription(s)", n)
				}
			}
		}
	}()
}
