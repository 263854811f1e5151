package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurshub/kurshub/app/models"
)

func TestExpireLapsedSubscriptions(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.addSubscription(models.Subscription{
		ID:         1,
		AccountID:  1,
		CourseID:   7,
		Status:     models.SubscriptionActive,
		GatewayRef: strPtr("sub_lapsed"),
		EndsAt:     timePtr(time.Now().AddDate(0, 0, -2)),
	})
	repo.addSubscription(models.Subscription{
		ID:         2,
		AccountID:  2,
		CourseID:   7,
		Status:     models.SubscriptionActive,
		GatewayRef: strPtr("sub_current"),
		EndsAt:     timePtr(time.Now().AddDate(0, 1, 0)),
	})
	repo.addSubscription(models.Subscription{
		ID:         3,
		AccountID:  3,
		CourseID:   7,
		Status:     models.SubscriptionCanceled,
		GatewayRef: strPtr("sub_canceled"),
		EndsAt:     timePtr(time.Now().AddDate(0, 0, -5)),
	})

	n, err := svc.ExpireLapsedSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, models.SubscriptionInactive, repo.subscriptions[1].Status)
	assert.Equal(t, models.SubscriptionActive, repo.subscriptions[2].Status)
	assert.Equal(t, models.SubscriptionCanceled, repo.subscriptions[3].Status)
}

func TestExpireLapsedSubscriptionsIdempotent(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.addSubscription(models.Subscription{
		ID:         1,
		AccountID:  1,
		CourseID:   7,
		Status:     models.SubscriptionActive,
		GatewayRef: strPtr("sub_lapsed"),
		EndsAt:     timePtr(time.Now().AddDate(0, 0, -2)),
	})

	n, err := svc.ExpireLapsedSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.ExpireLapsedSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "a second sweep finds nothing left to expire")
}
