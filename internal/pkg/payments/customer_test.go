package payments

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurshub/kurshub/app/models"
)

func TestGetOrCreateGatewayCustomerCreatesOnce(t *testing.T) {
	svc, repo, gateway, _ := newTestService()
	repo.addAccount(models.Account{ID: 1, Email: "a@example.com", Name: "A"})

	ref1, err := svc.GetOrCreateGatewayCustomer(context.Background(), 1)
	require.NoError(t, err)
	require.NotEmpty(t, ref1)

	ref2, err := svc.GetOrCreateGatewayCustomer(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)
	assert.Equal(t, 1, gateway.createdCustomer, "second call must reuse the stored mapping")

	stored, err := repo.GetAccountByID(1)
	require.NoError(t, err)
	require.NotNil(t, stored.GatewayCustomerID)
	assert.Equal(t, ref1, *stored.GatewayCustomerID)
}

func TestGetOrCreateGatewayCustomerRecoversBySearch(t *testing.T) {
	svc, repo, gateway, _ := newTestService()
	repo.addAccount(models.Account{ID: 1, Email: "a@example.com"})
	// An earlier run created the gateway customer but lost the local mapping.
	gateway.customers[1] = "cus_existing"

	ref, err := svc.GetOrCreateGatewayCustomer(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "cus_existing", ref)
	assert.Equal(t, 0, gateway.createdCustomer, "search hit must prevent a duplicate customer")

	stored, err := repo.GetAccountByID(1)
	require.NoError(t, err)
	require.NotNil(t, stored.GatewayCustomerID)
	assert.Equal(t, "cus_existing", *stored.GatewayCustomerID)
}

func TestGetOrCreateGatewayCustomerUnknownAccount(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GetOrCreateGatewayCustomer(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestGetOrCreateGatewayCustomerGatewayDown(t *testing.T) {
	svc, repo, gateway, _ := newTestService()
	repo.addAccount(models.Account{ID: 1, Email: "a@example.com"})
	gateway.findErr = ErrGatewayUnavailable

	_, err := svc.GetOrCreateGatewayCustomer(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGatewayUnavailable))

	stored, err := repo.GetAccountByID(1)
	require.NoError(t, err)
	assert.Nil(t, stored.GatewayCustomerID, "no mapping may be written without a gateway customer")
}

func TestConcurrentCallsConvergeOnOneMapping(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.addAccount(models.Account{ID: 1, Email: "a@example.com"})

	const workers = 8
	refs := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			refs[i], errs[i] = svc.GetOrCreateGatewayCustomer(context.Background(), 1)
		}(i)
	}
	wg.Wait()
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
	}

	stored, err := repo.GetAccountByID(1)
	require.NoError(t, err)
	require.NotNil(t, stored.GatewayCustomerID)
	for _, ref := range refs {
		assert.Equal(t, *stored.GatewayCustomerID, ref, "every caller must see the winning mapping")
	}
}
