package payments

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GetOrCreateGatewayCustomer maps a local account to its gateway customer
// record, creating one lazily. The mapping is written at most once: if a
// previous call created the gateway customer but failed to persist the id,
// the metadata search below finds it again instead of creating a duplicate.
func (s *Service) GetOrCreateGatewayCustomer(ctx context.Context, accountID uint) (string, error) {
	account, err := s.repo.GetAccountByID(accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: unknown account %d", ErrValidation, accountID)
		}
		return "", err
	}
	if account.GatewayCustomerID != nil && *account.GatewayCustomerID != "" {
		return *account.GatewayCustomerID, nil
	}

	// Lookup before create: the gateway side is authoritative for whether a
	// customer tagged with this account already exists.
	customerRef, err := s.gateway.FindCustomerByAccount(ctx, accountID)
	if err != nil {
		return "", err
	}
	if customerRef == "" {
		customerRef, err = s.gateway.CreateCustomer(ctx, CustomerParams{
			AccountID: accountID,
			Email:     account.Email,
			Name:      account.Name,
		})
		if err != nil {
			return "", err
		}
	}

	won, err := s.repo.SetAccountGatewayCustomerID(accountID, customerRef)
	if err != nil {
		return "", err
	}
	if !won {
		// A concurrent call persisted first; its mapping wins.
		stored, err := s.repo.GetAccountByID(accountID)
		if err != nil {
			return "", err
		}
		if stored.GatewayCustomerID != nil && *stored.GatewayCustomerID != "" {
			return *stored.GatewayCustomerID, nil
		}
	}
	return customerRef, nil
}
