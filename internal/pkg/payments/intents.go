package payments

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/kurshub/kurshub/app/models"
)

// CreatePaymentIntent starts a one-off course purchase. The PENDING row is
// persisted before the gateway call so a webhook racing the HTTP response
// always has a row to attach to; on gateway failure the row goes FAILED
// instead of lingering as an orphan.
func (s *Service) CreatePaymentIntent(ctx context.Context, accountID, courseID uint) (*IntentResponse, error) {
	account, course, err := s.validateCheckout(accountID, courseID)
	if err != nil {
		return nil, err
	}

	customerRef, err := s.GetOrCreateGatewayCustomer(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		AccountID:   account.ID,
		CourseID:    &course.ID,
		AmountMinor: course.PriceMinor,
		Currency:    course.Currency,
		ProductType: models.ProductTypeSingleCourse,
		Status:      models.TransactionPending,
		Description: fmt.Sprintf("Course purchase: %s", course.Title),
	}
	if err := s.repo.CreateTransaction(txn); err != nil {
		return nil, err
	}

	result, err := s.gateway.CreatePaymentIntent(ctx, IntentParams{
		CustomerRef:   customerRef,
		AmountMinor:   course.PriceMinor,
		Currency:      course.Currency,
		TransactionID: txn.ID,
		AccountID:     account.ID,
		ProductType:   models.ProductTypeSingleCourse,
		Description:   txn.Description,
	})
	if err != nil {
		s.failPendingIntent(txn, err)
		return nil, err
	}

	if err := s.repo.SetTransactionGatewayRef(txn.ID, result.GatewayRef); err != nil {
		return nil, err
	}

	return &IntentResponse{TransactionID: txn.ID, ClientSecret: result.ClientSecret}, nil
}

// CreateSubscriptionIntent starts a recurring subscription for a course plan.
// The subscription row is created inactive; only a reconciled successful
// charge promotes it.
func (s *Service) CreateSubscriptionIntent(ctx context.Context, accountID, courseID uint) (*IntentResponse, error) {
	account, course, err := s.validateCheckout(accountID, courseID)
	if err != nil {
		return nil, err
	}
	if course.GatewayPriceRef == "" {
		return nil, fmt.Errorf("%w: course %d has no subscription price", ErrValidation, courseID)
	}

	customerRef, err := s.GetOrCreateGatewayCustomer(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	sub := &models.Subscription{
		AccountID: account.ID,
		CourseID:  course.ID,
		Status:    models.SubscriptionInactive,
	}
	if err := s.repo.CreateSubscription(sub); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		AccountID:      account.ID,
		SubscriptionID: &sub.ID,
		CourseID:       &course.ID,
		AmountMinor:    course.PriceMinor,
		Currency:       course.Currency,
		ProductType:    models.ProductTypeSubscription,
		Status:         models.TransactionPending,
		Description:    fmt.Sprintf("Subscription: %s", course.Title),
	}
	if err := s.repo.CreateTransaction(txn); err != nil {
		return nil, err
	}

	result, err := s.gateway.CreateSubscription(ctx, SubscriptionParams{
		CustomerRef:   customerRef,
		PriceRef:      course.GatewayPriceRef,
		TransactionID: txn.ID,
		AccountID:     account.ID,
		CourseID:      course.ID,
	})
	if err != nil {
		s.failPendingIntent(txn, err)
		return nil, err
	}

	if result.SubscriptionRef != "" {
		sub.GatewayRef = &result.SubscriptionRef
		if err := s.repo.UpdateSubscription(sub); err != nil {
			return nil, err
		}
	}
	if result.GatewayRef != "" {
		if err := s.repo.SetTransactionGatewayRef(txn.ID, result.GatewayRef); err != nil {
			return nil, err
		}
	}

	return &IntentResponse{TransactionID: txn.ID, SubscriptionID: sub.ID, ClientSecret: result.ClientSecret}, nil
}

func (s *Service) validateCheckout(accountID, courseID uint) (*models.Account, *models.Course, error) {
	account, err := s.repo.GetAccountByID(accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: unknown account %d", ErrValidation, accountID)
		}
		return nil, nil, err
	}
	course, err := s.repo.GetCourseByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: unknown course %d", ErrValidation, courseID)
		}
		return nil, nil, err
	}
	if !course.Published {
		return nil, nil, fmt.Errorf("%w: course %d is not published", ErrValidation, courseID)
	}
	if course.PriceMinor <= 0 {
		return nil, nil, fmt.Errorf("%w: course %d has no positive price", ErrValidation, courseID)
	}
	return account, course, nil
}

// failPendingIntent transitions the row to FAILED after a gateway error. A
// PENDING row without a gateway object must never survive intent creation.
func (s *Service) failPendingIntent(txn *models.Transaction, cause error) {
	txn.Status = models.TransactionFailed
	txn.Description = fmt.Sprintf("%s (gateway error: %v)", txn.Description, cause)
	if err := s.repo.UpdateTransaction(txn); err != nil {
		log.Printf("[payments] failed to mark transaction %d FAILED after gateway error: %v", txn.ID, err)
	}
}
