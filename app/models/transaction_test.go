package models

import (
	"testing"
	"time"
)

func TestCanTransitionTransaction(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{from: TransactionPending, to: TransactionCompleted, want: true},
		{from: TransactionPending, to: TransactionFailed, want: true},
		{from: TransactionCompleted, to: TransactionRefunded, want: true},
		{from: TransactionCompleted, to: TransactionCanceled, want: true},
		{from: TransactionCompleted, to: TransactionFailed, want: false},
		{from: TransactionFailed, to: TransactionCompleted, want: false},
		{from: TransactionRefunded, to: TransactionCompleted, want: false},
		{from: TransactionPending, to: TransactionRefunded, want: false},
	}

	for _, tt := range tests {
		if got := CanTransitionTransaction(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransitionTransaction(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSubscriptionIsLapsed(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	s := Subscription{Status: SubscriptionActive, EndsAt: &past}
	if !s.IsLapsed(now) {
		t.Fatalf("expected active subscription with past end to be lapsed")
	}

	s = Subscription{Status: SubscriptionActive, EndsAt: &future}
	if s.IsLapsed(now) {
		t.Fatalf("expected active subscription with future end not to be lapsed")
	}

	s = Subscription{Status: SubscriptionCanceled, EndsAt: &past}
	if s.IsLapsed(now) {
		t.Fatalf("expected canceled subscription not to be lapsed")
	}

	s = Subscription{Status: SubscriptionActive}
	if s.IsLapsed(now) {
		t.Fatalf("expected active subscription without end not to be lapsed")
	}
}

func TestSubscriptionIsEntitling(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	s := Subscription{Status: SubscriptionActive}
	if !s.IsEntitling(now) {
		t.Fatalf("expected open-ended active subscription to entitle")
	}

	s = Subscription{Status: SubscriptionActive, EndsAt: &past}
	if s.IsEntitling(now) {
		t.Fatalf("expected expired subscription not to entitle")
	}

	s = Subscription{Status: SubscriptionPastDue}
	if s.IsEntitling(now) {
		t.Fatalf("expected past_due subscription not to entitle")
	}
}
