package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/kurshub/kurshub/app/models"
)

// fakeRepository is an in-memory Repository with copy-on-read semantics so
// mutations only stick after an explicit Update call, like with a real DB.
// InTransaction snapshots all state and restores it when the callback errors.
type fakeRepository struct {
	// txMu serializes InTransaction callers; mu protects the maps.
	txMu sync.Mutex
	mu   sync.Mutex

	accounts      map[uint]models.Account
	courses       map[uint]models.Course
	transactions  map[uint]models.Transaction
	subscriptions map[uint]models.Subscription
	events        map[string]models.PaymentWebhookEvent
	enrollments   map[string]models.Enrollment

	nextTxnID   uint
	nextSubID   uint
	nextEventID uint

	failCreateTransaction  error
	failUpdateSubscription error
	failMarkProcessed      error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accounts:      map[uint]models.Account{},
		courses:       map[uint]models.Course{},
		transactions:  map[uint]models.Transaction{},
		subscriptions: map[uint]models.Subscription{},
		events:        map[string]models.PaymentWebhookEvent{},
		enrollments:   map[string]models.Enrollment{},
	}
}

func (f *fakeRepository) addAccount(a models.Account) {
	f.accounts[a.ID] = a
}

func (f *fakeRepository) addCourse(c models.Course) {
	f.courses[c.ID] = c
}

func (f *fakeRepository) addTransaction(t models.Transaction) {
	if t.ID == 0 {
		f.nextTxnID++
		t.ID = f.nextTxnID
	} else if t.ID > f.nextTxnID {
		f.nextTxnID = t.ID
	}
	f.transactions[t.ID] = t
}

func (f *fakeRepository) addSubscription(s models.Subscription) {
	if s.ID == 0 {
		f.nextSubID++
		s.ID = f.nextSubID
	} else if s.ID > f.nextSubID {
		f.nextSubID = s.ID
	}
	f.subscriptions[s.ID] = s
}

func (f *fakeRepository) snapshot() *fakeRepository {
	c := newFakeRepository()
	for k, v := range f.accounts {
		c.accounts[k] = v
	}
	for k, v := range f.courses {
		c.courses[k] = v
	}
	for k, v := range f.transactions {
		c.transactions[k] = v
	}
	for k, v := range f.subscriptions {
		c.subscriptions[k] = v
	}
	for k, v := range f.events {
		c.events[k] = v
	}
	for k, v := range f.enrollments {
		c.enrollments[k] = v
	}
	c.nextTxnID, c.nextSubID, c.nextEventID = f.nextTxnID, f.nextSubID, f.nextEventID
	return c
}

func (f *fakeRepository) restore(s *fakeRepository) {
	f.accounts = s.accounts
	f.courses = s.courses
	f.transactions = s.transactions
	f.subscriptions = s.subscriptions
	f.events = s.events
	f.enrollments = s.enrollments
	f.nextTxnID, f.nextSubID, f.nextEventID = s.nextTxnID, s.nextSubID, s.nextEventID
}

func (f *fakeRepository) InTransaction(fn func(Repository) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	f.mu.Lock()
	snap := f.snapshot()
	f.mu.Unlock()
	if err := fn(f); err != nil {
		f.mu.Lock()
		f.restore(snap)
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeRepository) GetAccountByID(id uint) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (f *fakeRepository) SetAccountGatewayCustomerID(accountID uint, customerRef string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[accountID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if a.GatewayCustomerID != nil {
		return false, nil
	}
	a.GatewayCustomerID = &customerRef
	f.accounts[accountID] = a
	return true, nil
}

func (f *fakeRepository) GetCourseByID(id uint) (*models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (f *fakeRepository) CreateTransaction(t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreateTransaction != nil {
		return f.failCreateTransaction
	}
	f.nextTxnID++
	t.ID = f.nextTxnID
	f.transactions[t.ID] = *t
	return nil
}

func (f *fakeRepository) SetTransactionGatewayRef(id uint, gatewayRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if t.GatewayRef == nil {
		t.GatewayRef = &gatewayRef
		f.transactions[id] = t
	}
	return nil
}

func (f *fakeRepository) GetTransactionForUpdate(id uint) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (f *fakeRepository) UpdateTransaction(t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions[t.ID] = *t
	return nil
}

func (f *fakeRepository) ListTransactionsByAccount(accountID uint, offset, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, t := range f.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeRepository) CreateSubscription(s *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSubID++
	s.ID = f.nextSubID
	f.subscriptions[s.ID] = *s
	return nil
}

func (f *fakeRepository) GetSubscriptionForUpdate(id uint) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subscriptions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (f *fakeRepository) GetSubscriptionForUpdateByGatewayRef(gatewayRef string) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subscriptions {
		if s.GatewayRef != nil && *s.GatewayRef == gatewayRef {
			out := s
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpdateSubscription(s *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdateSubscription != nil {
		return f.failUpdateSubscription
	}
	f.subscriptions[s.ID] = *s
	return nil
}

func (f *fakeRepository) ListLapsedActiveSubscriptions(now time.Time, limit int) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Subscription
	for _, s := range f.subscriptions {
		if s.Status == models.SubscriptionActive && s.EndsAt != nil && s.EndsAt.Before(now) {
			out = append(out, s)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(e *models.PaymentWebhookEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.events[e.GatewayEventID]; ok {
		*e = existing
		return false, nil
	}
	f.nextEventID++
	e.ID = f.nextEventID
	f.events[e.GatewayEventID] = *e
	return true, nil
}

func (f *fakeRepository) GetWebhookEventForUpdate(gatewayEventID string) (*models.PaymentWebhookEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.events[gatewayEventID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &e, nil
}

func (f *fakeRepository) MarkWebhookEventProcessed(id uint, processingError string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMarkProcessed != nil {
		return f.failMarkProcessed
	}
	for key, e := range f.events {
		if e.ID == id {
			now := time.Now()
			e.ProcessedAt = &now
			e.ProcessingError = processingError
			f.events[key] = e
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepository) CreateEnrollmentIfNotExists(en *models.Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%d/%d", en.AccountID, en.CourseID)
	if _, ok := f.enrollments[key]; ok {
		return nil
	}
	f.enrollments[key] = *en
	return nil
}

// fakeGateway is a scriptable Gateway. verify maps raw payloads to events;
// tests hand Ingest the event id as payload.
type fakeGateway struct {
	mu sync.Mutex

	customers       map[uint]string
	createdCustomer int
	findErr         error
	createErr       error

	intentResult *IntentResult
	intentErr    error
	subResult    *IntentResult
	subErr       error

	events    map[string]*Event
	verifyErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		customers: map[uint]string{},
		events:    map[string]*Event{},
	}
}

func (g *fakeGateway) CreateCustomer(ctx context.Context, p CustomerParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return "", g.createErr
	}
	g.createdCustomer++
	ref := fmt.Sprintf("cus_%d_%d", p.AccountID, g.createdCustomer)
	g.customers[p.AccountID] = ref
	return ref, nil
}

func (g *fakeGateway) FindCustomerByAccount(ctx context.Context, accountID uint) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.findErr != nil {
		return "", g.findErr
	}
	return g.customers[accountID], nil
}

func (g *fakeGateway) CreatePaymentIntent(ctx context.Context, p IntentParams) (*IntentResult, error) {
	if g.intentErr != nil {
		return nil, g.intentErr
	}
	if g.intentResult != nil {
		return g.intentResult, nil
	}
	return &IntentResult{
		GatewayRef:   fmt.Sprintf("pi_%d", p.TransactionID),
		ClientSecret: fmt.Sprintf("pi_%d_secret", p.TransactionID),
	}, nil
}

func (g *fakeGateway) CreateSubscription(ctx context.Context, p SubscriptionParams) (*IntentResult, error) {
	if g.subErr != nil {
		return nil, g.subErr
	}
	if g.subResult != nil {
		return g.subResult, nil
	}
	return &IntentResult{
		GatewayRef:      fmt.Sprintf("pi_%d", p.TransactionID),
		SubscriptionRef: fmt.Sprintf("sub_%d", p.TransactionID),
		ClientSecret:    fmt.Sprintf("pi_%d_secret", p.TransactionID),
	}, nil
}

func (g *fakeGateway) VerifyWebhook(payload []byte, signatureHeader string) (*Event, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	ev, ok := g.events[string(payload)]
	if !ok {
		return nil, ErrBadSignature
	}
	copied := *ev
	return &copied, nil
}

type notifierCall struct {
	kind      string
	accountID uint
	amount    int64
}

// fakeNotifier records every dispatched notification.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

func (n *fakeNotifier) record(kind string, accountID uint, amount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{kind: kind, accountID: accountID, amount: amount})
}

func (n *fakeNotifier) PaymentSucceeded(ctx context.Context, accountID uint, amountMinor int64, currency, productLabel string) error {
	n.record(models.NotificationPaymentSucceeded, accountID, amountMinor)
	return nil
}

func (n *fakeNotifier) PaymentFailed(ctx context.Context, accountID uint, amountMinor int64, currency, reason string) error {
	n.record(models.NotificationPaymentFailed, accountID, amountMinor)
	return nil
}

func (n *fakeNotifier) SubscriptionCanceled(ctx context.Context, accountID uint) error {
	n.record(models.NotificationSubscriptionCanceled, accountID, 0)
	return nil
}

func (n *fakeNotifier) callsOf(kind string) []notifierCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notifierCall
	for _, c := range n.calls {
		if c.kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// newTestService wires a service onto fresh fakes.
func newTestService() (*Service, *fakeRepository, *fakeGateway, *fakeNotifier) {
	repo := newFakeRepository()
	gateway := newFakeGateway()
	notifier := &fakeNotifier{}
	return NewService(repo, gateway, notifier), repo, gateway, notifier
}
