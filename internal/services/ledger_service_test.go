// internal/services/ledger_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-backend/internal/models"
)

// fakeTransactionStore keeps ledger records in a map keyed by order id,
// mirroring the upsert semantics of the real store.
type fakeTransactionStore struct {
	records map[string]*models.PaymentTransaction
	saves   int
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{records: map[string]*models.PaymentTransaction{}}
}

func (f *fakeTransactionStore) FindByOrderID(_ context.Context, orderID string) (*models.PaymentTransaction, error) {
	tx, ok := f.records[orderID]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (f *fakeTransactionStore) Save(_ context.Context, tx *models.PaymentTransaction) error {
	f.saves++
	cp := *tx
	f.records[tx.OrderID] = &cp
	return nil
}

type fakeItemResolver struct {
	products map[string]ItemRef
	users    map[string]*models.User
}

func (f *fakeItemResolver) ResolveProduct(_ context.Context, productRef string) (ItemRef, error) {
	item, ok := f.products[productRef]
	if !ok {
		return ItemRef{}, ErrUnknownProduct
	}
	return item, nil
}

func (f *fakeItemResolver) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, ErrUnknownUser
	}
	return user, nil
}

type entitlementCall struct {
	userID uuid.UUID
	item   ItemRef
}

type fakeEntitlements struct {
	grants  []entitlementCall
	revokes []entitlementCall
}

func (f *fakeEntitlements) Grant(_ context.Context, userID uuid.UUID, item ItemRef) error {
	f.grants = append(f.grants, entitlementCall{userID, item})
	return nil
}

func (f *fakeEntitlements) Revoke(_ context.Context, userID uuid.UUID, item ItemRef) error {
	f.revokes = append(f.revokes, entitlementCall{userID, item})
	return nil
}

type ledgerFixture struct {
	svc          *LedgerService
	store        *fakeTransactionStore
	entitlements *fakeEntitlements
	user         *models.User
	item         ItemRef
}

func newLedgerFixture() *ledgerFixture {
	user := &models.User{}
	user.ID = uuid.New()
	user.Email = "buyer@example.com"

	item := ItemRef{Kind: models.ItemKindClass, ID: uuid.New()}

	store := newFakeTransactionStore()
	entitlements := &fakeEntitlements{}
	svc := &LedgerService{
		transactions: store,
		catalog: &fakeItemResolver{
			products: map[string]ItemRef{"PROD-42": item},
			users:    map[string]*models.User{user.Email: user},
		},
		entitlements: entitlements,
	}
	return &ledgerFixture{svc: svc, store: store, entitlements: entitlements, user: user, item: item}
}

func paymentEvent(kind PaymentEventKind) PaymentEvent {
	return PaymentEvent{
		Kind:        kind,
		OrderID:     "ORDER-1",
		ProductRef:  "PROD-42",
		Email:       "buyer@example.com",
		Amount:      99.0,
		Currency:    "USD",
		BillingType: "single_payment",
		Raw:         map[string]string{"event": string(kind)},
	}
}

func TestEventKindFromIPN(t *testing.T) {
	assert.Equal(t, PaymentEventPayment, EventKindFromIPN("on_payment"))
	assert.Equal(t, PaymentEventRefund, EventKindFromIPN("on_refund"))
	assert.Equal(t, PaymentEventChargeback, EventKindFromIPN("on_chargeback"))
	assert.Equal(t, PaymentEventPaymentMissed, EventKindFromIPN("on_payment_missed"))
	assert.Equal(t, PaymentEventOther, EventKindFromIPN("on_affiliation"))
	assert.Equal(t, PaymentEventOther, EventKindFromIPN(""))
}

func TestApplyPaymentGrantsAccess(t *testing.T) {
	f := newLedgerFixture()

	err := f.svc.ApplyPaymentEvent(context.Background(), paymentEvent(PaymentEventPayment))
	require.NoError(t, err)

	record := f.store.records["ORDER-1"]
	require.NotNil(t, record)
	assert.Equal(t, models.TransactionStatusCompleted, record.Status)
	assert.Equal(t, f.user.ID, record.UserID)
	assert.Equal(t, f.item.ID, record.ItemID)
	assert.NotNil(t, record.PaidAt)
	assert.Nil(t, record.RefundedAt)

	require.Len(t, f.entitlements.grants, 1)
	assert.Equal(t, entitlementCall{f.user.ID, f.item}, f.entitlements.grants[0])
}

func TestApplyPaymentDuplicateDeliveryIsIdempotent(t *testing.T) {
	f := newLedgerFixture()
	evt := paymentEvent(PaymentEventPayment)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.svc.ApplyPaymentEvent(context.Background(), evt))
	}

	// One durable write, one grant, one record.
	assert.Equal(t, 1, f.store.saves)
	assert.Len(t, f.entitlements.grants, 1)
	assert.Len(t, f.store.records, 1)
}

func TestApplyRefundRevokesAccess(t *testing.T) {
	f := newLedgerFixture()
	require.NoError(t, f.svc.ApplyPaymentEvent(context.Background(), paymentEvent(PaymentEventPayment)))

	err := f.svc.ApplyPaymentEvent(context.Background(), paymentEvent(PaymentEventRefund))
	require.NoError(t, err)

	record := f.store.records["ORDER-1"]
	require.NotNil(t, record)
	assert.Equal(t, models.TransactionStatusRefunded, record.Status)
	assert.NotNil(t, record.RefundedAt)
	assert.NotNil(t, record.PaidAt)

	require.Len(t, f.entitlements.revokes, 1)
	assert.Equal(t, entitlementCall{f.user.ID, f.item}, f.entitlements.revokes[0])
}

func TestApplyChargebackRevokesAccess(t *testing.T) {
	f := newLedgerFixture()
	require.NoError(t, f.svc.ApplyPaymentEvent(context.Background(), paymentEvent(PaymentEventPayment)))
	require.NoError(t, f.svc.ApplyPaymentEvent(context.Background(), paymentEvent(PaymentEventChargeback)))

	assert.Equal(t, models.TransactionStatusChargebacked, f.store.records["ORDER-1"].Status)
	assert.Len(t, f.entitlements.revokes, 1)
}

func TestOrphanRefundCreatesMarkedRecord(t *testing.T) {
	f := newLedgerFixture()

	// Refund arrives with no prior payment on record.
	err := f.svc.ApplyPaymentEvent(context.Background(), paymentEvent(PaymentEventRefund))
	require.NoError(t, err)

	record := f.store.records["ORDER-1"]
	require.NotNil(t, record)
	assert.Equal(t, models.TransactionStatusRefunded, record.Status)
	assert.Nil(t, record.PaidAt)
	assert.NotNil(t, record.RefundedAt)

	require.Len(t, record.AuditTrail, 1)
	entry, ok := record.AuditTrail[0]["kind"].(string)
	require.True(t, ok)
	assert.Equal(t, "orphan_refund", entry)

	// Revoke still fires so a stale grant cannot survive.
	assert.Len(t, f.entitlements.revokes, 1)
}

func TestPaymentMissedNeverTouchesEntitlement(t *testing.T) {
	f := newLedgerFixture()
	require.NoError(t, f.svc.ApplyPaymentEvent(context.Background(), paymentEvent(PaymentEventPayment)))

	err := f.svc.ApplyPaymentEvent(context.Background(), paymentEvent(PaymentEventPaymentMissed))
	require.NoError(t, err)

	// Status unchanged; only the audit trail grows.
	record := f.store.records["ORDER-1"]
	assert.Equal(t, models.TransactionStatusCompleted, record.Status)
	assert.Len(t, record.AuditTrail, 2)
	assert.Len(t, f.entitlements.grants, 1)
	assert.Empty(t, f.entitlements.revokes)
}

func TestPaymentMissedForUnknownOrderIsLoggedOnly(t *testing.T) {
	f := newLedgerFixture()

	err := f.svc.ApplyPaymentEvent(context.Background(), paymentEvent(PaymentEventPaymentMissed))
	require.NoError(t, err)

	assert.Empty(t, f.store.records)
	assert.Empty(t, f.entitlements.grants)
	assert.Empty(t, f.entitlements.revokes)
}

func TestOtherEventKindIsIgnored(t *testing.T) {
	f := newLedgerFixture()

	err := f.svc.ApplyPaymentEvent(context.Background(), paymentEvent(PaymentEventOther))
	require.NoError(t, err)

	assert.Empty(t, f.store.records)
	assert.Empty(t, f.entitlements.grants)
}

func TestApplyPaymentEventResolutionFailures(t *testing.T) {
	f := newLedgerFixture()

	evt := paymentEvent(PaymentEventPayment)
	evt.OrderID = ""
	assert.ErrorIs(t, f.svc.ApplyPaymentEvent(context.Background(), evt), ErrMissingOrderID)

	evt = paymentEvent(PaymentEventPayment)
	evt.ProductRef = "PROD-UNKNOWN"
	assert.ErrorIs(t, f.svc.ApplyPaymentEvent(context.Background(), evt), ErrUnknownProduct)

	evt = paymentEvent(PaymentEventPayment)
	evt.Email = "stranger@example.com"
	assert.ErrorIs(t, f.svc.ApplyPaymentEvent(context.Background(), evt), ErrUnknownUser)

	assert.Empty(t, f.store.records)
	assert.Empty(t, f.entitlements.grants)
}
