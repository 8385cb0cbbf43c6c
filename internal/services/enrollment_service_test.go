// internal/services/enrollment_service_test.go
package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-backend/internal/models"
)

type enrollmentKey struct {
	userID uuid.UUID
	item   ItemRef
}

// fakeEnrollmentStore is an in-memory set with the same idempotent Add/Remove
// contract as the on-conflict-do-nothing store.
type fakeEnrollmentStore struct {
	rows map[enrollmentKey]bool
}

func newFakeEnrollmentStore() *fakeEnrollmentStore {
	return &fakeEnrollmentStore{rows: map[enrollmentKey]bool{}}
}

func (f *fakeEnrollmentStore) Add(_ context.Context, userID uuid.UUID, item ItemRef) error {
	f.rows[enrollmentKey{userID, item}] = true
	return nil
}

func (f *fakeEnrollmentStore) Remove(_ context.Context, userID uuid.UUID, item ItemRef) error {
	delete(f.rows, enrollmentKey{userID, item})
	return nil
}

func (f *fakeEnrollmentStore) Exists(_ context.Context, userID uuid.UUID, item ItemRef) (bool, error) {
	return f.rows[enrollmentKey{userID, item}], nil
}

type fakeItemCatalog struct {
	paid map[uuid.UUID]bool
}

func (f *fakeItemCatalog) IsPaid(_ context.Context, item ItemRef) (bool, error) {
	paid, ok := f.paid[item.ID]
	if !ok {
		return false, ErrItemNotFound
	}
	return paid, nil
}

func newEnrollmentFixture(paid map[uuid.UUID]bool) (*EnrollmentService, *fakeEnrollmentStore) {
	store := newFakeEnrollmentStore()
	svc := &EnrollmentService{
		store:   store,
		catalog: &fakeItemCatalog{paid: paid},
	}
	return svc, store
}

func TestGrantAndRevokeAreIdempotent(t *testing.T) {
	svc, store := newEnrollmentFixture(nil)
	userID := uuid.New()
	item := ItemRef{Kind: models.ItemKindClass, ID: uuid.New()}

	require.NoError(t, svc.Grant(context.Background(), userID, item))
	require.NoError(t, svc.Grant(context.Background(), userID, item))

	enrolled, err := svc.IsEnrolled(context.Background(), userID, item)
	require.NoError(t, err)
	assert.True(t, enrolled)
	assert.Len(t, store.rows, 1)

	require.NoError(t, svc.Revoke(context.Background(), userID, item))
	require.NoError(t, svc.Revoke(context.Background(), userID, item))

	enrolled, err = svc.IsEnrolled(context.Background(), userID, item)
	require.NoError(t, err)
	assert.False(t, enrolled)
}

func TestRevokeThenGrantRestoresAccess(t *testing.T) {
	svc, _ := newEnrollmentFixture(nil)
	userID := uuid.New()
	item := ItemRef{Kind: models.ItemKindCourse, ID: uuid.New()}

	require.NoError(t, svc.Grant(context.Background(), userID, item))
	require.NoError(t, svc.Revoke(context.Background(), userID, item))
	require.NoError(t, svc.Grant(context.Background(), userID, item))

	enrolled, err := svc.IsEnrolled(context.Background(), userID, item)
	require.NoError(t, err)
	assert.True(t, enrolled)
}

func TestEnrollFreeItem(t *testing.T) {
	itemID := uuid.New()
	svc, _ := newEnrollmentFixture(map[uuid.UUID]bool{itemID: false})
	userID := uuid.New()
	item := ItemRef{Kind: models.ItemKindClass, ID: itemID}

	require.NoError(t, svc.Enroll(context.Background(), userID, item))

	enrolled, err := svc.IsEnrolled(context.Background(), userID, item)
	require.NoError(t, err)
	assert.True(t, enrolled)
}

func TestEnrollTwiceIsRejected(t *testing.T) {
	itemID := uuid.New()
	svc, _ := newEnrollmentFixture(map[uuid.UUID]bool{itemID: false})
	userID := uuid.New()
	item := ItemRef{Kind: models.ItemKindClass, ID: itemID}

	require.NoError(t, svc.Enroll(context.Background(), userID, item))
	assert.ErrorIs(t, svc.Enroll(context.Background(), userID, item), ErrAlreadyEnrolled)
}

func TestEnrollPaidItemRequiresCheckout(t *testing.T) {
	itemID := uuid.New()
	svc, store := newEnrollmentFixture(map[uuid.UUID]bool{itemID: true})
	item := ItemRef{Kind: models.ItemKindCourse, ID: itemID}

	assert.ErrorIs(t, svc.Enroll(context.Background(), uuid.New(), item), ErrPaidItem)
	assert.Empty(t, store.rows)
}

func TestEnrollUnknownItem(t *testing.T) {
	svc, _ := newEnrollmentFixture(nil)

	item := ItemRef{Kind: models.ItemKindClass, ID: uuid.New()}
	assert.ErrorIs(t, svc.Enroll(context.Background(), uuid.New(), item), ErrItemNotFound)
}
