// internal/services/asset_lifecycle_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub-backend/internal/models"
)

// fakeAssetStore records deletions and can fail selected assets.
type fakeAssetStore struct {
	deleted []AssetRef
	failIDs map[string]bool
}

func (f *fakeAssetStore) DeleteAsset(_ context.Context, ref AssetRef) error {
	if f.failIDs[ref.ID] {
		return errors.New("host unavailable")
	}
	f.deleted = append(f.deleted, ref)
	return nil
}

func TestAssetRefFromURL(t *testing.T) {
	ref, ok := AssetRefFromURL("https://cdn.example.com/media/upload/v1/classes/cover.jpg", AssetKindImage)
	assert.True(t, ok)
	assert.Equal(t, AssetRef{ID: "classes/cover", Kind: AssetKindImage}, ref)

	_, ok = AssetRefFromURL("", AssetKindImage)
	assert.False(t, ok)

	_, ok = AssetRefFromURL(models.DefaultClassImage, AssetKindImage)
	assert.False(t, ok)

	_, ok = AssetRefFromURL(models.DefaultCourseImage, AssetKindImage)
	assert.False(t, ok)

	_, ok = AssetRefFromURL("https://example.com/no-marker/cover.jpg", AssetKindImage)
	assert.False(t, ok)
}

func TestLifecycleCreateSuccessKeepsUploads(t *testing.T) {
	store := &fakeAssetStore{}
	lifecycle := NewAssetLifecycle(store)

	uploaded := []AssetRef{{ID: "classes/cover", Kind: AssetKindImage}}
	err := lifecycle.Create(context.Background(), uploaded, func() error { return nil })

	assert.NoError(t, err)
	assert.Empty(t, store.deleted)
}

func TestLifecycleCreateFailureRollsBackUploads(t *testing.T) {
	store := &fakeAssetStore{}
	lifecycle := NewAssetLifecycle(store)

	uploaded := []AssetRef{
		{ID: "classes/cover", Kind: AssetKindImage},
		{ID: "classes/trailer", Kind: AssetKindVideo},
	}
	persistErr := errors.New("insert failed")
	err := lifecycle.Create(context.Background(), uploaded, func() error { return persistErr })

	assert.ErrorIs(t, err, persistErr)
	assert.Equal(t, uploaded, store.deleted)
}

func TestLifecycleUpdateSuccessDeletesReplacedOnly(t *testing.T) {
	store := &fakeAssetStore{}
	lifecycle := NewAssetLifecycle(store)

	replaced := []AssetRef{{ID: "classes/old-cover", Kind: AssetKindImage}}
	uploaded := []AssetRef{{ID: "classes/new-cover", Kind: AssetKindImage}}
	err := lifecycle.Update(context.Background(), replaced, uploaded, func() error { return nil })

	assert.NoError(t, err)
	assert.Equal(t, replaced, store.deleted)
}

func TestLifecycleUpdateFailureDeletesUploadedOnly(t *testing.T) {
	store := &fakeAssetStore{}
	lifecycle := NewAssetLifecycle(store)

	replaced := []AssetRef{{ID: "classes/old-cover", Kind: AssetKindImage}}
	uploaded := []AssetRef{{ID: "classes/new-cover", Kind: AssetKindImage}}
	persistErr := errors.New("update failed")
	err := lifecycle.Update(context.Background(), replaced, uploaded, func() error { return persistErr })

	assert.ErrorIs(t, err, persistErr)
	assert.Equal(t, uploaded, store.deleted)
}

func TestCleanupContinuesPastFailures(t *testing.T) {
	store := &fakeAssetStore{failIDs: map[string]bool{"b": true}}
	lifecycle := NewAssetLifecycle(store)

	lifecycle.Cleanup(context.Background(), []AssetRef{
		{ID: "a", Kind: AssetKindImage},
		{ID: "b", Kind: AssetKindVideo},
		{ID: "c", Kind: AssetKindImage},
	})

	assert.Equal(t, []AssetRef{
		{ID: "a", Kind: AssetKindImage},
		{ID: "c", Kind: AssetKindImage},
	}, store.deleted)
}

func TestCourseCascadeDeletesEverySessionAssetAndTheImage(t *testing.T) {
	store := &fakeAssetStore{}
	lifecycle := NewAssetLifecycle(store)

	sessions := make([]models.Session, 3)
	for i := range sessions {
		sessions[i] = models.Session{
			Video:     "https://cdn.example.com/media/upload/sessions/v" + string(rune('a'+i)) + ".mp4",
			Thumbnail: "https://cdn.example.com/media/upload/sessions/t" + string(rune('a'+i)) + ".jpg",
		}
	}

	lifecycle.Cleanup(context.Background(), SessionAssetRefs(sessions))

	imageRef, ok := AssetRefFromURL("https://cdn.example.com/media/upload/courses/cover.jpg", AssetKindImage)
	require.True(t, ok)
	lifecycle.Cleanup(context.Background(), []AssetRef{imageRef})

	// Two assets per session plus the course image.
	assert.Len(t, store.deleted, 7)
	assert.Equal(t, imageRef, store.deleted[6])
}

func TestSessionAssetRefs(t *testing.T) {
	sessions := []models.Session{
		{
			Video:     "https://cdn.example.com/media/upload/v1/sessions/one.mp4",
			Thumbnail: "https://cdn.example.com/media/upload/v1/sessions/one-thumb.jpg",
		},
		{
			Video: "https://cdn.example.com/media/upload/sessions/two.mp4",
			// No thumbnail uploaded.
		},
		{
			// External video outside the media host is never cleaned up.
			Video:     "https://videos.example.net/external.mp4",
			Thumbnail: "https://cdn.example.com/media/upload/sessions/three-thumb.jpg",
		},
	}

	refs := SessionAssetRefs(sessions)
	assert.Equal(t, []AssetRef{
		{ID: "sessions/one", Kind: AssetKindVideo},
		{ID: "sessions/one-thumb", Kind: AssetKindImage},
		{ID: "sessions/two", Kind: AssetKindVideo},
		{ID: "sessions/three-thumb", Kind: AssetKindImage},
	}, refs)
}
