// internal/services/asset_lifecycle.go
package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/learnhub/learnhub-backend/internal/models"
	"github.com/learnhub/learnhub-backend/internal/utils"
)

// AssetLifecycle keeps the media host consistent with database records across
// create, update and delete flows. The database is authoritative: asset
// deletions are best-effort and their failures never fail the surrounding
// operation.
//
// Per asset field the lifetime is unset -> set(A) -> set(B) -> unset, and every
// transition that stops A from being the current value schedules exactly one
// delete of A. Unchanged values never trigger a delete.
type AssetLifecycle struct {
	store AssetStore
}

func NewAssetLifecycle(store AssetStore) *AssetLifecycle {
	return &AssetLifecycle{store: store}
}

// AssetRefFromURL derives the deletion ref for a hosted URL. Placeholder
// values (the default images) and URLs without the upload marker yield no
// ref; both mean there is nothing on the host to clean up.
func AssetRefFromURL(url string, kind AssetKind) (AssetRef, bool) {
	switch url {
	case "", models.DefaultClassImage, models.DefaultCourseImage:
		return AssetRef{}, false
	}

	id, ok := utils.ExtractAssetID(url)
	if !ok {
		return AssetRef{}, false
	}
	return AssetRef{ID: id, Kind: kind}, true
}

// Create persists an entity that references freshly uploaded assets. When
// persistence fails the noted uploads are rolled back so nothing orphaned
// stays on the host.
func (l *AssetLifecycle) Create(ctx context.Context, uploaded []AssetRef, persist func() error) error {
	if err := persist(); err != nil {
		l.Cleanup(ctx, uploaded)
		return err
	}
	return nil
}

// Update persists a change that swaps asset references. On success the
// replaced assets are cleaned up; on failure the newly uploaded ones are,
// and the persistence error propagates.
func (l *AssetLifecycle) Update(ctx context.Context, replaced, uploaded []AssetRef, persist func() error) error {
	if err := persist(); err != nil {
		l.Cleanup(ctx, uploaded)
		return err
	}
	l.Cleanup(ctx, replaced)
	return nil
}

// Cleanup deletes every ref from the store, best-effort. A failure on one
// asset never stops the remaining deletions.
func (l *AssetLifecycle) Cleanup(ctx context.Context, refs []AssetRef) {
	for _, ref := range refs {
		if err := l.store.DeleteAsset(ctx, ref); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"asset_id": ref.ID,
				"kind":     ref.Kind,
			}).Warn("Best-effort asset cleanup failed")
		}
	}
}

// SessionAssetRefs collects the deletable refs of a batch of sessions, used
// by the course cascade delete.
func SessionAssetRefs(sessions []models.Session) []AssetRef {
	var refs []AssetRef
	for _, session := range sessions {
		if ref, ok := AssetRefFromURL(session.Video, AssetKindVideo); ok {
			refs = append(refs, ref)
		}
		if ref, ok := AssetRefFromURL(session.Thumbnail, AssetKindImage); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}
