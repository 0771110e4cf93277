package offer

import (
	"context"
	"sync"
	"testing"

	"alumnet/internal/access"
	apperr "alumnet/internal/errors"
	"alumnet/internal/events"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(_ context.Context, ev events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

type memoryCache struct {
	mu     sync.Mutex
	offers map[uuid.UUID]models.SwapOffer
	hits   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{offers: map[uuid.UUID]models.SwapOffer{}}
}

func (c *memoryCache) CacheOffer(_ context.Context, o *models.SwapOffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offers[o.ID] = *o
	return nil
}

func (c *memoryCache) GetOffer(_ context.Context, id uuid.UUID) (*models.SwapOffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.offers[id]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &o, nil
}

func (c *memoryCache) InvalidateOffer(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.offers, id)
	return nil
}

type fixture struct {
	db      *gorm.DB
	svc     Service
	cache   *memoryCache
	emitter *recordingEmitter
	owner   access.Actor
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	owner := testutil.SeedUser(t, db, models.RoleUser)
	cache := newMemoryCache()
	emitter := &recordingEmitter{}
	svc := NewService(
		repositories.NewOfferRepository(db),
		repositories.NewUserRepository(db),
		cache, nil, emitter, nil,
	)
	return &fixture{db: db, svc: svc, cache: cache, emitter: emitter, owner: access.NewActor(owner.ID, owner.Role)}
}

func (f *fixture) actor(t *testing.T, role string) access.Actor {
	u := testutil.SeedUser(t, f.db, role)
	return access.NewActor(u.ID, u.Role)
}

func guitarLessons() CreateOfferInput {
	return CreateOfferInput{
		Category:       models.CategorySkill,
		Title:          " Guitar lessons ",
		Description:    "Four beginner sessions",
		Tags:           []string{"Music", "guitar", " music "},
		EstimatedValue: models.EstimatedValue{Amount: 80, Currency: "eur"},
	}
}

func TestService_CreateOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	offer, err := f.svc.CreateOffer(ctx, f.owner, guitarLessons())
	require.NoError(t, err)
	assert.Equal(t, "Guitar lessons", offer.Title)
	assert.Equal(t, []string{"music", "guitar"}, offer.Tags)
	assert.Equal(t, "EUR", offer.EstimatedValue.Currency)
	assert.Equal(t, models.OfferActive, offer.Status)
	assert.Equal(t, f.owner.UserID, offer.OwnerID)

	owner, err := repositories.NewUserRepository(f.db).GetByID(ctx, f.owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), owner.SwapStats.TotalOffers)

	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, events.OfferCreated, f.emitter.events[0].Type)
	assert.Equal(t, offer.ID, f.emitter.events[0].EntityID)
}

func TestService_CreateOffer_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(in *CreateOfferInput)
	}{
		{"missing title", func(in *CreateOfferInput) { in.Title = "" }},
		{"unknown category", func(in *CreateOfferInput) { in.Category = "vehicle" }},
		{"accommodation without details", func(in *CreateOfferInput) { in.Category = models.CategoryAccommodation }},
		{"accommodation without guests", func(in *CreateOfferInput) {
			in.Category = models.CategoryAccommodation
			in.Accommodation = &models.Accommodation{PropertyType: "flat"}
		}},
		{"negative value", func(in *CreateOfferInput) { in.EstimatedValue.Amount = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := guitarLessons()
			tt.mutate(&in)
			_, err := f.svc.CreateOffer(ctx, f.owner, in)
			assert.True(t, apperr.IsValidation(err), "got %v", err)
		})
	}

	suspended := f.owner
	suspended.Active = false
	_, err := f.svc.CreateOffer(ctx, suspended, guitarLessons())
	assert.True(t, apperr.IsAuthorization(err))
}

func TestService_UpdateOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer, err := f.svc.CreateOffer(ctx, f.owner, guitarLessons())
	require.NoError(t, err)

	title := "Guitar and ukulele lessons"
	_, err = f.svc.UpdateOffer(ctx, f.actor(t, models.RoleUser), offer.ID, UpdateOfferInput{Title: &title})
	assert.True(t, apperr.IsAuthorization(err))

	updated, err := f.svc.UpdateOffer(ctx, f.owner, offer.ID, UpdateOfferInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	moderated := "Moderated title"
	_, err = f.svc.UpdateOffer(ctx, f.actor(t, models.RoleModerator), offer.ID, UpdateOfferInput{Title: &moderated})
	require.NoError(t, err)

	// switching to accommodation re-checks the merged record
	category := models.CategoryAccommodation
	_, err = f.svc.UpdateOffer(ctx, f.owner, offer.ID, UpdateOfferInput{Category: &category})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.UpdateOffer(ctx, f.owner, uuid.New(), UpdateOfferInput{Title: &title})
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_SetStatus(t *testing.T) {
	tests := []struct {
		name     string
		from     models.OfferStatus
		to       models.OfferStatus
		role     string
		wantKind apperr.Kind
	}{
		{"pause active", models.OfferActive, models.OfferPaused, models.RoleUser, ""},
		{"resume paused", models.OfferPaused, models.OfferActive, models.RoleUser, ""},
		{"reactivate inactive", models.OfferInactive, models.OfferActive, models.RoleUser, ""},
		{"inactive cannot pause", models.OfferInactive, models.OfferPaused, models.RoleUser, apperr.KindConflict},
		{"completed is terminal for owners", models.OfferCompleted, models.OfferActive, models.RoleUser, apperr.KindConflict},
		{"moderator reopens completed", models.OfferCompleted, models.OfferActive, models.RoleModerator, ""},
		{"same status is a no-op", models.OfferCompleted, models.OfferCompleted, models.RoleUser, ""},
		{"unknown status", models.OfferActive, "archived", models.RoleUser, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			offer := testutil.SeedOffer(t, f.db, f.owner.UserID, 50)
			require.NoError(t, f.db.Model(offer).Update("status", tt.from).Error)

			actor := f.owner
			if tt.role == models.RoleModerator {
				actor = f.actor(t, models.RoleModerator)
			}
			got, err := f.svc.SetStatus(ctx, actor, offer.ID, tt.to)
			if tt.wantKind != "" {
				kind, ok := apperr.KindOf(err)
				require.True(t, ok, "got %v", err)
				assert.Equal(t, tt.wantKind, kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
		})
	}
}

func TestService_GetOfferUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := testutil.SeedOffer(t, f.db, f.owner.UserID, 50)

	_, err := f.svc.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	_, err = f.svc.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.hits)

	require.NoError(t, f.svc.ApplyRating(ctx, offer.ID, 5))
	got, err := f.svc.GetOffer(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Rating.Count)

	_, err = f.svc.GetOffer(ctx, uuid.New())
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_RecordViewIsExactUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := testutil.SeedOffer(t, f.db, f.owner.UserID, 50)

	const viewers = 25
	var wg sync.WaitGroup
	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.svc.RecordView(ctx, offer.ID))
		}()
	}
	wg.Wait()

	stored, err := repositories.NewOfferRepository(f.db).GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(viewers), stored.Views)
}

func TestService_ApplyRating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := testutil.SeedOffer(t, f.db, f.owner.UserID, 50)

	assert.True(t, apperr.IsValidation(f.svc.ApplyRating(ctx, offer.ID, 0)))
	assert.True(t, apperr.IsValidation(f.svc.ApplyRating(ctx, offer.ID, 6)))
	require.NoError(t, f.svc.ApplyRating(ctx, offer.ID, 4))
	require.NoError(t, f.svc.ApplyRating(ctx, offer.ID, 5))

	stored, err := repositories.NewOfferRepository(f.db).GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, stored.Rating.Average, 1e-9)
	assert.True(t, apperr.IsNotFound(f.svc.ApplyRating(ctx, uuid.New(), 3)))
}

func TestService_DeleteOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	offer := testutil.SeedOffer(t, f.db, f.owner.UserID, 50)
	requester := f.actor(t, models.RoleUser)

	req := &models.SwapRequest{RequesterID: requester.UserID, OfferID: offer.ID}
	_, err := repositories.NewRequestRepository(f.db).CreateForOffer(ctx, req, nil)
	require.NoError(t, err)

	assert.True(t, apperr.IsAuthorization(f.svc.DeleteOffer(ctx, requester, offer.ID)))
	assert.True(t, apperr.IsConflict(f.svc.DeleteOffer(ctx, f.owner, offer.ID)))

	idle := testutil.SeedOffer(t, f.db, f.owner.UserID, 10)
	require.NoError(t, f.svc.DeleteOffer(ctx, f.owner, idle.ID))
	_, err = f.svc.GetOffer(ctx, idle.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(models.OfferActive, models.OfferCompleted))
	assert.False(t, CanTransition(models.OfferCompleted, models.OfferPaused))
	assert.False(t, CanTransition(models.OfferInactive, models.OfferPaused))
}
