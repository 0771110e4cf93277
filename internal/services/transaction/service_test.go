package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"

	"alumnet/internal/access"
	apperr "alumnet/internal/errors"
	"alumnet/internal/events"
	"alumnet/internal/models"
	"alumnet/internal/repositories"
	"alumnet/internal/services/dispute"
	"alumnet/internal/services/rating"
	"alumnet/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type countingEmitter struct {
	mu    sync.Mutex
	count map[events.Type]int
}

func (c *countingEmitter) Emit(_ context.Context, ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == nil {
		c.count = map[events.Type]int{}
	}
	c.count[ev.Type]++
}

type fixture struct {
	db        *gorm.DB
	ledger    Service
	emitter   *countingEmitter
	requester access.Actor
	owner     access.Actor
	request   *models.SwapRequest
	offer     *models.SwapOffer
}

// newFixture prepares a confirmed request where the owner offers 100 and
// the requester offers 70.
func newFixture(t *testing.T) *fixture {
	db := testutil.NewDB(t)
	ctx := context.Background()
	owner := testutil.SeedUser(t, db, models.RoleUser)
	requester := testutil.SeedUser(t, db, models.RoleUser)
	offer := testutil.SeedOffer(t, db, owner.ID, 100)

	req := &models.SwapRequest{
		RequesterID: requester.ID,
		OfferID:     offer.ID,
		OfferInReturn: models.OfferInReturn{
			Title:          "Portrait photography",
			EstimatedValue: models.EstimatedValue{Amount: 70, Currency: "USD"},
		},
	}
	requests := repositories.NewRequestRepository(db)
	_, err := requests.CreateForOffer(ctx, req, nil)
	require.NoError(t, err)
	req.SetStatus(models.RequestConfirmed)
	require.NoError(t, requests.SaveTransition(ctx, req, models.RequestPending))

	users := repositories.NewUserRepository(db)
	ratings := rating.NewAggregator(users, repositories.NewOfferRepository(db), nil)
	emitter := &countingEmitter{}
	ledger := NewService(repositories.NewTransactionRepository(db), users, ratings, nil, emitter, nil, nil)

	return &fixture{
		db:        db,
		ledger:    ledger,
		emitter:   emitter,
		requester: access.NewActor(requester.ID, requester.Role),
		owner:     access.NewActor(owner.ID, owner.Role),
		request:   req,
		offer:     offer,
	}
}

func (f *fixture) open(t *testing.T) *models.SwapTransaction {
	tx, err := f.ledger.Open(context.Background(), f.request, f.offer)
	require.NoError(t, err)
	return tx
}

func TestService_OpenIsIdempotent(t *testing.T) {
	f := newFixture(t)

	first := f.open(t)
	second := f.open(t)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.TransactionInProgress, first.Status)
	require.Len(t, first.Participants, 2)

	requester := first.Participant(f.requester.UserID)
	require.NotNil(t, requester)
	assert.Equal(t, models.RoleRequester, requester.Role)
	assert.Equal(t, float64(70), requester.Offered.EstimatedValue.Amount)
	assert.Equal(t, float64(100), requester.Received.EstimatedValue.Amount)
	assert.NotNil(t, first.Timeline.StartedAt)

	assert.Equal(t, 1, f.emitter.count[events.TransactionOpened])

	_, err := f.ledger.Open(context.Background(), f.request, &models.SwapOffer{Base: models.Base{ID: uuid.New()}})
	assert.True(t, apperr.IsValidation(err))
}

func TestService_ValueExchangeFollowsAdjustments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.open(t)

	assert.Equal(t, float64(170), tx.ValueExchange.TotalValue)
	assert.Equal(t, float64(30), tx.ValueExchange.ValueDifference)
	assert.True(t, tx.ValueExchange.IsBalanced)

	adjusted, err := f.ledger.AdjustOffered(ctx, f.requester, tx.ID, models.EstimatedValue{Amount: 50, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, float64(150), adjusted.ValueExchange.TotalValue)
	assert.Equal(t, float64(50), adjusted.ValueExchange.ValueDifference)
	assert.False(t, adjusted.ValueExchange.IsBalanced)

	stored, err := f.ledger.Get(ctx, f.owner, tx.ID)
	require.NoError(t, err)
	assert.False(t, stored.ValueExchange.IsBalanced)
	assert.Equal(t, float64(50), stored.Participant(f.owner.UserID).Received.EstimatedValue.Amount)

	_, err = f.ledger.AdjustOffered(ctx, f.requester, tx.ID, models.EstimatedValue{Amount: -1})
	assert.True(t, apperr.IsValidation(err))
}

func TestService_AddFeedback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.open(t)

	toOwner := FeedbackInput{ToUserID: f.owner.UserID.String(), Rating: 5, Comment: "great lessons"}
	fb, err := f.ledger.AddFeedback(ctx, f.requester, tx.ID, toOwner)
	require.NoError(t, err)
	assert.Equal(t, f.requester.UserID, fb.FromUserID)

	_, err = f.ledger.AddFeedback(ctx, f.requester, tx.ID, FeedbackInput{ToUserID: f.owner.UserID.String(), Rating: 1})
	assert.True(t, apperr.IsConflict(err))

	_, err = f.ledger.AddFeedback(ctx, f.owner, tx.ID, FeedbackInput{ToUserID: f.requester.UserID.String(), Rating: 4})
	require.NoError(t, err)

	users := repositories.NewUserRepository(f.db)
	owner, err := users.GetByID(ctx, f.owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), owner.SwapStats.TotalRatings)
	assert.InDelta(t, 5.0, owner.SwapStats.AverageRating, 1e-9)

	offer, err := repositories.NewOfferRepository(f.db).GetByID(ctx, f.offer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), offer.Rating.Count, "only feedback to the owner rates the offer")

	between, err := f.ledger.GetFeedbackBetween(ctx, tx.ID, f.owner.UserID, f.requester.UserID)
	require.NoError(t, err)
	assert.Len(t, between, 2)
	assert.Equal(t, 2, f.emitter.count[events.FeedbackSubmitted])

	all, err := f.ledger.ListFeedback(ctx, f.owner, tx.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, f.requester.UserID, all[0].FromUserID)

	outsider := access.NewActor(testutil.SeedUser(t, f.db, models.RoleUser).ID, models.RoleUser)
	_, err = f.ledger.ListFeedback(ctx, outsider, tx.ID)
	assert.True(t, apperr.IsAuthorization(err))
}

// flakyOfferRatings fails the first n offer rating writes.
type flakyOfferRatings struct {
	rating.OfferRatings
	failures int
}

func (f *flakyOfferRatings) ApplyRating(ctx context.Context, id uuid.UUID, r float64) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("db blip")
	}
	return f.OfferRatings.ApplyRating(ctx, id, r)
}

func TestService_AddFeedbackRollsBackWithRatings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := repositories.NewUserRepository(f.db)
	offers := &flakyOfferRatings{OfferRatings: repositories.NewOfferRepository(f.db), failures: 1}
	ledger := NewService(repositories.NewTransactionRepository(f.db), users,
		rating.NewAggregator(users, offers, nil), nil, f.emitter, nil, nil)

	tx, err := ledger.Open(ctx, f.request, f.offer)
	require.NoError(t, err)
	in := FeedbackInput{ToUserID: f.owner.UserID.String(), Rating: 4}

	_, err = ledger.AddFeedback(ctx, f.requester, tx.ID, in)
	require.Error(t, err)
	assert.False(t, apperr.IsConflict(err))

	stored, err := ledger.ListFeedback(ctx, f.requester, tx.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
	owner, err := users.GetByID(ctx, f.owner.UserID)
	require.NoError(t, err)
	assert.Zero(t, owner.SwapStats.TotalRatings, "user aggregate rolls back with the feedback row")
	assert.Zero(t, f.emitter.count[events.FeedbackSubmitted])

	_, err = ledger.AddFeedback(ctx, f.requester, tx.ID, in)
	require.NoError(t, err)

	owner, err = users.GetByID(ctx, f.owner.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), owner.SwapStats.TotalRatings)
	assert.InDelta(t, 4.0, owner.SwapStats.AverageRating, 1e-9)
	offer, err := repositories.NewOfferRepository(f.db).GetByID(ctx, f.offer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), offer.Rating.Count)
	assert.Equal(t, 1, f.emitter.count[events.FeedbackSubmitted])
}

func TestService_AddFeedbackRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.open(t)
	outsider := access.NewActor(testutil.SeedUser(t, f.db, models.RoleUser).ID, models.RoleUser)

	tests := []struct {
		name     string
		actor    access.Actor
		in       FeedbackInput
		wantKind apperr.Kind
	}{
		{"self rating", f.requester, FeedbackInput{ToUserID: f.requester.UserID.String(), Rating: 5}, apperr.KindValidation},
		{"rating out of range", f.requester, FeedbackInput{ToUserID: f.owner.UserID.String(), Rating: 6}, apperr.KindValidation},
		{"recipient outside the swap", f.requester, FeedbackInput{ToUserID: outsider.UserID.String(), Rating: 3}, apperr.KindValidation},
		{"outsider", outsider, FeedbackInput{ToUserID: f.owner.UserID.String(), Rating: 3}, apperr.KindAuthorization},
		{"bad recipient id", f.requester, FeedbackInput{ToUserID: "nope", Rating: 3}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.AddFeedback(ctx, tt.actor, tx.ID, tt.in)
			kind, ok := apperr.KindOf(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.wantKind, kind)
		})
	}

	_, err := f.ledger.AddFeedback(ctx, f.requester, uuid.New(), FeedbackInput{ToUserID: f.owner.UserID.String(), Rating: 3})
	assert.True(t, apperr.IsNotFound(err))
}

func TestService_CompleteAndCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.open(t)

	done, err := f.ledger.Complete(ctx, f.owner, tx.ID, CompleteInput{Notes: "all sessions held", Deliverables: []string{"4 lessons"}})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionCompleted, done.Status)
	assert.NotNil(t, done.Completion.CompletedAt)
	assert.Equal(t, f.owner.UserID, *done.Completion.CompletedBy)

	_, err = f.ledger.Complete(ctx, f.owner, tx.ID, CompleteInput{})
	assert.True(t, apperr.IsConflict(err))
	_, err = f.ledger.Cancel(ctx, f.requester, tx.ID, "changed my mind")
	assert.True(t, apperr.IsConflict(err))

	users := repositories.NewUserRepository(f.db)
	for _, id := range []uuid.UUID{f.owner.UserID, f.requester.UserID} {
		u, err := users.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(1), u.SwapStats.TotalCompleted)
	}

	// feedback is still allowed once completed
	_, err = f.ledger.AddFeedback(ctx, f.owner, tx.ID, FeedbackInput{ToUserID: f.requester.UserID.String(), Rating: 5})
	assert.NoError(t, err)
}

func TestService_Disputes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.open(t)
	moderator := access.NewActor(testutil.SeedUser(t, f.db, models.RoleModerator).ID, models.RoleModerator)

	_, err := f.ledger.ResolveDispute(ctx, moderator, tx.ID, dispute.ResolveInput{Status: models.DisputeClosed})
	assert.True(t, apperr.IsConflict(err), "nothing to resolve yet")

	disputed, err := f.ledger.RaiseDispute(ctx, f.requester, tx.ID, dispute.RaiseInput{Reason: "no show"})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionDisputed, disputed.Status)
	assert.Equal(t, f.requester.UserID, *disputed.Dispute.RaisedBy)

	_, err = f.ledger.ResolveDispute(ctx, f.owner, tx.ID, dispute.ResolveInput{Status: models.DisputeClosed})
	assert.True(t, apperr.IsAuthorization(err))

	resolved, err := f.ledger.ResolveDispute(ctx, moderator, tx.ID,
		dispute.ResolveInput{Status: models.DisputeResolved, Resolution: "partial swap accepted"})
	require.NoError(t, err)
	assert.Equal(t, models.DisputeResolved, resolved.Dispute.Status)
	assert.Equal(t, models.TransactionDisputed, resolved.Status)

	// moderators may read any transaction, outsiders may not
	_, err = f.ledger.Get(ctx, moderator, tx.ID)
	assert.NoError(t, err)
	outsider := access.NewActor(uuid.New(), models.RoleUser)
	_, err = f.ledger.Get(ctx, outsider, tx.ID)
	assert.True(t, apperr.IsAuthorization(err))
}

func TestService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.open(t)

	mine, total, err := f.ledger.List(ctx, f.owner, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, mine, 1)

	_, total, err = f.ledger.List(ctx, f.owner, ListFilter{Status: models.TransactionCompleted})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = f.ledger.List(ctx, access.NewActor(uuid.New(), models.RoleUser), ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}
