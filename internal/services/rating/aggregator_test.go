package rating

import (
	"context"
	"testing"

	apperr "alumnet/internal/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ApplyRating(ctx context.Context, id uuid.UUID, rating float64) error {
	args := m.Called(ctx, id, rating)
	return args.Error(0)
}

func TestNext(t *testing.T) {
	tests := []struct {
		name      string
		avg       float64
		count     int64
		r         float64
		wantAvg   float64
		wantCount int64
	}{
		{"first rating", 0, 0, 4, 4, 1},
		{"running mean", 4, 1, 5, 4.5, 2},
		{"three ratings", 4.5, 2, 3, 4, 3},
		{"negative count treated as empty", 3, -2, 5, 5, 1},
		{"clamped high", 5, 1, 9, 5, 2},
		{"clamped low", 0, 1, -4, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			avg, count := Next(tt.avg, tt.count, tt.r)
			assert.InDelta(t, tt.wantAvg, avg, 1e-9)
			assert.Equal(t, tt.wantCount, count)
		})
	}
}

func TestAggregator_Apply(t *testing.T) {
	users := new(MockStore)
	agg := NewAggregator(users, nil, nil)
	userID := uuid.New()

	users.On("ApplyRating", mock.Anything, userID, float64(4)).Return(nil).Once()
	require.NoError(t, agg.Apply(context.Background(), userID, 4))

	for _, bad := range []int{0, 6, -1} {
		assert.True(t, apperr.IsValidation(agg.Apply(context.Background(), userID, bad)))
	}
	users.AssertExpectations(t)
}

func TestAggregator_ApplyFeedback(t *testing.T) {
	owner := uuid.New()
	requester := uuid.New()
	offerID := uuid.New()

	tests := []struct {
		name      string
		fb        FeedbackApplied
		offerErr  error
		wantOffer bool
	}{
		{
			name:      "rating the owner also rates the offer",
			fb:        FeedbackApplied{ToUserID: owner, Rating: 5, OfferID: offerID, OfferOwnerID: owner},
			wantOffer: true,
		},
		{
			name: "rating the requester leaves the offer alone",
			fb:   FeedbackApplied{ToUserID: requester, Rating: 3, OfferID: offerID, OfferOwnerID: owner},
		},
		{
			name:      "deleted offer is skipped",
			fb:        FeedbackApplied{ToUserID: owner, Rating: 2, OfferID: offerID, OfferOwnerID: owner},
			offerErr:  apperr.NotFound("offer"),
			wantOffer: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockStore)
			offers := new(MockStore)
			users.On("ApplyRating", mock.Anything, tt.fb.ToUserID, float64(tt.fb.Rating)).Return(nil)
			if tt.wantOffer {
				offers.On("ApplyRating", mock.Anything, offerID, float64(tt.fb.Rating)).Return(tt.offerErr)
			}

			err := NewAggregator(users, offers, nil).ApplyFeedback(context.Background(), tt.fb)
			require.NoError(t, err)
			users.AssertExpectations(t)
			offers.AssertExpectations(t)
			if !tt.wantOffer {
				offers.AssertNotCalled(t, "ApplyRating", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestNewAggregator_RequiresUsers(t *testing.T) {
	assert.Panics(t, func() { NewAggregator(nil, nil, nil) })
}
