package dispute

import (
	"strings"
	"testing"
	"time"

	apperr "alumnet/internal/errors"
	"alumnet/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaise(t *testing.T) {
	now := time.Now().UTC()
	by := uuid.New()

	t.Run("opens a dispute", func(t *testing.T) {
		var d models.Dispute
		require.NoError(t, Raise(&d, by, RaiseInput{Reason: " no show ", Description: "never arrived"}, now))
		assert.Equal(t, models.DisputeOpen, d.Status)
		assert.Equal(t, "no show", d.Reason)
		assert.Equal(t, by, *d.RaisedBy)
		assert.Equal(t, now, *d.RaisedAt)
	})

	t.Run("reason is required", func(t *testing.T) {
		var d models.Dispute
		assert.True(t, apperr.IsValidation(Raise(&d, by, RaiseInput{Reason: "  "}, now)))
		assert.True(t, apperr.IsValidation(Raise(&d, by, RaiseInput{Reason: strings.Repeat("x", 121)}, now)))
		assert.False(t, d.Raised())
	})

	t.Run("cannot raise twice while open", func(t *testing.T) {
		var d models.Dispute
		require.NoError(t, Raise(&d, by, RaiseInput{Reason: "late"}, now))
		assert.True(t, apperr.IsConflict(Raise(&d, by, RaiseInput{Reason: "again"}, now)))
	})

	t.Run("can raise again once settled", func(t *testing.T) {
		var d models.Dispute
		require.NoError(t, Raise(&d, by, RaiseInput{Reason: "late"}, now))
		require.NoError(t, Resolve(&d, uuid.New(), ResolveInput{Status: models.DisputeClosed}, now))
		require.NoError(t, Raise(&d, by, RaiseInput{Reason: "late again"}, now))
		assert.Equal(t, models.DisputeOpen, d.Status)
		assert.Nil(t, d.ResolvedBy)
	})
}

func TestResolve(t *testing.T) {
	now := time.Now().UTC()
	moderator := uuid.New()

	open := func(t *testing.T) *models.Dispute {
		var d models.Dispute
		require.NoError(t, Raise(&d, uuid.New(), RaiseInput{Reason: "damaged item"}, now))
		return &d
	}

	tests := []struct {
		name       string
		in         ResolveInput
		wantStatus models.DisputeStatus
		wantKind   apperr.Kind
		settled    bool
	}{
		{"under review", ResolveInput{Status: models.DisputeUnderReview}, models.DisputeUnderReview, "", false},
		{"resolved with note", ResolveInput{Status: models.DisputeResolved, Resolution: "refund agreed"}, models.DisputeResolved, "", true},
		{"resolved without note", ResolveInput{Status: models.DisputeResolved}, models.DisputeOpen, apperr.KindValidation, false},
		{"closed", ResolveInput{Status: models.DisputeClosed}, models.DisputeClosed, "", true},
		{"back to open is rejected", ResolveInput{Status: models.DisputeOpen}, models.DisputeOpen, apperr.KindValidation, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := open(t)
			err := Resolve(d, moderator, tt.in, now)
			if tt.wantKind != "" {
				kind, ok := apperr.KindOf(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantKind, kind)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantStatus, d.Status)
			assert.Equal(t, tt.settled, d.Settled())
			if tt.settled {
				assert.Equal(t, moderator, *d.ResolvedBy)
			}
		})
	}

	t.Run("nothing to resolve", func(t *testing.T) {
		var d models.Dispute
		assert.True(t, apperr.IsConflict(Resolve(&d, moderator, ResolveInput{Status: models.DisputeClosed}, now)))
	})

	t.Run("settled is final", func(t *testing.T) {
		d := open(t)
		require.NoError(t, Resolve(d, moderator, ResolveInput{Status: models.DisputeClosed}, now))
		assert.True(t, apperr.IsConflict(Resolve(d, moderator, ResolveInput{Status: models.DisputeUnderReview}, now)))
	})
}
