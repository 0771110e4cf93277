package cache

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	id := uuid.New()
	assert.Equal(t, "offer:id:"+id.String(), GenerateKey(EntityOffer, KeyID, id))
	assert.Equal(t, "offer:id:42", GenerateKey(EntityOffer, KeyID, 42))
}
