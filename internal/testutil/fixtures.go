package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/sportdesk/pkg/models"
)

// NewEntity returns an Entity with sensible defaults, suitable for test fixtures.
// Override individual fields after creation as needed.
func NewEntity(opts ...func(*models.Entity)) models.Entity {
	e := models.Entity{
		ID:        uuid.New().String(),
		FirstName: "Jo",
		LastName:  "March",
		Email:     "jo@example.com",
		Role:      "athlete",
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// WithName sets the entity's display name.
func WithName(name string) func(*models.Entity) {
	return func(e *models.Entity) { e.Name = name }
}

// WithID sets the entity ID.
func WithID(id string) func(*models.Entity) {
	return func(e *models.Entity) { e.ID = id }
}

// WithMainSport sets the entity's main sport ID.
func WithMainSport(sportID string) func(*models.Entity) {
	return func(e *models.Entity) { e.MainSport = sportID }
}

// WithCreatedBy sets the ID of the coach that created the entity.
func WithCreatedBy(id string) func(*models.Entity) {
	return func(e *models.Entity) { e.CreatedBy = id }
}

// NewEntities returns n default entities.
func NewEntities(n int) []models.Entity {
	out := make([]models.Entity, n)
	for i := range out {
		out[i] = NewEntity()
	}
	return out
}
