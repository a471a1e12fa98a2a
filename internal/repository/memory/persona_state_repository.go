package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// PersonaState is the persona last shown in a chat session.
type PersonaState struct {
	SessionID  uuid.UUID
	PersonaKey string
	Reason     string
	SelectedAt time.Time
}

// PersonaStateRepository keeps the current persona per session in process
// memory. Entries expire; callers must cope with a miss.
type PersonaStateRepository struct {
	cache *cache.Cache
}

func NewPersonaStateRepository(ttl time.Duration) *PersonaStateRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &PersonaStateRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *PersonaStateRepository) Save(state PersonaState) {
	r.cache.Set(state.SessionID.String(), state, cache.DefaultExpiration)
}

func (r *PersonaStateRepository) Get(sessionID uuid.UUID) (PersonaState, bool) {
	if x, found := r.cache.Get(sessionID.String()); found {
		return x.(PersonaState), true
	}
	return PersonaState{}, false
}

func (r *PersonaStateRepository) Delete(sessionID uuid.UUID) {
	r.cache.Delete(sessionID.String())
}
