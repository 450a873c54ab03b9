package combat

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/keystrike/internal/game/grid"
)

// Roster is the set of combatants active in one encounter: the player plus
// enemies in enumeration order. It is safe for concurrent use.
type Roster struct {
	mu      sync.RWMutex
	player  *Combatant
	enemies []*Combatant
	byID    map[string]*Combatant
}

// NewRoster creates a Roster.
//
// Precondition: player must be non-nil and of FactionPlayer; enemies must be FactionEnemy.
// Postcondition: Returns a Roster or an error when IDs collide or factions are wrong.
func NewRoster(player *Combatant, enemies ...*Combatant) (*Roster, error) {
	if player == nil || player.Faction != FactionPlayer {
		return nil, fmt.Errorf("roster requires a player combatant")
	}
	r := &Roster{
		player: player,
		byID:   map[string]*Combatant{player.ID: player},
	}
	for _, e := range enemies {
		if e.Faction != FactionEnemy {
			return nil, fmt.Errorf("combatant %q is not an enemy", e.ID)
		}
		if _, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate combatant id %q", e.ID)
		}
		r.byID[e.ID] = e
		r.enemies = append(r.enemies, e)
	}
	return r, nil
}

// Player returns the player combatant.
func (r *Roster) Player() *Combatant {
	return r.player
}

// Get returns the combatant with the given ID.
func (r *Roster) Get(id string) (*Combatant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

// Enemies returns a copy of the enemy list in enumeration order.
func (r *Roster) Enemies() []*Combatant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Combatant, len(r.enemies))
	copy(out, r.enemies)
	return out
}

// LivingEnemies returns enemies with health remaining, in enumeration order.
func (r *Roster) LivingEnemies() []*Combatant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Combatant
	for _, e := range r.enemies {
		if e.IsAlive() {
			out = append(out, e)
		}
	}
	return out
}

// Add enrolls a newly spawned enemy at the end of the enumeration order.
//
// Postcondition: Returns an error, and leaves the roster unchanged, when e is
// not an enemy or its ID is taken.
func (r *Roster) Add(e *Combatant) error {
	if e == nil || e.Faction != FactionEnemy {
		return fmt.Errorf("roster add: combatant is not an enemy")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byID[e.ID]; dup {
		return fmt.Errorf("duplicate combatant id %q", e.ID)
	}
	r.byID[e.ID] = e
	r.enemies = append(r.enemies, e)
	return nil
}

// Remove drops an enemy from the active set once its death has been processed.
//
// Postcondition: Returns true iff an enemy with id was removed.
func (r *Roster) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.enemies {
		if e.ID == id {
			r.enemies = append(r.enemies[:i], r.enemies[i+1:]...)
			delete(r.byID, id)
			return true
		}
	}
	return false
}

// OccupiedAt reports whether a living combatant stands on c.
func (r *Roster) OccupiedAt(c grid.Coord) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.player.IsAlive() && r.player.Position == c {
		return true
	}
	for _, e := range r.enemies {
		if e.IsAlive() && e.Position == c {
			return true
		}
	}
	return false
}
