package registry

import (
	"errors"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/mcdev12/roulette/go/internal/models"
)

var (
	ErrBlankSide    = errors.New("both sides of a match-up are required")
	ErrItemNotFound = errors.New("match-up not found")
)

// DefaultPalette is used when no palette is configured.
var DefaultPalette = []string{
	"#2dd4bf", "#f97316", "#6366f1", "#ec4899",
	"#eab308", "#22c55e", "#0ea5e9", "#ef4444",
}

// Registry is the ordered collection of candidate match-ups. It is not
// safe for concurrent use; the control orchestrator serializes access.
type Registry struct {
	items   []models.MatchItem
	palette []string
	rng     *rand.Rand
	newID   func() string
}

// Option configures a Registry.
type Option func(*Registry)

// WithPalette sets the colors assigned to new items.
func WithPalette(colors []string) Option {
	return func(r *Registry) {
		if len(colors) > 0 {
			r.palette = append([]string(nil), colors...)
		}
	}
}

// WithRand sets the random source for color selection.
func WithRand(rng *rand.Rand) Option {
	return func(r *Registry) { r.rng = rng }
}

// WithIDGenerator replaces uuid-based ids.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		palette: DefaultPalette,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Seed replaces the contents with items. Missing ids and colors are filled in.
func (r *Registry) Seed(items []models.MatchItem) {
	r.items = make([]models.MatchItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			it.ID = r.newID()
		}
		if it.Color == "" {
			it.Color = r.pickColor()
		}
		r.items = append(r.items, it)
	}
}

func (r *Registry) pickColor() string {
	return r.palette[r.rng.IntN(len(r.palette))]
}

func normalize(left, right string) (string, string, error) {
	left, right = strings.TrimSpace(left), strings.TrimSpace(right)
	if left == "" || right == "" {
		return "", "", ErrBlankSide
	}
	return left, right, nil
}

// Add appends a new unplayed match-up "<left> VS <right>".
func (r *Registry) Add(left, right string) (models.MatchItem, error) {
	left, right, err := normalize(left, right)
	if err != nil {
		return models.MatchItem{}, err
	}

	item := models.MatchItem{
		ID:    r.newID(),
		Text:  models.JoinSides(left, right),
		Color: r.pickColor(),
	}
	r.items = append(r.items, item)
	return item, nil
}

// Edit replaces the text of id, keeping its id, color and played flag.
func (r *Registry) Edit(id, left, right string) (models.MatchItem, error) {
	left, right, err := normalize(left, right)
	if err != nil {
		return models.MatchItem{}, err
	}

	i := r.index(id)
	if i < 0 {
		return models.MatchItem{}, ErrItemNotFound
	}
	r.items[i].Text = models.JoinSides(left, right)
	return r.items[i], nil
}

// Remove deletes id whether or not it has been played.
func (r *Registry) Remove(id string) error {
	i := r.index(id)
	if i < 0 {
		return ErrItemNotFound
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return nil
}

// MarkPlayed flags id as played. It reports whether an unplayed item changed.
func (r *Registry) MarkPlayed(id string) bool {
	i := r.index(id)
	if i < 0 || r.items[i].Played {
		return false
	}
	r.items[i].Played = true
	return true
}

// ResetPlayed clears every played flag and reports whether any was set.
func (r *Registry) ResetPlayed() bool {
	changed := false
	for i := range r.items {
		if r.items[i].Played {
			r.items[i].Played = false
			changed = true
		}
	}
	return changed
}

// Get returns the item with id.
func (r *Registry) Get(id string) (models.MatchItem, bool) {
	i := r.index(id)
	if i < 0 {
		return models.MatchItem{}, false
	}
	return r.items[i], true
}

// Items returns a copy of the items in order.
func (r *Registry) Items() []models.MatchItem {
	return append([]models.MatchItem(nil), r.items...)
}

// Len returns the number of items.
func (r *Registry) Len() int {
	return len(r.items)
}

// EligibleCount counts the items not yet played.
func (r *Registry) EligibleCount() int {
	n := 0
	for _, it := range r.items {
		if !it.Played {
			n++
		}
	}
	return n
}

func (r *Registry) index(id string) int {
	for i, it := range r.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
