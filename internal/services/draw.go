package services

import (
	"math/rand"
	"slices"
	"sync"
	"time"

	"santa/internal/models"
)

// DefaultMaxAttempts bounds the randomized search when no limit is configured.
const DefaultMaxAttempts = 1000

// DrawStats describes how a draw was reached.
type DrawStats struct {
	Attempts int
	Fallback bool
}

// DrawEngine assigns every participant exactly one receiver.
// It is safe for concurrent use; the random source is serialized.
type DrawEngine struct {
	mu            sync.Mutex
	rng           *rand.Rand
	maxAttempts   int
	exactFallback bool
}

// NewDrawEngine creates a DrawEngine. A nil rng is seeded from the clock.
func NewDrawEngine(rng *rand.Rand, maxAttempts int, exactFallback bool) *DrawEngine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &DrawEngine{
		rng:           rng,
		maxAttempts:   maxAttempts,
		exactFallback: exactFallback,
	}
}

// MaxAttempts returns the configured attempt limit.
func (e *DrawEngine) MaxAttempts() int {
	return e.maxAttempts
}

// Draw performs the secret santa draw.
// Each attempt shuffles the givers and assigns greedily; an attempt where some giver
// has no candidate left is thrown away and the next one starts from scratch.
// Either every participant gives exactly once and receives exactly once, or an error is returned.
func (e *DrawEngine) Draw(participants []*models.Participant) ([]models.DrawAssignment, DrawStats, error) {
	if len(participants) < 2 {
		return nil, DrawStats{}, ErrNotEnoughParticipants
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	givers := slices.Clone(participants)
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		e.rng.Shuffle(len(givers), func(i, j int) {
			givers[i], givers[j] = givers[j], givers[i]
		})
		if result, ok := e.assign(givers, participants); ok {
			return result, DrawStats{Attempts: attempt}, nil
		}
	}

	stats := DrawStats{Attempts: e.maxAttempts}
	if e.exactFallback {
		if result, ok := e.match(participants); ok {
			stats.Fallback = true
			return result, stats, nil
		}
	}
	return nil, stats, ErrDrawInfeasible
}

// assign runs a single greedy attempt.
func (e *DrawEngine) assign(givers, receivers []*models.Participant) ([]models.DrawAssignment, bool) {
	available := slices.Clone(receivers)
	result := make([]models.DrawAssignment, 0, len(givers))
	candidates := make([]int, 0, len(available))

	for _, giver := range givers {
		candidates = candidates[:0]
		for i, r := range available {
			if r.ID == giver.ID || giver.Restricts(r.ID) {
				continue
			}
			candidates = append(candidates, i)
		}
		if len(candidates) == 0 {
			return nil, false
		}

		idx := candidates[e.rng.Intn(len(candidates))]
		result = append(result, models.DrawAssignment{Giver: giver, Receiver: available[idx]})
		available = slices.Delete(available, idx, idx+1)
	}

	return result, len(result) == len(receivers)
}

// match finds a perfect matching with augmenting paths, visiting givers and
// their candidates in random order so repeated runs differ.
func (e *DrawEngine) match(ps []*models.Participant) ([]models.DrawAssignment, bool) {
	n := len(ps)
	adj := make([][]int, n)
	for g, giver := range ps {
		for r, receiver := range ps {
			if g == r || receiver.ID == giver.ID || giver.Restricts(receiver.ID) {
				continue
			}
			adj[g] = append(adj[g], r)
		}
		e.rng.Shuffle(len(adj[g]), func(i, j int) {
			adj[g][i], adj[g][j] = adj[g][j], adj[g][i]
		})
	}

	// giverOf[r] is the giver currently holding receiver r, -1 if free.
	giverOf := make([]int, n)
	for i := range giverOf {
		giverOf[i] = -1
	}

	var augment func(g int, seen []bool) bool
	augment = func(g int, seen []bool) bool {
		for _, r := range adj[g] {
			if seen[r] {
				continue
			}
			seen[r] = true
			if giverOf[r] == -1 || augment(giverOf[r], seen) {
				giverOf[r] = g
				return true
			}
		}
		return false
	}

	order := e.rng.Perm(n)
	for _, g := range order {
		if !augment(g, make([]bool, n)) {
			return nil, false
		}
	}

	receiverOf := make([]int, n)
	for r, g := range giverOf {
		receiverOf[g] = r
	}
	result := make([]models.DrawAssignment, 0, n)
	for _, g := range order {
		result = append(result, models.DrawAssignment{Giver: ps[g], Receiver: ps[receiverOf[g]]})
	}
	return result, true
}
