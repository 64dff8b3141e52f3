package members

import (
	"github.com/openpaas/groupd/internal/server/models"
)

// DiffAdd returns the requested tuples that are not already present in
// current, in requested order. Already-present tuples (and repeats within
// requested) are dropped silently, which makes add idempotent.
func DiffAdd(current, requested []models.Member) []models.Member {
	seen := keySet(current)

	var delta []models.Member
	for _, m := range requested {
		key := m.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		delta = append(delta, m)
	}
	return delta
}

// DiffRemove returns the requested tuples that are present in current, in
// requested order. Absent tuples are dropped silently.
func DiffRemove(current, requested []models.Member) []models.Member {
	present := keySet(current)

	var delta []models.Member
	for _, m := range requested {
		key := m.Key()
		if !present[key] {
			continue
		}
		delete(present, key)
		delta = append(delta, m)
	}
	return delta
}

// Without returns current minus removed, preserving the order of current.
func Without(current, removed []models.Member) []models.Member {
	drop := keySet(removed)

	kept := make([]models.Member, 0, len(current))
	for _, m := range current {
		if drop[m.Key()] {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func keySet(tuples []models.Member) map[string]bool {
	set := make(map[string]bool, len(tuples))
	for _, m := range tuples {
		set[m.Key()] = true
	}
	return set
}
