// Package derive holds the pure derivation functions: leaderboard ranking,
// pending-assignment sets, attendance membership, and past/future event
// classification. Everything here is deterministic and side-effect free;
// callers re-run these on every snapshot instead of trusting stored values.
package derive

import (
	"sort"

	"github.com/isshoni-club/club-api/internal/models"
)

// Rank sorts entries by points descending and assigns ranks 1..N. The sort is
// stable, so entries with equal points keep their relative input order. Rank
// is assigned here and nowhere else; any rank value arriving on the input is
// overwritten. The input slice is not modified.
func Rank(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	ranked := make([]models.LeaderboardEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Points > ranked[j].Points
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
