package usecase

import (
	"sort"

	"github.com/kmcbride/sleeper-exposure/internal/domain/exposure"
)

// Enrich finalizes a partial aggregation against the bulk catalog, the
// seasonal stats table and the identifier crosswalk. It is pure: same
// inputs always produce the same output, and the partial map is not
// mutated. Entries without a catalog record are dropped, then the rest
// is sorted by league count descending with first-seen order as the
// tie-break.
func Enrich(
	partial map[string]*exposure.PlayerExposure,
	catalog map[string]exposure.Player,
	stats map[string]exposure.SeasonStats,
	idMap map[string]string,
) []exposure.PlayerExposure {
	out := make([]exposure.PlayerExposure, 0, len(partial))
	for id, entry := range partial {
		if entry == nil {
			continue
		}

		row := *entry
		row.Leagues = append([]exposure.League(nil), entry.Leagues...)

		player, found := catalog[id]
		if !found {
			// No catalog record, drop the entry.
			continue
		}

		row.Name = player.Name
		row.Position = player.Position
		row.Team = player.Team
		if row.Team == "" {
			row.Team = exposure.TeamFreeAgent
		}
		row.Stats = stats[id]
		row.ESPNID = idMap[id]

		if row.Name == "" {
			continue
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LeagueCount != out[j].LeagueCount {
			return out[i].LeagueCount > out[j].LeagueCount
		}
		return out[i].Seq < out[j].Seq
	})

	return out
}
