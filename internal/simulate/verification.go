package simulate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/types"
	"github.com/okian/levelrank/pkg/logger"
)

const maxLeaderboardFetch = 100

// player is what verification knows about one simulated user.
type player struct {
	profile types.Profile
	entry   types.Entry
}

// verify reads the service state back and returns every inconsistency found.
func verify(ctx context.Context, client *Client, players []string, stats *Stats) ([]string, error) {
	logger.Get().Info(ctx, "verifying results")

	levels, err := client.Levels(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := client.Leaderboard(ctx, min(len(players)+1, maxLeaderboardFetch))
	if err != nil {
		return nil, err
	}
	stats.LeaderboardEntries = len(entries)

	seen := make([]player, len(players))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultWorkers)
	for i, name := range players {
		g.Go(func() error {
			p, err := client.User(gctx, name)
			if err != nil {
				return fmt.Errorf("profile %s: %w", name, err)
			}
			e, err := client.Rank(gctx, name)
			if err != nil {
				return fmt.Errorf("rank %s: %w", name, err)
			}
			seen[i] = player{profile: p, entry: e}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failures []string
	failures = append(failures, checkPlacements(levels)...)
	failures = append(failures, checkLeaderboard(entries)...)
	failures = append(failures, checkPlayers(seen, stats.PointsAwarded)...)
	return failures, nil
}

// checkPlacements requires placements to be exactly 1..N in list order.
func checkPlacements(levels []model.Level) []string {
	var out []string
	for i, l := range levels {
		if l.Placement != i+1 {
			out = append(out, fmt.Sprintf("level %s at position %d has placement %d", l.ID, i+1, l.Placement))
		}
	}
	return out
}

// checkLeaderboard requires ranks 1..K in order with non-increasing points.
func checkLeaderboard(entries []types.Entry) []string {
	var out []string
	for i, e := range entries {
		if e.Rank != i+1 {
			out = append(out, fmt.Sprintf("leaderboard position %d has rank %d", i+1, e.Rank))
		}
		if i > 0 && e.Points > entries[i-1].Points {
			out = append(out, fmt.Sprintf("leaderboard not sorted: %s (%d) above %s (%d)",
				entries[i-1].Username, entries[i-1].Points, e.Username, e.Points))
		}
	}
	return out
}

// checkPlayers compares each player's points with their completion history,
// requires distinct ranks ordered by points, and requires the total to match
// what approvals reported.
func checkPlayers(players []player, awarded int) []string {
	var out []string
	ranks := make(map[int]string, len(players))
	total := 0

	for _, p := range players {
		name := p.profile.Username
		sum := 0
		evidence := make(map[string]struct{}, len(p.profile.CompletedRecords))
		for _, c := range p.profile.CompletedRecords {
			sum += c.AwardedPoints
			k := c.LevelID + "\x00" + c.Youtube
			if _, dup := evidence[k]; dup {
				out = append(out, fmt.Sprintf("%s holds the same completion twice on level %s", name, c.LevelID))
			}
			evidence[k] = struct{}{}
		}
		if p.profile.Points != sum {
			out = append(out, fmt.Sprintf("%s has %d points but history sums to %d", name, p.profile.Points, sum))
		}
		if p.profile.Points < 0 {
			out = append(out, fmt.Sprintf("%s has negative points", name))
		}
		if p.entry.Points != p.profile.Points {
			out = append(out, fmt.Sprintf("%s rank entry shows %d points, profile %d", name, p.entry.Points, p.profile.Points))
		}
		if other, ok := ranks[p.entry.Rank]; ok {
			out = append(out, fmt.Sprintf("%s and %s share rank %d", other, name, p.entry.Rank))
		}
		ranks[p.entry.Rank] = name
		total += p.profile.Points
	}

	for _, a := range players {
		for _, b := range players {
			if a.entry.Points > b.entry.Points && a.entry.Rank > b.entry.Rank {
				out = append(out, fmt.Sprintf("%s (%d) ranked below %s (%d)",
					a.profile.Username, a.entry.Points, b.profile.Username, b.entry.Points))
			}
		}
	}

	if total != awarded {
		out = append(out, fmt.Sprintf("players hold %d points but approvals awarded %d", total, awarded))
	}
	return out
}
