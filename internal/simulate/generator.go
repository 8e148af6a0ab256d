package simulate

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/levelrank/internal/domain/model"
)

var nationalities = []string{"NL", "DE", "US", "BR", "JP", "KR", "FR", "PL"}

// randomInt returns a uniform value in [0, n) using crypto/rand.
func randomInt(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

func shortID() string {
	return uuid.NewString()[:nameIDLength]
}

// generatePlayers returns n distinct usernames.
func generatePlayers(n int) []string {
	players := make([]string, n)
	for i := range players {
		players[i] = "sim-" + shortID()
	}
	return players
}

// generateLevels returns n level payloads with distinct names.
func generateLevels(n int) []model.LevelPayload {
	levels := make([]model.LevelPayload, n)
	for i := range levels {
		id := shortID()
		levels[i] = model.LevelPayload{
			Name:     "Sim " + id,
			Creators: []string{"sim-creator"},
			LevelID:  id,
			Youtube:  "https://youtu.be/" + id,
			Raw:      "https://raw.example/" + id,
			Tags:     []string{model.KnownTags[randomInt(len(model.KnownTags))]},
		}
	}
	return levels
}

// planCompletions assigns n completions to random players and levels. Some
// reuse a video a player already used on the same level; those must be
// approved as duplicates without points.
func planCompletions(n int, players, levelIDs []string) []plannedCompletion {
	plan := make([]plannedCompletion, 0, n)
	if len(players) == 0 || len(levelIDs) == 0 {
		return plan
	}
	for len(plan) < n {
		if len(plan) > 0 && randomInt(repeatVideoOdds) == 0 {
			prev := plan[randomInt(len(plan))]
			prev.Key = uuid.NewString()
			plan = append(plan, prev)
			continue
		}
		c := plannedCompletion{
			Player:  players[randomInt(len(players))],
			LevelID: levelIDs[randomInt(len(levelIDs))],
			Video:   "https://youtu.be/" + shortID(),
			Key:     uuid.NewString(),
		}
		if randomInt(percentChance) == 0 {
			p := minPercent + randomInt(percentRange)
			c.Percent = &p
		}
		plan = append(plan, c)
	}
	return plan
}

func randomNationality() string {
	return nationalities[randomInt(len(nationalities))]
}
