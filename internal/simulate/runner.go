package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	service "github.com/okian/levelrank/internal/app"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/pkg/logger"
)

const playerPassword = "sim-password"

// ErrVerification is returned when the ranked state is inconsistent after a run.
var ErrVerification = errors.New("verification failed")

// Run executes a complete simulation and returns its statistics.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulate")
	if config.Workers < 1 {
		config.Workers = defaultWorkers
	}
	client := NewClient(config.BaseURL, config.Timeout)

	log.Info(ctx, "starting levelrank simulation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("players", config.Players),
		logger.Int("levels", config.Levels),
		logger.Int("completions", config.Completions),
		logger.Int("workers", config.Workers))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	players, err := registerPlayers(ctx, client, config, stats)
	if err != nil {
		return stats, fmt.Errorf("player registration failed: %w", err)
	}

	levelIDs, err := publishLevels(ctx, client, config, stats)
	if err != nil {
		return stats, fmt.Errorf("level publishing failed: %w", err)
	}

	if err := shufflePlacements(ctx, client, config, levelIDs, stats); err != nil {
		return stats, fmt.Errorf("placement shuffle failed: %w", err)
	}

	plan := planCompletions(config.Completions, players, levelIDs)
	ids, err := submitCompletions(ctx, client, config, plan, stats)
	if err != nil {
		return stats, fmt.Errorf("completion submission failed: %w", err)
	}

	if err := approveCompletions(ctx, client, config, ids, stats); err != nil {
		return stats, fmt.Errorf("completion approval failed: %w", err)
	}

	failures, err := verify(ctx, client, players, stats)
	if err != nil {
		return stats, fmt.Errorf("verification could not run: %w", err)
	}
	stats.VerificationFailures = failures

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	if config.OutputFile != "" {
		if err := saveReport(config.OutputFile, stats); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	displayFinalStats(ctx, stats)

	if len(failures) > 0 {
		for _, f := range failures {
			log.Error(ctx, "verification failure", logger.String("detail", f))
		}
		return stats, fmt.Errorf("%w: %d problems", ErrVerification, len(failures))
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func registerPlayers(ctx context.Context, client *Client, config *Config, stats *Stats) ([]string, error) {
	players := generatePlayers(config.Players)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for _, name := range players {
		g.Go(func() error {
			if _, err := client.Register(gctx, name, playerPassword, randomNationality()); err != nil {
				return fmt.Errorf("register %s: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.PlayersRegistered = len(players)
	return players, nil
}

// publishLevels runs sequentially so placements follow generation order.
func publishLevels(ctx context.Context, client *Client, config *Config, stats *Stats) ([]string, error) {
	var ids []string
	for _, p := range generateLevels(config.Levels) {
		sub, err := client.SubmitLevel(ctx, config.Admin, p)
		if err != nil {
			return nil, fmt.Errorf("submit level %s: %w", p.Name, err)
		}
		out, err := client.Approve(ctx, config.Admin, sub.ID)
		if err != nil {
			return nil, fmt.Errorf("approve level %s: %w", p.Name, err)
		}
		if out.Level == nil {
			return nil, fmt.Errorf("approve level %s: no level in outcome", p.Name)
		}
		ids = append(ids, out.Level.ID)
	}
	stats.LevelsPublished = len(ids)
	return ids, nil
}

// shufflePlacements moves random levels up or down so awards are computed
// against a reordered list.
func shufflePlacements(ctx context.Context, client *Client, config *Config, levelIDs []string, stats *Stats) error {
	if len(levelIDs) < 2 {
		return nil
	}
	for range len(levelIDs) * shuffleFactor {
		dir := service.DirectionUp
		if randomInt(2) == 0 {
			dir = service.DirectionDown
		}
		moved, err := client.MoveLevel(ctx, config.Admin, levelIDs[randomInt(len(levelIDs))], dir)
		if err != nil {
			return err
		}
		if moved {
			stats.LevelsMoved++
		}
	}
	return nil
}

// submitCompletions submits every planned completion and then repeats the
// request with the same idempotency key, which must not create a second submission.
func submitCompletions(ctx context.Context, client *Client, config *Config, plan []plannedCompletion, stats *Stats) ([]string, error) {
	var (
		mu        sync.Mutex
		ids       []string
		submitted int64
		retried   int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for _, c := range plan {
		g.Go(func() error {
			payload := model.CompletionPayload{
				LevelRef: c.LevelID,
				Youtube:  c.Video,
				Raw:      "https://raw.example/" + c.Player,
				Percent:  c.Percent,
			}
			sub, dup, err := client.SubmitCompletion(gctx, c.Player, c.Key, payload)
			if err != nil {
				return fmt.Errorf("submit completion for %s: %w", c.Player, err)
			}
			if dup {
				return fmt.Errorf("first submission for %s acknowledged as duplicate", c.Player)
			}
			atomic.AddInt64(&submitted, 1)
			mu.Lock()
			ids = append(ids, sub.ID)
			mu.Unlock()

			_, dup, err = client.SubmitCompletion(gctx, c.Player, c.Key, payload)
			if err != nil {
				return fmt.Errorf("retry completion for %s: %w", c.Player, err)
			}
			if !dup {
				return fmt.Errorf("retried idempotency key for %s created a second submission", c.Player)
			}
			atomic.AddInt64(&retried, 1)

			if config.Verbose {
				logger.Get().Debug(gctx, "completion submitted",
					logger.String("player", c.Player), logger.String("submission", sub.ID))
			}
			return nil
		})
	}
	err := g.Wait()
	stats.CompletionsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.CompletionsRetried = int(atomic.LoadInt64(&retried))
	return ids, err
}

func approveCompletions(ctx context.Context, client *Client, config *Config, ids []string, stats *Stats) error {
	var approved, duplicate, failed, points int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Workers)
	for _, id := range ids {
		g.Go(func() error {
			out, err := client.Approve(gctx, config.Admin, id)
			switch {
			case err != nil:
				atomic.AddInt64(&failed, 1)
				logger.Get().Warn(gctx, "approval failed", logger.String("submission", id), logger.Error(err))
			case out.Duplicate:
				atomic.AddInt64(&duplicate, 1)
			default:
				atomic.AddInt64(&approved, 1)
				atomic.AddInt64(&points, int64(out.Points))
			}
			return nil
		})
	}
	err := g.Wait()
	stats.CompletionsApproved = int(approved)
	stats.CompletionsDuplicate = int(duplicate)
	stats.CompletionsFailed = int(failed)
	stats.PointsAwarded = int(points)
	return err
}

func saveReport(filename string, stats *Stats) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return os.WriteFile(filename, data, reportFilePermission)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var approvalsPerSecond float64
	if stats.Duration > 0 {
		approvalsPerSecond = float64(stats.CompletionsApproved+stats.CompletionsDuplicate) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("playersRegistered", stats.PlayersRegistered),
		logger.Int("levelsPublished", stats.LevelsPublished),
		logger.Int("levelsMoved", stats.LevelsMoved),
		logger.Int("completionsSubmitted", stats.CompletionsSubmitted),
		logger.Int("completionsRetried", stats.CompletionsRetried),
		logger.Int("completionsApproved", stats.CompletionsApproved),
		logger.Int("completionsDuplicate", stats.CompletionsDuplicate),
		logger.Int("completionsFailed", stats.CompletionsFailed),
		logger.Int("pointsAwarded", stats.PointsAwarded),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("approvalsPerSecond", approvalsPerSecond))
}
