package simulate

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/levelrank/internal/adapters/http/api"
	service "github.com/okian/levelrank/internal/app"
	"github.com/okian/levelrank/internal/domain/model"
	"github.com/okian/levelrank/internal/domain/types"
	"github.com/okian/levelrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.InitWithWriter(io.Discard); err != nil {
		panic(err)
	}
}

const admin = "zmmieh."

func startServer() (*httptest.Server, *service.Service) {
	svc := service.New(service.WithSeedAdmin(admin, "123456"))
	So(svc.Start(context.Background()), ShouldBeNil)
	router := mux.NewRouter()
	api.NewServer(svc, 100).Register(context.Background(), router)
	return httptest.NewServer(router), svc
}

func TestRun(t *testing.T) {
	Convey("Given a running service", t, func() {
		srv, svc := startServer()
		defer svc.Stop()
		defer srv.Close()

		report := filepath.Join(t.TempDir(), "report.json")
		cfg := &Config{
			BaseURL:     srv.URL,
			Admin:       admin,
			Players:     6,
			Levels:      4,
			Completions: 30,
			Workers:     4,
			Timeout:     5 * time.Second,
			OutputFile:  report,
		}

		Convey("When a simulation runs", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then the ranked state verifies", func() {
				So(err, ShouldBeNil)
				So(stats.VerificationFailures, ShouldBeEmpty)
				So(stats.PlayersRegistered, ShouldEqual, 6)
				So(stats.LevelsPublished, ShouldEqual, 4)
				So(stats.CompletionsSubmitted, ShouldEqual, 30)
				So(stats.CompletionsRetried, ShouldEqual, 30)
				So(stats.CompletionsApproved+stats.CompletionsDuplicate, ShouldEqual, 30)
				So(stats.CompletionsFailed, ShouldEqual, 0)
				So(stats.PointsAwarded, ShouldBeGreaterThan, 0)
			})

			Convey("Then a report is written", func() {
				_, statErr := os.Stat(report)
				So(statErr, ShouldBeNil)
			})
		})

		Convey("When the admin is not a moderator", func() {
			cfg.Admin = "nobody"
			_, err := Run(context.Background(), cfg)

			Convey("Then publishing fails", func() {
				So(err, ShouldNotBeNil)
				var se *StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(errors.Is(err, ErrUnexpectedStatus), ShouldBeTrue)
			})
		})
	})

	Convey("Given no service", t, func() {
		_, err := Run(context.Background(), &Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

		Convey("Then the health check fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}

func TestChecks(t *testing.T) {
	Convey("Placements must be dense", t, func() {
		So(checkPlacements([]model.Level{{ID: "a", Placement: 1}, {ID: "b", Placement: 2}}), ShouldBeEmpty)
		So(checkPlacements([]model.Level{{ID: "a", Placement: 1}, {ID: "b", Placement: 3}}), ShouldHaveLength, 1)
	})

	Convey("The leaderboard must be ranked and sorted", t, func() {
		ok := []types.Entry{{Rank: 1, Username: "a", Points: 5}, {Rank: 2, Username: "b", Points: 5}}
		So(checkLeaderboard(ok), ShouldBeEmpty)

		bad := []types.Entry{{Rank: 1, Username: "a", Points: 1}, {Rank: 3, Username: "b", Points: 5}}
		So(checkLeaderboard(bad), ShouldHaveLength, 2)
	})

	Convey("Player points must match history", t, func() {
		good := []player{
			{
				profile: types.Profile{Username: "a", Points: 150, CompletedRecords: []model.Completion{
					{LevelID: "l1", Youtube: "v1", AwardedPoints: 100},
					{LevelID: "l2", Youtube: "v2", AwardedPoints: 50},
				}},
				entry: types.Entry{Rank: 1, Username: "a", Points: 150},
			},
			{
				profile: types.Profile{Username: "b"},
				entry:   types.Entry{Rank: 2, Username: "b"},
			},
		}
		So(checkPlayers(good, 150), ShouldBeEmpty)

		Convey("and a mismatched total is reported", func() {
			So(checkPlayers(good, 10), ShouldHaveLength, 1)
		})

		Convey("and shared or inverted ranks are reported", func() {
			good[1].entry.Rank = 1
			So(checkPlayers(good, 150), ShouldNotBeEmpty)
		})

		Convey("and a repeated completion is reported", func() {
			good[0].profile.CompletedRecords = append(good[0].profile.CompletedRecords,
				model.Completion{LevelID: "l1", Youtube: "v1"})
			So(checkPlayers(good, 150), ShouldHaveLength, 1)
		})
	})

	Convey("Generated levels pass validation", t, func() {
		for _, p := range generateLevels(3 * len(model.KnownTags)) {
			p.Normalize()
			So(p.Validate(), ShouldBeNil)
		}
		for _, name := range generatePlayers(5) {
			So(model.ValidateRegistration(name, playerPassword, randomNationality()), ShouldBeNil)
		}
	})

	Convey("Completion plans cover players and levels", t, func() {
		plan := planCompletions(50, []string{"p1", "p2"}, []string{"l1"})
		So(plan, ShouldHaveLength, 50)
		keys := map[string]bool{}
		for _, c := range plan {
			So(c.Player, ShouldBeIn, []string{"p1", "p2"})
			So(c.LevelID, ShouldEqual, "l1")
			So(keys[c.Key], ShouldBeFalse)
			keys[c.Key] = true
		}
		So(planCompletions(5, nil, []string{"l1"}), ShouldBeEmpty)
	})
}
