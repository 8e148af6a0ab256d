package leaderboard_test

import (
	"math/rand"
	"testing"

	"github.com/okian/levelrank/internal/domain/leaderboard"
	"github.com/okian/levelrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func users(points ...int) []model.User {
	out := make([]model.User, len(points))
	for i, p := range points {
		out[i] = model.User{Username: string(rune('a' + i)), Points: p}
	}
	return out
}

func TestCompute(t *testing.T) {
	Convey("Given users with distinct points", t, func() {
		us := users(10, 300, 50)

		Convey("When computing the leaderboard", func() {
			standings := leaderboard.Compute(us)

			Convey("Then users are ordered by points descending", func() {
				So(standings[0].Username, ShouldEqual, "b")
				So(standings[1].Username, ShouldEqual, "c")
				So(standings[2].Username, ShouldEqual, "a")
				So(standings[0].Rank, ShouldEqual, 1)
				So(standings[2].Rank, ShouldEqual, 3)
			})
		})
	})

	Convey("Given users tied on points", t, func() {
		us := users(5, 5, 5)
		standings := leaderboard.Compute(us)

		Convey("Then store order breaks the tie", func() {
			So(standings[0].Username, ShouldEqual, "a")
			So(standings[1].Username, ShouldEqual, "b")
			So(standings[2].Username, ShouldEqual, "c")
		})
	})

	Convey("Given random point totals", t, func() {
		rng := rand.New(rand.NewSource(7))
		pts := make([]int, 40)
		total := 0
		for i := range pts {
			pts[i] = rng.Intn(20) * 10
			total += pts[i]
		}
		standings := leaderboard.Compute(users(pts...))

		Convey("Then ranks are a bijection onto 1..N and points are preserved", func() {
			seen := map[int]bool{}
			sum := 0
			for _, s := range standings {
				So(seen[s.Rank], ShouldBeFalse)
				seen[s.Rank] = true
				So(s.Rank, ShouldBeBetweenOrEqual, 1, len(pts))
				sum += s.Points
			}
			So(len(seen), ShouldEqual, len(pts))
			So(sum, ShouldEqual, total)
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given a snapshot", t, func() {
		us := []model.User{{Username: "Alice", Points: 5}, {Username: "Bob", Points: 50}}

		So(func() int { r, _ := leaderboard.Rank(us, "alice"); return r }(), ShouldEqual, 2)
		So(func() int { r, _ := leaderboard.Rank(us, "BOB"); return r }(), ShouldEqual, 1)

		_, ok := leaderboard.Rank(us, "carol")
		So(ok, ShouldBeFalse)

		So(leaderboard.Ranks(us)["bob"], ShouldEqual, 1)
		So(len(leaderboard.Top(us, 1)), ShouldEqual, 1)
		So(len(leaderboard.Top(us, 0)), ShouldEqual, 2)
		So(len(leaderboard.Top(us, 10)), ShouldEqual, 2)
	})
}
