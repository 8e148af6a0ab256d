package scoring_test

import (
	"testing"

	scoring "github.com/okian/levelrank/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPlacementScorer_Award(t *testing.T) {
	Convey("Given a default placement scorer", t, func() {
		scorer := scoring.NewPlacementScorer()

		Convey("When the level sits at placement 2", func() {
			Convey("Then it awards 99 points", func() {
				So(scorer.Award(2), ShouldEqual, 99)
			})
		})

		Convey("When the level is the hardest", func() {
			So(scorer.Award(1), ShouldEqual, 100)
		})

		Convey("When the level is far down the list", func() {
			Convey("Then the award is floored at one point", func() {
				So(scorer.Award(100), ShouldEqual, 1)
				So(scorer.Award(150), ShouldEqual, 1)
			})
		})

		Convey("When the placement is not positive", func() {
			So(scorer.Award(0), ShouldEqual, 1)
			So(scorer.Award(-4), ShouldEqual, 1)
		})

		Convey("Then lower placements never earn less", func() {
			for p := 1; p < 120; p++ {
				So(scorer.Award(p), ShouldBeGreaterThanOrEqualTo, scorer.Award(p+1))
			}
		})
	})

	Convey("Given a scorer with custom options", t, func() {
		scorer := scoring.NewPlacementScorer(scoring.WithBase(51), scoring.WithBounds(5, 40))

		So(scorer.Award(1), ShouldEqual, 40)
		So(scorer.Award(20), ShouldEqual, 31)
		So(scorer.Award(49), ShouldEqual, 5)
	})

	Convey("Given inverted bounds", t, func() {
		scorer := scoring.NewPlacementScorer(scoring.WithBounds(10, 2))

		Convey("Then the defaults are kept", func() {
			So(scorer.Award(1), ShouldEqual, 100)
		})
	})
}
