package service_test

import (
	"errors"
	"testing"
	"time"

	service "github.com/okian/levelrank/internal/app"
	"github.com/okian/levelrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const day = 24 * time.Hour

func TestService_Bans(t *testing.T) {
	Convey("Given a moderator and two players", t, func() {
		h := newHarness(nil)
		defer h.svc.Stop()
		level := h.publish("alpha")
		h.register("alice", "bob", "mod")
		_, err := h.svc.PromoteToMod(h.ctx, headAdmin, "mod")
		So(err, ShouldBeNil)

		banned, err := h.svc.IsBanned(h.ctx, "alice")
		So(err, ShouldBeNil)
		So(banned, ShouldBeFalse)

		Convey("When alice is banned with zero days", func() {
			ban, err := h.svc.Ban(h.ctx, "mod", "alice", 0, "cheating")
			So(err, ShouldBeNil)

			Convey("Then the ban is permanent", func() {
				So(ban.Permanent, ShouldBeTrue)
				So(ban.BannedUntil, ShouldEqual, model.PermanentBan)
				So(ban.BannedBy, ShouldEqual, "mod")
				h.clock.Advance(10_000 * day)
				banned, err := h.svc.IsBanned(h.ctx, "alice")
				So(err, ShouldBeNil)
				So(banned, ShouldBeTrue)
			})

			Convey("Then alice cannot submit", func() {
				_, err := h.svc.SubmitCompletion(h.ctx, "alice", model.CompletionPayload{
					LevelRef: level.ID, Youtube: "https://youtu.be/x", Raw: "raw",
				})
				So(errors.Is(err, service.ErrForbidden), ShouldBeTrue)
			})

			Convey("Then the ban is listed and audited", func() {
				bans, err := h.svc.BannedUsers(h.ctx)
				So(err, ShouldBeNil)
				So(len(bans), ShouldEqual, 1)
				So(bans[0].Username, ShouldEqual, "alice")
				So(bans[0].Reason, ShouldEqual, "cheating")
				So(h.audited(model.ActionBan, "alice"), ShouldBeTrue)
			})

			Convey("Then an unban clears it", func() {
				cleared, err := h.svc.Unban(h.ctx, "mod", "alice")
				So(err, ShouldBeNil)
				So(cleared, ShouldBeTrue)
				banned, err := h.svc.IsBanned(h.ctx, "alice")
				So(err, ShouldBeNil)
				So(banned, ShouldBeFalse)
				So(h.audited(model.ActionUnban, "alice"), ShouldBeTrue)

				cleared, err = h.svc.Unban(h.ctx, "mod", "alice")
				So(err, ShouldBeNil)
				So(cleared, ShouldBeFalse)
			})
		})

		Convey("When alice is banned for one day", func() {
			_, err := h.svc.Ban(h.ctx, "mod", "alice", 1, "spam")
			So(err, ShouldBeNil)

			Convey("Then she is banned immediately and until the last millisecond", func() {
				banned, err := h.svc.IsBanned(h.ctx, "alice")
				So(err, ShouldBeNil)
				So(banned, ShouldBeTrue)

				h.clock.Advance(day - time.Millisecond)
				banned, err = h.svc.IsBanned(h.ctx, "alice")
				So(err, ShouldBeNil)
				So(banned, ShouldBeTrue)
			})

			Convey("Then 24h+1ms later the check returns false and clears the fields", func() {
				h.clock.Advance(day + time.Millisecond)

				So(h.storedUser("alice").BannedUntil, ShouldNotEqual, 0)
				bans, err := h.svc.BannedUsers(h.ctx)
				So(err, ShouldBeNil)
				So(bans, ShouldBeEmpty)

				banned, err := h.svc.IsBanned(h.ctx, "alice")
				So(err, ShouldBeNil)
				So(banned, ShouldBeFalse)

				stored := h.storedUser("alice")
				So(stored.BannedUntil, ShouldEqual, 0)
				So(stored.BanReason, ShouldBeEmpty)
				So(stored.BannedBy, ShouldBeEmpty)
				So(stored.BannedAt, ShouldEqual, 0)
				So(h.audited(model.ActionBanExpired, "alice"), ShouldBeTrue)
			})
		})

		Convey("When banning the head admin", func() {
			_, err := h.svc.Ban(h.ctx, "mod", headAdmin, 3, "")

			Convey("Then it is forbidden", func() {
				So(errors.Is(err, service.ErrForbidden), ShouldBeTrue)
			})
		})

		Convey("When a regular user bans someone", func() {
			_, err := h.svc.Ban(h.ctx, "bob", "alice", 3, "")

			Convey("Then it is forbidden", func() {
				So(errors.Is(err, service.ErrForbidden), ShouldBeTrue)
			})
		})

		Convey("When the duration is negative", func() {
			_, err := h.svc.Ban(h.ctx, "mod", "alice", -1, "")

			Convey("Then it is a validation error", func() {
				So(errors.Is(err, service.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When checking an unknown user", func() {
			_, err := h.svc.IsBanned(h.ctx, "ghost")

			Convey("Then it is not found", func() {
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
