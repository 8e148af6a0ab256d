package ids_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/okian/levelrank/internal/domain/ids"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerators(t *testing.T) {
	Convey("Given the uuid generator", t, func() {
		gen, err := ids.New(ids.FormatUUID)
		So(err, ShouldBeNil)

		a := gen.NewID()
		b := gen.NewID()

		Convey("Then ids parse as uuids and differ", func() {
			_, perr := uuid.Parse(a)
			So(perr, ShouldBeNil)
			So(a, ShouldNotEqual, b)
		})
	})

	Convey("Given the nanoid generator", t, func() {
		gen, err := ids.New(ids.FormatNanoID)
		So(err, ShouldBeNil)

		So(len(gen.NewID()), ShouldEqual, 21)
	})

	Convey("Given an unknown format", t, func() {
		_, err := ids.New("ulid")
		So(err, ShouldNotBeNil)
	})

	Convey("Given a sequence generator", t, func() {
		gen := ids.Sequence("sub")
		So(gen.NewID(), ShouldEqual, "sub-1")
		So(gen.NewID(), ShouldEqual, "sub-2")
	})
}
