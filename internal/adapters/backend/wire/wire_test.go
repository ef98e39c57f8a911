package wire

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
)

func TestVariants(t *testing.T) {
	Convey("Given check-win variants on the wire", t, func() {
		decode := func(raw string) (model.CheckWinResult, error) {
			var v Variant
			So(json.Unmarshal([]byte(raw), &v), ShouldBeNil)
			return DecodeCheckWin(v)
		}

		Convey("Then known tags decode once into the enum", func() {
			r, err := decode(`{"Won":null}`)
			So(err, ShouldBeNil)
			So(r, ShouldEqual, model.CheckWinWon)
			r, _ = decode(`{"NotWon":null}`)
			So(r, ShouldEqual, model.CheckWinNotWon)
			r, _ = decode(`{"GameAlreadyWon":null}`)
			So(r, ShouldEqual, model.CheckWinAlreadyWon)
		})

		Convey("Then unknown or malformed tags are unknown results", func() {
			_, err := decode(`{"Maybe":null}`)
			So(errors.Is(err, model.ErrUnknownResult), ShouldBeTrue)
			_, err = decode(`{"Won":null,"NotWon":null}`)
			So(errors.Is(err, model.ErrUnknownResult), ShouldBeTrue)
			_, err = decode(`{}`)
			So(errors.Is(err, model.ErrUnknownResult), ShouldBeTrue)
		})

		Convey("Then encoding produces the tagged shape", func() {
			b, err := json.Marshal(EncodeCheckWin(model.CheckWinAlreadyWon))
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"GameAlreadyWon":null}`)
		})
	})

	Convey("Given a game row with a bad win type", t, func() {
		g := Game{GameNumber: 3, WinType: Tag("Diagonal")}
		_, err := g.Summary()
		So(errors.Is(err, model.ErrUnknownResult), ShouldBeTrue)
	})

	Convey("Given a create request with a blackout win type", t, func() {
		pw := "pw"
		r := FromCreate(model.CreateGameRequest{Name: "x", WinType: model.WinBlackout, Password: &pw})
		m, err := r.Model()
		So(err, ShouldBeNil)
		So(m.WinType, ShouldEqual, model.WinBlackout)
		So(*m.Password, ShouldEqual, "pw")

		r.WinType = Variant{}
		_, err = r.Model()
		So(errors.Is(err, model.ErrInvalidArgument), ShouldBeTrue)
	})
}
