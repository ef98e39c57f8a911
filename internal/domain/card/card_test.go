package card

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerateAndValidate(t *testing.T) {
	Convey("Given generated cards", t, func() {
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 50; i++ {
			c := Generate(rng)
			So(c.Validate(), ShouldBeNil)
			So(c[Center], ShouldEqual, Free)

			back, err := FromSlice(c.Slice())
			So(err, ShouldBeNil)
			So(back, ShouldEqual, c)
		}
	})

	Convey("Given malformed card data", t, func() {
		good := Generate(rand.New(rand.NewSource(1)))

		Convey("A short card is rejected", func() {
			_, err := FromSlice([]int{1, 2, 3})
			So(errors.Is(err, model.ErrInvalidCard), ShouldBeTrue)
		})

		Convey("A number in the wrong column is rejected", func() {
			bad := good
			bad[0] = 75
			So(errors.Is(bad.Validate(), model.ErrInvalidCard), ShouldBeTrue)
		})

		Convey("A filled centre is rejected", func() {
			bad := good
			bad[Center] = 40
			So(bad.Validate(), ShouldNotBeNil)
		})

		Convey("A duplicate is rejected", func() {
			bad := good
			bad[5] = bad[0]
			So(bad.Validate(), ShouldNotBeNil)
		})
	})
}

func TestLetter(t *testing.T) {
	Convey("Given called numbers", t, func() {
		So(Letter(1), ShouldEqual, "B")
		So(Letter(15), ShouldEqual, "B")
		So(Letter(16), ShouldEqual, "I")
		So(Letter(31), ShouldEqual, "N")
		So(Letter(46), ShouldEqual, "G")
		So(Letter(75), ShouldEqual, "O")
		So(Letter(0), ShouldEqual, "")
		So(Letter(76), ShouldEqual, "")
		So(Label(52), ShouldEqual, "G 52")
	})
}

func TestMarks(t *testing.T) {
	Convey("Given empty marks", t, func() {
		var m Marks

		Convey("Toggling flips a cell", func() {
			So(m.Toggle(3), ShouldBeTrue)
			So(m[3], ShouldBeTrue)
			So(m.Toggle(3), ShouldBeTrue)
			So(m[3], ShouldBeFalse)
		})

		Convey("The free cell and out-of-range cells cannot be toggled", func() {
			So(m.Toggle(Center), ShouldBeFalse)
			So(m.Toggle(-1), ShouldBeFalse)
			So(m.Toggle(Cells), ShouldBeFalse)
		})

		Convey("Wire marks must cover the whole card", func() {
			_, err := MarksFromSlice(make([]bool, 24))
			So(err, ShouldNotBeNil)
			back, err := MarksFromSlice(m.Slice())
			So(err, ShouldBeNil)
			So(back, ShouldEqual, m)
		})
	})
}

func TestWins(t *testing.T) {
	Convey("Given a card", t, func() {
		c := Generate(rand.New(rand.NewSource(3)))
		var m Marks
		var called []int

		mark := func(idx ...int) {
			for _, i := range idx {
				m[i] = true
				called = append(called, c[i])
			}
		}

		Convey("A full row wins a standard game", func() {
			mark(5, 6, 7, 8, 9)
			So(Wins(c, m, called, model.WinStandard), ShouldBeTrue)
			So(Wins(c, m, called, model.WinBlackout), ShouldBeFalse)
		})

		Convey("The middle column wins using the free cell", func() {
			mark(2, 7, 17, 22)
			So(Wins(c, m, called, model.WinStandard), ShouldBeTrue)
		})

		Convey("A diagonal wins", func() {
			mark(0, 6, 18, 24)
			So(Wins(c, m, called, model.WinStandard), ShouldBeTrue)
		})

		Convey("Marks on uncalled numbers do not count", func() {
			mark(5, 6, 7, 8)
			m[9] = true
			So(Wins(c, m, called, model.WinStandard), ShouldBeFalse)
		})

		Convey("Every cell wins a blackout", func() {
			for i := 0; i < Cells; i++ {
				if i != Center {
					mark(i)
				}
			}
			So(Wins(c, m, called, model.WinBlackout), ShouldBeTrue)
		})
	})
}
