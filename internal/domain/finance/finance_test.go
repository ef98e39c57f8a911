package finance

import (
	"errors"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCompute(t *testing.T) {
	Convey("Given a one unit game with a 10% host cut", t, func() {
		f, err := Compute(100_000_000, 1, 100)

		Convey("Then the documented split should come out exactly", func() {
			So(err, ShouldBeNil)
			So(f.ServiceFeeE8s, ShouldEqual, uint64(2_500_000))
			So(f.NetAfterServiceFeeE8s, ShouldEqual, uint64(97_500_000))
			So(f.PrizePoolE8s, ShouldEqual, uint64(87_750_000))
			So(f.HostCutE8s(), ShouldEqual, uint64(9_750_000))
			So(FormatICP(f.PrizePoolE8s), ShouldEqual, "0.8775")
		})
	})

	Convey("Given boundary host percentages", t, func() {
		all, err := Compute(123_456_789, 7, BasisPointScale)
		So(err, ShouldBeNil)
		So(all.PrizePoolE8s, ShouldEqual, uint64(0))

		none, err := Compute(123_456_789, 7, 0)
		So(err, ShouldBeNil)
		So(none.PrizePoolE8s, ShouldEqual, none.NetAfterServiceFeeE8s)
	})

	Convey("Given zero cards", t, func() {
		f, err := Compute(500, 0, 50)
		So(err, ShouldBeNil)
		So(f, ShouldResemble, Financials{})
	})

	Convey("Given a host percentage out of range", t, func() {
		_, err := Compute(500, 1, 1001)
		So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
		_, err = Compute(500, 1, -1)
		So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
	})

	Convey("Given products beyond uint64", t, func() {
		_, err := Compute(^uint64(0), 2, 0)
		So(errors.Is(err, ErrOverflow), ShouldBeTrue)
	})

	Convey("Given random inputs", t, func() {
		rng := rand.New(rand.NewSource(42))
		for i := 0; i < 2000; i++ {
			price := uint64(rng.Int63n(1_000_000_000_000))
			cards := uint64(rng.Intn(10_000))
			hostBP := rng.Intn(BasisPointScale + 1)

			f, err := Compute(price, cards, hostBP)
			So(err, ShouldBeNil)

			total := price * cards
			sum := f.ServiceFeeE8s + f.NetAfterServiceFeeE8s
			So(sum, ShouldBeLessThanOrEqualTo, total)
			So(total-sum, ShouldBeLessThanOrEqualTo, cards)
			So(f.PrizePoolE8s, ShouldBeLessThanOrEqualTo, f.NetAfterServiceFeeE8s)
		}
	})
}

func TestTotalDueAndSplit(t *testing.T) {
	Convey("Given game prices", t, func() {
		So(TotalDue(0), ShouldEqual, uint64(0))
		So(TotalDue(100_000_000), ShouldEqual, uint64(100_020_000))
		So(RegistrationSurchargeE8s, ShouldEqual, uint64(20_000))

		fee, net := RegistrationSplit(100_000_000)
		So(fee, ShouldEqual, uint64(2_500_000))
		So(net, ShouldEqual, uint64(97_500_000))

		fee, net = RegistrationSplit(0)
		So(fee, ShouldEqual, uint64(0))
		So(net, ShouldEqual, uint64(0))
	})
}

func TestHostPercentageInput(t *testing.T) {
	Convey("Given host percentage form values", t, func() {
		bp, err := PercentToBasisPoints("2.5")
		So(err, ShouldBeNil)
		So(bp, ShouldEqual, 25)

		bp, err = PercentToBasisPoints(" 100 ")
		So(err, ShouldBeNil)
		So(bp, ShouldEqual, 1000)

		bp, err = PercentToBasisPoints("0.04")
		So(err, ShouldBeNil)
		So(bp, ShouldEqual, 0)

		for _, bad := range []string{"100.1", "-1", "abc", ""} {
			_, err = PercentToBasisPoints(bad)
			So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
		}

		So(ClampHostPercentage(-5), ShouldEqual, 0)
		So(ClampHostPercentage(1500), ShouldEqual, 1000)
		So(ClampHostPercentage(333), ShouldEqual, 333)
	})
}

func TestAmounts(t *testing.T) {
	Convey("Given whole-unit amounts", t, func() {
		e8s, err := ParseAmount("1.25")
		So(err, ShouldBeNil)
		So(e8s, ShouldEqual, uint64(125_000_000))

		_, err = ParseAmount("-2")
		So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)
		_, err = ParseAmount("one")
		So(errors.Is(err, ErrInvalidArgument), ShouldBeTrue)

		So(ToDisplay(150_000_000).String(), ShouldEqual, "1.5")
		So(FormatICP(0), ShouldEqual, "0.0000")
		So(FormatICP(12_345), ShouldEqual, "0.0001")
	})
}
