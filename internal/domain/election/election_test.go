package election

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	minute = int64(60_000)
	window = 5 * minute
	me     = model.Identity("me")
)

func TestEligibilityBeforeStart(t *testing.T) {
	Convey("Given a game that has not started", t, func() {
		snap := &model.Snapshot{
			GameNumber:           1,
			ScheduledStartTimeMs: 10 * minute,
			HostPrincipalID:      "host",
		}

		Convey("When no host assignment time is known", func() {
			threshold := snap.ScheduledStartTimeMs + window

			Convey("Then eligibility flips exactly at scheduled start plus five minutes", func() {
				So(ComputeEligibility(snap, threshold-1, me), ShouldBeFalse)
				So(ComputeEligibility(snap, threshold, me), ShouldBeTrue)
				So(ComputeEligibility(snap, threshold+1, me), ShouldBeTrue)
			})
		})

		Convey("When the host was assigned after the scheduled start", func() {
			snap.HostAssignedTimeMs = model.MsPtr(13 * minute)
			threshold := *snap.HostAssignedTimeMs + window

			Convey("Then the later threshold gates eligibility", func() {
				So(ComputeEligibility(snap, snap.ScheduledStartTimeMs+window+1, me), ShouldBeFalse)
				So(ComputeEligibility(snap, threshold-1, me), ShouldBeFalse)
				So(ComputeEligibility(snap, threshold+1, me), ShouldBeTrue)
			})
		})

		Convey("When the host was assigned before the scheduled start", func() {
			snap.HostAssignedTimeMs = model.MsPtr(2 * minute)
			threshold := snap.ScheduledStartTimeMs + window

			Convey("Then the scheduled start gates eligibility", func() {
				So(ComputeEligibility(snap, threshold-1, me), ShouldBeFalse)
				So(ComputeEligibility(snap, threshold+1, me), ShouldBeTrue)
			})
		})
	})
}

func TestEligibilityInProgress(t *testing.T) {
	Convey("Given a game in progress", t, func() {
		snap := &model.Snapshot{
			GameNumber:           1,
			InProgress:           true,
			ScheduledStartTimeMs: 0,
			StartTimeMs:          model.MsPtr(1 * minute),
			HostAssignedTimeMs:   model.MsPtr(0),
			HostPrincipalID:      "host",
		}

		Convey("When nothing has been drawn yet", func() {
			threshold := *snap.StartTimeMs + window

			Convey("Then staleness is measured from the start time", func() {
				So(ComputeEligibility(snap, threshold-1, me), ShouldBeFalse)
				So(ComputeEligibility(snap, threshold+1, me), ShouldBeTrue)
			})
		})

		Convey("When a number was drawn recently", func() {
			snap.LastDrawTimeMs = model.MsPtr(20 * minute)
			threshold := *snap.LastDrawTimeMs + window

			Convey("Then staleness is measured from the last draw", func() {
				So(ComputeEligibility(snap, *snap.StartTimeMs+window+1, me), ShouldBeFalse)
				So(ComputeEligibility(snap, threshold-1, me), ShouldBeFalse)
				So(ComputeEligibility(snap, threshold+1, me), ShouldBeTrue)
			})
		})

		Convey("When the host changed after the last draw", func() {
			snap.LastDrawTimeMs = model.MsPtr(20 * minute)
			snap.HostAssignedTimeMs = model.MsPtr(22 * minute)
			threshold := *snap.HostAssignedTimeMs + window

			Convey("Then the host assignment gates eligibility", func() {
				So(ComputeEligibility(snap, threshold-1, me), ShouldBeFalse)
				So(ComputeEligibility(snap, threshold+1, me), ShouldBeTrue)
			})
		})

		Convey("When neither a draw time nor a start time is known", func() {
			snap.StartTimeMs = nil

			Convey("Then eligibility is false however late it is", func() {
				So(ComputeEligibility(snap, 1<<50, me), ShouldBeFalse)
				_, ok := NewRule(0).Threshold(snap)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the host assignment time is unknown", func() {
			snap.HostAssignedTimeMs = nil
			snap.LastDrawTimeMs = model.MsPtr(20 * minute)

			Convey("Then eligibility is false however stale the draws are", func() {
				So(ComputeEligibility(snap, 1<<40, me), ShouldBeFalse)
				_, ok := NewRule(0).Threshold(snap)
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestEligibilityVetoes(t *testing.T) {
	Convey("Given any snapshot with a winner", t, func() {
		for i, snap := range []*model.Snapshot{
			{InProgress: false, ScheduledStartTimeMs: 0},
			{InProgress: true, StartTimeMs: model.MsPtr(0)},
			{InProgress: true, LastDrawTimeMs: model.MsPtr(0), HostAssignedTimeMs: model.MsPtr(0)},
			{Completed: true},
		} {
			snap.Winner = &model.Winner{AccountID: "w"}
			Convey(fmt.Sprintf("Case %d is never eligible", i), func() {
				for _, now := range []int64{0, window, 1 << 50} {
					So(ComputeEligibility(snap, now, me), ShouldBeFalse)
				}
			})
		}
	})

	Convey("Given a stale game the local user already hosts", t, func() {
		snap := &model.Snapshot{HostPrincipalID: me}
		So(ComputeEligibility(snap, 1<<50, me), ShouldBeFalse)
		So(ComputeEligibility(snap, 1<<50, "someone-else"), ShouldBeTrue)
	})

	Convey("Given a nil snapshot", t, func() {
		So(ComputeEligibility(nil, 0, me), ShouldBeFalse)
	})

	Convey("Given a custom window", t, func() {
		r := NewRule(time.Minute)
		snap := &model.Snapshot{ScheduledStartTimeMs: 0}
		So(r.Eligible(snap, minute-1, me), ShouldBeFalse)
		So(r.Eligible(snap, minute, me), ShouldBeTrue)
		So(NewRule(-time.Second).StaleAfter, ShouldEqual, DefaultStaleAfter)
	})
}

func TestDescribeTakeoverFailure(t *testing.T) {
	Convey("Given backend takeover errors", t, func() {
		errs := []error{
			model.ErrHostAlreadyAssigned,
			model.ErrTooEarlyToHost,
			model.ErrGameInProgress,
			model.ErrGameHasWinner,
			model.ErrAlreadyHost,
		}

		Convey("Then each maps to its own code and message", func() {
			seen := map[Code]bool{}
			for _, err := range errs {
				r := DescribeTakeoverFailure(fmt.Errorf("become host: %w", err))
				So(r.Code, ShouldNotEqual, CodeUnknown)
				So(r.Message, ShouldNotBeBlank)
				So(seen[r.Code], ShouldBeFalse)
				seen[r.Code] = true
			}
			So(len(seen), ShouldEqual, len(errs))
			So(DescribeTakeoverFailure(model.ErrAlreadyHost).String(), ShouldEqual, "You are already the host.")
		})

		Convey("Then unknown errors carry their text", func() {
			r := DescribeTakeoverFailure(errors.New("connection reset"))
			So(r.Code, ShouldEqual, CodeUnknown)
			So(r.Message, ShouldContainSubstring, "connection reset")
		})

		Convey("Then a plain refusal has its own code", func() {
			So(DescribeTakeoverFailure(nil).Code, ShouldEqual, CodeRejected)
		})
	})
}
