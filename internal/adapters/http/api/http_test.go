package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/memory"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/backend/wire"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/internal/adapters/http/api"
	"github.com/dickhery/Blockchain-Bingo-on-ICP/pkg/logger"
)

type call struct {
	method string
	path   string
	who    string
	rid    string
	body   string
}

func do(h http.Handler, c call) *httptest.ResponseRecorder {
	req := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
	if c.who != "" {
		req.Header.Set(wire.HeaderIdentity, c.who)
	}
	if c.rid != "" {
		req.Header.Set(wire.HeaderRequestID, c.rid)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v wire.Value[T]
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v.Value
}

func errorCode(w *httptest.ResponseRecorder) string {
	var e wire.Error
	So(json.Unmarshal(w.Body.Bytes(), &e), ShouldBeNil)
	return e.Code
}

func TestServerRoutes(t *testing.T) {
	Convey("Given a server over an empty store", t, func() {
		clock := clockwork.NewFakeClock()
		store := memory.NewStore(memory.WithClock(clock), memory.WithSeed(3), memory.WithLogger(logger.Nop()))
		h := api.NewServer(store, api.WithLogger(logger.Nop())).Handler()
		base := wire.BasePath + "/games"

		Convey("When checking health", func() {
			w := do(h, call{method: http.MethodGet, path: "/healthz"})

			Convey("Then it reports ok", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"status":"ok"`)
			})
		})

		Convey("When scraping metrics", func() {
			w := do(h, call{method: http.MethodGet, path: "/metrics"})
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When fetching the API reference", func() {
			w := do(h, call{method: http.MethodGet, path: "/openapi.yaml"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "openapi: 3.0.3")
		})

		Convey("When reading an unknown game", func() {
			w := do(h, call{method: http.MethodGet, path: base + "/42/called-numbers"})

			Convey("Then it maps to not found", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(errorCode(w), ShouldEqual, "game_not_found")
			})
		})

		Convey("When the game id is not a number", func() {
			w := do(h, call{method: http.MethodGet, path: base + "/abc/winner"})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorCode(w), ShouldEqual, "invalid_argument")
		})

		Convey("When an anonymous caller creates a game", func() {
			w := do(h, call{method: http.MethodPost, path: base, body: `{"name":"x","winType":{"Standard":null}}`})
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When a host creates and runs a game", func() {
			w := do(h, call{method: http.MethodPost, path: base, who: "host", rid: "c-1",
				body: `{"name":"Lunch","winType":{"Blackout":null}}`})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[uint64](w), ShouldEqual, uint64(1))

			Convey("Then the listing carries the tagged win type", func() {
				w := do(h, call{method: http.MethodGet, path: base})
				games := decode[[]wire.Game](w)
				So(games, ShouldHaveLength, 1)
				sum, err := games[0].Summary()
				So(err, ShouldBeNil)
				So(sum.GameName, ShouldEqual, "Lunch")
				So(string(sum.HostPrincipalID), ShouldEqual, "host")

				w = do(h, call{method: http.MethodGet, path: base + "/1/win-type"})
				So(w.Body.String(), ShouldContainSubstring, `"Blackout"`)
			})

			Convey("Then a retried create is replayed, not repeated", func() {
				w := do(h, call{method: http.MethodPost, path: base, who: "host", rid: "c-1",
					body: `{"name":"Lunch","winType":{"Blackout":null}}`})
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get(wire.HeaderReplay), ShouldEqual, "true")
				So(decode[uint64](w), ShouldEqual, uint64(1))

				w = do(h, call{method: http.MethodGet, path: base})
				So(decode[[]wire.Game](w), ShouldHaveLength, 1)
			})

			Convey("Then draws run once per request ID", func() {
				So(do(h, call{method: http.MethodPost, path: base + "/1/start", who: "host", rid: "s-1"}).Code,
					ShouldEqual, http.StatusOK)
				So(do(h, call{method: http.MethodPost, path: base + "/1/draw", who: "host", rid: "d-1"}).Code,
					ShouldEqual, http.StatusOK)
				So(do(h, call{method: http.MethodPost, path: base + "/1/draw", who: "host", rid: "d-1"}).Code,
					ShouldEqual, http.StatusOK)

				w := do(h, call{method: http.MethodGet, path: base + "/1/called-numbers"})
				So(decode[[]int](w), ShouldHaveLength, 1)

				w = do(h, call{method: http.MethodGet, path: base + "/1/latest-number"})
				So(decode[*int](w), ShouldNotBeNil)
			})

			Convey("Then a non-host draw is forbidden", func() {
				do(h, call{method: http.MethodPost, path: base + "/1/start", who: "host"})
				w := do(h, call{method: http.MethodPost, path: base + "/1/draw", who: "bob"})
				So(w.Code, ShouldEqual, http.StatusForbidden)
				So(errorCode(w), ShouldEqual, "not_host")
			})

			Convey("Then a player registers and fetches a card", func() {
				w := do(h, call{method: http.MethodPost, path: base + "/1/payments", who: "bob", body: `{}`})
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[bool](w), ShouldBeTrue)

				w = do(h, call{method: http.MethodPost, path: base + "/1/cards", who: "bob"})
				So(w.Code, ShouldEqual, http.StatusOK)
				So(decode[[]int](w), ShouldHaveLength, 25)

				w = do(h, call{method: http.MethodGet, path: base + "/1/players/bob/has-card"})
				So(decode[bool](w), ShouldBeTrue)

				w = do(h, call{method: http.MethodPost, path: base + "/1/check-win", who: "bob",
					body: `{"marks":[true]}`})
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a conflicting rule maps to 409", func() {
				w := do(h, call{method: http.MethodPost, path: base + "/1/payments", who: "bob", body: `{}`})
				So(w.Code, ShouldEqual, http.StatusOK)
				w = do(h, call{method: http.MethodPost, path: base + "/1/payments", who: "bob", body: `{}`})
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(errorCode(w), ShouldEqual, "already_paid")
			})
		})

		Convey("When a user has no username", func() {
			w := do(h, call{method: http.MethodGet, path: wire.BasePath + "/users/nobody/username"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[*string](w), ShouldBeNil)
		})
	})
}
