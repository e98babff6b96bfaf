package strategy_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"

	"github.com/bittermandel/molnett-lb/backend"
	"github.com/bittermandel/molnett-lb/frontend"
	"github.com/bittermandel/molnett-lb/routing"
	"github.com/bittermandel/molnett-lb/strategy"
	"github.com/bittermandel/molnett-lb/transport"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

type fakeConn struct {
	net.Conn
	remote net.Addr
}

func (c fakeConn) RemoteAddr() net.Addr { return c.remote }

var _ = Describe("ParseMode", func() {
	DescribeTable(
		"parses mode names",
		func(s string, expected strategy.Mode) {
			m, err := strategy.ParseMode(s)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(m).To(Equal(expected))
			Expect(m.String()).To(Equal(expected.String()))
		},
		Entry("edge", "edge", strategy.Edge),
		Entry("worker", "worker", strategy.Worker),
		Entry("mixed case", " Worker ", strategy.Worker),
	)

	It("rejects unknown modes", func() {
		_, err := strategy.ParseMode("relay")
		Expect(err).Should(HaveOccurred())
	})
})

var _ = Describe("New", func() {
	store := routing.NewStore(nil)

	It("returns the strategy for the mode", func() {
		s, err := strategy.New(strategy.Edge, strategy.Options{Routes: store})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(s.Mode()).To(Equal(strategy.Edge))
		Expect(s.Protocol()).To(Equal(transport.HTTP2))

		s, err = strategy.New(strategy.Worker, strategy.Options{Routes: store})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(s.Mode()).To(Equal(strategy.Worker))
		Expect(s.Protocol()).To(Equal(transport.HTTP11))
	})

	It("requires routing tables", func() {
		_, err := strategy.New(strategy.Edge, strategy.Options{})
		Expect(err).Should(HaveOccurred())
	})

	It("rejects unknown modes", func() {
		_, err := strategy.New(strategy.Mode(7), strategy.Options{Routes: store})
		Expect(err).Should(HaveOccurred())
	})
})

var _ = Describe("EdgeStrategy", func() {
	var subject strategy.Strategy

	BeforeEach(func() {
		store := routing.NewStore(
			(&routing.Builder{}).
				WithEndpoint("127.0.0.1", backend.Endpoint{Address: "localhost:8081"}).
				WithApplication("127.0.0.1", "molnett").
				WithEndpoint("10.0.0.5", backend.Endpoint{Address: "svc:9000"}).
				Build(),
		)

		var err error
		subject, err = strategy.New(strategy.Edge, strategy.Options{Routes: store})
		Expect(err).ShouldNot(HaveOccurred())
	})

	request := func(remoteAddr string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://svc.example/x", nil)
		r.RemoteAddr = remoteAddr
		return r
	}

	It("resolves the endpoint and application bound to the client", func() {
		dest, err := subject.Resolve(request("127.0.0.1:5555"))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(dest).To(Equal(strategy.Destination{
			Endpoint:    backend.Endpoint{Address: "localhost:8081"},
			Application: "molnett",
			Protocol:    transport.HTTP2,
		}))
	})

	It("prefers the connection peer recorded by the frontend", func() {
		r := request("192.0.2.99:1234")
		conn := fakeConn{remote: &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 4000}}
		r = r.WithContext(frontend.WithConn(context.Background(), conn))

		dest, err := subject.Resolve(r)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(dest.Endpoint.Address).To(Equal("localhost:8081"))
	})

	It("ignores forwarding headers supplied by the client", func() {
		r := request("192.0.2.99:1234")
		r.Header.Set("X-Forwarded-For", "127.0.0.1")
		r.Header.Set(strategy.DefaultApplicationHeader, "molnett")

		_, err := subject.Resolve(r)
		Expect(errors.Is(err, strategy.ErrRouteNotFound)).To(BeTrue(), "%v", err)
	})

	It("returns ErrRouteNotFound for an unknown client", func() {
		_, err := subject.Resolve(request("10.0.0.9:1234"))
		Expect(errors.Is(err, strategy.ErrRouteNotFound)).To(BeTrue(), "%v", err)
		Expect(errors.Is(err, routing.ErrNotFound)).To(BeTrue(), "%v", err)
	})

	It("returns ErrRouteNotFound when the client has an endpoint but no application", func() {
		_, err := subject.Resolve(request("10.0.0.5:1234"))
		Expect(errors.Is(err, strategy.ErrRouteNotFound)).To(BeTrue(), "%v", err)
	})

	It("routes regardless of the inbound host", func() {
		r := request("127.0.0.1:5555")
		r.Host = "not a valid host!"

		dest, err := subject.Resolve(r)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(dest.Endpoint.Address).To(Equal("localhost:8081"))
	})

	It("replaces the application header", func() {
		out := http.Header{}
		out.Add(strategy.DefaultApplicationHeader, "spoofed")

		subject.RewriteHeaders(out, strategy.Destination{Application: "molnett"})
		Expect(out.Values(strategy.DefaultApplicationHeader)).To(ConsistOf("molnett"))
	})
})

var _ = Describe("WorkerStrategy", func() {
	var (
		subject strategy.Strategy
		index   int
	)

	BeforeEach(func() {
		index = 0
		store := routing.NewStore(
			(&routing.Builder{}).
				WithPool(
					"molnett",
					backend.Endpoint{Address: "localhost:8082"},
					backend.Endpoint{Address: "localhost:8000"},
				).
				WithPool("idle").
				Build(),
		)

		var err error
		subject, err = strategy.New(strategy.Worker, strategy.Options{
			Routes: store,
			Picker: backend.RandomPicker{IntN: func(int) int { return index }},
		})
		Expect(err).ShouldNot(HaveOccurred())
	})

	request := func(app string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "http://svc.example/x", nil)
		if app != "" {
			r.Header.Set(strategy.DefaultApplicationHeader, app)
		}
		return r
	}

	DescribeTable(
		"resolves the worker chosen by the picker",
		func(i int, expected string) {
			index = i
			dest, err := subject.Resolve(request("molnett"))
			Expect(err).ShouldNot(HaveOccurred())
			Expect(dest).To(Equal(strategy.Destination{
				Endpoint:    backend.Endpoint{Address: expected},
				Application: "molnett",
				Protocol:    transport.HTTP11,
			}))
		},
		Entry("first member", 0, "localhost:8082"),
		Entry("last member", 1, "localhost:8000"),
	)

	It("only ever selects members of the pool", func() {
		s, err := strategy.New(strategy.Worker, strategy.Options{Routes: routing.NewStore(
			(&routing.Builder{}).
				WithPool("molnett", backend.Endpoint{Address: "a:1"}, backend.Endpoint{Address: "b:1"}).
				Build(),
		)})
		Expect(err).ShouldNot(HaveOccurred())

		seen := map[string]int{}
		for i := 0; i < 200; i++ {
			dest, err := s.Resolve(request("molnett"))
			Expect(err).ShouldNot(HaveOccurred())
			seen[dest.Endpoint.Address]++
		}
		Expect(seen).To(HaveLen(2))
		Expect(seen).To(HaveKey("a:1"))
		Expect(seen).To(HaveKey("b:1"))
	})

	DescribeTable(
		"accepts application header variants",
		func(value string) {
			_, err := subject.Resolve(request(value))
			Expect(err).ShouldNot(HaveOccurred())
		},
		Entry("mixed case", "Molnett"),
		Entry("with port", "molnett:8080"),
		Entry("as URL", "http://molnett/"),
	)

	It("returns ErrHeaderMissing when the header is absent", func() {
		_, err := subject.Resolve(request(""))
		Expect(errors.Is(err, strategy.ErrHeaderMissing)).To(BeTrue(), "%v", err)
	})

	It("returns ErrHeaderMissing when the header cannot be parsed", func() {
		_, err := subject.Resolve(request("http://"))
		Expect(errors.Is(err, strategy.ErrHeaderMissing)).To(BeTrue(), "%v", err)
	})

	It("returns ErrRouteNotFound for an unbound application", func() {
		_, err := subject.Resolve(request("unknown"))
		Expect(errors.Is(err, strategy.ErrRouteNotFound)).To(BeTrue(), "%v", err)
	})

	It("returns ErrPoolEmpty for an application with no workers", func() {
		_, err := subject.Resolve(request("idle"))
		Expect(errors.Is(err, strategy.ErrPoolEmpty)).To(BeTrue(), "%v", err)
	})

	It("leaves the headers unchanged", func() {
		out := http.Header{}
		out.Set(strategy.DefaultApplicationHeader, "molnett")

		subject.RewriteHeaders(out, strategy.Destination{Application: "other"})
		Expect(out.Get(strategy.DefaultApplicationHeader)).To(Equal("molnett"))
	})
})
