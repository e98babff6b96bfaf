package loader_test

import (
	"context"

	"github.com/bittermandel/molnett-lb/backend"
	"github.com/bittermandel/molnett-lb/loader"
	"github.com/bittermandel/molnett-lb/routing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Env", func() {
	load := func(env ...string) (*routing.Store, error) {
		l := &loader.Env{Environ: func() []string { return env }}
		t, err := l.Load(context.Background())
		if err != nil {
			return nil, err
		}
		return routing.NewStore(t), nil
	}

	It("reads edge routes", func() {
		store, err := load("ROUTE_EDGE_LOCAL=127.0.0.1 localhost:8081 Molnett")
		Expect(err).ShouldNot(HaveOccurred())

		ep, err := store.LookupEndpoint("127.0.0.1")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ep).To(Equal(backend.Endpoint{Address: "localhost:8081"}))

		app, err := store.LookupApplication("127.0.0.1")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(app).To(Equal("molnett"))
	})

	It("reads worker pools", func() {
		store, err := load("ROUTE_POOL_MOLNETT=molnett localhost:8082,localhost:8000")
		Expect(err).ShouldNot(HaveOccurred())

		pool, err := store.LookupWorkerPool("molnett")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(pool).To(Equal([]backend.Endpoint{
			{Address: "localhost:8082"},
			{Address: "localhost:8000"},
		}))
	})

	It("reads an application with no workers as an empty pool", func() {
		store, err := load("ROUTE_POOL_IDLE=idle")
		Expect(err).ShouldNot(HaveOccurred())

		pool, err := store.LookupWorkerPool("idle")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(pool).To(BeEmpty())
	})

	It("allows multiple routes", func() {
		store, err := load(
			"ROUTE_EDGE_A=10.0.0.1 a:80 app-a",
			"ROUTE_EDGE_B=10.0.0.2 b:80 app-b",
		)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(store.Snapshot().Endpoints()).To(Equal(2))
	})

	It("ignores other environment variables", func() {
		store, err := load("PATH=/usr/local/bin", "ROUTES_FILE=/etc/routes.yaml")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(store.Snapshot().Endpoints()).To(Equal(0))
		Expect(store.Snapshot().Pools()).To(Equal(0))
	})

	DescribeTable(
		"returns an error for invalid routes",
		func(env string) {
			_, err := load(env)
			Expect(err).Should(HaveOccurred())
		},
		Entry("client is not an IP", "ROUTE_EDGE_X=localhost a:80 app"),
		Entry("endpoint has no port", "ROUTE_EDGE_X=10.0.0.1 a app"),
		Entry("missing application", "ROUTE_EDGE_X=10.0.0.1 a:80"),
		Entry("invalid pool member", "ROUTE_POOL_X=app a:80,b"),
		Entry("empty value", "ROUTE_POOL_X="),
	)

	It("reports every invalid route", func() {
		_, err := load(
			"ROUTE_EDGE_X=localhost a:80 app",
			"ROUTE_EDGE_Y=10.0.0.1 a app",
		)
		Expect(err).To(MatchError(ContainSubstring("ROUTE_EDGE_X")))
		Expect(err).To(MatchError(ContainSubstring("ROUTE_EDGE_Y")))
	})
})
