package loader_test

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	"github.com/bittermandel/molnett-lb/backend"
	"github.com/bittermandel/molnett-lb/loader"
	"github.com/bittermandel/molnett-lb/routing"
	"github.com/go-redis/redis/v8"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Redis", func() {
	var (
		mockRedis *miniredis.Miniredis
		rdb       *redis.Client
		subject   *loader.Redis
	)

	BeforeEach(func() {
		var err error
		mockRedis, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())

		rdb = redis.NewClient(&redis.Options{Addr: mockRedis.Addr()})
		subject = &loader.Redis{Client: rdb}

		ctx := context.Background()
		rdb.HSet(ctx, "molnett:clients:127.0.0.1", map[string]interface{}{
			"endpoint":    "localhost:8081",
			"application": "molnett",
		})
		rdb.SAdd(ctx, "molnett:pools:molnett", "localhost:8082", "localhost:8000")
		rdb.Set(ctx, "unrelated", "value", 0)
	})

	AfterEach(func() {
		rdb.Close()
		mockRedis.Close()
	})

	It("reads clients and pools", func() {
		t, err := subject.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		store := routing.NewStore(t)

		ep, err := store.LookupEndpoint("127.0.0.1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ep.Address).To(Equal("localhost:8081"))

		app, err := store.LookupApplication("127.0.0.1")
		Expect(err).NotTo(HaveOccurred())
		Expect(app).To(Equal("molnett"))

		pool, err := store.LookupWorkerPool("molnett")
		Expect(err).NotTo(HaveOccurred())
		Expect(pool).To(Equal([]backend.Endpoint{
			{Address: "localhost:8000"},
			{Address: "localhost:8082"},
		}))
	})

	It("uses the configured prefix", func() {
		rdb.SAdd(context.Background(), "staging:pools:app", "w1:80")
		subject.Prefix = "staging"

		t, err := subject.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Endpoints()).To(Equal(0))
		Expect(t.Pools()).To(Equal(1))
	})

	It("reports invalid entries", func() {
		rdb.HSet(context.Background(), "molnett:clients:10.0.0.1", "application", "molnett")

		_, err := subject.Load(context.Background())
		Expect(err).To(MatchError(ContainSubstring("molnett:clients:10.0.0.1")))
	})

	It("returns an error when the server is unavailable", func() {
		mockRedis.Close()

		_, err := subject.Load(context.Background())
		Expect(err).To(HaveOccurred())
	})
})
