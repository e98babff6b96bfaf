package loader_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"time"

	"github.com/bittermandel/molnett-lb/loader"
	"github.com/minio/minio-go/v7"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Object", func() {
	var (
		server  *httptest.Server
		client  *minio.Client
		objects map[string]string
	)

	BeforeEach(func() {
		objects = map[string]string{"/routing/routes.yaml": routesYAML}

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, ok := objects[r.URL.Path]
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
				return
			}

			w.Header().Set("Content-Type", "application/yaml")
			w.Header().Set("Content-Length", strconv.Itoa(len(body)))
			w.Header().Set("ETag", `"0123456789abcdef"`)
			w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
			w.Write([]byte(body))
		}))

		u, err := url.Parse(server.URL)
		Expect(err).NotTo(HaveOccurred())

		client, err = loader.NewObjectClient(u.Host, "us-east-1", "access", "secret", false)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("loads the document from the bucket", func() {
		l := &loader.Object{Client: client, Bucket: "routing", Key: "routes.yaml"}

		t, err := l.Load(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(t.Endpoints()).To(Equal(2))
		Expect(t.Pools()).To(Equal(2))
	})

	It("returns an error if the object does not exist", func() {
		l := &loader.Object{Client: client, Bucket: "routing", Key: "missing.yaml"}

		_, err := l.Load(context.Background())
		Expect(err).To(HaveOccurred())
	})
})
