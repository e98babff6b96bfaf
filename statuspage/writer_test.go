package statuspage_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/bittermandel/molnett-lb/statuspage"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("TemplateWriter", func() {
	var (
		subject  *statuspage.TemplateWriter
		recorder *httptest.ResponseRecorder
		request  *http.Request
		page     statuspage.Page
	)

	BeforeEach(func() {
		subject = &statuspage.TemplateWriter{}
		recorder = httptest.NewRecorder()
		request = httptest.NewRequest(http.MethodGet, "/", nil)
		page = statuspage.Page{
			Kind:      statuspage.RouteNotFound,
			Node:      "edge-0",
			RequestID: "5f1c",
		}
	})

	It("writes a plain-text page by default", func() {
		n, err := subject.Write(recorder, request, page)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(n).To(BeNumerically("==", recorder.Body.Len()))
		Expect(recorder.Code).To(Equal(http.StatusBadGateway))
		Expect(recorder.Header().Get("Content-Type")).To(Equal("text/plain; charset=utf-8"))
		Expect(recorder.Header().Get("Cache-Control")).To(Equal("no-store"))

		body := recorder.Body.String()
		Expect(body).To(ContainSubstring("502 Bad Gateway"))
		Expect(body).To(ContainSubstring(statuspage.RouteNotFound.Message()))
		Expect(body).To(ContainSubstring("kind: route-not-found"))
		Expect(body).To(ContainSubstring("node: edge-0"))
		Expect(body).To(ContainSubstring("request: 5f1c"))
	})

	It("omits the node and request when they are unknown", func() {
		_, err := subject.Write(recorder, request, statuspage.Page{Kind: statuspage.PoolEmpty})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(recorder.Body.String()).NotTo(ContainSubstring("node:"))
		Expect(recorder.Body.String()).NotTo(ContainSubstring("request:"))
	})

	It("writes an HTML page when the client prefers HTML", func() {
		request.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		page.Kind = statuspage.UpstreamTimeout

		_, err := subject.Write(recorder, request, page)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(recorder.Header().Get("Content-Type")).To(Equal("text/html; charset=utf-8"))
		Expect(recorder.Body.String()).To(ContainSubstring("<h1>504 Gateway Timeout</h1>"))
		Expect(recorder.Body.String()).To(ContainSubstring("upstream-timeout on edge-0"))
	})

	It("writes a JSON document when the client asks for JSON", func() {
		request.Header.Set("Accept", "application/json")
		page.Kind = statuspage.HeaderMissing

		_, err := subject.Write(recorder, request, page)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(recorder.Code).To(Equal(http.StatusBadRequest))
		Expect(recorder.Header().Get("Content-Type")).To(Equal("application/json; charset=utf-8"))

		var doc map[string]interface{}
		Expect(json.Unmarshal(recorder.Body.Bytes(), &doc)).To(Succeed())
		Expect(doc).To(HaveKeyWithValue("code", BeNumerically("==", 400)))
		Expect(doc).To(HaveKeyWithValue("kind", "header-missing"))
		Expect(doc).To(HaveKeyWithValue("node", "edge-0"))
		Expect(doc).To(HaveKeyWithValue("request_id", "5f1c"))
	})

	It("drops a Content-Length set for the upstream response", func() {
		recorder.Header().Set("Content-Length", "1234")
		_, err := subject.Write(recorder, request, page)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(recorder.Header().Get("Content-Length")).To(BeEmpty())
	})
})

var _ = Describe("Kind", func() {
	DescribeTable(
		"maps to a status code",
		func(kind statuspage.Kind, code int, name string) {
			Expect(kind.StatusCode()).To(Equal(code))
			Expect(kind.String()).To(Equal(name))
			Expect(kind.Message()).NotTo(BeEmpty())
		},
		Entry("header missing", statuspage.HeaderMissing, http.StatusBadRequest, "header-missing"),
		Entry("route not found", statuspage.RouteNotFound, http.StatusBadGateway, "route-not-found"),
		Entry("pool empty", statuspage.PoolEmpty, http.StatusBadGateway, "pool-empty"),
		Entry("upstream unreachable", statuspage.UpstreamUnreachable, http.StatusBadGateway, "upstream-unreachable"),
		Entry("upstream timeout", statuspage.UpstreamTimeout, http.StatusGatewayTimeout, "upstream-timeout"),
		Entry("internal", statuspage.Internal, http.StatusInternalServerError, "internal"),
	)
})

var _ = Describe("Error", func() {
	It("unwraps to the inner error", func() {
		inner := errors.New("inner")
		err := statuspage.Error{Kind: statuspage.UpstreamUnreachable, Inner: inner}
		Expect(errors.Is(err, inner)).To(BeTrue())
		Expect(err.Error()).To(Equal("upstream-unreachable: inner"))
	})

	It("describes itself by kind when there is no inner error", func() {
		err := statuspage.Error{Kind: statuspage.PoolEmpty}
		Expect(err.Error()).To(Equal("pool-empty"))
	})

	It("is found in a wrapped chain", func() {
		err := fmt.Errorf("wrapped: %w", statuspage.Error{Kind: statuspage.Internal})
		e, ok := statuspage.AsError(err)
		Expect(ok).To(BeTrue())
		Expect(e.Kind).To(Equal(statuspage.Internal))
	})
})
