package statuspage

import (
	"bytes"
	"encoding/json"
	htmlTemplate "html/template"
	"net/http"
	textTemplate "text/template"

	"github.com/golang/gddo/httputil"
)

// DefaultWriter is the status page writer that is used if no other is specified.
var DefaultWriter Writer = &TemplateWriter{}

// Page describes a response generated by the proxy in place of an upstream
// response.
type Page struct {
	Kind Kind

	// Node is the name of the proxy node that generated the page.
	Node string

	// RequestID correlates the page with the access log entry.
	RequestID string
}

// Writer writes status pages to an HTTP response writer.
type Writer interface {
	// Write sends page to writer, in response to request. The status code is
	// the one implied by the page's kind.
	Write(
		writer http.ResponseWriter,
		request *http.Request,
		page Page,
	) (bodySize int64, err error)
}

// TemplateWriter renders status pages as plain text, HTML or JSON, according
// to the request's Accept header.
type TemplateWriter struct {
	HTMLTemplate *htmlTemplate.Template
	TextTemplate *textTemplate.Template
}

type pageData struct {
	Code      int    `json:"code"`
	Text      string `json:"status"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Node      string `json:"node,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

const (
	contentTypeText = "text/plain"
	contentTypeHTML = "text/html"
	contentTypeJSON = "application/json"
)

var offers = []string{contentTypeText, contentTypeHTML, contentTypeJSON}

// Write sends page to writer, in response to request.
func (wr *TemplateWriter) Write(
	writer http.ResponseWriter,
	request *http.Request,
	page Page,
) (int64, error) {
	code := page.Kind.StatusCode()
	data := pageData{
		Code:      code,
		Text:      http.StatusText(code),
		Kind:      page.Kind.String(),
		Message:   page.Kind.Message(),
		Node:      page.Node,
		RequestID: page.RequestID,
	}

	contentType := httputil.NegotiateContentType(request, offers, contentTypeText)

	var buf bytes.Buffer
	if err := wr.render(&buf, contentType, data); err != nil {
		contentType = contentTypeText
		buf.Reset()
		buf.WriteString(data.Text)
	}

	headers := writer.Header()
	headers.Set("Content-Type", contentType+"; charset=utf-8")
	headers.Set("X-Content-Type-Options", "nosniff")
	headers.Set("Cache-Control", "no-store")
	headers.Del("Content-Length")
	writer.WriteHeader(code)
	return buf.WriteTo(writer)
}

func (wr *TemplateWriter) render(buf *bytes.Buffer, contentType string, data pageData) error {
	switch contentType {
	case contentTypeJSON:
		return json.NewEncoder(buf).Encode(data)
	case contentTypeHTML:
		tmpl := wr.HTMLTemplate
		if tmpl == nil {
			tmpl = defaultHTMLTemplate
		}
		return tmpl.Execute(buf, data)
	default:
		tmpl := wr.TextTemplate
		if tmpl == nil {
			tmpl = defaultTextTemplate
		}
		return tmpl.Execute(buf, data)
	}
}

var (
	defaultHTMLTemplate = htmlTemplate.Must(
		htmlTemplate.New("status-page").Parse(htmlTemplateSource),
	)
	defaultTextTemplate = textTemplate.Must(
		textTemplate.New("status-page").Parse(textTemplateSource),
	)
)
