package gcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

type fakeProcessor struct {
	resp  *documentaipb.ProcessResponse
	err   error
	calls int
	last  *documentaipb.ProcessRequest
}

func (f *fakeProcessor) ProcessDocument(_ context.Context, req *documentaipb.ProcessRequest, _ ...gax.CallOption) (*documentaipb.ProcessResponse, error) {
	f.calls++
	f.last = req
	return f.resp, f.err
}

func newTestExtractor(p documentProcessor) *DocumentExtractor {
	return &DocumentExtractor{
		log:       logger.Nop(),
		processor: p,
		name:      processorName("proj", "us", "proc", ""),
		timeout:   time.Second,
	}
}

func TestProcessorName(t *testing.T) {
	if got := processorName("p", "eu", "x", ""); got != "projects/p/locations/eu/processors/x" {
		t.Fatalf("name: got=%q", got)
	}
	if got := processorName("p", "eu", "x", "v2"); got != "projects/p/locations/eu/processors/x/processorVersions/v2" {
		t.Fatalf("versioned name: got=%q", got)
	}
	if got := processorName("p", "", "x", ""); got != "" {
		t.Fatalf("missing location: want empty got=%q", got)
	}
}

func TestExtractTextReturnsDocumentText(t *testing.T) {
	p := &fakeProcessor{resp: &documentaipb.ProcessResponse{Document: &documentaipb.Document{Text: "The court finds"}}}
	d := newTestExtractor(p)
	got, err := d.ExtractText(context.Background(), "ruling.pdf", []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "The court finds" {
		t.Fatalf("text: want=%q got=%q", "The court finds", got)
	}
	if p.last.GetRawDocument().GetMimeType() != "application/pdf" {
		t.Fatalf("mime: got=%q", p.last.GetRawDocument().GetMimeType())
	}
}

func TestExtractTextEmptyInputSkipsCall(t *testing.T) {
	p := &fakeProcessor{}
	d := newTestExtractor(p)
	got, err := d.ExtractText(context.Background(), "empty.pdf", nil)
	if err != nil || got != "" {
		t.Fatalf("want empty text and nil error, got=%q err=%v", got, err)
	}
	if p.calls != 0 {
		t.Fatalf("calls: want=0 got=%d", p.calls)
	}
}

func TestExtractTextInvalidArgumentIsUnreadable(t *testing.T) {
	p := &fakeProcessor{err: status.Error(codes.InvalidArgument, "not a pdf")}
	d := newTestExtractor(p)
	_, err := d.ExtractText(context.Background(), "bad.pdf", []byte("nope"))
	if !errors.Is(err, ErrUnreadableDocument) {
		t.Fatalf("want ErrUnreadableDocument got=%v", err)
	}
}

func TestExtractTextUnavailableIsTransport(t *testing.T) {
	p := &fakeProcessor{err: status.Error(codes.Unavailable, "down")}
	d := newTestExtractor(p)
	_, err := d.ExtractText(context.Background(), "a.pdf", []byte("x"))
	if err == nil || errors.Is(err, ErrUnreadableDocument) {
		t.Fatalf("want transport error got=%v", err)
	}
}

func TestDocumentTextFallsBackToPages(t *testing.T) {
	full := "page one\fpage two"
	doc := &documentaipb.Document{
		Text: full,
		Pages: []*documentaipb.Document_Page{
			{Layout: &documentaipb.Document_Page_Layout{TextAnchor: &documentaipb.Document_TextAnchor{
				TextSegments: []*documentaipb.Document_TextAnchor_TextSegment{{StartIndex: 0, EndIndex: 8}},
			}}},
		},
	}
	if got := documentText(doc); got != full {
		t.Fatalf("text: want=%q got=%q", full, got)
	}
	if got := textFromAnchor(full, doc.Pages[0].Layout.TextAnchor); got != "page one" {
		t.Fatalf("anchor: want=%q got=%q", "page one", got)
	}
}
