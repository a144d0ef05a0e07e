package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/fieldmaskpb"

	"github.com/yungbote/casechat-backend/internal/platform/ctxutil"
	"github.com/yungbote/casechat-backend/internal/platform/logger"
)

// ErrUnreadableDocument is returned when the processor rejects the document
// itself (bad PDF, unsupported content) rather than failing in transport.
var ErrUnreadableDocument = errors.New("document could not be processed")

type DocumentConfig struct {
	ProjectID        string `yaml:"project_id"`
	Location         string `yaml:"location"`
	ProcessorID      string `yaml:"processor_id"`
	ProcessorVersion string `yaml:"processor_version"`
}

func (c DocumentConfig) Validate() error {
	if processorName(c.ProjectID, c.Location, c.ProcessorID, c.ProcessorVersion) == "" {
		return fmt.Errorf("documentai: project id, location and processor id are required")
	}
	return nil
}

type documentProcessor interface {
	ProcessDocument(ctx context.Context, req *documentaipb.ProcessRequest, opts ...gax.CallOption) (*documentaipb.ProcessResponse, error)
}

var _ documentProcessor = (*documentai.DocumentProcessorClient)(nil)

// DocumentExtractor pulls plain text out of PDFs with a Document AI OCR processor.
type DocumentExtractor struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor documentProcessor
	name      string
	timeout   time.Duration
}

func NewDocumentExtractor(ctx context.Context, log *logger.Logger, cfg DocumentConfig) (*DocumentExtractor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	location := strings.TrimSpace(cfg.Location)
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)

	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	name := processorName(cfg.ProjectID, location, cfg.ProcessorID, cfg.ProcessorVersion)
	slog := log.With("service", "gcp.DocumentExtractor")
	slog.Info("Document AI initialized", "endpoint", endpoint, "processor", name)

	return &DocumentExtractor{
		log:       slog,
		client:    c,
		processor: c,
		name:      name,
		timeout:   3 * time.Minute,
	}, nil
}

func (d *DocumentExtractor) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

// ExtractText sends the raw PDF bytes for online processing and returns the
// document text. Empty input yields empty text without a call.
func (d *DocumentExtractor) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:     data,
				MimeType:    "application/pdf",
				DisplayName: filename,
			},
		},
		// Only the text is used; skip layout, entities and page images.
		FieldMask: &fieldmaskpb.FieldMask{Paths: []string{"text", "pages.page_number", "pages.layout"}},
	}

	resp, err := d.processor.ProcessDocument(ctx, req)
	if err != nil {
		switch status.Code(err) {
		case codes.InvalidArgument, codes.FailedPrecondition:
			return "", fmt.Errorf("documentai %s: %w: %v", filename, ErrUnreadableDocument, err)
		default:
			return "", fmt.Errorf("documentai ProcessDocument %s: %w", filename, err)
		}
	}
	if resp == nil || resp.Document == nil {
		d.log.Warn("Document AI returned no document", "file", filename)
		return "", nil
	}
	return documentText(resp.Document), nil
}

// documentText prefers the full document text and falls back to joining page
// layouts when the processor only populated pages.
func documentText(doc *documentaipb.Document) string {
	if doc == nil {
		return ""
	}
	if strings.TrimSpace(doc.Text) != "" {
		return doc.Text
	}
	var b strings.Builder
	for _, p := range doc.Pages {
		if p == nil || p.Layout == nil {
			continue
		}
		t := textFromAnchor(doc.Text, p.Layout.TextAnchor)
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t)
	}
	return b.String()
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || len(anchor.TextSegments) == 0 || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.TextSegments {
		if seg == nil {
			continue
		}
		start := int(seg.StartIndex)
		end := int(seg.EndIndex)
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func processorName(project, location, processorID, version string) string {
	project = strings.TrimSpace(project)
	location = strings.TrimSpace(location)
	processorID = strings.TrimSpace(processorID)
	version = strings.TrimSpace(version)

	if project == "" || location == "" || processorID == "" {
		return ""
	}
	base := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	if version != "" {
		return base + "/processorVersions/" + version
	}
	return base
}
