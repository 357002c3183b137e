package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"docflow/internal/docflow/domain"
	"docflow/pkg/logger"
)

const (
	UploadPath  = "/upload/"
	TriggerPath = "/run-driver/"

	// FileField is the multipart form field carrying the document.
	FileField = "file"

	maxReplyBytes = 1 << 20
)

// HTTPTransport talks to the document backend over HTTP.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

var _ domain.Transport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a transport for baseURL. A zero timeout leaves calls
// bounded only by their context.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.WithFields("component", "http-transport", "baseUrl", baseURL),
	}
}

// Store uploads file as multipart form data.
func (t *HTTPTransport) Store(ctx context.Context, file *domain.SelectedFile) (*domain.Reply, error) {
	if file == nil {
		return nil, &domain.TransportError{Phase: domain.PhaseUpload, Message: "File is required"}
	}

	body, contentType, err := encodeFile(file)
	if err != nil {
		return nil, &domain.TransportError{Phase: domain.PhaseUpload, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+UploadPath, body)
	if err != nil {
		return nil, &domain.TransportError{Phase: domain.PhaseUpload, Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	t.logger.Debug("uploading file", "name", file.Name, "sizeBytes", file.SizeBytes)
	return t.do(req, domain.PhaseUpload)
}

// Trigger asks the backend to run its processing step.
func (t *HTTPTransport) Trigger(ctx context.Context) (*domain.Reply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+TriggerPath, nil)
	if err != nil {
		return nil, &domain.TransportError{Phase: domain.PhaseProcess, Err: err}
	}

	t.logger.Debug("triggering processing")
	return t.do(req, domain.PhaseProcess)
}

func (t *HTTPTransport) do(req *http.Request, phase domain.Phase) (*domain.Reply, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Phase: phase, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, &domain.TransportError{Phase: phase, StatusCode: resp.StatusCode, Err: err}
	}
	body := decodeBody(raw)
	message := replyMessage(body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		t.logger.Debug("backend refused call", "phase", string(phase), "status", resp.StatusCode, "message", message)
		return nil, &domain.TransportError{Phase: phase, StatusCode: resp.StatusCode, Message: message}
	}

	return &domain.Reply{StatusCode: resp.StatusCode, Message: message, Body: body}, nil
}

func encodeFile(file *domain.SelectedFile) (io.Reader, string, error) {
	content, err := file.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer content.Close()

	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FileField, escapeQuotes(file.Name)))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", file.Name, err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// decodeBody returns the JSON object in raw, or nil when raw is not one.
func decodeBody(raw []byte) map[string]interface{} {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil
	}
	return body
}

// replyMessage picks the human readable explanation out of a reply body.
// FastAPI style backends use "detail", others "message".
func replyMessage(body map[string]interface{}) string {
	for _, key := range []string{"message", "detail"} {
		if s, ok := body[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
