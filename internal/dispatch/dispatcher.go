package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sitelog/internal/config"
	"sitelog/internal/ingest"
	"sitelog/internal/logging"
	"sitelog/internal/notifications"
	"sitelog/internal/payload"
	"sitelog/internal/store"
)

// HTTPDoer abstracts the HTTP client so tests can substitute transports.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxResponseBytes = 4 << 20

// Dispatcher delivers ended sessions to the configured webhook and feeds
// responses into ingestion. Delivery never returns an error to callers: a
// session either lands in the received state or in the failed state, and the
// boolean result says which.
type Dispatcher struct {
	store    *store.Store
	builder  *payload.Builder
	ingestor *ingest.Processor
	notifier notifications.Service
	client   HTTPDoer
	logger   *slog.Logger

	defaultWebhookURL string

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewDispatcher constructs a dispatcher. client may be nil, in which case a
// default client with the configured request timeout is used.
func NewDispatcher(cfg *config.Config, st *store.Store, builder *payload.Builder, ingestor *ingest.Processor, notifier notifications.Service, client HTTPDoer, logger *slog.Logger) *Dispatcher {
	if client == nil {
		timeout := time.Duration(cfg.Webhook.RequestTimeout) * time.Second
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Dispatcher{
		store:             st,
		builder:           builder,
		ingestor:          ingestor,
		notifier:          notifier,
		client:            client,
		logger:            logging.WithComponent(logger, "dispatch"),
		defaultWebhookURL: cfg.Webhook.URL,
		inFlight:          make(map[string]struct{}),
	}
}

// Send delivers one session to the webhook. It reports true only when the
// webhook accepted the payload. A session already being delivered by another
// caller is skipped and reported as false.
func (d *Dispatcher) Send(ctx context.Context, sessionID string) bool {
	if !d.acquire(sessionID) {
		d.logger.Debug("delivery already in flight", logging.String(logging.FieldSessionID, sessionID))
		return false
	}
	defer d.release(sessionID)

	session, err := d.store.GetSession(ctx, sessionID)
	if err != nil {
		d.logger.Error("load session", logging.String(logging.FieldSessionID, sessionID), logging.Error(err))
		return false
	}
	if session == nil {
		d.logger.Warn("session not found", logging.String(logging.FieldSessionID, sessionID))
		return false
	}
	if !session.Ended() {
		d.logger.Warn("session still capturing, not dispatching", logging.String(logging.FieldSessionID, sessionID))
		return false
	}

	settings, err := d.store.LoadSettings(ctx, d.defaultWebhookURL)
	if err != nil {
		d.logger.Error("load settings", logging.Error(err))
		return false
	}
	if settings.WebhookURL == "" {
		d.logger.Warn("no webhook URL configured")
		return false
	}

	// The sent mark lands before any network activity.
	if err := d.store.BeginDispatch(ctx, session); err != nil {
		d.logger.Error("mark session sent", logging.String(logging.FieldSessionID, sessionID), logging.Error(err))
		return false
	}

	meta, audioPath, err := d.builder.Build(ctx, session)
	if err != nil {
		d.logger.Error("build payload", logging.String(logging.FieldSessionID, sessionID), logging.Error(err))
		d.fail(ctx, session, err.Error())
		return false
	}

	status, body, err := d.post(ctx, settings.WebhookURL, meta, audioPath)
	if err != nil {
		d.logger.Warn("webhook send failed",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Error(err),
		)
		d.fail(ctx, session, err.Error())
		return false
	}
	if status < 200 || status >= 300 {
		d.logger.Warn("webhook rejected payload",
			logging.String(logging.FieldSessionID, sessionID),
			logging.Int("status", status),
			logging.String("body", trimmedReason(body)),
		)
		d.fail(ctx, session, fmt.Sprintf("webhook returned %d", status))
		return false
	}

	if err := d.store.FinishDispatch(ctx, session, store.WebhookReceived, store.SyncUploaded); err != nil {
		d.logger.Error("mark session received", logging.String(logging.FieldSessionID, sessionID), logging.Error(err))
		return false
	}

	// Response bodies are best-effort: empty or non-JSON bodies are ignored.
	report, err := d.ingestor.Apply(ctx, session, body)
	if err != nil {
		d.logger.Warn("ingest response", logging.String(logging.FieldSessionID, sessionID), logging.Error(err))
	}

	d.logger.Info("session delivered",
		logging.String(logging.FieldSessionID, sessionID),
		logging.Int("tasks", report.Tasks),
		logging.Int("transcripts", report.TranscriptSegments),
	)
	if project, err := d.store.GetProject(ctx, session.ProjectID); err == nil && project != nil {
		if err := d.notifier.NotifySessionSynced(ctx, project.Name, report.Tasks); err != nil {
			d.logger.Debug("notify session synced", logging.Error(err))
		}
	}
	return true
}

func (d *Dispatcher) fail(ctx context.Context, session *store.CaptureSession, reason string) {
	if err := d.store.FinishDispatch(ctx, session, store.WebhookFailed, store.SyncFailed); err != nil {
		d.logger.Error("mark session failed", logging.String(logging.FieldSessionID, session.ID), logging.Error(err))
	}
	if err := d.notifier.NotifySyncFailed(ctx, session.ID, reason); err != nil {
		d.logger.Debug("notify sync failed", logging.Error(err))
	}
}

// post sends the payload, as multipart with the audio attachment when one
// exists and as plain JSON otherwise. It returns the response status and a
// bounded copy of the body.
func (d *Dispatcher) post(ctx context.Context, url string, meta *payload.Metadata, audioPath string) (int, []byte, error) {
	encoded, err := json.Marshal(meta)
	if err != nil {
		return 0, nil, fmt.Errorf("encode payload: %w", err)
	}

	var req *http.Request
	if audioPath != "" {
		req, err = d.multipartRequest(ctx, url, encoded, audioPath)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return 0, nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		body = nil
	}
	return resp.StatusCode, body, nil
}

func (d *Dispatcher) multipartRequest(ctx context.Context, url string, metadata []byte, audioPath string) (*http.Request, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio attachment: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(audioPath)))
	header.Set("Content-Type", "audio/m4a")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy audio attachment: %w", err)
	}

	if err := writer.WriteField("data", string(metadata)); err != nil {
		return nil, fmt.Errorf("write data field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req, nil
}

func (d *Dispatcher) acquire(sessionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.inFlight[sessionID]; busy {
		return false
	}
	d.inFlight[sessionID] = struct{}{}
	return true
}

func (d *Dispatcher) release(sessionID string) {
	d.mu.Lock()
	delete(d.inFlight, sessionID)
	d.mu.Unlock()
}

// trimmedReason shortens webhook error bodies for notifications.
func trimmedReason(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
