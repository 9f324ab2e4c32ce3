package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/forecourt-hq/sentinel/internal/app"
	"github.com/forecourt-hq/sentinel/internal/auth"
	"github.com/forecourt-hq/sentinel/internal/camera"
	"github.com/forecourt-hq/sentinel/internal/ingest"
	"github.com/forecourt-hq/sentinel/internal/review"
	"github.com/forecourt-hq/sentinel/internal/shared"
	"github.com/forecourt-hq/sentinel/internal/video"
	_ "github.com/forecourt-hq/sentinel/testing"
)

const managerPassword = "hunter22"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")

	hash, err := bcrypt.GenerateFromPassword([]byte(managerPassword), bcrypt.MinCost)
	require.NoError(t, err)

	clips := &videoStore{}
	reviewRepo := newReviewStore()
	reviewRepo.clips = clips
	reviewService := review.NewService(reviewRepo)
	ingestService := ingest.NewService(newGuardStore(), reviewService, nil, nil)
	videoService := video.NewService(clips, t.TempDir())
	cameraService := camera.NewService(&cameraStore{cameras: map[int64]camera.Camera{}})

	router := app.NewRouter(app.RouterParams{
		Logger:         newTestLogger(),
		Config:         &app.Config{},
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		AuthHandler:    auth.NewHandler(nil, auth.NewService(string(hash)), sessionManager, csrfManager),
		ReviewHandler:  review.NewHandler(nil, reviewService),
		IngestHandler:  ingest.NewHandler(nil, ingestService, 8<<20),
		VideoHandler:   video.NewHandler(nil, videoService, 8<<20),
		CameraHandler:  camera.NewHandler(nil, cameraService),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func login(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	res, err := client.Post(baseURL+"/api/login", "application/json",
		strings.NewReader(fmt.Sprintf(`{"password":%q}`, managerPassword)))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.NotEmpty(t, body.CSRFToken)
	return body.CSRFToken
}

func uploadCSV(t *testing.T, client *http.Client, baseURL, csrfToken, csv string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("posFile", "export.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/upload/pos", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(shared.CSRFHeader, csrfToken)

	res, err := client.Do(req)
	require.NoError(t, err)
	return res
}

func uploadClip(t *testing.T, client *http.Client, baseURL, csrfToken, filename, transactionID string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("transactionId", transactionID))
	part, err := mw.CreateFormFile("videoFile", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("not real video bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, baseURL+"/api/upload/video", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(shared.CSRFHeader, csrfToken)

	res, err := client.Do(req)
	require.NoError(t, err)
	return res
}

const exportCSV = `date,transaction_type,amount,cashier_name,transaction_id
2026-03-14,Refund,$75.00,Jordan,TXN-1001
2026-03-14,Sale,$10.00,Jordan,TXN-1002
`

func TestDashboardFlow(t *testing.T) {
	srv := newServer(t)
	client := newClient(t)

	// Unauthenticated requests are rejected.
	res, err := client.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	csrfToken := login(t, client, srv.URL)

	// A clip can reference a transaction that has not been ingested yet.
	res = uploadClip(t, client, srv.URL, csrfToken, "pump4.mp4", "TXN-1001")
	res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)

	// Upload a two-row export: the high refund is flagged, the sale is not.
	res = uploadCSV(t, client, srv.URL, csrfToken, exportCSV)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	var summary ingest.Summary
	require.NoError(t, json.NewDecoder(res.Body).Decode(&summary))
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Flagged)

	// The flagged transaction is pending with the refund reason.
	res, err = client.Get(srv.URL + "/api/transactions?status=pending")
	require.NoError(t, err)
	raw, err := io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(raw), "TXN-1001")
	require.Contains(t, string(raw), "High value refund")
	require.NotContains(t, string(raw), "TXN-1002")

	// The pre-ingest clip shows up on the transaction detail.
	res, err = client.Get(srv.URL + "/api/transactions/TXN-1001")
	require.NoError(t, err)
	raw, err = io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(raw), `"videoClip"`)
	require.Contains(t, string(raw), "pump4.mp4")

	// Escalation requires the CSRF token.
	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/api/transactions/TXN-1001/status",
		strings.NewReader(`{"status":"escalate"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err = client.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusForbidden, res.StatusCode)

	req, err = http.NewRequest(http.MethodPatch, srv.URL+"/api/transactions/TXN-1001/status",
		strings.NewReader(`{"status":"escalate"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.CSRFHeader, csrfToken)
	res, err = client.Do(req)
	require.NoError(t, err)
	raw, err = io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(raw), `"previousStatus":"pending"`)

	// The transition is on the audit trail.
	res, err = client.Get(srv.URL + "/api/transactions/TXN-1001/audit")
	require.NoError(t, err)
	raw, err = io.ReadAll(res.Body)
	res.Body.Close()
	require.NoError(t, err)
	require.Contains(t, string(raw), "Status changed from pending to escalate by manager")

	// Re-uploading the same file is rejected without new rows.
	res = uploadCSV(t, client, srv.URL, csrfToken, exportCSV)
	res.Body.Close()
	require.Equal(t, http.StatusConflict, res.StatusCode)
}

func TestHealthzIsPublic(t *testing.T) {
	srv := newServer(t)
	res, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

// --- in-memory ports ---

type reviewStore struct {
	txns    map[string]review.Transaction
	notes   []review.Note
	entries []review.AuditEntry
	clips   *videoStore
	nextID  int64
}

func newReviewStore() *reviewStore {
	return &reviewStore{txns: map[string]review.Transaction{}}
}

func (r *reviewStore) WithTx(ctx context.Context, fn func(context.Context, review.TxRepository) error) error {
	return fn(ctx, &reviewStoreTx{store: r})
}

func (r *reviewStore) InsertTransaction(_ context.Context, t review.Transaction) error {
	if _, ok := r.txns[t.ID]; ok {
		return review.ErrDuplicateTransaction
	}
	r.txns[t.ID] = t
	return nil
}

func (r *reviewStore) List(_ context.Context, filter review.Filter) ([]review.Transaction, error) {
	out := []review.Transaction{}
	for _, t := range r.txns {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *reviewStore) Get(_ context.Context, id string) (review.Detail, error) {
	t, ok := r.txns[id]
	if !ok {
		return review.Detail{}, shared.ErrNotFound
	}
	detail := review.Detail{Transaction: t, Notes: []review.Note{}}
	if r.clips != nil {
		for i := range r.clips.clips {
			clip := r.clips.clips[i]
			if clip.TransactionID == id {
				detail.Clip = &clip
			}
		}
	}
	return detail, nil
}

func (r *reviewStore) InsertNote(_ context.Context, note review.Note) (review.Note, error) {
	if _, ok := r.txns[note.TransactionID]; !ok {
		return review.Note{}, shared.ErrNotFound
	}
	r.nextID++
	note.ID = r.nextID
	r.notes = append(r.notes, note)
	return note, nil
}

func (r *reviewStore) Stats(_ context.Context) (review.Stats, error) {
	var s review.Stats
	for _, t := range r.txns {
		switch t.Status {
		case review.StatusPending:
			s.Pending++
		case review.StatusApproved:
			s.Approved++
		}
		if t.IsFlagged {
			s.FlaggedToday++
		}
	}
	return s, nil
}

func (r *reviewStore) AuditTrail(_ context.Context, transactionID string) ([]review.AuditEntry, error) {
	out := []review.AuditEntry{}
	for _, e := range r.entries {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out, nil
}

type reviewStoreTx struct {
	store *reviewStore
}

func (tx *reviewStoreTx) GetStatusForUpdate(_ context.Context, id string) (review.Status, error) {
	t, ok := tx.store.txns[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	return t.Status, nil
}

func (tx *reviewStoreTx) SetStatus(_ context.Context, id string, status review.Status) error {
	t := tx.store.txns[id]
	t.Status = status
	tx.store.txns[id] = t
	return nil
}

func (tx *reviewStoreTx) InsertAuditEntry(_ context.Context, entry review.AuditEntry) error {
	tx.store.nextID++
	entry.ID = tx.store.nextID
	entry.CreatedAt = time.Now()
	tx.store.entries = append(tx.store.entries, entry)
	return nil
}

type guardStore struct {
	hashes map[string]string
	nextID int
}

func newGuardStore() *guardStore {
	return &guardStore{hashes: map[string]string{}}
}

func (g *guardStore) CheckAndRecord(_ context.Context, hash, _, _ string) (string, error) {
	if _, ok := g.hashes[hash]; ok {
		return "", ingest.ErrDuplicateFile
	}
	g.nextID++
	id := fmt.Sprintf("batch-%d", g.nextID)
	g.hashes[hash] = id
	return id, nil
}

func (g *guardStore) Release(_ context.Context, batchID string) error {
	for hash, id := range g.hashes {
		if id == batchID {
			delete(g.hashes, hash)
		}
	}
	return nil
}

type videoStore struct {
	clips  []review.Clip
	nextID int64
}

func (v *videoStore) InsertClip(_ context.Context, clip review.Clip) (review.Clip, error) {
	v.nextID++
	clip.ID = v.nextID
	clip.CreatedAt = time.Now()
	v.clips = append(v.clips, clip)
	return clip, nil
}

func (v *videoStore) GetClip(_ context.Context, id int64) (review.Clip, error) {
	for _, clip := range v.clips {
		if clip.ID == id {
			return clip, nil
		}
	}
	return review.Clip{}, shared.ErrNotFound
}

type cameraStore struct {
	cameras map[int64]camera.Camera
	nextID  int64
}

func (c *cameraStore) Insert(_ context.Context, cam camera.Camera) (camera.Camera, error) {
	c.nextID++
	cam.ID = c.nextID
	c.cameras[cam.ID] = cam
	return cam, nil
}

func (c *cameraStore) Update(_ context.Context, cam camera.Camera) (camera.Camera, error) {
	if _, ok := c.cameras[cam.ID]; !ok {
		return camera.Camera{}, shared.ErrNotFound
	}
	c.cameras[cam.ID] = cam
	return cam, nil
}

func (c *cameraStore) Delete(_ context.Context, id int64) error {
	if _, ok := c.cameras[id]; !ok {
		return shared.ErrNotFound
	}
	delete(c.cameras, id)
	return nil
}

func (c *cameraStore) Get(_ context.Context, id int64) (camera.Camera, error) {
	cam, ok := c.cameras[id]
	if !ok {
		return camera.Camera{}, shared.ErrNotFound
	}
	return cam, nil
}

func (c *cameraStore) List(_ context.Context) ([]camera.Camera, error) {
	out := []camera.Camera{}
	for _, cam := range c.cameras {
		out = append(out, cam)
	}
	return out, nil
}
