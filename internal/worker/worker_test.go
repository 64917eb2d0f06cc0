package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"medicalmuneras/internal/model"
	"medicalmuneras/internal/repository/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubEmails struct {
	jobs []EmailJobPayload
	err  error
}

func (s *stubEmails) EnqueueEmail(_ context.Context, p EmailJobPayload) error {
	s.jobs = append(s.jobs, p)
	return s.err
}

type stubSender struct {
	calls int
	to    string
	err   error
}

func (s *stubSender) SendComprobante(to, _, _, _ string) error {
	s.calls++
	s.to = to
	return s.err
}

type stubHandler struct {
	calls int
	err   error
}

func (h *stubHandler) Process(context.Context, json.RawMessage) error {
	h.calls++
	return h.err
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func seedEntregada(t *testing.T, repo *memory.RemisionRepo, id string, email *string) {
	t.Helper()
	salida := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
	rem := &model.Remision{
		ID:            id,
		DepositMethod: "Efectivo",
		ClienteEmail:  email,
		FechaSalida:   &salida,
		CreatedAt:     salida.Add(-time.Hour),
		Registros:     []model.RegistroTecnico{{Equipo: "Glucometro", Valor: decimal.NewFromInt(50000)}},
	}
	rem.RecalcularTotal()
	require.NoError(t, repo.Create(context.Background(), nil, rem))
}

// ── Tests: ComprobanteWorker ─────────────────────────────────────────────────

func TestComprobanteWorker_GeneratesPDFAndQueuesEmail(t *testing.T) {
	repo := memory.NewRemisionRepo()
	email := "cliente@example.com"
	seedEntregada(t, repo, "R100", &email)
	emails := &stubEmails{}
	dir := t.TempDir()
	w := NewComprobanteWorker(repo, emails, dir, "Medical Muñeras", time.UTC)

	err := w.Process(context.Background(), mustJSON(t, ComprobanteJobPayload{RemisionID: "R100"}))
	require.NoError(t, err)

	require.Len(t, emails.jobs, 1)
	job := emails.jobs[0]
	assert.Equal(t, email, job.ToEmail)
	assert.Contains(t, job.Subject, "R100")
	assert.Contains(t, job.Body, "50000.00")
	assert.FileExists(t, job.PDFPath)
}

func TestComprobanteWorker_NoEmail(t *testing.T) {
	repo := memory.NewRemisionRepo()
	seedEntregada(t, repo, "R1", nil)
	emails := &stubEmails{}
	w := NewComprobanteWorker(repo, emails, t.TempDir(), "Medical Muñeras", time.UTC)

	require.NoError(t, w.Process(context.Background(), mustJSON(t, ComprobanteJobPayload{RemisionID: "R1"})))
	assert.Empty(t, emails.jobs)
}

func TestComprobanteWorker_PermanentFailuresAreDropped(t *testing.T) {
	repo := memory.NewRemisionRepo()
	require.NoError(t, repo.Create(context.Background(), nil, &model.Remision{ID: "PEND"}))
	emails := &stubEmails{}
	w := NewComprobanteWorker(repo, emails, t.TempDir(), "Medical Muñeras", time.UTC)
	ctx := context.Background()

	assert.NoError(t, w.Process(ctx, json.RawMessage(`{not json`)))
	assert.NoError(t, w.Process(ctx, mustJSON(t, ComprobanteJobPayload{})))
	assert.NoError(t, w.Process(ctx, mustJSON(t, ComprobanteJobPayload{RemisionID: "NOPE"})))
	assert.NoError(t, w.Process(ctx, mustJSON(t, ComprobanteJobPayload{RemisionID: "PEND"})))
	assert.Empty(t, emails.jobs)
}

func TestComprobanteWorker_EnqueueFailureRetries(t *testing.T) {
	repo := memory.NewRemisionRepo()
	email := "c@example.com"
	seedEntregada(t, repo, "R1", &email)
	w := NewComprobanteWorker(repo, &stubEmails{err: errors.New("redis down")}, t.TempDir(), "X", time.UTC)

	assert.Error(t, w.Process(context.Background(), mustJSON(t, ComprobanteJobPayload{RemisionID: "R1"})))
}

// ── Tests: EmailWorker ───────────────────────────────────────────────────────

func TestEmailWorker(t *testing.T) {
	ctx := context.Background()
	sender := &stubSender{}
	w := NewEmailWorker(sender)

	require.NoError(t, w.Process(ctx, mustJSON(t, EmailJobPayload{ToEmail: "a@b.co", Subject: "s"})))
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "a@b.co", sender.to)

	assert.NoError(t, w.Process(ctx, mustJSON(t, EmailJobPayload{})))
	assert.NoError(t, w.Process(ctx, json.RawMessage(`[`)))
	assert.Equal(t, 1, sender.calls)

	sender.err = errors.New("smtp down")
	assert.Error(t, w.Process(ctx, mustJSON(t, EmailJobPayload{ToEmail: "a@b.co"})))
}

// ── Tests: Pool ──────────────────────────────────────────────────────────────

func encodedJob(t *testing.T, job Job) string {
	t.Helper()
	return string(mustJSON(t, job))
}

func TestPoolHandle_Success(t *testing.T) {
	h := &stubHandler{}
	p := NewPool(nil, &WorkerHandlers{Comprobante: h})

	o := p.handle(context.Background(), QueueComprobante, encodedJob(t, Job{Type: "comprobante", Payload: json.RawMessage(`{}`)}))
	assert.False(t, o.retry)
	assert.False(t, o.dead)
	assert.Equal(t, 1, o.job.Attempts)
	assert.Equal(t, 1, h.calls)
}

func TestPoolHandle_RetryThenDead(t *testing.T) {
	h := &stubHandler{err: errors.New("smtp down")}
	p := NewPool(nil, &WorkerHandlers{Email: h})
	ctx := context.Background()

	job := Job{Type: "email", Payload: json.RawMessage(`{}`)}
	for attempt := 1; attempt < MaxAttempts; attempt++ {
		o := p.handle(ctx, QueueEmail, encodedJob(t, job))
		require.True(t, o.retry, "attempt %d", attempt)
		require.False(t, o.dead)
		assert.Equal(t, attempt, o.job.Attempts)
		job = o.job
	}
	o := p.handle(ctx, QueueEmail, encodedJob(t, job))
	assert.True(t, o.dead)
	assert.False(t, o.retry)
	assert.Equal(t, MaxAttempts, o.job.Attempts)
	assert.Equal(t, "smtp down", o.reason)
}

func TestPoolHandle_InvalidEnvelopeAndUnknownQueue(t *testing.T) {
	p := NewPool(nil, &WorkerHandlers{})

	o := p.handle(context.Background(), QueueEmail, "garbage")
	assert.True(t, o.dead)
	assert.Equal(t, "unknown", o.job.Type)

	o = p.handle(context.Background(), "jobs:otro", encodedJob(t, Job{Type: "x"}))
	assert.True(t, o.dead)
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, time.Second, retryBackoff(1))
	assert.Equal(t, 2*time.Second, retryBackoff(2))
	assert.Equal(t, 4*time.Second, retryBackoff(3))
}

// ── Tests: ReportCron ────────────────────────────────────────────────────────

func TestReportCron_InvalidSchedule(t *testing.T) {
	_, err := NewReportCron("every now and then", time.UTC, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestReportCron_WarmsOnStart(t *testing.T) {
	called := make(chan struct{}, 1)
	rc, err := NewReportCron("0 3 * * *", time.UTC, func(context.Context) error {
		select {
		case called <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	rc.Start()
	defer rc.Stop()

	select {
	case <-called:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not run on start")
	}
}
