package tests

// User story tests for the contact mailer. Each story drives the public HTTP
// surface end to end: a visitor submits the form, the recipient opens the
// mail and clicks a link, and the owner reads the analytics.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/contact-mailer/internal/api"
	"github.com/ignite/contact-mailer/internal/domain"
	"github.com/ignite/contact-mailer/internal/engagement"
	"github.com/ignite/contact-mailer/internal/mailer"
	"github.com/ignite/contact-mailer/internal/pkg/distlock"
	"github.com/ignite/contact-mailer/internal/pkg/metrics"
	"github.com/ignite/contact-mailer/internal/repository/memory"
	"github.com/ignite/contact-mailer/internal/repository/postgres"
	"github.com/ignite/contact-mailer/internal/repository/redisstore"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

const publicBaseURL = "https://mail.example.org"

var (
	hrefPattern = regexp.MustCompile(`href="([^"]+)"`)
	srcPattern  = regexp.MustCompile(`src="([^"]+)"`)
)

// outbox records every envelope handed to the dispatcher.
type outbox struct {
	mu   sync.Mutex
	sent []domain.Envelope
}

func (o *outbox) Name() string { return "outbox" }

func (o *outbox) Send(_ context.Context, env domain.Envelope) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, env)
	return fmt.Sprintf("outbox-%d", len(o.sent)), nil
}

func (o *outbox) last(t *testing.T) domain.Envelope {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent, "no mail was sent")
	return o.sent[len(o.sent)-1]
}

// TestContext holds shared test infrastructure
type TestContext struct {
	Router http.Handler
	Outbox *outbox
	MiniR  *miniredis.Miniredis
	Redis  *redis.Client
}

type storyOptions struct {
	repo      engagement.Repository
	locks     engagement.LockFactory
	ids       func() string
	clockTime time.Time
}

func setupTestContext(t *testing.T, opts storyOptions) *TestContext {
	t.Helper()

	svcOpts := []engagement.Option{}
	if !opts.clockTime.IsZero() {
		svcOpts = append(svcOpts, engagement.WithClock(func() time.Time { return opts.clockTime }))
	}
	if opts.ids != nil {
		svcOpts = append(svcOpts, engagement.WithIDGenerator(opts.ids))
	}
	if opts.locks != nil {
		svcOpts = append(svcOpts, engagement.WithLocker(opts.locks, 5*time.Second))
	}
	svc := engagement.NewService(opts.repo, svcOpts...)

	renderer, err := mailer.NewRenderer("", "contact@example.org", publicBaseURL)
	require.NoError(t, err)

	box := &outbox{}
	m := metrics.New(prometheus.NewRegistry())
	h := api.NewHandlers(api.Deps{
		Service:     svc,
		Renderer:    renderer,
		Mail:        box,
		Metrics:     m,
		CallTimeout: 5 * time.Second,
	})
	return &TestContext{
		Router: api.SetupRoutes(h, api.NewHealthChecker(), m, nil),
		Outbox: box,
	}
}

// setupRedisContext backs the store (and optionally the lock) with miniredis.
func setupRedisContext(t *testing.T, serialized bool) *TestContext {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redisstore.Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	opts := storyOptions{repo: redisstore.New(client, "endpoint:")}
	if serialized {
		factory := distlock.NewFactory(client, nil, 5*time.Second)
		opts.locks = func(id string) engagement.Locker { return factory(id) }
	}
	tc := setupTestContext(t, opts)
	tc.MiniR = mr
	tc.Redis = client
	return tc
}

func (tc *TestContext) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	tc.Router.ServeHTTP(rec, req)
	return rec
}

type sendResult struct {
	Success    bool   `json:"success"`
	MessageID  string `json:"messageId"`
	EndpointID string `json:"endpointId"`
}

func (tc *TestContext) submit(t *testing.T, name, email, subject, message string) sendResult {
	t.Helper()
	body, err := json.Marshal(map[string]string{"name": name, "email": email, "subject": subject, "message": message})
	require.NoError(t, err)

	rec := tc.do(t, http.MethodPost, "/send", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out sendResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.True(t, out.Success)
	return out
}

type analytics struct {
	Email       string              `json:"email"`
	Metrics     map[string]float64  `json:"metrics"`
	Attributes  map[string][]string `json:"attributes"`
	LastUpdated string              `json:"lastUpdated"`
}

func (tc *TestContext) analytics(t *testing.T, email string) analytics {
	t.Helper()
	rec := tc.do(t, http.MethodGet, "/analytics?email="+url.QueryEscape(email), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out analytics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

// localPath strips the public base URL so the link can be replayed against
// the in-process router.
func localPath(t *testing.T, link string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(link, publicBaseURL), "link %q is not tracked", link)
	return strings.TrimPrefix(link, publicBaseURL)
}

func trackedLinks(t *testing.T, html string) (pixel string, clicks []string) {
	t.Helper()
	srcs := srcPattern.FindAllStringSubmatch(html, -1)
	require.Len(t, srcs, 1, "expected exactly one pixel")
	for _, m := range hrefPattern.FindAllStringSubmatch(html, -1) {
		clicks = append(clicks, localPath(t, m[1]))
	}
	return localPath(t, srcs[0][1]), clicks
}

// =============================================================================
// US-001: Visitor submits the contact form
// =============================================================================

func TestUS001_ContactFormDelivery(t *testing.T) {
	tc := setupTestContext(t, storyOptions{
		repo:      memory.New(),
		ids:       func() string { return "msg-001" },
		clockTime: time.Date(2026, 3, 14, 15, 9, 26, 535e6, time.UTC),
	})

	t.Run("Criterion1_SubmissionIsMailedWithTrackedLinks", func(t *testing.T) {
		sent := tc.submit(t, "Grace", "grace@example.com", "Question", "Docs at https://example.com/docs please")

		assert.Equal(t, "msg-001", sent.MessageID)
		assert.Equal(t, engagement.EndpointID("grace@example.com"), sent.EndpointID)

		env := tc.Outbox.last(t)
		assert.Equal(t, "grace@example.com", env.To)
		assert.Equal(t, "contact@example.org", env.From)
		assert.Equal(t, "Question", env.Subject)
		assert.Equal(t, "msg-001", env.Headers[domain.HeaderMessageID])

		pixel, clicks := trackedLinks(t, env.HTML)
		assert.Equal(t, "/track/open/msg-001/"+sent.EndpointID, pixel)
		require.Len(t, clicks, 1)
		assert.Contains(t, clicks[0], url.QueryEscape("https://example.com/docs"))
	})

	t.Run("Criterion2_EndpointRecordsTheSend", func(t *testing.T) {
		got := tc.analytics(t, "grace@example.com")
		assert.Equal(t, "grace@example.com", got.Email)
		assert.Equal(t, 1.0, got.Metrics[domain.MetricEmailsSent])
		assert.Equal(t, 0.0, got.Metrics[domain.MetricOpens])
		assert.Equal(t, []string{"Grace"}, got.Attributes[domain.AttrName])
		assert.Equal(t, []string{"msg-001"}, got.Attributes[domain.AttrMessageIDs])
		assert.Equal(t, []string{"2026-03-14T15:09:26.535Z"}, got.Attributes[domain.AttrLastEmailDate])
	})

	t.Run("Criterion3_IncompleteFormIsRejected", func(t *testing.T) {
		before := len(tc.Outbox.sent)
		rec := tc.do(t, http.MethodPost, "/send", `{"name":"Grace","email":"grace@example.com","subject":"Hi"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Len(t, tc.Outbox.sent, before, "nothing should be mailed")
	})
}

// =============================================================================
// US-002: Recipient opens the mail and clicks through
// =============================================================================

func TestUS002_OpenAndClickThrough(t *testing.T) {
	tc := setupRedisContext(t, false)

	sent := tc.submit(t, "Linus", "linus@example.com", "Follow-up", "See https://example.com/a and https://example.com/b today")
	pixel, clicks := trackedLinks(t, tc.Outbox.last(t).HTML)
	require.Len(t, clicks, 2)

	t.Run("Criterion1_PixelIsServedAndCounted", func(t *testing.T) {
		rec := tc.do(t, http.MethodGet, pixel, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))

		got := tc.analytics(t, "linus@example.com")
		assert.Equal(t, 1.0, got.Metrics[domain.MetricOpens])
		assert.Equal(t, []string{sent.MessageID}, got.Attributes[domain.AttrOpenedMessageIDs])
	})

	t.Run("Criterion2_ClicksRedirectAndAccumulate", func(t *testing.T) {
		steps := []struct {
			link   string
			target string
		}{
			{clicks[0], "https://example.com/a"},
			{clicks[1], "https://example.com/b"},
			{clicks[0], "https://example.com/a"},
		}
		for _, step := range steps {
			rec := tc.do(t, http.MethodGet, step.link, "")
			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, step.target, rec.Header().Get("Location"))
		}

		got := tc.analytics(t, "linus@example.com")
		assert.Equal(t, 3.0, got.Metrics[domain.MetricClicks])
		assert.Equal(t, []string{"https://example.com/a", "https://example.com/b", "https://example.com/a"},
			got.Attributes[domain.AttrClickedURLs])
		assert.Len(t, got.Attributes[domain.AttrClickedMessageIDs], 3)
	})

	t.Run("Criterion3_SecondSendReplacesMessageIDs", func(t *testing.T) {
		second := tc.submit(t, "Linus", "linus@example.com", "Again", "no links here")
		got := tc.analytics(t, "linus@example.com")
		assert.Equal(t, 2.0, got.Metrics[domain.MetricEmailsSent])
		assert.Equal(t, []string{second.MessageID}, got.Attributes[domain.AttrMessageIDs])
		assert.Equal(t, 1.0, got.Metrics[domain.MetricOpens], "earlier engagement survives a send")
	})

	t.Run("Criterion4_RecordLivesInRedis", func(t *testing.T) {
		assert.True(t, tc.MiniR.Exists("endpoint:"+sent.EndpointID))
	})
}

// =============================================================================
// US-003: Owner looks up an address that never received mail
// =============================================================================

func TestUS003_UnknownAddressAnalytics(t *testing.T) {
	tc := setupTestContext(t, storyOptions{repo: memory.New()})

	got := tc.analytics(t, "nobody@example.com")
	assert.Empty(t, got.Email)
	assert.Empty(t, got.LastUpdated)
	assert.Empty(t, got.Metrics)
	assert.Empty(t, got.Attributes)

	rec := tc.do(t, http.MethodGet, "/analytics", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// US-004: Burst of opens with serialized updates
// =============================================================================

func TestUS004_SerializedOpensAreNotLost(t *testing.T) {
	tc := setupRedisContext(t, true)

	tc.submit(t, "Barbara", "barbara@example.com", "Burst", "hello")
	pixel, _ := trackedLinks(t, tc.Outbox.last(t).HTML)

	const opens = 25
	var wg sync.WaitGroup
	for i := 0; i < opens; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, pixel, nil)
			tc.Router.ServeHTTP(httptest.NewRecorder(), req)
		}()
	}
	wg.Wait()

	got := tc.analytics(t, "barbara@example.com")
	assert.Equal(t, float64(opens), got.Metrics[domain.MetricOpens])
	assert.Len(t, got.Attributes[domain.AttrOpenedMessageIDs], opens)

	keys := tc.MiniR.Keys()
	for _, k := range keys {
		assert.False(t, strings.HasPrefix(k, "lock:"), "lock %s was not released", k)
	}
}

// =============================================================================
// US-005: Endpoint store outage
// =============================================================================

func TestUS005_StoreOutage(t *testing.T) {
	tc := setupRedisContext(t, false)
	tc.submit(t, "Ken", "ken@example.com", "Outage", "https://example.com/x ")
	pixel, clicks := trackedLinks(t, tc.Outbox.last(t).HTML)

	tc.MiniR.SetError("ERR backend offline")

	t.Run("Criterion1_PixelStillServed", func(t *testing.T) {
		rec := tc.do(t, http.MethodGet, pixel, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
	})

	t.Run("Criterion2_ClickReportsFailure", func(t *testing.T) {
		rec := tc.do(t, http.MethodGet, clicks[0], "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "offline")
	})

	t.Run("Criterion3_SendFailsWithoutMailing", func(t *testing.T) {
		before := len(tc.Outbox.sent)
		rec := tc.do(t, http.MethodPost, "/send",
			`{"name":"Ken","email":"ken@example.com","subject":"Again","message":"hello"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Len(t, tc.Outbox.sent, before)
	})
}

// =============================================================================
// US-006: Postgres-backed endpoint store
// =============================================================================

func TestUS006_PostgresBackedSendAndOpen(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	tc := setupTestContext(t, storyOptions{
		repo:      postgres.NewEndpointRepo(db),
		ids:       func() string { return "msg-pg" },
		clockTime: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	})
	endpointID := engagement.EndpointID("edsger@example.com")

	// send: miss, then insert
	mock.ExpectQuery("SELECT address, channel_type, attributes, metrics, updated_at FROM endpoints").
		WithArgs(endpointID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO endpoints").
		WithArgs(endpointID, "edsger@example.com", "EMAIL", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tc.submit(t, "Edsger", "edsger@example.com", "Hello", "hi")
	pixel, _ := trackedLinks(t, tc.Outbox.last(t).HTML)

	// open: existing row, then upsert
	mock.ExpectQuery("SELECT address, channel_type, attributes, metrics, updated_at FROM endpoints").
		WithArgs(endpointID).
		WillReturnRows(sqlmock.NewRows([]string{"address", "channel_type", "attributes", "metrics", "updated_at"}).
			AddRow("edsger@example.com", "EMAIL",
				[]byte(`{"name":["Edsger"],"messageIds":["msg-pg"]}`),
				[]byte(`{"emailsSent":1,"opens":0,"clicks":0}`),
				time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)))
	mock.ExpectExec("INSERT INTO endpoints").
		WithArgs(endpointID, "edsger@example.com", "EMAIL",
			[]byte(`{"lastOpenDate":["2026-03-14T15:09:26.000Z"],"messageIds":["msg-pg"],"name":["Edsger"],"openedMessageIds":["msg-pg"]}`),
			[]byte(`{"clicks":0,"emailsSent":1,"opens":1}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := tc.do(t, http.MethodGet, pixel, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
