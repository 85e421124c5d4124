package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/linkerlin/mentiondigest/internal/clock"
	"github.com/linkerlin/mentiondigest/internal/config"
	"github.com/linkerlin/mentiondigest/internal/search"
	"github.com/linkerlin/mentiondigest/internal/secrets"
	"github.com/linkerlin/mentiondigest/internal/sheet"
	"github.com/linkerlin/mentiondigest/internal/webhook"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// webhookSink records every text posted to it.
type webhookSink struct {
	*httptest.Server
	mu    sync.Mutex
	texts []string
}

func newWebhookSink(t *testing.T, status int) *webhookSink {
	t.Helper()
	s := &webhookSink{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&p)
		s.mu.Lock()
		s.texts = append(s.texts, p.Text)
		s.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *webhookSink) posted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// searchAPI serves a single page with the given body and records the query.
func searchAPI(t *testing.T, body string, query *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if query != nil {
			*query = r.URL.Query().Get("query")
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// 2026-10-19 09:00 JST
var fixedNow = clock.Fixed(time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.App.DataDir = t.TempDir()
	cfg.Sheet.Dir = filepath.Join(cfg.App.DataDir, "sheets")
	return cfg
}

func fullSecrets(webhookURL string) secrets.Map {
	return secrets.Map{
		"MENTION_WEBHOOK_URL": webhookURL,
		"SLACK_USER_TOKEN":    "xoxp-test",
		"SLACK_USER_ID":       "U123",
	}
}

func newMentionJob(cfg *config.Config, store secrets.Store, searchURL string) *MentionReport {
	return NewMentionReport(cfg, Deps{
		Secrets:  store,
		Searcher: search.NewClient(searchURL, search.WithRequestsPerMinute(0)),
		Poster:   webhook.NewPoster(nil),
		Clock:    fixedNow,
	})
}

func TestMentionReport_Sent(t *testing.T) {
	captureLogs(t)
	sink := newWebhookSink(t, http.StatusOK)
	var query string
	api := searchAPI(t, `{"ok":true,"messages":{"matches":[
		{"channel":{"id":"C2","name":"general"},"text":"a"},
		{"channel":{"id":"C1","name":"dev"},"text":"b"},
		{"channel":{"id":"C2","name":"general"},"text":"c"}
	],"pagination":{"page_count":1,"total_count":3}}}`, &query)

	cfg := testConfig(t)
	cfg.Search.Names = []string{"Taro"}
	out := newMentionJob(cfg, fullSecrets(sink.URL), api.URL).Run(context.Background())

	if out.Status != StatusSent {
		t.Fatalf("Status = %q (%s), want %q", out.Status, out.Detail, StatusSent)
	}
	if want := `(<@U123> OR "Taro") after:2026-10-17 before:2026-10-19`; query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	texts := sink.posted()
	if len(texts) != 1 {
		t.Fatalf("posted %d messages, want 1", len(texts))
	}
	text := texts[0]
	for _, want := range []string{
		"Mentions on 2026-10-18",
		"mentioned 3 times across 2 channels",
		"• #dev <https://slack.com/app_redirect?channel=C1|open>\n• #general",
		"_Generated at 2026-10-19 09:00 JST_",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

func TestMentionReport_ZeroMatchesPostsNotFound(t *testing.T) {
	captureLogs(t)
	sink := newWebhookSink(t, http.StatusOK)
	api := searchAPI(t, `{"ok":true,"messages":{"matches":[],"pagination":{"page_count":0,"total_count":0}}}`, nil)

	out := newMentionJob(testConfig(t), fullSecrets(sink.URL), api.URL).Run(context.Background())

	if out.Status != StatusNotFoundSent {
		t.Fatalf("Status = %q, want %q", out.Status, StatusNotFoundSent)
	}
	texts := sink.posted()
	if len(texts) != 1 {
		t.Fatalf("posted %d messages, want 1", len(texts))
	}
	if !strings.Contains(texts[0], "No mentions on 2026-10-18") {
		t.Errorf("expected not-found variant:\n%s", texts[0])
	}
	if strings.Contains(texts[0], "•") {
		t.Errorf("not-found variant must not list channels:\n%s", texts[0])
	}
	if !strings.Contains(texts[0], "_Generated at") {
		t.Errorf("not-found variant should be stamped:\n%s", texts[0])
	}
}

func TestMentionReport_MissingSecrets(t *testing.T) {
	logs := captureLogs(t)
	sink := newWebhookSink(t, http.StatusOK)
	store := secrets.Map{"MENTION_WEBHOOK_URL": sink.URL}

	out := newMentionJob(testConfig(t), store, "http://127.0.0.1:1").Run(context.Background())

	if out.Status != StatusConfigError {
		t.Fatalf("Status = %q, want %q", out.Status, StatusConfigError)
	}
	if !strings.Contains(out.Detail, "SLACK_USER_TOKEN") || !strings.Contains(out.Detail, "SLACK_USER_ID") {
		t.Errorf("Detail = %q, want both missing keys", out.Detail)
	}
	if len(sink.posted()) != 0 {
		t.Error("nothing should be posted without configuration")
	}
	if !strings.Contains(logs.String(), "not configured") {
		t.Errorf("expected config log:\n%s", logs.String())
	}
}

func TestMentionReport_InvalidAuthPostsNothing(t *testing.T) {
	captureLogs(t)
	sink := newWebhookSink(t, http.StatusOK)
	api := searchAPI(t, `{"ok":false,"error":"invalid_auth"}`, nil)

	out := newMentionJob(testConfig(t), fullSecrets(sink.URL), api.URL).Run(context.Background())

	if out.Status != StatusSearchFailed {
		t.Fatalf("Status = %q, want %q", out.Status, StatusSearchFailed)
	}
	if len(sink.posted()) != 0 {
		t.Error("a failed search must not post a not-found report")
	}
}

func TestMentionReport_DeliveryFailed(t *testing.T) {
	captureLogs(t)
	sink := newWebhookSink(t, http.StatusForbidden)
	api := searchAPI(t, `{"ok":true,"messages":{"matches":[{"channel":{"id":"C1","name":"dev"}}],"pagination":{"page_count":1}}}`, nil)

	out := newMentionJob(testConfig(t), fullSecrets(sink.URL), api.URL).Run(context.Background())

	if out.Status != StatusDeliveryFailed {
		t.Fatalf("Status = %q, want %q", out.Status, StatusDeliveryFailed)
	}
	if !strings.Contains(out.Detail, "403") {
		t.Errorf("Detail = %q, want status", out.Detail)
	}
}

func writeSheet(t *testing.T, cfg *config.Config, content string) {
	t.Helper()
	dir := filepath.Join(cfg.Sheet.Dir, cfg.Sheet.Spreadsheet)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, cfg.Sheet.Sheet+".csv"), []byte(content), 0o644); err != nil {
		t.Fatalf("write sheet: %v", err)
	}
}

func newDigestJob(cfg *config.Config, store secrets.Store) *SheetDigest {
	return NewSheetDigest(cfg, sheet.NewDir(cfg.Sheet.Dir), Deps{
		Secrets: store,
		Poster:  webhook.NewPoster(nil),
		Clock:   fixedNow,
	})
}

func TestSheetDigest(t *testing.T) {
	captureLogs(t)
	sink := newWebhookSink(t, http.StatusOK)
	cfg := testConfig(t)
	writeSheet(t, cfg, "Task,Owner\ndeploy,ana\nreview,\n")

	out := newDigestJob(cfg, secrets.Map{"MENTION_WEBHOOK_URL": sink.URL}).Run(context.Background())

	if out.Status != StatusSent {
		t.Fatalf("Status = %q (%s), want %q", out.Status, out.Detail, StatusSent)
	}
	texts := sink.posted()
	if len(texts) != 1 {
		t.Fatalf("posted %d messages, want 1", len(texts))
	}
	for _, want := range []string{"Sheet1 (2 rows)", "• Task: deploy / Owner: ana", "• Task: review\n", "_Generated at"} {
		if !strings.Contains(texts[0], want) {
			t.Errorf("digest missing %q:\n%s", want, texts[0])
		}
	}
}

func TestSheetDigest_EdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		content string // empty means the sheet file is not created
		store   secrets.Map
		want    Status
	}{
		{"header only", "Task,Owner\n", nil, StatusNoData},
		{"empty sheet", "\n", nil, StatusNoData},
		{"missing sheet", "", nil, StatusConfigError},
		{"missing webhook", "Task\nx\n", secrets.Map{}, StatusConfigError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureLogs(t)
			sink := newWebhookSink(t, http.StatusOK)
			cfg := testConfig(t)
			if tt.content != "" {
				writeSheet(t, cfg, tt.content)
			}
			store := tt.store
			if store == nil {
				store = secrets.Map{"MENTION_WEBHOOK_URL": sink.URL}
			}

			out := newDigestJob(cfg, store).Run(context.Background())

			if out.Status != tt.want {
				t.Errorf("Status = %q (%s), want %q", out.Status, out.Detail, tt.want)
			}
			if len(sink.posted()) != 0 {
				t.Error("nothing should be posted")
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	captureLogs(t)
	cfg := testConfig(t)
	store := secrets.Map{}
	reg := Registry(newMentionJob(cfg, store, "http://127.0.0.1:1"), newDigestJob(cfg, store))

	names := reg.Names()
	if len(names) != 2 || names[0] != MentionReportHandler || names[1] != SheetDigestHandler {
		t.Fatalf("Names = %v", names)
	}
	h, err := reg.Lookup(MentionReportHandler)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if got := h(context.Background()); !strings.HasPrefix(got, "config_error: ") {
		t.Errorf("result = %q, want config_error", got)
	}
}

func TestMentionReport_DeliveryErrorOmitsWebhookPath(t *testing.T) {
	logs := captureLogs(t)
	api := searchAPI(t, `{"ok":true,"messages":{"matches":[{"channel":{"id":"C1","name":"dev"}}],"pagination":{"page_count":1}}}`, nil)
	store := fullSecrets("http://127.0.0.1:1/services/T000/B000/SECRETTOKEN")

	out := newMentionJob(testConfig(t), store, api.URL).Run(context.Background())

	if out.Status != StatusDeliveryFailed {
		t.Fatalf("Status = %q, want %q", out.Status, StatusDeliveryFailed)
	}
	if strings.Contains(out.String(), "SECRETTOKEN") {
		t.Errorf("outcome leaks webhook path: %s", out)
	}
	if strings.Contains(logs.String(), "SECRETTOKEN") {
		t.Errorf("logs leak webhook path:\n%s", logs.String())
	}
}
