package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/snapfest/backend/internal/auth"
	"github.com/snapfest/backend/internal/catalog"
	"github.com/snapfest/backend/internal/contest"
	"github.com/snapfest/backend/internal/control"
)

type stubEngine struct {
	outcome contest.Outcome
	events  []contest.InboundEvent
}

func (s *stubEngine) HandleEvent(_ context.Context, event contest.InboundEvent) contest.Outcome {
	s.events = append(s.events, event)
	return s.outcome
}

type routerFixture struct {
	handler http.Handler
	token   string
	catalog *catalog.Catalog
	flags   *control.Flags
	engine  *stubEngine
}

func newRouterFixture(testContext *testing.T) *routerFixture {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	flags := control.NewFlags(nil)
	store, err := catalog.New(catalog.Config{
		Capacity:      10,
		WinnersLocked: flags.WinnersLocked,
	})
	if err != nil {
		testContext.Fatalf("failed to create catalog: %v", err)
	}
	tokens, err := auth.NewAdminTokens(auth.AdminTokensConfig{SigningSecret: []byte("test-secret")})
	if err != nil {
		testContext.Fatalf("failed to create admin tokens: %v", err)
	}
	signed, _, err := tokens.Issue("curator")
	if err != nil {
		testContext.Fatalf("failed to issue admin token: %v", err)
	}

	engine := &stubEngine{outcome: contest.Reply("ok")}
	handler, err := NewHTTPHandler(Dependencies{
		Engine:      engine,
		Catalog:     store,
		Flags:       flags,
		Sessions:    contest.NewSessions(),
		AdminTokens: tokens,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		testContext.Fatalf("failed to create handler: %v", err)
	}

	return &routerFixture{
		handler: handler,
		token:   signed,
		catalog: store,
		flags:   flags,
		engine:  engine,
	}
}

func (f *routerFixture) adminRequest(method, path, body string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+f.token)
	f.handler.ServeHTTP(recorder, request)
	return recorder
}

func TestWebhookDispatchesBatchAndCollectsResults(testContext *testing.T) {
	fixture := newRouterFixture(testContext)

	body := `{"events":[{"type":"text","user_id":"u1","text":"#entry groom"},{"type":"image","user_id":"u2","media_handle":"m1"}]}`
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/webhook/events", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	fixture.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok status, got %d", recorder.Code)
	}
	var response struct {
		Results []contest.Outcome `json:"results"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		testContext.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Results) != 2 {
		testContext.Fatalf("expected 2 results, got %d", len(response.Results))
	}
	for _, outcome := range response.Results {
		if outcome.Kind != contest.OutcomeReply {
			testContext.Fatalf("expected reply outcomes, got %+v", outcome)
		}
	}
	if len(fixture.engine.events) != 2 {
		testContext.Fatalf("expected 2 dispatched events, got %d", len(fixture.engine.events))
	}
}

func TestWebhookRejectsEmptyBatch(testContext *testing.T) {
	fixture := newRouterFixture(testContext)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/webhook/events", strings.NewReader(`{"events":[]}`))
	request.Header.Set("Content-Type", "application/json")
	fixture.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusBadRequest {
		testContext.Fatalf("expected bad request, got %d", recorder.Code)
	}
}

func TestAdminEndpointsRequireToken(testContext *testing.T) {
	fixture := newRouterFixture(testContext)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/admin/submissions", http.NoBody)
	fixture.handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusUnauthorized {
		testContext.Fatalf("expected unauthorized, got %d", recorder.Code)
	}
}

func TestAdminListSubmissions(testContext *testing.T) {
	fixture := newRouterFixture(testContext)
	if _, err := fixture.catalog.Put("u1", catalog.Record{UserID: "u1", Category: catalog.CategoryGroom}); err != nil {
		testContext.Fatalf("seed put failed: %v", err)
	}

	recorder := fixture.adminRequest(http.MethodGet, "/admin/submissions", "")
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var response struct {
		Count       int              `json:"count"`
		Submissions []catalog.Record `json:"submissions"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		testContext.Fatalf("failed to decode response: %v", err)
	}
	if response.Count != 1 || len(response.Submissions) != 1 {
		testContext.Fatalf("expected one submission, got %+v", response)
	}
}

func TestAdminUpdateUnknownKeyReturnsNotFound(testContext *testing.T) {
	fixture := newRouterFixture(testContext)

	recorder := fixture.adminRequest(http.MethodPost, "/admin/submissions/missing", `{"status":"approved"}`)
	if recorder.Code != http.StatusNotFound {
		testContext.Fatalf("expected not found, got %d", recorder.Code)
	}
}

func TestAdminWinnerUpdateRespectsFreeze(testContext *testing.T) {
	fixture := newRouterFixture(testContext)
	if _, err := fixture.catalog.Put("u1", catalog.Record{UserID: "u1", Category: catalog.CategoryGroom}); err != nil {
		testContext.Fatalf("seed put failed: %v", err)
	}
	fixture.flags.SetWinnersLocked(true)

	recorder := fixture.adminRequest(http.MethodPost, "/admin/submissions/u1", `{"is_winner":true}`)
	if recorder.Code != http.StatusLocked {
		testContext.Fatalf("expected locked status, got %d", recorder.Code)
	}

	record, _ := fixture.catalog.Get("u1")
	if record.IsWinner {
		testContext.Fatalf("winner flag must not change while frozen")
	}
}

func TestAdminUpdateAppliesNothingWhenWinnerRefused(testContext *testing.T) {
	fixture := newRouterFixture(testContext)
	if _, err := fixture.catalog.Put("u1", catalog.Record{UserID: "u1", Category: catalog.CategoryGroom, Status: catalog.StatusPending}); err != nil {
		testContext.Fatalf("seed put failed: %v", err)
	}
	fixture.flags.SetWinnersLocked(true)

	recorder := fixture.adminRequest(http.MethodPost, "/admin/submissions/u1", `{"status":"approved","is_winner":true}`)
	if recorder.Code != http.StatusLocked {
		testContext.Fatalf("expected locked status, got %d", recorder.Code)
	}

	record, _ := fixture.catalog.Get("u1")
	if record.Status != catalog.StatusPending || record.IsWinner {
		testContext.Fatalf("refused update must not partially apply: %+v", record)
	}
}

func TestAdminFlagsToggle(testContext *testing.T) {
	fixture := newRouterFixture(testContext)

	recorder := fixture.adminRequest(http.MethodPost, "/admin/flags", `{"test_mode":true,"submissions_open":false}`)
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok, got %d", recorder.Code)
	}

	testMode, submissionsOpen, winnersLocked := fixture.flags.Snapshot()
	if !testMode || submissionsOpen || winnersLocked {
		testContext.Fatalf("unexpected flag state: test=%v open=%v locked=%v", testMode, submissionsOpen, winnersLocked)
	}
}

func TestAdminClearEmptiesCatalog(testContext *testing.T) {
	fixture := newRouterFixture(testContext)
	if _, err := fixture.catalog.Put("u1", catalog.Record{UserID: "u1"}); err != nil {
		testContext.Fatalf("seed put failed: %v", err)
	}

	recorder := fixture.adminRequest(http.MethodDelete, "/admin/submissions", "")
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok, got %d", recorder.Code)
	}
	if fixture.catalog.Size() != 0 {
		testContext.Fatalf("expected empty catalog after clear, got %d", fixture.catalog.Size())
	}
}

func TestAdminBatchUpdateReportsCounts(testContext *testing.T) {
	fixture := newRouterFixture(testContext)
	if _, err := fixture.catalog.Put("u1", catalog.Record{UserID: "u1", Category: catalog.CategoryBride}); err != nil {
		testContext.Fatalf("seed put failed: %v", err)
	}

	body := `{"items":[{"key":"u1","status":"approved"},{"key":"missing","status":"approved"}]}`
	recorder := fixture.adminRequest(http.MethodPost, "/admin/submissions/batch", body)
	if recorder.Code != http.StatusOK {
		testContext.Fatalf("expected ok, got %d", recorder.Code)
	}

	var result catalog.BatchResult
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		testContext.Fatalf("failed to decode response: %v", err)
	}
	if result.Applied != 1 || result.Skipped != 1 {
		testContext.Fatalf("expected 1 applied and 1 skipped, got %+v", result)
	}
}
