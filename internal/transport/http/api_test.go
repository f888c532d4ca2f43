package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/infra/memory"
)

type testEnv struct {
	server     *httptest.Server
	sessions   *app.SessionService
	adminToken string
	userToken  string
	userID     int64
	pkg        domain.QuizPackage
	questions  []domain.Question
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	cache := memory.NewQuestionCache(store, time.Minute)
	auth := app.NewAuthService(store, memory.NewTokenStore(), time.Hour)
	catalog := app.NewCatalogService(store, store, cache)
	sessions := app.NewSessionService(store, store, store, store)

	admin, err := auth.Register(ctx, "admin", "secret123", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	user, err := auth.Register(ctx, "alice", "secret123", domain.RoleUser)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	_, adminToken, err := auth.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("login admin: %v", err)
	}
	_, userToken, err := auth.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("login user: %v", err)
	}

	adminIdentity := app.Identity{UserID: admin.ID, Role: admin.Role}
	pkg, err := catalog.CreatePackage(ctx, adminIdentity, "HTTP Tryout", nil, 30)
	if err != nil {
		t.Fatalf("create package: %v", err)
	}
	for i, correct := range []domain.AnswerOption{domain.OptionA, domain.OptionC} {
		if _, err := catalog.CreateQuestion(ctx, adminIdentity, domain.Question{
			QuizPackageID: pkg.ID,
			QuestionText:  "q",
			OptionA:       "a", OptionB: "b", OptionC: "c", OptionD: "d", OptionE: "e",
			CorrectAnswer: correct,
			OrderNumber:   i + 1,
		}); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	questions, err := catalog.Questions(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}

	api := NewAPI(auth, catalog, sessions)
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	return &testEnv{
		server:     server,
		sessions:   sessions,
		adminToken: adminToken,
		userToken:  userToken,
		userID:     user.ID,
		pkg:        pkg,
		questions:  questions,
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"username": "bob", "password": "hunter22",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var user domain.User
	if err := json.Unmarshal(body, &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if user.Role != domain.RoleUser {
		t.Fatalf("expected default user role, got %q", user.Role)
	}

	resp, _ = env.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"username": "bob", "password": "hunter22",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}

	resp, _ = env.do(t, "POST", "/api/v1/auth/login", "", map[string]string{
		"username": "bob", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad password, got %d", resp.StatusCode)
	}
}

func TestEndpointsRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, "GET", "/api/v1/packages", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, "GET", "/api/v1/packages", "not-a-real-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an unknown token, got %d", resp.StatusCode)
	}
}

func TestPackageLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, "POST", "/api/v1/packages", env.userToken, map[string]any{"title": "Nope"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-admin, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, "POST", "/api/v1/packages", env.adminToken, map[string]any{
		"title": "Second Tryout", "timeLimitMinutes": 45,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var created domain.QuizPackage
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode package: %v", err)
	}

	deletePath := fmt.Sprintf("/api/v1/packages/%d", created.ID)
	resp, _ = env.do(t, "DELETE", deletePath, env.adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, "DELETE", deletePath, env.adminToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on repeat delete, got %d", resp.StatusCode)
	}

	// Non-admin listings hide the soft-deleted package.
	resp, body = env.do(t, "GET", "/api/v1/packages", env.userToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var visible []domain.QuizPackage
	if err := json.Unmarshal(body, &visible); err != nil {
		t.Fatalf("decode packages: %v", err)
	}
	for _, pkg := range visible {
		if pkg.ID == created.ID {
			t.Fatalf("soft-deleted package leaked to a user listing")
		}
	}
}

func TestQuizFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	// The quiz-taking view must not leak answers.
	resp, body := env.do(t, "GET", fmt.Sprintf("/api/v1/packages/%d/questions?view=quiz", env.pkg.ID), env.userToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if bytes.Contains(body, []byte("correctAnswer")) || bytes.Contains(body, []byte("explanation")) {
		t.Fatalf("quiz view leaked answer data: %s", body)
	}

	// The full view is admin only.
	resp, _ = env.do(t, "GET", fmt.Sprintf("/api/v1/packages/%d/questions", env.pkg.ID), env.userToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-admin full view, got %d", resp.StatusCode)
	}

	resp, body = env.do(t, "POST", "/api/v1/sessions", env.userToken, map[string]any{"quizPackageId": env.pkg.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var session domain.QuizSession
	if err := json.Unmarshal(body, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.TimeRemainingSeconds != 30*60 {
		t.Fatalf("expected 1800 seconds, got %d", session.TimeRemainingSeconds)
	}

	completePath := fmt.Sprintf("/api/v1/sessions/%d/complete", session.ID)
	resp, body = env.do(t, "POST", completePath, env.userToken, map[string]any{
		"answers": []map[string]any{
			{"questionId": env.questions[0].ID, "selectedAnswer": "A"},
			{"questionId": env.questions[1].ID, "selectedAnswer": "B"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var result domain.QuizResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.TotalCorrect != 1 || result.TotalScore != 50 {
		t.Fatalf("expected 1 correct for 50, got %d correct score %d", result.TotalCorrect, result.TotalScore)
	}

	resp, _ = env.do(t, "POST", completePath, env.userToken, map[string]any{"answers": []map[string]any{}})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on repeat completion, got %d", resp.StatusCode)
	}

	resp, body = env.do(t, "GET", fmt.Sprintf("/api/v1/results/%d", session.ID), env.userToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var details domain.QuizResultDetails
	if err := json.Unmarshal(body, &details); err != nil {
		t.Fatalf("decode details: %v", err)
	}
	if len(details.Answers) != 2 {
		t.Fatalf("expected 2 answer details, got %d", len(details.Answers))
	}

	resp, body = env.do(t, "GET", "/api/v1/statistics", env.userToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats domain.UserStatistics
	if err := json.Unmarshal(body, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalQuizzesTaken != 1 || stats.BestScore != 50 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
}

func TestValidationRejectsBadPayloads(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, "POST", "/api/v1/auth/register", "", map[string]string{
		"username": "cy", "password": "x",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a short username, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, "POST", "/api/v1/sessions", env.userToken, map[string]any{"quizPackageId": env.pkg.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var session domain.QuizSession
	if err := json.Unmarshal(body, &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	resp, _ = env.do(t, "POST", fmt.Sprintf("/api/v1/sessions/%d/complete", session.ID), env.userToken, map[string]any{
		"answers": []map[string]any{{"questionId": env.questions[0].ID, "selectedAnswer": "Z"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid option, got %d", resp.StatusCode)
	}
}
