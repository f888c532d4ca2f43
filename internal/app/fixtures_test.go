package app_test

import (
	"context"
	"testing"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/infra/memory"
)

type fixture struct {
	store    *memory.Store
	auth     *app.AuthService
	catalog  *app.CatalogService
	sessions *app.SessionService
	admin    app.Identity
	user     app.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	cache := memory.NewQuestionCache(store, time.Minute)

	f := &fixture{
		store:    store,
		auth:     app.NewAuthService(store, memory.NewTokenStore(), time.Hour),
		catalog:  app.NewCatalogService(store, store, cache),
		sessions: app.NewSessionService(store, store, store, store),
	}

	admin, err := f.auth.Register(ctx, "admin", "secret123", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("register admin failed: %v", err)
	}
	f.admin = app.Identity{UserID: admin.ID, Role: admin.Role}

	user, err := f.auth.Register(ctx, "alice", "secret123", domain.RoleUser)
	if err != nil {
		t.Fatalf("register user failed: %v", err)
	}
	f.user = app.Identity{UserID: user.ID, Role: user.Role}
	return f
}

// seedPackage creates a package with three questions whose correct answers are
// B, A, and D in display order.
func (f *fixture) seedPackage(t *testing.T, timeLimitMinutes int) domain.QuizPackage {
	t.Helper()
	ctx := context.Background()

	pkg, err := f.catalog.CreatePackage(ctx, f.admin, "UTBK Math Tryout", nil, timeLimitMinutes)
	if err != nil {
		t.Fatalf("create package failed: %v", err)
	}
	answers := []domain.AnswerOption{domain.OptionB, domain.OptionA, domain.OptionD}
	for i, correct := range answers {
		_, err := f.catalog.CreateQuestion(ctx, f.admin, domain.Question{
			QuizPackageID: pkg.ID,
			QuestionText:  "question",
			OptionA:       "a", OptionB: "b", OptionC: "c", OptionD: "d", OptionE: "e",
			CorrectAnswer: correct,
			OrderNumber:   i + 1,
		})
		if err != nil {
			t.Fatalf("create question failed: %v", err)
		}
	}
	return pkg
}

func (f *fixture) packageQuestions(t *testing.T, packageID int64) []domain.Question {
	t.Helper()
	questions, err := f.catalog.Questions(context.Background(), packageID)
	if err != nil {
		t.Fatalf("list questions failed: %v", err)
	}
	return questions
}
