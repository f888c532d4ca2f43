package memory_test

import (
	"context"
	"testing"

	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/infra/memory"
)

func TestQuestionsOrderedByOrderNumber(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	pkg := domain.QuizPackage{Title: "p", IsActive: true}
	if err := store.CreatePackage(ctx, &pkg); err != nil {
		t.Fatalf("create package failed: %v", err)
	}
	for _, order := range []int{3, 1, 2} {
		q := domain.Question{QuizPackageID: pkg.ID, CorrectAnswer: domain.OptionA, OrderNumber: order}
		if err := store.CreateQuestion(ctx, &q); err != nil {
			t.Fatalf("create question failed: %v", err)
		}
	}

	questions, err := store.QuestionsByPackage(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for i, q := range questions {
		if q.OrderNumber != i+1 {
			t.Fatalf("expected order %d at index %d, got %d", i+1, i, q.OrderNumber)
		}
	}
}

func TestListPackagesFiltersInactive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	active := domain.QuizPackage{Title: "active", IsActive: true}
	inactive := domain.QuizPackage{Title: "gone", IsActive: false}
	if err := store.CreatePackage(ctx, &active); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.CreatePackage(ctx, &inactive); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	visible, err := store.ListPackages(ctx, false)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(visible) != 1 || visible[0].ID != active.ID {
		t.Fatalf("expected only the active package, got %+v", visible)
	}

	all, err := store.ListPackages(ctx, true)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected both packages for admins, got %d", len(all))
	}
}
