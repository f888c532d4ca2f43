package app

import (
	"context"
	"time"

	"exam-practice-service/internal/domain"
)

// PackagePatch carries the optional fields of a package update; nil fields are
// left untouched.
type PackagePatch struct {
	Title            *string
	Description      *string
	TimeLimitMinutes *int
	IsActive         *bool
}

// QuestionPatch carries the optional fields of a question update.
type QuestionPatch struct {
	QuestionText  *string
	OptionA       *string
	OptionB       *string
	OptionC       *string
	OptionD       *string
	OptionE       *string
	CorrectAnswer *domain.AnswerOption
	Explanation   *string
	OrderNumber   *int
}

// CatalogStore persists quiz packages and their questions.
type CatalogStore interface {
	CreatePackage(ctx context.Context, pkg *domain.QuizPackage) error
	PackageByID(ctx context.Context, id int64) (domain.QuizPackage, error)
	ListPackages(ctx context.Context, includeInactive bool) ([]domain.QuizPackage, error)
	UpdatePackage(ctx context.Context, id int64, patch PackagePatch) (domain.QuizPackage, error)

	CreateQuestion(ctx context.Context, q *domain.Question) error
	QuestionByID(ctx context.Context, id int64) (domain.Question, error)
	QuestionsByPackage(ctx context.Context, packageID int64) ([]domain.Question, error)
	CountQuestions(ctx context.Context, packageID int64) (int, error)
	UpdateQuestion(ctx context.Context, id int64, patch QuestionPatch) (domain.Question, error)
	DeleteQuestion(ctx context.Context, id int64) error
	SetPackageQuestionCount(ctx context.Context, packageID int64, count int) error
}

// QuestionCache serves the answer-stripped quiz-taking view; mutations must
// invalidate it so authors see their edits immediately.
type QuestionCache interface {
	Questions(ctx context.Context, packageID int64) ([]domain.Question, error)
	Invalidate(packageID int64)
}

// CatalogService holds the admin-managed package/question catalog use cases.
type CatalogService struct {
	store CatalogStore
	users UserStore
	cache QuestionCache
	now   func() time.Time
}

func NewCatalogService(store CatalogStore, users UserStore, cache QuestionCache) *CatalogService {
	return &CatalogService{store: store, users: users, cache: cache, now: time.Now}
}

// CreatePackage creates a quiz package owned by the acting admin.
func (s *CatalogService) CreatePackage(ctx context.Context, actor Identity, title string, description *string, timeLimitMinutes int) (domain.QuizPackage, error) {
	if !actor.IsAdmin() {
		return domain.QuizPackage{}, domain.ErrForbidden
	}
	if _, err := s.users.UserByID(ctx, actor.UserID); err != nil {
		return domain.QuizPackage{}, err
	}
	if timeLimitMinutes <= 0 {
		timeLimitMinutes = 120
	}

	now := s.now()
	pkg := domain.QuizPackage{
		Title:            title,
		Description:      description,
		TimeLimitMinutes: timeLimitMinutes,
		TotalQuestions:   0,
		IsActive:         true,
		CreatedBy:        actor.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreatePackage(ctx, &pkg); err != nil {
		return domain.QuizPackage{}, err
	}
	return pkg, nil
}

// Packages lists the catalog. Admins see soft-deleted packages too; everyone
// else sees only active ones.
func (s *CatalogService) Packages(ctx context.Context, actor Identity) ([]domain.QuizPackage, error) {
	return s.store.ListPackages(ctx, actor.IsAdmin())
}

func (s *CatalogService) Package(ctx context.Context, id int64) (domain.QuizPackage, error) {
	return s.store.PackageByID(ctx, id)
}

// UpdatePackage applies a partial update and bumps updated_at.
func (s *CatalogService) UpdatePackage(ctx context.Context, actor Identity, id int64, patch PackagePatch) (domain.QuizPackage, error) {
	if !actor.IsAdmin() {
		return domain.QuizPackage{}, domain.ErrForbidden
	}
	return s.store.UpdatePackage(ctx, id, patch)
}

// DeletePackage soft-deletes by flipping is_active. Deleting an already
// inactive package fails without touching the row.
func (s *CatalogService) DeletePackage(ctx context.Context, actor Identity, id int64) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	pkg, err := s.store.PackageByID(ctx, id)
	if err != nil {
		return err
	}
	if !pkg.IsActive {
		return domain.ErrPackageAlreadyDeleted
	}
	inactive := false
	_, err = s.store.UpdatePackage(ctx, id, PackagePatch{IsActive: &inactive})
	return err
}

// CreateQuestion adds a question to a package and recomputes the package's
// denormalized question count.
func (s *CatalogService) CreateQuestion(ctx context.Context, actor Identity, q domain.Question) (domain.Question, error) {
	if !actor.IsAdmin() {
		return domain.Question{}, domain.ErrForbidden
	}
	if !q.CorrectAnswer.Valid() {
		return domain.Question{}, domain.ErrInvalidAnswerOption
	}
	if _, err := s.store.PackageByID(ctx, q.QuizPackageID); err != nil {
		return domain.Question{}, err
	}

	now := s.now()
	q.CreatedAt = now
	q.UpdatedAt = now
	if err := s.store.CreateQuestion(ctx, &q); err != nil {
		return domain.Question{}, err
	}
	if err := s.refreshQuestionCount(ctx, q.QuizPackageID); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// Questions returns a package's questions ordered by order_number, including
// correct answers and explanations. Admin/authoring view.
func (s *CatalogService) Questions(ctx context.Context, packageID int64) ([]domain.Question, error) {
	if _, err := s.store.PackageByID(ctx, packageID); err != nil {
		return nil, err
	}
	return s.store.QuestionsByPackage(ctx, packageID)
}

// QuizQuestions returns the answer-stripped view served to quiz takers,
// read through the catalog cache.
func (s *CatalogService) QuizQuestions(ctx context.Context, packageID int64) ([]domain.Question, error) {
	pkg, err := s.store.PackageByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if !pkg.IsActive {
		return nil, domain.ErrPackageInactive
	}
	questions, err := s.cache.Questions(ctx, packageID)
	if err != nil {
		return nil, err
	}
	stripped := make([]domain.Question, len(questions))
	for i, q := range questions {
		stripped[i] = q.StripAnswer()
	}
	return stripped, nil
}

// UpdateQuestion applies a partial update to a question.
func (s *CatalogService) UpdateQuestion(ctx context.Context, actor Identity, id int64, patch QuestionPatch) (domain.Question, error) {
	if !actor.IsAdmin() {
		return domain.Question{}, domain.ErrForbidden
	}
	if patch.CorrectAnswer != nil && !patch.CorrectAnswer.Valid() {
		return domain.Question{}, domain.ErrInvalidAnswerOption
	}
	q, err := s.store.UpdateQuestion(ctx, id, patch)
	if err != nil {
		return domain.Question{}, err
	}
	s.cache.Invalidate(q.QuizPackageID)
	return q, nil
}

// DeleteQuestion removes a question (hard delete) and recomputes the package count.
func (s *CatalogService) DeleteQuestion(ctx context.Context, actor Identity, id int64) error {
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	q, err := s.store.QuestionByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	return s.refreshQuestionCount(ctx, q.QuizPackageID)
}

func (s *CatalogService) refreshQuestionCount(ctx context.Context, packageID int64) error {
	count, err := s.store.CountQuestions(ctx, packageID)
	if err != nil {
		return err
	}
	if err := s.store.SetPackageQuestionCount(ctx, packageID, count); err != nil {
		return err
	}
	s.cache.Invalidate(packageID)
	return nil
}
