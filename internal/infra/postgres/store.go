package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
)

// Store is the bun-backed implementation of the app store interfaces.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Username     string    `bun:"username"`
	PasswordHash string    `bun:"password_hash"`
	Role         string    `bun:"role"`
	CreatedAt    time.Time `bun:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at"`
}

type packageRow struct {
	bun.BaseModel `bun:"table:quiz_packages"`

	ID               int64     `bun:"id,pk,autoincrement"`
	Title            string    `bun:"title"`
	Description      *string   `bun:"description"`
	TimeLimitMinutes int       `bun:"time_limit_minutes"`
	TotalQuestions   int       `bun:"total_questions"`
	IsActive         bool      `bun:"is_active"`
	CreatedBy        int64     `bun:"created_by"`
	CreatedAt        time.Time `bun:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID            int64     `bun:"id,pk,autoincrement"`
	QuizPackageID int64     `bun:"quiz_package_id"`
	QuestionText  string    `bun:"question_text"`
	OptionA       string    `bun:"option_a"`
	OptionB       string    `bun:"option_b"`
	OptionC       string    `bun:"option_c"`
	OptionD       string    `bun:"option_d"`
	OptionE       string    `bun:"option_e"`
	CorrectAnswer string    `bun:"correct_answer"`
	Explanation   *string   `bun:"explanation"`
	OrderNumber   int       `bun:"order_number"`
	CreatedAt     time.Time `bun:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:quiz_sessions"`

	ID                   int64      `bun:"id,pk,autoincrement"`
	UserID               int64      `bun:"user_id"`
	QuizPackageID        int64      `bun:"quiz_package_id"`
	StartedAt            time.Time  `bun:"started_at"`
	CompletedAt          *time.Time `bun:"completed_at"`
	TimeRemainingSeconds int        `bun:"time_remaining_seconds"`
	TotalScore           *int       `bun:"total_score"`
	TotalCorrect         *int       `bun:"total_correct"`
	TotalQuestions       int        `bun:"total_questions"`
	IsCompleted          bool       `bun:"is_completed"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:user_answers"`

	ID             int64     `bun:"id,pk,autoincrement"`
	SessionID      int64     `bun:"session_id"`
	QuestionID     int64     `bun:"question_id"`
	SelectedAnswer string    `bun:"selected_answer"`
	IsCorrect      bool      `bun:"is_correct"`
	AnsweredAt     time.Time `bun:"answered_at"`
}

// --- app.UserStore ---

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	row := userRowFrom(*user)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = row.ID
	return nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (domain.User, error) {
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("username = ?", username).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user by username: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]domain.User, len(rows))
	for i, row := range rows {
		users[i] = row.toDomain()
	}
	return users, nil
}

// --- app.CatalogStore ---

func (s *Store) CreatePackage(ctx context.Context, pkg *domain.QuizPackage) error {
	row := packageRowFrom(*pkg)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz package: %w", err)
	}
	pkg.ID = row.ID
	return nil
}

func (s *Store) PackageByID(ctx context.Context, id int64) (domain.QuizPackage, error) {
	var row packageRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizPackage{}, domain.ErrPackageNotFound
	}
	if err != nil {
		return domain.QuizPackage{}, fmt.Errorf("select quiz package: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) ListPackages(ctx context.Context, includeInactive bool) ([]domain.QuizPackage, error) {
	var rows []packageRow
	q := s.db.NewSelect().Model(&rows).Order("id ASC")
	if !includeInactive {
		q = q.Where("is_active = TRUE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list quiz packages: %w", err)
	}
	packages := make([]domain.QuizPackage, len(rows))
	for i, row := range rows {
		packages[i] = row.toDomain()
	}
	return packages, nil
}

func (s *Store) UpdatePackage(ctx context.Context, id int64, patch app.PackagePatch) (domain.QuizPackage, error) {
	var row packageRow
	q := s.db.NewUpdate().Model(&row).Where("id = ?", id).
		Set("updated_at = ?", time.Now()).
		Returning("*")
	if patch.Title != nil {
		q = q.Set("title = ?", *patch.Title)
	}
	if patch.Description != nil {
		q = q.Set("description = ?", *patch.Description)
	}
	if patch.TimeLimitMinutes != nil {
		q = q.Set("time_limit_minutes = ?", *patch.TimeLimitMinutes)
	}
	if patch.IsActive != nil {
		q = q.Set("is_active = ?", *patch.IsActive)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return domain.QuizPackage{}, fmt.Errorf("update quiz package: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.QuizPackage{}, domain.ErrPackageNotFound
	}
	return row.toDomain(), nil
}

func (s *Store) CreateQuestion(ctx context.Context, question *domain.Question) error {
	row := questionRowFrom(*question)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	question.ID = row.ID
	return nil
}

func (s *Store) QuestionByID(ctx context.Context, id int64) (domain.Question, error) {
	var row questionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("select question: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) QuestionsByPackage(ctx context.Context, packageID int64) ([]domain.Question, error) {
	var rows []questionRow
	err := s.db.NewSelect().Model(&rows).
		Where("quiz_package_id = ?", packageID).
		Order("order_number ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	questions := make([]domain.Question, len(rows))
	for i, row := range rows {
		questions[i] = row.toDomain()
	}
	return questions, nil
}

func (s *Store) CountQuestions(ctx context.Context, packageID int64) (int, error) {
	count, err := s.db.NewSelect().Model((*questionRow)(nil)).
		Where("quiz_package_id = ?", packageID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, id int64, patch app.QuestionPatch) (domain.Question, error) {
	var row questionRow
	q := s.db.NewUpdate().Model(&row).Where("id = ?", id).
		Set("updated_at = ?", time.Now()).
		Returning("*")
	if patch.QuestionText != nil {
		q = q.Set("question_text = ?", *patch.QuestionText)
	}
	if patch.OptionA != nil {
		q = q.Set("option_a = ?", *patch.OptionA)
	}
	if patch.OptionB != nil {
		q = q.Set("option_b = ?", *patch.OptionB)
	}
	if patch.OptionC != nil {
		q = q.Set("option_c = ?", *patch.OptionC)
	}
	if patch.OptionD != nil {
		q = q.Set("option_d = ?", *patch.OptionD)
	}
	if patch.OptionE != nil {
		q = q.Set("option_e = ?", *patch.OptionE)
	}
	if patch.CorrectAnswer != nil {
		q = q.Set("correct_answer = ?", string(*patch.CorrectAnswer))
	}
	if patch.Explanation != nil {
		q = q.Set("explanation = ?", *patch.Explanation)
	}
	if patch.OrderNumber != nil {
		q = q.Set("order_number = ?", *patch.OrderNumber)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return row.toDomain(), nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*questionRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (s *Store) SetPackageQuestionCount(ctx context.Context, packageID int64, count int) error {
	res, err := s.db.NewUpdate().Model((*packageRow)(nil)).
		Where("id = ?", packageID).
		Set("total_questions = ?", count).
		Set("updated_at = ?", time.Now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update question count: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return domain.ErrPackageNotFound
	}
	return nil
}

// --- app.SessionStore ---

func (s *Store) CreateSession(ctx context.Context, session *domain.QuizSession) error {
	row := sessionRowFrom(*session)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz session: %w", err)
	}
	session.ID = row.ID
	return nil
}

func (s *Store) SessionByID(ctx context.Context, id int64) (domain.QuizSession, error) {
	var row sessionRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("select quiz session: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) SessionRecordByID(ctx context.Context, id int64) (app.SessionRecord, error) {
	session, err := s.SessionByID(ctx, id)
	if err != nil {
		return app.SessionRecord{}, err
	}
	var title string
	err = s.db.NewSelect().Model((*packageRow)(nil)).
		Column("title").
		Where("id = ?", session.QuizPackageID).
		Scan(ctx, &title)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return app.SessionRecord{}, fmt.Errorf("select package title: %w", err)
	}
	return app.SessionRecord{Session: session, PackageTitle: title}, nil
}

func (s *Store) UpdateSession(ctx context.Context, id int64, patch app.SessionPatch) (domain.QuizSession, error) {
	row, err := updateSession(ctx, s.db, id, patch)
	if err != nil {
		return domain.QuizSession{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) ActiveSessionByUser(ctx context.Context, userID int64) (domain.QuizSession, error) {
	var row sessionRow
	err := s.db.NewSelect().Model(&row).
		Where("user_id = ?", userID).
		Where("is_completed = FALSE").
		Order("started_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.QuizSession{}, fmt.Errorf("select active session: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) CompletedSessionsByUser(ctx context.Context, userID int64) ([]app.SessionRecord, error) {
	var rows []sessionRow
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Where("is_completed = TRUE").
		Order("completed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	if len(rows) == 0 {
		return []app.SessionRecord{}, nil
	}

	packageIDs := make([]int64, len(rows))
	for i, row := range rows {
		packageIDs[i] = row.QuizPackageID
	}
	var packages []packageRow
	err = s.db.NewSelect().Model(&packages).
		Column("id", "title").
		Where("id IN (?)", bun.In(packageIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list session packages: %w", err)
	}
	titleByID := make(map[int64]string, len(packages))
	for _, pkg := range packages {
		titleByID[pkg.ID] = pkg.Title
	}

	records := make([]app.SessionRecord, len(rows))
	for i, row := range rows {
		records[i] = app.SessionRecord{Session: row.toDomain(), PackageTitle: titleByID[row.QuizPackageID]}
	}
	return records, nil
}

// CompleteSession persists the answer batch and the final session state in a
// single transaction so a mid-sequence failure leaves neither half behind.
func (s *Store) CompleteSession(ctx context.Context, id int64, answers []domain.UserAnswer, patch app.SessionPatch) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if len(answers) > 0 {
			rows := make([]answerRow, len(answers))
			for i, answer := range answers {
				rows[i] = answerRowFrom(answer)
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert answers: %w", err)
			}
		}
		if _, err := updateSession(ctx, tx, id, patch); err != nil {
			return err
		}
		return nil
	})
}

func (s *Store) AnswersBySession(ctx context.Context, sessionID int64) ([]domain.AnswerDetail, error) {
	var answers []answerRow
	err := s.db.NewSelect().Model(&answers).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list session answers: %w", err)
	}
	if len(answers) == 0 {
		return []domain.AnswerDetail{}, nil
	}

	questionIDs := make([]int64, len(answers))
	for i, answer := range answers {
		questionIDs[i] = answer.QuestionID
	}
	var questions []questionRow
	err = s.db.NewSelect().Model(&questions).
		Where("id IN (?)", bun.In(questionIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list answered questions: %w", err)
	}
	questionByID := make(map[int64]questionRow, len(questions))
	for _, q := range questions {
		questionByID[q.ID] = q
	}

	details := make([]domain.AnswerDetail, len(answers))
	for i, answer := range answers {
		details[i] = domain.AnswerDetail{
			Question: questionByID[answer.QuestionID].toDomain(),
			Answer:   answer.toDomain(),
		}
	}
	return details, nil
}

func updateSession(ctx context.Context, db bun.IDB, id int64, patch app.SessionPatch) (sessionRow, error) {
	var row sessionRow
	q := db.NewUpdate().Model(&row).Where("id = ?", id).Returning("*")
	touched := false
	if patch.TimeRemainingSeconds != nil {
		q = q.Set("time_remaining_seconds = ?", *patch.TimeRemainingSeconds)
		touched = true
	}
	if patch.IsCompleted != nil {
		q = q.Set("is_completed = ?", *patch.IsCompleted)
		touched = true
	}
	if patch.CompletedAt != nil {
		q = q.Set("completed_at = ?", *patch.CompletedAt)
		touched = true
	}
	if patch.TotalScore != nil {
		q = q.Set("total_score = ?", *patch.TotalScore)
		touched = true
	}
	if patch.TotalCorrect != nil {
		q = q.Set("total_correct = ?", *patch.TotalCorrect)
		touched = true
	}
	if !touched {
		// An empty heartbeat still needs the not-found check.
		q = q.Set("id = id")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return sessionRow{}, fmt.Errorf("update quiz session: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sessionRow{}, domain.ErrSessionNotFound
	}
	return row, nil
}

// --- row conversions ---

func userRowFrom(u domain.User) userRow {
	return userRow{
		ID: u.ID, Username: u.Username, PasswordHash: u.PasswordHash,
		Role: string(u.Role), CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID: r.ID, Username: r.Username, PasswordHash: r.PasswordHash,
		Role: domain.Role(r.Role), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func packageRowFrom(p domain.QuizPackage) packageRow {
	return packageRow{
		ID: p.ID, Title: p.Title, Description: p.Description,
		TimeLimitMinutes: p.TimeLimitMinutes, TotalQuestions: p.TotalQuestions,
		IsActive: p.IsActive, CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func (r packageRow) toDomain() domain.QuizPackage {
	return domain.QuizPackage{
		ID: r.ID, Title: r.Title, Description: r.Description,
		TimeLimitMinutes: r.TimeLimitMinutes, TotalQuestions: r.TotalQuestions,
		IsActive: r.IsActive, CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func questionRowFrom(q domain.Question) questionRow {
	return questionRow{
		ID: q.ID, QuizPackageID: q.QuizPackageID, QuestionText: q.QuestionText,
		OptionA: q.OptionA, OptionB: q.OptionB, OptionC: q.OptionC,
		OptionD: q.OptionD, OptionE: q.OptionE,
		CorrectAnswer: string(q.CorrectAnswer), Explanation: q.Explanation,
		OrderNumber: q.OrderNumber, CreatedAt: q.CreatedAt, UpdatedAt: q.UpdatedAt,
	}
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID: r.ID, QuizPackageID: r.QuizPackageID, QuestionText: r.QuestionText,
		OptionA: r.OptionA, OptionB: r.OptionB, OptionC: r.OptionC,
		OptionD: r.OptionD, OptionE: r.OptionE,
		CorrectAnswer: domain.AnswerOption(r.CorrectAnswer), Explanation: r.Explanation,
		OrderNumber: r.OrderNumber, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func sessionRowFrom(s domain.QuizSession) sessionRow {
	return sessionRow{
		ID: s.ID, UserID: s.UserID, QuizPackageID: s.QuizPackageID,
		StartedAt: s.StartedAt, CompletedAt: s.CompletedAt,
		TimeRemainingSeconds: s.TimeRemainingSeconds,
		TotalScore:           s.TotalScore, TotalCorrect: s.TotalCorrect,
		TotalQuestions: s.TotalQuestions, IsCompleted: s.IsCompleted,
	}
}

func (r sessionRow) toDomain() domain.QuizSession {
	return domain.QuizSession{
		ID: r.ID, UserID: r.UserID, QuizPackageID: r.QuizPackageID,
		StartedAt: r.StartedAt, CompletedAt: r.CompletedAt,
		TimeRemainingSeconds: r.TimeRemainingSeconds,
		TotalScore:           r.TotalScore, TotalCorrect: r.TotalCorrect,
		TotalQuestions: r.TotalQuestions, IsCompleted: r.IsCompleted,
	}
}

func answerRowFrom(a domain.UserAnswer) answerRow {
	return answerRow{
		ID: a.ID, SessionID: a.SessionID, QuestionID: a.QuestionID,
		SelectedAnswer: string(a.SelectedAnswer), IsCorrect: a.IsCorrect,
		AnsweredAt: a.AnsweredAt,
	}
}

func (r answerRow) toDomain() domain.UserAnswer {
	return domain.UserAnswer{
		ID: r.ID, SessionID: r.SessionID, QuestionID: r.QuestionID,
		SelectedAnswer: domain.AnswerOption(r.SelectedAnswer), IsCorrect: r.IsCorrect,
		AnsweredAt: r.AnsweredAt,
	}
}
