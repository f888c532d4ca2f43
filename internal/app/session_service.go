package app

import (
	"context"
	"math"
	"time"

	"exam-practice-service/internal/domain"
)

// SessionPatch carries the optional fields of a session update; nil fields are
// left untouched. CompletedAt is stamped by the service, not by callers.
type SessionPatch struct {
	TimeRemainingSeconds *int
	IsCompleted          *bool
	CompletedAt          *time.Time
	TotalScore           *int
	TotalCorrect         *int
}

// SessionRecord is a session joined with its package title, the shape the
// result views are built from.
type SessionRecord struct {
	Session      domain.QuizSession
	PackageTitle string
}

// SessionStore persists quiz sessions and their submitted answers.
// CompleteSession must apply the answer inserts and the session update as one
// atomic unit; a failure leaves neither persisted.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.QuizSession) error
	SessionByID(ctx context.Context, id int64) (domain.QuizSession, error)
	SessionRecordByID(ctx context.Context, id int64) (SessionRecord, error)
	UpdateSession(ctx context.Context, id int64, patch SessionPatch) (domain.QuizSession, error)
	ActiveSessionByUser(ctx context.Context, userID int64) (domain.QuizSession, error)
	CompletedSessionsByUser(ctx context.Context, userID int64) ([]SessionRecord, error)
	CompleteSession(ctx context.Context, id int64, answers []domain.UserAnswer, patch SessionPatch) error
	AnswersBySession(ctx context.Context, sessionID int64) ([]domain.AnswerDetail, error)
}

// StatsReader aggregates completed sessions into dashboard statistics.
type StatsReader interface {
	UserStatistics(ctx context.Context, userID int64) (domain.UserStatistics, error)
}

// SessionService implements the quiz session lifecycle: start, heartbeat,
// completion scoring, and the result/statistics readers.
type SessionService struct {
	sessions SessionStore
	catalog  CatalogStore
	users    UserStore
	stats    StatsReader
	now      func() time.Time
}

func NewSessionService(sessions SessionStore, catalog CatalogStore, users UserStore, stats StatsReader) *SessionService {
	return &SessionService{sessions: sessions, catalog: catalog, users: users, stats: stats, now: time.Now}
}

// WithClock is test-only for deterministic timestamps.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// Start opens a new timed attempt. The time budget comes from the package's
// limit; the question total is the live count, not the package's cached counter.
func (s *SessionService) Start(ctx context.Context, userID, packageID int64) (domain.QuizSession, error) {
	if _, err := s.users.UserByID(ctx, userID); err != nil {
		return domain.QuizSession{}, err
	}
	pkg, err := s.catalog.PackageByID(ctx, packageID)
	if err != nil {
		return domain.QuizSession{}, err
	}
	if !pkg.IsActive {
		return domain.QuizSession{}, domain.ErrPackageInactive
	}
	count, err := s.catalog.CountQuestions(ctx, packageID)
	if err != nil {
		return domain.QuizSession{}, err
	}
	if count == 0 {
		return domain.QuizSession{}, domain.ErrPackageEmpty
	}

	session := domain.QuizSession{
		UserID:               userID,
		QuizPackageID:        packageID,
		StartedAt:            s.now(),
		TimeRemainingSeconds: pkg.TimeLimitMinutes * 60,
		TotalQuestions:       count,
		IsCompleted:          false,
	}
	if err := s.sessions.CreateSession(ctx, &session); err != nil {
		return domain.QuizSession{}, err
	}
	return session, nil
}

// Update is the heartbeat: it persists client-side timer state so a page
// reload can resume the countdown. Only provided fields are applied. Marking
// a session completed stamps completed_at; marking it incomplete does not
// clear a previously set completed_at.
func (s *SessionService) Update(ctx context.Context, id int64, timeRemainingSeconds *int, isCompleted *bool) (domain.QuizSession, error) {
	patch := SessionPatch{
		TimeRemainingSeconds: timeRemainingSeconds,
		IsCompleted:          isCompleted,
	}
	if isCompleted != nil && *isCompleted {
		now := s.now()
		patch.CompletedAt = &now
	}
	return s.sessions.UpdateSession(ctx, id, patch)
}

// Complete is the one-shot scoring operation. Every submitted answer is
// checked against the package's question set, scored by exact option match,
// and persisted together with the final session state in one transaction.
// The score denominator is the session's snapshotted question total, so
// unanswered questions count as wrong.
func (s *SessionService) Complete(ctx context.Context, sessionID int64, submissions []domain.AnswerSubmission) (domain.QuizResult, error) {
	record, err := s.sessions.SessionRecordByID(ctx, sessionID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	session := record.Session
	if session.IsCompleted {
		return domain.QuizResult{}, domain.ErrSessionCompleted
	}

	questions, err := s.catalog.QuestionsByPackage(ctx, session.QuizPackageID)
	if err != nil {
		return domain.QuizResult{}, err
	}

	now := s.now()
	answers, totalCorrect, err := scoreSubmissions(questions, submissions, sessionID, now)
	if err != nil {
		return domain.QuizResult{}, err
	}

	totalScore := percentScore(totalCorrect, session.TotalQuestions)
	completed := true
	zeroRemaining := 0
	patch := SessionPatch{
		TimeRemainingSeconds: &zeroRemaining,
		IsCompleted:          &completed,
		CompletedAt:          &now,
		TotalScore:           &totalScore,
		TotalCorrect:         &totalCorrect,
	}
	if err := s.sessions.CompleteSession(ctx, sessionID, answers, patch); err != nil {
		return domain.QuizResult{}, err
	}

	return domain.QuizResult{
		SessionID:             sessionID,
		UserID:                session.UserID,
		QuizPackageTitle:      record.PackageTitle,
		TotalQuestions:        session.TotalQuestions,
		TotalCorrect:          totalCorrect,
		TotalScore:            totalScore,
		CompletionTimeMinutes: minutesBetween(session.StartedAt, now),
		CompletedAt:           now,
	}, nil
}

// ActiveSession returns the user's most recent incomplete session.
func (s *SessionService) ActiveSession(ctx context.Context, userID int64) (domain.QuizSession, error) {
	return s.sessions.ActiveSessionByUser(ctx, userID)
}

// Results lists the user's completed sessions, newest first.
func (s *SessionService) Results(ctx context.Context, userID int64) ([]domain.QuizResult, error) {
	records, err := s.sessions.CompletedSessionsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]domain.QuizResult, 0, len(records))
	for _, record := range records {
		results = append(results, resultFromRecord(record))
	}
	return results, nil
}

// ResultDetails reconstructs the review view for a completed session. Sessions
// that do not exist, are not completed, or lack score data resolve to
// ErrSessionNotFound, which the transport serves as an absent result.
func (s *SessionService) ResultDetails(ctx context.Context, sessionID int64) (domain.QuizResultDetails, error) {
	record, err := s.sessions.SessionRecordByID(ctx, sessionID)
	if err != nil {
		return domain.QuizResultDetails{}, err
	}
	session := record.Session
	if !session.IsCompleted || session.CompletedAt == nil || session.TotalScore == nil || session.TotalCorrect == nil {
		return domain.QuizResultDetails{}, domain.ErrSessionNotFound
	}

	answers, err := s.sessions.AnswersBySession(ctx, sessionID)
	if err != nil {
		return domain.QuizResultDetails{}, err
	}
	return domain.QuizResultDetails{
		QuizResult: resultFromRecord(record),
		Answers:    answers,
	}, nil
}

// Statistics aggregates the user's completed sessions.
func (s *SessionService) Statistics(ctx context.Context, userID int64) (domain.UserStatistics, error) {
	if _, err := s.users.UserByID(ctx, userID); err != nil {
		return domain.UserStatistics{}, err
	}
	return s.stats.UserStatistics(ctx, userID)
}

// scoreSubmissions validates every submission against the package's question
// set and grades by exact, case-sensitive option match. An unknown question id
// fails the whole batch before anything is persisted.
func scoreSubmissions(questions []domain.Question, submissions []domain.AnswerSubmission, sessionID int64, now time.Time) ([]domain.UserAnswer, int, error) {
	correctByID := make(map[int64]domain.AnswerOption, len(questions))
	for _, q := range questions {
		correctByID[q.ID] = q.CorrectAnswer
	}

	answers := make([]domain.UserAnswer, 0, len(submissions))
	totalCorrect := 0
	for _, sub := range submissions {
		correct, ok := correctByID[sub.QuestionID]
		if !ok {
			return nil, 0, domain.ErrQuestionNotInPackage
		}
		if !sub.SelectedAnswer.Valid() {
			return nil, 0, domain.ErrInvalidAnswerOption
		}
		isCorrect := sub.SelectedAnswer == correct
		if isCorrect {
			totalCorrect++
		}
		answers = append(answers, domain.UserAnswer{
			SessionID:      sessionID,
			QuestionID:     sub.QuestionID,
			SelectedAnswer: sub.SelectedAnswer,
			IsCorrect:      isCorrect,
			AnsweredAt:     now,
		})
	}
	return answers, totalCorrect, nil
}

// percentScore rounds half-up: 1/3 of 100 is 33, 2/3 is 67.
func percentScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

func minutesBetween(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Minutes()))
}

func resultFromRecord(record SessionRecord) domain.QuizResult {
	session := record.Session
	result := domain.QuizResult{
		SessionID:        session.ID,
		UserID:           session.UserID,
		QuizPackageTitle: record.PackageTitle,
		TotalQuestions:   session.TotalQuestions,
	}
	if session.TotalCorrect != nil {
		result.TotalCorrect = *session.TotalCorrect
	}
	if session.TotalScore != nil {
		result.TotalScore = *session.TotalScore
	}
	if session.CompletedAt != nil {
		result.CompletedAt = *session.CompletedAt
		result.CompletionTimeMinutes = minutesBetween(session.StartedAt, *session.CompletedAt)
	}
	return result
}
