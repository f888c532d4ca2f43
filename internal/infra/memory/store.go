package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
)

// Store is an in-memory implementation of the app store interfaces, used by
// unit tests and by the server when no Postgres URL is configured.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	users     map[int64]domain.User
	packages  map[int64]domain.QuizPackage
	questions map[int64]domain.Question
	sessions  map[int64]domain.QuizSession
	answers   map[int64]domain.UserAnswer
}

func NewStore() *Store {
	return &Store{
		users:     make(map[int64]domain.User),
		packages:  make(map[int64]domain.QuizPackage),
		questions: make(map[int64]domain.Question),
		sessions:  make(map[int64]domain.QuizSession),
		answers:   make(map[int64]domain.UserAnswer),
	}
}

func (s *Store) nextIDLocked() int64 {
	s.nextID++
	return s.nextID
}

// --- app.UserStore ---

func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.ID = s.nextIDLocked()
	s.users[user.ID] = *user
	return nil
}

func (s *Store) UserByID(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *Store) UserByUsername(_ context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// --- app.CatalogStore ---

func (s *Store) CreatePackage(_ context.Context, pkg *domain.QuizPackage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg.ID = s.nextIDLocked()
	s.packages[pkg.ID] = *pkg
	return nil
}

func (s *Store) PackageByID(_ context.Context, id int64) (domain.QuizPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pkg, ok := s.packages[id]
	if !ok {
		return domain.QuizPackage{}, domain.ErrPackageNotFound
	}
	return pkg, nil
}

func (s *Store) ListPackages(_ context.Context, includeInactive bool) ([]domain.QuizPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	packages := make([]domain.QuizPackage, 0, len(s.packages))
	for _, pkg := range s.packages {
		if !includeInactive && !pkg.IsActive {
			continue
		}
		packages = append(packages, pkg)
	}
	sort.Slice(packages, func(i, j int) bool { return packages[i].ID < packages[j].ID })
	return packages, nil
}

func (s *Store) UpdatePackage(_ context.Context, id int64, patch app.PackagePatch) (domain.QuizPackage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.packages[id]
	if !ok {
		return domain.QuizPackage{}, domain.ErrPackageNotFound
	}
	if patch.Title != nil {
		pkg.Title = *patch.Title
	}
	if patch.Description != nil {
		pkg.Description = patch.Description
	}
	if patch.TimeLimitMinutes != nil {
		pkg.TimeLimitMinutes = *patch.TimeLimitMinutes
	}
	if patch.IsActive != nil {
		pkg.IsActive = *patch.IsActive
	}
	pkg.UpdatedAt = time.Now()
	s.packages[id] = pkg
	return pkg, nil
}

func (s *Store) CreateQuestion(_ context.Context, q *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.nextIDLocked()
	s.questions[q.ID] = *q
	return nil
}

func (s *Store) QuestionByID(_ context.Context, id int64) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (s *Store) QuestionsByPackage(_ context.Context, packageID int64) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := make([]domain.Question, 0)
	for _, q := range s.questions {
		if q.QuizPackageID == packageID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		if questions[i].OrderNumber != questions[j].OrderNumber {
			return questions[i].OrderNumber < questions[j].OrderNumber
		}
		return questions[i].ID < questions[j].ID
	})
	return questions, nil
}

func (s *Store) CountQuestions(_ context.Context, packageID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, q := range s.questions {
		if q.QuizPackageID == packageID {
			count++
		}
	}
	return count, nil
}

func (s *Store) UpdateQuestion(_ context.Context, id int64, patch app.QuestionPatch) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if patch.QuestionText != nil {
		q.QuestionText = *patch.QuestionText
	}
	if patch.OptionA != nil {
		q.OptionA = *patch.OptionA
	}
	if patch.OptionB != nil {
		q.OptionB = *patch.OptionB
	}
	if patch.OptionC != nil {
		q.OptionC = *patch.OptionC
	}
	if patch.OptionD != nil {
		q.OptionD = *patch.OptionD
	}
	if patch.OptionE != nil {
		q.OptionE = *patch.OptionE
	}
	if patch.CorrectAnswer != nil {
		q.CorrectAnswer = *patch.CorrectAnswer
	}
	if patch.Explanation != nil {
		q.Explanation = patch.Explanation
	}
	if patch.OrderNumber != nil {
		q.OrderNumber = *patch.OrderNumber
	}
	q.UpdatedAt = time.Now()
	s.questions[id] = q
	return q, nil
}

func (s *Store) DeleteQuestion(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *Store) SetPackageQuestionCount(_ context.Context, packageID int64, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pkg, ok := s.packages[packageID]
	if !ok {
		return domain.ErrPackageNotFound
	}
	pkg.TotalQuestions = count
	pkg.UpdatedAt = time.Now()
	s.packages[packageID] = pkg
	return nil
}

// --- app.SessionStore ---

func (s *Store) CreateSession(_ context.Context, session *domain.QuizSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.ID = s.nextIDLocked()
	s.sessions[session.ID] = *session
	return nil
}

func (s *Store) SessionByID(_ context.Context, id int64) (domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) SessionRecordByID(_ context.Context, id int64) (app.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return app.SessionRecord{}, domain.ErrSessionNotFound
	}
	return app.SessionRecord{Session: session, PackageTitle: s.packages[session.QuizPackageID].Title}, nil
}

func (s *Store) UpdateSession(_ context.Context, id int64, patch app.SessionPatch) (domain.QuizSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateSessionLocked(id, patch)
}

func (s *Store) updateSessionLocked(id int64, patch app.SessionPatch) (domain.QuizSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	if patch.TimeRemainingSeconds != nil {
		session.TimeRemainingSeconds = *patch.TimeRemainingSeconds
	}
	if patch.IsCompleted != nil {
		session.IsCompleted = *patch.IsCompleted
	}
	if patch.CompletedAt != nil {
		session.CompletedAt = patch.CompletedAt
	}
	if patch.TotalScore != nil {
		session.TotalScore = patch.TotalScore
	}
	if patch.TotalCorrect != nil {
		session.TotalCorrect = patch.TotalCorrect
	}
	s.sessions[id] = session
	return session, nil
}

func (s *Store) ActiveSessionByUser(_ context.Context, userID int64) (domain.QuizSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *domain.QuizSession
	for id := range s.sessions {
		session := s.sessions[id]
		if session.UserID != userID || session.IsCompleted {
			continue
		}
		if latest == nil || session.StartedAt.After(latest.StartedAt) {
			copied := session
			latest = &copied
		}
	}
	if latest == nil {
		return domain.QuizSession{}, domain.ErrSessionNotFound
	}
	return *latest, nil
}

func (s *Store) CompletedSessionsByUser(_ context.Context, userID int64) ([]app.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]app.SessionRecord, 0)
	for _, session := range s.sessions {
		if session.UserID != userID || !session.IsCompleted {
			continue
		}
		records = append(records, app.SessionRecord{
			Session:      session,
			PackageTitle: s.packages[session.QuizPackageID].Title,
		})
	}
	sort.Slice(records, func(i, j int) bool {
		ci, cj := records[i].Session.CompletedAt, records[j].Session.CompletedAt
		if ci != nil && cj != nil && !ci.Equal(*cj) {
			return ci.After(*cj)
		}
		return records[i].Session.ID > records[j].Session.ID
	})
	return records, nil
}

func (s *Store) CompleteSession(_ context.Context, id int64, answers []domain.UserAnswer, patch app.SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.updateSessionLocked(id, patch); err != nil {
		return err
	}
	for i := range answers {
		answers[i].ID = s.nextIDLocked()
		s.answers[answers[i].ID] = answers[i]
	}
	return nil
}

func (s *Store) AnswersBySession(_ context.Context, sessionID int64) ([]domain.AnswerDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	details := make([]domain.AnswerDetail, 0)
	for _, answer := range s.answers {
		if answer.SessionID != sessionID {
			continue
		}
		details = append(details, domain.AnswerDetail{
			Question: s.questions[answer.QuestionID],
			Answer:   answer,
		})
	}
	// Insertion order is the bulk-insert order; ids are monotonic.
	sort.Slice(details, func(i, j int) bool { return details[i].Answer.ID < details[j].Answer.ID })
	return details, nil
}

// --- app.StatsReader ---

func (s *Store) UserStatistics(_ context.Context, userID int64) (domain.UserStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.UserStatistics{UserID: userID}
	scoreSum := 0
	for _, session := range s.sessions {
		if session.UserID != userID || !session.IsCompleted || session.CompletedAt == nil {
			continue
		}
		stats.TotalQuizzesTaken++
		if session.TotalCorrect != nil {
			stats.TotalCorrectAnswers += *session.TotalCorrect
		}
		if session.TotalScore != nil {
			scoreSum += *session.TotalScore
			if *session.TotalScore > stats.BestScore {
				stats.BestScore = *session.TotalScore
			}
		}
		minutes := int(session.CompletedAt.Sub(session.StartedAt).Round(time.Minute).Minutes())
		stats.TotalTimeSpentMinutes += minutes
		if stats.LastQuizDate == nil || session.CompletedAt.After(*stats.LastQuizDate) {
			completedAt := *session.CompletedAt
			stats.LastQuizDate = &completedAt
		}
	}
	for _, answer := range s.answers {
		if session, ok := s.sessions[answer.SessionID]; ok && session.UserID == userID {
			stats.TotalQuestionsAnswered++
		}
	}
	if stats.TotalQuizzesTaken > 0 {
		stats.AverageScore = float64(scoreSum) / float64(stats.TotalQuizzesTaken)
	}
	return stats, nil
}
