package domain

import "time"

// Role controls access to the admin-only catalog operations.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether the role is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// AnswerOption is one of the five choices a question offers.
type AnswerOption string

const (
	OptionA AnswerOption = "A"
	OptionB AnswerOption = "B"
	OptionC AnswerOption = "C"
	OptionD AnswerOption = "D"
	OptionE AnswerOption = "E"
)

// Valid reports whether the option is one of A through E.
func (o AnswerOption) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD, OptionE:
		return true
	}
	return false
}

// User is an account that can take quizzes; admins also manage the catalog.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// QuizPackage is a named, timed set of questions. TotalQuestions is a
// denormalized counter kept in sync on question create/delete. Packages are
// soft-deleted by flipping IsActive; rows are never removed.
type QuizPackage struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description"`
	TimeLimitMinutes int       `json:"timeLimitMinutes"`
	TotalQuestions   int       `json:"totalQuestions"`
	IsActive         bool      `json:"isActive"`
	CreatedBy        int64     `json:"createdBy"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Question belongs to exactly one package. OrderNumber is advisory display
// ordering assigned by the author, not guaranteed unique.
type Question struct {
	ID            int64        `json:"id"`
	QuizPackageID int64        `json:"quizPackageId"`
	QuestionText  string       `json:"questionText"`
	OptionA       string       `json:"optionA"`
	OptionB       string       `json:"optionB"`
	OptionC       string       `json:"optionC"`
	OptionD       string       `json:"optionD"`
	OptionE       string       `json:"optionE"`
	CorrectAnswer AnswerOption `json:"correctAnswer,omitempty"`
	Explanation   *string      `json:"explanation,omitempty"`
	OrderNumber   int          `json:"orderNumber"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// StripAnswer returns a copy safe to hand to a quiz taker.
func (q Question) StripAnswer() Question {
	q.CorrectAnswer = ""
	q.Explanation = nil
	return q
}

// QuizSession is one user's timed attempt at a package. Score fields stay nil
// until completion; TotalQuestions is snapshotted at start.
type QuizSession struct {
	ID                   int64      `json:"id"`
	UserID               int64      `json:"userId"`
	QuizPackageID        int64      `json:"quizPackageId"`
	StartedAt            time.Time  `json:"startedAt"`
	CompletedAt          *time.Time `json:"completedAt"`
	TimeRemainingSeconds int        `json:"timeRemainingSeconds"`
	TotalScore           *int       `json:"totalScore"`
	TotalCorrect         *int       `json:"totalCorrect"`
	TotalQuestions       int        `json:"totalQuestions"`
	IsCompleted          bool       `json:"isCompleted"`
}

// UserAnswer is one submitted choice. Rows are written in bulk at completion
// and never updated afterwards.
type UserAnswer struct {
	ID             int64        `json:"id"`
	SessionID      int64        `json:"sessionId"`
	QuestionID     int64        `json:"questionId"`
	SelectedAnswer AnswerOption `json:"selectedAnswer"`
	IsCorrect      bool         `json:"isCorrect"`
	AnsweredAt     time.Time    `json:"answeredAt"`
}

// AnswerSubmission is the scoring input for a single question.
type AnswerSubmission struct {
	QuestionID     int64        `json:"questionId"`
	SelectedAnswer AnswerOption `json:"selectedAnswer"`
}

// QuizResult summarizes a completed session.
type QuizResult struct {
	SessionID             int64     `json:"sessionId"`
	UserID                int64     `json:"userId"`
	QuizPackageTitle      string    `json:"quizPackageTitle"`
	TotalQuestions        int       `json:"totalQuestions"`
	TotalCorrect          int       `json:"totalCorrect"`
	TotalScore            int       `json:"totalScore"`
	CompletionTimeMinutes int       `json:"completionTimeMinutes"`
	CompletedAt           time.Time `json:"completedAt"`
}

// AnswerDetail pairs a question with the answer the user gave it.
type AnswerDetail struct {
	Question Question   `json:"question"`
	Answer   UserAnswer `json:"answer"`
}

// QuizResultDetails is the review view: the summary plus every answered question.
type QuizResultDetails struct {
	QuizResult
	Answers []AnswerDetail `json:"answers"`
}

// UserStatistics aggregates a user's completed sessions for the dashboard.
type UserStatistics struct {
	UserID                 int64      `json:"userId"`
	TotalQuizzesTaken      int        `json:"totalQuizzesTaken"`
	TotalQuestionsAnswered int        `json:"totalQuestionsAnswered"`
	TotalCorrectAnswers    int        `json:"totalCorrectAnswers"`
	AverageScore           float64    `json:"averageScore"`
	BestScore              int        `json:"bestScore"`
	TotalTimeSpentMinutes  int        `json:"totalTimeSpentMinutes"`
	LastQuizDate           *time.Time `json:"lastQuizDate"`
}
