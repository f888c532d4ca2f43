package http

import (
	"net/http"

	"exam-practice-service/internal/domain"
)

type startSessionRequest struct {
	QuizPackageID int64 `json:"quizPackageId" validate:"required,gt=0"`
}

type updateSessionRequest struct {
	TimeRemainingSeconds *int  `json:"timeRemainingSeconds" validate:"omitempty,gte=0"`
	IsCompleted          *bool `json:"isCompleted"`
}

// Answers may be empty: submitting nothing still completes the session with a
// zero score.
type completeSessionRequest struct {
	Answers []answerSubmission `json:"answers" validate:"dive"`
}

type answerSubmission struct {
	QuestionID     int64  `json:"questionId" validate:"required,gt=0"`
	SelectedAnswer string `json:"selectedAnswer" validate:"required,oneof=A B C D E"`
}

func (a *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if !a.decode(w, r, &req) {
		return
	}
	session, err := a.sessions.Start(r.Context(), identityFrom(r.Context()).UserID, req.QuizPackageID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) handleActiveSession(w http.ResponseWriter, r *http.Request) {
	session, err := a.sessions.ActiveSession(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateSessionRequest
	if !a.decode(w, r, &req) {
		return
	}
	session, err := a.sessions.Update(r.Context(), id, req.TimeRemainingSeconds, req.IsCompleted)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req completeSessionRequest
	if !a.decode(w, r, &req) {
		return
	}
	submissions := make([]domain.AnswerSubmission, len(req.Answers))
	for i, answer := range req.Answers {
		submissions[i] = domain.AnswerSubmission{
			QuestionID:     answer.QuestionID,
			SelectedAnswer: domain.AnswerOption(answer.SelectedAnswer),
		}
	}
	result, err := a.sessions.Complete(r.Context(), id, submissions)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleResults(w http.ResponseWriter, r *http.Request) {
	results, err := a.sessions.Results(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (a *API) handleResultDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	details, err := a.sessions.ResultDetails(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (a *API) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := a.sessions.Statistics(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
