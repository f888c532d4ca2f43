package http

import (
	"net/http"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
)

type createPackageRequest struct {
	Title            string  `json:"title" validate:"required,min=1"`
	Description      *string `json:"description"`
	TimeLimitMinutes int     `json:"timeLimitMinutes" validate:"omitempty,gt=0"`
}

type updatePackageRequest struct {
	Title            *string `json:"title" validate:"omitempty,min=1"`
	Description      *string `json:"description"`
	TimeLimitMinutes *int    `json:"timeLimitMinutes" validate:"omitempty,gt=0"`
	IsActive         *bool   `json:"isActive"`
}

type createQuestionRequest struct {
	QuizPackageID int64   `json:"quizPackageId" validate:"required,gt=0"`
	QuestionText  string  `json:"questionText" validate:"required,min=1"`
	OptionA       string  `json:"optionA" validate:"required,min=1"`
	OptionB       string  `json:"optionB" validate:"required,min=1"`
	OptionC       string  `json:"optionC" validate:"required,min=1"`
	OptionD       string  `json:"optionD" validate:"required,min=1"`
	OptionE       string  `json:"optionE" validate:"required,min=1"`
	CorrectAnswer string  `json:"correctAnswer" validate:"required,oneof=A B C D E"`
	Explanation   *string `json:"explanation"`
	OrderNumber   int     `json:"orderNumber" validate:"required,gt=0"`
}

type updateQuestionRequest struct {
	QuestionText  *string `json:"questionText" validate:"omitempty,min=1"`
	OptionA       *string `json:"optionA" validate:"omitempty,min=1"`
	OptionB       *string `json:"optionB" validate:"omitempty,min=1"`
	OptionC       *string `json:"optionC" validate:"omitempty,min=1"`
	OptionD       *string `json:"optionD" validate:"omitempty,min=1"`
	OptionE       *string `json:"optionE" validate:"omitempty,min=1"`
	CorrectAnswer *string `json:"correctAnswer" validate:"omitempty,oneof=A B C D E"`
	Explanation   *string `json:"explanation"`
	OrderNumber   *int    `json:"orderNumber" validate:"omitempty,gt=0"`
}

func (a *API) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var req createPackageRequest
	if !a.decode(w, r, &req) {
		return
	}
	pkg, err := a.catalog.CreatePackage(r.Context(), identityFrom(r.Context()), req.Title, req.Description, req.TimeLimitMinutes)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pkg)
}

func (a *API) handleListPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := a.catalog.Packages(r.Context(), identityFrom(r.Context()))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, packages)
}

func (a *API) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	pkg, err := a.catalog.Package(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (a *API) handleUpdatePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updatePackageRequest
	if !a.decode(w, r, &req) {
		return
	}
	pkg, err := a.catalog.UpdatePackage(r.Context(), identityFrom(r.Context()), id, app.PackagePatch{
		Title:            req.Title,
		Description:      req.Description,
		TimeLimitMinutes: req.TimeLimitMinutes,
		IsActive:         req.IsActive,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pkg)
}

func (a *API) handleDeletePackage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := a.catalog.DeletePackage(r.Context(), identityFrom(r.Context()), id); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	// view=quiz serves the answer-stripped set quiz takers see.
	if r.URL.Query().Get("view") == "quiz" {
		questions, err := a.catalog.QuizQuestions(r.Context(), id)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, questions)
		return
	}

	if !identityFrom(r.Context()).IsAdmin() {
		a.writeServiceError(w, domain.ErrForbidden)
		return
	}
	questions, err := a.catalog.Questions(r.Context(), id)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (a *API) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req createQuestionRequest
	if !a.decode(w, r, &req) {
		return
	}
	question, err := a.catalog.CreateQuestion(r.Context(), identityFrom(r.Context()), domain.Question{
		QuizPackageID: req.QuizPackageID,
		QuestionText:  req.QuestionText,
		OptionA:       req.OptionA,
		OptionB:       req.OptionB,
		OptionC:       req.OptionC,
		OptionD:       req.OptionD,
		OptionE:       req.OptionE,
		CorrectAnswer: domain.AnswerOption(req.CorrectAnswer),
		Explanation:   req.Explanation,
		OrderNumber:   req.OrderNumber,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, question)
}

func (a *API) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateQuestionRequest
	if !a.decode(w, r, &req) {
		return
	}
	patch := app.QuestionPatch{
		QuestionText: req.QuestionText,
		OptionA:      req.OptionA,
		OptionB:      req.OptionB,
		OptionC:      req.OptionC,
		OptionD:      req.OptionD,
		OptionE:      req.OptionE,
		Explanation:  req.Explanation,
		OrderNumber:  req.OrderNumber,
	}
	if req.CorrectAnswer != nil {
		answer := domain.AnswerOption(*req.CorrectAnswer)
		patch.CorrectAnswer = &answer
	}
	question, err := a.catalog.UpdateQuestion(r.Context(), identityFrom(r.Context()), id, patch)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, question)
}

func (a *API) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := a.catalog.DeleteQuestion(r.Context(), identityFrom(r.Context()), id); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
