package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/examgate/examgate-backend/internal/middleware"
	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// ExamHandler handles the participant-facing exam endpoints: public exam
// lookup, admission, the authorization poll, questions, answers, and submit.
type ExamHandler struct {
	sessionService  *service.SessionService
	questionService *service.QuestionService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(sessionService *service.SessionService, questionService *service.QuestionService) *ExamHandler {
	return &ExamHandler{
		sessionService:  sessionService,
		questionService: questionService,
	}
}

// GetExam godoc
// GET /api/v1/exams/:serial
// Public lookup of an open exam, used by the admission page.
func (h *ExamHandler) GetExam(c *gin.Context) {
	exam, err := h.sessionService.GetOpenExam(c.Request.Context(), c.Param("serial"))
	if err != nil {
		failFromServiceErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam": model.PublicExam{
			Serial:                 exam.Serial,
			Name:                   exam.Name,
			DefaultDurationMinutes: exam.DefaultDurationMinutes,
		},
	})
}

// StartExam godoc
// POST /api/v1/exams/:serial/start
// Admits a participant by name (and password, when set) and returns the exam
// token plus the session serial to present to a proctor.
func (h *ExamHandler) StartExam(c *gin.Context) {
	var req model.StartExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	res, err := h.sessionService.StartExam(c.Request.Context(), c.Param("serial"), req.Name, req.Password)
	if err != nil {
		failFromServiceErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// CheckAuthorization godoc
// GET /api/v1/exam-session/:serial/check
// The 1s authorization poll. 200 means the token's session is the latest
// authorized one; 404 means keep waiting; 400 means already submitted.
func (h *ExamHandler) CheckAuthorization(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.sessionService.CheckAuthorization(c.Request.Context(), claims, c.Param("serial")); err != nil {
		failFromServiceErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"authorized": true})
}

// GetSessionQuestions godoc
// GET /api/v1/exam-session/:serial/questions
// Returns the question id set plus start instant and duration for an active
// attempt. Content is fetched per question.
func (h *ExamHandler) GetSessionQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	participant, _, err := h.sessionService.ValidateActiveSession(c.Request.Context(), claims, c.Param("serial"))
	if err != nil {
		failFromServiceErr(c, err)
		return
	}

	questions, err := h.questionService.GetSessionQuestions(c.Request.Context(), participant)
	if err != nil {
		failFromServiceErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, questions)
}

// GetSessionQuestion godoc
// GET /api/v1/exam-session/:serial/questions/:id
// Returns one question with options and the current saved answer.
func (h *ExamHandler) GetSessionQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	questionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	participant, _, err := h.sessionService.ValidateActiveSession(c.Request.Context(), claims, c.Param("serial"))
	if err != nil {
		failFromServiceErr(c, err)
		return
	}

	question, err := h.questionService.GetSessionQuestion(c.Request.Context(), participant, questionID)
	if err != nil {
		failFromServiceErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, question)
}

// SaveAnswer godoc
// POST /api/v1/exam-session/:serial/questions/:id
// Saves (or overwrites) the participant's answer for one question.
func (h *ExamHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	questionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	participant, _, err := h.sessionService.ValidateActiveSession(c.Request.Context(), claims, c.Param("serial"))
	if err != nil {
		failFromServiceErr(c, err)
		return
	}

	if err := h.questionService.SaveAnswer(c.Request.Context(), participant, questionID, req.McqOptionID); err != nil {
		failFromServiceErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// SubmitExam godoc
// POST /api/v1/exam-session/:serial/submit
// Finishes the attempt. Idempotence is the service's concern; a repeat
// submit reads as ALREADY_SUBMITTED.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.sessionService.SubmitExam(c.Request.Context(), claims, c.Param("serial")); err != nil {
		failFromServiceErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "submitted"})
}

// failFromServiceErr maps domain errors onto HTTP statuses and error codes.
func failFromServiceErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrExamNotFound)
	case errors.Is(err, service.ErrParticipantNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrParticipantNotFound)
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)
	case errors.Is(err, service.ErrOptionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrOptionNotFound)
	case errors.Is(err, service.ErrAlreadySubmitted):
		response.Fail(c, http.StatusBadRequest, response.ErrAlreadySubmitted)
	case errors.Is(err, service.ErrExamNotStarted):
		response.Fail(c, http.StatusBadRequest, response.ErrExamNotStarted)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
