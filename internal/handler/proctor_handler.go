package handler

import (
	"errors"
	"net/http"

	"github.com/examgate/examgate-backend/internal/model"
	"github.com/examgate/examgate-backend/internal/response"
	"github.com/examgate/examgate-backend/internal/service"
	"github.com/examgate/examgate-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// ProctorHandler handles proctor login and the authorization handshake over
// a scanned session serial.
type ProctorHandler struct {
	authService    *service.AuthService
	sessionService *service.SessionService
}

// NewProctorHandler creates a new ProctorHandler.
func NewProctorHandler(authService *service.AuthService, sessionService *service.SessionService) *ProctorHandler {
	return &ProctorHandler{
		authService:    authService,
		sessionService: sessionService,
	}
}

// Login godoc
// POST /api/v1/proctor/login
// Validates username + password, returns a proctor JWT.
func (h *ProctorHandler) Login(c *gin.Context) {
	var req model.ProctorLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, err := h.authService.LoginProctor(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"token": token})
}

// CheckSession godoc
// GET /api/v1/proctor/sessions/:serial/check
// Shows who a scanned session serial belongs to and whether authorizing it
// would start the exam or re-admit a running one.
func (h *ProctorHandler) CheckSession(c *gin.Context) {
	res, err := h.sessionService.CheckSession(c.Request.Context(), c.Param("serial"))
	if err != nil {
		failFromServiceErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, res)
}

// AuthorizeSession godoc
// POST /api/v1/proctor/sessions/:serial/authorize
// Approves a scanned session. The first approval for a participant also
// fixes the start instant and the allowed duration.
func (h *ProctorHandler) AuthorizeSession(c *gin.Context) {
	var req model.AuthorizeSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.AuthorizeSession(c.Request.Context(), c.Param("serial"), req.AllowedDurationMinutes); err != nil {
		failFromServiceErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "authorized"})
}
