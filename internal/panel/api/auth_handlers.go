package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.Service.Login(req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":         result.Token,
		"requiresTotp":  result.RequiresTOTP,
		"userId":        result.UserID,
	})
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := s.Service.Register(req.Username, req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

func (s *Server) handleForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.Service.ForgotPassword(req.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

func (s *Server) handleResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := s.Service.ResetPassword(req.Token, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type acceptInviteRequest struct {
	Token    string `json:"token" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleAcceptInvite(c *gin.Context) {
	var req acceptInviteRequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := s.Service.AcceptInvite(req.Token, req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

type inviteRequest struct {
	Email  string     `json:"email" binding:"required"`
	RoleID *uuid.UUID `json:"roleId"`
}

func (s *Server) handleInvite(c *gin.Context) {
	var req inviteRequest
	if !bindJSON(c, &req) {
		return
	}
	invitedBy, err := currentUserID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	invite, err := s.Service.Invite(req.Email, req.RoleID, invitedBy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": invite.Token, "expiresAt": invite.ExpiresAt})
}

func (s *Server) handleMe(c *gin.Context) {
	userID, err := currentUserID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	user, err := s.Service.GetUser(userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

type setup2FARequest struct {
	Password string `json:"password" binding:"required"`
}

func (s *Server) handleSetup2FA(c *gin.Context) {
	var req setup2FARequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := currentUserID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	setup, err := s.Service.SetupTOTP(userID, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"secret":     setup.Secret,
		"otpauthUrl": setup.OTPAuthURL,
		"qrDataUri":  setup.QRDataURI,
	})
}

type verify2FARequest struct {
	Secret string `json:"secret" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

func (s *Server) handleVerify2FA(c *gin.Context) {
	var req verify2FARequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := currentUserID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	backupCodes, err := s.Service.VerifyTOTP(userID, req.Secret, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backupCodes": backupCodes})
}

type disable2FARequest struct {
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

func (s *Server) handleDisable2FA(c *gin.Context) {
	var req disable2FARequest
	if !bindJSON(c, &req) {
		return
	}
	userID, err := currentUserID(c)
	if err != nil {
		writeError(c, err)
		return
	}
	if err := s.Service.DisableTOTP(userID, req.Password, req.Code); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type validate2FARequest struct {
	UserID uuid.UUID `json:"userId" binding:"required"`
	Code   string    `json:"code" binding:"required"`
}

func (s *Server) handleValidate2FA(c *gin.Context) {
	var req validate2FARequest
	if !bindJSON(c, &req) {
		return
	}
	token, err := s.Service.ValidateLogin2FA(req.UserID, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
