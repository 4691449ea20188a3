package delivery

import (
	"net/http"

	authdomain "miinplanner-backend/internal/auth/domain"
	"miinplanner-backend/internal/auth/usecase"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	profiles  *usecase.ProfileUsecase
	issuer    *usecase.JWTVerifier
	onSession func(uid string)
}

// NewAuthHandler creates the auth handler. issuer is nil unless local
// token issuing is enabled.
func NewAuthHandler(profiles *usecase.ProfileUsecase, issuer *usecase.JWTVerifier) *AuthHandler {
	return &AuthHandler{profiles: profiles, issuer: issuer}
}

// OnSession registers fn to run after a session bootstrap, e.g. to drop
// cached data of that user
func (h *AuthHandler) OnSession(fn func(uid string)) *AuthHandler {
	h.onSession = fn
	return h
}

// Me returns the current session without touching the profile store
func (h *AuthHandler) Me(c *gin.Context) {
	session, ok := SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// Session bootstraps the caller's profile and returns it
func (h *AuthHandler) Session(c *gin.Context) {
	session, ok := SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	profile, err := h.profiles.Bootstrap(c.Request.Context(), *session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.onSession != nil {
		h.onSession(session.UID)
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "profile": profile})
}

type localTokenRequest struct {
	UID           string `json:"uid" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	DisplayName   string `json:"displayName"`
	EmailVerified *bool  `json:"emailVerified"`
}

// LocalToken issues a development token when running without Firebase
func (h *AuthHandler) LocalToken(c *gin.Context) {
	if h.issuer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "local tokens are disabled"})
		return
	}

	var req localTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verified := true
	if req.EmailVerified != nil {
		verified = *req.EmailVerified
	}
	token, err := h.issuer.Issue(authdomain.Session{
		UID:           req.UID,
		Email:         req.Email,
		EmailVerified: verified,
		DisplayName:   req.DisplayName,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": token})
}

type registerFCMRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"deviceInfo"`
}

// RegisterFCMToken stores a device token for push notifications
func (h *AuthHandler) RegisterFCMToken(c *gin.Context) {
	session, _ := SessionFrom(c)

	var req registerFCMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.profiles.RegisterDevice(c.Request.Context(), session.UID, req.Token, req.DeviceInfo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token registered"})
}

func (h *AuthHandler) DeleteFCMToken(c *gin.Context) {
	session, _ := SessionFrom(c)
	if err := h.profiles.UnregisterDevice(c.Request.Context(), session.UID, c.Param("token")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
