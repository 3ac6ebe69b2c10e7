package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/saleemjadallah/skinsense-backend-sub002/internal/apperrors"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/auth"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/domain"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/log"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/repo"
	"github.com/saleemjadallah/skinsense-backend-sub002/internal/security"
)

type Handler struct {
	Auth   *auth.Service
	Store  *repo.Store
	Redis  *repo.Redis
	Tokens *security.TokenService

	RateLimitPerMin    int
	StrictRateLimitMin int

	Log *zap.Logger
}

func NewHandler(svc *auth.Service, store *repo.Store, rds *repo.Redis, tokens *security.TokenService, rlPerMin, strictPerMin int, lg *zap.Logger) *Handler {
	return &Handler{
		Auth:               svc,
		Store:              store,
		Redis:              rds,
		Tokens:             tokens,
		RateLimitPerMin:    rlPerMin,
		StrictRateLimitMin: strictPerMin,
		Log:                lg,
	}
}

type authResp struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         *domain.User `json:"user"`
	IsNewUser    bool         `json:"is_new_user"`
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

func toAuthResp(r *auth.Result) authResp {
	return authResp{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresIn:    r.ExpiresIn,
		User:         r.User,
		IsNewUser:    r.IsNewUser,
	}
}

// writeErr maps domain sentinels to HTTP statuses. Unknown errors become an
// opaque 500 so internals never leak into responses.
func (h *Handler) writeErr(c *gin.Context, err error) {
	status := apperrors.StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.WithDD(c.Request.Context(), h.Log).Error("request failed",
			zap.String("route", c.FullPath()), zap.Error(err))
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func reqID(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	s, _ := v.(string)
	return s
}

type registerReq struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

// Register godoc
// @Summary Register with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body registerReq true "register"
// @Success 201 {object} authResp
// @Failure 400 {object} map[string]string
// @Router /api/v1/auth/register [post]
func (h *Handler) Register(c *gin.Context) {
	var in registerReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.Auth.Register(c.Request.Context(), auth.RegisterInput{
		Email:    in.Email,
		Username: in.Username,
		Password: in.Password,
		Name:     in.Name,
	}, reqID(c))
	if err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAuthResp(res))
}

type loginReq struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login godoc
// @Summary Login with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body loginReq true "login"
// @Success 200 {object} authResp
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var in loginReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), in.Email, in.Password, reqID(c))
	if err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toAuthResp(res))
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh godoc
// @Summary Exchange a refresh token for a new pair
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body refreshReq true "refresh"
// @Success 200 {object} tokenResp
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/refresh [post]
func (h *Handler) Refresh(c *gin.Context) {
	var in refreshReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.Auth.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResp{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
	})
}

// Logout godoc
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	// Tokens are stateless; the client discards them.
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

type verifyEmailReq struct {
	Token string `json:"token" binding:"required"`
}

// VerifyEmail godoc
// @Summary Verify email with a signed token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body verifyEmailReq true "verify"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/auth/verify-email [post]
func (h *Handler) VerifyEmail(c *gin.Context) {
	var in verifyEmailReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.Auth.VerifyEmailToken(c.Request.Context(), in.Token); err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully"})
}

type googleReq struct {
	IDToken string `json:"id_token" binding:"required"`
}

// GoogleSignIn godoc
// @Summary Sign in with a Google id_token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body googleReq true "google"
// @Success 200 {object} authResp
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/google [post]
func (h *Handler) GoogleSignIn(c *gin.Context) {
	var in googleReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.Auth.GoogleSignIn(c.Request.Context(), in.IDToken, reqID(c))
	if err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toAuthResp(res))
}

type appleReq struct {
	IdentityToken  string `json:"identity_token" binding:"required"`
	UserIdentifier string `json:"user_identifier" binding:"required"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
}

// AppleSignIn godoc
// @Summary Sign in with an Apple identity token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body appleReq true "apple"
// @Success 200 {object} authResp
// @Failure 401 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Router /api/v1/auth/apple [post]
func (h *Handler) AppleSignIn(c *gin.Context) {
	var in appleReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	res, err := h.Auth.AppleSignIn(c.Request.Context(), auth.AppleSignInInput{
		IdentityToken:  in.IdentityToken,
		UserIdentifier: in.UserIdentifier,
		Email:          in.Email,
		FullName:       in.FullName,
	}, reqID(c))
	if err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toAuthResp(res))
}

type verifyOTPReq struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// VerifyOTP godoc
// @Summary Verify the emailed one-time code
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body verifyOTPReq true "verify-otp"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/auth/verify-otp [post]
func (h *Handler) VerifyOTP(c *gin.Context) {
	var in verifyOTPReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.Auth.VerifyOTP(c.Request.Context(), in.Email, in.OTP, reqID(c)); err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully", "verified": true})
}

type resendOTPReq struct {
	Email   string `json:"email" binding:"required,email"`
	Purpose string `json:"purpose"`
}

// ResendOTP godoc
// @Summary Resend a one-time code
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body resendOTPReq true "resend-otp"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/auth/resend-otp [post]
func (h *Handler) ResendOTP(c *gin.Context) {
	var in resendOTPReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if in.Purpose == "" {
		in.Purpose = auth.OTPPurposeVerification
	}
	if err := h.Auth.ResendOTP(c.Request.Context(), in.Email, in.Purpose, reqID(c)); err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "OTP sent successfully"})
}

type forgotPasswordReq struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword godoc
// @Summary Request a password-reset code
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body forgotPasswordReq true "forgot-password"
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/forgot-password [post]
func (h *Handler) ForgotPassword(c *gin.Context) {
	var in forgotPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.Auth.ForgotPassword(c.Request.Context(), in.Email, reqID(c)); err != nil {
		h.writeErr(c, err)
		return
	}
	// Same body whether or not the email exists.
	c.JSON(http.StatusOK, gin.H{"message": "If the email exists, a reset code has been sent"})
}

type resetPasswordReq struct {
	Email       string `json:"email" binding:"required,email"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ResetPassword godoc
// @Summary Reset password with a one-time code
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body resetPasswordReq true "reset-password"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/auth/reset-password [post]
func (h *Handler) ResetPassword(c *gin.Context) {
	var in resetPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.Auth.ResetPassword(c.Request.Context(), in.Email, in.OTP, in.NewPassword); err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}

// Me godoc
// @Summary Current account
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} domain.User
// @Failure 401 {object} map[string]string
// @Router /api/v1/users/me [get]
func (h *Handler) Me(c *gin.Context) {
	u, err := h.Auth.Me(c.Request.Context(), authUserID(c))
	if err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type preferencesReq struct {
	Gender   string `json:"gender"`
	AgeGroup string `json:"age_group"`
	SkinType string `json:"skin_type"`
}

// UpdatePreferences godoc
// @Summary Update onboarding preferences
// @Tags users
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param payload body preferencesReq true "preferences"
// @Success 200 {object} domain.User
// @Failure 401 {object} map[string]string
// @Router /api/v1/users/me/preferences [put]
func (h *Handler) UpdatePreferences(c *gin.Context) {
	var in preferencesReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	u, err := h.Auth.UpdatePreferences(c.Request.Context(), authUserID(c), domain.OnboardingPreferences{
		Gender:   in.Gender,
		AgeGroup: in.AgeGroup,
		SkinType: in.SkinType,
	})
	if err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// DeactivateMe godoc
// @Summary Deactivate (soft-delete) the current account
// @Tags users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/users/me [delete]
func (h *Handler) DeactivateMe(c *gin.Context) {
	if err := h.Auth.Deactivate(c.Request.Context(), authUserID(c)); err != nil {
		h.writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deactivated"})
}

// Healthz reports degraded when either backing store is unreachable.
func (h *Handler) Healthz(c *gin.Context) {
	if h.Store != nil {
		if err := h.Store.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "mongo: " + err.Error()})
			return
		}
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "redis: " + err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
