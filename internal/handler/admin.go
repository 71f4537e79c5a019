package handler

// AdminHandler owns the staff authentication and account-management
// endpoints under /api/admin.
//
// COOKIE VS HEADER:
// Login issues the JWT in the response body AND as an HttpOnly cookie.
// Browser clients rely on the cookie (JavaScript never touches the
// token); API clients put the body token in the Authorization header.
// The auth middleware accepts either.

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/phm-oh/chatqa-backend/internal/apperror"
	"github.com/phm-oh/chatqa-backend/internal/auth"
	"github.com/phm-oh/chatqa-backend/internal/model"
	"github.com/phm-oh/chatqa-backend/internal/repository"
	"github.com/phm-oh/chatqa-backend/internal/service"
)

// AdminHandler serves the /api/admin endpoints.
type AdminHandler struct {
	auths        *service.AuthService
	validate     *validator.Validate
	logger       *slog.Logger
	cookieTTL    time.Duration
	secureCookie bool
}

// NewAdminHandler creates an AdminHandler. secureCookie should be true in
// production so the token cookie is HTTPS-only.
func NewAdminHandler(auths *service.AuthService, cookieTTL time.Duration, secureCookie bool, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		auths:        auths,
		validate:     validator.New(),
		logger:       logger,
		cookieTTL:    cookieTTL,
		secureCookie: secureCookie,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Admin model.AdminProjection `json:"admin"`
	Token string                `json:"token"`
}

// HandleLogin authenticates a staff member.
//
// HTTP: POST /api/admin/login
// REQUEST BODY: {"username": "alice", "password": "..."}
//
// The username field also accepts an email address. On success the token
// is set as an HttpOnly cookie and returned in the body.
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperror.ValidationFailed("", "username and password are required"))
		return
	}

	res, err := h.auths.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, loginResponse{Admin: res.Admin, Token: res.Token})
}

// HandleLogout clears the token cookie.
//
// HTTP: POST /api/admin/logout
//
// JWTs are stateless — there is no server-side session to destroy. The
// logout is purely "forget the cookie"; the token itself stays valid
// until it expires.
func (h *AdminHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated account.
//
// HTTP: GET /api/admin/me
func (h *AdminHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	admin, ok := auth.AdminFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, admin.Projection())
}

type updateProfileRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required"`
}

// HandleUpdateProfile changes the caller's email and full name.
//
// HTTP: PUT /api/admin/profile
func (h *AdminHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	admin, ok := auth.AdminFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperror.ValidationFailed("", "a valid email and a full name are required"))
		return
	}

	updated, err := h.auths.UpdateProfile(r.Context(), admin.ID, req.Email, req.FullName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Projection())
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// HandleChangePassword replaces the caller's password.
//
// HTTP: PUT /api/admin/change-password
func (h *AdminHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	admin, ok := auth.AdminFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperror.ValidationFailed("newPassword", "new password must be at least 6 characters"))
		return
	}

	if err := h.auths.ChangePassword(r.Context(), admin.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"fullName" validate:"required"`
	Role     string `json:"role"`
}

// HandleRegister creates a new staff account. The route is behind
// RequireRole(super_admin).
//
// HTTP: POST /api/admin/register
func (h *AdminHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, apperror.ValidationFailed("", "username, email, password and full name are required"))
		return
	}

	admin, err := h.auths.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, admin.Projection())
}

// HandleList returns a page of staff accounts.
//
// HTTP: GET /api/admin/list?page=1&limit=10&role=moderator&isActive=true
func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, opts := pageParams(r)

	var filter repository.AdminFilter
	if v := r.URL.Query().Get("role"); v != "" {
		role := model.Role(v)
		if !role.Valid() {
			writeError(w, apperror.ValidationFailed("role", "unknown role"))
			return
		}
		filter.Role = &role
	}
	if v := r.URL.Query().Get("isActive"); v != "" {
		active := v == "true"
		filter.IsActive = &active
	}

	admins, total, err := h.auths.List(r.Context(), filter, opts)
	if err != nil {
		writeError(w, err)
		return
	}

	projections := make([]model.AdminProjection, len(admins))
	for i := range admins {
		projections[i] = admins[i].Projection()
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Data:       projections,
		Pagination: newPagination(page, opts.Limit, total),
	})
}

// HandleToggleStatus flips the active flag of another account. Behind
// RequireRole(super_admin).
//
// HTTP: PATCH /api/admin/{id}/toggle-status
func (h *AdminHandler) HandleToggleStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.AdminFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthenticated("authentication required"))
		return
	}
	id := r.PathValue("id")
	if id == "" {
		writeError(w, apperror.ValidationFailed("id", "admin ID is required"))
		return
	}

	updated, err := h.auths.ToggleActive(r.Context(), caller.ID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated.Projection())
}

// HandleStats returns per-role account counts. Behind
// RequireRole(super_admin).
//
// HTTP: GET /api/admin/stats
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.auths.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
