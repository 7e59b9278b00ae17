package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/talkdigital/courtshoesbackend/config"
	"github.com/talkdigital/courtshoesbackend/models"
	"github.com/talkdigital/courtshoesbackend/repository"
)

// minPasswordLength applies to self-service password changes.
const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)

type AuthHandler struct {
	Cfg            config.Config
	UserRepo       repository.UserRepositoryInterface
	InviteCodeRepo repository.InviteCodeRepositoryInterface
}

func NewAuthHandler(cfg config.Config, userRepo repository.UserRepositoryInterface, inviteCodeRepo repository.InviteCodeRepositoryInterface) *AuthHandler {
	return &AuthHandler{Cfg: cfg, UserRepo: userRepo, InviteCodeRepo: inviteCodeRepo}
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	user, err := h.UserRepo.GetByEmail(payload.Email)
	if err != nil {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	if !user.CheckPassword(payload.Password) {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	expirationTime := time.Now().Add(h.Cfg.JWTExpiry)
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(user.ID),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "courtshoesbackend",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.Cfg.JWTSecret))
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	userForResponse := *user
	userForResponse.PasswordHash = ""

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     tokenString,
		User:      userForResponse,
		ExpiresAt: expirationTime,
	})
}

type RegisterPayload struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	InviteCode string `json:"invite_code"`
}

// Register handles new user registration using an invite code.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}

	if payload.Email == "" || payload.Password == "" || payload.InviteCode == "" {
		http.Error(w, "Email, password, and invite code are required", http.StatusBadRequest)
		return
	}

	inviteCode, err := h.InviteCodeRepo.GetByCode(payload.InviteCode)
	if err != nil {
		http.Error(w, "Invalid or expired invite code", http.StatusForbidden)
		return
	}

	if !inviteCode.IsValid() {
		http.Error(w, "Invite code is not valid (expired, inactive, or max uses reached)", http.StatusForbidden)
		return
	}

	newUser := &models.User{Email: payload.Email}
	if err := newUser.SetPassword(payload.Password); err != nil {
		http.Error(w, "Failed to hash password: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.UserRepo.Create(newUser); err != nil {
		http.Error(w, "Failed to create user: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.InviteCodeRepo.IncrementUses(inviteCode.ID); err != nil {
		// user exists either way; the code just keeps an extra use
		log.Printf("User %s created but failed to increment uses for invite code %s (ID: %d): %v", newUser.Email, inviteCode.Code, inviteCode.ID, err)
	}

	writeJSON(w, http.StatusCreated, map[string]string{"message": "User registered successfully. Please log in."})
}

// CurrentUser retrieves the authenticated user from the request context.
// This handler should be protected by the AuthMiddleware.
func (h *AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		http.Error(w, "Could not retrieve user from context", http.StatusInternalServerError)
		return
	}

	userForResponse := *user
	userForResponse.PasswordHash = ""

	writeJSON(w, http.StatusOK, userForResponse)
}

type UpdateEmailPayload struct {
	Email string `json:"email"`
}

// UpdateEmail lets the authenticated user change their own email address.
func (h *AuthHandler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		http.Error(w, "Could not retrieve user from context", http.StatusInternalServerError)
		return
	}

	var payload UpdateEmailPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if !emailPattern.MatchString(payload.Email) {
		http.Error(w, "A valid email address is required", http.StatusBadRequest)
		return
	}

	if payload.Email != user.Email {
		existing, err := h.UserRepo.GetByEmail(payload.Email)
		if err == nil && existing.ID != user.ID {
			http.Error(w, "This email is already in use by another account", http.StatusConflict)
			return
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Failed to verify email availability: "+err.Error(), http.StatusInternalServerError)
			return
		}

		user.Email = payload.Email
		if err := h.UserRepo.Update(user); err != nil {
			http.Error(w, "Failed to update email: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	userForResponse := *user
	userForResponse.PasswordHash = ""

	writeJSON(w, http.StatusOK, userForResponse)
}

type UpdatePasswordPayload struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdatePassword lets the authenticated user change their own password after
// confirming the current one.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok || user == nil {
		http.Error(w, "Could not retrieve user from context", http.StatusInternalServerError)
		return
	}

	var payload UpdatePasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if payload.CurrentPassword == "" || payload.NewPassword == "" {
		http.Error(w, "Current and new password are required", http.StatusBadRequest)
		return
	}
	if len(payload.NewPassword) < minPasswordLength {
		http.Error(w, fmt.Sprintf("New password must be at least %d characters", minPasswordLength), http.StatusBadRequest)
		return
	}

	if !user.CheckPassword(payload.CurrentPassword) {
		http.Error(w, "Current password is incorrect", http.StatusForbidden)
		return
	}

	if err := user.SetPassword(payload.NewPassword); err != nil {
		http.Error(w, "Failed to hash password: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := h.UserRepo.Update(user); err != nil {
		http.Error(w, "Failed to update password: "+err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}
