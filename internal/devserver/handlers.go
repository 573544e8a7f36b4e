package devserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/brizzai/agency-chat/internal/auth/constants"
	"github.com/brizzai/agency-chat/internal/auth/middleware"
	"github.com/brizzai/agency-chat/internal/logger"
	"github.com/brizzai/agency-chat/internal/models"
	"github.com/brizzai/agency-chat/internal/utils"
	"go.uber.org/zap"
)

func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var req models.IdentityExchangeRequest
	if err := utils.ReadJSON(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		s.metrics.signIn("rejected")
		utils.WriteError(w, http.StatusBadRequest, "Token is required")
		return
	}

	user, err := s.credentials.Check(req.Token)
	if err != nil {
		s.metrics.signIn("rejected")
		utils.WriteError(w, http.StatusUnauthorized, "Invalid Google token")
		return
	}

	token, expiresIn, err := s.tokens.Issue(user)
	if err != nil {
		logger.Error("Failed to issue session token", zap.Error(err))
		utils.WriteError(w, http.StatusInternalServerError, "Could not create session")
		return
	}

	s.metrics.signIn("accepted")
	logger.Info("User signed in", zap.String("user_id", user.ID), zap.String("email", user.Email))
	utils.WriteJSON(w, http.StatusOK, models.AuthResponse{
		Message:   "Authentication successful",
		User:      user,
		Token:     token,
		ExpiresIn: expiresIn,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	info, _ := middleware.FromContext(r.Context())
	utils.WriteJSON(w, http.StatusOK, models.VerifyResponse{User: userFrom(info)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	info, _ := middleware.FromContext(r.Context())
	s.tokens.Revoke(info.TokenID)
	logger.Info("User signed out", zap.String("user_id", info.UserID))
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleChatbot(w http.ResponseWriter, r *http.Request) {
	info, _ := middleware.FromContext(r.Context())

	var req models.ChatRequest
	if err := utils.ReadJSON(r, &req); err != nil || strings.TrimSpace(req.Message) == "" {
		utils.WriteError(w, http.StatusBadRequest, "Message is required")
		return
	}

	s.history.Append(info.UserID, models.SenderUser, req.Message)
	s.metrics.messageStored(string(models.SenderUser))

	reply := s.history.Append(info.UserID, models.SenderBot, Reply(req.Message))
	s.metrics.messageStored(string(models.SenderBot))

	utils.WriteJSON(w, http.StatusOK, models.ChatReply{
		Message: reply.Text,
		Extra: map[string]any{
			"id":        reply.ID,
			"timestamp": reply.Timestamp,
		},
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	info, _ := middleware.FromContext(r.Context())

	limit := constants.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	utils.WriteJSON(w, http.StatusOK, models.HistoryResponse{
		Messages: s.history.Recent(info.UserID, limit),
	})
}

func userFrom(info *middleware.AuthInfo) models.User {
	return models.User{
		ID:      info.UserID,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}
}
