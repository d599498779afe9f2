package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"cardflow/internal/api"
	"cardflow/internal/config"
	"cardflow/internal/kanban"
	"cardflow/internal/logging"
	"cardflow/internal/services"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	boards *api.BoardService
	cards  *api.CardService
	store  *kanban.Store

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	mux := http.NewServeMux()
	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		boards: d.boards,
		cards:  d.cards,
		store:  d.store,
	}

	token := strings.TrimSpace(cfg.Paths.APIToken)
	mux.HandleFunc("/api/status", authMiddleware(token, srv.handleStatus))
	mux.HandleFunc("/api/users", authMiddleware(token, srv.handleUsers))
	mux.HandleFunc("/api/boards", authMiddleware(token, srv.handleBoards))
	mux.HandleFunc("/api/boards/", authMiddleware(token, srv.handleBoard))
	mux.HandleFunc("/api/cards/", authMiddleware(token, srv.handleCard))
	mux.HandleFunc("/api/locks/sweep", authMiddleware(token, srv.handleLockSweep))

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", slog.String("error", err.Error()))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		BoardCount:   status.BoardCount,
		Providers:    status.Providers,
	})
}

func (s *apiServer) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.CreateUserRequest
	if !s.decode(w, r, &req) {
		return
	}
	role, ok := kanban.ParseRole(req.Role)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown role %q", req.Role))
		return
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, "user id and name are required")
		return
	}
	user, err := s.store.CreateUser(r.Context(), &kanban.User{
		ID:   strings.TrimSpace(req.ID),
		Name: strings.TrimSpace(req.Name),
		Role: role,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, api.FromUser(user))
}

func (s *apiServer) handleBoards(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		boards, err := s.boards.List(r.Context(), user)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.BoardListResponse{Boards: boards})
	case http.MethodPost:
		var req api.CreateBoardRequest
		if !s.decode(w, r, &req) {
			return
		}
		board, err := s.boards.Create(r.Context(), user, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, board)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleBoard(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	publicID, action := splitResourcePath(r.URL.Path, "/api/boards/")
	if publicID == "" {
		s.writeError(w, http.StatusNotFound, "board not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		board, err := s.boards.Get(r.Context(), user, publicID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, board)
	case "cards":
		s.handleBoardCards(w, r, user, publicID)
	case "counts":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		counts, err := s.boards.StageCounts(r.Context(), user, publicID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.StageCountsResponse{Counts: counts})
	case "share":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req api.ShareRequest
		if !s.decode(w, r, &req) {
			return
		}
		board, err := s.boards.Share(r.Context(), user, publicID, strings.TrimSpace(req.UserID))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, board)
	case "audit":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		entries, err := s.boards.Audit(r.Context(), user, publicID, queryLimit(r))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.AuditListResponse{Entries: entries})
	default:
		s.writeError(w, http.StatusNotFound, "board resource not found")
	}
}

func (s *apiServer) handleBoardCards(w http.ResponseWriter, r *http.Request, user *kanban.User, publicID string) {
	switch r.Method {
	case http.MethodGet:
		cards, err := s.cards.List(r.Context(), user, publicID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.CardListResponse{Cards: cards})
	case http.MethodPost:
		var req api.CreateCardRequest
		if !s.decode(w, r, &req) {
			return
		}
		card, err := s.cards.Create(r.Context(), user, publicID, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, card)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleCard(w http.ResponseWriter, r *http.Request) {
	user, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	idStr, action := splitResourcePath(r.URL.Path, "/api/cards/")
	cardID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || cardID <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid card id")
		return
	}
	r = r.WithContext(services.WithCardID(r.Context(), cardID))
	logging.WithContext(r.Context(), s.log()).Debug("card request", slog.String("action", action), slog.String("method", r.Method))

	switch action {
	case "":
		s.handleCardRoot(w, r, user, cardID)
	case "move":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req api.MoveCardRequest
		if !s.decode(w, r, &req) {
			return
		}
		card, err := s.cards.Move(r.Context(), user, cardID, req.TargetStage)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, card)
	case "lock":
		s.handleCardLock(w, r, user, cardID)
	case "lock/refresh":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		lock, err := s.cards.RefreshLock(r.Context(), user, cardID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, lock)
	case "translate/execute":
		s.handleTranslateStep(w, r, func(ctx context.Context) (api.Card, error) {
			var req api.ExecuteStepRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return api.Card{}, services.Wrap(services.ErrValidation, "api-server", "execute step", "invalid request body", err)
			}
			return s.cards.ExecuteStep(ctx, user, cardID, req)
		})
	case "translate/manual":
		s.handleTranslateStep(w, r, func(ctx context.Context) (api.Card, error) {
			var req api.ManualStepRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return api.Card{}, services.Wrap(services.ErrValidation, "api-server", "manual step", "invalid request body", err)
			}
			return s.cards.ManualStep(ctx, user, cardID, req)
		})
	case "translate/approve":
		s.handleTranslateStep(w, r, func(ctx context.Context) (api.Card, error) {
			var req api.ApproveStepRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return api.Card{}, services.Wrap(services.ErrValidation, "api-server", "approve step", "invalid request body", err)
			}
			return s.cards.ApproveStep(ctx, user, cardID, req)
		})
	case "audit":
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		entries, err := s.cards.Audit(r.Context(), user, cardID, queryLimit(r))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.AuditListResponse{Entries: entries})
	default:
		s.writeError(w, http.StatusNotFound, "card resource not found")
	}
}

func (s *apiServer) handleCardRoot(w http.ResponseWriter, r *http.Request, user *kanban.User, cardID int64) {
	switch r.Method {
	case http.MethodGet:
		card, err := s.cards.Get(r.Context(), user, cardID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, card)
	case http.MethodPatch, http.MethodPut:
		var req api.UpdateCardRequest
		if !s.decode(w, r, &req) {
			return
		}
		card, err := s.cards.Update(r.Context(), user, cardID, req)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, card)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleCardLock(w http.ResponseWriter, r *http.Request, user *kanban.User, cardID int64) {
	switch r.Method {
	case http.MethodGet:
		lock, err := s.cards.LockStatus(r.Context(), user, cardID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, lock)
	case http.MethodPost:
		lock, err := s.cards.AcquireLock(r.Context(), user, cardID)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, lock)
	case http.MethodDelete:
		if err := s.cards.ReleaseLock(r.Context(), user, cardID); err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.LockStatus{})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleLockSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if _, ok := s.requireUser(w, r); !ok {
		return
	}
	swept, err := s.daemon.locks.SweepExpired(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.SweepResult{Swept: swept})
}

func (s *apiServer) handleTranslateStep(w http.ResponseWriter, r *http.Request, run func(context.Context) (api.Card, error)) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	card, err := run(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, card)
}

// requireUser resolves the caller identity from the X-User-ID header. The
// bearer token authenticates the client; this header identifies which
// registered user the client is acting as.
func (s *apiServer) requireUser(w http.ResponseWriter, r *http.Request) (*kanban.User, bool) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if userID == "" {
		s.writeError(w, http.StatusBadRequest, "X-User-ID header is required")
		return nil, false
	}
	user, err := s.store.GetUser(r.Context(), userID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if user == nil {
		s.writeError(w, http.StatusUnauthorized, fmt.Sprintf("unknown user %q", userID))
		return nil, false
	}
	ctx := services.WithUserID(r.Context(), user.ID)
	*r = *r.WithContext(services.WithRequestID(ctx, uuid.NewString()))
	return user, true
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// splitResourcePath separates "/api/x/{id}/rest" into id and rest.
func splitResourcePath(path, prefix string) (string, string) {
	trimmed := strings.TrimPrefix(path, prefix)
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		return "", ""
	}
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func queryLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return limit
}

// httpStatusFor maps service error markers onto HTTP status codes.
func httpStatusFor(err error) int {
	switch {
	case services.IsValidation(err):
		return http.StatusBadRequest
	case services.IsDenied(err):
		return http.StatusForbidden
	case services.IsNotFound(err):
		return http.StatusNotFound
	case services.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, services.ErrExternalTool):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	s.writeError(w, httpStatusFor(err), err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(slog.String("component", "api-server"))
	}
	return logging.NewNop()
}
