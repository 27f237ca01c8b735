package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	reachfive "github.com/ReachFive/identity-android-sdk-sub000"
	"github.com/ReachFive/identity-android-sdk-sub000/client"
)

const (
	sessionName = "reachfive-demo"
	tokenKey    = "token"
)

var errNoRedirect = errors.New("no response to redirect")

// Server exposes the login flows over HTTP. The client keeps one pending web
// flow at a time, so concurrent hosted page logins replace each other.
type Server struct {
	Client *client.Client

	cfg      reachfive.Config
	sessions sessions.Store
	logger   *slog.Logger
}

// SessionStore keeps sessions on disk, under dir or a temp dir
func SessionStore(dir string, key []byte) sessions.Store {
	if dir == "" {
		dir = os.TempDir()
	}
	store := sessions.NewFilesystemStore(dir, key)
	store.Options = &sessions.Options{Path: "/", MaxAge: 86400, HttpOnly: true, SameSite: http.SameSiteLaxMode}
	return store
}

func NewServer(cfg reachfive.Config, store sessions.Store, logger *slog.Logger) *Server {
	return &Server{cfg: cfg, sessions: store, logger: logger}
}

// Router returns the HTTP routes of the demo
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleHome).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handlePasswordLogin).Methods(http.MethodPost)
	r.HandleFunc("/login/web", s.handleWebLogin).Methods(http.MethodGet)
	r.HandleFunc("/callback", s.handleCallback).Methods(http.MethodGet)
	r.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)
	r.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	return r
}

type redirectKey struct{}

// OpenURL implements reachfive.Browser by redirecting the current response
func (s *Server) OpenURL(ctx context.Context, requestCode int, u string) error {
	target, ok := ctx.Value(redirectKey{}).(*string)
	if !ok {
		return errNoRedirect
	}
	*target = u
	return nil
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	tok := s.token(r)
	out := map[string]any{"logged_in": tok != nil}
	if tok != nil && tok.User != nil {
		out["user"] = tok.User
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePasswordLogin(w http.ResponseWriter, r *http.Request) {
	login := client.PasswordLogin{
		Identifier: reachfive.Identifier{Email: r.FormValue("email"), PhoneNumber: r.FormValue("phone_number")},
		Password:   r.FormValue("password"),
	}
	tok, err := s.Client.Login(r.Context(), login)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.saveToken(w, r, tok)
}

func (s *Server) handleWebLogin(w http.ResponseWriter, r *http.Request) {
	var target string
	ctx := context.WithValue(r.Context(), redirectKey{}, &target)
	if err := s.Client.LoginWithWeb(ctx, client.LoginOptions{State: uuid.NewString()}); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	outcome := reachfive.Outcome{RedirectURL: s.cfg.Scheme + "?" + r.URL.RawQuery}
	if r.URL.Query().Get("error") == "access_denied" {
		outcome.ResultCode = reachfive.ResultCanceled
	}
	tok, err := s.Client.OnResult(r.Context(), reachfive.RequestCodeWebLogin, outcome)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.saveToken(w, r, tok)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	tok := s.token(r)
	if tok == nil {
		s.writeError(w, r, reachfive.ErrNoAccessToken)
		return
	}
	profile, err := s.Client.GetProfile(r.Context(), tok)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	tok, err := s.Client.Refresh(r.Context(), s.token(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.saveToken(w, r, tok)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Client.Logout(r.Context(), s.token(r)); err != nil {
		s.logger.WarnContext(r.Context(), "logout", "error", err)
	}
	sess, _ := s.sessions.Get(r, sessionName)
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) token(r *http.Request) *reachfive.AuthToken {
	sess, err := s.sessions.Get(r, sessionName)
	if err != nil {
		return nil
	}
	raw, ok := sess.Values[tokenKey].(string)
	if !ok {
		return nil
	}
	var tok reachfive.AuthToken
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil
	}
	return &tok
}

func (s *Server) saveToken(w http.ResponseWriter, r *http.Request, tok *reachfive.AuthToken) {
	raw, err := json.Marshal(tok)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, _ := s.sessions.Get(r, sessionName)
	sess.Values[tokenKey] = string(raw)
	if err := sess.Save(r, w); err != nil {
		s.writeError(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var verr *reachfive.ValidationError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, reachfive.ErrNoAccessToken):
		status = http.StatusUnauthorized
	case reachfive.IsCancelled(err):
		status = http.StatusForbidden
	default:
		if apiErr, ok := reachfive.AsAPIError(err); ok && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			status = apiErr.StatusCode
		}
	}
	s.logger.WarnContext(r.Context(), "request failed", "path", r.URL.Path, "error", err, "error_code", int(reachfive.CodeOf(err)))
	writeJSON(w, status, map[string]any{"error": err.Error(), "code": int(reachfive.CodeOf(err))})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
