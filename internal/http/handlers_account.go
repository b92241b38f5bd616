package http

import (
	"errors"
	"net/http"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/log"
)

type loginPage struct {
	layout
	Username string
	Next     string
	Error    string
}

type profilePage struct {
	layout
	Form   core.User
	Saved  bool
	Errors core.FieldErrors
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.URL.Query().Get("next"))
	if _, err := s.auth.Authenticate(r.Context(), auth.Token(r)); err == nil {
		seeOther(w, r, next)
		return
	}
	s.page("login.html", loginPage{
		layout: newLayout("Log in", auth.Principal{}),
		Next:   next,
	}).Write(w, r)
}

// handleLogin re-renders the form with 401 on bad credentials; it never
// says whether the username exists.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	values, err := parseForm(w, r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid form submission").Write(w)
		return
	}
	username := sanitizeInput(values.Get("username"))
	next := auth.SafeNext(values.Get("next"))

	sess, _, err := s.auth.Login(r.Context(), username, values.Get("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.page("login.html", loginPage{
			layout:   newLayout("Log in", auth.Principal{}),
			Username: username,
			Next:     next,
			Error:    "Invalid username or password",
		}).Status(http.StatusUnauthorized).Write(w, r)
		return
	}
	if err != nil {
		s.fail(w, r, log.OpLogin, err)
		return
	}
	s.cookies.Set(w, sess)
	seeOther(w, r, next)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), auth.Token(r)); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Logout failed",
			log.FieldOperation, log.OpLogout,
			log.FieldError, err.Error())
	}
	s.cookies.Clear(w)
	seeOther(w, r, "/login")
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	u, err := s.ledger.Profile(r.Context(), p.UserID)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	s.page("profile.html", profilePage{
		layout: newLayout("Profile", p),
		Form:   u,
		Saved:  r.URL.Query().Get("saved") == "1",
	}).Write(w, r)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	values, err := parseForm(w, r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid form submission").Write(w)
		return
	}
	u := core.User{
		ID:        p.UserID,
		Username:  sanitizeInput(values.Get("username")),
		FirstName: sanitizeInput(values.Get("first_name")),
		LastName:  sanitizeInput(values.Get("last_name")),
		Email:     sanitizeInput(values.Get("email")),
	}
	_, err = s.ledger.UpdateProfile(r.Context(), p.UserID, u)
	if err == nil {
		seeOther(w, r, "/profile?saved=1")
		return
	}
	fe := core.FieldErrors{}
	if !mergeFieldErrors(fe, err) {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	s.page("profile.html", profilePage{
		layout: newLayout("Profile", p),
		Form:   u,
		Errors: fe,
	}).Status(http.StatusUnprocessableEntity).Write(w, r)
}
