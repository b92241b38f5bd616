package http

import (
	"net/http"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/log"
)

// namedForm backs the single-field category and source forms.
type namedForm struct {
	layout
	Heading string
	Action  string
	Name    string
	Errors  core.FieldErrors
}

func (s *Server) handleNewCategory(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.page("name_form.html", namedForm{
		layout:  newLayout("New category", p),
		Heading: "New category",
		Action:  "/categories/new",
	}).Write(w, r)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.createNamed(w, r, p, namedForm{
		layout:  newLayout("New category", p),
		Heading: "New category",
		Action:  "/categories/new",
	}, "/expenses/new", func(name string) error {
		_, err := s.ledger.CreateCategory(r.Context(), p.UserID, name)
		return err
	})
}

func (s *Server) handleNewSource(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.page("name_form.html", namedForm{
		layout:  newLayout("New source", p),
		Heading: "New income source",
		Action:  "/sources/new",
	}).Write(w, r)
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.createNamed(w, r, p, namedForm{
		layout:  newLayout("New source", p),
		Heading: "New income source",
		Action:  "/sources/new",
	}, "/incomes/new", func(name string) error {
		_, err := s.ledger.CreateSource(r.Context(), p.UserID, name)
		return err
	})
}

func (s *Server) createNamed(w http.ResponseWriter, r *http.Request, p auth.Principal, form namedForm, next string, create func(string) error) {
	values, err := parseForm(w, r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid form submission").Write(w)
		return
	}
	form.Name = sanitizeInput(values.Get("name"))

	err = create(form.Name)
	if err == nil {
		seeOther(w, r, next)
		return
	}
	fe := core.FieldErrors{}
	if !mergeFieldErrors(fe, err) {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	form.Errors = fe
	s.page("name_form.html", form).Status(http.StatusUnprocessableEntity).Write(w, r)
}
