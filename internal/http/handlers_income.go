package http

import (
	"errors"
	"net/http"
	"net/url"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/filter"
	"budget/internal/log"
	"budget/internal/services"
)

type incomeListPage struct {
	layout
	Query   url.Values
	Errors  map[string]string
	Incomes []core.Income
	Choices services.Choices
}

type incomeFormPage struct {
	layout
	Action  string
	Form    incomeForm
	Choices services.Choices
}

type incomeDeletePage struct {
	layout
	Income core.Income
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	ctx := r.Context()
	choices, err := s.ledger.Choices(ctx, p.UserID)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	data := incomeListPage{
		layout:  newLayout("Incomes", p),
		Query:   r.URL.Query(),
		Incomes: []core.Income{},
		Choices: choices,
	}

	f, err := filter.ParseIncome(r.URL.Query())
	var verr *filter.ValidationError
	if errors.As(err, &verr) {
		data.Errors = verr.Fields
		s.page("incomes.html", data).Status(http.StatusUnprocessableEntity).Write(w, r)
		return
	}

	incomes, err := s.ledger.ListIncomes(ctx, p.UserID, f)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	data.Incomes = incomes
	s.page("incomes.html", data).Write(w, r)
}

func (s *Server) renderIncomeForm(w http.ResponseWriter, r *http.Request, p auth.Principal, title, action string, form incomeForm, status int) {
	choices, err := s.ledger.Choices(r.Context(), p.UserID)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	s.page("income_form.html", incomeFormPage{
		layout:  newLayout(title, p),
		Action:  action,
		Form:    form,
		Choices: choices,
	}).Status(status).Write(w, r)
}

func (s *Server) handleNewIncome(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.renderIncomeForm(w, r, p, "New income", "/incomes/new", incomeForm{}, http.StatusOK)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	values, err := parseForm(w, r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid form submission").Write(w)
		return
	}
	form, in, fe := parseIncomeForm(values)
	if len(fe) == 0 {
		_, err = s.ledger.CreateIncome(r.Context(), p.UserID, in)
		if err == nil {
			seeOther(w, r, "/incomes")
			return
		}
		if !mergeFieldErrors(fe, err) {
			s.fail(w, r, log.OpCreate, err)
			return
		}
	}
	form.Errors = fe
	s.renderIncomeForm(w, r, p, "New income", "/incomes/new", form, http.StatusUnprocessableEntity)
}

func (s *Server) handleEditIncome(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r)
	if err != nil {
		NotFoundError().Write(w)
		return
	}
	in, err := s.ledger.GetIncome(r.Context(), p.UserID, id)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	s.renderIncomeForm(w, r, p, "Edit income", editPath("/incomes", id), incomeFormFrom(in), http.StatusOK)
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r)
	if err != nil {
		NotFoundError().Write(w)
		return
	}
	values, err := parseForm(w, r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid form submission").Write(w)
		return
	}
	form, in, fe := parseIncomeForm(values)
	form.ID = id
	in.ID = id
	if len(fe) == 0 {
		_, err = s.ledger.UpdateIncome(r.Context(), p.UserID, in)
		if err == nil {
			seeOther(w, r, "/incomes")
			return
		}
		if !mergeFieldErrors(fe, err) {
			s.fail(w, r, log.OpUpdate, err)
			return
		}
	} else if _, err := s.ledger.GetIncome(r.Context(), p.UserID, id); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	form.Errors = fe
	s.renderIncomeForm(w, r, p, "Edit income", editPath("/incomes", id), form, http.StatusUnprocessableEntity)
}

func (s *Server) handleConfirmDeleteIncome(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r)
	if err != nil {
		NotFoundError().Write(w)
		return
	}
	in, err := s.ledger.GetIncome(r.Context(), p.UserID, id)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	s.page("income_delete.html", incomeDeletePage{
		layout: newLayout("Delete income", p),
		Income: in,
	}).Write(w, r)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r)
	if err != nil {
		NotFoundError().Write(w)
		return
	}
	if err := s.ledger.DeleteIncome(r.Context(), p.UserID, id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	seeOther(w, r, "/incomes")
}
