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

type expenseListPage struct {
	layout
	Query    url.Values
	Errors   map[string]string
	Expenses []core.Expense
	Choices  services.Choices
}

type expenseFormPage struct {
	layout
	Action  string
	Form    expenseForm
	Choices services.Choices
}

type expenseDeletePage struct {
	layout
	Expense core.Expense
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	ctx := r.Context()
	choices, err := s.ledger.Choices(ctx, p.UserID)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	data := expenseListPage{
		layout:   newLayout("Expenses", p),
		Query:    r.URL.Query(),
		Expenses: []core.Expense{},
		Choices:  choices,
	}

	f, err := filter.ParseExpense(r.URL.Query())
	var verr *filter.ValidationError
	if errors.As(err, &verr) {
		data.Errors = verr.Fields
		s.page("expenses.html", data).Status(http.StatusUnprocessableEntity).Write(w, r)
		return
	}

	expenses, err := s.ledger.ListExpenses(ctx, p.UserID, f)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	data.Expenses = expenses
	s.page("expenses.html", data).Write(w, r)
}

func (s *Server) renderExpenseForm(w http.ResponseWriter, r *http.Request, p auth.Principal, title, action string, form expenseForm, status int) {
	choices, err := s.ledger.Choices(r.Context(), p.UserID)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	s.page("expense_form.html", expenseFormPage{
		layout:  newLayout(title, p),
		Action:  action,
		Form:    form,
		Choices: choices,
	}).Status(status).Write(w, r)
}

func (s *Server) handleNewExpense(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s.renderExpenseForm(w, r, p, "New expense", "/expenses/new", expenseForm{}, http.StatusOK)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	values, err := parseForm(w, r)
	if err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid form submission").Write(w)
		return
	}
	form, e, fe := parseExpenseForm(values)
	if len(fe) == 0 {
		_, err = s.ledger.CreateExpense(r.Context(), p.UserID, e)
		if err == nil {
			seeOther(w, r, "/expenses")
			return
		}
		if !mergeFieldErrors(fe, err) {
			s.fail(w, r, log.OpCreate, err)
			return
		}
	}
	form.Errors = fe
	s.renderExpenseForm(w, r, p, "New expense", "/expenses/new", form, http.StatusUnprocessableEntity)
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r)
	if err != nil {
		NotFoundError().Write(w)
		return
	}
	e, err := s.ledger.GetExpense(r.Context(), p.UserID, id)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	s.renderExpenseForm(w, r, p, "Edit expense", editPath("/expenses", id), expenseFormFrom(e), http.StatusOK)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, p auth.Principal) {
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
	form, e, fe := parseExpenseForm(values)
	form.ID = id
	e.ID = id
	if len(fe) == 0 {
		_, err = s.ledger.UpdateExpense(r.Context(), p.UserID, e)
		if err == nil {
			seeOther(w, r, "/expenses")
			return
		}
		if !mergeFieldErrors(fe, err) {
			s.fail(w, r, log.OpUpdate, err)
			return
		}
	} else if _, err := s.ledger.GetExpense(r.Context(), p.UserID, id); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	form.Errors = fe
	s.renderExpenseForm(w, r, p, "Edit expense", editPath("/expenses", id), form, http.StatusUnprocessableEntity)
}

func (s *Server) handleConfirmDeleteExpense(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r)
	if err != nil {
		NotFoundError().Write(w)
		return
	}
	e, err := s.ledger.GetExpense(r.Context(), p.UserID, id)
	if err != nil {
		s.fail(w, r, log.OpRead, err)
		return
	}
	s.page("expense_delete.html", expenseDeletePage{
		layout:  newLayout("Delete expense", p),
		Expense: e,
	}).Write(w, r)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r)
	if err != nil {
		NotFoundError().Write(w)
		return
	}
	if err := s.ledger.DeleteExpense(r.Context(), p.UserID, id); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	seeOther(w, r, "/expenses")
}

func editPath(base string, id int64) string {
	return base + "/" + idString(id) + "/edit"
}
