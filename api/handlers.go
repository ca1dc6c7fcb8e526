package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/oriser/roomies/expense"
	"github.com/oriser/roomies/roommate"
	"github.com/oriser/roomies/service"
	"github.com/oriser/roomies/settlement"
)

const maxBodySize = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, into interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := decoder.Decode(into); err != nil {
		return settlement.NewValidationError("body", "%v", err)
	}
	return nil
}

func userID(r *http.Request) (string, error) {
	id := r.Header.Get(UserHeader)
	if id == "" {
		return "", settlement.NewValidationError("user id", "missing %s header", UserHeader)
	}
	return id, nil
}

func (s *Server) addProfile(w http.ResponseWriter, r *http.Request) {
	profile := &roommate.Profile{}
	if err := decodeBody(w, r, profile); err != nil {
		writeError(w, err)
		return
	}
	if id := r.Header.Get(UserHeader); id != "" && profile.ID == "" {
		profile.ID = id
	}

	if err := s.service.HandleAddProfile(r.Context(), profile); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (s *Server) addRoommate(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rm := &roommate.Roommate{}
	if err := decodeBody(w, r, rm); err != nil {
		writeError(w, err)
		return
	}

	if err := s.service.HandleAddRoommate(r.Context(), owner, rm); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rm)
}

func (s *Server) listRoommates(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	roster, err := s.service.Roster(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	if roster == nil {
		roster = []*roommate.Roommate{}
	}
	writeJSON(w, http.StatusOK, roster)
}

type expenseResponse struct {
	*service.ExpenseResult
	Errors []string `json:"errors,omitempty"`
}

func (s *Server) addExpense(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	exp := &expense.Expense{}
	if err := decodeBody(w, r, exp); err != nil {
		writeError(w, err)
		return
	}

	result, err := s.service.HandleExpenseAdded(r.Context(), owner, exp)
	if result == nil {
		writeError(w, err)
		return
	}
	resp := expenseResponse{ExpenseResult: result}
	if err != nil {
		resp.Errors = []string{err.Error()}
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	expenses, err := s.service.ListExpenses(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	if expenses == nil {
		expenses = []*expense.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) createSettlement(w http.ResponseWriter, r *http.Request) {
	requester, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := service.CreatePairRequest{}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.RequestingUserID = requester

	created, err := s.service.CreateSettlementPair(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) fetchSettlements(w http.ResponseWriter, r *http.Request) {
	requester, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	settlements, err := s.service.FetchSettlements(r.Context(), requester)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settlements)
}

type statusRequest struct {
	Status settlement.Status `json:"status"`
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	requester, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req := statusRequest{}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := s.service.UpdateStatus(r.Context(), mux.Vars(r)["group_id"], req.Status, requester); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	requester, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.service.DeleteSettlementGroup(r.Context(), mux.Vars(r)["group_id"], requester); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
