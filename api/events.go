package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/oriser/roomies/expense"
)

type expenseEvent struct {
	userID  string
	expense *expense.Expense
}

// expenseAddedEvent hands the expense to a worker and answers right away.
func (s *Server) expenseAddedEvent(w http.ResponseWriter, r *http.Request) {
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

	select {
	case s.expenseEventsCh <- &expenseEvent{userID: owner, expense: exp}:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	case <-time.After(s.cfg.EnqueueTimeout):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many pending expense events"})
	case <-r.Context().Done():
	}
}

func (s *Server) expenseEventsWorker(ctx context.Context) {
	for {
		select {
		case event := <-s.expenseEventsCh:
			result, err := s.service.HandleExpenseAdded(ctx, event.userID, event.expense)
			if err != nil {
				slog.Error("Error handling expense event", "user_id", event.userID, "err", err)
			}
			if result != nil {
				slog.Info("Handled expense event", "user_id", event.userID, "expense_id", result.Expense.ID,
					"pairs", len(result.Pairs), "settlements", len(result.Settlements))
			}
		case <-ctx.Done():
			slog.Debug("Finishing expense events worker due to context cancellation")
			return
		}
	}
}
