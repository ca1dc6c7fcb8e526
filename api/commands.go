package api

import (
	"fmt"
	"net/http"

	"github.com/google/shlex"
	"github.com/oriser/roomies/roommate"
)

const addRoommateUsage = `USAGE: "<name>" <email> [upi id]`

// addRoommateCommand adds a roommate from a single line of text, as typed in a chat command.
func (s *Server) addRoommateCommand(w http.ResponseWriter, r *http.Request) {
	owner, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(fmt.Sprintf("Bad form: %v", err)))
		return
	}

	splitted, err := shlex.Split(r.Form.Get("text"))
	if err != nil || len(splitted) < 2 || len(splitted) > 3 {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(addRoommateUsage))
		return
	}

	rm := &roommate.Roommate{Name: splitted[0], Email: splitted[1]}
	if len(splitted) == 3 {
		rm.UPIID = splitted[2]
	}
	if err := s.service.HandleAddRoommate(r.Context(), owner, rm); err != nil {
		w.WriteHeader(statusFor(err))
		_, _ = w.Write([]byte(fmt.Sprintf("Error adding roommate: %v", err)))
		return
	}
	_, _ = w.Write([]byte(fmt.Sprintf("OK, got you. I added %q (%s) to your roommates", rm.Name, rm.Email)))
}
