package postgrest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

var reservedParams = map[string]bool{"select": true, "order": true, "on_conflict": true, "limit": true}

func (s *Server) writeError(res http.ResponseWriter, status int, code string, err error) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_ = json.NewEncoder(res).Encode(map[string]string{"code": code, "message": err.Error()})
}

func (s *Server) writeRows(res http.ResponseWriter, status int, rows []Row) {
	if rows == nil {
		rows = []Row{}
	}
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_ = json.NewEncoder(res).Encode(rows)
}

func parseQuery(r *http.Request) ([]filter, []ordering, error) {
	var filters []filter
	var orderings []ordering
	for key, values := range r.URL.Query() {
		if key == "order" {
			for _, part := range strings.Split(values[0], ",") {
				column, direction, _ := strings.Cut(part, ".")
				orderings = append(orderings, ordering{column: column, desc: direction == "desc"})
			}
			continue
		}
		if reservedParams[key] {
			continue
		}
		for _, value := range values {
			op, operand, ok := strings.Cut(value, ".")
			if !ok || (op != "eq" && op != "is") {
				return nil, nil, fmt.Errorf("unsupported filter %s=%s", key, value)
			}
			filters = append(filters, filter{column: key, value: operand})
		}
	}
	return filters, orderings, nil
}

func (s *Server) selectHandler(res http.ResponseWriter, req *http.Request) {
	filters, orderings, err := parseQuery(req)
	if err != nil {
		s.writeError(res, http.StatusBadRequest, "PGRST100", err)
		return
	}

	s.l.RLock()
	var rows []Row
	for _, row := range s.table(mux.Vars(req)["table"]).rows {
		if matchAll(row, filters) {
			rows = append(rows, copyRow(row))
		}
	}
	s.l.RUnlock()

	sortRows(rows, orderings)
	s.writeRows(res, http.StatusOK, rows)
}

func decodeRows(body io.Reader) ([]Row, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	var rows []Row
	if err := json.Unmarshal(raw, &rows); err == nil {
		return rows, nil
	}
	var row Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("body is neither an object nor an array: %w", err)
	}
	return []Row{row}, nil
}

func (s *Server) insertHandler(res http.ResponseWriter, req *http.Request) {
	rows, err := decodeRows(req.Body)
	if err != nil {
		s.writeError(res, http.StatusBadRequest, "PGRST102", err)
		return
	}
	prefs := preferences(req)
	ignoreDuplicates := prefs["resolution"] == "ignore-duplicates"

	s.l.Lock()
	tbl := s.table(mux.Vars(req)["table"])
	// Statement is atomic: check every row before storing any
	var inserted []Row
	pending := &table{rows: append([]Row{}, tbl.rows...), unique: tbl.unique}
	for _, row := range rows {
		if _, conflict := pending.conflicts(row); conflict {
			if ignoreDuplicates {
				continue
			}
			s.l.Unlock()
			s.writeError(res, http.StatusConflict, "23505", fmt.Errorf("duplicate key value violates unique constraint"))
			return
		}
		pending.rows = append(pending.rows, row)
		inserted = append(inserted, copyRow(row))
	}
	tbl.rows = pending.rows
	s.l.Unlock()

	if prefs["return"] == "representation" {
		s.writeRows(res, http.StatusCreated, inserted)
		return
	}
	res.WriteHeader(http.StatusCreated)
}

func (s *Server) updateHandler(res http.ResponseWriter, req *http.Request) {
	filters, _, err := parseQuery(req)
	if err != nil {
		s.writeError(res, http.StatusBadRequest, "PGRST100", err)
		return
	}
	var patch Row
	if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
		s.writeError(res, http.StatusBadRequest, "PGRST102", err)
		return
	}

	s.l.Lock()
	var updated []Row
	for _, row := range s.table(mux.Vars(req)["table"]).rows {
		if !matchAll(row, filters) {
			continue
		}
		for k, v := range patch {
			row[k] = v
		}
		updated = append(updated, copyRow(row))
	}
	s.l.Unlock()

	if preferences(req)["return"] == "representation" {
		s.writeRows(res, http.StatusOK, updated)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteHandler(res http.ResponseWriter, req *http.Request) {
	filters, _, err := parseQuery(req)
	if err != nil {
		s.writeError(res, http.StatusBadRequest, "PGRST100", err)
		return
	}
	if len(filters) == 0 {
		s.writeError(res, http.StatusBadRequest, "21000", fmt.Errorf("DELETE requires a WHERE clause"))
		return
	}

	s.l.Lock()
	tbl := s.table(mux.Vars(req)["table"])
	var deleted []Row
	kept := tbl.rows[:0]
	for _, row := range tbl.rows {
		if matchAll(row, filters) {
			deleted = append(deleted, row)
			continue
		}
		kept = append(kept, row)
	}
	tbl.rows = kept
	s.l.Unlock()

	if preferences(req)["return"] == "representation" {
		s.writeRows(res, http.StatusOK, deleted)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}
