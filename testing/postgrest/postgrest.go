package postgrest

import (
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

type Row map[string]interface{}

type table struct {
	rows   []Row
	unique [][]string
}

// Server is an in-memory stand-in for the PostgREST API of the hosted database.
// It understands eq filters, order, on_conflict with ignore-duplicates and return=representation.
type Server struct {
	router    *mux.Router
	server    *httptest.Server
	l         sync.RWMutex
	tables    map[string]*table
	failEvery int
	apiKey    string
	t         *testing.T
}

type Option func(*Server)

// WithRandomFailures makes roughly one of every n requests fail with 502 before being handled.
func WithRandomFailures(n int) Option {
	return func(s *Server) {
		s.failEvery = n
	}
}

func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

func NewServer(t *testing.T, opts ...Option) *Server {
	router := mux.NewRouter()
	s := &Server{
		router: router,
		server: httptest.NewUnstartedServer(router),
		tables: map[string]*table{
			"settlements": {unique: [][]string{{"id"}, {"transaction_group_id", "user_id"}}},
			"profiles":    {unique: [][]string{{"id"}, {"email"}}},
		},
		t: t,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerEndpoint("/rest/v1/{table}", s.selectHandler, http.MethodGet)
	s.registerEndpoint("/rest/v1/{table}", s.insertHandler, http.MethodPost)
	s.registerEndpoint("/rest/v1/{table}", s.updateHandler, http.MethodPatch)
	s.registerEndpoint("/rest/v1/{table}", s.deleteHandler, http.MethodDelete)
	return s
}

func (s *Server) registerEndpoint(pattern string, handler http.HandlerFunc, method string) {
	s.router.HandleFunc(pattern, func(writer http.ResponseWriter, request *http.Request) {
		if s.failEvery > 0 && rand.Intn(s.failEvery) == 0 {
			// Randomly return some 502 errors to simulate gateway errors
			s.t.Log("Returning 502 error")
			s.writeError(writer, http.StatusBadGateway, "PGRST000", fmt.Errorf("random error"))
			return
		}
		if s.apiKey != "" && request.Header.Get("apikey") != s.apiKey {
			s.writeError(writer, http.StatusUnauthorized, "PGRST301", fmt.Errorf("invalid api key"))
			return
		}

		handler.ServeHTTP(writer, request)
	}).Methods(method)
}

func (s *Server) URL() string {
	return s.server.URL
}

func (s *Server) Start() {
	s.server.Start()
}

func (s *Server) Stop() {
	s.server.Close()
}

// Rows returns a copy of every row currently stored in tableName.
func (s *Server) Rows(tableName string) []Row {
	s.l.RLock()
	defer s.l.RUnlock()

	tbl, ok := s.tables[tableName]
	if !ok {
		return nil
	}
	ret := make([]Row, len(tbl.rows))
	for i, row := range tbl.rows {
		ret[i] = copyRow(row)
	}
	return ret
}

// Insert stores rows directly, bypassing constraints.
func (s *Server) Insert(tableName string, rows ...Row) {
	s.l.Lock()
	defer s.l.Unlock()

	tbl := s.table(tableName)
	for _, row := range rows {
		tbl.rows = append(tbl.rows, copyRow(row))
	}
}

func (s *Server) table(name string) *table {
	tbl, ok := s.tables[name]
	if !ok {
		tbl = &table{unique: [][]string{{"id"}}}
		s.tables[name] = tbl
	}
	return tbl
}

func copyRow(row Row) Row {
	ret := make(Row, len(row))
	for k, v := range row {
		ret[k] = v
	}
	return ret
}

type filter struct {
	column string
	value  string
}

func (f filter) match(row Row) bool {
	val, ok := row[f.column]
	if !ok || val == nil {
		return f.value == "null"
	}
	return fmt.Sprint(val) == f.value
}

type ordering struct {
	column string
	desc   bool
}

func matchAll(row Row, filters []filter) bool {
	for _, f := range filters {
		if !f.match(row) {
			return false
		}
	}
	return true
}

func sortRows(rows []Row, orderings []ordering) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orderings {
			a, b := fmt.Sprint(rows[i][o.column]), fmt.Sprint(rows[j][o.column])
			if a == b {
				continue
			}
			if o.desc {
				return a > b
			}
			return a < b
		}
		return false
	})
}

func (t *table) conflicts(row Row) (int, bool) {
	for i, existing := range t.rows {
		for _, columns := range t.unique {
			same := true
			for _, column := range columns {
				if fmt.Sprint(existing[column]) != fmt.Sprint(row[column]) {
					same = false
					break
				}
			}
			if same {
				return i, true
			}
		}
	}
	return -1, false
}

func preferences(r *http.Request) map[string]string {
	ret := make(map[string]string)
	for _, header := range r.Header.Values("Prefer") {
		for _, pref := range strings.Split(header, ",") {
			key, value, _ := strings.Cut(strings.TrimSpace(pref), "=")
			ret[key] = value
		}
	}
	return ret
}
