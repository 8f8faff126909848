// Package fakestore is an in-memory record store speaking the /jobs and
// /users REST contract. It exists for tests.
package fakestore

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
)

// Store holds records as loose JSON objects so tests can seed legacy shapes.
type Store struct {
	mu       sync.Mutex
	nextID   int
	jobs     []map[string]any
	users    []map[string]any
	requests []string
	failWith int
	mux      *http.ServeMux
}

// New creates an empty Store.
func New() *Store {
	s := &Store{nextID: 1, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /jobs", s.listJobs)
	s.mux.HandleFunc("POST /jobs", s.createJob)
	s.mux.HandleFunc("GET /jobs/{id}", s.getJob)
	s.mux.HandleFunc("PUT /jobs/{id}", s.replaceJob)
	s.mux.HandleFunc("DELETE /jobs/{id}", s.deleteJob)
	s.mux.HandleFunc("GET /users", s.listUsers)
	s.mux.HandleFunc("POST /users", s.createUser)
	return s
}

// SeedJob inserts a job and returns its id. An "id" already present in
// fields is kept.
func (s *Store) SeedJob(fields map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := copyRecord(fields)
	if _, ok := rec["id"]; !ok {
		rec["id"] = s.assignID()
	}
	s.jobs = append(s.jobs, rec)
	return idString(rec["id"])
}

// SeedUser inserts a user.
func (s *Store) SeedUser(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, map[string]any{
		"id":       s.assignID(),
		"username": username,
		"password": password,
	})
}

// Jobs returns a snapshot of the stored jobs.
func (s *Store) Jobs() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, copyRecord(j))
	}
	return out
}

// Users returns a snapshot of the stored users.
func (s *Store) Users() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyRecord(u))
	}
	return out
}

// Requests lists "METHOD /path" for every request served so far.
func (s *Store) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// FailWith makes every following request answer with code; zero restores
// normal behaviour.
func (s *Store) FailWith(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = code
}

func (s *Store) assignID() int {
	id := s.nextID
	s.nextID++
	return id
}

// ServeHTTP implements http.Handler.
func (s *Store) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	fail := s.failWith
	s.mu.Unlock()

	if fail != 0 {
		http.Error(w, http.StatusText(fail), fail)
		return
	}

	s.mux.ServeHTTP(w, r)
}

func (s *Store) listJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Jobs())
}

func (s *Store) getJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(r.PathValue("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, copyRecord(s.jobs[i]))
}

func (s *Store) createJob(w http.ResponseWriter, r *http.Request) {
	var rec map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	rec["id"] = s.assignID()
	s.jobs = append(s.jobs, rec)
	out := copyRecord(rec)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Store) replaceJob(w http.ResponseWriter, r *http.Request) {
	var rec map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(r.PathValue("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	rec["id"] = s.jobs[i]["id"]
	s.jobs[i] = rec
	writeJSON(w, http.StatusOK, copyRecord(rec))
}

func (s *Store) deleteJob(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(r.PathValue("id"))
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (s *Store) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	out := []map[string]any{}
	for _, u := range s.Users() {
		if q.Has("username") && u["username"] != q.Get("username") {
			continue
		}
		if q.Has("password") && u["password"] != q.Get("password") {
			continue
		}
		out = append(out, u)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Store) createUser(w http.ResponseWriter, r *http.Request) {
	var rec map[string]any
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	rec["id"] = s.assignID()
	s.users = append(s.users, rec)
	out := copyRecord(rec)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Store) indexOf(id string) int {
	for i, j := range s.jobs {
		if idString(j["id"]) == id {
			return i
		}
	}
	return -1
}

func idString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case int:
		return strconv.Itoa(id)
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func copyRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
