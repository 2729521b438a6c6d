// Package teamcitytest provides an in-memory TeamCity REST server for tests.
package teamcitytest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"relkit/src/teamcity"
)

// Phase is one (state, status) pair returned by successive build polls.
type Phase struct {
	State  string
	Status string
}

// Build is the server-side state of a fake build.
type Build struct {
	ID          int64
	BuildTypeID string
	Branch      string
	Number      string
	Tags        []string
	Pinned      bool
	// Artifacts maps an artifact directory ("" for the root) to file names.
	Artifacts map[string][]string
	// Content maps "path/name" to downloadable bytes.
	Content map[string][]byte
	// Phases are served one per GET of the build; the last one sticks.
	Phases []Phase
	// DependsOn is the id of the build this one is snapshot-dependent on.
	DependsOn int64
	polls     int
}

// Request records a call made to the server.
type Request struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// Server is a fake TeamCity server. Builds are listed in insertion order.
type Server struct {
	*httptest.Server

	Token string

	mu       sync.Mutex
	builds   []*Build
	nextID   int64
	failures map[string]int
	paused   map[string]bool
	requests []Request

	// OnQueue is called with every build created through the queue endpoint.
	OnQueue func(b *Build)
	// DependentsVisibleAfter hides dependents from listing queries until the
	// given number of dependent queries has been served.
	DependentsVisibleAfter int
	dependentQueries       int
}

// NewServer starts a fake server that expects the given bearer token.
func NewServer(token string) *Server {
	s := &Server{
		Token:    token,
		nextID:   1000,
		failures: make(map[string]int),
		paused:   make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Client returns a teamcity.Client pointed at the fake server.
func (s *Server) Client() *teamcity.Client {
	return teamcity.NewClient(s.URL, s.Token)
}

// AddBuild registers a build. Builds added first are listed first.
func (s *Server) AddBuild(b *Build) *Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	}
	s.builds = append(s.builds, b)
	return b
}

// Build returns the state of a build by id.
func (s *Server) Build(id int64) *Build {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.find(id)
}

// Fail makes requests whose path starts with prefix fail with status.
func (s *Server) Fail(prefix string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[prefix] = status
}

// Paused reports the pause flag of a build configuration.
func (s *Server) Paused(configID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused[configID]
}

// Requests returns the recorded requests.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests counts recorded requests by method and path prefix.
func (s *Server) CountRequests(method, prefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, prefix) {
			n++
		}
	}
	return n
}

func (s *Server) find(id int64) *Build {
	for _, b := range s.builds {
		if b.ID == id {
			return b
		}
	}
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	s.requests = append(s.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
	})

	if r.Header.Get("Authorization") != "Bearer "+s.Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	for prefix, status := range s.failures {
		if strings.HasPrefix(r.URL.Path, prefix) {
			http.Error(w, "injected failure", status)
			return
		}
	}

	path := r.URL.Path
	switch {
	case path == "/app/rest/builds" && r.Method == http.MethodGet:
		s.listBuilds(w, r.URL.Query().Get("locator"))
	case strings.HasPrefix(path, "/app/rest/builds/id:"):
		s.handleBuild(w, r, strings.TrimPrefix(path, "/app/rest/builds/id:"), body)
	case path == "/app/rest/buildQueue" && r.Method == http.MethodPost:
		s.queue(w, body)
	case strings.HasPrefix(path, "/app/rest/buildTypes/id:") && strings.HasSuffix(path, "/paused") && r.Method == http.MethodPut:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/app/rest/buildTypes/id:"), "/paused")
		s.paused[id] = strings.TrimSpace(string(body)) == "true"
		w.Write(body)
	case strings.HasPrefix(path, "/repository/download/"):
		s.download(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request, rest string, body []byte) {
	idPart, sub, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		http.Error(w, "bad build id", http.StatusBadRequest)
		return
	}
	b := s.find(id)
	if b == nil {
		http.NotFound(w, r)
		return
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		writeJSON(w, s.detail(b, true))
	case strings.TrimSuffix(sub, "/") == "pin" && r.Method == http.MethodPut:
		b.Pinned = true
		w.WriteHeader(http.StatusNoContent)
	case strings.TrimSuffix(sub, "/") == "pin" && r.Method == http.MethodDelete:
		b.Pinned = false
		w.WriteHeader(http.StatusNoContent)
	case strings.TrimSuffix(sub, "/") == "tags" && r.Method == http.MethodPut:
		var tags teamcity.Tags
		if err := json.Unmarshal(body, &tags); err != nil {
			http.Error(w, "bad tags", http.StatusBadRequest)
			return
		}
		b.Tags = b.Tags[:0]
		for _, t := range tags.Tag {
			b.Tags = append(b.Tags, t.Name)
		}
		writeJSON(w, tags)
	case strings.HasPrefix(sub, "artifacts/children") && r.Method == http.MethodGet:
		dir := strings.Trim(strings.TrimPrefix(sub, "artifacts/children"), "/")
		names, ok := b.Artifacts[dir]
		if !ok && dir != "" {
			http.NotFound(w, r)
			return
		}
		files := teamcity.Files{Count: len(names)}
		for _, n := range names {
			files.File = append(files.File, teamcity.File{Name: n})
		}
		writeJSON(w, files)
	default:
		http.NotFound(w, r)
	}
}

// detail renders a build; when advance is set the next poll phase is consumed.
func (s *Server) detail(b *Build, advance bool) teamcity.Build {
	out := teamcity.Build{
		ID:          b.ID,
		BuildTypeID: b.BuildTypeID,
		Number:      b.Number,
		BranchName:  b.Branch,
		Pinned:      b.Pinned,
		State:       teamcity.StateFinished,
		Status:      teamcity.StatusSuccess,
	}
	if len(b.Phases) > 0 {
		i := b.polls
		if i >= len(b.Phases) {
			i = len(b.Phases) - 1
		}
		out.State = b.Phases[i].State
		out.Status = b.Phases[i].Status
		if advance {
			b.polls++
		}
	}
	tags := teamcity.NewTags(b.Tags)
	out.Tags = &tags
	return out
}

func (s *Server) listBuilds(w http.ResponseWriter, locator string) {
	dims := ParseLocator(locator)

	if dep, ok := dims["snapshotDependency"]; ok {
		s.dependentQueries++
		if s.dependentQueries <= s.DependentsVisibleAfter {
			writeJSON(w, teamcity.BuildList{Build: []teamcity.Build{}})
			return
		}
		origin, _ := strconv.ParseInt(strings.Trim(strings.TrimPrefix(dep, "(from:(id:"), ")"), 10, 64)
		list := teamcity.BuildList{Build: []teamcity.Build{}}
		for _, b := range s.builds {
			if b.DependsOn == origin && origin != 0 {
				list.Build = append(list.Build, s.detail(b, false))
			}
		}
		list.Count = len(list.Build)
		writeJSON(w, list)
		return
	}

	limit := -1
	if c, ok := dims["count"]; ok {
		limit, _ = strconv.Atoi(c)
	}

	list := teamcity.BuildList{Build: []teamcity.Build{}}
	for _, b := range s.builds {
		if limit >= 0 && len(list.Build) >= limit {
			break
		}
		if !matches(b, dims) {
			continue
		}
		list.Build = append(list.Build, s.detail(b, false))
	}
	list.Count = len(list.Build)
	writeJSON(w, list)
}

func matches(b *Build, dims map[string]string) bool {
	if v, ok := dims["branch"]; ok && v != b.Branch {
		return false
	}
	if v, ok := dims["buildType"]; ok && v != b.BuildTypeID {
		return false
	}
	for _, key := range []string{"tag", "tags"} {
		if v, ok := dims[key]; ok && !contains(b.Tags, v) {
			return false
		}
	}
	if v, ok := dims["pinned"]; ok && v != strconv.FormatBool(b.Pinned) {
		return false
	}
	return true
}

func (s *Server) queue(w http.ResponseWriter, body []byte) {
	var req teamcity.TriggerRequest
	if err := json.Unmarshal(body, &req); err != nil || req.BuildType.ID == "" {
		http.Error(w, "bad queue request", http.StatusBadRequest)
		return
	}
	s.nextID++
	b := &Build{ID: s.nextID, BuildTypeID: req.BuildType.ID, Branch: req.BranchName}
	s.builds = append(s.builds, b)
	if s.OnQueue != nil {
		s.OnQueue(b)
	}
	writeJSON(w, teamcity.QueuedBuild{
		ID:          b.ID,
		BuildTypeID: b.BuildTypeID,
		BranchName:  b.Branch,
		State:       teamcity.StateQueued,
	})
}

// download serves <config>/<id>:id/<path> and <config>/<tag>.tcbuildtag/<path>.
func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/repository/download/"), "/", 3)
	if len(parts) != 3 {
		http.NotFound(w, r)
		return
	}
	configID, ref, file := parts[0], parts[1], parts[2]

	var target *Build
	for _, b := range s.builds {
		if b.BuildTypeID != configID {
			continue
		}
		if tag, ok := strings.CutSuffix(ref, ".tcbuildtag"); ok {
			branch := r.URL.Query().Get("branch")
			if contains(b.Tags, tag) && (branch == "" || branch == b.Branch) {
				target = b
				break
			}
		} else if id, ok := strings.CutSuffix(ref, ":id"); ok && id == strconv.FormatInt(b.ID, 10) {
			target = b
			break
		}
	}
	if target == nil {
		http.NotFound(w, r)
		return
	}
	data, ok := target.Content[file]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// ParseLocator splits a locator into its top-level dimensions.
// Commas inside parentheses do not separate dimensions.
func ParseLocator(locator string) map[string]string {
	dims := make(map[string]string)
	depth, start := 0, 0
	flush := func(end int) {
		part := locator[start:end]
		if key, value, ok := strings.Cut(part, ":"); ok {
			dims[key] = value
		}
	}
	for i, r := range locator {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	if start < len(locator) {
		flush(len(locator))
	}
	return dims
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("encode: %v", err), http.StatusInternalServerError)
	}
}
