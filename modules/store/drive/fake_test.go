package drive

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"unicode/utf16"

	docs "google.golang.org/api/docs/v1"
	drive "google.golang.org/api/drive/v3"
)

// fakeGoogle serves the subset of the Drive v3 and Docs v1 REST APIs the
// store uses, backed by memory.
type fakeGoogle struct {
	mu     sync.Mutex
	nextID int
	files  map[string]*fakeFile

	// requests counts calls per "METHOD path-pattern".
	requests map[string]int
}

type fakeFile struct {
	ID       string
	Name     string
	MimeType string
	Parents  []string
	text     string
}

func newFakeGoogle(t *testing.T) (*fakeGoogle, *httptest.Server) {
	t.Helper()
	f := &fakeGoogle{files: make(map[string]*fakeFile), requests: make(map[string]int)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /drive/v3/files", f.list)
	mux.HandleFunc("POST /drive/v3/files", f.create)
	mux.HandleFunc("GET /drive/v3/files/{id}", f.get)
	mux.HandleFunc("PATCH /drive/v3/files/{id}", f.update)
	mux.HandleFunc("DELETE /drive/v3/files/{id}", f.remove)
	mux.HandleFunc("GET /drive/v3/files/{id}/export", f.export)
	mux.HandleFunc("GET /docs/v1/documents/{id}", f.document)
	mux.HandleFunc("POST /docs/v1/documents/{op}", f.batchUpdate)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		_, pattern := mux.Handler(r)
		f.requests[pattern]++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeGoogle) count(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[pattern]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, id string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = fmt.Fprintf(w, `{"error":{"code":404,"message":"File not found: %s."}}`, id)
}

func (f *fakeGoogle) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*drive.File
	for _, file := range f.files {
		if matches(file, r.URL.Query().Get("q")) {
			out = append(out, &drive.File{Id: file.ID, Name: file.Name, MimeType: file.MimeType})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, &drive.FileList{Files: out})
}

func (f *fakeGoogle) create(w http.ResponseWriter, r *http.Request) {
	var in drive.File
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	file := &fakeFile{ID: fmt.Sprintf("id%d", f.nextID), Name: in.Name, MimeType: in.MimeType, Parents: in.Parents}
	f.files[file.ID] = file
	writeJSON(w, &drive.File{Id: file.ID, Name: file.Name})
}

func (f *fakeGoogle) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[r.PathValue("id")]
	if !ok {
		notFound(w, r.PathValue("id"))
		return
	}
	writeJSON(w, &drive.File{Id: file.ID, Name: file.Name})
}

func (f *fakeGoogle) update(w http.ResponseWriter, r *http.Request) {
	var in drive.File
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[r.PathValue("id")]
	if !ok {
		notFound(w, r.PathValue("id"))
		return
	}
	file.Name = in.Name
	writeJSON(w, &drive.File{Id: file.ID, Name: file.Name})
}

func (f *fakeGoogle) remove(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.files[r.PathValue("id")]; !ok {
		notFound(w, r.PathValue("id"))
		return
	}
	delete(f.files, r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeGoogle) export(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[r.PathValue("id")]
	if !ok || file.MimeType != DocumentMimeType {
		notFound(w, r.PathValue("id"))
		return
	}
	if r.URL.Query().Get("mimeType") != "text/plain" {
		http.Error(w, "unsupported export", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(file.text))
}

func (f *fakeGoogle) document(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[r.PathValue("id")]
	if !ok || file.MimeType != DocumentMimeType {
		notFound(w, r.PathValue("id"))
		return
	}
	n := int64(len(utf16.Encode([]rune(file.text))))
	writeJSON(w, &docs.Document{
		DocumentId: file.ID,
		Body: &docs.Body{Content: []*docs.StructuralElement{
			{EndIndex: 1, SectionBreak: &docs.SectionBreak{}},
			{StartIndex: 1, EndIndex: n + 2, Paragraph: &docs.Paragraph{}},
		}},
	})
}

func (f *fakeGoogle) batchUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutSuffix(r.PathValue("op"), ":batchUpdate")
	if !ok {
		http.Error(w, "unknown operation", http.StatusBadRequest)
		return
	}
	var req docs.BatchUpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[id]
	if !ok {
		notFound(w, id)
		return
	}
	for _, op := range req.Requests {
		units := utf16.Encode([]rune(file.text))
		switch {
		case op.InsertText != nil:
			at := op.InsertText.Location.Index - 1
			if at < 0 || at > int64(len(units)) {
				http.Error(w, "insert index out of range", http.StatusBadRequest)
				return
			}
			ins := utf16.Encode([]rune(op.InsertText.Text))
			units = append(units[:at:at], append(ins, units[at:]...)...)
		case op.DeleteContentRange != nil:
			rg := op.DeleteContentRange.Range
			start, end := rg.StartIndex-1, rg.EndIndex-1
			if start < 0 || end <= start || end > int64(len(units)) {
				http.Error(w, "invalid range", http.StatusBadRequest)
				return
			}
			units = append(units[:start:start], units[end:]...)
		}
		file.text = string(utf16.Decode(units))
	}
	writeJSON(w, &docs.BatchUpdateDocumentResponse{DocumentId: id})
}

// matches evaluates the conjunctive queries the store issues.
func matches(file *fakeFile, q string) bool {
	for _, clause := range strings.Split(q, " and ") {
		clause = strings.TrimSpace(clause)
		switch {
		case clause == "trashed=false":
		case strings.HasPrefix(clause, "mimeType="):
			if unquote(strings.TrimPrefix(clause, "mimeType=")) != file.MimeType {
				return false
			}
		case strings.HasPrefix(clause, "name="):
			if unquote(strings.TrimPrefix(clause, "name=")) != file.Name {
				return false
			}
		case strings.HasSuffix(clause, " in parents"):
			parent := unquote(strings.TrimSuffix(clause, " in parents"))
			found := false
			for _, p := range file.Parents {
				found = found || p == parent
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func unquote(s string) string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "'"), "'")
	return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(s)
}
