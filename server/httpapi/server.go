// Package httpapi is the record-oriented HTTP facade: it maps REST verbs
// onto generated statements and serializes rows as field-named JSON
// objects. It carries no engine logic of its own.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	minidb "github.com/mvxt99/minidb"
	"github.com/mvxt99/minidb/internal/dberr"
	"github.com/mvxt99/minidb/internal/record"
	"github.com/mvxt99/minidb/internal/sql/executor"
)

type ServerConfig struct {
	Addr    string
	DataDir string
	Debug   bool
	Auth    *AuthConfig
}

// Server exposes CRUD routes over one shared executor. Concurrent requests
// serialize behind the registry-wide statement lock.
type Server struct {
	exec   *executor.Executor
	auth   *AuthConfig
	debug  bool
	logger *slog.Logger
}

func NewServer(db *minidb.Database, auth *AuthConfig, debug bool) *Server {
	return &Server{
		exec:   executor.NewExecutor(db),
		auth:   auth,
		debug:  debug,
		logger: slog.Default().With("component", "httpapi"),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{table}", s.handleList)
	mux.HandleFunc("GET /{table}/{id}", s.handleGet)
	mux.HandleFunc("POST /{table}", s.handleCreate)
	mux.HandleFunc("PUT /{table}/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /{table}/{id}", s.handleDelete)

	var h http.Handler = mux
	if s.auth != nil && s.auth.Enabled {
		h = s.requireAuth(h)
	}
	if s.debug {
		h = s.logRequests(h)
	}
	return h
}

// Run serves the facade until SIGINT/SIGTERM.
func Run(sc ServerConfig) error {
	db := minidb.Open(sc.DataDir)
	defer func() { _ = db.Close() }()

	srv := &http.Server{
		Addr:    sc.Addr,
		Handler: NewServer(db, sc.Auth, sc.Debug).Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	slog.Info("minidb http server listening", "addr", sc.Addr, "datadir", sc.DataDir)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// ---- handlers ----

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")
	res, err := s.exec.ExecSQL(fmt.Sprintf("SELECT * FROM %s", table))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resultRecords(res))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	table, id := r.PathValue("table"), r.PathValue("id")
	res, err := s.selectByID(table, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(res.Rows) == 0 {
		writeError(w, dberr.NotFoundf("row with id %s not found in table '%s'", id, table))
		return
	}
	writeJSON(w, http.StatusOK, resultRecords(res)[0])
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	table := r.PathValue("table")

	var body struct {
		Values []any `json:"values"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	literals := make([]string, len(body.Values))
	for i, v := range body.Values {
		lit, err := jsonLiteral(v)
		if err != nil {
			writeError(w, err)
			return
		}
		literals[i] = lit
	}

	res, err := s.exec.ExecSQL(fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(literals, ", ")))
	if err != nil {
		writeError(w, err)
		return
	}

	// Echo the stored row back when it is addressable by an INT primary key.
	if res.LastInsertID != 0 {
		got, err := s.selectByID(table, fmt.Sprintf("%d", res.LastInsertID))
		if err == nil && len(got.Rows) == 1 {
			writeJSON(w, http.StatusCreated, resultRecords(got)[0])
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"inserted": res.AffectedRows})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	table, id := r.PathValue("table"), r.PathValue("id")

	var body struct {
		Set map[string]any `json:"set"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if len(body.Set) == 0 {
		writeError(w, dberr.Parsef("update body must set at least one column"))
		return
	}

	cols := make([]string, 0, len(body.Set))
	for c := range body.Set {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	assigns := make([]string, 0, len(cols))
	for _, c := range cols {
		lit, err := jsonLiteral(body.Set[c])
		if err != nil {
			writeError(w, err)
			return
		}
		assigns = append(assigns, fmt.Sprintf("%s=%s", c, lit))
	}

	where, err := s.pkCondition(table, id)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.exec.ExecSQL(fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(assigns, ", "), where))
	if err != nil {
		writeError(w, err)
		return
	}
	if res.AffectedRows == 0 {
		writeError(w, dberr.NotFoundf("row with id %s not found in table '%s'", id, table))
		return
	}

	got, err := s.selectByID(table, id)
	if err != nil || len(got.Rows) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"updated": res.AffectedRows})
		return
	}
	writeJSON(w, http.StatusOK, resultRecords(got)[0])
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	table, id := r.PathValue("table"), r.PathValue("id")

	where, err := s.pkCondition(table, id)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.exec.ExecSQL(fmt.Sprintf("DELETE FROM %s WHERE %s", table, where))
	if err != nil {
		writeError(w, err)
		return
	}
	if res.AffectedRows == 0 {
		writeError(w, dberr.NotFoundf("row with id %s not found in table '%s'", id, table))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": res.AffectedRows})
}

// ---- statement generation ----

func (s *Server) selectByID(table, id string) (*executor.Result, error) {
	where, err := s.pkCondition(table, id)
	if err != nil {
		return nil, err
	}
	return s.exec.ExecSQL(fmt.Sprintf("SELECT * FROM %s WHERE %s", table, where))
}

// pkCondition renders "<pk-col>=<id>" with the literal quoted when the
// primary key is TEXT.
func (s *Server) pkCondition(table, id string) (string, error) {
	pk, err := s.exec.PrimaryKey(table)
	if err != nil {
		return "", err
	}
	if pk.Type == record.TypeText {
		if strings.ContainsRune(id, '\'') {
			return "", dberr.Parsef("id may not contain a single quote")
		}
		return fmt.Sprintf("%s='%s'", pk.Name, id), nil
	}
	return fmt.Sprintf("%s=%s", pk.Name, id), nil
}

// jsonLiteral renders a decoded JSON value as a statement literal. Numbers
// arrive as json.Number so the INT/FLOAT distinction survives.
func jsonLiteral(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if x {
			return "true", nil
		}
		return "false", nil
	case json.Number:
		return x.String(), nil
	case string:
		if strings.ContainsRune(x, '\'') {
			return "", dberr.Parsef("string values may not contain single quotes")
		}
		return "'" + x + "'", nil
	default:
		return "", dberr.Parsef("unsupported value %v in request body", v)
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return dberr.Parsef("invalid request body: %v", err)
	}
	return nil
}

// ---- serialization ----

// resultRecords turns positional rows into field-named records.
func resultRecords(res *executor.Result) []map[string]any {
	out := make([]map[string]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		rec := make(map[string]any, len(res.Columns))
		for i, col := range res.Columns {
			rec[col] = row[i].Native()
		}
		out = append(out, rec)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine error kinds onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch dberr.KindOf(err) {
	case dberr.KindParse, dberr.KindSchema, dberr.KindType:
		status = http.StatusBadRequest
	case dberr.KindConstraint:
		status = http.StatusConflict
	case dberr.KindNotFound:
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
