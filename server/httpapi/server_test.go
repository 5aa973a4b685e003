package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	minidb "github.com/mvxt99/minidb"
	"github.com/mvxt99/minidb/internal/sql/executor"
)

func newTestHandler(t *testing.T, auth *AuthConfig) http.Handler {
	t.Helper()
	db := minidb.Open(t.TempDir())

	exec := executor.NewExecutor(db)
	seed := []string{
		"CREATE TABLE users (id INT PRIMARY KEY AUTO_INCREMENT, name TEXT, email TEXT UNIQUE, age INT);",
		"INSERT INTO users VALUES (NULL, 'John Doe', 'john@x.com', 30);",
		"INSERT INTO users VALUES (NULL, 'Jane Smith', 'jane@x.com', 25);",
		"CREATE TABLE orders (id INT PRIMARY KEY AUTO_INCREMENT, user_id INT REFERENCES users(id), total FLOAT);",
		"INSERT INTO orders VALUES (NULL, 1, 9.99);",
	}
	for _, stmt := range seed {
		_, err := exec.ExecSQL(stmt)
		require.NoError(t, err, stmt)
	}

	return NewServer(db, auth, false).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestList(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, w.Code)

	rows := decode[[]map[string]any](t, w)
	require.Len(t, rows, 2)
	assert.Equal(t, "John Doe", rows[0]["name"])
	assert.Equal(t, float64(1), rows[0]["id"])
}

func TestGet(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, http.MethodGet, "/users/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	row := decode[map[string]any](t, w)
	assert.Equal(t, "Jane Smith", row["name"])

	w = do(t, h, http.MethodGet, "/users/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/ghosts/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreate(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, http.MethodPost, "/users", `{"values": [null, "Bob", "bob@x.com", 35]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	row := decode[map[string]any](t, w)
	assert.Equal(t, float64(3), row["id"])
	assert.Equal(t, "Bob", row["name"])
}

func TestCreate_ErrorMapping(t *testing.T) {
	h := newTestHandler(t, nil)

	// duplicate unique email -> conflict
	w := do(t, h, http.MethodPost, "/users", `{"values": [null, "Fake", "john@x.com", 30]}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode[map[string]string](t, w)
	assert.Contains(t, body["error"], "Unique constraint violation")

	// wrong arity -> bad request
	w = do(t, h, http.MethodPost, "/users", `{"values": [null, "Short"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// type mismatch -> bad request
	w = do(t, h, http.MethodPost, "/users", `{"values": [null, "X", "x@x.com", "thirty"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// foreign key violation -> conflict
	w = do(t, h, http.MethodPost, "/orders", `{"values": [null, 99, 5.0]}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	// malformed JSON -> bad request
	w = do(t, h, http.MethodPost, "/users", `{"values": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// embedded quote would escape the generated statement -> bad request
	w = do(t, h, http.MethodPost, "/users", `{"values": [null, "O'Brien", "ob@x.com", 40]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreate_FloatStaysFloat(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, http.MethodPost, "/orders", `{"values": [null, 1, 20]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	row := decode[map[string]any](t, w)
	assert.Equal(t, float64(20), row["total"], "an integral JSON number coerces into a FLOAT column")
}

func TestUpdate(t *testing.T) {
	h := newTestHandler(t, nil)

	w := do(t, h, http.MethodPut, "/users/1", `{"set": {"age": 31, "name": "John D."}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	row := decode[map[string]any](t, w)
	assert.Equal(t, float64(31), row["age"])
	assert.Equal(t, "John D.", row["name"])

	w = do(t, h, http.MethodPut, "/users/42", `{"set": {"age": 1}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodPut, "/users/1", `{"set": {"email": "jane@x.com"}}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPut, "/users/1", `{"set": {}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDelete(t *testing.T) {
	h := newTestHandler(t, nil)

	// referenced by orders with the default RESTRICT action
	w := do(t, h, http.MethodDelete, "/users/1", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodDelete, "/users/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, float64(1), body["deleted"])

	w = do(t, h, http.MethodDelete, "/users/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func signToken(t *testing.T, secret, issuer string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": issuer,
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuth(t *testing.T) {
	auth := &AuthConfig{Enabled: true, JWTSecret: "sekrit", Issuer: "minidb-test"}
	h := newTestHandler(t, auth)

	// no token
	w := do(t, h, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// wrong secret
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "wrong", "minidb-test"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// wrong issuer
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "sekrit", "someone-else"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// valid token
	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "sekrit", "minidb-test"))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
