package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmllt/dtnboard/internal/board"
	"github.com/gmllt/dtnboard/internal/dnd"
	"github.com/gmllt/dtnboard/internal/form"
	"github.com/gmllt/dtnboard/internal/metrics"
	"github.com/gmllt/dtnboard/internal/persist"
	"github.com/gmllt/dtnboard/internal/render"
	"github.com/gmllt/dtnboard/internal/session"
	"github.com/gmllt/dtnboard/internal/store"
)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	m := metrics.New()
	gw := persist.New(store.NewMemory(), "board", persist.WithLogger(logger))
	e, err := render.New(gw, render.WithLogger(logger), render.WithMetrics(m))
	require.NoError(t, err)
	sess := session.Open(context.Background(), gw, e, session.WithLogger(logger), session.WithMetrics(m))
	s := New(sess, e,
		WithLogger(logger),
		WithMetrics(m),
		WithStatic(fstest.MapFS{"app.js": {Data: []byte("// app")}}),
	)
	return s, s.Router()
}

func do(t *testing.T, h http.Handler, method, target string, body url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(body.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBoard(t *testing.T, rec *httptest.ResponseRecorder) board.Board {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var b board.Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

func TestPage(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "devis à faire")

	rec = do(t, h, http.MethodGet, "/board", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), `<div id="board"`))
}

func TestColumns(t *testing.T) {
	_, h := newTestServer(t)

	b := decodeBoard(t, do(t, h, http.MethodPost, "/api/columns", url.Values{"title": {"archives"}}))
	require.Len(t, b.Columns, 5)
	id := b.Columns[4].ID

	b = decodeBoard(t, do(t, h, http.MethodPost, "/api/columns", url.Values{"title": {"  "}}))
	assert.Len(t, b.Columns, 5)

	b = decodeBoard(t, do(t, h, http.MethodPut, "/api/columns/"+id, url.Values{"title": {""}}))
	assert.Equal(t, "archives", b.Columns[4].Title)

	b = decodeBoard(t, do(t, h, http.MethodPut, "/api/columns/"+id, url.Values{"title": {"classé"}}))
	assert.Equal(t, "classé", b.Columns[4].Title)

	b = decodeBoard(t, do(t, h, http.MethodDelete, "/api/columns/"+id, nil))
	assert.Len(t, b.Columns, 4)

	// stale delete is not an error
	b = decodeBoard(t, do(t, h, http.MethodDelete, "/api/columns/"+id, nil))
	assert.Len(t, b.Columns, 4)
}

func TestCards(t *testing.T) {
	_, h := newTestServer(t)

	b := decodeBoard(t, do(t, h, http.MethodPost, "/api/cards", url.Values{
		"firstname": {"Jean"}, "lastname": {"Dupont"}, "category": {"Électricité"}, "date": {"2024-02-01"},
	}))
	require.Len(t, b.Columns[0].Cards, 1)
	col, card := b.Columns[0].ID, b.Columns[0].Cards[0].ID
	base := "/api/columns/" + col + "/cards/" + card

	rec := do(t, h, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var d form.Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, "Jean DUPONT", d.Title)
	assert.Equal(t, "01/02/2024", d.Date)
	assert.Equal(t, "-", d.Phone)

	b = decodeBoard(t, do(t, h, http.MethodPut, base, url.Values{
		"firstname": {"Jean"}, "lastname": {"Dupont"}, "category": {board.Other}, "customCategory": {"Fibre"},
	}))
	assert.Equal(t, "Fibre", b.Columns[0].Cards[0].Category.String())
	assert.Equal(t, card, b.Columns[0].Cards[0].ID)

	rec = do(t, h, http.MethodGet, base+"/edit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v form.Values
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, board.Other, v.Category)
	assert.Equal(t, "Fibre", v.CustomCategory)

	b = decodeBoard(t, do(t, h, http.MethodDelete, base, nil))
	assert.Empty(t, b.Columns[0].Cards)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, base, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, base+"/edit", nil).Code)
}

func TestOpenCreate(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/columns/abc/cards/new", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v form.Values
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "abc", v.Column)
}

func postDrop(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/drop", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDrop(t *testing.T) {
	_, h := newTestServer(t)
	b := decodeBoard(t, do(t, h, http.MethodPost, "/api/cards", url.Values{"firstname": {"A"}, "lastname": {"B"}}))
	from, to, card := b.Columns[0].ID, b.Columns[1].ID, b.Columns[0].Cards[0].ID

	payload, err := dnd.Intent{FromColumnID: from, CardID: card}.Encode()
	require.NoError(t, err)
	body, err := json.Marshal(dropRequest{To: to, Payload: payload})
	require.NoError(t, err)

	b = decodeBoard(t, postDrop(t, h, string(body)))
	assert.Empty(t, b.Columns[0].Cards)
	require.Len(t, b.Columns[1].Cards, 1)
	assert.Equal(t, card, b.Columns[1].Cards[0].ID)

	assert.Equal(t, http.StatusBadRequest, postDrop(t, h, "{").Code)

	b = decodeBoard(t, postDrop(t, h, `{"to":"x","payload":"junk"}`))
	assert.Len(t, b.Columns[1].Cards, 1)
}

func TestDragThenDropWithoutPayload(t *testing.T) {
	_, h := newTestServer(t)
	b := decodeBoard(t, do(t, h, http.MethodPost, "/api/cards", url.Values{"firstname": {"A"}, "lastname": {"B"}}))
	from, to, card := b.Columns[0].ID, b.Columns[3].ID, b.Columns[0].Cards[0].ID

	req := httptest.NewRequest(http.MethodPost, "/api/drag", strings.NewReader(`{"column":"`+from+`","card":"`+card+`"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var started dragResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &started))
	assert.Equal(t, "dragging", started.State)
	intent, err := dnd.Decode(started.Payload)
	require.NoError(t, err)
	assert.Equal(t, dnd.Intent{FromColumnID: from, CardID: card}, intent)

	b = decodeBoard(t, postDrop(t, h, `{"to":"`+to+`"}`))
	assert.Empty(t, b.Columns[0].Cards)
	require.Len(t, b.Columns[3].Cards, 1)

	// a cancelled drag leaves nothing for an empty drop to move
	req = httptest.NewRequest(http.MethodPost, "/api/drag", strings.NewReader(`{"column":"`+to+`","card":"`+card+`"}`))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/drag", nil).Code)
	b = decodeBoard(t, postDrop(t, h, `{"to":"`+from+`"}`))
	assert.Len(t, b.Columns[3].Cards, 1)

	req = httptest.NewRequest(http.MethodPost, "/api/drag", strings.NewReader(`{"card":"`+card+`"}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsAndStatic(t *testing.T) {
	_, h := newTestServer(t)
	do(t, h, http.MethodPost, "/api/columns", url.Values{"title": {"x"}})

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dtnboard_mutations_total{applied="true",op="add_column"} 1`)

	rec = do(t, h, http.MethodGet, "/static/app.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "// app", rec.Body.String())
}

func TestWebSocketReceivesFrames(t *testing.T) {
	s, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first frameMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "render", first.Event)
	assert.Contains(t, first.HTML, "devis à faire")

	require.Eventually(t, func() bool { return s.Hub().Len() == 1 }, time.Second, 10*time.Millisecond)
	resp, err := http.PostForm(srv.URL+"/api/columns", url.Values{"title": {"live"}})
	require.NoError(t, err)
	resp.Body.Close()

	var next frameMessage
	require.NoError(t, conn.ReadJSON(&next))
	assert.Greater(t, next.Seq, first.Seq)
	assert.Contains(t, next.HTML, "live")
}
