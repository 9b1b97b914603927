package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/terra-clan/scheme-connect/internal/advisor"
	"github.com/terra-clan/scheme-connect/internal/catalog"
	"github.com/terra-clan/scheme-connect/internal/config"
	"github.com/terra-clan/scheme-connect/internal/ingest"
	"github.com/terra-clan/scheme-connect/internal/models"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := zaptest.NewLogger(t)
	seed, err := catalog.DefaultSeed()
	require.NoError(t, err)

	store := catalog.NewStore(seed, logger)
	importer := ingest.NewImporter(store, logger)
	manager := advisor.NewManager(store, advisor.Options{TTL: time.Hour}, logger)
	t.Cleanup(func() { _ = manager.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		Ingest: config.IngestConfig{MaxUploadBytes: 1 << 20},
	}
	return NewServer(cfg, store, importer, manager, logger)
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

type schemeList struct {
	Schemes []models.Scheme `json:"schemes"`
	Total   int             `json:"total"`
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schemes/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &rows[i]))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = doRequest(t, s, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var ready map[string]interface{}
	decodeData(t, env, &ready)
	assert.Equal(t, "ready", ready["status"])
	assert.Equal(t, float64(3), ready["schemes"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	doRequest(t, s, http.MethodGet, "/health", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "schemeconnect_http_requests_total")
}

func TestCategoriesAndStats(t *testing.T) {
	s := newTestServer(t)

	_, env := doRequest(t, s, http.MethodGet, "/api/v1/categories", nil)
	var cats struct {
		Categories []string `json:"categories"`
	}
	decodeData(t, env, &cats)
	assert.Equal(t, catalog.Categories, cats.Categories)

	_, env = doRequest(t, s, http.MethodGet, "/api/v1/stats", nil)
	var stats models.CatalogStats
	decodeData(t, env, &stats)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Featured)
}

func TestListSchemes(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		path string
		want int
	}{
		{"all", "/api/v1/schemes", 3},
		{"explicit all", "/api/v1/schemes?category=All", 3},
		{"category", "/api/v1/schemes?category=Education", 1},
		{"query", "/api/v1/schemes?q=loan", 1},
		{"query and category", "/api/v1/schemes?q=grant&category=Business", 1},
		{"no match", "/api/v1/schemes?q=grant&category=Education", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doRequest(t, s, http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var list schemeList
			decodeData(t, env, &list)
			assert.Equal(t, tt.want, list.Total)
			assert.Len(t, list.Schemes, tt.want)
		})
	}
}

func TestFeaturedAndGetScheme(t *testing.T) {
	s := newTestServer(t)

	_, env := doRequest(t, s, http.MethodGet, "/api/v1/schemes/featured", nil)
	var list schemeList
	decodeData(t, env, &list)
	assert.Equal(t, 3, list.Total)

	rec, env := doRequest(t, s, http.MethodGet, "/api/v1/schemes/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var sc models.Scheme
	decodeData(t, env, &sc)
	assert.Equal(t, "Digital Skills Development Fund", sc.Title)

	rec, env = doRequest(t, s, http.MethodGet, "/api/v1/schemes/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestSchemeCRUD(t *testing.T) {
	s := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/schemes", models.Scheme{ID: "x1", Title: "Solar Homes"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Scheme
	decodeData(t, env, &created)
	assert.Equal(t, "General", created.Category)
	assert.Equal(t, models.SchemeActive, created.Status)
	assert.Equal(t, []string{}, created.Eligibility)

	rec, _ = doRequest(t, s, http.MethodPost, "/api/v1/schemes", models.Scheme{ID: "x1", Title: "Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = doRequest(t, s, http.MethodPost, "/api/v1/schemes", models.Scheme{Title: "No id"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = doRequest(t, s, http.MethodPut, "/api/v1/schemes/x1", models.Scheme{Title: "Solar Homes 2", Category: "Housing"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Scheme
	decodeData(t, env, &updated)
	assert.Equal(t, "x1", updated.ID)
	assert.Equal(t, "Housing", updated.Category)

	rec, _ = doRequest(t, s, http.MethodPut, "/api/v1/schemes/1", models.Scheme{Title: "Hijack"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = doRequest(t, s, http.MethodPut, "/api/v1/schemes/missing", models.Scheme{Title: "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = doRequest(t, s, http.MethodDelete, "/api/v1/schemes/2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = doRequest(t, s, http.MethodDelete, "/api/v1/schemes/x1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, s, http.MethodDelete, "/api/v1/schemes/x1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportSchemes(t *testing.T) {
	s := newTestServer(t)

	data := workbook(t, [][]any{
		{"TITLE", "CATEGORY", "STATUS", "APPLICANTS", "ELIGIBILITY"},
		{"Women Startup Grant", "Business", "", 120, "Woman entrepreneur, Age 21-45"},
		{"Organic Farming Aid", "Agriculture", "upcoming"},
	})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, uploadRequest(t, "schemes.xlsx", data))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	var result models.ImportResult
	decodeData(t, env, &result)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 5, result.Total)

	_, env = doRequest(t, s, http.MethodGet, "/api/v1/schemes", nil)
	var list schemeList
	decodeData(t, env, &list)
	require.Equal(t, 5, list.Total)
	assert.Equal(t, models.SchemeActive, list.Schemes[3].Status)
	assert.Equal(t, []string{"Woman entrepreneur", "Age 21-45"}, list.Schemes[3].Eligibility)
	assert.Equal(t, 0, list.Schemes[4].Applicants)
}

func TestImportSchemes_Rejected(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		filename string
		content  []byte
		status   int
		code     string
	}{
		{"legacy xls", "old.xls", []byte("binary"), http.StatusUnprocessableEntity, "invalid_spreadsheet"},
		{"corrupted", "broken.xlsx", []byte("not a zip"), http.StatusUnprocessableEntity, "invalid_spreadsheet"},
		{"too large", "big.csv", bytes.Repeat([]byte("a"), 2<<20), http.StatusRequestEntityTooLarge, "file_too_large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Router().ServeHTTP(rec, uploadRequest(t, tt.filename, tt.content))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var env envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tt.code, env.Error.Code)
			if tt.code == "invalid_spreadsheet" {
				assert.Equal(t, ingest.FailureMessage, env.Error.Message)
			}
		})
	}

	_, env := doRequest(t, s, http.MethodGet, "/api/v1/stats", nil)
	var stats models.CatalogStats
	decodeData(t, env, &stats)
	assert.Equal(t, 3, stats.Total, "catalog untouched")
}

func TestImportSchemes_MissingFile(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schemes/import", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRespond(t *testing.T) {
	s := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/respond", models.RespondRequest{
		Message: "I'm a student",
		Profile: models.UserProfile{Interests: []string{"Education"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.RespondResponse
	decodeData(t, env, &resp)
	assert.Equal(t, "student", resp.Intent)
	require.NotNil(t, resp.ProfileUpdate)
	assert.Equal(t, "Student", resp.Profile.Category)
	assert.Equal(t, []string{"Education"}, resp.Profile.Interests)
	assert.Len(t, resp.Suggestions, 3)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec, env := doRequest(t, s, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.CreateSessionResponse
	decodeData(t, env, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, models.RoleBot, created.Greeting.Role)

	base := "/api/v1/sessions/" + created.ID

	_, env = doRequest(t, s, http.MethodGet, "/api/v1/sessions", nil)
	var list struct {
		Total int `json:"total"`
	}
	decodeData(t, env, &list)
	assert.Equal(t, 1, list.Total)

	rec, env = doRequest(t, s, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		ID        string `json:"id"`
		ExpiresIn int64  `json:"expires_in_seconds"`
	}
	decodeData(t, env, &view)
	assert.Equal(t, created.ID, view.ID)
	assert.Greater(t, view.ExpiresIn, int64(3500))
	assert.LessOrEqual(t, view.ExpiresIn, int64(3600))

	rec, env = doRequest(t, s, http.MethodPatch, base+"/profile", models.ProfileUpdate{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", env.Error.Code)

	// profile update completes the profile step
	rec, env = doRequest(t, s, http.MethodPatch, base+"/profile", models.ProfileUpdate{
		Age:       models.IntPtr(25),
		Income:    models.StringPtr("3-8L"),
		Category:  models.StringPtr("Farmer"),
		Interests: []string{"Agriculture"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = doRequest(t, s, http.MethodGet, base+"/workflow", nil)
	var wf struct {
		Steps   []models.WorkflowStep `json:"steps"`
		Current models.StepID         `json:"current"`
	}
	decodeData(t, env, &wf)
	assert.Equal(t, models.StepDiscover, wf.Current)

	rec, env = doRequest(t, s, http.MethodPost, base+"/workflow/discover/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doRequest(t, s, http.MethodPost, base+"/workflow/launch/complete", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, env = doRequest(t, s, http.MethodGet, base+"/eligibility", nil)
	var elig models.EligibilityResponse
	decodeData(t, env, &elig)
	assert.True(t, elig.Ready)
	assert.Equal(t, 1, elig.Count)

	_, env = doRequest(t, s, http.MethodGet, base+"/recommendations?limit=1", nil)
	var recs schemeList
	decodeData(t, env, &recs)
	assert.Equal(t, 1, recs.Total)

	rec, _ = doRequest(t, s, http.MethodGet, base+"/recommendations?limit=many", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// chat turn
	rec, _ = doRequest(t, s, http.MethodPost, base+"/messages", models.SendMessageRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = doRequest(t, s, http.MethodPost, base+"/messages", models.SendMessageRequest{Content: "how to apply?"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var userMsg models.ChatMessage
	decodeData(t, env, &userMsg)
	assert.Equal(t, models.RoleUser, userMsg.Role)

	require.Eventually(t, func() bool {
		_, env := doRequest(t, s, http.MethodGet, base+"/messages", nil)
		var msgs struct {
			Messages []models.ChatMessage `json:"messages"`
		}
		decodeData(t, env, &msgs)
		return len(msgs.Messages) == 3 && msgs.Messages[2].Intent == "apply"
	}, 2*time.Second, 10*time.Millisecond)

	// delete
	rec, _ = doRequest(t, s, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = doRequest(t, s, http.MethodGet, base+"/profile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestChatWebSocket(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	_, env := doRequest(t, s, http.MethodPost, "/api/v1/sessions", nil)
	var created models.CreateSessionResponse
	decodeData(t, env, &created)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/" + created.ID + "/chat"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var frame ChatFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, FrameConnected, frame.Type)

	require.NoError(t, conn.WriteJSON(ChatFrame{Type: FrameMessage, Data: "I'm a farmer"}))

	var types []string
	var bot *models.ChatMessage
	for bot == nil {
		var f ChatFrame
		require.NoError(t, conn.ReadJSON(&f))
		types = append(types, f.Type)
		if f.Type == FrameMessage && f.Message.Role == models.RoleBot {
			bot = f.Message
		}
	}

	assert.Equal(t, []string{FrameMessage, FrameTyping, FrameMessage}, types)
	assert.Equal(t, "farmer", bot.Intent)

	sess, err := s.advisor.GetSession(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Farmer", sess.Profile.Category)
}

func TestChatWebSocket_UnknownSession(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/missing/chat"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
