package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/crv/internal/chat"
	"github.com/joescharf/crv/internal/config"
	"github.com/joescharf/crv/internal/llm"
	"github.com/joescharf/crv/internal/models"
	"github.com/joescharf/crv/internal/pipeline"
	"github.com/joescharf/crv/internal/store"
)

// fakeOracle answers by the first rule whose marker appears in the user
// prompt, and with a plain sentence otherwise.
type fakeOracle struct {
	mu      sync.Mutex
	replies [][2]string
	prompts []string
}

func (f *fakeOracle) reply(marker, text string) *fakeOracle {
	f.replies = append(f.replies, [2]string{marker, text})
	return f
}

func (f *fakeOracle) complete(_ context.Context, _, user, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, user)
	for _, r := range f.replies {
		if strings.Contains(user, r[0]) {
			return r[1], nil
		}
	}
	return "Narrative text.", nil
}

type testEnv struct {
	router http.Handler
	store  store.Store
	oracle *fakeOracle
}

func setupTestServer(t *testing.T, auth config.AuthSettings) *testEnv {
	t.Helper()
	return setupTestServerWithUpload(t, auth, config.UploadSettings{})
}

func setupTestServerWithUpload(t *testing.T, auth config.AuthSettings, upload config.UploadSettings) *testEnv {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	s, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	fake := &fakeOracle{}
	registry := llm.NewRegistry("gpt-4o", 0, nil)
	registry.Register(llm.ProviderOpenAI, llm.OracleFunc(fake.complete))

	cfg := pipeline.DefaultConfig()
	cfg.Pacing.CallDelay = 0
	cfg.Pacing.HealthCallDelay = 0
	runner := pipeline.New(registry, cfg, nil)

	history, err := chat.NewHistory(16, 20, 15)
	require.NoError(t, err)

	srv := NewServer(Options{
		Store:   s,
		Runner:  runner,
		Chat:    chat.NewService(runner, history, nil),
		Catalog: registry,
		Upload:  upload,
		Auth:    auth,
	})
	router, err := srv.Router()
	require.NoError(t, err)
	return &testEnv{router: router, store: s, oracle: fake}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	w := e.do(t, "POST", "/api/session/create", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	decodeBody(t, w, &resp)
	assert.Equal(t, "Session created successfully", resp["message"])
	require.NotEmpty(t, resp["session_id"])
	return resp["session_id"]
}

func (e *testEnv) upload(t *testing.T, sessionID, name string, kind models.DocumentKind, mediaType, content string) string {
	t.Helper()
	w := e.do(t, "POST", "/api/files/upload?session_id="+sessionID, uploadRequest{
		Name:      name,
		Type:      kind,
		Size:      int64(len(content)),
		Content:   base64.StdEncoding.EncodeToString([]byte(content)),
		MediaType: mediaType,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp uploadResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "File uploaded successfully", resp.Message)
	return resp.FileID
}

const (
	nullDeref = "def handler(user):\n    profile = None\n    return profile.name\n"
	srsText   = "Software Requirements Specification\n" +
		"1. Functional requirements: the system shall greet users.\n" +
		"2. Security requirements: inputs are validated.\n" +
		"3. Performance requirements: replies within 200ms.\n"
)

func TestBannerAndHealth(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{})

	w := env.do(t, "GET", "/api/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var banner map[string]string
	decodeBody(t, w, &banner)
	assert.Equal(t, Banner, banner["message"])

	w = env.do(t, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/api/models", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"gpt-4o"`)
}

func TestUploadAndValidateSRS(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{})
	sid := env.createSession(t)

	env.upload(t, sid, "handler.py", models.DocumentKindCode, "text/x-python", nullDeref)
	srsID := env.upload(t, sid, "srs.md", models.DocumentKindSRS, "text/markdown", srsText)

	w := env.do(t, "POST", "/api/files/validate-srs?file_id="+srsID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var check struct {
		IsValid       bool    `json:"is_valid_srs"`
		Confidence    float64 `json:"confidence"`
		KeywordsFound int     `json:"keywords_found"`
		Message       string  `json:"message"`
	}
	decodeBody(t, w, &check)
	assert.True(t, check.IsValid)
	assert.GreaterOrEqual(t, check.KeywordsFound, 3)
	assert.Equal(t, "Valid SRS document", check.Message)

	doc, err := env.store.GetDocument(context.Background(), srsID)
	require.NoError(t, err)
	assert.Equal(t, srsText, doc.Content)

	w = env.do(t, "GET", "/api/files/session/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Files []models.Document    `json:"files"`
		Stats models.DocumentStats `json:"stats"`
	}
	decodeBody(t, w, &listing)
	assert.Len(t, listing.Files, 2)
	assert.Empty(t, listing.Files[0].Content)
	assert.Equal(t, 1, listing.Stats.CodeFiles)
	assert.Equal(t, 1, listing.Stats.Languages["python"])
}

func TestUpload_Rejections(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{})
	sid := env.createSession(t)

	w := env.do(t, "POST", "/api/files/upload?session_id="+sid, uploadRequest{
		Name: "tool.exe", Type: models.DocumentKindCode, Size: 10, Content: "", MediaType: "application/octet-stream",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unsupported code file extension: .exe")

	w = env.do(t, "POST", "/api/files/upload?session_id="+sid, uploadRequest{
		Name: "big.py", Type: models.DocumentKindCode, Size: 51 << 20, MediaType: "text/x-python",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "File size exceeds 50MB limit")

	w = env.do(t, "POST", "/api/files/upload?session_id=missing", uploadRequest{
		Name: "a.py", Type: models.DocumentKindCode, Size: 1, Content: "eA==", MediaType: "text/x-python",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "POST", "/api/files/validate-srs?file_id=nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyzeCode_NoCodeFiles(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{})
	sid := env.createSession(t)
	env.upload(t, sid, "srs.md", models.DocumentKindSRS, "text/markdown", srsText)

	w := env.do(t, "POST", "/api/analysis/analyze-code", analysisRequest{SessionID: sid, Model: "gpt-4o"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No code files found")
	assert.Empty(t, env.oracle.prompts)

	w = env.do(t, "POST", "/api/analysis/generate-checklist?session_id="+env.createSession(t), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "No SRS files found for this session")
}

func TestAnalyzeFixReviewReport(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{})
	env.oracle.
		reply("Generate a code review checklist from",
			`[{"category": "Reliability", "title": "Null checks", "description": "guard None", "severity": "high"}]`).
		reply("Review the following",
			`{"issues": [{"line": 3, "type": "Bug", "severity": "critical", "message": "None dereference", "suggestion": "check for None", "auto_fixable": true}]}`).
		reply("Fix the listed issues",
			`{"fixed_code": "def handler(user):\n    profile = None\n    return profile.name if profile else None\n", "changes_summary": "Guarded None"}`)

	sid := env.createSession(t)
	env.upload(t, sid, "handler.py", models.DocumentKindCode, "text/x-python", nullDeref)
	env.upload(t, sid, "srs.md", models.DocumentKindSRS, "text/markdown", srsText)

	w := env.do(t, "GET", "/api/analysis/results/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No analysis found for this session")

	w = env.do(t, "POST", "/api/analysis/analyze-code", analysisRequest{SessionID: sid, Model: "gpt-4o"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Code analysis completed successfully")

	w = env.do(t, "GET", "/api/analysis/results/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result models.AnalysisResult
	decodeBody(t, w, &result)
	assert.Equal(t, 1, result.Summary.TotalIssues)
	assert.Equal(t, 1, result.Summary.CriticalIssues)
	assert.Equal(t, 95, result.Summary.OverallScore)
	require.Len(t, result.Checklist, 1)
	assert.Equal(t, "Null checks", result.Checklist[0].Title)
	assert.False(t, result.Checklist[0].Checked)

	checked := true
	w = env.do(t, "POST", "/api/analysis/checklist/update", checklistUpdateRequest{SessionID: sid, ItemID: result.Checklist[0].ID, Checked: &checked})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated struct {
		Item models.ChecklistItem `json:"item"`
	}
	decodeBody(t, w, &updated)
	assert.True(t, updated.Item.Checked)

	w = env.do(t, "GET", "/api/analysis/results/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeBody(t, w, &result)
	assert.True(t, result.Checklist[0].Checked)

	w = env.do(t, "POST", "/api/analysis/checklist/update", checklistUpdateRequest{SessionID: sid, ItemID: "nope", Checked: &checked})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, "POST", "/api/analysis/checklist/update", checklistUpdateRequest{SessionID: sid, ItemID: result.Checklist[0].ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/code/fix", fixRequest{SessionID: sid, FileName: "other.py"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "File not found in analysis")

	w = env.do(t, "POST", "/api/code/fix", fixRequest{SessionID: sid, FileName: "handler.py", FixAll: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var fixed fixResponse
	decodeBody(t, w, &fixed)
	assert.Contains(t, fixed.ModifiedContent, "if profile else None")
	assert.Equal(t, []string{"None dereference"}, fixed.IssuesFixed)
	require.Len(t, fixed.Changes, 1)
	assert.Equal(t, "modification", fixed.Changes[0].Type)
	assert.Equal(t, 3, fixed.Changes[0].Line)

	w = env.do(t, "POST", "/api/review/update", reviewRequest{SessionID: sid, FileName: "handler.py", Status: models.ReviewStatusAccepted, AcceptAll: true})
	require.Equal(t, http.StatusOK, w.Code)
	var review reviewResponse
	decodeBody(t, w, &review)
	assert.Equal(t, int64(1), review.UpdatedChanges)
	assert.Equal(t, "active", review.SessionStatus)

	w = env.do(t, "POST", "/api/review/update", reviewRequest{SessionID: sid, FileName: "handler.py", Status: "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/report/generate?session_id="+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report struct {
		Data reportData `json:"report_data"`
	}
	decodeBody(t, w, &report)
	assert.Equal(t, 1, report.Data.IssuesFound)
	assert.Equal(t, 1, report.Data.FilesModified)
	assert.Equal(t, "gpt-4o", report.Data.ModelUsed)
	require.Len(t, report.Data.ModifiedFiles, 1)
	assert.Equal(t, models.ReviewStatusAccepted, report.Data.ModifiedFiles[0].ReviewStatus)

	w = env.do(t, "POST", "/api/report/generate?session_id="+sid+"&include_code=false", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "modified_files")

	w = env.do(t, "POST", "/api/report/generate?session_id=unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Session or analysis not found")
}

func TestComprehensiveFlow(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{})
	sid := env.createSession(t)

	w := env.do(t, "GET", "/api/ai/traceability-matrix/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, "POST", "/api/ai/comprehensive-report", analysisRequest{SessionID: sid})
	assert.Equal(t, http.StatusNotFound, w.Code)

	env.upload(t, sid, "handler.py", models.DocumentKindCode, "text/x-python", nullDeref)
	env.upload(t, sid, "srs.md", models.DocumentKindSRS, "text/markdown", srsText)

	w = env.do(t, "POST", "/api/ai/comprehensive-analysis", analysisRequest{SessionID: sid})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var run struct {
		Summary models.ComprehensiveSummary `json:"summary"`
	}
	decodeBody(t, w, &run)
	assert.Equal(t, 1, run.Summary.TotalFiles)

	w = env.do(t, "GET", "/api/ai/traceability-matrix/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"traceability_matrix":[]`)

	w = env.do(t, "GET", "/api/ai/health-metrics/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Metrics []models.HealthMetric `json:"health_metrics"`
	}
	decodeBody(t, w, &health)
	require.Len(t, health.Metrics, 1)
	assert.True(t, health.Metrics[0].Fallback)

	w = env.do(t, "POST", "/api/ai/comprehensive-report", analysisRequest{SessionID: sid})
	require.Equal(t, http.StatusOK, w.Code)
	var report models.Report
	decodeBody(t, w, &report)
	assert.False(t, report.Error)
	assert.Equal(t, "Narrative text.", report.ExecutiveSummary)

	w = env.do(t, "GET", "/api/ai/dashboard/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view dashboardView
	decodeBody(t, w, &view)
	assert.Equal(t, 2, view.Files.TotalFiles)
	assert.NotNil(t, view.Comprehensive)
	assert.Nil(t, view.Analysis)

	w = env.do(t, "GET", "/api/ai/dashboard/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatAndSuggestions(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{})
	env.oracle.reply("Suggest improvements",
		`[{"type": "improvement", "suggestion": "guard None", "description": "avoid crash", "priority": "HIGH"}]`)
	sid := env.createSession(t)
	env.upload(t, sid, "handler.py", models.DocumentKindCode, "text/x-python", nullDeref)

	w := env.do(t, "POST", "/api/ai/chat", chatRequest{SessionID: sid, Message: "What does the handler do?"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp chat.Response
	decodeBody(t, w, &resp)
	assert.Equal(t, "Narrative text.", resp.Reply)

	w = env.do(t, "POST", "/api/ai/chat", chatRequest{SessionID: sid})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "POST", "/api/ai/code-suggestions", suggestionsRequest{SessionID: sid, FileName: "handler.py", Code: nullDeref, CursorPosition: 10})
	require.Equal(t, http.StatusOK, w.Code)
	var sugg struct {
		Suggestions []models.Suggestion `json:"suggestions"`
	}
	decodeBody(t, w, &sugg)
	require.Len(t, sugg.Suggestions, 1)
	assert.Equal(t, "high", sugg.Suggestions[0].Priority)
}

func TestEnhancedChecklist_Fallback(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{})
	sid := env.createSession(t)
	env.upload(t, sid, "srs.md", models.DocumentKindSRS, "text/markdown", srsText)

	w := env.do(t, "POST", "/api/ai/enhanced-checklist", analysisRequest{SessionID: sid})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Checklist []models.ChecklistItem `json:"checklist"`
	}
	decodeBody(t, w, &resp)
	assert.Len(t, resp.Checklist, len(pipeline.FallbackEnhancedChecklist()))
}

func TestUpload_MeasuresDecodedContent(t *testing.T) {
	env := setupTestServerWithUpload(t, config.AuthSettings{}, config.UploadSettings{MaxFileSize: 1 << 20})
	sid := env.createSession(t)

	big := strings.Repeat("x = 1\n", (1<<20)/6+1)
	w := env.do(t, "POST", "/api/files/upload?session_id="+sid, uploadRequest{
		Name:      "big.py",
		Type:      models.DocumentKindCode,
		Size:      10,
		Content:   base64.StdEncoding.EncodeToString([]byte(big)),
		MediaType: "text/x-python",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "File size exceeds 1MB limit")

	ds, err := env.store.ListDocuments(context.Background(), sid, "")
	require.NoError(t, err)
	assert.Empty(t, ds)

	// The stored size is the measured one, not the declared one.
	w = env.do(t, "POST", "/api/files/upload?session_id="+sid, uploadRequest{
		Name:      "small.py",
		Type:      models.DocumentKindCode,
		Size:      1,
		Content:   base64.StdEncoding.EncodeToString([]byte(nullDeref)),
		MediaType: "text/x-python",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp uploadResponse
	decodeBody(t, w, &resp)
	d, err := env.store.GetDocument(context.Background(), resp.FileID)
	require.NoError(t, err)
	assert.Equal(t, int64(len(nullDeref)), d.Size)
}

func TestUpload_BodyTooLarge(t *testing.T) {
	env := setupTestServerWithUpload(t, config.AuthSettings{}, config.UploadSettings{MaxFileSize: 1 << 10})
	sid := env.createSession(t)

	w := env.do(t, "POST", "/api/files/upload?session_id="+sid, uploadRequest{
		Name:      "big.py",
		Type:      models.DocumentKindCode,
		Size:      10,
		Content:   strings.Repeat("A", 200<<10),
		MediaType: "text/x-python",
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadZip_EntryTooLarge(t *testing.T) {
	env := setupTestServerWithUpload(t, config.AuthSettings{}, config.UploadSettings{MaxFileSize: 1 << 20})
	sid := env.createSession(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create("src/huge.py")
	require.NoError(t, err)
	_, err = f.Write(bytes.Repeat([]byte("a"), 2<<20))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.Less(t, buf.Len(), 1<<20, "archive itself is under the limit")

	w := env.do(t, "POST", "/api/files/upload-zip?session_id="+sid, zipUploadRequest{
		Name:    "bomb.zip",
		Content: base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "File size exceeds 1MB limit")

	ds, err := env.store.ListDocuments(context.Background(), sid, "")
	require.NoError(t, err)
	assert.Empty(t, ds)
}

func TestZipRoundTrip(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{})
	sid := env.createSession(t)

	w := env.do(t, "GET", "/api/files/download-zip/"+sid, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "No files found for this session")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"src/app.py":         "print('hi')\n",
		"__MACOSX/._app.py":  "junk",
		"src/.env":           "SECRET=1",
		"docs/diagram.png":   "\x89PNG",
		"src/lib/helpers.js": "export const x = 1\n",
	} {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	w = env.do(t, "POST", "/api/files/upload-zip?session_id="+sid, zipUploadRequest{
		Name:    "project.zip",
		Content: base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var up struct {
		Count int `json:"count"`
	}
	decodeBody(t, w, &up)
	assert.Equal(t, 2, up.Count)

	w = env.do(t, "GET", "/api/files/download-zip/"+sid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "session_"+sid+"_files.zip")

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestAPIKeyAuth(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{Type: config.AuthTypeAPIKey, APIKeys: []string{"secret"}})

	w := env.do(t, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "POST", "/api/session/create", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("POST", "/api/session/create", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := newAuthMiddleware(config.AuthSettings{Type: "oauth"})
	assert.Error(t, err)
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestServer(t, config.AuthSettings{})
	w := env.do(t, "OPTIONS", "/api/session/create", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
