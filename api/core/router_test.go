package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kinnrichard/image-uploader/cache/memory"
	"github.com/kinnrichard/image-uploader/config"
	"github.com/kinnrichard/image-uploader/database"
	"github.com/kinnrichard/image-uploader/database/repo/accounts"
	"github.com/kinnrichard/image-uploader/database/repo/images"
	"github.com/kinnrichard/image-uploader/internal/auth"
	"github.com/kinnrichard/image-uploader/internal/session"
	imageSvc "github.com/kinnrichard/image-uploader/internal/services/image"
	"github.com/kinnrichard/image-uploader/storage"
	cryptopackage "github.com/kinnrichard/image-uploader/utils/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	server    *httptest.Server
	uploadDir string
	images    *images.Repository
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		ServerHost:          "127.0.0.1",
		ServerPort:          3000,
		DBType:              "sqlite",
		DBFilePath:          filepath.Join(t.TempDir(), "app.db"),
		SessionCookieName:   "sid",
		UploadDir:           t.TempDir(),
		UploadMaxSizeMB:     5,
		MaxConcurrency:      16,
		RateLimitAuthRPS:    1000,
		RateLimitAuthBurst:  1000,
		RateLimitExpireTime: time.Minute,
	}

	provider, err := database.NewGormProvider(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(provider))
	t.Cleanup(func() { _ = provider.Close() })

	store, err := memory.NewMemory(memory.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	sessions := session.NewManager(store, time.Hour, false)

	local, err := storage.NewLocalStorage(cfg.UploadDir)
	require.NoError(t, err)

	authService, err := auth.NewService(accounts.NewRepository(provider), cryptopackage.NewHasher(bcrypt.MinCost))
	require.NoError(t, err)

	imageRepo := images.NewRepository(provider)
	router, cleanup := NewRouter(&RouterDependencies{
		Config:        cfg,
		Database:      provider,
		Sessions:      sessions,
		Storage:       local,
		AuthService:   authService,
		UploadService: imageSvc.NewUploadService(imageRepo, local, cfg.UploadMaxBytes()),
	})
	t.Cleanup(cleanup)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testServer{server: server, uploadDir: cfg.UploadDir, images: imageRepo}
}

// newClient 每个客户端拥有独立的 Cookie jar，相当于一个浏览器
func (ts *testServer) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (ts *testServer) postJSON(t *testing.T, client *http.Client, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := client.Post(ts.server.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return decodeResponse(t, resp)
}

func (ts *testServer) get(t *testing.T, client *http.Client, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := client.Get(ts.server.URL + path)
	require.NoError(t, err)
	return decodeResponse(t, resp)
}

func (ts *testServer) upload(t *testing.T, client *http.Client, filename, contentType string, data []byte) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	resp, err := client.Post(ts.server.URL+"/api/upload", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	return decodeResponse(t, resp)
}

func (ts *testServer) register(t *testing.T, client *http.Client, username, password string) {
	t.Helper()
	status, body := ts.postJSON(t, client, "/api/register", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, status, body)
}

func decodeResponse(t *testing.T, resp *http.Response) (int, map[string]interface{}) {
	t.Helper()
	defer resp.Body.Close()

	var body map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &body), string(raw))
	}
	return resp.StatusCode, body
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func uploadedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// TestRegister_DuplicateUsername 测试重复注册
func TestRegister_DuplicateUsername(t *testing.T) {
	ts := setupTestServer(t)

	ts.register(t, ts.newClient(t), "alice", "secret")

	status, body := ts.postJSON(t, ts.newClient(t), "/api/register", gin.H{"username": "alice", "password": "other"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Username already exists", body["error"])
}

// TestRegister_MissingFields 测试缺少字段
func TestRegister_MissingFields(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.postJSON(t, ts.newClient(t), "/api/register", gin.H{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Username and password are required", body["error"])
}

// TestRegister_EstablishesSession 注册后立即处于登录状态
func TestRegister_EstablishesSession(t *testing.T) {
	ts := setupTestServer(t)
	client := ts.newClient(t)

	ts.register(t, client, "alice", "secret")

	status, body := ts.get(t, client, "/api/user")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["loggedIn"])
	assert.Equal(t, "alice", body["username"])
}

// TestLogin_FailuresAreIndistinguishable 未知用户与错误密码返回相同响应
func TestLogin_FailuresAreIndistinguishable(t *testing.T) {
	ts := setupTestServer(t)
	ts.register(t, ts.newClient(t), "alice", "secret")

	unknownStatus, unknownBody := ts.postJSON(t, ts.newClient(t), "/api/login", gin.H{"username": "nobody", "password": "secret"})
	wrongStatus, wrongBody := ts.postJSON(t, ts.newClient(t), "/api/login", gin.H{"username": "alice", "password": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, unknownStatus)
	assert.Equal(t, unknownStatus, wrongStatus)
	assert.Equal(t, unknownBody, wrongBody)
	assert.Equal(t, "Invalid username or password", wrongBody["error"])
}

// TestLogin_AcceptsFormEncoding 登录表单同样可用
func TestLogin_AcceptsFormEncoding(t *testing.T) {
	ts := setupTestServer(t)
	ts.register(t, ts.newClient(t), "alice", "secret")

	client := ts.newClient(t)
	resp, err := client.Post(ts.server.URL+"/api/login", "application/x-www-form-urlencoded",
		strings.NewReader("username=alice&password=secret"))
	require.NoError(t, err)
	status, body := decodeResponse(t, resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
}

// TestLogout_EndsSession 登出后受保护接口返回 401
func TestLogout_EndsSession(t *testing.T) {
	ts := setupTestServer(t)
	client := ts.newClient(t)
	ts.register(t, client, "alice", "secret")

	status, _ := ts.get(t, client, "/api/images")
	require.Equal(t, http.StatusOK, status)

	status, body := ts.postJSON(t, client, "/api/logout", gin.H{})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out successfully", body["message"])

	status, body = ts.get(t, client, "/api/images")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Authentication required", body["error"])

	_, body = ts.get(t, client, "/api/user")
	assert.Equal(t, false, body["loggedIn"])
}

// TestProtectedRoutes_RequireSession 测试未登录访问
func TestProtectedRoutes_RequireSession(t *testing.T) {
	ts := setupTestServer(t)
	client := ts.newClient(t)

	status, _ := ts.get(t, client, "/api/images")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.upload(t, client, "a.jpg", "image/jpeg", jpegBytes(t))
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = ts.postJSON(t, client, "/api/logout", gin.H{})
	assert.Equal(t, http.StatusUnauthorized, status)

	assert.Empty(t, uploadedFiles(t, ts.uploadDir))
}

// TestUpload_RejectsNonImage 非图片不落盘也不入库
func TestUpload_RejectsNonImage(t *testing.T) {
	ts := setupTestServer(t)
	client := ts.newClient(t)
	ts.register(t, client, "alice", "secret")

	status, body := ts.upload(t, client, "notes.txt", "text/plain", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Only image files are allowed", body["error"])

	assert.Empty(t, uploadedFiles(t, ts.uploadDir))
	names, err := ts.images.ListFilenames(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

// TestUpload_RejectsOversizedFile 超过 5MiB 的文件被拒绝
func TestUpload_RejectsOversizedFile(t *testing.T) {
	ts := setupTestServer(t)
	client := ts.newClient(t)
	ts.register(t, client, "alice", "secret")

	status, body := ts.upload(t, client, "big.jpg", "image/jpeg", make([]byte, 6<<20))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "File too large", body["error"])
	assert.Empty(t, uploadedFiles(t, ts.uploadDir))
}

// TestUpload_MissingFile 测试没有文件字段
func TestUpload_MissingFile(t *testing.T) {
	ts := setupTestServer(t)
	client := ts.newClient(t)
	ts.register(t, client, "alice", "secret")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("note", "no file here"))
	require.NoError(t, w.Close())

	resp, err := client.Post(ts.server.URL+"/api/upload", w.FormDataContentType(), &buf)
	require.NoError(t, err)
	status, body := decodeResponse(t, resp)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "No file uploaded", body["error"])
}

// TestUpload_ListedNewestFirst 上传后出现在列表首位，且存储文件名互不相同
func TestUpload_ListedNewestFirst(t *testing.T) {
	ts := setupTestServer(t)
	client := ts.newClient(t)
	ts.register(t, client, "alice", "secret")

	data := jpegBytes(t)

	status, first := ts.upload(t, client, "photo.jpg", "image/jpeg", data)
	require.Equal(t, http.StatusOK, status, first)
	status, second := ts.upload(t, client, "photo.jpg", "image/jpeg", data)
	require.Equal(t, http.StatusOK, status, second)

	firstImage := first["image"].(map[string]interface{})
	secondImage := second["image"].(map[string]interface{})
	assert.Equal(t, "Image uploaded successfully", second["message"])
	assert.Equal(t, "photo.jpg", secondImage["originalName"])
	assert.NotEqual(t, firstImage["filename"], secondImage["filename"])
	assert.Equal(t, "/uploads/"+secondImage["filename"].(string), secondImage["url"])

	status, body := ts.get(t, client, "/api/images")
	require.Equal(t, http.StatusOK, status)
	list := body["images"].([]interface{})
	require.Len(t, list, 2)

	newest := list[0].(map[string]interface{})
	assert.Equal(t, secondImage["filename"], newest["filename"])
	assert.Equal(t, secondImage["url"], newest["url"])
	assert.Equal(t, "photo.jpg", newest["original_name"])
	assert.NotEmpty(t, newest["uploaded_at"])

	assert.Len(t, uploadedFiles(t, ts.uploadDir), 2)
}

// TestListImages_PerUserIsolation 用户只能看到自己的图片
func TestListImages_PerUserIsolation(t *testing.T) {
	ts := setupTestServer(t)

	alice := ts.newClient(t)
	ts.register(t, alice, "alice", "secret")
	status, _ := ts.upload(t, alice, "a.jpg", "image/jpeg", jpegBytes(t))
	require.Equal(t, http.StatusOK, status)

	bob := ts.newClient(t)
	ts.register(t, bob, "bob", "secret")

	status, body := ts.get(t, bob, "/api/images")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["images"])

	_, body = ts.get(t, alice, "/api/images")
	assert.Len(t, body["images"], 1)
}

// TestServeImage 上传的图片可通过公开地址访问
func TestServeImage(t *testing.T) {
	ts := setupTestServer(t)
	client := ts.newClient(t)
	ts.register(t, client, "alice", "secret")

	data := jpegBytes(t)
	status, body := ts.upload(t, client, "photo.jpg", "image/jpeg", data)
	require.Equal(t, http.StatusOK, status)
	url := body["image"].(map[string]interface{})["url"].(string)

	resp, err := http.Get(ts.server.URL + url)
	require.NoError(t, err)
	defer resp.Body.Close()
	served, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, data, served)

	status, _ = ts.get(t, http.DefaultClient, "/uploads/image-0000000000000-0000000000000000.jpg")
	assert.Equal(t, http.StatusNotFound, status)
}

// TestServeImage_FileWithoutRecord 磁盘上存在但没有元数据记录的文件不对外提供
func TestServeImage_FileWithoutRecord(t *testing.T) {
	ts := setupTestServer(t)

	name := "image-1700000000000-0123456789abcdef.png"
	require.NoError(t, os.WriteFile(filepath.Join(ts.uploadDir, name), []byte("stray"), 0o644))

	resp, err := http.Get(ts.server.URL + "/uploads/" + name)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotContains(t, string(body), "stray")
}

// TestUploadConcurrency 上传并发为全局的四分之一且不低于 1
func TestUploadConcurrency(t *testing.T) {
	tests := []struct {
		total int64
		want  int64
	}{
		{total: 100, want: 25},
		{total: 16, want: 4},
		{total: 4, want: 1},
		{total: 3, want: 1},
		{total: 1, want: 1},
		{total: 0, want: 25},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.total), func(t *testing.T) {
			assert.Equal(t, tt.want, uploadConcurrency(tt.total))
		})
	}
}

// TestIndex_SwitchesOnSession 首页随登录状态切换
func TestIndex_SwitchesOnSession(t *testing.T) {
	ts := setupTestServer(t)
	client := ts.newClient(t)

	anonymous := fetchPage(t, client, ts.server.URL+"/")
	ts.register(t, client, "alice", "secret")
	loggedIn := fetchPage(t, client, ts.server.URL+"/")

	assert.NotEqual(t, anonymous, loggedIn)
}

func fetchPage(t *testing.T, client *http.Client, url string) string {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

// TestHealthCheck 测试健康检查
func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.get(t, ts.newClient(t), "/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "ok", checks["database"])
	assert.Equal(t, "ok", checks["session_store"])
	assert.Equal(t, "ok", checks["storage"])
}

// TestVersion 测试版本接口
func TestVersion(t *testing.T) {
	ts := setupTestServer(t)

	status, body := ts.get(t, ts.newClient(t), "/version")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, config.Version, body["version"])
}
