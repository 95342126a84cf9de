package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"agora/internal/config"
	"agora/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupFlowServer builds a server against an in-memory database with the
// full route table mounted, so tests exercise the real middleware chain.
func setupFlowServer(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A pooled connection would see a different in-memory database.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}))

	cfg := &config.Config{JWTSecret: "test-secret", Env: "test"}
	s, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)

	app := fiber.New()
	s.SetupRoutes(app)
	return app
}

func flowRequest(t *testing.T, app *fiber.App, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeList(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	var out []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// registerAndLogin creates an account through the public API and returns a
// usable bearer token.
func registerAndLogin(t *testing.T, app *fiber.App, username, role string) string {
	t.Helper()

	email := username + "@example.com"
	resp := flowRequest(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    email,
		"password": "Password123!@",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": "Password123!@",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func createPost(t *testing.T, app *fiber.App, token, title string) int {
	t.Helper()

	resp := flowRequest(t, app, http.MethodPost, "/api/posts/", token, map[string]any{
		"title":       title,
		"description": "a description",
		"image_url":   "data:image/png;base64,aW1n",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeMap(t, resp)
	id, ok := body["postId"].(float64)
	require.True(t, ok, "expected numeric postId in %v", body)
	return int(id)
}

func TestRegisterLoginFlow(t *testing.T) {
	app := setupFlowServer(t)

	resp := flowRequest(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "Password123!@",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.NotContains(t, string(raw), "Password123!@")

	// A second registration with the same email fails outright.
	resp = flowRequest(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice2",
		"email":    "alice@example.com",
		"password": "Password123!@",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "WrongPass123!@",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "Password123!@",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decodeMap(t, resp)
	token := login["token"].(string)

	resp = flowRequest(t, app, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decodeMap(t, resp)
	assert.Equal(t, "alice", profile["username"])
	assert.Equal(t, models.RoleUser, profile["role"])
	_, leaked := profile["password_hash"]
	assert.False(t, leaked)
}

func TestPostLifecycleFlow(t *testing.T) {
	app := setupFlowServer(t)
	alice := registerAndLogin(t, app, "alice", "")
	bob := registerAndLogin(t, app, "bob", "")

	// The feed is members-only.
	resp := flowRequest(t, app, http.MethodGet, "/api/posts/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	postID := createPost(t, app, alice, "first post")

	resp = flowRequest(t, app, http.MethodGet, "/api/posts/", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	feed := decodeList(t, resp)
	require.Len(t, feed, 1)
	assert.Equal(t, "first post", feed[0]["title"])
	assert.Equal(t, "alice", feed[0]["username"])
	assert.EqualValues(t, 0, feed[0]["commentCount"])

	// Only the owner may rename the post.
	path := fmt.Sprintf("/api/posts/%d", postID)
	resp = flowRequest(t, app, http.MethodPut, path, bob, map[string]string{"title": "hijacked"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodPut, path, alice, map[string]string{"title": "renamed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodGet, path, bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	post := decodeMap(t, resp)
	assert.Equal(t, "renamed", post["title"])

	// Deletion follows the same ownership rule, and a repeat delete of the
	// same post reports not found.
	resp = flowRequest(t, app, http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodGet, path, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAdminModeration(t *testing.T) {
	app := setupFlowServer(t)
	bob := registerAndLogin(t, app, "bob", "")
	admin := registerAndLogin(t, app, "carol", models.RoleAdmin)

	postID := createPost(t, app, bob, "bob writes")
	path := fmt.Sprintf("/api/posts/%d", postID)

	resp := flowRequest(t, app, http.MethodPut, path, admin, map[string]string{"title": "moderated"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodDelete, path, admin, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestCommentFlow(t *testing.T) {
	app := setupFlowServer(t)
	alice := registerAndLogin(t, app, "alice", "")
	bob := registerAndLogin(t, app, "bob", "")

	withComments := createPost(t, app, alice, "discussed")
	bare := createPost(t, app, alice, "ignored")

	commentPath := fmt.Sprintf("/api/comments/%d", withComments)

	// Writes require authentication and non-empty content.
	resp := flowRequest(t, app, http.MethodPost, commentPath, "", map[string]string{"content": "anon"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodPost, commentPath, bob, map[string]string{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodPost, commentPath, bob, map[string]string{"content": "older thought"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodPost, commentPath, bob, map[string]string{"content": "newer thought"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeMap(t, resp)
	commentID := int(created["commentId"].(float64))

	// Reads are public and newest-first.
	resp = flowRequest(t, app, http.MethodGet, commentPath, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	comments := decodeList(t, resp)
	require.Len(t, comments, 2)
	assert.Equal(t, "newer thought", comments[0]["content"])
	assert.Equal(t, "bob", comments[0]["username"])
	assert.Equal(t, "older thought", comments[1]["content"])

	// The feed preview carries only the most recent comment, and skips
	// posts that have none.
	resp = flowRequest(t, app, http.MethodGet, "/api/posts/?preview=true", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	feed := decodeList(t, resp)
	require.Len(t, feed, 2)
	for _, p := range feed {
		switch int(p["id"].(float64)) {
		case withComments:
			preview, ok := p["commentPreview"].(map[string]any)
			require.True(t, ok, "expected a preview on %v", p)
			assert.Equal(t, "newer thought", preview["content"])
			assert.Equal(t, "bob", preview["username"])
			assert.EqualValues(t, 2, p["commentCount"])
		case bare:
			_, present := p["commentPreview"]
			assert.False(t, present)
		default:
			t.Fatalf("unexpected post in feed: %v", p)
		}
	}

	// Only the comment's author (or an admin) may change it.
	editPath := fmt.Sprintf("/api/comments/%d", commentID)
	resp = flowRequest(t, app, http.MethodPut, editPath, alice, map[string]string{"content": "edited"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodPut, editPath, bob, map[string]string{"content": "edited"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodDelete, editPath, bob, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodDelete, editPath, bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestFeedPagination(t *testing.T) {
	app := setupFlowServer(t)
	alice := registerAndLogin(t, app, "alice", "")

	for i := 1; i <= 5; i++ {
		createPost(t, app, alice, fmt.Sprintf("post %d", i))
	}

	var seen []int
	for offset := 0; offset < 6; offset += 2 {
		path := fmt.Sprintf("/api/posts/?limit=2&offset=%d", offset)
		resp := flowRequest(t, app, http.MethodGet, path, alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		for _, p := range decodeList(t, resp) {
			seen = append(seen, int(p["id"].(float64)))
		}
	}

	// Pages are disjoint, cover everything, and stay in newest-first order.
	require.Len(t, seen, 5)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i-1], seen[i])
	}
}

func TestUpdateProfileReissuesToken(t *testing.T) {
	app := setupFlowServer(t)
	alice := registerAndLogin(t, app, "alice", "")

	resp := flowRequest(t, app, http.MethodPut, "/api/users/update-profile", alice, map[string]string{
		"username": "alice_renamed",
		"bio":      "hello",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	fresh, _ := body["token"].(string)
	require.NotEmpty(t, fresh)

	resp = flowRequest(t, app, http.MethodGet, "/api/users/profile", fresh, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	profile := decodeMap(t, resp)
	assert.Equal(t, "alice_renamed", profile["username"])

	resp = flowRequest(t, app, http.MethodGet, "/api/users/alice_renamed/posts", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestSetUserRoleRequiresAdmin(t *testing.T) {
	app := setupFlowServer(t)
	_ = registerAndLogin(t, app, "bob", "")
	alice := registerAndLogin(t, app, "alice", "")
	admin := registerAndLogin(t, app, "root", models.RoleAdmin)

	resp := flowRequest(t, app, http.MethodPut, "/api/users/bob/role", alice, map[string]string{
		"role": models.RoleAdmin,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	resp = flowRequest(t, app, http.MethodPut, "/api/users/bob/role", admin, map[string]string{
		"role": models.RoleAdmin,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeMap(t, resp)
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, user["role"])
}
