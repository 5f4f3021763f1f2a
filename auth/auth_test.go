package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"nexuslab/models"
)

const testSecret = "test-secret"

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.User{}, &models.Profile{})
	require.NoError(t, err)

	return db
}

func setupTestModule(t *testing.T) (*Module, *gin.Engine) {
	gin.SetMode(gin.TestMode)

	db := setupTestDB(t)
	module := NewAuthModule(db, NewSessionStore(), testSecret)

	router := gin.New()
	router.Use(sessions.Sessions("nexuslab_session", cookie.NewStore([]byte(testSecret))))
	module.RegisterRoutes(router)

	return module, router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegisterCreatesUserAndProfile(t *testing.T) {
	module, router := setupTestModule(t)

	w := postJSON(router, "/auth/register", gin.H{
		"email":    "ada@example.com",
		"password": "hunter22hunter22",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "token")

	var user models.User
	require.NoError(t, module.db.First(&user, "email = ?", "ada@example.com").Error)

	var profile models.Profile
	require.NoError(t, module.db.First(&profile, "id = ?", user.ID).Error)
	assert.Equal(t, "ada", profile.Username)
	assert.False(t, profile.IsAdmin)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	_, router := setupTestModule(t)

	body := gin.H{"email": "ada@example.com", "password": "hunter22hunter22"}
	w := postJSON(router, "/auth/register", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/auth/register", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	_, router := setupTestModule(t)

	w := postJSON(router, "/auth/register", gin.H{
		"email":    "ada@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	_, router := setupTestModule(t)

	w := postJSON(router, "/auth/register", gin.H{
		"email":    "ada@example.com",
		"password": "hunter22hunter22",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/auth/login", gin.H{
		"email":    "ada@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerTokenAuthenticatesRequest(t *testing.T) {
	_, router := setupTestModule(t)

	w := postJSON(router, "/auth/register", gin.H{
		"email":    "ada@example.com",
		"password": "hunter22hunter22",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), "ada@example.com")
}

func TestAnonymousRequestRejected(t *testing.T) {
	_, router := setupTestModule(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetProfilePublic(t *testing.T) {
	module, router := setupTestModule(t)

	w := postJSON(router, "/auth/register", gin.H{
		"email":    "ada@example.com",
		"password": "hunter22hunter22",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, module.db.First(&user, "email = ?", "ada@example.com").Error)

	req := httptest.NewRequest(http.MethodGet, "/profiles/"+user.ID, nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), "ada")

	req = httptest.NewRequest(http.MethodGet, "/profiles/nope", nil)
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req)
	assert.Equal(t, http.StatusNotFound, w3.Code)
}

func TestUpdateProfile(t *testing.T) {
	_, router := setupTestModule(t)

	w := postJSON(router, "/auth/register", gin.H{
		"email":    "ada@example.com",
		"password": "hunter22hunter22",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	payload, _ := json.Marshal(gin.H{"bio": "security researcher"})
	req := httptest.NewRequest(http.MethodPut, "/profiles/me", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Contains(t, w2.Body.String(), "security researcher")
}

func TestTokenValidation(t *testing.T) {
	token, err := GenerateToken("user-1", testSecret)
	require.NoError(t, err)

	userID, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = ValidateToken(token, "other-secret")
	assert.Error(t, err)

	_, err = ValidateToken("not-a-token", testSecret)
	assert.Error(t, err)
}

func TestSessionStoreNotifiesSubscribers(t *testing.T) {
	store := NewSessionStore()

	var events []Event
	unsubscribe := store.Subscribe(func(e Event, p *Principal) {
		events = append(events, e)
	})

	p := &Principal{User: models.User{ID: "user-1"}}
	store.SignedIn(p)
	store.SignedOut("user-1")

	assert.Equal(t, []Event{EventSignedIn, EventSignedOut}, events)

	current, ok := store.Current("user-1")
	assert.False(t, ok)
	assert.Nil(t, current)

	unsubscribe()
	store.SignedIn(p)
	assert.Len(t, events, 2)
}

func TestSignedOutUnknownUserIsNoOp(t *testing.T) {
	store := NewSessionStore()

	notified := false
	store.Subscribe(func(Event, *Principal) { notified = true })

	store.SignedOut("nobody")
	assert.False(t, notified)
}
