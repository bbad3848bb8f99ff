package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medicare-server/internal/apperrors"
	"medicare-server/internal/config"
	"medicare-server/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
	}
}

func TestGenerateTokens(t *testing.T) {
	cfg := testConfig()
	user := &models.User{BaseModel: models.BaseModel{ID: "pat-1"}, Role: models.RolePatient}

	pair, err := GenerateTokens(user, cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshID)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), pair.RefreshExpiresAt, time.Minute)

	access, err := ValidateToken(pair.AccessToken, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "pat-1", access.UserID)
	assert.Equal(t, models.RolePatient, access.Role)

	refresh, err := ValidateToken(pair.RefreshToken, cfg.JWTRefreshSecret)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshID, refresh.ID)
	assert.NotEqual(t, access.ID, refresh.ID)

	_, err = ValidateToken(pair.AccessToken, cfg.JWTRefreshSecret)
	assert.Error(t, err)
}

func TestValidateToken_Rejects(t *testing.T) {
	secret := "access-secret"
	sign := func(method jwt.SigningMethod, claims *Claims, key interface{}) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() *Claims {
		return &Claims{
			UserID:           "pat-1",
			Role:             models.RolePatient,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noRole := valid()
	noRole.Role = ""

	badRole := valid()
	badRole.Role = "superuser"

	tests := []struct {
		name  string
		token string
	}{
		{"expired", sign(jwt.SigningMethodHS256, expired, []byte(secret))},
		{"missing role", sign(jwt.SigningMethodHS256, noRole, []byte(secret))},
		{"unknown role", sign(jwt.SigningMethodHS256, badRole, []byte(secret))},
		{"other algorithm", sign(jwt.SigningMethodHS512, valid(), []byte(secret))},
		{"unsigned", sign(jwt.SigningMethodNone, valid(), jwt.UnsafeAllowNoneSignatureType)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateToken(tt.token, secret)
			assert.Error(t, err)
		})
	}

	claims, err := ValidateToken(sign(jwt.SigningMethodHS256, valid(), []byte(secret)), secret)
	require.NoError(t, err)
	assert.Equal(t, "pat-1", claims.UserID)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) ResponseData {
	t.Helper()
	var body ResponseData
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		message  string
		internal bool
	}{
		{"not found", apperrors.NotFound("bed-not-found", "Bed not found"), http.StatusNotFound, "bed-not-found", "Bed not found", false},
		{"conflict", apperrors.Conflict("slot-conflict", "taken"), http.StatusConflict, "slot-conflict", "taken", false},
		{"forbidden", apperrors.Forbidden("not-owner", "no"), http.StatusForbidden, "not-owner", "no", false},
		{"invalid", apperrors.InvalidInput("invalid-date", "bad date"), http.StatusBadRequest, "invalid-date", "bad date", false},
		{"unauthorized", apperrors.Unauthorized("invalid-token", "expired"), http.StatusUnauthorized, "invalid-token", "expired", false},
		{"wrapped", errors.Join(errors.New("ctx"), apperrors.Conflict("duplicate-review", "dup")), http.StatusConflict, "duplicate-review", "dup", false},
		{"internal hides cause", apperrors.Internal(errors.New("dial tcp: refused"), "failed to load"), http.StatusInternalServerError, "internal", "Internal server error", true},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal", "Internal server error", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.status, body.Status)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.message, body.Error)
			require.Len(t, c.Errors, 1)
			if tt.internal {
				assert.NotContains(t, w.Body.String(), "refused")
				assert.NotContains(t, w.Body.String(), "boom")
			}
		})
	}
}

func TestSuccessEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Created(c, "Bed created successfully", gin.H{"bedNumber": "GW-101"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"status":201,"message":"Bed created successfully","data":{"bedNumber":"GW-101"}}`, w.Body.String())
}

type bookingRequest struct {
	BedID  string `json:"bedId" binding:"required"`
	Reason string `json:"reason" binding:"required"`
	Days   int    `json:"days" binding:"min=1"`
}

func TestBindAndValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
		ok   bool
		code string
		msg  string
	}{
		{"valid", `{"bedId":"b1","reason":"surgery","days":2}`, true, "", ""},
		{"missing field", `{"bedId":"b1","days":2}`, false, "missing-fields", "Reason is required"},
		{"below minimum", `{"bedId":"b1","reason":"x","days":0}`, false, "missing-fields", "Days must satisfy min=1"},
		{"malformed json", `{"bedId":`, false, "invalid-input", "Invalid request payload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req bookingRequest
			ok := BindAndValidate(c, &req)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, "b1", req.BedID)
				return
			}
			body := decode(t, w)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, body.Code)
			assert.Contains(t, body.Error, tt.msg)
		})
	}
}
