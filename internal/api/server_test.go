package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bumothekid/clothing-booth-api-v2/internal/account"
	"github.com/bumothekid/clothing-booth-api-v2/internal/auth"
	"github.com/bumothekid/clothing-booth-api-v2/internal/blob"
	"github.com/bumothekid/clothing-booth-api-v2/internal/catalog"
	"github.com/bumothekid/clothing-booth-api-v2/internal/config"
	"github.com/bumothekid/clothing-booth-api-v2/internal/constants"
	"github.com/bumothekid/clothing-booth-api-v2/internal/db"
	"github.com/bumothekid/clothing-booth-api-v2/internal/imaging"
)

const testBaseURL = "https://booth.test"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	blobs, err := blob.NewService(t.TempDir(), constants.UploadMaxBytes)
	require.NoError(t, err)

	images := db.NewImageRepository(database)
	users := db.NewUserRepository(database)
	refreshTokens := db.NewRefreshTokenRepository(database)
	clothingRepo := db.NewClothingRepository(database)

	pipeline := imaging.NewPipeline(blobs, images, imaging.NewBackgroundKeyer(),
		imaging.NewClassifier(imaging.ShapeEmbedder{}), imaging.Config{BaseURL: testBaseURL})

	pictures, err := account.NewDefaultPictures(blobs, []string{"blue", "green"})
	require.NoError(t, err)
	require.NoError(t, pictures.Seed())

	tokens := auth.NewTokenService(users, refreshTokens,
		auth.NewJWTService(strings.Repeat("s", 32), time.Hour), constants.RefreshTokenTTL, constants.MaxSessionsPerUser)

	cfg := &config.Config{
		Server:  config.ServerConfig{BaseURL: testBaseURL},
		Storage: config.StorageConfig{UploadMaxBytes: constants.UploadMaxBytes, ProfileMaxBytes: constants.ProfileUploadMaxBytes},
	}
	srv, err := NewServer(cfg, Dependencies{
		DB:       database,
		Blobs:    blobs,
		Tokens:   tokens,
		Accounts: account.NewManager(users, images, blobs, pipeline, pictures, constants.RefreshTokenTTL),
		Images:   pipeline,
		Clothing: catalog.NewClothingManager(clothingRepo, pipeline),
		Outfits:  catalog.NewOutfitManager(db.NewOutfitRepository(database), clothingRepo, pipeline),
	})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body=%s", rr.Body.String())
	return v
}

func guest(t *testing.T, srv *Server) auth.TokenPair {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/v1/auth/guest", "", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[auth.TokenPair](t, rr)
}

func redShirtJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x >= 50 && x < 150 && y >= 40 && y < 160 {
				c = color.RGBA{204, 0, 0, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

func uploadFile(t *testing.T, srv *Server, method, path, token, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", token)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	return rr
}

func TestGuestPreviewCreateClothingScenario(t *testing.T) {
	srv := newTestServer(t)
	pair := guest(t, srv)

	// The bare token is accepted as well as the Bearer form.
	rr := uploadFile(t, srv, http.MethodPost, "/api/v1/images/preview", pair.AccessToken, "shirt.jpg", redShirtJPEG(t))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	preview := decode[map[string]any](t, rr)

	imageID, _ := preview["image_id"].(string)
	require.NotEmpty(t, imageID)
	assert.Equal(t, testBaseURL+"/uploads/temp/"+imageID, preview["image_url"])
	assert.NotEmpty(t, preview["image_category"])

	var r, g, b int
	_, err := fmt.Sscanf(preview["image_color"].(string), "#%02X%02X%02X", &r, &g, &b)
	require.NoError(t, err)
	assert.Greater(t, r, 150)
	assert.Less(t, g, 60)
	assert.Less(t, b, 60)

	rr = do(t, srv, http.MethodPost, "/api/v1/clothing", pair.AccessToken, map[string]any{
		"name":      "Red Tee",
		"category":  "TSHIRT",
		"color":     "#FF0000",
		"image_url": preview["image_url"],
		"seasons":   []string{"summer", "autumn"},
		"tags":      []string{"casual"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[map[string]any](t, rr)
	assert.Equal(t, "#FF0000", created["color"])
	assert.Equal(t, imageID, created["image_id"])

	rr = do(t, srv, http.MethodGet, "/api/v1/clothing/"+created["clothing_id"].(string), pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	fetched := decode[map[string]any](t, rr)
	assert.ElementsMatch(t, []any{"Summer", "Autumn"}, fetched["seasons"])
	assert.ElementsMatch(t, []any{"Casual"}, fetched["tags"])

	rr = do(t, srv, http.MethodGet, "/uploads/clothing_images/"+imageID, "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, srv, http.MethodGet, "/uploads/temp/"+imageID, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// The staged image was claimed; a second create with it is rejected.
	rr = do(t, srv, http.MethodPost, "/api/v1/clothing", pair.AccessToken, map[string]any{
		"name": "Copy", "category": "TSHIRT", "color": "#FF0000", "image_id": imageID,
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, constants.ErrCodeClothingImageInvalid, decode[ErrorResponse](t, rr).Code)
}

func TestPreviewRejectsUnsupportedFile(t *testing.T) {
	srv := newTestServer(t)
	pair := guest(t, srv)

	rr := uploadFile(t, srv, http.MethodPost, "/api/v1/images/preview", "Bearer "+pair.AccessToken, "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, constants.ErrCodeUnsupportedFileType, decode[ErrorResponse](t, rr).Code)
}

func TestAuthMiddlewareStatuses(t *testing.T) {
	srv := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, constants.ErrCodeAccessTokenMissing, decode[ErrorResponse](t, rr).Code)

	rr = do(t, srv, http.MethodGet, "/api/v1/users/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, constants.ErrCodeAccessTokenInvalid, decode[ErrorResponse](t, rr).Code)

	pair := guest(t, srv)
	rr = do(t, srv, http.MethodGet, "/api/v1/users/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[UserResponse](t, rr)
	assert.True(t, me.IsGuest)
}

func TestRefreshAndSignOut(t *testing.T) {
	srv := newTestServer(t)
	pair := guest(t, srv)

	rr := do(t, srv, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	refreshed := decode[auth.TokenPair](t, rr)
	assert.NotEqual(t, pair.RefreshToken, refreshed.RefreshToken)

	// The replaced token no longer exists.
	rr = do(t, srv, http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, constants.ErrCodeRefreshTokenInvalid, decode[ErrorResponse](t, rr).Code)

	rr = do(t, srv, http.MethodPost, "/api/v1/auth/signout", refreshed.AccessToken, map[string]string{
		"refresh_token": refreshed.RefreshToken,
	})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/v1/auth/signout", refreshed.AccessToken, map[string]string{
		"refresh_token": refreshed.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUpgradeConflictNamesTheField(t *testing.T) {
	srv := newTestServer(t)
	first, second := guest(t, srv), guest(t, srv)

	body := map[string]string{"username": "closet", "password": "hunter2hunter2"}
	rr := do(t, srv, http.MethodPost, "/api/v1/auth/upgrade", first.AccessToken, body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	user := decode[UserResponse](t, rr)
	assert.False(t, user.IsGuest)
	assert.Contains(t, user.ProfilePictureURL, testBaseURL+"/uploads/profile_pictures/default-")

	rr = do(t, srv, http.MethodPost, "/api/v1/auth/upgrade", second.AccessToken, body)
	assert.Equal(t, http.StatusConflict, rr.Code)
	resp := decode[ErrorResponse](t, rr)
	assert.Equal(t, constants.ErrCodeUsernameInUse, resp.Code)
	assert.Equal(t, "username", resp.Key)

	rr = do(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "CLOSET", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"username": "closet", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, constants.ErrCodeCredentialsWrong, decode[ErrorResponse](t, rr).Code)
}

func TestOutfitRoutes(t *testing.T) {
	srv := newTestServer(t)
	owner, other := guest(t, srv), guest(t, srv)

	rr := uploadFile(t, srv, http.MethodPost, "/api/v1/images/preview", owner.AccessToken, "shirt.jpg", redShirtJPEG(t))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	imageID := decode[map[string]any](t, rr)["image_id"]

	rr = do(t, srv, http.MethodPost, "/api/v1/clothing", owner.AccessToken, map[string]any{
		"name": "Red Tee", "category": "TSHIRT", "color": "#CC0000", "image_id": imageID,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	clothingID := decode[map[string]any](t, rr)["clothing_id"]

	rr = do(t, srv, http.MethodPost, "/api/v1/users/me/outfits", other.AccessToken, map[string]any{
		"name": "Borrowed", "clothing_ids": []any{clothingID},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, constants.ErrCodeOutfitClothingIDInvalid, decode[ErrorResponse](t, rr).Code)

	rr = do(t, srv, http.MethodPost, "/api/v1/outfits", owner.AccessToken, map[string]any{
		"name": "Weekend", "clothing_ids": []any{clothingID}, "is_public": false,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	outfitID := decode[map[string]any](t, rr)["outfit_id"].(string)

	rr = do(t, srv, http.MethodGet, "/api/v1/outfits/"+outfitID, other.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, constants.ErrCodeOutfitPermission, decode[ErrorResponse](t, rr).Code)

	rr = do(t, srv, http.MethodPost, "/api/v1/outfits/"+outfitID+"/collage", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	collageURL, _ := decode[map[string]any](t, rr)["collage_url"].(string)
	require.True(t, strings.HasPrefix(collageURL, testBaseURL+"/uploads/outfit_collages/"), collageURL)

	rr = do(t, srv, http.MethodGet, strings.TrimPrefix(collageURL, testBaseURL), "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/v1/users/me/outfits?limit=0", owner.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, constants.ErrCodeLimitInvalid, decode[ErrorResponse](t, rr).Code)

	rr = do(t, srv, http.MethodGet, "/api/v1/users/me/outfits", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[map[string][]any](t, rr)["outfits"], 1)

	rr = do(t, srv, http.MethodDelete, "/api/v1/outfits/"+outfitID, owner.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestProfilePictureRoutes(t *testing.T) {
	srv := newTestServer(t)
	pair := guest(t, srv)

	rr := do(t, srv, http.MethodGet, "/api/v1/users/profile-pictures", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"blue", "green"}, decode[DefaultPicturesResponse](t, rr).Names)

	rr = do(t, srv, http.MethodPut, "/api/v1/users/me/profile-picture?named=green", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "default-green", decode[ProfilePictureResponse](t, rr).ImageID)

	rr = do(t, srv, http.MethodGet, "/uploads/profile_pictures/default-green", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = uploadFile(t, srv, http.MethodPut, "/api/v1/users/me/profile-picture", pair.AccessToken, "me.jpg", redShirtJPEG(t))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	custom := decode[ProfilePictureResponse](t, rr)
	assert.NotEqual(t, "default-green", custom.ImageID)

	rr = do(t, srv, http.MethodDelete, "/api/v1/users/me/profile-picture", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, srv, http.MethodGet, "/uploads/profile_pictures/"+custom.ImageID, "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodDelete, "/api/v1/users/me/profile-picture", pair.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, constants.ErrCodeProfilePictureNotSet, decode[ErrorResponse](t, rr).Code)
}

func TestDeleteGuestAccount(t *testing.T) {
	srv := newTestServer(t)
	pair := guest(t, srv)

	rr := do(t, srv, http.MethodDelete, "/api/v1/users/me", pair.AccessToken, nil)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/v1/users/me", pair.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, constants.ErrCodeUserNotFound, decode[ErrorResponse](t, rr).Code)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rr := do(t, srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]any](t, rr)["status"])
}
