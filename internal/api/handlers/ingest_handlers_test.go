package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"platewatch-go/internal/db"
	"platewatch-go/internal/db/repository"
	"platewatch-go/internal/notifier"
	"platewatch-go/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type ingestFixture struct {
	router *gin.Engine
	repo   repository.Repository
	store  *storage.Store
	hub    *notifier.Hub
}

// newIngestFixture baut den Ingest-Handler über einer In-Memory-Datenbank auf
func newIngestFixture(t *testing.T) *ingestFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gormDB))

	repo := repository.NewSQLiteRepository(gormDB)
	store, err := storage.NewStore(t.TempDir())
	require.NoError(t, err)
	hub := notifier.NewHub()
	t.Cleanup(hub.Close)

	router := gin.New()
	api := router.Group("/api")
	NewIngestHandler(repo, store, hub, nil).RegisterRoutes(api)

	return &ingestFixture{router: router, repo: repo, store: store, hub: hub}
}

// ingestURL baut die Ingest-URL mit den übergebenen Query-Parametern
func ingestURL(params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return "/api/ingest?" + values.Encode()
}

func validParams() map[string]string {
	return map[string]string{
		"channelID":    "CAM-07",
		"dateTime":     "2024-01-01T10:00:00Z",
		"eventType":    "detection",
		"licensePlate": "ABC123",
	}
}

func (f *ingestFixture) post(t *testing.T, params map[string]string, files map[string][]byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	var contentType string
	if len(files) > 0 {
		writer := multipart.NewWriter(&body)
		for field, content := range files {
			part, err := writer.CreateFormFile(field, field)
			require.NoError(t, err)
			_, err = part.Write(content)
			require.NoError(t, err)
		}
		require.NoError(t, writer.Close())
		contentType = writer.FormDataContentType()
	}

	req := httptest.NewRequest(http.MethodPost, ingestURL(params), &body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestIngestSuccess(t *testing.T) {
	f := newIngestFixture(t)

	params := validParams()
	params["country"] = "DE"
	params["lane"] = "2"
	params["confidenceLevel"] = "97"
	params["macAddress"] = "00:11:22:33:44:55"

	rec := f.post(t, params, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		EventID uint `json:"event_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotZero(t, resp.EventID)

	event, err := f.repo.GetEventByID(resp.EventID)
	require.NoError(t, err)
	assert.Equal(t, "CAM-07", event.ChannelID)
	assert.Equal(t, "ABC123", event.LicensePlate)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), event.EventTime.UTC())
	require.NotNil(t, event.Country)
	assert.Equal(t, "DE", *event.Country)
	// Nicht gesetzte optionale Felder sind NULL, nicht leer
	assert.Nil(t, event.Direction)

	stats, err := f.repo.GetEventStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalEvents, int64(1))
	assert.GreaterOrEqual(t, stats.UniqueVehicles, int64(1))
}

func TestIngestMissingRequiredFields(t *testing.T) {
	f := newIngestFixture(t)

	for _, field := range []string{"channelID", "dateTime", "eventType", "licensePlate"} {
		t.Run(field, func(t *testing.T) {
			params := validParams()
			delete(params, field)

			rec := f.post(t, params, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "ValidationError")
		})
	}

	// Abgelehnte Ingestion hinterlässt keinerlei Zeilen
	stats, err := f.repo.GetEventStats()
	require.NoError(t, err)
	assert.Zero(t, stats.TotalEvents)
	assert.Zero(t, stats.TotalCameras)
}

func TestIngestInvalidTimestamp(t *testing.T) {
	f := newIngestFixture(t)

	params := validParams()
	params["dateTime"] = "01.01.2024 10:00"

	rec := f.post(t, params, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ValidationError")
}

func TestIngestLegacyTimestampFormat(t *testing.T) {
	f := newIngestFixture(t)

	params := validParams()
	params["dateTime"] = "2024-01-01 10:00:00"

	rec := f.post(t, params, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestIngestDuplicateChannelCreatesOneCamera(t *testing.T) {
	f := newIngestFixture(t)

	rec := f.post(t, validParams(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	params := validParams()
	params["licensePlate"] = "XYZ789"
	rec = f.post(t, params, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats, err := f.repo.GetEventStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalEvents)
	assert.Equal(t, int64(1), stats.TotalCameras)
}

func TestIngestAttachmentRoleMapping(t *testing.T) {
	f := newIngestFixture(t)

	rec := f.post(t, validParams(), map[string][]byte{
		"licensePlatePicture.jpg": []byte("plate-bytes"),
		"vehiclePicture.jpg":      []byte("vehicle-bytes"),
		"detectionPicture.jpg":    []byte("scene-bytes"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		EventID uint `json:"event_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	event, err := f.repo.GetEventByID(resp.EventID)
	require.NoError(t, err)
	require.NotNil(t, event.PlateImage)
	require.NotNil(t, event.VehicleImage)
	require.NotNil(t, event.SceneImage)

	content, err := os.ReadFile(filepath.Join(f.store.BaseDir(), *event.PlateImage))
	require.NoError(t, err)
	assert.Equal(t, "plate-bytes", string(content))
}

func TestIngestLegacyAttachmentFields(t *testing.T) {
	f := newIngestFixture(t)

	rec := f.post(t, validParams(), map[string][]byte{
		"plateImage": []byte("legacy-plate"),
		"fullImage":  []byte("legacy-scene"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		EventID uint `json:"event_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	event, err := f.repo.GetEventByID(resp.EventID)
	require.NoError(t, err)
	require.NotNil(t, event.PlateImage)
	assert.Nil(t, event.VehicleImage)
	require.NotNil(t, event.SceneImage)
}

func TestIngestSynonymPriority(t *testing.T) {
	f := newIngestFixture(t)

	// Beide Konventionen gleichzeitig: das frühere Synonym gewinnt
	rec := f.post(t, validParams(), map[string][]byte{
		"licensePlatePicture.jpg": []byte("current-convention"),
		"plateImage":              []byte("legacy-convention"),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		EventID uint `json:"event_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	event, err := f.repo.GetEventByID(resp.EventID)
	require.NoError(t, err)
	require.NotNil(t, event.PlateImage)

	content, err := os.ReadFile(filepath.Join(f.store.BaseDir(), *event.PlateImage))
	require.NoError(t, err)
	assert.Equal(t, "current-convention", string(content))
}

func TestIngestPublishesNotification(t *testing.T) {
	f := newIngestFixture(t)

	sub := f.hub.Subscribe(1)
	defer f.hub.Unsubscribe(sub)

	rec := f.post(t, validParams(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case topic := <-sub:
		assert.Equal(t, notifier.TopicEventUpdate, topic)
	case <-time.After(time.Second):
		t.Fatal("expected event_update notification")
	}
}

func TestIngestRejectedPublishesNothing(t *testing.T) {
	f := newIngestFixture(t)

	sub := f.hub.Subscribe(1)
	defer f.hub.Unsubscribe(sub)

	params := validParams()
	delete(params, "licensePlate")
	rec := f.post(t, params, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	select {
	case topic := <-sub:
		t.Fatalf("unexpected notification %s for rejected ingestion", topic)
	case <-time.After(100 * time.Millisecond):
	}
}
