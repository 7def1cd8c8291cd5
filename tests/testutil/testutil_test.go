package testutil

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	m := NewMockDB(t)
	m.Mock.ExpectQuery(`SELECT count\(\*\) FROM obligations`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	var count int64
	require.NoError(t, m.DB.Raw("SELECT count(*) FROM obligations").Scan(&count).Error)
	assert.Equal(t, int64(3), count)
	m.ExpectationsWereMet(t)
}

func TestDocumentID_Reproducible(t *testing.T) {
	assert.Equal(t, DocumentID("F001-12"), DocumentID("F001-12"))
	assert.NotEqual(t, DocumentID("F001-12"), DocumentID("F001-13"))
	assert.Equal(t, uuid.Version(5), DocumentID("F001-12").Version())
}

func TestDateAndDecimalHelpers(t *testing.T) {
	d := Date(t, "2026-03-15")
	assert.Equal(t, time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC), d)

	RequireDecimal(t, "10", Dec(t, "10.00"))
}

func TestDoJSONAndDecode(t *testing.T) {
	engine := gin.New()
	engine.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{"key": c.GetHeader("Idempotency-Key"), "cash": body["cash"]}})
	})
	engine.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": gin.H{"code": "ERR_NOT_FOUND", "message": "missing"}})
	})

	w := DoJSON(t, engine, http.MethodPost, "/echo", map[string]string{"cash": "10.00"}, map[string]string{"Idempotency-Key": "k-1"})
	RequireStatus(t, http.StatusCreated, w)
	resp := Decode[map[string]string](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "k-1", resp.Data["key"])
	assert.Equal(t, "10.00", resp.Data["cash"])

	w = DoJSON(t, engine, http.MethodGet, "/missing", nil, nil)
	RequireErrorCode(t, w, http.StatusNotFound, "ERR_NOT_FOUND")
}
