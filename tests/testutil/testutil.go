// Package testutil holds helpers shared by the package and integration tests:
// a sqlmock-backed GORM handle, reproducible identifiers, money and date
// parsing, HTTP round trips and an event recorder.
package testutil

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB is a GORM handle speaking the postgres dialect to a sqlmock connection
type MockDB struct {
	DB   *gorm.DB
	Mock sqlmock.Sqlmock
}

// NewMockDB opens a GORM handle over sqlmock. Statements are matched as
// regular expressions; the connection is closed when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err, "create sqlmock")
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err, "open gorm over sqlmock")

	return &MockDB{DB: db, Mock: mock}
}

// ExpectationsWereMet fails the test on any unmet or unexpected statement
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "unmet database expectations")
}

// idNamespace seeds the reproducible identifiers below
var idNamespace = uuid.MustParse("3f1c7a52-6a0e-4c1b-9d2f-8e4b5a7c9d10")

// DocumentID returns the same credit document ID for the same seed, so a
// failing test names a document that can be found in its logs.
func DocumentID(seed string) uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte("document:"+seed))
}

// Date parses a YYYY-MM-DD date at UTC midnight
func Date(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, value)
	require.NoError(t, err, "invalid test date %q", value)
	return d
}

// Dec parses a decimal amount
func Dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err, "invalid test decimal %q", value)
	return d
}

// RequireDecimal compares numerically, so "10" matches "10.00"
func RequireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, Dec(t, expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}
