package controllers

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"go-stylize/imagegen"
	"go-stylize/payment"
	"go-stylize/upload"
)

// a fixed, valid trial identity for request payloads
const testTrialID = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"

const testKeySecret = "secret_test"

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gdb, mock
}

// newTestApp wires an App against a mocked database and collaborator URLs,
// with every route the tests exercise.
func newTestApp(t *testing.T, imageAPIURL, paymentAPIURL string) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, mock := newMockDB(t)
	uploads, err := upload.NewStore(t.TempDir(), time.Hour, 1024, zerolog.Nop())
	require.NoError(t, err)

	cfg := Config{PricePaise: 900}
	app := NewApp(cfg, gdb,
		payment.NewClient(paymentAPIURL, "key_test", testKeySecret, zerolog.Nop()),
		imagegen.NewClient(imageAPIURL, "", zerolog.Nop()),
		uploads, zerolog.Nop())

	r := gin.New()
	r.POST("/api/trial", app.RegisterTrial)
	r.GET("/api/trial/:id", app.GetTrial)
	r.DELETE("/api/trial/:id", app.DeleteTrial)
	r.POST("/api/generate", app.Generate)
	r.POST("/api/payment/order", app.CreateOrder)
	r.POST("/api/payment/verify", app.VerifyPayment)
	r.POST("/api/upload", app.Upload)
	r.DELETE("/api/upload/:name", app.DeleteUpload)
	return r, mock
}
