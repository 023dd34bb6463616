// Package controllers holds the HTTP handlers. All shared state lives on the
// App context built in main; handlers are App methods, no package globals.
package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joeshaw/envdecode"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"go-stylize/apperr"
	"go-stylize/imagegen"
	"go-stylize/payment"
	"go-stylize/upload"
)

type Config struct {
	Port string `env:"GIN_PORT,default=8080"`
	DSN  string `env:"DB,required"`

	PaymentBaseURL   string `env:"PAYMENT_API_URL,default=https://api.razorpay.com"`
	PaymentKeyID     string `env:"PAYMENT_KEY_ID"`
	PaymentKeySecret string `env:"PAYMENT_KEY_SECRET"`
	PricePaise       int    `env:"PRICE_PAISE,default=900"` // ₹9 per extra image

	ImageAPIURL string `env:"IMAGE_API_URL"`
	ImageAPIKey string `env:"IMAGE_API_KEY"`

	UploadDir      string        `env:"UPLOAD_DIR,default=public/uploads"`
	UploadTTL      time.Duration `env:"UPLOAD_TTL,default=30m"`
	UploadMaxBytes int64         `env:"UPLOAD_MAX_BYTES,default=10485760"`

	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envdecode.Decode(&cfg)
	return cfg, err
}

type App struct {
	DB        *gorm.DB
	Gateway   *payment.Client
	Generator *imagegen.Client
	Uploads   *upload.Store
	Cfg       Config
	Log       zerolog.Logger
}

func NewApp(cfg Config, gdb *gorm.DB, gw *payment.Client, gen *imagegen.Client, up *upload.Store, log zerolog.Logger) *App {
	return &App{
		DB:        gdb,
		Gateway:   gw,
		Generator: gen,
		Uploads:   up,
		Cfg:       cfg,
		Log:       log,
	}
}

// fail converts an internal error into the structured JSON the transport
// layer always responds with. Raw error text is logged, never sent.
func (a *App) fail(c *gin.Context, err error) {
	a.Log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	kind := string(apperr.KindOf(err))
	if kind == "" {
		kind = "internal"
	}
	c.JSON(apperr.HTTPStatus(err), gin.H{
		"error": apperr.Message(err),
		"kind":  kind,
	})
}
