// Package server exposes the keepalive endpoint and, in webhook mode, the
// Telegram update receiver.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UpdateHandler consumes one Telegram update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update)
}

// UpdateDecoder turns a webhook request into an update; *tgbotapi.BotAPI
// implements it.
type UpdateDecoder interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
}

// WebhookPath derives a stable, unguessable path from the bot token.
func WebhookPath(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "/telegram/" + hex.EncodeToString(sum[:16])
}

// New builds the router. When decoder is nil the webhook route is not
// registered.
func New(h UpdateHandler, decoder UpdateDecoder, webhookPath string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("panic recovered: %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}))

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "✅ Bot is running")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if decoder != nil {
		r.POST(webhookPath, func(c *gin.Context) {
			upd, err := decoder.HandleUpdate(c.Request)
			if err != nil {
				log.Printf("webhook decode: %v", err)
				c.JSON(http.StatusBadRequest, gin.H{"error": "bad update"})
				return
			}
			h.HandleUpdate(c.Request.Context(), *upd)
			c.Status(http.StatusOK)
		})
	}
	return r
}
