// Package push receives Pub/Sub push deliveries over HTTP.
package push

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"dispatcher/internal/constants"
	"dispatcher/internal/logger"
	apperrors "dispatcher/pkg/errors"
	"dispatcher/pkg/logging"
	"dispatcher/pkg/models"
	"dispatcher/pkg/tracing"
)

// Processor is implemented by pipeline.Router.
type Processor interface {
	Process(ctx context.Context, msg models.Message) (models.Result, error)
}

// Envelope is the body of a Pub/Sub push request. Both field spellings are
// accepted since the push service sends both.
type Envelope struct {
	Message struct {
		Data           []byte            `json:"data"`
		Attributes     map[string]string `json:"attributes"`
		MessageID      string            `json:"message_id"`
		MessageIDCamel string            `json:"messageId"`
		PublishTime    string            `json:"publish_time"`
		PublishCamel   string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// ToMessage builds the pipeline message. The CloudEvent time, when sent,
// takes precedence over the push publish time.
func (e *Envelope) ToMessage(ceTime string) *models.Message {
	id := e.Message.MessageID
	if id == "" {
		id = e.Message.MessageIDCamel
	}
	publishTime := ceTime
	if publishTime == "" {
		publishTime = e.Message.PublishTime
	}
	if publishTime == "" {
		publishTime = e.Message.PublishCamel
	}

	return models.NewMessageBuilder().
		WithID(id).
		WithData(e.Message.Data).
		WithAttributes(e.Message.Attributes).
		WithPublishTime(publishTime).
		Build()
}

type Handler struct {
	processor Processor
	logger    logger.Logger
}

func NewHandler(processor Processor, log logger.Logger) *Handler {
	return &Handler{
		processor: processor,
		logger:    log,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes, path string) {
	if path == "" {
		path = "/"
	}
	r.GET(path, h.Health)
	r.POST(path, h.Receive)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// Receive runs one push delivery through the pipeline. Any non-2xx status
// makes Pub/Sub redeliver the message.
func (h *Handler) Receive(c *gin.Context) {
	var env Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		appErr := apperrors.ErrValidation.WithMessage("invalid push envelope").WithCause(err)
		h.logger.WarnwCtx(c.Request.Context(), "Invalid push request", "error", err)
		c.JSON(appErr.Status, apperrors.ToErrorResponse(appErr))
		return
	}

	msg := env.ToMessage(c.GetHeader(constants.TimestampHeader))

	ctx, span := tracing.StartSpanFromAttributes(c.Request.Context(), "dispatcher.push", msg.Attributes)
	defer span.End()
	ctx = logging.WithMessageID(ctx, msg.ID)

	h.logger.DebugwCtx(ctx, "Push message received",
		"subscription", env.Subscription,
		"attributes", msg.Attributes,
		"publish_time", msg.PublishTime,
	)

	result, err := h.processor.Process(ctx, *msg)
	if err != nil {
		span.RecordError(err)
		h.logger.ErrorwCtx(ctx, "Error processing push message", "error", err)
		_ = c.Error(err)
		c.JSON(apperrors.ToHTTPStatus(err), apperrors.ToErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, result)
}
