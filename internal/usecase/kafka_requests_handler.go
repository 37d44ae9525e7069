package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"TrendCast/internal/domain/models"
	httputil "TrendCast/pkg/http"
	pkgkafka "TrendCast/pkg/kafka"
	applogger "TrendCast/pkg/logger"
)

// KafkaRequestsHandler serves trend requests consumed from Kafka. Replies, including failures
// caused by the request itself, go to the result topic keyed by request id.
type KafkaRequestsHandler struct {
	topic string
	svc   *TrendService
	log   *applogger.Logger
}

func NewKafkaRequestsHandler(topic string, svc *TrendService, l *applogger.Logger) *KafkaRequestsHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &KafkaRequestsHandler{topic: topic, svc: svc, log: l}
}

func (h *KafkaRequestsHandler) Topic() string { return h.topic }

// incoming message schema: {id, kind, payload}
func (h *KafkaRequestsHandler) Handle(ctx context.Context, b []byte) error {
	var m models.RequestMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return pkgkafka.Permanent(fmt.Errorf("decode request: %w", err))
	}
	meta := CallMeta{RequestID: m.ID, Source: models.SourceKafka}
	if tid := pkgkafka.TraceIDFrom(ctx); tid != "" && meta.RequestID == "" {
		meta.RequestID = tid
	}

	var err error
	switch m.Kind {
	case models.KindForecast:
		err = h.forecast(ctx, meta, m.Payload)
	case models.KindGoal:
		err = h.goal(ctx, meta, m.Payload)
	default:
		return h.svc.ReportFailure(ctx, meta, m.Kind,
			&models.InvalidRequestError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", m.Kind)})
	}
	if err == nil || models.IsReportable(err) {
		return nil
	}
	return err
}

func (h *KafkaRequestsHandler) forecast(ctx context.Context, meta CallMeta, payload []byte) error {
	var req models.ForecastRequest
	if appErr := httputil.DecodeAndValidate(ctx, payload, &req); appErr != nil {
		return h.svc.ReportFailure(ctx, meta, models.KindForecast, invalidPayload(appErr))
	}
	_, err := h.svc.Forecast(ctx, meta, &req)
	return err
}

func (h *KafkaRequestsHandler) goal(ctx context.Context, meta CallMeta, payload []byte) error {
	var req models.GoalRequest
	if appErr := httputil.DecodeAndValidate(ctx, payload, &req); appErr != nil {
		return h.svc.ReportFailure(ctx, meta, models.KindGoal, invalidPayload(appErr))
	}
	_, err := h.svc.RecommendGoal(ctx, meta, &req)
	return err
}

func invalidPayload(appErr *httputil.AppError) error {
	if details, ok := appErr.Details.([]httputil.ValidationError); ok && len(details) > 0 && details[0].Field != "" {
		return &models.InvalidRequestError{Field: details[0].Field, Reason: details[0].Message}
	}
	reason := appErr.Message
	if details, ok := appErr.Details.([]httputil.ValidationError); ok && len(details) > 0 {
		reason = details[0].Message
	}
	return &models.InvalidRequestError{Field: "payload", Reason: reason}
}

var _ pkgkafka.MessageHandler = (*KafkaRequestsHandler)(nil)
