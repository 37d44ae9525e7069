package models

import (
	"encoding/json"
	"time"
)

// Requests and responses of the trend endpoints. Shared by the HTTP, WebSocket and Kafka transports.

// ObservationInput is the wire form of an observation. Values may be JSON numbers or numeric
// strings; timestamps may be date strings or unix numbers. `record` and `created_at` are accepted
// as aliases of `value` and `timestamp`.
type ObservationInput struct {
	Value     json.RawMessage `json:"value,omitempty"`
	Record    json.RawMessage `json:"record,omitempty"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
	CreatedAt json.RawMessage `json:"created_at,omitempty"`
}

type ForecastRequest struct {
	Grouped map[string][]ObservationInput `json:"grouped" validate:"required,min=1,dive,keys,required,endkeys"`
	Horizon int                           `json:"horizon" validate:"omitempty,gte=1,lte=365"`
	Step    string                        `json:"step" validate:"omitempty"`
}

type GoalRequest struct {
	Records []ObservationInput `json:"records"`
}

type ForecastResponse struct {
	Unit      string                     `json:"unit"`
	Forecasts map[string][]ForecastPoint `json:"forecasts"`
	Anchors   map[string]Anchor          `json:"anchors"`
}

// ForecastOptions overrides the configured horizon and step for one call.
type ForecastOptions struct {
	Horizon int
	Step    time.Duration
}
