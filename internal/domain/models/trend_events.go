package models

import (
	"encoding/json"
	"time"
)

// Request kinds carried over Kafka.
const (
	KindForecast = "forecast"
	KindGoal     = "goal"
)

// Result statuses carried over Kafka.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Transports a request can arrive on.
const (
	SourceHTTP      = "http"
	SourceWebSocket = "ws"
	SourceKafka     = "kafka"
)

// RequestMessage is a trend request consumed from the request topic.
type RequestMessage struct {
	ID      string          `json:"id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// ResultEvent is published to the result topic for every served request.
type ResultEvent struct {
	ID      string      `json:"id"`
	Kind    string      `json:"kind"`
	Source  string      `json:"source"`
	Status  string      `json:"status"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	At      time.Time   `json:"at"`
}
