package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"TrendCast/internal/domain/models"
	"TrendCast/pkg/util"
)

// ToCategoryGroup converts wire observations of every category. The first malformed observation
// fails the whole request.
func ToCategoryGroup(grouped map[string][]models.ObservationInput) (models.CategoryGroup, error) {
	out := make(models.CategoryGroup, len(grouped))
	for _, name := range util.SortedKeys(grouped) {
		obs, err := ToObservations(name, grouped[name])
		if err != nil {
			return nil, err
		}
		out[name] = obs
	}
	return out, nil
}

// ToObservations converts one category of wire observations, keeping arrival order.
func ToObservations(category string, in []models.ObservationInput) ([]models.Observation, error) {
	out := make([]models.Observation, 0, len(in))
	for i, o := range in {
		value, field, raw := o.Value, "value", o.Value
		if isAbsent(value) {
			value, field, raw = o.Record, "record", o.Record
		}
		v, err := parseValue(value)
		if err != nil {
			if isAbsent(o.Value) && isAbsent(o.Record) {
				field = "value"
			}
			return nil, &models.MalformedObservationError{Category: category, Index: i, Field: field, Raw: string(raw), Err: err}
		}

		ts, tsField := o.Timestamp, "timestamp"
		if isAbsent(ts) {
			ts, tsField = o.CreatedAt, "created_at"
		}
		t, err := parseTimestamp(ts)
		if err != nil {
			return nil, &models.MalformedObservationError{Category: category, Index: i, Field: tsField, Raw: string(ts), Err: err}
		}

		out = append(out, models.Observation{Position: float64(i), Value: v, Timestamp: t})
	}
	return out, nil
}

func isAbsent(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func parseValue(raw json.RawMessage) (float64, error) {
	if isAbsent(raw) {
		return 0, fmt.Errorf("missing")
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, err
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		f = parsed
	default:
		return 0, fmt.Errorf("not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite")
	}
	return f, nil
}

func parseTimestamp(raw json.RawMessage) (*time.Time, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	var (
		t  time.Time
		ok bool
	)
	switch x := v.(type) {
	case float64:
		t, ok = util.UnixTime(x)
	case string:
		t, ok = util.ParseTime(x)
	}
	if !ok {
		return nil, fmt.Errorf("not a timestamp")
	}
	return &t, nil
}
