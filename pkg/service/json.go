package service

import (
	"encoding/json"
	"strconv"
)

// Helpers for digging values out of the opaque JSON payloads the REST
// trackers return. Missing keys yield zero values, never panics.

func jsonMap(m map[string]interface{}, key string) map[string]interface{} {
	if child, ok := m[key].(map[string]interface{}); ok {
		return child
	}
	return nil
}

func jsonStr(m map[string]interface{}, path ...string) string {
	for _, key := range path[:len(path)-1] {
		m = jsonMap(m, key)
		if m == nil {
			return ""
		}
	}
	s, _ := m[path[len(path)-1]].(string)
	return s
}

func jsonInt(m map[string]interface{}, path ...string) int64 {
	for _, key := range path[:len(path)-1] {
		m = jsonMap(m, key)
		if m == nil {
			return 0
		}
	}
	switch v := m[path[len(path)-1]].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// formatID renders a numeric JSON field as its decimal string, for building
// tags out of issue numbers.
func formatID(m map[string]interface{}, path ...string) string {
	return strconv.FormatInt(jsonInt(m, path...), 10)
}

// rawMap converts an SDK response struct into the opaque map carried on
// Issue.Raw for diagnostics.
func rawMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}
