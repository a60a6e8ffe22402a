package responses

import "time"

type APIResponse[T any] struct {
	Status    string    `json:"status" msgpack:"status"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Message   string    `json:"message,omitempty" msgpack:"message,omitempty"`
	Error     string    `json:"error,omitempty" msgpack:"error,omitempty"`
	Data      *T        `json:"data,omitempty" msgpack:"data,omitempty"`
}
