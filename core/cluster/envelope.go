package cluster

import (
	"fmt"
	"strings"

	"github.com/wavepool/actorcpu/internal/reflector"
)

const (
	envHeaderKey = "x-clstr-key"
)

type EnvelopeOption func(*Envelope)

func WithHeader(key, value string) EnvelopeOption {
	return func(e *Envelope) {
		if e.Headers == nil {
			e.Headers = make(map[string]string)
		}
		e.Headers[key] = value
	}
}

type Envelope struct {
	Shard   int               `json:"shard"`
	Type    string            `json:"type"`
	Data    []byte            `json:"data"`
	ReplyTo string            `json:"reply_to,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (e Envelope) GetHeader(key string) (string, bool) {
	if e.Headers == nil {
		return "", false
	}
	v, ok := e.Headers[key]
	return v, ok
}

// Validate rejects headers in the reserved "x-clstr-" namespace (compared
// case-insensitively), except the routing key header.
func (e Envelope) Validate() error {
	for k := range e.Headers {
		lk := strings.ToLower(k)
		if lk != envHeaderKey && strings.HasPrefix(lk, "x-clstr-") {
			return fmt.Errorf("%w: %s", ErrReservedHeader, k)
		}
	}
	return nil
}

func getMessageType(v any) string {
	switch t := v.(type) {
	case interface{ messageType() string }:
		return t.messageType()
	case interface{ MessageType() string }:
		return t.MessageType()
	default:
		return reflector.TypeInfoOf(v).Name
	}
}
