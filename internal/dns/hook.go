// Package dns receives port-53 payloads forwarded by the dissector and
// decodes them as DNS messages.
package dns

import (
	"encoding/binary"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/flowreader/internal/log"
	"firestige.xyz/flowreader/internal/metrics"
)

// Question is one entry of the question section.
type Question struct {
	Name  string
	Type  string
	Class string
}

// Message is the summary handed to a Handler.
type Message struct {
	Timestamp    int64
	ID           uint16
	Response     bool
	ResponseCode string
	Questions    []Question
	AnswerCount  int
}

// Handler consumes decoded messages.
type Handler func(Message)

// Hook decodes forwarded payloads. Decode failures are counted and logged at
// debug level; they never reach the caller.
type Hook struct {
	logger  log.Logger
	handler Handler
}

// NewHook creates a hook. handler may be nil, in which case messages are only
// logged at debug level.
func NewHook(logger log.Logger, handler Handler) *Hook {
	if logger == nil {
		logger = log.GetLogger()
	}
	return &Hook{logger: logger, handler: handler}
}

// Handle decodes payload. length is the size the packet declared; payload may
// be shorter when the frame was truncated by the snap length.
func (h *Hook) Handle(payload []byte, length int, timestamp int64) {
	if length < len(payload) {
		payload = payload[:length]
	}

	msg, ok := decode(payload)
	if !ok {
		// DNS over TCP prefixes each message with a 2-byte length.
		if len(payload) > 2 {
			if n := int(binary.BigEndian.Uint16(payload)); n <= len(payload)-2 {
				msg, ok = decode(payload[2 : 2+n])
			}
		}
	}
	if !ok {
		metrics.DNSDecodeErrorsTotal.Inc()
		if h.logger.IsDebugEnabled() {
			h.logger.Debugf("undecodable dns payload: %d of %d bytes", len(payload), length)
		}
		return
	}
	msg.Timestamp = timestamp

	if h.logger.IsDebugEnabled() {
		for _, q := range msg.Questions {
			h.logger.WithFields(map[string]interface{}{
				"id":       msg.ID,
				"response": msg.Response,
				"type":     q.Type,
			}).Debugf("dns %s", q.Name)
		}
	}
	if h.handler != nil {
		h.handler(msg)
	}
}

func decode(payload []byte) (Message, bool) {
	var d layers.DNS
	if err := d.DecodeFromBytes(payload, gopacket.NilDecodeFeedback); err != nil {
		return Message{}, false
	}
	msg := Message{
		ID:           d.ID,
		Response:     d.QR,
		ResponseCode: d.ResponseCode.String(),
		AnswerCount:  len(d.Answers),
	}
	for _, q := range d.Questions {
		msg.Questions = append(msg.Questions, Question{
			Name:  string(q.Name),
			Type:  q.Type.String(),
			Class: q.Class.String(),
		})
	}
	return msg, true
}
