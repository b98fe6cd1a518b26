// Package console writes flow records to an output stream, one JSON object
// per line.
package console

import (
	"encoding/json"
	"fmt"
	"io"

	"firestige.xyz/flowreader/internal/core"
)

const (
	commandTraffic = "traffic"
	// Aggregate fields are filled in by a downstream aggregator; a single
	// frame never aggregates anything.
	aggregateUnset = -1
)

type endpoint struct {
	MAC string `json:"mac,omitempty"`
	IP  string `json:"ip"`
}

type flowEntry struct {
	From         endpoint `json:"from"`
	To           endpoint `json:"to"`
	Protocol     uint8    `json:"protocol"`
	TCPInitiated int      `json:"x_tcp_initiated,omitempty"`
	FromPort     uint16   `json:"from_port"`
	ToPort       uint16   `json:"to_port"`
	Size         int      `json:"size"`
	Count        int      `json:"count"`
}

type result struct {
	Flows      []flowEntry `json:"flows"`
	Timestamp  int64       `json:"timestamp"`
	TotalSize  int         `json:"total_size"`
	TotalCount int         `json:"total_count"`
}

type record struct {
	Command  string `json:"command"`
	Argument string `json:"argument"`
	Result   result `json:"result"`
}

// Sink emits flow records.
type Sink struct {
	enc           *json.Encoder
	reportedCount uint64
}

// NewSink creates a sink writing to w. Each record is a single Write call.
func NewSink(w io.Writer) *Sink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Sink{enc: enc}
}

// Emit writes one record for flow.
func (s *Sink) Emit(flow core.Flow) error {
	if err := s.enc.Encode(newRecord(flow)); err != nil {
		return fmt.Errorf("%w: %v", core.ErrSinkWrite, err)
	}
	s.reportedCount++
	return nil
}

// Reported returns the number of records written.
func (s *Sink) Reported() uint64 {
	return s.reportedCount
}

func newRecord(flow core.Flow) record {
	entry := flowEntry{
		From:     endpoint{MAC: flow.MACFrom, IP: flow.IPFrom},
		To:       endpoint{MAC: flow.MACTo, IP: flow.IPTo},
		Protocol: flow.Protocol,
		FromPort: flow.PortFrom,
		ToPort:   flow.PortTo,
		Size:     flow.PayloadSize,
		Count:    1,
	}
	if flow.TCPInitiated {
		entry.TCPInitiated = 1
	}
	return record{
		Command:  commandTraffic,
		Argument: "",
		Result: result{
			Flows:      []flowEntry{entry},
			Timestamp:  flow.Timestamp,
			TotalSize:  aggregateUnset,
			TotalCount: aggregateUnset,
		},
	}
}
