// Package utils holds small helpers shared by capture backends.
package utils

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"golang.org/x/net/bpf"

	"firestige.xyz/flowreader/internal/core"
)

// CompileBPF compiles a libpcap filter expression for frames of the given
// link type into classic BPF instructions suitable for a packet socket.
func CompileBPF(linkType layers.LinkType, expr string, snapLen int) ([]bpf.RawInstruction, error) {
	insns, err := pcap.CompileBPFFilter(linkType, snapLen, expr)
	if err != nil {
		return nil, fmt.Errorf("%w: compile %q for %s: %v", core.ErrFilter, expr, linkType, err)
	}

	raw := make([]bpf.RawInstruction, len(insns))
	for i, in := range insns {
		raw[i] = bpf.RawInstruction{Op: in.Code, Jt: in.Jt, Jf: in.Jf, K: in.K}
	}
	return raw, nil
}
