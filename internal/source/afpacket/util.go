package afpacket

import (
	"fmt"
)

const (
	tpacketAlignment = 16 // TPACKET_ALIGNMENT
	tpacketHdrLen    = 52 // TPACKET3_HDRLEN, rounded up
	maxBlockSize     = 4 << 20
)

// ringLayout is the PACKET_MMAP geometry for one socket.
type ringLayout struct {
	FrameSize int
	BlockSize int
	NumBlocks int
}

// computeLayout sizes the mmap ring for a memory budget of bufferMB megabytes.
//
// The kernel requires the frame size to be a multiple of TPACKET_ALIGNMENT,
// the block size to be a multiple of the page size, and the block size to be
// a multiple of the frame size.
func computeLayout(bufferMB, snapLen, pageSize int) (ringLayout, error) {
	if bufferMB <= 0 {
		return ringLayout{}, fmt.Errorf("buffer size must be positive, got %d MB", bufferMB)
	}
	if snapLen <= 0 {
		return ringLayout{}, fmt.Errorf("snaplen must be positive, got %d", snapLen)
	}
	if pageSize <= 0 || pageSize%tpacketAlignment != 0 {
		return ringLayout{}, fmt.Errorf("page size must be a positive multiple of %d, got %d", tpacketAlignment, pageSize)
	}

	frame := alignUp(tpacketHdrLen+snapLen, tpacketAlignment)

	block := lcm(pageSize, frame)
	if block > maxBlockSize {
		// Page-aligned frames make every whole-frame block page-aligned too.
		frame = alignUp(frame, pageSize)
		block = (maxBlockSize / frame) * frame
		if block == 0 {
			block = frame
		}
	}

	n := (bufferMB << 20) / block
	if n < 1 {
		n = 1
	}
	return ringLayout{FrameSize: frame, BlockSize: block, NumBlocks: n}, nil
}

func alignUp(n, to int) int {
	return ((n + to - 1) / to) * to
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return a / gcd(a, b) * b
}
