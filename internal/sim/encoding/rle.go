package encoding

import (
	"encoding/binary"
	"fmt"
)

// AppendRLE appends ids to dst as (id, run_len) uvarint pairs.
func AppendRLE(dst []byte, ids []uint16) []byte {
	i := 0
	for i < len(ids) {
		b := ids[i]
		run := 1
		for j := i + 1; j < len(ids) && ids[j] == b; j++ {
			run++
		}
		dst = binary.AppendUvarint(dst, uint64(b))
		dst = binary.AppendUvarint(dst, uint64(run))
		i += run
	}
	return dst
}

// DecodeRLE expands raw into exactly n ids.
func DecodeRLE(raw []byte, n int) ([]uint16, error) {
	out := make([]uint16, 0, n)
	for i := 0; i < len(raw); {
		b, k := binary.Uvarint(raw[i:])
		if k <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += k
		run, k := binary.Uvarint(raw[i:])
		if k <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += k
		if b > 0xFFFF {
			return nil, fmt.Errorf("block id too large: %d", b)
		}
		if run == 0 || run > uint64(n-len(out)) {
			return nil, fmt.Errorf("run of %d overflows %d ids", run, n)
		}
		for r := uint64(0); r < run; r++ {
			out = append(out, uint16(b))
		}
	}
	if len(out) != n {
		return nil, fmt.Errorf("decoded %d ids, want %d", len(out), n)
	}
	return out, nil
}
