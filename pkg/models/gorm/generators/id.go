// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.
package gorm_generator

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

// ID produces a time-ordered 64-bit identifier: 41 bits of millisecond
// timestamp, 22 bits of randomness. Sortable by creation time, safe to
// generate on any node without coordination.
func ID() uint64 {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	random := uint64(binary.BigEndian.Uint32(buf[:])) & 0x3FFFFF
	millis := uint64(time.Now().UnixMilli()) & 0x1FFFFFFFFFF
	return (millis << 22) | random
}
