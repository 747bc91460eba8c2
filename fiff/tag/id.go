package tag

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// IDVersion is the file format version stamped into new ids.
const IDVersion int32 = 1<<16 | 2

var idSerial atomic.Uint32

// NewID returns an id for a new file or block. The machine words hash the
// host name; a process-wide serial keeps ids created in the same microsecond
// apart.
func NewID() ID {
	host, err := os.Hostname()
	if err != nil {
		host = "localhost"
	}
	h := xxhash.Sum64String(host)
	now := time.Now()
	usecs := int32(now.Nanosecond()/1000) ^ int32(idSerial.Add(1)<<20)
	return ID{
		Version: IDVersion,
		Machid:  [2]int32{int32(uint32(h >> 32)), int32(uint32(h))},
		Secs:    int32(now.Unix()),
		Usecs:   usecs,
	}
}
