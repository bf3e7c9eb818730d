// Package recorder writes an append-only, compressed black-box log of
// every drone state snapshot so a flight can be audited or replayed
// after the fact. It generalizes the simulated backend's original
// in-memory activity ring buffer into a durable, checksummed record.
package recorder

import (
	"encoding/binary"
	"fmt"
	"hash"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/asgard/aegis/internal/drone"
	"github.com/asgard/aegis/pkg/utils"
)

// Entry is one recorded sample.
type Entry struct {
	Timestamp time.Time   `cbor:"ts"`
	State     drone.State `cbor:"state"`
}

const bufferSize = 256

// Recorder drains recorded entries onto disk from a background
// goroutine so the control loop never blocks on I/O. If the buffer
// fills — disk slower than the flight — the oldest-pending entry is
// dropped and counted rather than stalling flight control.
type Recorder struct {
	entries chan Entry
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

// New creates a recorder that writes zstd-compressed, checksummed CBOR
// segments under dir. The segment file is named session+".rec".
func New(dir, session string) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: create dir: %w", err)
	}

	path := filepath.Join(dir, session+".rec")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: create segment: %w", err)
	}

	zw, err := zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("recorder: zstd writer: %w", err)
	}

	sum, err := blake2b.New256(nil)
	if err != nil {
		zw.Close()
		f.Close()
		return nil, fmt.Errorf("recorder: blake2b: %w", err)
	}

	r := &Recorder{
		entries: make(chan Entry, bufferSize),
		done:    make(chan struct{}),
	}

	r.wg.Add(1)
	go r.run(path, f, zw, sum)

	return r, nil
}

func (r *Recorder) run(path string, f *os.File, zw *zstd.Encoder, sum hash.Hash) {
	defer r.wg.Done()
	defer f.Close()
	defer zw.Close()

	flush := func() {
		if err := zw.Flush(); err != nil {
			utils.Logger.WithError(err).Warn("recorder: flush failed")
		}
	}

	for {
		select {
		case e, ok := <-r.entries:
			if !ok {
				flush()
				r.writeChecksum(path, sum)
				return
			}
			buf, err := cbor.Marshal(e)
			if err != nil {
				utils.Logger.WithError(err).Warn("recorder: encode failed")
				continue
			}
			var lenPrefix [4]byte
			binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(buf)))
			if _, err := sum.Write(lenPrefix[:]); err != nil {
				utils.Logger.WithError(err).Warn("recorder: checksum write failed")
			}
			sum.Write(buf)
			if _, err := zw.Write(lenPrefix[:]); err != nil {
				utils.Logger.WithError(err).Warn("recorder: write failed")
				continue
			}
			if _, err := zw.Write(buf); err != nil {
				utils.Logger.WithError(err).Warn("recorder: write failed")
			}
		case <-r.done:
			flush()
			r.writeChecksum(path, sum)
			return
		}
	}
}

func (r *Recorder) writeChecksum(path string, sum hash.Hash) {
	sumPath := path + ".sum"
	if err := os.WriteFile(sumPath, sum.Sum(nil), 0o644); err != nil {
		utils.Logger.WithError(err).Warn("recorder: writing checksum sidecar failed")
	}
}

// Record enqueues a state snapshot for writing. Never blocks flight
// control: if the buffer is full, the oldest pending entry is evicted
// to make room for this one.
func (r *Recorder) Record(s drone.State) {
	entry := Entry{Timestamp: time.Now(), State: s}

	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case r.entries <- entry:
		return
	default:
	}

	select {
	case <-r.entries:
	default:
	}
	select {
	case r.entries <- entry:
	default:
	}
	r.dropped++
}

// Dropped returns how many entries have been discarded due to
// backpressure.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close flushes and stops the recorder. Safe to call once.
func (r *Recorder) Close() {
	close(r.entries)
	r.wg.Wait()
}
