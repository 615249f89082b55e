package infra

import (
	"sync"

	gopsnet "github.com/shirou/gopsutil/v3/net"

	"github.com/shoreagents/staffmon/internal/domain"
)

// NetBandwidthObserver implements domain.BandwidthObserver on
// gopsutil's aggregated network IO counters.
type NetBandwidthObserver struct {
	mu     sync.Mutex
	last   uint64
	primed bool
}

// NewNetBandwidthObserver creates the gopsutil-backed observer.
func NewNetBandwidthObserver() *NetBandwidthObserver {
	return &NetBandwidthObserver{}
}

// DeltaBytes returns bytes sent+received since the last call. The
// first call primes the baseline and returns zero. Counter resets
// (interface bounce, wraparound) yield zero rather than a negative.
func (o *NetBandwidthObserver) DeltaBytes() (int64, error) {
	counters, err := gopsnet.IOCounters(false)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, c := range counters {
		total += c.BytesSent + c.BytesRecv
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.primed {
		o.last = total
		o.primed = true
		return 0, nil
	}
	if total < o.last {
		o.last = total
		return 0, nil
	}
	delta := total - o.last
	o.last = total
	return int64(delta), nil
}

// Available probes whether network counters are readable here.
func (o *NetBandwidthObserver) Available() bool {
	_, err := gopsnet.IOCounters(false)
	return err == nil
}

// Ensure NetBandwidthObserver implements domain.BandwidthObserver.
var _ domain.BandwidthObserver = (*NetBandwidthObserver)(nil)
