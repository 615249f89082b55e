package infra

import (
	"sync"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/shoreagents/staffmon/internal/domain"
)

// ProcessAppObserver implements domain.ApplicationObserver using
// gopsutil. Each sample diffs the running process names against the
// previous sample; newly appeared names count as applications used.
type ProcessAppObserver struct {
	mu     sync.Mutex
	known  map[string]struct{}
	primed bool
}

// NewProcessAppObserver creates the gopsutil-backed app observer.
func NewProcessAppObserver() *ProcessAppObserver {
	return &ProcessAppObserver{known: make(map[string]struct{})}
}

// Sample returns process names that appeared since the last call. The
// first call primes the baseline and returns nothing, so long-running
// system daemons are not reported as applications the user opened.
func (o *ProcessAppObserver) Sample() ([]string, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	var fresh []string
	current := make(map[string]struct{}, len(procs))
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // process may have exited
		}
		current[name] = struct{}{}
		if o.primed {
			if _, seen := o.known[name]; !seen {
				fresh = append(fresh, name)
			}
		}
	}

	// Keep every name ever seen so a restarted app is not re-reported.
	for name := range current {
		o.known[name] = struct{}{}
	}
	o.primed = true
	return fresh, nil
}

// Available probes whether process enumeration works on this host.
func (o *ProcessAppObserver) Available() bool {
	_, err := process.Processes()
	return err == nil
}

// Ensure ProcessAppObserver implements domain.ApplicationObserver.
var _ domain.ApplicationObserver = (*ProcessAppObserver)(nil)
