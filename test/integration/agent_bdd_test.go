//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/shoreagents/staffmon/internal/breaks"
	"github.com/shoreagents/staffmon/internal/bus"
	"github.com/shoreagents/staffmon/internal/domain"
	"github.com/shoreagents/staffmon/internal/infra"
	"github.com/shoreagents/staffmon/internal/metrics"
	"github.com/shoreagents/staffmon/internal/syncer"
)

type alwaysEligible struct{}

func (alwaysEligible) Eligible() bool { return true }

// collector records every metrics payload the fake remote receives
type collector struct {
	mu     sync.Mutex
	deltas []domain.MetricSnapshot
}

func (c *collector) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metrics" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var snap domain.MetricSnapshot
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c.mu.Lock()
		c.deltas = append(c.deltas, snap)
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
}

func (c *collector) received() []domain.MetricSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.MetricSnapshot(nil), c.deltas...)
}

var _ = Describe("Metrics Sync Pipeline", func() {
	var (
		server     *httptest.Server
		remote     *collector
		store      *infra.Store
		aggregator *metrics.Aggregator
		engine     *syncer.Engine
	)

	BeforeEach(func() {
		remote = &collector{}
		server = httptest.NewServer(remote.handler())

		var err error
		store, err = infra.NewStore(GinkgoT().TempDir(), []byte("0123456789abcdef0123456789abcdef"))
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		events := bus.New()
		classifier := metrics.NewClassifier(nil, 30*time.Second, 30*time.Second, events, logger)
		aggregator = metrics.NewAggregator(classifier, alwaysEligible{}, time.Second, logger)

		client := infra.NewRemoteClient(server.URL, 5*time.Second)
		engine = syncer.NewEngine(aggregator, client, store, syncer.DefaultConfig(), logger)
	})

	AfterEach(func() {
		store.Close()
		server.Close()
	})

	Describe("delta rounds", func() {
		Context("on the first sync of a shift", func() {
			It("sends the absolute snapshot", func() {
				aggregator.RecordInput(domain.InputKey)
				aggregator.RecordInput(domain.InputKey)
				aggregator.RecordInput(domain.InputClick)
				aggregator.Tick(10 * time.Second)

				Expect(engine.Sync(context.Background())).To(Succeed())

				deltas := remote.received()
				Expect(deltas).To(HaveLen(1))
				Expect(deltas[0].Keystrokes).To(Equal(int64(2)))
				Expect(deltas[0].MouseClicks).To(Equal(int64(1)))
				Expect(deltas[0].ScreenSeconds).To(Equal(float64(10)))
			})
		})

		Context("on subsequent syncs", func() {
			It("sends only the growth since the last acknowledged round", func() {
				aggregator.RecordInput(domain.InputKey)
				Expect(engine.Sync(context.Background())).To(Succeed())

				aggregator.RecordInput(domain.InputKey)
				aggregator.RecordInput(domain.InputKey)
				aggregator.RecordAppSwitch("browser")
				Expect(engine.Sync(context.Background())).To(Succeed())

				deltas := remote.received()
				Expect(deltas).To(HaveLen(2))
				Expect(deltas[1].Keystrokes).To(Equal(int64(2)))
				Expect(deltas[1].TabsSwitched).To(Equal(int64(1)))
				Expect(deltas[1].ApplicationsUsed).To(ConsistOf("browser"))
			})
		})

		Context("when the process restarts between rounds", func() {
			It("recovers the baseline from the encrypted store", func() {
				aggregator.RecordInput(domain.InputKey)
				aggregator.RecordInput(domain.InputKey)
				aggregator.RecordInput(domain.InputKey)
				Expect(engine.Sync(context.Background())).To(Succeed())

				// A fresh engine over the same store must not re-send
				// already-acknowledged counts
				logger := zap.NewNop()
				client := infra.NewRemoteClient(server.URL, 5*time.Second)
				restarted := syncer.NewEngine(aggregator, client, store, syncer.DefaultConfig(), logger)

				baseline := restarted.Baseline()
				Expect(baseline).NotTo(BeNil())
				Expect(baseline.Keystrokes).To(Equal(int64(3)))

				aggregator.RecordInput(domain.InputClick)
				Expect(restarted.Sync(context.Background())).To(Succeed())

				deltas := remote.received()
				Expect(deltas).To(HaveLen(2))
				Expect(deltas[1].Keystrokes).To(BeZero())
				Expect(deltas[1].MouseClicks).To(Equal(int64(1)))
			})
		})

		Context("on clock-in", func() {
			It("discards the baseline so the next round is absolute", func() {
				aggregator.RecordInput(domain.InputKey)
				Expect(engine.Sync(context.Background())).To(Succeed())

				engine.Reset()
				aggregator.Reset()

				aggregator.RecordInput(domain.InputKey)
				Expect(engine.Sync(context.Background())).To(Succeed())

				deltas := remote.received()
				Expect(deltas).To(HaveLen(2))
				Expect(deltas[1].Keystrokes).To(Equal(int64(1)))

				persisted, err := store.LoadBaseline()
				Expect(err).NotTo(HaveOccurred())
				Expect(persisted.Keystrokes).To(Equal(int64(1)))
			})
		})
	})

	Describe("break accrual gate", func() {
		It("withholds timer accrual for the break's duration, across a restart", func() {
			logger := zap.NewNop()
			events := bus.New()
			classifier := metrics.NewClassifier(nil, 30*time.Second, 30*time.Second, events, logger)
			agg := metrics.NewAggregator(classifier, alwaysEligible{}, time.Second, logger)
			coordinator := breaks.NewCoordinator(agg, classifier, store, logger)

			agg.Tick(5 * time.Second)
			coordinator.Start(domain.BreakLunch, "", nil)
			agg.Tick(60 * time.Second)
			Expect(agg.Snapshot().ScreenSeconds).To(Equal(float64(5)))

			// Simulated crash: a new coordinator over the same store
			// re-enters the break before tracking resumes
			restartedAgg := metrics.NewAggregator(
				metrics.NewClassifier(nil, 30*time.Second, 30*time.Second, bus.New(), logger),
				alwaysEligible{}, time.Second, logger)
			restarted := breaks.NewCoordinator(restartedAgg, classifier, store, logger)
			restarted.Restore()
			Expect(restarted.OnBreak()).To(BeTrue())
			Expect(restartedAgg.Paused()).To(BeTrue())

			closed := restarted.End()
			Expect(closed).NotTo(BeNil())
			Expect(closed.Type).To(Equal(domain.BreakLunch))
			Expect(restartedAgg.Paused()).To(BeFalse())
		})
	})
})
