package schedule_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/trackspend/expense-tracker/internal/schedule"
)

type countingRunner struct {
	runs atomic.Int64
}

func (c *countingRunner) ProcessDueExpenses(ctx context.Context, asOf time.Time) ([]schedule.Conversion, error) {
	c.runs.Add(1)
	return nil, nil
}

var _ = Describe("Scheduler", func() {
	var (
		runner *countingRunner
		lg     *slog.Logger
	)

	BeforeEach(func() {
		runner = &countingRunner{}
		lg = slog.New(slog.NewTextHandler(GinkgoWriter, nil))
	})

	It("should run the processor on every tick", func() {
		scheduler := schedule.NewScheduler(runner, 10*time.Millisecond, lg)

		scheduler.Start(context.Background())
		defer scheduler.Stop()

		Eventually(func() int64 {
			return runner.runs.Load()
		}, time.Second, 5*time.Millisecond).Should(BeNumerically(">=", 2))
	})

	It("should report running state across start and stop", func() {
		scheduler := schedule.NewScheduler(runner, time.Hour, lg)
		Expect(scheduler.Running()).To(BeFalse())

		scheduler.Start(context.Background())
		Expect(scheduler.Running()).To(BeTrue())

		scheduler.Stop()
		Expect(scheduler.Running()).To(BeFalse())
	})

	It("should treat a second start as a no-op", func() {
		scheduler := schedule.NewScheduler(runner, time.Hour, lg)

		scheduler.Start(context.Background())
		scheduler.Start(context.Background())
		Expect(scheduler.Running()).To(BeTrue())

		scheduler.Stop()
	})

	It("should stop ticking when the context is cancelled", func() {
		scheduler := schedule.NewScheduler(runner, 10*time.Millisecond, lg)

		ctx, cancel := context.WithCancel(context.Background())
		scheduler.Start(ctx)
		defer scheduler.Stop()

		Eventually(func() int64 {
			return runner.runs.Load()
		}, time.Second, 5*time.Millisecond).Should(BeNumerically(">=", 1))

		cancel()
		time.Sleep(30 * time.Millisecond)
		count := runner.runs.Load()
		Consistently(func() int64 {
			return runner.runs.Load()
		}, 50*time.Millisecond, 10*time.Millisecond).Should(Equal(count))
	})

	It("should expose its configured interval", func() {
		scheduler := schedule.NewScheduler(runner, 30*time.Minute, lg)
		Expect(scheduler.Interval()).To(Equal(30 * time.Minute))
	})
})
