package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"restock-watcher/extractor"
	"restock-watcher/internal/types"
	"restock-watcher/notify"
	"restock-watcher/store"
)

var tracer = otel.Tracer("restock-watcher/monitor")

// LoaderFactory acquires the page session used for one cycle
type LoaderFactory func(ctx context.Context) (types.PageLoader, error)

// Monitor drives poll cycles over the target registry
type Monitor struct {
	config     *types.Config
	targets    []types.MonitorTarget
	newLoader  LoaderFactory
	dispatcher types.Dispatcher
	store      store.StatusStore
	extractor  *extractor.Extractor
	logger     types.Logger
}

// NewMonitor creates a monitor. statusStore may be nil, in which case every cycle
// notifies for every available size regardless of earlier cycles.
func NewMonitor(
	config *types.Config,
	targets []types.MonitorTarget,
	newLoader LoaderFactory,
	dispatcher types.Dispatcher,
	statusStore store.StatusStore,
	logger types.Logger,
) *Monitor {
	if config == nil {
		config = types.DefaultConfig()
	}
	return &Monitor{
		config:     config,
		targets:    targets,
		newLoader:  newLoader,
		dispatcher: dispatcher,
		store:      statusStore,
		extractor:  extractor.NewExtractor(logger),
		logger:     logger,
	}
}

// Targets returns the registry the monitor polls
func (m *Monitor) Targets() []types.MonitorTarget {
	return m.targets
}

// RunCycle checks every target once, in registry order, with a single page session.
// Only a failure to acquire the session fails the whole cycle; every per-target
// failure is recorded in the report and the loop moves on.
func (m *Monitor) RunCycle(ctx context.Context) (*CycleReport, error) {
	ctx, span := tracer.Start(ctx, "RunCycle")
	defer span.End()

	if m.config.CycleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.CycleTimeout)
		defer cancel()
	}

	report := &CycleReport{Started: time.Now()}
	m.logger.Infof("Starting cycle for %d target(s)", len(m.targets))

	loader, err := m.newLoader(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session")
		return nil, fmt.Errorf("failed to acquire page session: %w", err)
	}
	defer func() {
		if err := loader.Close(); err != nil {
			m.logger.Warnf("Failed to release page session: %v", err)
		}
	}()

	for i, target := range m.targets {
		m.logger.Debugf("Processing target %d/%d: %s", i+1, len(m.targets), target.URL)
		report.Targets = append(report.Targets, m.checkTarget(ctx, loader, target))
	}

	report.Duration = time.Since(report.Started)
	span.SetAttributes(
		attribute.Int("targets", len(report.Targets)),
		attribute.Int("notifications", len(report.Events())),
	)

	m.logger.Infof("Cycle completed in %v", report.Duration)
	m.logger.Infof("Targets failed: %d/%d, notifications sent: %d",
		report.Failed(), len(report.Targets), report.Delivered())
	return report, nil
}

func (m *Monitor) checkTarget(ctx context.Context, loader types.PageLoader, target types.MonitorTarget) TargetResult {
	ctx, span := tracer.Start(ctx, "CheckTarget", trace.WithAttributes(
		attribute.String("target.url", target.URL),
		attribute.Int("target.sizes", len(target.Sizes)),
	))
	defer span.End()

	res := TargetResult{URL: target.URL, State: StateIdle}
	fail := func(err error) TargetResult {
		res.FailedIn = res.State
		res.Err = err
		res.Error = err.Error()
		res.State = StateDone
		span.RecordError(err)
		span.SetStatus(codes.Error, res.FailedIn.String())
		m.logger.Warnf("Target %s failed while %s: %v", target.URL, res.FailedIn, err)
		return res
	}

	m.transition(&res, StateLoadingPage)
	page, err := loader.Open(ctx, target.URL)
	if err != nil {
		return fail(err)
	}

	m.transition(&res, StateAwaitingSizeBlock)
	container := target.Rules.ContainerSelector
	if container == "" {
		container = target.Rules.OptionSelector
	}
	if container == "" {
		container = types.DefaultSiteRules().ContainerSelector
	}
	if err := page.WaitFor(ctx, container, m.config.ElementTimeout); err != nil {
		return fail(err)
	}

	m.transition(&res, StateExtracting)
	statuses, err := m.extractor.Extract(ctx, page, target)
	if err != nil {
		return fail(err)
	}
	res.Statuses = statuses

	m.transition(&res, StateNotifying)
	for _, size := range target.Sizes {
		m.dispatch(ctx, &res, size, statuses[size])
	}

	m.transition(&res, StateDone)
	span.SetAttributes(attribute.Int("notifications", len(res.Events)))
	return res
}

// dispatch notifies for an available size and records the status.
// With a store, Available is only recorded after a successful delivery so that a
// failed delivery is attempted again on the next cycle.
func (m *Monitor) dispatch(ctx context.Context, res *TargetResult, size types.SizeKey, status types.Status) {
	if status != types.StatusAvailable {
		m.logger.Infof("[%s] %s on %s", status, size, res.URL)
		m.remember(ctx, res.URL, size, status)
		return
	}

	if m.store != nil {
		last, known, err := m.store.Get(ctx, res.URL, size)
		if err != nil {
			m.logger.Warnf("Failed to read last status of %s on %s: %v", size, res.URL, err)
		} else if known && last == types.StatusAvailable {
			m.logger.Infof("[%s] %s on %s, already notified", status, size, res.URL)
			res.Suppressed = append(res.Suppressed, size)
			return
		}
	}

	event := types.NotificationEvent{Size: size, URL: res.URL, Text: notify.FormatRestock(size, res.URL)}
	result := m.dispatcher.Notify(ctx, size, res.URL)
	res.Events = append(res.Events, event)
	res.Deliveries = append(res.Deliveries, result)

	if !result.OK {
		m.logger.Errorf("Notification for %s on %s failed (%d): %s %v", size, res.URL, result.StatusCode, result.Body, result.Err)
		return
	}
	m.remember(ctx, res.URL, size, status)
}

func (m *Monitor) remember(ctx context.Context, url string, size types.SizeKey, status types.Status) {
	if m.store == nil {
		return
	}
	if err := m.store.Put(ctx, url, size, status); err != nil {
		m.logger.Warnf("Failed to record status of %s on %s: %v", size, url, err)
	}
}

func (m *Monitor) transition(res *TargetResult, next State) {
	m.logger.Debugf("Target %s: %s -> %s", res.URL, res.State, next)
	res.State = next
}

// Watch runs a cycle immediately and then every interval until ctx is done.
// A failed cycle is logged and the next one runs on schedule.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration, onReport func(*CycleReport)) error {
	if interval <= 0 {
		return fmt.Errorf("%w: watch interval must be positive", types.ErrConfiguration)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := m.RunCycle(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			m.logger.Errorf("Cycle failed: %v", err)
		} else if onReport != nil {
			onReport(report)
		}

		select {
		case <-ctx.Done():
			m.logger.Info("Watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}
