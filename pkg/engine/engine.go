package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/halo-hpc/halo/pkg/cluster"
	"github.com/halo-hpc/halo/pkg/log"
	"github.com/halo-hpc/halo/pkg/metrics"
	"github.com/halo-hpc/halo/pkg/types"
)

const (
	// managePeriod is the tick interval of the manage loops.
	managePeriod = 3 * time.Second

	// observePeriod is the poll interval of the observe loop.
	observePeriod = 5 * time.Second

	// probeFailureTolerance is the number of consecutive failed home probes
	// that moves a running HA group to CheckingHome; fewer are tolerated.
	probeFailureTolerance = 2
)

// Engine drives the lifecycle of every resource group: one concurrent loop
// per group, each either observing resource state or actively managing it
// depending on the manager's mode.
type Engine struct {
	cluster *cluster.Cluster
	logger  zerolog.Logger
}

// New creates an Engine over an assembled cluster.
func New(c *cluster.Cluster) *Engine {
	return &Engine{
		cluster: c,
		logger:  log.WithComponent("engine"),
	}
}

// Run starts one loop per resource group and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	manage := e.cluster.Context.Options.ManageResources

	var wg sync.WaitGroup
	for _, group := range e.cluster.Groups() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !manage {
				e.observeLoop(ctx, group)
			} else if group.HighAvailability() {
				e.manageHA(ctx, group)
			} else {
				e.manageNonHA(ctx, group)
			}
		}()
	}
	wg.Wait()
}

// sleep waits for d or until ctx is cancelled, reporting whether the loop
// should continue.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// observeLoop polls every resource in the group independently. Observe mode
// never starts, stops, or fences anything.
func (e *Engine) observeLoop(ctx context.Context, g *cluster.ResourceGroup) {
	var wg sync.WaitGroup
	for res := range g.Resources() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.observeResource(ctx, res)
		}()
	}
	wg.Wait()
}

func (e *Engine) observeResource(ctx context.Context, res *cluster.Resource) {
	verbose := e.cluster.Context.Options.Verbose
	for {
		status, err := res.Monitor(ctx, types.Home)
		switch {
		case err != nil:
			if verbose {
				e.logger.Warn().Err(err).Str("resource", res.ParamsString()).Msg("Could not monitor resource")
			}
			res.SetStatus(types.StatusUnknown)
		case status == types.OcfSuccess:
			res.SetStatus(types.StatusRunningOnHome)
		case status == types.OcfErrNotRunning:
			res.SetStatus(types.StatusStopped)
		default:
			res.SetStatus(types.StatusUnknown)
		}

		if !sleep(ctx, observePeriod) {
			return
		}
	}
}

// manageNonHA is the manage loop for a group without a failover host. The
// engine keeps the group running on its home host; there is nowhere to fail
// over to.
func (e *Engine) manageNonHA(ctx context.Context, g *cluster.ResourceGroup) {
	logger := e.logger.With().Str("group", g.Name()).Logger()
	logger.Info().Msg("Managing resource group")

	e.updateResources(ctx, g, types.Home)
	g.UpdateOverall()

	for {
		timer := metrics.NewTimer()
		switch g.Overall() {
		case types.StatusUnknown:
			e.updateResources(ctx, g, types.Home)
		case types.StatusStopped:
			e.tryStartResources(ctx, g, types.Home)
		case types.StatusRunningOnHome:
			e.updateResources(ctx, g, types.Home)
		case types.StatusUnrunnable:
			// Wait for operator intervention.
		default:
			// RunningOnAway and the transitional states cannot arise without
			// a failover host; reaching one is a programming error. Reset
			// the group and re-observe rather than crash the manager.
			logger.Error().
				Stringer("status", g.Overall()).
				Msg("Impossible status for non-HA resource group")
			e.setMembers(g, types.StatusUnknown)
		}
		e.finishTick(g, timer, "manage")

		if !sleep(ctx, managePeriod) {
			return
		}
	}
}

// haState carries the per-group bookkeeping of the HA state machine that is
// not itself a resource status.
type haState struct {
	// probeFailures counts consecutive failed home probes while the group
	// runs on home.
	probeFailures int

	logger zerolog.Logger
}

// manageHA is the manage loop for a group with a failover host. The group's
// aggregate status acts as the state of a recovery state machine; each tick
// dispatches on it.
func (e *Engine) manageHA(ctx context.Context, g *cluster.ResourceGroup) {
	logger := e.logger.With().Str("group", g.Name()).Logger()
	logger.Info().Msg("Managing resource group with failover")

	state := &haState{logger: logger}
	for {
		timer := metrics.NewTimer()
		e.haTick(ctx, g, state)
		e.finishTick(g, timer, "manage")

		if !sleep(ctx, managePeriod) {
			return
		}
	}
}

// haTick runs one dispatch of the HA state machine.
func (e *Engine) haTick(ctx context.Context, g *cluster.ResourceGroup, state *haState) {
	switch g.Overall() {
	case types.StatusUnknown, types.StatusUnrunnable:
		e.probeBothLocations(ctx, g)

	case types.StatusStopped:
		e.tryStartResources(ctx, g, types.Home)
		if g.UpdateOverall() != types.StatusRunningOnHome {
			state.logger.Warn().Msg("Could not start resource group on home host, failing over")
			e.failover(ctx, g, state.logger)
		}

	case types.StatusRunningOnHome:
		// A failed probe does not downgrade member statuses right away;
		// the group stays RunningOnHome while failures are within
		// tolerance, so that the tolerance window actually exists.
		probe := e.monitorMembers(ctx, g, types.Home)
		if probe.generic || probe.transportErrs > 0 {
			state.probeFailures++
			_ = g.Root.Home().SetStatus(types.HostUnknown)
			if probe.generic || state.probeFailures >= probeFailureTolerance {
				state.logger.Warn().Int("failures", state.probeFailures).Msg("Lost contact with home host, checking")
				e.setMembers(g, types.StatusCheckingHome)
				state.probeFailures = 0
			}
		} else {
			state.probeFailures = 0
			probe.apply()
		}

	case types.StatusCheckingHome:
		// Confirm the loss with a targeted re-probe before fencing.
		probe := e.probeMembers(ctx, g, types.Home)
		if probe.success == len(g.Members()) {
			e.setMembers(g, types.StatusRunningOnHome)
		} else {
			state.logger.Warn().Msg("Home host confirmed lost, failing over")
			e.failover(ctx, g, state.logger)
		}

	case types.StatusCheckingAway:
		e.tryStartResources(ctx, g, types.Away)
		if g.UpdateOverall() != types.StatusRunningOnAway {
			state.logger.Error().Msg("Resource group could not start on either host")
			e.markUnrunnable(g)
		}

	case types.StatusRunningOnAway:
		// Sticky: once failed over, stay on the away host until an
		// operator intervenes.
		e.updateResources(ctx, g, types.Away)
	}
	g.UpdateOverall()
}

// failover fences the home host off and, only if fencing succeeds, starts
// the group on the away host. A fencing failure blocks the failover; the
// group drops to Unknown and the next tick retries.
func (e *Engine) failover(ctx context.Context, g *cluster.ResourceGroup, logger zerolog.Logger) {
	metrics.FailoversTotal.Inc()

	home := g.Root.Home()
	if err := home.DoFence(types.FenceOff); err != nil {
		metrics.FenceOperationsTotal.WithLabelValues("off", "failure").Inc()
		logger.Error().Err(err).Str("host", home.ID()).Msg("Could not fence home host, failover blocked")
		e.setMembers(g, types.StatusUnknown)
		return
	}
	metrics.FenceOperationsTotal.WithLabelValues("off", "success").Inc()
	logger.Info().Str("host", home.ID()).Msg("Fenced home host off")

	e.setMembers(g, types.StatusCheckingAway)
	e.tryStartResources(ctx, g, types.Away)
	if g.UpdateOverall() != types.StatusRunningOnAway {
		logger.Error().Msg("Resource group could not start on either host")
		e.markUnrunnable(g)
	}
}

// probeResult summarizes one concurrent monitor pass over a group.
type probeResult struct {
	success       int
	notRunning    int
	other         int
	transportErrs int

	// generic is set when any member reported OCF_ERR_GENERIC, which counts
	// as an immediate loss signal rather than a tolerated blip.
	generic bool
}

// memberProbe is the raw outcome of monitoring every member of a group at
// one location.
type memberProbe struct {
	probeResult

	group   *cluster.ResourceGroup
	loc     types.Location
	members []*cluster.Resource
	results []types.OcfStatus
	errs    []error
}

// monitorMembers monitors every member of g at loc concurrently. It only
// gathers evidence; no statuses change.
func (e *Engine) monitorMembers(ctx context.Context, g *cluster.ResourceGroup, loc types.Location) memberProbe {
	probe := memberProbe{group: g, loc: loc, members: g.Members()}
	probe.results = make([]types.OcfStatus, len(probe.members))
	probe.errs = make([]error, len(probe.members))

	var wg sync.WaitGroup
	for i, res := range probe.members {
		wg.Add(1)
		go func() {
			defer wg.Done()
			probe.results[i], probe.errs[i] = res.Monitor(ctx, loc)
		}()
	}
	wg.Wait()

	for i := range probe.members {
		switch {
		case probe.errs[i] != nil:
			probe.transportErrs++
		case probe.results[i] == types.OcfSuccess:
			probe.success++
		case probe.results[i] == types.OcfErrNotRunning:
			probe.notRunning++
		default:
			probe.other++
			if probe.results[i] == types.OcfErrGeneric {
				probe.generic = true
			}
		}
	}
	return probe
}

// probeMembers monitors without touching member statuses, for paths that
// need evidence before committing to a transition.
func (e *Engine) probeMembers(ctx context.Context, g *cluster.ResourceGroup, loc types.Location) probeResult {
	return e.monitorMembers(ctx, g, loc).probeResult
}

// apply assigns each member the status its monitor result maps to: running
// at the probed location, stopped, or unknown. The probed host's power
// status is marked Up, or Unknown when any member's probe failed at the
// transport level.
func (p memberProbe) apply() {
	for i, res := range p.members {
		switch {
		case p.errs[i] != nil:
			res.SetStatus(types.StatusUnknown)
		case p.results[i] == types.OcfSuccess:
			res.SetStatus(p.loc.RunningStatus())
		case p.results[i] == types.OcfErrNotRunning:
			res.SetStatus(types.StatusStopped)
		default:
			res.SetStatus(types.StatusUnknown)
		}
	}

	host := p.group.Root.Home()
	if p.loc == types.Away {
		host = p.group.Root.Failover()
	}
	if p.transportErrs > 0 {
		_ = host.SetStatus(types.HostUnknown)
	} else {
		_ = host.SetStatus(types.HostUp)
	}
}

// updateResources refreshes every member's status from a fresh monitor pass.
func (e *Engine) updateResources(ctx context.Context, g *cluster.ResourceGroup, loc types.Location) probeResult {
	probe := e.monitorMembers(ctx, g, loc)
	probe.apply()
	return probe.probeResult
}

// probeBothLocations resolves an Unknown (or Unrunnable) group by looking
// for it on its home host first, then on its away host. Partial evidence —
// some members up at away but not all — leaves the group Unknown rather
// than risk starting members under a half-failed-over group.
func (e *Engine) probeBothLocations(ctx context.Context, g *cluster.ResourceGroup) {
	e.updateResources(ctx, g, types.Home)
	if g.UpdateOverall() != types.StatusStopped || !g.HighAvailability() {
		return
	}

	// Nothing is running at home; look for the group on the away host
	// before concluding it is down.
	away := e.probeMembers(ctx, g, types.Away)
	switch {
	case away.success == len(g.Members()):
		e.setMembers(g, types.StatusRunningOnAway)
	case away.success > 0:
		e.setMembers(g, types.StatusUnknown)
	}
	// No away member running: the group stays Stopped and the next tick
	// starts it at home.
}

// tryStartResources attempts a dependency-ordered start of the group at loc.
func (e *Engine) tryStartResources(ctx context.Context, g *cluster.ResourceGroup, loc types.Location) {
	g.Root.StartIfNeededRecursive(ctx, loc)
}

// setMembers assigns status to every member of g.
func (e *Engine) setMembers(g *cluster.ResourceGroup, status types.ResourceStatus) {
	for res := range g.Resources() {
		res.SetStatus(status)
	}
}

// markUnrunnable marks every member that is not running as unrunnable. Both
// start paths failed recently; the Unrunnable dispatch re-probes both
// locations on the next tick.
func (e *Engine) markUnrunnable(g *cluster.ResourceGroup) {
	for res := range g.Resources() {
		if !res.IsRunning() {
			res.SetStatus(types.StatusUnrunnable)
		}
	}
}

// finishTick recomputes the aggregate and publishes tick metrics.
func (e *Engine) finishTick(g *cluster.ResourceGroup, timer *metrics.Timer, mode string) {
	g.UpdateOverall()
	timer.ObserveDuration(metrics.TickDuration.WithLabelValues(mode))
	metrics.GroupStatus.WithLabelValues(g.Name()).Set(float64(g.Overall()))
	for res := range g.Resources() {
		metrics.ResourceStatus.WithLabelValues(g.Name(), resourceLabel(res)).Set(float64(res.GetStatus()))
	}
}

func resourceLabel(res *cluster.Resource) string {
	if target, ok := res.Parameters["target"]; ok {
		return target
	}
	if pool, ok := res.Parameters["pool"]; ok {
		return pool
	}
	return res.Kind
}
