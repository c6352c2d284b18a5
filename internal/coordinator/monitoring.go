package coordinator

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/geotify/internal/model"
)

// startMonitoring asks the gateway to monitor the region for g if the
// platform supports it and authorization allows it. The gateway may still
// report a failure later through MonitoringFailed. The returned error has
// already been reported.
func (c *Coordinator) startMonitoring(ctx context.Context, g model.Geotification) error {
	if !c.gateway.IsMonitoringAvailable() {
		c.unsupported[g.Identifier] = struct{}{}
		c.report(Report{Kind: ReportMonitoringUnsupported, Identifier: g.Identifier, Err: ErrMonitoringUnsupported})
		return ErrMonitoringUnsupported
	}
	if !c.auth.AllowsRegionMonitoring() {
		c.report(Report{Kind: ReportMonitoringDeferred, Identifier: g.Identifier, Err: ErrMonitoringDeferred})
		return ErrMonitoringDeferred
	}

	if err := c.gateway.StartMonitoring(ctx, model.RegionFor(g)); err != nil {
		failure := &MonitoringFailure{Identifier: g.Identifier, Err: err}
		c.report(Report{Kind: ReportMonitoringFailed, Identifier: g.Identifier, Err: failure})
		return failure
	}
	c.logger.Debug("monitoring requested", "identifier", g.Identifier, "radius", g.Radius)
	return nil
}

// stopMonitoring cancels every active subscription for identifier.
func (c *Coordinator) stopMonitoring(ctx context.Context, identifier string) {
	for _, r := range c.gateway.MonitoredRegions() {
		if r.Identifier != identifier {
			continue
		}
		if err := c.gateway.StopMonitoring(ctx, identifier); err != nil {
			c.logger.Warn("stop monitoring failed", "identifier", identifier, "err", err)
		}
	}
}

func (c *Coordinator) reconcile(ctx context.Context, level model.AuthorizationLevel) (err error) {
	defer func() { c.metrics.RecordOperation("reconcile", err) }()

	if !level.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAuthorization, level)
	}
	if level != c.auth {
		c.logger.Info("authorization changed", "from", c.auth, "to", level)
	}
	c.auth = level
	if !level.AllowsRegionMonitoring() {
		return nil
	}

	active := c.activeRegions()
	requested := 0
	for _, g := range c.items {
		if _, ok := active[g.Identifier]; ok {
			continue
		}
		if _, ok := c.unsupported[g.Identifier]; ok {
			continue
		}
		if c.startMonitoring(ctx, g) == nil {
			requested++
		}
	}
	if requested > 0 {
		c.logger.Info("monitoring reconciled", "requested", requested)
	}
	c.updateGauges()
	return nil
}

func (c *Coordinator) activeRegions() map[string]struct{} {
	regions := c.gateway.MonitoredRegions()
	active := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		active[r.Identifier] = struct{}{}
	}
	return active
}

func (c *Coordinator) report(r Report) {
	switch r.Kind {
	case ReportMonitoringDeferred:
		c.logger.Info("monitoring deferred", "identifier", r.Identifier)
	default:
		c.logger.Warn("monitoring problem", "kind", r.Kind, "identifier", r.Identifier, "err", r.Err)
	}
	c.metrics.RecordReport(string(r.Kind))
	for _, rep := range c.reporters {
		rep.Report(r)
	}
}
