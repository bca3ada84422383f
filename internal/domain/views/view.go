package views

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"pulse/internal/domain/alerts"
	"pulse/internal/domain/filters"
	"pulse/internal/domain/options"
	"pulse/internal/domain/reports"
	"pulse/internal/platform/backend"
)

// View wires one filter store to its option resolver and charts. Every
// mutation runs the same pipeline: update the store, reconcile options, clear
// charts whose trigger is no longer satisfied and fetch the charts whose
// trigger fired.
//
// Pipelines are not serialized. Overlapping runs are settled by the resolver's
// request stamps and the chart tickets, so a slow backend never blocks State.
type View struct {
	kind     filters.Kind
	store    *filters.Store
	resolver *options.Resolver
	reports  *reports.Service
	alerts   *alerts.Channel
	log      logrus.FieldLogger
	now      func() time.Time
	charts   []*reports.Tracker
}

// State is the full read model of a view.
type State struct {
	Kind    filters.Kind     `json:"kind"`
	Filters filters.Snapshot `json:"filters"`
	Options options.Lists    `json:"options"`
	Charts  []reports.State  `json:"charts"`
}

func newView(kind filters.Kind, schema filters.Schema, resolver *options.Resolver, svc *reports.Service, ch *alerts.Channel, log logrus.FieldLogger) *View {
	defs := reports.Definitions(kind)
	charts := make([]*reports.Tracker, 0, len(defs))
	for _, d := range defs {
		charts = append(charts, reports.NewTracker(d))
	}
	return &View{
		kind:     kind,
		store:    filters.NewStore(schema),
		resolver: resolver,
		reports:  svc,
		alerts:   ch,
		log:      log.WithField("view", kind),
		now:      time.Now,
		charts:   charts,
	}
}

func (v *View) Kind() filters.Kind {
	return v.kind
}

// Update merges partial into the filters. Scope fields are owned by the
// session and ignored here; see Session.SwitchOrganization.
func (v *View) Update(ctx context.Context, partial filters.Values) State {
	partial = partial.Clone()
	for _, f := range v.store.Schema().Scope {
		delete(partial, f)
	}
	return v.rescope(ctx, partial)
}

// rescope is Update without the scope guard.
func (v *View) rescope(ctx context.Context, partial filters.Values) State {
	v.run(ctx, v.store.Update(partial))
	return v.State()
}

func (v *View) Reset(ctx context.Context) State {
	v.run(ctx, v.store.Reset())
	return v.State()
}

// RequestFetch re-runs every gated chart whose required filters are set.
func (v *View) RequestFetch(ctx context.Context) State {
	v.run(ctx, v.store.RequestReportFetch())
	return v.State()
}

func (v *View) Chart(id reports.ChartID) (reports.State, error) {
	if _, err := reports.Lookup(v.kind, id); err != nil {
		return reports.State{}, err
	}
	for _, t := range v.charts {
		if t.Definition().ID == id {
			return t.State(), nil
		}
	}
	return reports.State{}, errors.Wrapf(reports.ErrUnknownChart, "%s/%s", v.kind, id)
}

// Rows returns the employees matching the table filters. Only the employee
// table view has rows.
func (v *View) Rows() ([]backend.Employee, error) {
	if v.kind != filters.EmployeeTable {
		return nil, errors.Wrapf(filters.ErrUnknownView, "%s has no rows", v.kind)
	}
	return filters.MatchEmployees(v.store.Values(), v.resolver.Employees()), nil
}

func (v *View) State() State {
	charts := make([]reports.State, 0, len(v.charts))
	for _, t := range v.charts {
		charts = append(charts, t.State())
	}
	return State{
		Kind:    v.kind,
		Filters: v.store.Snapshot(),
		Options: v.resolver.Options(),
		Charts:  charts,
	}
}

func (v *View) run(ctx context.Context, change filters.Change) {
	pruned, err := v.resolver.Apply(ctx, v.store, change)
	if err != nil && !errors.Is(err, context.Canceled) {
		v.log.WithError(err).Warn("resolve filter options")
		v.alerts.Raise(backend.UserMessage(err), alerts.StatusDanger)
	}

	fired := map[filters.Trigger]bool{}
	for _, c := range append([]filters.Change{change}, pruned...) {
		for _, t := range c.Fired {
			fired[t] = true
		}
	}

	var due []*reports.Tracker
	for _, t := range v.charts {
		trigger := t.Definition().Trigger
		ready := v.store.Ready(trigger)
		if change.Reset || !ready {
			t.Clear()
		}
		if ready && fired[trigger] {
			due = append(due, t)
		}
	}
	if len(due) > 0 {
		v.fetch(ctx, due)
	}
}

func (v *View) fetch(ctx context.Context, due []*reports.Tracker) {
	values := v.store.Values()
	q := reports.QueryFrom(values, v.skillLabel(values))
	generation := v.store.Generation()

	g, gCtx := errgroup.WithContext(ctx)
	var (
		mu     sync.Mutex
		failed error
	)
	for _, t := range due {
		ticket := t.Begin(generation)
		g.Go(func() error {
			def := t.Definition()
			res, err := v.reports.Fetch(gCtx, v.kind, def, q)
			if !t.Finish(ticket, res, err, v.now().UTC()) || err == nil {
				return nil
			}
			v.log.WithError(err).WithField("chart", def.ID).Warn("fetch chart")
			mu.Lock()
			if failed == nil {
				failed = err
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if failed != nil && !errors.Is(failed, context.Canceled) {
		v.alerts.Raise(backend.UserMessage(failed), alerts.StatusDanger)
	}
}

func (v *View) skillLabel(values filters.Values) string {
	id, ok := values.ID(filters.Skill)
	if !ok {
		return ""
	}
	for _, o := range v.resolver.Options().Skills {
		if o.ID == id {
			return o.Label
		}
	}
	return ""
}
