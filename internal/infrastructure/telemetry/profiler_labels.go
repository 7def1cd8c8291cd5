package telemetry

import (
	"context"

	"github.com/grafana/pyroscope-go"
)

// Pyroscope label keys. Identifiers such as obligation or payment IDs are
// never labels: every distinct value becomes a separate profile series.
const (
	ProfilingLabelOperation = "operation"
	ProfilingLabelResource  = "resource"
	ProfilingLabelRoute     = "route"
	ProfilingLabelMethod    = "method"
	ProfilingLabelCurrency  = "currency"
)

// MaxLabelValueLength truncates label values
const MaxLabelValueLength = 128

// ProfileLabels tag the samples taken while a code path runs. Empty fields
// are left out.
type ProfileLabels struct {
	Operation string // service operation, e.g. register_payment
	Resource  string // API collection, e.g. payments
	Route     string
	Method    string
	Currency  string
}

// pairs returns the key/value list pyroscope.Labels expects, in a fixed key order
func (l ProfileLabels) pairs() []string {
	fields := [...][2]string{
		{ProfilingLabelOperation, l.Operation},
		{ProfilingLabelResource, l.Resource},
		{ProfilingLabelRoute, l.Route},
		{ProfilingLabelMethod, l.Method},
		{ProfilingLabelCurrency, l.Currency},
	}
	pairs := make([]string, 0, 2*len(fields))
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		v := f[1]
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, f[0], v)
	}
	return pairs
}

// Profile runs fn with labels attached to its goroutine, so the samples can
// be filtered by them in Pyroscope. fn receives the labelled context.
//
//	telemetry.Profile(ctx, telemetry.ProfileLabels{Operation: "register_payment", Currency: "PEN"},
//	    func(ctx context.Context) { updated, payment, err = repo.CreatePayment(ctx, id, draft, today) })
func Profile(ctx context.Context, labels ProfileLabels, fn func(context.Context)) {
	pairs := labels.pairs()
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}
