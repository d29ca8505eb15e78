package notify

import (
	"context"
	"fmt"

	"alertmap/internal/models"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Effect is one way of telling the user about an alert
type Effect interface {
	Name() string
	Fire(ctx context.Context, alert models.Alert) error
}

// EffectFunc adapts a function to Effect
type EffectFunc struct {
	EffectName string
	Fn         func(ctx context.Context, alert models.Alert) error
}

func (f EffectFunc) Name() string { return f.EffectName }

func (f EffectFunc) Fire(ctx context.Context, alert models.Alert) error {
	return f.Fn(ctx, alert)
}

// Dispatcher fires every effect for an alert. A failing or panicking effect
// never stops the others.
type Dispatcher struct {
	effects []Effect
}

func NewDispatcher(effects ...Effect) *Dispatcher {
	return &Dispatcher{effects: effects}
}

// Dispatch runs all effects in order. The combined error is for callers that
// want to inspect it; it is already logged at debug level.
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.Alert) error {
	var errs error
	for _, effect := range d.effects {
		errs = multierr.Append(errs, fire(ctx, effect, alert))
	}

	if errs != nil {
		logrus.WithError(errs).WithField("alert_id", alert.ID).Debug("Notification side effects failed")
	}
	return errs
}

// DispatchAll is Dispatch for each alert
func (d *Dispatcher) DispatchAll(ctx context.Context, alerts []models.Alert) error {
	var errs error
	for _, a := range alerts {
		errs = multierr.Append(errs, d.Dispatch(ctx, a))
	}
	return errs
}

func fire(ctx context.Context, effect Effect, alert models.Alert) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", effect.Name(), r)
		}
	}()

	if err := effect.Fire(ctx, alert); err != nil {
		return fmt.Errorf("%s: %w", effect.Name(), err)
	}
	return nil
}
