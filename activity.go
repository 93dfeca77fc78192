package prefs

import (
	"context"

	"github.com/goliatone/go-prefs/pkg/activity"
	"go.uber.org/zap"
)

// activityObserver turns mutations and profile deliveries into activity
// events. Hook failures are logged and never interrupt delivery.
type activityObserver struct {
	emitter  *activity.Emitter
	identity func() Identity
	logger   *zap.Logger
}

func newActivityObserver(cfg engineConfig, identity func() Identity) *activityObserver {
	emitter := activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: len(cfg.activityHooks) > 0,
		Channel: cfg.activityChannel,
		Now:     cfg.now,
	})
	if !emitter.Enabled() {
		return nil
	}
	return &activityObserver{emitter: emitter, identity: identity, logger: cfg.logger}
}

func (o *activityObserver) OnMutation(m Mutation) {
	id := o.identity()
	input := activity.SettingEventInput{
		UserKey:     id.UserKey,
		ActiveSetID: id.ActiveSetID,
		Path:        m.Path,
		OldValue:    m.OldValue,
		NewValue:    m.NewValue,
		Origin:      m.Origin.String(),
	}
	var event activity.Event
	switch m.Origin {
	case OriginFromUndo:
		event = activity.BuildSettingUndoneEvent(input)
	case OriginNotUndoable:
		event = activity.BuildSettingReconciledEvent(input)
	case OriginInitialization:
		event = activity.BuildSettingInitializedEvent(input)
	default:
		event = activity.BuildSettingChangedEvent(input)
	}
	o.emit(event)
}

func (o *activityObserver) profileDelivered(report ReconcileReport) {
	o.emit(activity.BuildProfileDeliveredEvent(activity.ProfileEventInput{
		UserKey:         report.Identity.UserKey,
		ActiveSetID:     report.Identity.ActiveSetID,
		IdentityChanged: report.IdentityChanged,
		Pairs:           len(report.Pairs),
		Applied:         report.Applied,
	}))
}

func (o *activityObserver) emit(event activity.Event) {
	if err := o.emitter.Emit(context.Background(), event); err != nil {
		o.logger.Warn("activity hook failed",
			zap.String("verb", event.Verb),
			zap.String("object_id", event.ObjectID),
			zap.Error(err),
		)
	}
}
