package observer

import (
	"fmt"
	"time"

	"github.com/bft-labs/timelinewatch/pkg/log"
	"github.com/bft-labs/timelinewatch/pkg/timeline"
)

// Forward delivers a host-native notification about a timeline of subject
// to the document handlers named handlerName. No per-watch callback is
// involved.
func (o *Observer) Forward(subject timeline.Subject, name, handlerName string) {
	pos, err := o.position(subject, name)
	if err != nil {
		o.logger.Warn("forwarded timeline unreadable",
			log.String("observer", o.id),
			log.String("timeline", name),
			log.Err(err))
	}
	ev := o.event(subject, name, timeline.KindComplete, pos, time.Now())
	o.dispatch(subject, nil, handlerName, ev)
}

func (o *Observer) position(subject timeline.Subject, name string) (pos float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSubjectPanic, r)
		}
	}()
	return timeline.Round(subject.CurrentTime(name)), nil
}

// dispatch calls, in order, cb, the document's scene function and its
// top-level handler named handlerName. Each one that exists is called.
func (o *Observer) dispatch(subject timeline.Subject, cb timeline.Callback, handlerName string, ev timeline.Event) {
	doc := timeline.Root(subject)
	el := elementOf(subject)

	if cb != nil {
		o.invoke("callback", cb, doc, el, ev)
	}
	if handlerName == "" {
		return
	}
	if ft, ok := doc.(timeline.FunctionTable); ok {
		if fn, ok := ft.Function(handlerName); ok && fn != nil {
			o.invoke("function", fn, doc, el, ev)
		}
	}
	if ht, ok := doc.(timeline.HandlerTable); ok {
		if fn, ok := ht.Handler(handlerName); ok && fn != nil {
			o.invoke("handler", fn, doc, el, ev)
		}
	}
}

func (o *Observer) invoke(tier string, fn timeline.Callback, doc timeline.Subject, el timeline.Element, ev timeline.Event) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("lifecycle callback failed",
				log.String("observer", o.id),
				log.String("tier", tier),
				log.String("kind", ev.Kind.String()),
				log.String("timeline", ev.TimelineName),
				log.Err(fmt.Errorf("%w: %v", ErrCallbackPanic, r)))
			o.recorder.CallbackFailed(ev.Kind)
		}
	}()
	fn(doc, el, ev)
}

func elementOf(subject timeline.Subject) timeline.Element {
	if es, ok := subject.(timeline.ElementSource); ok {
		return es.Element()
	}
	return nil
}
