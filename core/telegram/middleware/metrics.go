package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const (
	counterMessages = "messages"
	counterPhotos   = "photos"
	counterKB       = "kb"
)

// metricsContext wraps tele.Context to count sent messages, photos and keyboard usage.
type metricsContext struct{ tele.Context }

func (m metricsContext) inc(what interface{}, opts []interface{}) {
	m.Set(counterMessages, intValue(m.Get(counterMessages))+1)
	if _, ok := what.(*tele.Photo); ok {
		m.Set(counterPhotos, intValue(m.Get(counterPhotos))+1)
	}
	if hasKeyboard(opts) {
		m.Set(counterKB, true)
	}
}

func intValue(v interface{}) int {
	if n, ok := v.(int); ok {
		return n
	}
	return 0
}

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating message counters.
func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		m.inc(what, opts)
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		m.inc(what, opts)
	}
	return err
}

// Edit proxies tele.Context.Edit while updating message counters.
func (m metricsContext) Edit(what interface{}, opts ...interface{}) error {
	err := m.Context.Edit(what, opts...)
	if err == nil {
		m.inc(what, opts)
	}
	return err
}

// EditOrSend proxies tele.Context.EditOrSend while updating message counters.
func (m metricsContext) EditOrSend(what interface{}, opts ...interface{}) error {
	err := m.Context.EditOrSend(what, opts...)
	if err == nil {
		m.inc(what, opts)
	}
	return err
}

// MessageMetricsMiddleware instruments context to track messages count and keyboard usage.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(counterMessages, 0)
		c.Set(counterPhotos, 0)
		c.Set(counterKB, false)
		return next(metricsContext{Context: c})
	}
}

// AddSent lets code that bypasses the context (direct bot sends) feed the counters.
func AddSent(c tele.Context, messages, photos int) {
	if c == nil {
		return
	}
	c.Set(counterMessages, intValue(c.Get(counterMessages))+messages)
	c.Set(counterPhotos, intValue(c.Get(counterPhotos))+photos)
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	kb, _ := c.Get(counterKB).(bool)
	return intValue(c.Get(counterMessages)), kb
}

// GetPhotoCount reads the number of photos sent while handling the update.
func GetPhotoCount(c tele.Context) int {
	return intValue(c.Get(counterPhotos))
}
