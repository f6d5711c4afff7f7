// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Sent records one outgoing call made through the context.
type Sent struct {
	What any
	Opts []any
}

// Context implements the parts of tele.Context that handlers in this module use.
// Calling anything else panics on the nil embedded interface.
type Context struct {
	tele.Context

	upd tele.Update

	mu        sync.Mutex
	store     map[string]any
	sent      []Sent
	responses []*tele.CallbackResponse
	// SendErr is returned by Send and Reply when set.
	SendErr error
}

// NewMessage builds a private text message from userID.
func NewMessage(userID int64, text string) *Context {
	return newContext(tele.Update{ID: 1, Message: &tele.Message{
		ID:     1,
		Sender: &tele.User{ID: userID, FirstName: "User", Username: "user"},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Text:   text,
	}})
}

// NewPhoto builds a private photo message with the given file id and caption.
func NewPhoto(userID int64, fileID, caption string) *Context {
	return newContext(tele.Update{ID: 1, Message: &tele.Message{
		ID:      1,
		Sender:  &tele.User{ID: userID, FirstName: "User", Username: "user"},
		Chat:    &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Photo:   &tele.Photo{File: tele.File{FileID: fileID}},
		Caption: caption,
	}})
}

// NewCallback builds an inline button press with the given unique key and payload.
func NewCallback(userID int64, unique, data string) *Context {
	return newContext(tele.Update{ID: 1, Callback: &tele.Callback{
		ID:     "cb",
		Sender: &tele.User{ID: userID, FirstName: "User", Username: "user"},
		Unique: unique,
		Data:   data,
		Message: &tele.Message{
			ID:   2,
			Chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		},
	}})
}

func newContext(upd tele.Update) *Context {
	return &Context{upd: upd, store: make(map[string]any)}
}

func (c *Context) Update() tele.Update { return c.upd }

func (c *Context) Message() *tele.Message {
	switch {
	case c.upd.Message != nil:
		return c.upd.Message
	case c.upd.Callback != nil:
		return c.upd.Callback.Message
	}
	return nil
}

func (c *Context) Callback() *tele.Callback { return c.upd.Callback }

func (c *Context) Sender() *tele.User {
	switch {
	case c.upd.Message != nil:
		return c.upd.Message.Sender
	case c.upd.Callback != nil:
		return c.upd.Callback.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	if m := c.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (c *Context) Text() string {
	m := c.Message()
	if m == nil {
		return ""
	}
	if m.Caption != "" {
		return m.Caption
	}
	return m.Text
}

func (c *Context) Data() string {
	if c.upd.Callback != nil {
		return c.upd.Callback.Data
	}
	return ""
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = val
}

func (c *Context) Send(what any, opts ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return c.SendErr
	}
	c.sent = append(c.sent, Sent{What: what, Opts: opts})
	return nil
}

func (c *Context) Reply(what any, opts ...any) error { return c.Send(what, opts...) }

func (c *Context) Edit(what any, opts ...any) error { return c.Send(what, opts...) }

func (c *Context) EditOrSend(what any, opts ...any) error { return c.Send(what, opts...) }

func (c *Context) EditOrReply(what any, opts ...any) error { return c.Send(what, opts...) }

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		resp = []*tele.CallbackResponse{{}}
	}
	c.responses = append(c.responses, resp...)
	return nil
}

// Sent returns a copy of everything sent so far.
func (c *Context) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Texts returns the string payloads sent so far.
func (c *Context) Texts() []string {
	var out []string
	for _, s := range c.Sent() {
		if text, ok := s.What.(string); ok {
			out = append(out, text)
		}
	}
	return out
}

// Responses returns the callback responses sent so far.
func (c *Context) Responses() []*tele.CallbackResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*tele.CallbackResponse(nil), c.responses...)
}
