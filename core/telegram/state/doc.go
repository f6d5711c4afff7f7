// Package state provides per-user conversation sessions for Telegram bots.
// It is domain-agnostic: callers pick the payload type carried next to the FSM state.
package state
