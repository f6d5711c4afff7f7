package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryLookupCommand(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "catalog", Aliases: []string{"shop"}})
	reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "dump", AdminOnly: true})

	cases := map[string]string{
		"/start":              "/start",
		"/START":              "/start",
		"/start@shopbot":      "/start",
		"/start some payload": "/start",
		"/shop":               "/start",
		"/debug":              "/debug",
	}
	for in, want := range cases {
		key, _, ok := reg.LookupCommand(in)
		require.True(t, ok, in)
		require.Equal(t, want, key, in)
	}

	for _, in := range []string{"start", "", "/unknown", "hello /start"} {
		_, _, ok := reg.LookupCommand(in)
		require.False(t, ok, in)
	}
}

func TestRegistryListCommandsHidesOperatorOnly(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "catalog"})
	reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "dump", AdminOnly: true})
	reg.RegisterCommand("/hidden", commands.Command{Handler: noop, Description: "x", Hidden: true})
	reg.RegisterCommand("nope", commands.Command{Handler: noop, Description: "x"})
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "dup"})

	require.Equal(t, []tele.Command{{Text: "/start", Description: "catalog"}}, reg.ListCommands(true))
	require.Len(t, reg.ListCommands(false), 3)
	require.Equal(t, "catalog", reg.Commands()["/start"].Description)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("broadcast", noop))
	require.Error(t, reg.RegisterCallback("broadcast", noop))
	require.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.GetCallback("broadcast")
	require.True(t, ok)
	require.Equal(t, []string{"broadcast"}, reg.ListCallbacks())
}
