package ui

import "strings"

type command struct {
	name  string
	usage string
	run   func(u *UI)
}

var commands []command

func init() {
	commands = []command{
		{"/help", "Display this help message", (*UI).listHelp},
		{"/models", "Select between local LLMs", (*UI).showModels},
		{"/clear", "Forget the conversation so far", (*UI).clearConversation},
		{"/debug", "Toggle the debug console", (*UI).toggleDebugConsole},
		{"/bye", "Exit the application", (*UI).quit},
	}
}

var aliases = map[string]string{
	"/quit": "/bye",
	"/exit": "/bye",
}

func lookupCommand(input string) (command, bool) {
	name := strings.ToLower(strings.TrimSpace(input))
	if alias, ok := aliases[name]; ok {
		name = alias
	}
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}
