// Package main is a reference Phlow module: it logs its input and
// replies with null. Built with `go build -buildmode=plugin` it lands
// at phlow_modules/log/module.so.
package main

import (
	"log/slog"
	"os"

	"github.com/lowcarboncode/phlow/moduleshost"
	"github.com/lowcarboncode/phlow/value"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

type level int

const (
	levelInfo level = iota
	levelDebug
	levelWarn
	levelError
)

func levelFromInput(v value.Value) (level, string) {
	message := ""
	if m, ok := v.Get("message"); ok {
		if s, ok := m.Str(); ok {
			message = s
		} else {
			message = m.String()
		}
	}

	lvl := levelInfo
	if l, ok := v.Get("level"); ok {
		if s, ok := l.Str(); ok {
			switch s {
			case "debug":
				lvl = levelDebug
			case "warn":
				lvl = levelWarn
			case "error":
				lvl = levelError
			}
		}
	}
	return lvl, message
}

// Plugin is the module's exported entry point.
func Plugin(setup moduleshost.ModuleSetup) {
	packets := make(chan moduleshost.ModulePackage)
	setup.SetupSender <- packets

	for pkg := range packets {
		lvl, message := levelFromInput(pkg.Input)
		switch lvl {
		case levelDebug:
			logger.Debug(message)
		case levelWarn:
			logger.Warn(message)
		case levelError:
			logger.Error(message)
		default:
			logger.Info(message)
		}
		pkg.Reply <- moduleshost.ModuleReply{Value: value.Null}
	}
}

// main is required by `package main` but unused: modules are loaded as
// Go plugins via the Plugin symbol, never executed directly.
func main() {}
