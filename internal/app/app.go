// Package app wires the resolution engine, the rule loader, profiles and
// the renderer into runnable modes. It owns logger construction and result
// output; the engine below it stays free of presentation concerns.
package app

import (
	"io"
	"log/slog"

	"github.com/vk/modplango/internal/engine"
	"github.com/vk/modplango/internal/render"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	engine *engine.Engine
	format render.Formatter
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger.
func NewApp(outW io.Writer, config *Config) *App {
	logger := newLogger(config.LogLevel, config.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:   outW,
		logger: logger,
		config: config,
		engine: engine.New(),
		format: render.Text(),
	}
}

// Engine returns the application's engine. This is primarily for testing.
func (a *App) Engine() *engine.Engine {
	return a.engine
}
