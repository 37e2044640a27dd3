package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"vector-core/internal/widget"
)

// newLogger writes JSON logs to VECTOR_CORE_LOG when set. The terminal is
// owned by the widget, so nothing is logged to stdout or stderr.
func newLogger() (*zap.Logger, error) {
	path := os.Getenv("VECTOR_CORE_LOG")
	if path == "" {
		return zap.NewNop(), nil
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	return cfg.Build()
}

func main() {
	logger, err := newLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	p := tea.NewProgram(widget.New(logger))
	if _, err := p.Run(); err != nil {
		logger.Error("calculator exited", zap.Error(err))
		fmt.Fprintf(os.Stderr, "calc: %v\n", err)
		os.Exit(1)
	}
}
