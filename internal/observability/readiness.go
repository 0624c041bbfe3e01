package observability

import (
	"context"
	"fmt"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// ReadinessGroup is ready only when every named checker is ready.
type ReadinessGroup struct {
	names    []string
	checkers []sharedobs.ReadinessChecker
}

// Add registers a checker under name. Checkers run in registration order.
func (g *ReadinessGroup) Add(name string, checker sharedobs.ReadinessChecker) {
	g.names = append(g.names, name)
	g.checkers = append(g.checkers, checker)
}

// CheckReadiness returns the first failing checker's error, prefixed with its name.
func (g *ReadinessGroup) CheckReadiness(ctx context.Context) error {
	for i, c := range g.checkers {
		if err := c.CheckReadiness(ctx); err != nil {
			return fmt.Errorf("%s: %w", g.names[i], err)
		}
	}
	return nil
}
