package warehouse

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
)

// Builder fills one target table with a single set-based statement.
type Builder struct {
	Table  string
	Render func(d Dialect) Statement
}

// Run executes the builder and returns the resulting row count of its table.
func (b Builder) Run(ctx context.Context, store Store) (int64, error) {
	if err := store.Exec(ctx, b.Render(store.Dialect())); err != nil {
		return 0, pkgerrors.Classify(err, pkgerrors.CodeInternal, fmt.Sprintf("build %s", b.Table))
	}
	n, err := store.Count(ctx, b.Table)
	if err != nil {
		return 0, pkgerrors.Classify(err, pkgerrors.CodeInternal, fmt.Sprintf("count %s", b.Table))
	}
	return n, nil
}
