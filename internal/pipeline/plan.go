package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/sparkify-dwh/internal/dimensions"
	"github.com/angelmondragon/sparkify-dwh/internal/facts"
	"github.com/angelmondragon/sparkify-dwh/internal/ingest"
	"github.com/angelmondragon/sparkify-dwh/internal/starschema"
	wh "github.com/angelmondragon/sparkify-dwh/internal/warehouse"
	pkgerrors "github.com/angelmondragon/sparkify-dwh/pkg/errors"
)

// Plan names a sequence of phases a run executes.
type Plan string

const (
	// PlanSchema drops and recreates every relation.
	PlanSchema Plan = "schema"
	// PlanIngest fills staging and checks it.
	PlanIngest Plan = "ingest"
	// PlanTransform rebuilds the star schema from existing staging data.
	PlanTransform Plan = "transform"
	// PlanFull resets, ingests and transforms.
	PlanFull Plan = "full"
)

// ParsePlan validates a plan name.
func ParsePlan(name string) (Plan, error) {
	switch p := Plan(strings.ToLower(strings.TrimSpace(name))); p {
	case PlanSchema, PlanIngest, PlanTransform, PlanFull:
		return p, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown plan %q", name))
}

const (
	stepResetSchema  = "reset-schema"
	stepClearTargets = "clear-targets"
	stepCheckStaging = "check-staging"
	stepVerify       = "verify"
)

func ingestStep(table string) string { return "ingest:" + table }

// steps assembles the steps and intra-phase edges for a plan.
func (p *Pipeline) steps(plan Plan) ([]Step, []Edge, error) {
	var steps []Step
	var edges []Edge

	switch plan {
	case PlanSchema:
		return []Step{p.resetStep()}, nil, nil
	case PlanIngest:
		return p.ingestSteps()
	case PlanTransform:
		steps = append(steps, Step{
			Name:  stepClearTargets,
			Phase: PhaseSchema,
			Run:   func(ctx context.Context) (int64, error) { return 0, p.schema.ClearTargets(ctx) },
		}, p.checkStep())
	case PlanFull:
		s, e, err := p.ingestSteps()
		if err != nil {
			return nil, nil, err
		}
		steps = append(append(steps, p.resetStep()), s...)
		edges = append(edges, e...)
	default:
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown plan %q", plan))
	}

	for _, b := range dimensions.Builders() {
		steps = append(steps, p.buildStep(b, PhaseDimensions))
	}
	// Engines that enforce the songs -> artists key need artists committed first.
	if p.store.Dialect().EnforcesForeignKeys() {
		edges = append(edges, Edge{From: starschema.ArtistsTable, To: starschema.SongsTable})
	}
	steps = append(steps, p.buildStep(facts.Builder(), PhaseFacts), Step{
		Name:  stepVerify,
		Phase: PhaseVerify,
		Run:   func(ctx context.Context) (int64, error) { return 0, p.verifier.Run(ctx) },
	})
	return steps, edges, nil
}

func (p *Pipeline) resetStep() Step {
	return Step{
		Name:  stepResetSchema,
		Phase: PhaseSchema,
		Run:   func(ctx context.Context) (int64, error) { return 0, p.schema.ResetSchema(ctx) },
	}
}

func (p *Pipeline) checkStep() Step {
	return Step{
		Name:  stepCheckStaging,
		Phase: PhaseIngest,
		Run: func(ctx context.Context) (int64, error) {
			counts, err := ingest.CheckStaging(ctx, p.store, p.logg)
			if err != nil {
				return 0, err
			}
			for table, n := range counts {
				p.metrics.SetRows(table, n)
			}
			return 0, nil
		},
	}
}

func (p *Pipeline) ingestSteps() ([]Step, []Edge, error) {
	if p.ingester == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "ingest plan without an ingester")
	}
	steps := []Step{p.checkStep()}
	var edges []Edge
	for _, table := range ingest.Tables() {
		steps = append(steps, Step{
			Name:  ingestStep(table),
			Phase: PhaseIngest,
			Table: table,
			Run:   func(ctx context.Context) (int64, error) { return p.ingester.Ingest(ctx, table) },
		})
		edges = append(edges, Edge{From: ingestStep(table), To: stepCheckStaging})
	}
	return steps, edges, nil
}

func (p *Pipeline) buildStep(b wh.Builder, phase Phase) Step {
	return Step{
		Name:  b.Table,
		Phase: phase,
		Table: b.Table,
		Run:   func(ctx context.Context) (int64, error) { return b.Run(ctx, p.store) },
	}
}
