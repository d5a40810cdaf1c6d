package usecases

import (
	"fmt"
	"sort"
	"time"

	"brewos-server/entities"
	"brewos-server/repositories"
)

// Decision is the outcome of one interlock evaluation pass.
type Decision struct {
	Blocked     bool
	Reason      string
	InterlockID string
	Severity    string
}

// Evaluator decides whether a proposed command violates any active
// interlock scoped to the target endpoint or its tile. Evaluation is pure
// aside from the audit trace it records for every pass.
type Evaluator struct {
	interlocks repositories.InterlockRepository
	telemetry  repositories.TelemetryRepository
}

func NewEvaluator(interlocks repositories.InterlockRepository, telemetry repositories.TelemetryRepository) *Evaluator {
	return &Evaluator{interlocks: interlocks, telemetry: telemetry}
}

// Evaluate checks every in-scope active rule in deterministic order
// (severity desc, priority desc, id asc) and short-circuits on the first
// violated trip/permissive rule. Advisory rules are traced but never block.
// A non-nil error means safety data could not be loaded; the caller must
// fail closed.
func (ev *Evaluator) Evaluate(commandID string, endpoint *entities.Endpoint, proposed entities.Value, tileID string) (Decision, error) {
	rules, err := ev.interlocks.GetActive()
	if err != nil {
		return Decision{}, fmt.Errorf("loading interlocks: %w", err)
	}

	scoped := rules[:0]
	for _, rule := range rules {
		if rule.AppliesTo(endpoint.ID, tileID) {
			scoped = append(scoped, rule)
		}
	}

	sort.SliceStable(scoped, func(i, j int) bool {
		a, b := scoped[i], scoped[j]
		if ra, rb := entities.SeverityRank(a.Severity), entities.SeverityRank(b.Severity); ra != rb {
			return ra > rb
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.ID < b.ID
	})

	now := time.Now().UTC()
	trace := make([]entities.InterlockEvaluation, 0, len(scoped))
	decision := Decision{}

	for i, rule := range scoped {
		violated, detail, err := ev.checkRule(&rule, endpoint, proposed)
		if err != nil {
			return Decision{}, fmt.Errorf("evaluating interlock %s: %w", rule.ID, err)
		}

		result := entities.EvalPass
		if violated {
			result = entities.EvalFail
		}
		trace = append(trace, entities.InterlockEvaluation{
			InterlockID: rule.ID,
			CommandID:   commandID,
			EvaluatedAt: now,
			Sequence:    i,
			Result:      result,
			Detail:      detail,
		})

		if violated && rule.Mode != entities.ModeAdvisory {
			decision = Decision{
				Blocked:     true,
				Reason:      fmt.Sprintf("interlock '%s': %s", rule.Name, detail),
				InterlockID: rule.ID,
				Severity:    rule.Severity,
			}
			break
		}
	}

	if err := ev.interlocks.RecordEvaluations(trace); err != nil {
		return Decision{}, fmt.Errorf("recording evaluation trace: %w", err)
	}
	return decision, nil
}

func (ev *Evaluator) checkRule(rule *entities.Interlock, endpoint *entities.Endpoint, proposed entities.Value) (bool, string, error) {
	cond, err := rule.ParseCondition()
	if err != nil {
		return false, "", err
	}

	switch cond.Type {
	case entities.CondProposedRange:
		if proposed.Kind != entities.ValueKindNumber {
			return false, "non-numeric value, range not applicable", nil
		}
		if cond.Min != nil && proposed.Num < *cond.Min {
			return true, fmt.Sprintf("requested value %v below minimum %v", proposed.Num, *cond.Min), nil
		}
		if cond.Max != nil && proposed.Num > *cond.Max {
			return true, fmt.Sprintf("requested value %v above maximum %v", proposed.Num, *cond.Max), nil
		}
		return false, "requested value within range", nil

	case entities.CondRange:
		current, ok, err := ev.loadCurrent(cond.EndpointID)
		if err != nil {
			return false, "", err
		}
		if !ok || current.ValueNum == nil {
			return false, "no current reading for referenced endpoint", nil
		}
		n := *current.ValueNum
		if (cond.Min != nil && n < *cond.Min) || (cond.Max != nil && n > *cond.Max) {
			return true, fmt.Sprintf("endpoint %s value %v outside safe range", cond.EndpointID, n), nil
		}
		return false, "referenced endpoint within range", nil

	case entities.CondRequireLevel:
		if cond.RequiredState == nil {
			return false, "", fmt.Errorf("require_level condition missing required_state")
		}
		current, ok, err := ev.loadCurrent(cond.EndpointID)
		if err != nil {
			return false, "", err
		}
		if !ok || current.ValueBool == nil {
			return false, "no current reading for referenced endpoint", nil
		}
		if *current.ValueBool != *cond.RequiredState {
			return true, fmt.Sprintf("endpoint %s level check failed (required %v, actual %v)",
				cond.EndpointID, *cond.RequiredState, *current.ValueBool), nil
		}
		return false, "level check passed", nil

	case entities.CondRequireClosed:
		current, ok, err := ev.loadCurrent(cond.EndpointID)
		if err != nil {
			return false, "", err
		}
		if !ok || current.ValueBool == nil {
			return false, "no current reading for referenced endpoint", nil
		}
		// false = closed
		if *current.ValueBool {
			return true, fmt.Sprintf("endpoint %s must be closed", cond.EndpointID), nil
		}
		return false, "referenced endpoint closed", nil

	case entities.CondRequireState:
		if cond.RequiredValue == nil {
			return false, "", fmt.Errorf("require_state condition missing required_value")
		}
		current, ok, err := ev.loadCurrent(cond.EndpointID)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, "no current reading for referenced endpoint", nil
		}
		actual, has := current.Value()
		if !has {
			return false, "no current reading for referenced endpoint", nil
		}
		if !actual.Equal(*cond.RequiredValue) {
			return true, fmt.Sprintf("endpoint %s state mismatch (required %s, actual %s)",
				cond.EndpointID, cond.RequiredValue.Encode(), actual.Encode()), nil
		}
		return false, "state check passed", nil
	}

	// An unknown condition type cannot be proven safe.
	return false, "", fmt.Errorf("unknown condition type %q", cond.Type)
}

// loadCurrent fetches the referenced endpoint's current value. A missing
// row is not a load failure: rules referencing never-observed endpoints
// pass, matching the permissive treatment of absent readings.
func (ev *Evaluator) loadCurrent(endpointID string) (*entities.CurrentValue, bool, error) {
	if endpointID == "" {
		return nil, false, fmt.Errorf("condition missing endpoint_id")
	}
	current, err := ev.telemetry.GetCurrent(endpointID)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return current, true, nil
}
