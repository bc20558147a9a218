package logic

import (
	"math"
	"strings"
	"testing"
)

func TestValidateAcceptsWellFormedList(t *testing.T) {
	conds := []Condition{
		{Sensors: []string{"id1"}, Op: OpGreater, Threshold: 20},
		{Sensors: []string{"id2"}, Op: OpLessEqual, Threshold: 30, Logic: CombineAnd},
	}
	if problems := Validate(conds, []string{"id1", "id2"}); len(problems) != 0 {
		t.Errorf("expected no problems, got %v", problems)
	}
}

func TestValidateFlagsEachOffendingCondition(t *testing.T) {
	conds := []Condition{
		{Sensors: nil, Op: OpGreater, Threshold: 20},                                       // 0: empty sensors
		{Sensors: []string{"gone"}, Op: Operator("~"), Threshold: 20, Logic: CombineOr},    // 1: unknown id + operator
		{Sensors: []string{"id1"}, Op: OpEqual, Threshold: math.NaN(), Logic: CombineAnd},  // 2: NaN threshold
		{Sensors: []string{"id1"}, Op: OpLess, Threshold: math.Inf(1), Logic: CombineNone}, // 3: Inf + missing combinator
	}

	problems := Validate(conds, []string{"id1"})

	byIndex := map[int][]string{}
	for _, p := range problems {
		byIndex[p.Index] = append(byIndex[p.Index], p.Reason)
	}

	if len(byIndex[0]) != 1 || !strings.Contains(byIndex[0][0], "no sensors") {
		t.Errorf("condition 0: got %v", byIndex[0])
	}
	if len(byIndex[1]) != 2 {
		t.Errorf("condition 1: expected unknown-id and unknown-operator, got %v", byIndex[1])
	}
	if len(byIndex[2]) != 1 || !strings.Contains(byIndex[2][0], "finite") {
		t.Errorf("condition 2: got %v", byIndex[2])
	}
	if len(byIndex[3]) != 2 {
		t.Errorf("condition 3: expected non-finite and missing-combinator, got %v", byIndex[3])
	}
}

func TestValidateRejectsCombinatorOnFirstCondition(t *testing.T) {
	conds := []Condition{
		{Sensors: []string{"id1"}, Op: OpGreater, Threshold: 20, Logic: CombineAnd},
	}
	problems := Validate(conds, []string{"id1"})
	if len(problems) != 1 || problems[0].Index != 0 {
		t.Errorf("expected one problem on condition 0, got %v", problems)
	}
}

// A rule set made only of invalid conditions must behave as "can never
// trigger" at runtime, same as the empty list.
func TestInvalidConditionsNeverTrigger(t *testing.T) {
	conds := []Condition{
		{Sensors: nil, Op: OpGreater, Threshold: 0},
		{Sensors: []string{"removed"}, Op: OpGreater, Threshold: 0, Logic: CombineOr},
	}
	values := map[string]Value{"present": val(100)}
	if Evaluate(conds, values) {
		t.Error("rule set of invalid conditions must not trigger")
	}
}
