package llm

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PlanFenceTag is the language tag of the fenced block carrying a plan.
const PlanFenceTag = "training_plan"

var planFence = regexp.MustCompile("(?s)```" + PlanFenceTag + `\s*(.*?)\s*` + "```")

// TrainingPlan is the structured plan a model embeds in its reply.
type TrainingPlan struct {
	GymName     *string        `json:"gym_name"`
	SessionDate string         `json:"session_date"`
	Exercises   []PlanExercise `json:"exercises"`
	Notes       *string        `json:"notes"`
}

// PlanExercise is one proposed exercise. ExerciseID is set when the proposal
// already refers to a catalog entry.
type PlanExercise struct {
	ExerciseID      *Int    `json:"exercise_id,omitempty"`
	ExerciseName    string  `json:"exercise_name"`
	Sets            *Int    `json:"sets"`
	Reps            *Int    `json:"reps"`
	WeightKg        *Float  `json:"weight_kg"`
	DurationSeconds *Int    `json:"duration_seconds"`
	Notes           *string `json:"notes"`
}

// ExtractTrainingPlan returns the plan embedded in reply, if any. A reply
// without the fenced block, with unparsable JSON inside it, or without a
// session_date and an exercises array has no plan; none of these is an error.
func ExtractTrainingPlan(reply string) (*TrainingPlan, bool) {
	m := planFence.FindStringSubmatch(reply)
	if m == nil {
		return nil, false
	}

	var plan TrainingPlan
	if err := json.Unmarshal([]byte(m[1]), &plan); err != nil {
		return nil, false
	}
	if plan.SessionDate == "" || plan.Exercises == nil {
		return nil, false
	}
	return &plan, true
}

// Int is a lenient integer: it accepts any JSON number (rounded) or a
// numeric string. Anything else, such as "3-4" or true, leaves it invalid,
// and an invalid Int is stored and encoded as null.
type Int struct {
	Value int64
	Valid bool
}

func (n *Int) UnmarshalJSON(data []byte) error {
	if f, ok := lenientNumber(data); ok {
		*n = Int{Value: int64(math.Round(f)), Valid: true}
	} else {
		*n = Int{}
	}
	return nil
}

func (n Int) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return strconv.AppendInt(nil, n.Value, 10), nil
}

// Ptr returns the value as *int64, nil when unset or invalid.
func (n *Int) Ptr() *int64 {
	if n == nil || !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// Float is the floating-point counterpart of Int.
type Float struct {
	Value float64
	Valid bool
}

func (n *Float) UnmarshalJSON(data []byte) error {
	if f, ok := lenientNumber(data); ok {
		*n = Float{Value: f, Valid: true}
	} else {
		*n = Float{}
	}
	return nil
}

func (n Float) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns the value as *float64, nil when unset or invalid.
func (n *Float) Ptr() *float64 {
	if n == nil || !n.Valid {
		return nil
	}
	v := n.Value
	return &v
}

// lenientNumber reads a JSON number or a numeric string. Any other value
// reports false.
func lenientNumber(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return 0, false
	}
	return f, true
}
