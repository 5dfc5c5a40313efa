package pipeline

import (
	"fmt"

	"github.com/kbukum/pipedata/errors"
)

// StepCount is the number of values that entered and left one step.
type StepCount struct {
	Name    string `json:"name" mapstructure:"name"`
	Inputs  int    `json:"inputs" mapstructure:"inputs"`
	Outputs int    `json:"outputs" mapstructure:"outputs"`
}

// Report is the ordered list of step counts of a chain, oldest step first.
// The first entry is the root identity step.
type Report []StepCount

// Reporter is implemented by chains and streams.
type Reporter interface {
	Counts() Report
}

// Total returns the outputs of the last step, or 0 for an empty report.
func (r Report) Total() int {
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1].Outputs
}

// Validate checks the counting invariant of a fully drained run: the root
// step passes every value through and each step consumed exactly what its
// predecessor produced.
func (r Report) Validate() error {
	for i, sc := range r {
		if i == 0 {
			if sc.Inputs != sc.Outputs {
				return errors.New(errors.ErrCodeInternal,
					fmt.Sprintf("root step %q read %d values but passed %d", sc.Name, sc.Inputs, sc.Outputs))
			}
			continue
		}
		if prev := r[i-1]; sc.Inputs != prev.Outputs {
			return errors.New(errors.ErrCodeInternal,
				fmt.Sprintf("step %q read %d values but %q produced %d", sc.Name, sc.Inputs, prev.Name, prev.Outputs)).
				WithDetail("step", sc.Name)
		}
	}
	return nil
}

// Fields flattens the report into structured log fields keyed by position
// and step name, e.g. "02_parse_inputs".
func (r Report) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, len(r)*2)
	for i, sc := range r {
		prefix := fmt.Sprintf("%02d_%s", i, sc.Name)
		fields[prefix+"_inputs"] = sc.Inputs
		fields[prefix+"_outputs"] = sc.Outputs
	}
	return fields
}
