// pkg/registry/registry.go
package registry

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed activities.json
var builtin []byte

var (
	defaultOnce sync.Once
	defaultReg  *ActivityRegistry
	defaultErr  error
)

func LoadRegistry(path string) (*ActivityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a registry document.
func Parse(data []byte) (*ActivityRegistry, error) {
	var reg ActivityRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode activity registry: %w", err)
	}
	return &reg, nil
}

// Default returns the registry compiled into the binary.
func Default() (*ActivityRegistry, error) {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(builtin)
	})
	return defaultReg, defaultErr
}

// Find returns the activity registered for taskType.
func (r *ActivityRegistry) Find(taskType string) (*Activity, bool) {
	for i := range r.Activities {
		if r.Activities[i].TaskType == taskType {
			return &r.Activities[i], true
		}
	}
	return nil, false
}

// InputSchema returns the JSON schema job variables of taskType must satisfy.
func (r *ActivityRegistry) InputSchema(taskType string) (map[string]interface{}, error) {
	a, ok := r.Find(taskType)
	if !ok {
		return nil, fmt.Errorf("no activity registered for task type %q", taskType)
	}
	return a.InputSchema, nil
}

// MustInputSchema is InputSchema on the built-in registry. It panics when the
// task type is missing, which only happens when activities.json is out of date.
func MustInputSchema(taskType string) map[string]interface{} {
	reg, err := Default()
	if err != nil {
		panic(err)
	}
	schema, err := reg.InputSchema(taskType)
	if err != nil {
		panic(err)
	}
	return schema
}

// Validate reports every structural problem in the registry at once: missing
// or duplicate identifiers, schemas that do not compile and bad timeouts.
func (r *ActivityRegistry) Validate() error {
	var result *multierror.Error
	if len(r.Activities) == 0 {
		return fmt.Errorf("registry contains no activities")
	}

	ids := make(map[string]bool)
	taskTypes := make(map[string]bool)
	for i, a := range r.Activities {
		if a.ID == "" {
			result = multierror.Append(result, fmt.Errorf("activity %d: missing id", i))
		} else if ids[a.ID] {
			result = multierror.Append(result, fmt.Errorf("duplicate activity id: %s", a.ID))
		}
		ids[a.ID] = true

		if a.TaskType == "" {
			result = multierror.Append(result, fmt.Errorf("activity %s: missing taskType", a.ID))
		} else if taskTypes[a.TaskType] {
			result = multierror.Append(result, fmt.Errorf("duplicate task type: %s", a.TaskType))
		}
		taskTypes[a.TaskType] = true

		for name, schema := range map[string]map[string]interface{}{"input": a.InputSchema, "output": a.OutputSchema} {
			if len(schema) == 0 {
				continue
			}
			if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema)); err != nil {
				result = multierror.Append(result, fmt.Errorf("activity %s: %s schema: %w", a.ID, name, err))
			}
		}

		if _, err := a.TimeoutDuration(); err != nil {
			result = multierror.Append(result, err)
		}
		if a.Retries < 0 {
			result = multierror.Append(result, fmt.Errorf("activity %s: negative retries", a.ID))
		}
	}
	return result.ErrorOrNil()
}
