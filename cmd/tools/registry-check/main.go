// cmd/tools/registry-check/main.go
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"notification-queue/internal/common/validation"
	"notification-queue/pkg/registry"
)

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	validatePath := validateCmd.String("path", "", "Registry file (defaults to the built-in registry)")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkPath := checkCmd.String("path", "", "Registry file (defaults to the built-in registry)")
	taskType := checkCmd.String("task", "", "Task type, e.g. queue.cancel")
	varsPath := checkCmd.String("vars", "", "JSON file with job variables")

	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	listPath := listCmd.String("path", "", "Registry file (defaults to the built-in registry)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg := mustLoad(*validatePath)
		if err := reg.Validate(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	case "check":
		checkCmd.Parse(os.Args[2:])
		if *taskType == "" || *varsPath == "" {
			fmt.Println("Error: task and vars are required for check.")
			checkCmd.Usage()
			os.Exit(1)
		}
		if err := checkVariables(mustLoad(*checkPath), *taskType, *varsPath); err != nil {
			fmt.Printf("Variables rejected: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Variables accepted by %s.\n", *taskType)

	case "list":
		listCmd.Parse(os.Args[2:])
		for _, a := range mustLoad(*listPath).Activities {
			fmt.Printf("%-22s %-6s %-3d %s\n", a.TaskType, a.Timeout, a.Retries, a.DisplayName)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

func mustLoad(path string) *registry.ActivityRegistry {
	var (
		reg *registry.ActivityRegistry
		err error
	)
	if path == "" {
		reg, err = registry.Default()
	} else {
		reg, err = registry.LoadRegistry(path)
	}
	if err != nil {
		fmt.Printf("Error loading registry: %v\n", err)
		os.Exit(1)
	}
	return reg
}

func checkVariables(reg *registry.ActivityRegistry, taskType, varsPath string) error {
	schema, err := reg.InputSchema(taskType)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(varsPath)
	if err != nil {
		return fmt.Errorf("read variables: %w", err)
	}
	var vars map[string]interface{}
	if err := json.Unmarshal(raw, &vars); err != nil {
		return fmt.Errorf("decode variables: %w", err)
	}
	if res := validation.ValidateInput(vars, schema); !res.Valid {
		return res
	}
	return nil
}

func help() {
	fmt.Println(`
Usage: registry-check <command> [flags]

Commands:
  validate  Check ids, task types, schemas and timeouts of the registry
  check     Validate a job variables file against a task type's input schema
  list      Print the registered task types
  help      Show this help message

Examples:
  registry-check validate
  registry-check check -task queue.cancel -vars cancel.json
  registry-check list -path pkg/registry/activities.json`)
}
