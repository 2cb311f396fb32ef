// Package config resolves supportflow settings from layered sources.
//
// Precedence, highest first:
//  1. Command-line flags
//  2. Environment variables (SUPPORTFLOW_<KEY>)
//  3. Local config (.supportflow.yaml in the git root)
//  4. Global config (~/.config/supportflow/config.yaml)
//  5. Built-in defaults
//
// # Basic Usage
//
//	resolved := config.NewResolver().ResolveWithFlags(map[string]string{
//	    config.KeyLogLevel: flagLevel,
//	})
//	settings, err := config.Load(resolved)
//	if err != nil {
//	    return err
//	}
//	orch := workflow.New(deps, settings.WorkflowConfig())
//
// Every value remembers its source:
//
//	value, src := resolved.GetWithSource(config.KeyNATSURL)
//
// Only keys listed in Defaults are recognised. Unknown keys in config files
// produce a warning and are skipped.
//
// # Editing Config Files
//
// Set and Unset edit a YAML file in place:
//
//	path, _ := config.GlobalPath()
//	err := config.Set(path, config.KeyNATSURL, "nats://localhost:4222")
package config
