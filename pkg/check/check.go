// Package check inspects a deployment for the files and settings the server
// needs before it can stream real responses.
package check

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/papercomputeco/flowstream/pkg/config"
	"github.com/papercomputeco/flowstream/pkg/workflow/upstream"
)

// Result is the outcome of one check.
type Result struct {
	Name   string
	Detail string
	OK     bool

	// Required results fail the overall report.
	Required bool
}

// Report groups results by section in the order they were run.
type Report struct {
	Sections []Section
}

// Section is a titled group of results.
type Section struct {
	Title   string
	Results []Result
}

// OK reports whether every required check passed.
func (r *Report) OK() bool {
	for _, s := range r.Sections {
		for _, res := range s.Results {
			if res.Required && !res.OK {
				return false
			}
		}
	}
	return true
}

// Options locates the files to inspect.
type Options struct {
	// Dir is the deployment root holding .env files. Empty means the
	// working directory.
	Dir string

	// ConfigPath is the config.toml to validate.
	ConfigPath string

	// Config is the effective configuration, used for the engine checks.
	Config *config.Config

	// Getenv looks up environment variables. Nil uses os.Getenv.
	Getenv func(string) string
}

// Run executes every check.
func Run(opts Options) *Report {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.Config == nil {
		opts.Config = config.NewDefaultConfig()
	}

	return &Report{Sections: []Section{
		{Title: "Configuration files", Results: configFiles(opts)},
		{Title: "Environment", Results: environment(opts)},
		{Title: "Workflow engine", Results: engine(opts)},
	}}
}

func configFiles(opts Options) []Result {
	results := []Result{
		fileResult(filepath.Join(opts.Dir, ".env"), "Backend environment", false),
		fileResult(filepath.Join(opts.Dir, ".env.production"), "Backend production environment", false),
	}

	cfgResult := Result{Name: "Config file"}
	data, err := os.ReadFile(opts.ConfigPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfgResult.OK = true
		cfgResult.Detail = opts.ConfigPath + " (not present, using defaults)"
	case err != nil:
		cfgResult.Detail = err.Error()
		cfgResult.Required = true
	default:
		cfgResult.Required = true
		if _, err := config.ParseConfigTOML(data); err != nil {
			cfgResult.Detail = fmt.Sprintf("%s is invalid: %v", opts.ConfigPath, err)
		} else {
			cfgResult.OK = true
			cfgResult.Detail = opts.ConfigPath + " is valid TOML"
		}
	}

	return append(results, cfgResult)
}

func fileResult(path, name string, required bool) Result {
	_, err := os.Stat(path)
	res := Result{Name: name, OK: err == nil, Required: required, Detail: path}
	if err != nil {
		res.Detail = path + " (missing)"
	}
	return res
}

func environment(opts Options) []Result {
	var results []Result

	for _, name := range []string{".env", ".env.production"} {
		path := filepath.Join(opts.Dir, name)
		vars, err := godotenv.Read(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			results = append(results, Result{Name: name, Detail: err.Error()})
			continue
		}

		keys := make([]string, 0, len(vars))
		for k := range vars {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		results = append(results, Result{
			Name:   name,
			OK:     true,
			Detail: "defines " + strings.Join(keys, ", "),
		})
	}

	timeout := Result{Name: "STREAM_TIMEOUT_SECONDS", Required: true, OK: true}
	if raw := opts.Getenv("STREAM_TIMEOUT_SECONDS"); raw == "" {
		timeout.Detail = fmt.Sprintf("not set, default %ds", config.NewDefaultConfig().Stream.TimeoutSeconds)
	} else if n, err := strconv.Atoi(raw); err != nil || n <= 0 {
		timeout.OK = false
		timeout.Detail = fmt.Sprintf("%q is not a positive number of seconds", raw)
	} else {
		timeout.Detail = fmt.Sprintf("%ds", n)
	}

	return append(results, timeout)
}

func engine(opts Options) []Result {
	cfg := opts.Config
	results := []Result{{Name: "Engine", OK: true, Detail: cfg.Engine.Name}}

	if cfg.Engine.Name != upstream.EngineName {
		return results
	}

	model := cfg.Engine.Basic
	for _, v := range []struct {
		env, value string
	}{
		{"BASIC_MODEL__API_KEY", model.APIKey},
		{"BASIC_MODEL__MODEL", model.Model},
		{"BASIC_MODEL__BASE_URL", model.BaseURL},
	} {
		res := Result{Name: v.env, Required: true, OK: v.value != ""}
		if res.OK {
			res.Detail = "set"
		} else {
			res.Detail = "missing"
		}
		results = append(results, res)
	}

	return results
}
