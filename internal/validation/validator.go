// Package validation checks a raw configuration in two tiers. The fatal tier
// stops at the first missing structural section; the aggregate tier runs
// every check and reports all findings together.
package validation

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/xeipuuv/gojsonschema"

	"github.com/serjche/Ceedling/internal/fsglob"
	"github.com/serjche/Ceedling/internal/pathutil"
	"github.com/serjche/Ceedling/pkg/config"
	"github.com/serjche/Ceedling/pkg/telemetry"
)

//go:embed schema/project.schema.json
var projectSchema []byte

// RequiredSections lists the structural sections in reporting order.
var RequiredSections = []string{config.SectionProject, config.SectionPaths, config.SectionTools}

var compiledSchema = func() *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(projectSchema))
	if err != nil {
		panic(fmt.Sprintf("compile project schema: %v", err))
	}
	return schema
}()

// Check is an aggregate-tier check.
type Check struct {
	Name string
	Run  func(config.Node) []Failure
}

// CheckResult is the outcome of one aggregate check.
type CheckResult struct {
	Name     string
	Passed   bool
	Failures []Failure
}

// Report is the outcome of a full validation pass. Checks is empty when the
// fatal tier failed.
type Report struct {
	Fatal  *Failure
	Checks []CheckResult
}

// Passed reports whether validation found nothing.
func (r Report) Passed() bool {
	return r.Fatal == nil && len(r.Failures()) == 0
}

// Failures returns every aggregate failure in check order.
func (r Report) Failures() []Failure {
	var out []Failure
	for _, c := range r.Checks {
		out = append(out, c.Failures...)
	}
	return out
}

// Err converts the report into a FatalError, an AggregateError or nil.
func (r Report) Err() error {
	if r.Fatal != nil {
		return &FatalError{Failure: *r.Fatal}
	}
	if failures := r.Failures(); len(failures) > 0 {
		return &AggregateError{Failures: failures}
	}
	return nil
}

// DefaultChecks are the aggregate-tier checks in execution order.
var DefaultChecks = []Check{
	{Name: "required-values", Run: CheckRequiredValues},
	{Name: "paths", Run: CheckPaths},
	{Name: "tools", Run: CheckTools},
}

// Validator runs both tiers.
type Validator struct {
	checks []Check
	logger telemetry.StructuredLogger
}

// NewValidator returns a Validator running DefaultChecks. A nil logger
// disables logging.
func NewValidator(logger telemetry.StructuredLogger) *Validator {
	if logger == nil {
		logger = telemetry.Discard
	}
	return &Validator{checks: DefaultChecks, logger: logger}
}

// Validate runs the fatal tier and, if it passes, every aggregate check.
// The returned error is Report.Err().
func (v *Validator) Validate(raw config.Node) (Report, error) {
	if fatal := ValidateRequiredSections(raw); fatal != nil {
		_ = v.logger.Emit(telemetry.Entry{
			Category: telemetry.CategoryValidation,
			Message:  "fatal validation failure",
			Error:    fatal,
			Metadata: map[string]string{"location": fatal.Location},
		})
		report := Report{Fatal: fatal}
		return report, report.Err()
	}

	report := Report{Checks: make([]CheckResult, 0, len(v.checks))}
	for _, check := range v.checks {
		failures := check.Run(raw)
		report.Checks = append(report.Checks, CheckResult{Name: check.Name, Passed: len(failures) == 0, Failures: failures})
		for _, f := range failures {
			_ = v.logger.Emit(telemetry.Entry{
				Category: telemetry.CategoryValidation,
				Message:  "validation failure",
				Severity: telemetry.SeverityWarn,
				Metadata: map[string]string{"check": check.Name, "location": f.Location, "detail": f.Detail},
			})
		}
	}
	return report, report.Err()
}

// ValidateRequiredSections is the fatal tier. Null sections count as missing.
// Only the first problem, in RequiredSections order, is reported.
func ValidateRequiredSections(raw config.Node) *Failure {
	if !raw.IsMapping() {
		return &Failure{Kind: ErrMalformedSection, Location: "(root)", Detail: "configuration must be a mapping"}
	}

	doc := map[string]any{}
	for _, key := range raw.Keys() {
		if v, _ := raw.Field(key); !v.IsNull() {
			doc[key] = v.Interface()
		}
	}

	result, err := compiledSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return &Failure{Kind: ErrMalformedSection, Location: "(root)", Detail: err.Error()}
	}
	if result.Valid() {
		return nil
	}

	missing := map[string]bool{}
	malformed := map[string]string{}
	for _, re := range result.Errors() {
		switch re.Type() {
		case "required":
			if prop, ok := re.Details()["property"].(string); ok {
				missing[prop] = true
			}
		default:
			malformed[re.Field()] = re.Description()
		}
	}

	for _, section := range RequiredSections {
		if missing[section] {
			return &Failure{Kind: ErrMissingRequiredSection, Location: section}
		}
	}
	fields := make([]string, 0, len(malformed))
	for field := range malformed {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	if len(fields) > 0 {
		return &Failure{Kind: ErrMalformedSection, Location: fields[0], Detail: malformed[fields[0]]}
	}
	return nil
}

// CheckRequiredValues verifies the fields every build needs.
func CheckRequiredValues(raw config.Node) []Failure {
	var failures []Failure
	required := [][]string{
		{config.SectionProject, "build_root"},
		{config.SectionPaths, "test"},
		{config.SectionPaths, "source"},
	}
	for _, path := range required {
		v, ok := raw.Lookup(path...)
		if !ok || v.IsNull() {
			failures = append(failures, Failure{Kind: ErrMissingRequiredValue, Location: strings.Join(path, ".")})
		}
	}
	return failures
}

// CheckPaths verifies path-bearing fields are plausible. It is lexical only.
func CheckPaths(raw config.Node) []Failure {
	var failures []Failure

	single := [][]string{
		{config.SectionProject, "build_root"},
		{config.SectionPlugins, "base_path"},
		{config.SectionMock, "mock_path"},
	}
	for _, path := range single {
		v, ok := raw.Lookup(path...)
		if !ok || v.IsNull() {
			continue
		}
		if f := checkPathEntry(strings.Join(path, "."), v, false); f != nil {
			failures = append(failures, *f)
		}
	}

	paths, _ := raw.Field(config.SectionPaths)
	for _, name := range paths.Keys() {
		list, _ := paths.Field(name)
		location := config.SectionPaths + "." + name
		if list.IsNull() {
			continue
		}
		if !list.IsSequence() {
			failures = append(failures, Failure{Kind: ErrInvalidPath, Location: location, Detail: "must be a list of paths"})
			continue
		}
		for i, entry := range list.Items() {
			if f := checkPathEntry(fmt.Sprintf("%s[%d]", location, i), entry, true); f != nil {
				failures = append(failures, *f)
			}
		}
	}
	return failures
}

func checkPathEntry(location string, v config.Node, allowPattern bool) *Failure {
	s, ok := v.Value().(string)
	if !ok {
		return &Failure{Kind: ErrInvalidPath, Location: location, Detail: fmt.Sprintf("must be a string, got %s", v.Kind())}
	}
	if strings.TrimSpace(s) == "" {
		return &Failure{Kind: ErrInvalidPath, Location: location, Detail: "must not be empty"}
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return &Failure{Kind: ErrInvalidPath, Location: location, Detail: "contains control characters"}
	}
	// Patterns are checked in the form they take after normalization, where
	// backslashes are separators rather than escapes.
	normalized := pathutil.Standardize(s)
	if allowPattern && !fsglob.Valid(normalized) {
		return &Failure{Kind: ErrInvalidPath, Location: location, Detail: fmt.Sprintf("malformed glob pattern %q", s)}
	}
	if !allowPattern && fsglob.HasMeta(normalized) {
		return &Failure{Kind: ErrInvalidPath, Location: location, Detail: "wildcards are not allowed here"}
	}
	return nil
}

// CheckTools verifies every tool has an executable and an argument list.
func CheckTools(raw config.Node) []Failure {
	var failures []Failure
	tools, _ := raw.Field(config.SectionTools)
	for _, name := range tools.Keys() {
		tool, _ := tools.Field(name)
		location := config.SectionTools + "." + name
		if !tool.IsMapping() {
			failures = append(failures, Failure{Kind: ErrInvalidToolConfig, Location: location, Detail: "must be a mapping"})
			continue
		}
		exe, _ := tool.Field("executable")
		if s, ok := exe.Value().(string); !ok || strings.TrimSpace(s) == "" {
			failures = append(failures, Failure{Kind: ErrInvalidToolConfig, Location: location + ".executable", Detail: "must be a non-empty string"})
		}
		args, ok := tool.Field("arguments")
		if !ok || !args.IsSequence() {
			failures = append(failures, Failure{Kind: ErrInvalidToolConfig, Location: location + ".arguments", Detail: "must be a list"})
		}
	}
	return failures
}
