package schema

import "strings"

// Phase1Inputs captures the initial project definition. Immutable once
// collected; every later phase reads it from session state.
type Phase1Inputs struct {
	ProjectName       string   `json:"project_name"`
	ProjectType       string   `json:"project_type"`
	Platform          string   `json:"platform"`
	Description       string   `json:"description"`
	CoreFeatures      []string `json:"core_features"`
	ExpectedUserScale string   `json:"expected_user_scale"`
	Constraints       []string `json:"constraints"`
}

// Option lists offered by the phase-1 front ends.
var (
	ProjectTypes = []string{
		"Web Application",
		"Mobile Application",
		"Backend Service",
		"Data Platform",
		"ML / AI System",
		"Internal Tool",
	}
	Platforms = []string{
		"Web",
		"Mobile",
		"Backend / API",
		"Data / Analytics",
		"Mixed",
	}
	UserScales = []string{
		"Prototype / Internal",
		"Up to 10k users",
		"10k - 100k users",
		"100k - 1M users",
		"1M+ users",
	}
	ConstraintOptions = []string{
		"Performance",
		"Cost",
		"Security",
		"Compliance",
		"Time-to-market",
		"Scalability",
	}
)

// ValidatePhase1 checks the phase-1 inputs before a session is created.
// Enum fields must match one of the offered options; constraints is the only
// optional list (the user may skip it).
func ValidatePhase1(in Phase1Inputs) error {
	v := &ValidationError{}
	if strings.TrimSpace(in.ProjectName) == "" {
		v.Add("project_name", "must not be empty")
	}
	if !containsOption(ProjectTypes, in.ProjectType) {
		v.Addf("project_type", "%q is not a known project type", in.ProjectType)
	}
	if !containsOption(Platforms, in.Platform) {
		v.Addf("platform", "%q is not a known platform", in.Platform)
	}
	if strings.TrimSpace(in.Description) == "" {
		v.Add("description", "must not be empty")
	}
	if len(in.CoreFeatures) == 0 {
		v.Add("core_features", "need at least 1 feature")
	}
	for i, f := range in.CoreFeatures {
		if strings.TrimSpace(f) == "" {
			v.Addf("core_features", "item %d is empty", i)
		}
	}
	if !containsOption(UserScales, in.ExpectedUserScale) {
		v.Addf("expected_user_scale", "%q is not a known user scale", in.ExpectedUserScale)
	}
	for i, c := range in.Constraints {
		if strings.TrimSpace(c) == "" {
			v.Addf("constraints", "item %d is empty", i)
		}
	}
	return v.OrNil()
}

func containsOption(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
