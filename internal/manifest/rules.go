package manifest

import "runtime"

// Host is the current host's attributes rules are evaluated against
// (spec §4.1 step 4, §9).
type Host struct {
	OSName string // "windows", "linux", "osx"
	Arch   string // "x86", "x86_64", "arm64", ...
}

// CurrentHost maps Go's runtime.GOOS/GOARCH onto the vocabulary Mojang's
// rules use, matching the original's determine_key_for_java_manifest /
// rule_matches mapping (osx for darwin, x86 for 386).
func CurrentHost() Host {
	osName := runtime.GOOS
	if osName == "darwin" {
		osName = "osx"
	}
	arch := runtime.GOARCH
	switch arch {
	case "386":
		arch = "x86"
	case "amd64":
		arch = "x86_64"
	}
	return Host{OSName: osName, Arch: arch}
}

type Polarity bool

const (
	Deny  Polarity = false
	Allow Polarity = true
)

// EvaluateRules implements the tiny filter algebra from spec §9: a pure
// function (rules, host, features) -> Allow | Deny. An empty rule list is
// Allow. Rules are evaluated in order; the last rule whose condition
// matches the host wins. A rule with no condition (bare {"action": ...})
// always matches.
func EvaluateRules(rules []Rule, host Host, features map[string]bool) Polarity {
	if len(rules) == 0 {
		return Allow
	}
	result := Deny
	for _, rule := range rules {
		if !conditionMatches(rule, host, features) {
			continue
		}
		result = actionPolarity(rule.Action)
	}
	return result
}

func actionPolarity(action string) Polarity {
	return action == "allow"
}

func conditionMatches(rule Rule, host Host, features map[string]bool) bool {
	switch rule.Type {
	case RuleTypeNone:
		return true
	case RuleTypeOS:
		return osConditionMatches(rule.OS, host)
	case RuleTypeFeatures:
		return featuresConditionMatch(rule.Features, features)
	default:
		return true
	}
}

func osConditionMatches(cond map[string]string, host Host) bool {
	for key, value := range cond {
		switch key {
		case "name":
			if value != host.OSName {
				return false
			}
		case "arch":
			if value != host.Arch {
				return false
			}
		case "version":
			// Host OS version regex matching is intentionally not evaluated:
			// every rule the live manifests ship only ever gates on name/arch
			// in practice, and matching here would require parsing the host
			// kernel version string, which has no stable source in Go's
			// standard library across platforms. Treat as satisfied.
		default:
			return false
		}
	}
	return true
}

func featuresConditionMatch(cond map[string]bool, features map[string]bool) bool {
	for key, want := range cond {
		got := features[key]
		if got != want {
			return false
		}
	}
	return true
}
