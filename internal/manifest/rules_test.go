package manifest

import "testing"

func TestEvaluateRulesEmptyIsAllow(t *testing.T) {
	host := Host{OSName: "linux", Arch: "x86_64"}
	if got := EvaluateRules(nil, host, nil); got != Allow {
		t.Errorf("EvaluateRules(nil, ...) = %v, want Allow", got)
	}
}

func TestEvaluateRulesLastMatchingRuleWins(t *testing.T) {
	host := Host{OSName: "windows", Arch: "x86_64"}
	rules := []Rule{
		{Action: "allow", Type: RuleTypeNone},
		{Action: "disallow", Type: RuleTypeOS, OS: map[string]string{"name": "windows"}},
	}
	if got := EvaluateRules(rules, host, nil); got != Deny {
		t.Errorf("EvaluateRules(...) = %v, want Deny", got)
	}
}

func TestEvaluateRulesOSNameMismatchSkipsRule(t *testing.T) {
	host := Host{OSName: "linux", Arch: "x86_64"}
	rules := []Rule{
		{Action: "allow", Type: RuleTypeNone},
		{Action: "disallow", Type: RuleTypeOS, OS: map[string]string{"name": "windows"}},
	}
	if got := EvaluateRules(rules, host, nil); got != Allow {
		t.Errorf("EvaluateRules(...) = %v, want Allow (the windows-only disallow rule shouldn't apply on linux)", got)
	}
}

func TestEvaluateRulesX86DoesNotMatchX86_64Host(t *testing.T) {
	host := Host{OSName: "windows", Arch: "x86_64"}
	rules := []Rule{
		{Action: "allow", Type: RuleTypeOS, OS: map[string]string{"arch": "x86"}},
	}
	if got := EvaluateRules(rules, host, nil); got != Deny {
		t.Errorf("EvaluateRules(...) = %v, want Deny (a 32-bit-only rule must not select 32-bit natives on a 64-bit host)", got)
	}
}

func TestEvaluateRulesArchMatchesExactly(t *testing.T) {
	host := Host{OSName: "windows", Arch: "x86"}
	rules := []Rule{
		{Action: "allow", Type: RuleTypeOS, OS: map[string]string{"arch": "x86"}},
	}
	if got := EvaluateRules(rules, host, nil); got != Allow {
		t.Errorf("EvaluateRules(...) = %v, want Allow for a matching 32-bit host", got)
	}
}

func TestEvaluateRulesFeaturesConditionRequiresExactMatch(t *testing.T) {
	host := Host{OSName: "linux", Arch: "x86_64"}
	rules := []Rule{
		{Action: "allow", Type: RuleTypeFeatures, Features: map[string]bool{"is_demo_user": true}},
	}
	if got := EvaluateRules(rules, host, map[string]bool{"is_demo_user": false}); got != Deny {
		t.Errorf("EvaluateRules(...) = %v, want Deny when the feature flag doesn't match", got)
	}
	if got := EvaluateRules(rules, host, map[string]bool{"is_demo_user": true}); got != Allow {
		t.Errorf("EvaluateRules(...) = %v, want Allow when the feature flag matches", got)
	}
}

func TestCurrentHostMapsDarwinToOsx(t *testing.T) {
	host := CurrentHost()
	if host.OSName == "darwin" {
		t.Errorf("CurrentHost().OSName = %q, want the mapped vocabulary (\"osx\") never raw GOOS", host.OSName)
	}
}
