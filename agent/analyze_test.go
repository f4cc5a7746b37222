package agent

import (
	"reflect"
	"testing"
)

func TestParseAnalysis(t *testing.T) {
	raw := `INTENT: how_to_question
CLARITY: CONTEXTUAL
CONTEXT_NEEDED: YES, the user refers to earlier turns
KEY_TERMS: docker, compose, networking
SEARCH_STRATEGY: expanded`
	a := parseAnalysis(raw, "how do I network it")
	if a.Intent != "how_to_question" {
		t.Errorf("intent = %s", a.Intent)
	}
	if a.Clarity != "CONTEXTUAL" {
		t.Errorf("clarity = %s", a.Clarity)
	}
	if !a.ContextNeeded {
		t.Errorf("context_needed should be true")
	}
	if !reflect.DeepEqual(a.KeyTerms, []string{"docker", "compose", "networking"}) {
		t.Errorf("key terms = %v", a.KeyTerms)
	}
	if a.SearchStrategy != "expanded" {
		t.Errorf("strategy = %s", a.SearchStrategy)
	}
}

func TestParseAnalysisPartial(t *testing.T) {
	a := parseAnalysis("CLARITY: AMBIGUOUS\nsome stray line", "what is docker")
	if a.Clarity != "AMBIGUOUS" {
		t.Errorf("clarity = %s", a.Clarity)
	}
	// untouched fields keep defaults
	if a.Intent != "general_question" || a.SearchStrategy != "direct" {
		t.Errorf("defaults lost: %+v", a)
	}
	if !reflect.DeepEqual(a.KeyTerms, []string{"what", "is", "docker"}) {
		t.Errorf("key terms should default to query fields, got %v", a.KeyTerms)
	}
}

func TestParseAnalysisGarbageFallsBack(t *testing.T) {
	a := parseAnalysis("the model rambled on without any structure", "find the answer")
	want := defaultAnalysis("find the answer")
	if !reflect.DeepEqual(a, want) {
		t.Errorf("garbage should yield defaults, got %+v", a)
	}
}

func TestParseAnalysisInvalidClarityIgnored(t *testing.T) {
	a := parseAnalysis("INTENT: factual_question\nCLARITY: MAYBE", "q")
	if a.Clarity != "CLEAR" {
		t.Errorf("invalid clarity should keep default, got %s", a.Clarity)
	}
	if a.Intent != "factual_question" {
		t.Errorf("intent = %s", a.Intent)
	}
}
