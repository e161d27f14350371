package generator

import (
	"errors"
	"testing"
)

const wellFormed = `{"questions":[
	{"text":"What is 7 x 8?","correct_answer":"56","hints":["Think of 7 x 4 doubled."],"explanation":"7 x 8 = 56.","solution_steps":["7 x 8 = 56"]},
	{"text":"What is 100 - 37?","correct_answer":"63","hints":[],"explanation":"Subtract.","solution_steps":["100 - 37 = 63"]}
]}`

func TestParseDirect(t *testing.T) {
	candidates, err := ParseCandidates(wellFormed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].CorrectAnswer != "56" {
		t.Errorf("expected answer 56, got %q", candidates[0].CorrectAnswer)
	}
}

func TestParseCodeFenced(t *testing.T) {
	fenced := "```json\n" + wellFormed + "\n```"
	candidates, err := ParseCandidates(fenced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Errorf("expected 2 candidates from fenced output, got %d", len(candidates))
	}
}

func TestParseArrayInProse(t *testing.T) {
	prose := `Here are the questions you asked for:

[{"text":"What is 3 + 4?","correct_answer":"7","hints":[],"explanation":"Add.","solution_steps":[]}]

Let me know if you want more.`
	candidates, err := ParseCandidates(prose)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 || candidates[0].CorrectAnswer != "7" {
		t.Errorf("expected single candidate with answer 7, got %+v", candidates)
	}
}

func TestParseTruncated(t *testing.T) {
	truncated := `{"questions":[
	{"text":"What is 5 x 5?","correct_answer":"25","hints":[],"explanation":"Square.","solution_steps":[]},
	{"text":"What is 6 x 6?","correct_answer":"36","hints":[],"explanation":"Square.","solution_steps":[]},
	{"text":"What is 7 x 7?","correct_ans`
	candidates, err := ParseCandidates(truncated)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 recovered candidates, got %d", len(candidates))
	}
	if candidates[1].CorrectAnswer != "36" {
		t.Errorf("expected last recovered answer 36, got %q", candidates[1].CorrectAnswer)
	}
}

func TestParseUnparseable(t *testing.T) {
	_, err := ParseCandidates("I'm sorry, I can't help with that.")
	if !errors.Is(err, ErrUnparseable) {
		t.Errorf("expected ErrUnparseable, got %v", err)
	}
}

func TestParseEmptyEnvelope(t *testing.T) {
	candidates, err := ParseCandidates(`{"questions":[]}`)
	if err != nil {
		t.Fatalf("unexpected error for valid empty envelope: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
}

func TestParseDropsIncompleteEntries(t *testing.T) {
	mixed := `{"questions":[
	{"text":"What is 2 + 2?","correct_answer":"4","hints":[],"explanation":"","solution_steps":[]},
	{"text":"","correct_answer":"9","hints":[],"explanation":"","solution_steps":[]},
	{"text":"No answer given","correct_answer":"  ","hints":[],"explanation":"","solution_steps":[]}
]}`
	candidates, err := ParseCandidates(mixed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 1 {
		t.Errorf("expected only the complete entry to survive, got %d", len(candidates))
	}
}
