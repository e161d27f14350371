package generator

import (
	"fmt"
	"strings"

	"github.com/studyloop/backend/internal/models"
)

func PracticeSystemPrompt() string {
	return `You are an experienced tutor writing practice questions for school students.
Write clear, self-contained questions with a single unambiguous answer.

Respond with ONLY a JSON object, no prose before or after, in this exact shape:
{"questions":[{"text":"...","correct_answer":"...","hints":["..."],"explanation":"...","solution_steps":["..."]}]}

Rules:
- "text" is the full question as shown to the student.
- "correct_answer" is the final answer only, no working.
- "hints" are 1-3 nudges ordered from gentle to direct, never revealing the answer.
- "solution_steps" walk through the full working, one step per entry.
- Vary names, contexts and numbers between questions.`
}

func BuildPracticePrompt(req models.ResolveRequest, count int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write %d practice question(s) on the topic %q", count, req.TopicName)
	if req.SubtopicName != nil && *req.SubtopicName != "" {
		fmt.Fprintf(&b, ", subtopic %q", *req.SubtopicName)
	}
	fmt.Fprintf(&b, " at %s difficulty.", req.Difficulty)

	if req.GradeLevel != nil {
		fmt.Fprintf(&b, " The student is in grade %d; keep vocabulary and numbers age-appropriate.", *req.GradeLevel)
	}

	switch req.Difficulty {
	case models.DifficultyEasy:
		b.WriteString(" Use single-step problems with small numbers.")
	case models.DifficultyMedium:
		b.WriteString(" Use two-step problems that require choosing the right operation.")
	case models.DifficultyHard:
		b.WriteString(" Use multi-step problems with a realistic scenario and at least one distractor quantity.")
	}

	return b.String()
}

func WorksheetSystemPrompt() string {
	return `You extract practice questions from photographed worksheets.
Transcribe each distinct question faithfully, then solve it yourself to supply the answer, hints, explanation and solution steps.

Respond with ONLY a JSON object, no prose before or after, in this exact shape:
{"questions":[{"text":"...","correct_answer":"...","hints":["..."],"explanation":"...","solution_steps":["..."]}]}

Skip headings, instructions, decorations and anything that is not an answerable question.
If the image contains no answerable questions, respond with {"questions":[]}.`
}

func BuildWorksheetPrompt(req models.ResolveRequest) string {
	var b strings.Builder

	b.WriteString("Extract every answerable question from this worksheet image.")
	if req.TopicName != "" {
		fmt.Fprintf(&b, " The worksheet is expected to cover %q; flag nothing, just transcribe what is there.", req.TopicName)
	}
	if req.GradeLevel != nil {
		fmt.Fprintf(&b, " It is aimed at grade %d students.", *req.GradeLevel)
	}

	return b.String()
}
