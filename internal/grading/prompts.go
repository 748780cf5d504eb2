package grading

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/p-n-ai/mathboard/internal/rubric"
)

const rubricSystemPrompt = "You are a math rubric expert. Response must be strictly valid JSON."

const gradingSystemPrompt = "You are an expert grader scoring student work for the below question and rubric."

func buildRubricPrompt(questions []string, notes string) string {
	var b strings.Builder
	b.WriteString(`You are an expert math educator and assessment designer.
Your task is to generate a grading rubric for a teacher-created assignment.

The rubric must:
- Include 2-4 learning goals per question.
- Assign clear point values to each goal that add up to the total question score.
- Use consistent objective language suitable for automated grading.
- Anticipate cases where a student does not show their work and deduct points appropriately.
- Include a short description of what "full credit", "partial credit", and "no credit" mean for each goal.
- Produce output ONLY as the JSON schema described below.

------------------------------------
INPUT PROVIDED TO YOU:
Below is the list of teacher-provided questions:
`)
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	fmt.Fprintf(&b, "\nTeacher Notes (if provided):\n%s\n", notes)
	b.WriteString(`------------------------------------

RUBRIC REQUIREMENTS:
For each question, generate:
1. "prompt": the question text
2. "goals": an array of objects, each containing:
    - "goal": the learning goal
    - "maxPoints": integer point value
    - "fullCreditCriteria": description
    - "partialCreditCriteria": description
    - "noCreditCriteria": description
3. "totalPoints": sum of all maxPoints
4. "notesForTeacher": optional fine-grained notes

Additionally:
- Include a penalty criterion for missing work/explanation if relevant.
- Keep descriptions concise and unambiguous.

------------------------------------
OUTPUT JSON FORMAT:
{
  "questions": [
    {
      "index": 0,
      "prompt": "...",
      "totalPoints": 5,
      "goals": [
        {
          "goal": "...",
          "maxPoints": 2,
          "fullCreditCriteria": "...",
          "partialCreditCriteria": "...",
          "noCreditCriteria": "..."
        }
      ],
      "notesForTeacher": "..."
    }
  ]
}
------------------------------------
Return ONLY valid JSON. No commentary.`)
	return b.String()
}

func buildGradingPrompt(q rubric.Question, work json.RawMessage) (string, error) {
	questionRubric, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal question rubric: %w", err)
	}
	return fmt.Sprintf(`Follow the rubric EXACTLY.
Do not invent new goals, new point values, or new criteria.
Your output must be STRICTLY in the JSON schema described at the end of this prompt.

--------------------------------------------
GRADING INSTRUCTIONS:
1. Read the question text and the student work carefully.
2. For each learning goal in the rubric:
   - Evaluate the student's work against the goal's criteria.
   - Assign a numeric score between 0 and maxPoints.
   - Provide a short explanation (1-2 sentences) of your scoring.
3. If the student did not show work and the rubric penalizes missing work, apply the correct deduction.
4. Be consistent, objective, and follow the rubric strictly.
5. Do NOT exceed the maxPoints for any goal.
6. Sum all points into "totalPoints".
7. Compute "maxPoints" as the sum of all goals.
--------------------------------------------

QUESTION: %s
RUBRIC: %s
STUDENT_WORK_JSON: %s

STRICT OUTPUT SCHEMA ONLY:
{
  "goals": [
    { "goal": string, "points": number, "maxPoints": number, "explanation": string }
  ],
  "totalPoints": number,
  "maxPoints": number,
  "overallFeedback": string
}
Return only the JSON result.`, q.Prompt, questionRubric, work), nil
}
