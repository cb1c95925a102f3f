package agent

import "fmt"

func queryPrompt(subject, gradeLevel string, n int, domain string) string {
	focus := "authoritative articles, study guides, and educational explanations"
	if domain == "image" {
		focus = "diagrams, charts, labeled illustrations, and educational figures"
	}
	return fmt.Sprintf(`You are an expert researcher preparing teaching material.

Generate exactly %d diverse web search queries to find %s about the subject "%s" for the "%s" level.

Each query must target a different aspect of the subject. Keep queries short and concrete.

Respond with a JSON object in this exact format:
{"queries": ["query 1", "query 2"]}`, n, focus, subject, gradeLevel)
}

func questionPrompt(subject, gradeLevel, questionType string, count int, extra, contextBlock string) string {
	var format string
	switch questionType {
	case "MCQ":
		format = `Each question object must have:
- "question_text": the question
- "options": exactly 4 answer choices, only one of them correct
- "image_url": null, or an image source URL from "Available Images:" when the question refers to that image`
	case "Math Problem":
		format = `Each question object must have:
- "question_text": a solvable numeric or symbolic problem statement
- "image_url": null, or an image source URL from "Available Images:" when the problem refers to that image`
	default:
		format = `Each question object must have:
- "question_text": an open-ended question requiring a written answer
- "image_url": null, or an image source URL from "Available Images:" when the question refers to that image`
	}

	instructions := ""
	if extra != "" {
		instructions = "\nAdditional instructions from the exam author: " + extra + "\n"
	}

	return fmt.Sprintf(`You are an expert exam author writing questions for the subject "%s" at the "%s" level.

Use ONLY the study material below. Do not invent facts that are not supported by it. If the material mentions images under "Available Images:", you may anchor questions to them by setting "image_url" to the image's source URL.

Study material:
%s
%s
Write exactly %d %s question(s).

%s

Respond with a JSON object in this exact format:
{"questions": [{"question_text": "...", "options": ["a", "b", "c", "d"], "image_url": null}]}
Omit "options" for non-multiple-choice questions.`, subject, gradeLevel, contextBlock, instructions, count, questionType, format)
}

func mathSolutionPrompt(questionText string) string {
	return fmt.Sprintf(`You are a meticulous mathematician. Solve the following problem step by step.

Problem:
%s

Show your reasoning, double-check the arithmetic, and state the final answer exactly.

Respond with a JSON object in this exact format:
{"explanation": "step-by-step reasoning", "final_answer": "the final answer"}`, questionText)
}

func generalSolutionPrompt(questionType, questionText string, options []string) string {
	if questionType == "MCQ" {
		optionLines := ""
		for i, opt := range options {
			optionLines += fmt.Sprintf("%d. %s\n", i, opt)
		}
		return fmt.Sprintf(`You are an expert educator answering an exam question.

Question:
%s

Options (zero-indexed):
%s
Identify the single correct option and explain why it is correct and the others are not.

Respond with a JSON object in this exact format:
{"explanation": "why the correct option is right", "correct_option_index": 0}`, questionText, optionLines)
	}

	return fmt.Sprintf(`You are an expert educator answering an exam question.

Question:
%s

Write a model answer a grader could use as a rubric.

Respond with a JSON object in this exact format:
{"explanation": "the model answer"}`, questionText)
}

func compilePrompt(examTitle, questionsJSON string) string {
	return fmt.Sprintf(`You are an exam editor. Render the following solved questions into two polished markdown documents for the exam titled "%s".

Solved questions (JSON):
%s

Rules:
- "exam_paper" is the student-facing paper: title, numbered questions grouped by type, MCQ options lettered A-D, image questions rendered as markdown images using their "image_url". NO solutions.
- "answer_key" is the grader-facing key: the same numbering, each entry showing the correct option or final answer followed by the explanation.
- Keep every question's wording exactly as given. Do not add or drop questions.

Respond with a JSON object in this exact format:
{"exam_paper": "markdown text", "answer_key": "markdown text"}`, examTitle, questionsJSON)
}

func specInferencePrompt(documentText string) string {
	return fmt.Sprintf(`You are an expert exam designer. Read the document excerpt below and propose a balanced exam blueprint for it.

Document excerpt:
%s

Propose 2 to 4 question specifications. Use only these question types: "MCQ", "Open-Ended", "Math Problem". Include "Math Problem" only if the document contains quantitative material.

Respond with a JSON object in this exact format:
{"question_specs": [{"question_type": "MCQ", "count": 5, "prompt": "focus guidance for the author"}]}`, documentText)
}
