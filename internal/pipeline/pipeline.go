// Package pipeline runs the generation phase: concurrent question
// generation per spec, concurrent type-dispatched solving, and final exam
// compilation. Output order always follows the submitted spec order, no
// matter how the concurrent stages interleave.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/searchlab/examgen-backend/internal/agent"
	"github.com/searchlab/examgen-backend/internal/config"
	"github.com/searchlab/examgen-backend/internal/model"
	"github.com/searchlab/examgen-backend/internal/stream"
)

// Generation progress step ids.
const (
	StepSpecGeneration     = "spec_generation"
	StepQuestionGeneration = "question_generation"
	StepSolutionGeneration = "solution_generation"
	StepCompilation        = "compilation"
)

// QuestionSource generates questions for one spec. Satisfied by
// agent.QuestionGenerator.
type QuestionSource interface {
	Generate(ctx context.Context, req agent.GenerateRequest) ([]model.GeneratedQuestion, error)
}

// MathSolver solves math problems. Satisfied by agent.MathSolver.
type MathSolver interface {
	Solve(ctx context.Context, questionText string) (model.GeneratedSolution, error)
}

// GeneralSolver solves choice and open-ended questions. Satisfied by
// agent.GeneralSolver.
type GeneralSolver interface {
	Solve(ctx context.Context, questionType model.QuestionType, questionText string, options []string) (model.GeneratedSolution, error)
}

// Compiler renders solved questions into exam documents. Satisfied by
// agent.Compiler.
type Compiler interface {
	Compile(ctx context.Context, examTitle string, questions []model.ExamQuestion) (model.CompiledExam, error)
}

// Request describes one generation run.
type Request struct {
	Subject    string
	GradeLevel string
	ExamTitle  string
	Specs      []model.QuestionSpec
}

// Pipeline orchestrates the generation stages.
type Pipeline struct {
	questions     QuestionSource
	mathSolver    MathSolver
	generalSolver GeneralSolver
	compiler      Compiler
	stageTimeout  time.Duration
	log           zerolog.Logger
}

// New creates a Pipeline.
func New(questions QuestionSource, math MathSolver, general GeneralSolver, compiler Compiler, cfg *config.Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		questions:     questions,
		mathSolver:    math,
		generalSolver: general,
		compiler:      compiler,
		stageTimeout:  cfg.StageTimeout,
		log:           log.With().Str("component", "pipeline").Logger(),
	}
}

// Run executes generation, solving, and compilation for the request.
func (p *Pipeline) Run(ctx context.Context, req Request, sink stream.Sink) ([]model.ExamQuestion, model.CompiledExam, error) {
	questions, err := p.GenerateAndSolve(ctx, req, sink)
	if err != nil {
		return nil, model.CompiledExam{}, err
	}

	sink.Progress(StepCompilation, stream.StatusInProgress)
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()
	compiled, err := p.compiler.Compile(stageCtx, req.ExamTitle, questions)
	if err != nil {
		return nil, model.CompiledExam{}, err
	}
	sink.Progress(StepCompilation, stream.StatusCompleted)

	return questions, compiled, nil
}

// GenerateAndSolve runs the question and solution stages only. Regeneration
// of a single question reuses this with a one-question spec.
//
// Questions are generated concurrently, one call per spec, and solved
// concurrently, one call per question. Both stages write results into
// index-addressed slots so the final order matches spec submission order and
// every solution stays attached to the question at its own index.
func (p *Pipeline) GenerateAndSolve(ctx context.Context, req Request, sink stream.Sink) ([]model.ExamQuestion, error) {
	sink.Progress(StepQuestionGeneration, stream.StatusInProgress)
	tagged, err := p.generate(ctx, req)
	if err != nil {
		return nil, err
	}
	sink.Progress(StepQuestionGeneration, stream.StatusCompleted)
	sink.Log(fmt.Sprintf("Generated %d questions.", len(tagged)))

	sink.Progress(StepSolutionGeneration, stream.StatusInProgress)
	solutions, err := p.solve(ctx, tagged)
	if err != nil {
		return nil, err
	}
	sink.Progress(StepSolutionGeneration, stream.StatusCompleted)
	sink.Log(fmt.Sprintf("Solved %d questions.", len(solutions)))

	questions := make([]model.ExamQuestion, len(tagged))
	for i, tq := range tagged {
		questions[i] = model.ExamQuestion{
			ID:           model.NewQuestionID(),
			QuestionType: tq.Type,
			QuestionText: tq.Question.QuestionText,
			Options:      tq.Question.Options,
			ImageURL:     tq.Question.ImageURL,
			Solution:     solutions[i],
		}
	}
	return questions, nil
}

func (p *Pipeline) generate(ctx context.Context, req Request) ([]model.TaggedQuestion, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	perSpec := make([][]model.TaggedQuestion, len(req.Specs))
	g, gctx := errgroup.WithContext(stageCtx)
	for i, spec := range req.Specs {
		i, spec := i, spec
		g.Go(func() error {
			generated, err := p.questions.Generate(gctx, agent.GenerateRequest{
				Subject:    req.Subject,
				GradeLevel: req.GradeLevel,
				Type:       spec.QuestionType,
				Count:      spec.Count,
				Prompt:     spec.Prompt,
			})
			if err != nil {
				return err
			}
			tagged := make([]model.TaggedQuestion, 0, len(generated))
			for _, q := range generated {
				tagged = append(tagged, model.TaggedQuestion{Question: q, Type: spec.QuestionType})
			}
			perSpec[i] = tagged
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("question generation: %w", err)
	}

	var all []model.TaggedQuestion
	for _, tagged := range perSpec {
		all = append(all, tagged...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("question generation: no questions produced")
	}
	return all, nil
}

func (p *Pipeline) solve(ctx context.Context, tagged []model.TaggedQuestion) ([]model.GeneratedSolution, error) {
	stageCtx, cancel := context.WithTimeout(ctx, p.stageTimeout)
	defer cancel()

	solutions := make([]model.GeneratedSolution, len(tagged))
	g, gctx := errgroup.WithContext(stageCtx)
	for i, tq := range tagged {
		i, tq := i, tq
		g.Go(func() error {
			var (
				sol model.GeneratedSolution
				err error
			)
			if tq.Type == model.QuestionTypeMathProblem {
				sol, err = p.mathSolver.Solve(gctx, tq.Question.QuestionText)
			} else {
				sol, err = p.generalSolver.Solve(gctx, tq.Type, tq.Question.QuestionText, tq.Question.Options)
			}
			if err != nil {
				return err
			}
			solutions[i] = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("solution generation: %w", err)
	}
	return solutions, nil
}
