// Package registry holds generated exams in memory for the lifetime of the
// process. There is no durable storage behind it; a restart empties it.
package registry

import (
	"sync"

	"github.com/searchlab/examgen-backend/internal/model"
)

// Registry is a concurrency-safe exam store keyed by exam id.
type Registry struct {
	mu    sync.RWMutex
	exams map[string]*model.FullExam
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{exams: make(map[string]*model.FullExam)}
}

// Put stores the exam under its id, replacing any previous entry.
func (r *Registry) Put(exam *model.FullExam) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exams[exam.ExamID] = exam
}

// Get returns the exam with the given id, or false if it is unknown.
func (r *Registry) Get(examID string) (*model.FullExam, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exam, ok := r.exams[examID]
	return exam, ok
}

// Len returns the number of stored exams.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exams)
}

// ReplaceQuestion swaps the question with replacement.ID inside the exam,
// keeping its position. Returns false if the exam or question is unknown.
func (r *Registry) ReplaceQuestion(examID string, replacement model.ExamQuestion) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	exam, ok := r.exams[examID]
	if !ok {
		return false
	}
	for i, q := range exam.Questions {
		if q.ID == replacement.ID {
			exam.Questions[i] = replacement
			return true
		}
	}
	return false
}
