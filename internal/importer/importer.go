// Package importer loads question sets from YAML files into a question store.
package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"quiz-unlock-service/internal/domain"
)

// Appender is implemented by question stores that accept new questions at the end of the order.
type Appender interface {
	Append(ctx context.Context, questions ...domain.Question) (int, error)
	Count(ctx context.Context) (int, error)
}

type questionFile struct {
	Questions []questionEntry `yaml:"questions"`
}

type questionEntry struct {
	ID            string          `yaml:"id"`
	Prompt        string          `yaml:"prompt"`
	Options       []domain.Option `yaml:"options"`
	CorrectAnswer string          `yaml:"correct_answer"`
}

// Importer parses question files and appends them in file order.
type Importer struct {
	store Appender
	log   *zap.Logger
}

func New(store Appender, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{store: store, log: log.With(zap.String("component", "importer"))}
}

// Import reads a question file and returns how many new questions were stored.
// The whole file is validated before anything is written.
func (im *Importer) Import(ctx context.Context, r io.Reader) (int, error) {
	questions, err := Parse(r)
	if err != nil {
		return 0, err
	}
	added, err := im.store.Append(ctx, questions...)
	if err != nil {
		return 0, err
	}
	total, err := im.store.Count(ctx)
	if err != nil {
		return added, err
	}
	im.log.Info("questions imported",
		zap.Int("parsed", len(questions)),
		zap.Int("added", added),
		zap.Int("total", total),
	)
	return added, nil
}

// Parse decodes and validates a question file. Questions without an ID get a
// random one. Order is file order; the store assigns positions on append.
func Parse(r io.Reader) ([]domain.Question, error) {
	var file questionFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if len(file.Questions) == 0 {
		return nil, &domain.ValidationError{Field: "questions", Reason: "file contains no questions"}
	}

	seen := make(map[string]struct{}, len(file.Questions))
	out := make([]domain.Question, 0, len(file.Questions))
	for i, entry := range file.Questions {
		q, err := entry.toQuestion()
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("question %d: %w", i+1, &domain.ValidationError{Field: "id", Reason: "duplicate " + q.ID})
		}
		seen[q.ID] = struct{}{}
		out = append(out, q)
	}
	return out, nil
}

func (e questionEntry) toQuestion() (domain.Question, error) {
	prompt := strings.TrimSpace(e.Prompt)
	if prompt == "" {
		return domain.Question{}, &domain.ValidationError{Field: "prompt", Reason: "required"}
	}
	if len(e.Options) < 2 {
		return domain.Question{}, &domain.ValidationError{Field: "options", Reason: "at least two options required"}
	}

	keys := make(map[string]struct{}, len(e.Options))
	options := make([]domain.Option, 0, len(e.Options))
	for _, opt := range e.Options {
		key := strings.ToUpper(strings.TrimSpace(opt.Key))
		if key == "" {
			return domain.Question{}, &domain.ValidationError{Field: "options", Reason: "option key required"}
		}
		if _, dup := keys[key]; dup {
			return domain.Question{}, &domain.ValidationError{Field: "options", Reason: "duplicate key " + key}
		}
		keys[key] = struct{}{}
		options = append(options, domain.Option{Key: key, Text: strings.TrimSpace(opt.Text)})
	}

	id := strings.TrimSpace(e.ID)
	if id == "" {
		id = uuid.NewString()
	}
	q := domain.Question{
		ID:            id,
		Prompt:        prompt,
		Options:       options,
		CorrectAnswer: strings.ToUpper(strings.TrimSpace(e.CorrectAnswer)),
	}
	if !q.HasOption(q.CorrectAnswer) {
		return domain.Question{}, &domain.ValidationError{Field: "correct_answer", Reason: fmt.Sprintf("%q is not an option key", e.CorrectAnswer)}
	}
	return q, nil
}
