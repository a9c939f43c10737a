package tutor

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fallbacks.yaml
var defaultFallbacksYAML []byte

// minFallbacksPerSubject is the minimum number of templates each listed
// subject must provide.
const minFallbacksPerSubject = 2

var errNoGeneralFallbacks = errors.New("fallback table has no general entries")

// RandSource picks an index in [0, n). *rand.Rand from math/rand/v2
// satisfies it; tests substitute a fixed source.
type RandSource interface {
	IntN(n int) int
}

// globalRand uses the goroutine-safe top-level math/rand/v2 functions.
type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// FallbackStore holds pre-authored replies per subject. It is immutable
// after construction and safe for concurrent use as long as its RandSource is.
type FallbackStore struct {
	responses map[Subject][]string
	rnd       RandSource
}

// NewFallbackStore builds a store from the embedded default table.
// A nil rnd selects the global random source.
func NewFallbackStore(rnd RandSource) (*FallbackStore, error) {
	return ParseFallbacks(defaultFallbacksYAML, rnd)
}

// ParseFallbacks builds a store from a YAML document mapping lower-case
// subject names to lists of replies.
func ParseFallbacks(doc []byte, rnd RandSource) (*FallbackStore, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("parse fallback table: %w", err)
	}

	responses := make(map[Subject][]string, len(raw))
	for key, list := range raw {
		subject, ok := subjectFromKey(key)
		if !ok {
			return nil, fmt.Errorf("fallback table: unknown subject %q", key)
		}
		if len(list) < minFallbacksPerSubject {
			return nil, fmt.Errorf("fallback table: subject %q needs at least %d entries, has %d", key, minFallbacksPerSubject, len(list))
		}
		responses[subject] = append([]string(nil), list...)
	}
	if _, ok := responses[SubjectGeneral]; !ok {
		return nil, errNoGeneralFallbacks
	}

	if rnd == nil {
		rnd = globalRand{}
	}
	return &FallbackStore{responses: responses, rnd: rnd}, nil
}

// Pick returns one of the canned replies for subject, chosen uniformly.
// Subjects without a dedicated list use the general replies.
func (s *FallbackStore) Pick(subject Subject) string {
	list := s.list(subject)
	return list[s.rnd.IntN(len(list))]
}

// Responses returns a copy of the candidate replies Pick chooses from.
func (s *FallbackStore) Responses(subject Subject) []string {
	return append([]string(nil), s.list(subject)...)
}

func (s *FallbackStore) list(subject Subject) []string {
	if list, ok := s.responses[subject]; ok {
		return list
	}
	return s.responses[SubjectGeneral]
}

func subjectFromKey(key string) (Subject, bool) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "math":
		return SubjectMath, true
	case "science":
		return SubjectScience, true
	case "english":
		return SubjectEnglish, true
	case "history":
		return SubjectHistory, true
	case "general":
		return SubjectGeneral, true
	default:
		return "", false
	}
}
