package match

import (
	"testing"

	"github.com/drugmerge/drugmerge/internal/normalize"
)

func newTestScorer() *Scorer {
	return NewScorer(normalize.New())
}

func TestScorer_Score_Symmetry(t *testing.T) {
	s := newTestScorer()

	pairs := [][2]string{
		{"nicardipine", "nifedipine"},
		{"Aspirin", "aspirin tablets"},
		{"metformin hydrochloride", "METFORMIN"},
		{"amoxicillin clavulanate", "clavulanate potassium"},
		{"", "warfarin"},
	}

	for _, p := range pairs {
		ab := s.Score(p[0], p[1])
		ba := s.Score(p[1], p[0])
		if ab != ba {
			t.Errorf("Score(%q,%q)=%v but Score(%q,%q)=%v", p[0], p[1], ab, p[1], p[0], ba)
		}
	}
}

func TestScorer_Score_ExactAfterNormalization(t *testing.T) {
	s := newTestScorer()

	// Same generic under different salt/case/prefix decorations
	pairs := [][2]string{
		{"Nicardipine Hydrochloride", "(S)-nicardipine"},
		{"METFORMIN HCL", "metformin"},
		{"Warfarin Sodium Tablets", "warfarin"},
	}

	for _, p := range pairs {
		if got := s.Score(p[0], p[1]); got != 1.0 {
			t.Errorf("Score(%q,%q): expected 1.0, got %v", p[0], p[1], got)
		}
	}
}

func TestScorer_Score_EmptyScoresZero(t *testing.T) {
	s := newTestScorer()

	if got := s.Score("", "aspirin"); got != 0.0 {
		t.Errorf("empty side: expected 0.0, got %v", got)
	}
	if got := s.Score("...", "aspirin"); got != 0.0 {
		t.Errorf("punctuation-only side normalizes to empty: expected 0.0, got %v", got)
	}
	if got := s.Score("", ""); got != 0.0 {
		t.Errorf("both empty: expected 0.0, got %v", got)
	}
}

func TestScorer_Score_Containment(t *testing.T) {
	s := newTestScorer()

	if got := s.Score("amoxicillin", "amoxicillin clavulanate"); got != containmentScore {
		t.Errorf("containment: expected %v, got %v", containmentScore, got)
	}
}

func TestScorer_Score_BlendBounded(t *testing.T) {
	s := newTestScorer()

	// Different drugs never reach a full-match score
	got := s.Score("nicardipine", "nifedipine")
	if got <= 0.0 || got >= 1.0 {
		t.Errorf("similar-but-different names: expected score in (0,1), got %v", got)
	}

	// Unrelated names score low
	got = s.Score("warfarin", "omeprazole")
	if got >= 0.5 {
		t.Errorf("unrelated names: expected score < 0.5, got %v", got)
	}
}

func TestScorer_Score_WordOverlapDamped(t *testing.T) {
	s := newTestScorer()

	// Shared words in scrambled order: overlap drives the score, damped by
	// the overlap weight, so it stays strictly below a full match
	a := "alpha beta gamma delta epsilon zeta eta theta"
	b := "eta zeta epsilon delta gamma beta alpha"
	got := s.Score(a, b)
	if got <= 0.0 || got > wordOverlapWeight {
		t.Errorf("word-overlap score out of range (0,%v]: got %v", wordOverlapWeight, got)
	}
}
