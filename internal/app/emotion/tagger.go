package emotion

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// Themes form a closed, extensible vocabulary. New themes are added by
// extending the lexicon, not by free-form model output.
const (
	ThemeLoneliness = "loneliness"
	ThemeShame      = "shame"
	ThemePanic      = "panic"
	ThemeAnger      = "anger"
	ThemeExhaustion = "exhaustion"
	ThemeSadness    = "sadness"
	ThemeBetrayal   = "betrayal"
	ThemeGuilt      = "guilt"
	ThemeStress     = "stress"
)

// Lexicon maps each theme to its indicator keywords.
type Lexicon map[string][]string

// DefaultLexicon covers the primary emotional buckets.
func DefaultLexicon() Lexicon {
	return Lexicon{
		ThemeLoneliness: {
			"no friends", "alone", "lonely", "no one likes me", "nobody likes me",
			"left out", "not invited", "isolated", "unwanted", "tolerate me",
			"no one cares", "nobody cares",
		},
		ThemeShame: {
			"my fault", "i'm the problem", "im the problem", "not good enough",
			"i'm worthless", "im worthless", "i ruin", "ashamed", "embarrassed",
		},
		ThemePanic: {
			"panic", "panicking", "can't breathe", "cant breathe", "shaking",
			"heart racing", "freaking out", "overwhelmed", "spiraling",
			"can't calm down",
		},
		ThemeAnger: {
			"angry", "mad at", "furious", "we fought", "yelled at me",
			"disrespected", "so unfair", "hate them",
		},
		ThemeExhaustion: {
			"numb", "empty", "exhausted", "burned out", "burnout",
			"done with everything", "tired of everything", "don't feel anything",
		},
		ThemeSadness: {
			"sad", "crying", "cried", "heartbroken", "miserable", "really down",
		},
		ThemeBetrayal: {
			"cheated on me", "cheating", "affair", "unfaithful", "betrayed",
			"lied to me",
		},
		ThemeGuilt: {
			"guilty", "i'm sorry", "i ruined", "my mistake", "should have known",
		},
		ThemeStress: {
			"stressed", "stress", "too much work", "deadline", "exams",
			"failing school", "can't keep up",
		},
	}
}

// LoadLexicon reads a YAML theme->keywords mapping.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultLexicon(), fmt.Errorf("reading emotion lexicon: %w", err)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return DefaultLexicon(), fmt.Errorf("parsing emotion lexicon: %w", err)
	}
	if len(lex) == 0 {
		return DefaultLexicon(), nil
	}
	return lex, nil
}

// Tagger classifies a message into zero or more emotional themes. Given
// the same lexicon and the same input, the output is identical; tags are
// returned in theme order.
type Tagger struct {
	lexicon Lexicon
}

func NewTagger(lexicon Lexicon) *Tagger {
	return &Tagger{lexicon: lexicon}
}

// Tag scores each theme by keyword hits. Confidence is hits normalized
// against a saturation point of 3 matches, capped at 1. An empty result
// is valid: no detectable theme.
func (t *Tagger) Tag(message string) []domain.EmotionTag {
	low := strings.ToLower(message)

	var tags []domain.EmotionTag
	for theme, keywords := range t.lexicon {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(low, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		conf := float64(hits) / 3.0
		if conf > 1 {
			conf = 1
		}
		tags = append(tags, domain.EmotionTag{Theme: theme, Confidence: conf})
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].Theme < tags[j].Theme })
	return tags
}
