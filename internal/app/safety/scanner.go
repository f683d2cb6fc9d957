package safety

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// CrisisResponse is the fixed template returned whenever the verdict is
// crisis. It is independent of any role agent output.
const CrisisResponse = `I'm hearing real pain in what you're sharing, and I want you to be safe.

If you are thinking about hurting yourself or feel unsafe right now, please reach out immediately:
• 988 Suicide & Crisis Lifeline (call or text 988)
• Crisis Text Line: text HOME to 741741
• Emergency: call 911

I'm an AI companion, not a licensed therapist, and I can't replace professional crisis support. You're not alone — please tell someone you trust how you're feeling, right now if you can.`

// AdvisoryDisclaimer is appended to a normal reply when the verdict is
// advisory. It does not replace role agent content.
const AdvisoryDisclaimer = "I'm an AI helper here for reflection, not a licensed therapist. If things feel heavier than usual, talking to someone you trust or a professional can really help."

// PhraseSet holds the crisis indicator phrases by severity tier.
// Matching is case-insensitive substring matching; a small set of regular
// expressions covers inflected forms the phrase lists miss.
type PhraseSet struct {
	Critical []string `yaml:"critical"`
	High     []string `yaml:"high"`
	Medium   []string `yaml:"medium"`
}

// DefaultPhrases mirrors the maintained indicator lists. Critical and high
// tiers escalate to a crisis verdict; medium yields advisory.
func DefaultPhrases() PhraseSet {
	return PhraseSet{
		Critical: []string{
			"kill myself", "end my life", "want to die", "suicide", "suicidal",
			"better off dead", "no reason to live", "plan to die", "end it all",
			"can't go on", "goodbye forever", "final goodbye",
		},
		High: []string{
			"hurt myself", "harm myself", "cut myself", "cutting myself",
			"self harm", "self-harm", "overdose", "took too many pills",
			"kill him", "kill her", "kill them", "hurt someone", "harm others",
			"not safe right now", "violent thoughts",
		},
		Medium: []string{
			"hopeless", "can't take it", "give up on everything", "pointless",
			"worthless", "i'm a burden", "everyone better without me",
			"don't want to be here", "rather not exist", "nothing matters",
		},
	}
}

// LoadPhrases reads a YAML phrase file. Empty tiers fall back to the
// defaults so an override file may replace a single tier.
func LoadPhrases(path string) (PhraseSet, error) {
	def := DefaultPhrases()

	data, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("reading safety phrases: %w", err)
	}

	var ps PhraseSet
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return def, fmt.Errorf("parsing safety phrases: %w", err)
	}

	if len(ps.Critical) == 0 {
		ps.Critical = def.Critical
	}
	if len(ps.High) == 0 {
		ps.High = def.High
	}
	if len(ps.Medium) == 0 {
		ps.Medium = def.Medium
	}
	return ps, nil
}

// Scanner classifies user messages for crisis escalation. It is stateless
// and deterministic: identical input always yields the identical verdict.
type Scanner struct {
	phrases  PhraseSet
	patterns []tierPattern
}

type tierPattern struct {
	re       *regexp.Regexp
	category string
	crisis   bool
}

func NewScanner(phrases PhraseSet) *Scanner {
	return &Scanner{
		phrases: phrases,
		patterns: []tierPattern{
			{re: regexp.MustCompile(`\bend(ing)? it( all)?\b`), category: "suicide", crisis: true},
			{re: regexp.MustCompile(`\bno point (in )?(living|going on)\b`), category: "suicide", crisis: true},
			{re: regexp.MustCompile(`\btook (all|every one of) (the|my) pills\b`), category: "substance_overdose", crisis: true},
		},
	}
}

// Scan checks a message against the phrase tiers and patterns.
// Critical and high matches yield a crisis verdict, medium matches yield
// advisory, anything else is none. Matched categories are recorded for
// audit in deterministic order.
func (s *Scanner) Scan(message string) domain.SafetyScan {
	low := strings.ToLower(message)

	categories := map[string]bool{}
	verdict := domain.VerdictNone

	match := func(phrases []string, category string, v domain.SafetyVerdict) {
		for _, p := range phrases {
			if strings.Contains(low, p) {
				categories[category] = true
				if rank(v) > rank(verdict) {
					verdict = v
				}
				return
			}
		}
	}

	match(s.phrases.Critical, "critical", domain.VerdictCrisis)
	match(s.phrases.High, "high", domain.VerdictCrisis)
	match(s.phrases.Medium, "medium", domain.VerdictAdvisory)

	for _, tp := range s.patterns {
		if tp.re.MatchString(low) {
			categories[tp.category] = true
			if tp.crisis && rank(domain.VerdictCrisis) > rank(verdict) {
				verdict = domain.VerdictCrisis
			}
		}
	}

	var cats []string
	for c := range categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	return domain.SafetyScan{Verdict: verdict, Categories: cats}
}

func rank(v domain.SafetyVerdict) int {
	switch v {
	case domain.VerdictCrisis:
		return 2
	case domain.VerdictAdvisory:
		return 1
	default:
		return 0
	}
}
