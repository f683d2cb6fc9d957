package emotion

import "strings"

// DetectTopic classifies the situational topic of a message with simple
// keyword matching. The topic is recorded on the turn and forwarded to the
// role agents as framing context; "general" means no specific topic.
func DetectTopic(text string) string {
	t := strings.ToLower(text)

	contains := func(keys ...string) bool {
		for _, k := range keys {
			if strings.Contains(t, k) {
				return true
			}
		}
		return false
	}

	switch {
	case contains("cheat on me", "cheated on me", "cheating", "affair", "unfaithful"):
		return "relationship_cheating"
	case contains("broke up", "break up", "breakup", "heartbroken", "broke my heart", "dumped me", "left me"):
		return "relationship_breakup"
	case contains("fight with my", "argument with", "relationship fight", "partner ignored me", "we fought"):
		return "relationship_conflict"
	case contains("bully", "bullying", "called ugly", "name calling", "picked on", "made fun of"):
		return "bullying"
	case contains("no one invites", "nobody invites", "left out", "not invited", "alone on weekends"):
		return "left_out"
	case contains("my fault", "i'm the problem", "im the problem", "i'm worthless", "im worthless", "not good enough"):
		return "self_blame"
	case contains("panic", "panicking", "can't breathe", "cant breathe", "shaking", "freaking out", "spiraling"):
		return "panic"
	case contains("overthink", "stuck in my head", "can't stop thinking", "cant stop thinking", "looping thoughts", "rumination"):
		return "rumination"
	case contains("burnout", "burned out", "numb", "empty", "done with everything", "tired of everything"):
		return "burnout"
	case contains("died", "passed away", "funeral", "grief", "mourning"):
		return "grief"
	case contains("sad", "low", "bad day", "really down"):
		return "sadness"
	default:
		return "general"
	}
}
