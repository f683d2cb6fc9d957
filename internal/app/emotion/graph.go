package emotion

import (
	"context"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// Graph is the derived co-occurrence projection over a session's emotion
// tags: nodes are themes with occurrence counts, edges count how often two
// themes were tagged on the same turn inside the window. The turn log is
// authoritative; the graph is rebuilt from it and never written back.
type Graph struct {
	Nodes map[string]int `json:"nodes"`
	Edges []Edge         `json:"edges"`
}

// Edge weight is the co-occurrence count. A < B always holds so each pair
// appears once.
type Edge struct {
	A      string `json:"a"`
	B      string `json:"b"`
	Weight int    `json:"weight"`
}

// Summary aggregates a session's recent emotional trajectory.
type Summary struct {
	TotalTags     int     `json:"total_tags"`
	DominantTheme string  `json:"dominant_theme"`
	AvgConfidence float64 `json:"avg_confidence"`
	Trend         string  `json:"trend"` // improving, declining, stable, insufficient_data
}

// GraphBuilder projects turn-log emotion tags into Graphs, with a TTL
// cache so repeated reads inside a session do not rescan the log.
type GraphBuilder struct {
	store  domain.TurnStore
	window time.Duration
	cache  *gocache.Cache
	now    func() time.Time
}

func NewGraphBuilder(store domain.TurnStore, window, cacheTTL time.Duration) *GraphBuilder {
	return &GraphBuilder{
		store:  store,
		window: window,
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
		now:    time.Now,
	}
}

// BuildForSession returns the co-occurrence graph for turns inside the
// sliding window, serving a cached projection when fresh.
func (b *GraphBuilder) BuildForSession(ctx context.Context, sessionID domain.SessionID) (*Graph, error) {
	key := "graph:" + string(sessionID)
	if cached, ok := b.cache.Get(key); ok {
		return cached.(*Graph), nil
	}

	to := b.now()
	turns, err := b.store.Range(ctx, sessionID, to.Add(-b.window), to)
	if err != nil {
		return nil, fmt.Errorf("building emotion graph: %w", err)
	}

	g := &Graph{Nodes: map[string]int{}}
	pairs := map[[2]string]int{}
	for _, turn := range turns {
		themes := make([]string, 0, len(turn.Tags))
		for _, tag := range turn.Tags {
			g.Nodes[tag.Theme]++
			themes = append(themes, tag.Theme)
		}
		sort.Strings(themes)
		for i := 0; i < len(themes); i++ {
			for j := i + 1; j < len(themes); j++ {
				if themes[i] != themes[j] {
					pairs[[2]string{themes[i], themes[j]}]++
				}
			}
		}
	}
	for pair, w := range pairs {
		g.Edges = append(g.Edges, Edge{A: pair[0], B: pair[1], Weight: w})
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].A != g.Edges[j].A {
			return g.Edges[i].A < g.Edges[j].A
		}
		return g.Edges[i].B < g.Edges[j].B
	})

	b.cache.Set(key, g, gocache.DefaultExpiration)
	return g, nil
}

// Summarize computes the weekly summary for a session: dominant theme,
// average tag confidence, and a slope-based trend over average daily
// confidence (rising confidence in negative themes reads as declining).
func (b *GraphBuilder) Summarize(ctx context.Context, sessionID domain.SessionID) (*Summary, error) {
	to := b.now()
	turns, err := b.store.Range(ctx, sessionID, to.Add(-7*24*time.Hour), to)
	if err != nil {
		return nil, fmt.Errorf("summarizing emotions: %w", err)
	}

	counts := map[string]int{}
	var total int
	var confSum float64
	byDay := map[string][]float64{}
	var dayKeys []string

	for _, turn := range turns {
		day := turn.CreatedAt.Format("2006-01-02")
		for _, tag := range turn.Tags {
			counts[tag.Theme]++
			total++
			confSum += tag.Confidence
			if _, ok := byDay[day]; !ok {
				dayKeys = append(dayKeys, day)
			}
			byDay[day] = append(byDay[day], tag.Confidence)
		}
	}

	s := &Summary{TotalTags: total, Trend: "insufficient_data"}
	if total == 0 {
		return s, nil
	}
	s.AvgConfidence = confSum / float64(total)

	dominant := ""
	for theme, c := range counts {
		if dominant == "" || c > counts[dominant] || (c == counts[dominant] && theme < dominant) {
			dominant = theme
		}
	}
	s.DominantTheme = dominant

	if len(dayKeys) >= 3 {
		sort.Strings(dayKeys)
		ys := make([]float64, len(dayKeys))
		for i, day := range dayKeys {
			var sum float64
			for _, c := range byDay[day] {
				sum += c
			}
			ys[i] = sum / float64(len(byDay[day]))
		}
		slope := linearSlope(ys)
		switch {
		case slope > 0.05:
			s.Trend = "declining"
		case slope < -0.05:
			s.Trend = "improving"
		default:
			s.Trend = "stable"
		}
	}

	return s, nil
}

func linearSlope(ys []float64) float64 {
	n := float64(len(ys))
	var meanX, meanY float64
	for i, y := range ys {
		meanX += float64(i)
		meanY += y
	}
	meanX /= n
	meanY /= n

	var num, den float64
	for i, y := range ys {
		num += (float64(i) - meanX) * (y - meanY)
		den += (float64(i) - meanX) * (float64(i) - meanX)
	}
	if den == 0 {
		return 0
	}
	return num / den
}
