package main

import (
	"context"
	"log"
	"net/http"

	httpadapter "github.com/soulsync-ai/soulsync-agent/internal/adapters/http"
	"github.com/soulsync-ai/soulsync-agent/internal/adapters/llm"
	firestorestore "github.com/soulsync-ai/soulsync-agent/internal/adapters/storage/firestore"
	memstore "github.com/soulsync-ai/soulsync-agent/internal/adapters/storage/memory"
	sqlitestore "github.com/soulsync-ai/soulsync-agent/internal/adapters/storage/sqlite"
	"github.com/soulsync-ai/soulsync-agent/internal/app/agentflow"
	"github.com/soulsync-ai/soulsync-agent/internal/app/conversation"
	"github.com/soulsync-ai/soulsync-agent/internal/app/emotion"
	"github.com/soulsync-ai/soulsync-agent/internal/app/reflection"
	"github.com/soulsync-ai/soulsync-agent/internal/app/safety"
	"github.com/soulsync-ai/soulsync-agent/internal/config"
	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// LLM: mock by default in local mode, Vertex otherwise.
	var (
		llmClient domain.LLMClient
		err       error
	)
	if cfg.UseMockLLM {
		log.Println("[LLM] Using mock LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		log.Println("[LLM] Using Vertex LLM client")
		llmClient, err = llm.NewVertexClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			log.Fatalf("error initializing Vertex LLM client: %v", err)
		}
	}

	// Storage: Firestore, SQLite or Memory.
	var sessionStore domain.SessionStore
	var turnStore domain.TurnStore

	switch cfg.StorageBackend {
	case "firestore":
		log.Printf("[STORE] Using Firestore storage (project=%s)", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}
		sessionStore = fsStore
		turnStore = fsStore

	case "sqlite":
		log.Printf("[STORE] Using SQLite storage (path=%s)", cfg.SQLitePath)
		dbStore, err := sqlitestore.NewStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("error initializing SQLite store: %v", err)
		}
		sessionStore = dbStore
		turnStore = dbStore

	default:
		log.Println("[STORE] Using in-memory storage")
		sessionStore = memstore.NewSessionStore()
		turnStore = memstore.NewTurnStore()
	}

	// Safety scanner, with optional YAML phrase overrides.
	phrases := safety.DefaultPhrases()
	if cfg.SafetyPhrasesPath != "" {
		phrases, err = safety.LoadPhrases(cfg.SafetyPhrasesPath)
		if err != nil {
			log.Fatalf("error loading safety phrases: %v", err)
		}
	}
	scanner := safety.NewScanner(phrases)

	// Emotion tagger, same deal.
	lexicon := emotion.DefaultLexicon()
	if cfg.EmotionLexiconPath != "" {
		lexicon, err = emotion.LoadLexicon(cfg.EmotionLexiconPath)
		if err != nil {
			log.Fatalf("error loading emotion lexicon: %v", err)
		}
	}
	tagger := emotion.NewTagger(lexicon)

	// Role agents and their weights.
	weights := agentflow.NewWeightTable(agentflow.WeightBounds{
		Default: cfg.WeightDefault,
		Min:     cfg.WeightMin,
		Max:     cfg.WeightMax,
	}, domain.MergePrecedence...)

	registry := agentflow.NewRegistry()
	for _, agent := range []agentflow.Agent{
		agentflow.NewListenerAgent(llmClient),
		agentflow.NewCognitiveAgent(llmClient),
		agentflow.NewMindfulnessAgent(llmClient),
	} {
		if err := registry.Register(agent); err != nil {
			log.Fatalf("error registering agent: %v", err)
		}
	}

	orchestrator := agentflow.NewOrchestrator(registry, scanner, weights, cfg.AgentTimeout, cfg.TurnTimeout)

	// Background reflection pass over finished sessions.
	reflector := reflection.NewReflector(turnStore, weights, cfg.LearningRate, cfg.ScoreBaseline)
	scheduler, err := reflection.NewScheduler(reflector, cfg.ReflectionInterval)
	if err != nil {
		log.Fatalf("error creating reflection scheduler: %v", err)
	}
	scheduler.Start()
	defer func() { _ = scheduler.Shutdown() }()

	graphs := emotion.NewGraphBuilder(turnStore, cfg.GraphWindow, cfg.GraphCacheTTL)

	svc := conversation.NewService(sessionStore, turnStore, orchestrator, tagger, graphs, reflector)

	handler := httpadapter.NewServer(svc)

	port := ":" + cfg.Port
	log.Println("SoulSync API listening on port:", port)
	if err := http.ListenAndServe(port, handler); err != nil {
		log.Fatal(err)
	}
}
