package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sanmarzano/orderbot/agent/agents/orchestrator"
	"github.com/sanmarzano/orderbot/agent/agents/specialist"
	contractx "github.com/sanmarzano/orderbot/agent/contract"
	intentx "github.com/sanmarzano/orderbot/agent/intent"
	llmx "github.com/sanmarzano/orderbot/agent/llm"
	menux "github.com/sanmarzano/orderbot/agent/menu"
	promptx "github.com/sanmarzano/orderbot/agent/prompt"
	statex "github.com/sanmarzano/orderbot/agent/state"
	toolx "github.com/sanmarzano/orderbot/agent/tool"
	configx "github.com/sanmarzano/orderbot/pkg/config"
	_ "github.com/sanmarzano/orderbot/pkg/logger/autoload"
	openrouterx "github.com/sanmarzano/orderbot/pkg/openrouter"
	orderdbx "github.com/sanmarzano/orderbot/pkg/orderdb"
)

type AppConfig struct {
	SessionID string `envconfig:"SESSION_ID" split_words:"true" default:"local-chat"`
	MenuPath  string `envconfig:"MENU_PATH" split_words:"true" default:"menu.json"`
	WatchMenu bool   `envconfig:"WATCH_MENU" split_words:"true" default:"true"`

	BusinessName     string `envconfig:"BUSINESS_NAME" split_words:"true" default:"San Marzano"`
	BusinessSchedule string `envconfig:"BUSINESS_SCHEDULE" split_words:"true" default:"de lunes a domingo, de 12:00 a 23:00"`
	BusinessPhone    string `envconfig:"BUSINESS_PHONE" split_words:"true" default:"(01) 555-0134"`
	BusinessAddress  string `envconfig:"BUSINESS_ADDRESS" split_words:"true" default:"Av. La Mar 1280, Miraflores"`

	TurnTimeout time.Duration `envconfig:"TURN_TIMEOUT" split_words:"true" default:"60s"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("ORDERBOT")

	catalog := menux.MustLoadCatalog(appCfg.MenuPath)
	if appCfg.WatchMenu {
		watcher, err := menux.NewWatcher(appCfg.MenuPath, catalog)
		if err != nil {
			log.Warn().Err(err).Str("path", appCfg.MenuPath).Msg("main: menu watcher disabled")
		} else {
			defer watcher.Close()
		}
	}
	resolver := menux.NewResolver(catalog)

	gateway, closeGateway := buildGateway()
	defer closeGateway()

	executor := toolx.NewExecutor(toolx.Deps{Resolver: resolver, Gateway: gateway})
	registry, err := specialist.NewRegistry(specialist.Deps{
		Exec: executor,
		Info: specialist.BusinessInfo{
			Name:     appCfg.BusinessName,
			Schedule: appCfg.BusinessSchedule,
			Phone:    appCfg.BusinessPhone,
			Address:  appCfg.BusinessAddress,
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("main: build specialist registry")
	}

	opts := []orchestrator.Option{}
	if classifier := buildClassifier(); classifier != nil {
		opts = append(opts, orchestrator.WithClassifier(classifier))
	}

	orch, err := orchestrator.New(statex.NewMemoryStore(), registry, resolver, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("main: build orchestrator")
	}

	runChatLoop(orch, appCfg)
}

func buildGateway() (contractx.PersistenceGateway, func()) {
	dbCfg, err := configx.New[orderdbx.Config]("ORDERDB")
	if err != nil || dbCfg.DSN == "" {
		log.Info().Msg("main: no ORDERDB_DSN, using in-memory order store")
		return orderdbx.NewMemory(), func() {}
	}

	gw, err := orderdbx.New(*dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("main: connect order store")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gw.CreateSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("main: create order store schema")
	}
	return gw, func() { _ = gw.Close() }
}

// buildClassifier wires the model-backed intent classifier when OpenRouter
// credentials are present. Returning nil leaves the rule classifier in
// charge.
func buildClassifier() contractx.Classifier {
	llmCfg, err := configx.New[llmx.Config]("OPENROUTER")
	if err != nil || !llmCfg.Enabled() {
		log.Info().Msg("main: no OpenRouter credentials, using rule-based intent classifier")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	routerCfg := llmCfg.OpenRouterForClassifier()
	if err := openrouterx.VerifyCredentials(ctx, routerCfg); err != nil {
		log.Warn().Err(err).Msg("main: OpenRouter credential check failed, using rule-based classifier")
		return nil
	}

	chatModel, err := routerCfg.New(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("main: chat model unavailable, using rule-based classifier")
		return nil
	}

	prompts := promptx.LoadPromptSet()
	classifier, err := intentx.NewLLMClassifier(ctx, chatModel, prompts.Classifier)
	if err != nil {
		log.Warn().Err(err).Msg("main: classifier graph failed to compile, using rule-based classifier")
		return nil
	}
	return classifier
}

func runChatLoop(orch *orchestrator.Orchestrator, cfg *AppConfig) {
	fmt.Println("San Marzano listo. Escribe tu mensaje (\"salir\" para terminar).")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "salir" || text == "exit" {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.TurnTimeout)
		reply, err := orch.HandleTurn(ctx, cfg.SessionID, text)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("main: turn failed")
			fmt.Println("Disculpa, tuvimos un problema. Intenta de nuevo en un momento.")
			continue
		}
		fmt.Println(reply)
	}
}
