package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/chorusml/chorus/agent/agents/orchestrator"
	unitsx "github.com/chorusml/chorus/agent/agents/units"
	contractx "github.com/chorusml/chorus/agent/contract"
	historyx "github.com/chorusml/chorus/agent/history"
	llmx "github.com/chorusml/chorus/agent/llm"
	configx "github.com/chorusml/chorus/pkg/config"
	logx "github.com/chorusml/chorus/pkg/logger"
	recallx "github.com/chorusml/chorus/pkg/recall"
)

type AppConfig struct {
	UserID         string `envconfig:"USER_ID" split_words:"true" default:"local-user"`
	ConversationID string `envconfig:"CONVERSATION_ID" split_words:"true" default:"local-conversation"`
}

func main() {
	logCfg := configx.MustNew[logx.Config]("LOG")
	logx.Init(*logCfg)

	appCfg := configx.MustNew[AppConfig]("CHORUS")
	llmCfg := configx.MustNew[llmx.Config]("LLM")
	recallCfg := configx.MustNew[recallx.Config]("RECALL")
	engineCfg := configx.MustNew[orchestratorx.Config]("ENGINE")
	historyCfg := configx.MustNew[historyx.Config]("HISTORY")

	ctx := context.Background()

	recallClient := recallx.MustNew(*recallCfg)
	registry, err := unitsx.NewRegistry(ctx, *llmCfg, unitsx.NewRecallBackend(recallClient))
	if err != nil {
		log.Fatal().Err(err).Msg("build unit registry")
	}

	var recorder contractx.HistoryRecorder
	if strings.TrimSpace(historyCfg.DSN) != "" {
		db, err := historyx.Open(historyCfg.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open history database")
		}
		defer db.Close()
		recorder, err = historyx.NewRecorder(db, recallClient)
		if err != nil {
			log.Fatal().Err(err).Msg("build history recorder")
		}
	}

	service, err := orchestratorx.New(registry, recorder, *engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	text := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if text == "" {
		text = readStdin()
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: chorus [-env path] <message>")
		os.Exit(2)
	}

	result, err := service.Process(ctx, orchestratorx.ProcessRequest{
		UserID:         appCfg.UserID,
		ConversationID: appCfg.ConversationID,
		Text:           text,
	})
	if err != nil {
		if errors.Is(err, contractx.ErrAllUnitsFailed) {
			fmt.Println("Sorry, I wasn't able to generate a response. Please try rephrasing your question.")
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("process request")
	}

	fmt.Println(result.FinalOutput)
	log.Info().
		Str("intent", result.Intent).
		Interface("units_used", result.UnitsUsed).
		Msg("request completed")
}

func readStdin() string {
	info, err := os.Stdin.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice != 0 {
		return ""
	}
	scanner := bufio.NewScanner(os.Stdin)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
