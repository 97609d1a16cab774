// Command impostor is a terminal client for the impersonation game. It hosts
// the session controller and exposes a small line-based command surface; a
// saved session resumes automatically on startup.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/turingarcade/impostor/internal/api"
	"github.com/turingarcade/impostor/internal/config"
	"github.com/turingarcade/impostor/internal/controller"
	"github.com/turingarcade/impostor/internal/phasetimer"
	"github.com/turingarcade/impostor/internal/session"
	"github.com/turingarcade/impostor/internal/state"
	"github.com/turingarcade/impostor/internal/transport"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := "impostor.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	ctrl := controller.New(
		clockwork.NewRealClock(),
		session.NewStore(cfg.Session.Path),
		api.NewClient(cfg.Server.APIBaseURL),
		transport.NewSupervisor(cfg.Server.WSBaseURL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ctrl.Run(ctx)
	go renderLoop(ctx, ctrl)

	fmt.Println("impostor client ready; type 'help' for commands")
	repl(ctx, ctrl)
}

// renderLoop prints state changes and countdown warnings as they happen.
func renderLoop(ctx context.Context, ctrl *controller.Controller) {
	var lastPhase state.Phase
	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-ctrl.Signals():
			switch sig {
			case phasetimer.SignalExpired:
				fmt.Println("** time is up **")
			default:
				snap := ctrl.Snapshot()
				fmt.Printf("** %ds remaining **\n", snap.Remaining)
			}
		case <-ctrl.Changes():
			snap := ctrl.Snapshot()
			if snap.Phase != lastPhase {
				lastPhase = snap.Phase
				fmt.Printf("-- phase: %s --\n", snap.Phase)
			}
			printLatest(snap)
		}
	}
}

// printLatest shows the tail of the feed for the current phase.
func printLatest(snap controller.Snapshot) {
	var feed []state.ChatMessage
	switch snap.Phase {
	case state.PhaseLearning:
		feed = snap.LearningFeed
	case state.PhasePlaying, state.PhaseUnrestrictedChat:
		feed = snap.PlayingFeed
	case state.PhaseMindGames:
		feed = snap.MindGamesFeed
	case state.PhaseReact:
		feed = snap.ReactFeed
	default:
		return
	}
	if len(feed) == 0 {
		return
	}
	last := feed[len(feed)-1]
	name := last.Username
	if name == "" {
		name = last.SenderID
	}
	fmt.Printf("[%s] %s\n", name, last.Content)
}

func repl(ctx context.Context, ctrl *controller.Controller) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")

		var err error
		switch cmd {
		case "help":
			printHelp()
		case "create":
			mode, username, ok := strings.Cut(rest, " ")
			if !ok {
				fmt.Println("usage: create <mode> <username>")
				continue
			}
			err = ctrl.CreateAndJoinGame(ctx, mode, username)
		case "join":
			gameID, username, ok := strings.Cut(rest, " ")
			if !ok {
				fmt.Println("usage: join <game_id> <username>")
				continue
			}
			err = ctrl.JoinGame(ctx, gameID, username)
		case "start":
			err = ctrl.StartGame(ctx)
		case "say":
			err = ctrl.SendChat(rest)
		case "answer":
			err = ctrl.SubmitMindGameAnswer(rest)
		case "vote":
			aiID, partnerID, _ := strings.Cut(rest, " ")
			err = ctrl.SubmitVote(ctx, api.Vote{VotedAIID: aiID, GuessedPartnerID: partnerID})
		case "status":
			printStatus(ctrl.Snapshot())
		case "leave":
			ctrl.LeaveToMenu()
		case "quit", "exit":
			return
		default:
			fmt.Printf("unknown command %q; type 'help'\n", cmd)
		}
		if err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func printStatus(snap controller.Snapshot) {
	fmt.Printf("phase=%s game=%s player=%s connected=%v\n",
		snap.Phase, snap.GameID, snap.PlayerID, snap.Connected)
	if snap.CountdownActive {
		fmt.Printf("time remaining: %ds\n", snap.Remaining)
	}
	for _, p := range snap.Players {
		marker := " "
		if !p.Connected {
			marker = "x"
		}
		fmt.Printf("  [%s] %s (%d)\n", marker, p.Username, p.Score)
	}
	if snap.ActivePrompt != nil {
		fmt.Printf("mind game: %s\n", snap.ActivePrompt.Prompt)
	}
	if snap.Results != nil {
		fmt.Printf("ai success rate: %.0f%%\n", snap.Results.AISuccessRate*100)
	}
}

func printHelp() {
	fmt.Print(`commands:
  create <mode> <username>   create a game and join it
  join <game_id> <username>  join an existing game
  start                      start the game (host)
  say <text>                 send a chat message
  answer <text>              answer the active mind game
  vote <ai_id> [partner_id]  cast the final vote
  status                     show session state
  leave                      leave to the menu
  quit                       exit
`)
}
