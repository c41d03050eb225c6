package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ut.ee/course-advisor/internal/assembler"
	"ut.ee/course-advisor/internal/config"
	"ut.ee/course-advisor/internal/core"
	"ut.ee/course-advisor/internal/filter"
	"ut.ee/course-advisor/internal/session"
)

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	statusColor = color.New(color.FgHiBlack)
	titleColor  = color.New(color.FgGreen, color.Bold)
	errorColor  = color.New(color.FgRed)
	costColor   = color.New(color.FgYellow)
)

func runChat(cmd *cobra.Command, args []string) error {
	cfg := config.AppConfig
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	apiKey, _ := flags.GetString("api-key")
	if apiKey == "" {
		apiKey = cfg.CompletionAPIKey
	}
	var sel filter.Selections
	sel.Semester, _ = flags.GetString("semester")
	sel.Language, _ = flags.GetString("language")
	sel.Level, _ = flags.GetString("level")
	sel.CreditsMin, _ = flags.GetFloat64("credits-min")
	sel.CreditsMax, _ = flags.GetFloat64("credits-max")
	topK, _ := flags.GetInt("top-k")

	state := session.NewState("terminal")
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Ask about courses. /clear resets the conversation, /quit exits.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		promptColor.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			state.Reset()
			statusColor.Fprintln(out, "conversation cleared")
			continue
		}

		turn, err := a.advisor.HandleTurn(ctx, state, core.TurnRequest{
			Utterance:  line,
			APIKey:     apiKey,
			Selections: sel,
			TopK:       topK,
			Progress:   func(msg string) { statusColor.Fprintln(out, msg) },
		})
		if err != nil {
			return err
		}
		printTurn(ctx, out, turn, state, a)
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
	}
	return scanner.Err()
}

func printTurn(ctx context.Context, out io.Writer, turn *core.Turn, state *session.State, a *app) {
	if !turn.FollowUp {
		printCards(out, turn.Cards)
	}

	if !turn.Streaming() {
		fmt.Fprintln(out, turn.Result().Reply)
		return
	}

	fmt.Fprintln(out)
	for frag := range turn.Fragments() {
		fmt.Fprint(out, frag)
		if ctx.Err() != nil {
			break
		}
	}
	fmt.Fprintln(out)

	res := turn.Drain()
	if res.Notice != "" {
		errorColor.Fprintln(out, res.Notice)
	}

	in, outTok := state.Tokens()
	costColor.Fprintf(out, "tokens in/out: %d/%d  cost: $%.6f\n", in, outTok, a.costs.Estimate(in, outTok))
}

func printCards(out io.Writer, cards []assembler.Card) {
	for _, c := range cards {
		titleColor.Fprintf(out, "%d. %s", c.Rank, c.Title)
		fmt.Fprintf(out, " (%s)  %s\n", c.Code, c.MatchPercent)
		if c.AltTitle != "" {
			fmt.Fprintf(out, "   %s\n", c.AltTitle)
		}
		fmt.Fprintf(out, "   %s: %s | %s: %s | %s: %s | %s: %s\n",
			c.Labels.Credits, c.Credits, c.Labels.Semester, c.Semester,
			c.Labels.Language, c.Languages, c.Labels.Level, c.Levels)
		statusColor.Fprintf(out, "   %s\n", c.URL)
	}
}
