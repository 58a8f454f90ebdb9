package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"truco/internal/app"
	"truco/internal/domain"
)

const quitOption = "Quit"

func main() {
	playersFlag := flag.String("players", "player1,player2", "comma separated seat order")
	limitFlag := flag.Int("limit", 15, "score limit")
	flag.Parse()

	players := strings.Split(*playersFlag, ",")
	for i := range players {
		players[i] = strings.TrimSpace(players[i])
	}

	title, err := pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("T", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("ruco", pterm.FgDarkGray.ToStyle()),
	).Srender()
	if err == nil {
		pterm.Print(title)
	}

	ctx := context.Background()
	rooms := app.NewRegistry(app.NewService(nil), nil, nil)
	res, err := rooms.Create(ctx, app.CreateRoomRequest{Players: players, ScoreLimit: *limitFlag})
	if err != nil {
		pterm.Error.Printfln("Could not start the match: %v", err)
		os.Exit(1)
	}
	roomID := res.RoomID
	printEvents(res.Events)

	for {
		snap, err := rooms.Snapshot(roomID)
		if err != nil {
			pterm.Error.Println(err.Error())
			os.Exit(1)
		}

		if snap.Match.State == domain.MatchGameEnd {
			again, _ := pterm.DefaultInteractiveConfirm.WithDefaultText("Play again?").WithDefaultValue(true).Show()
			if !again {
				return
			}
			res, err := rooms.Restart(ctx, roomID)
			if err != nil {
				pterm.Error.Printfln("Restart failed: %v", err)
				return
			}
			printEvents(res.Events)
			continue
		}

		player := snap.Hand.CurrentTurn
		view, err := rooms.View(roomID, player)
		if err != nil {
			pterm.Error.Println(err.Error())
			os.Exit(1)
		}
		printView(view)

		options, actions := actionOptions(view.LegalActions)
		choice, _ := pterm.DefaultInteractiveSelect.
			WithDefaultText(fmt.Sprintf("%s, choose your move", player)).
			WithOptions(append(options, quitOption)).
			Show()
		if choice == quitOption {
			if _, err := rooms.Delete(ctx, roomID); err != nil {
				pterm.Warning.Println(err.Error())
			}
			pterm.Info.Println("Match abandoned.")
			return
		}

		act, ok := actions[choice]
		if !ok {
			continue
		}
		res, err := rooms.Dispatch(ctx, roomID, act.Event(player))
		if err != nil {
			pterm.Error.Printfln("Invalid move: %v", err)
			continue
		}
		printEvents(res.Events)
	}
}

func actionOptions(legal []domain.Action) ([]string, map[string]domain.Action) {
	options := make([]string, 0, len(legal))
	byLabel := make(map[string]domain.Action, len(legal))
	for _, a := range legal {
		label := string(a.Type)
		if a.Card != nil {
			label = "Play " + a.Card.String()
		}
		options = append(options, label)
		byLabel[label] = a
	}
	return options, byLabel
}

func printView(v app.PlayerView) {
	pbox := pterm.DefaultBox.WithLeftPadding(4).WithRightPadding(4).WithTopPadding(1).WithBottomPadding(1)

	scores := ""
	for _, p := range v.Players {
		scores += pterm.Sprintfln("%s: %d (%d cards)", p.UserID, p.Score, p.CardsInHand)
	}

	table := ""
	for _, play := range v.Table {
		table += pterm.Sprintfln("%s played %s", play.PlayerID, play.Card.String())
	}
	if table == "" {
		table = "No cards played yet\n"
	}
	if v.Envido != nil {
		table += pterm.LightYellow(fmt.Sprintf("Envido %s for %d\n", v.Envido.State, v.Envido.Stake))
	}
	if v.Truco != nil {
		table += pterm.LightYellow(fmt.Sprintf("Truco %s for %d\n", v.Truco.State, v.Truco.Stake))
	}

	cards := make([]string, 0, len(v.Hand))
	for _, c := range v.Hand {
		cards = append(cards, c.String())
	}
	hand := pterm.BgGreen.Sprintf(" %s ", strings.Join(cards, " - "))

	pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{
			{Data: pbox.WithTitle(pterm.LightCyan("|SCORES|")).WithTitleTopCenter().Sprint(scores)},
			{Data: pbox.WithTitle(pterm.LightYellow("|TABLE|")).WithTitleTopCenter().Sprint(table)},
		},
		{
			{Data: pbox.WithTitle(v.CurrentTurn).WithTitleTopLeft().Sprintf("Mano: %s\n%s\n", v.StartingPlayer, hand)},
		},
	}).Render()
}

func printEvents(events []app.Event) {
	for _, ev := range events {
		switch p := ev.Payload.(type) {
		case app.GameStartedPayload:
			pterm.Success.Printfln("Match started: %s to %d points", strings.Join(p.Players, ", "), p.ScoreLimit)
		case app.HandDealtPayload:
			if p.UserID == p.StartingPlayer {
				pterm.Info.Printfln("New hand, %s is mano", p.StartingPlayer)
			}
		case app.CardPlayedPayload:
			pterm.Info.Printfln("%s played %s", p.UserID, p.Card.String())
		case app.BidPlacedPayload:
			pterm.Info.Printfln("%s called %s (%d)", p.UserID, p.Bid, p.Stake)
		case app.BidAnsweredPayload:
			pterm.Info.Printfln("%s answered %s", p.UserID, p.Answer)
		case app.PlayerForfeitPayload:
			pterm.Warning.Printfln("%s folded", p.UserID)
		case app.ScoreUpdatedPayload:
			pterm.Info.Printfln("%s +%d (%s)", p.UserID, p.Points, p.Reason)
		case app.HandEndedPayload:
			if p.TrickWinner != "" {
				pterm.Info.Printfln("Hand over, tricks won by %s", p.TrickWinner)
			} else {
				pterm.Info.Println("Hand over")
			}
		case app.GameEndedPayload:
			if p.Winner != "" {
				pterm.Success.Printfln("%s wins the match!", p.Winner)
			} else {
				pterm.Warning.Println("Match ended without a winner")
			}
		}
	}
}
