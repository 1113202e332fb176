package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/pkg/tictactoe"
)

var (
	stdout io.Writer = os.Stdout
	stdin  io.Reader = os.Stdin
)

func main() {
	defer klog.Flush()
	if err := loadEnv(envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(context.Background(), os.Args[1:]); err != nil {
		klog.Flush()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:])
	case "evaluate":
		return runEvaluate(ctx, args[1:])
	case "move":
		return runMove(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "play":
		return runPlay(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "evaluations":
		return runEvaluations(ctx, args[1:])
	case "games":
		return runGames(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runTrain(ctx context.Context, args []string) error {
	fs := newFlagSet("train")
	cf := addClientFlags(fs)
	configPath := fs.String("config", "", "optional training config JSON path")
	runID := fs.String("run-id", "", "explicit run id (optional)")
	episodes := fs.Int("episodes", 0, "self-play episodes")
	alpha := fs.Float64("alpha", 0, "learning rate")
	gamma := fs.Float64("gamma", 0, "discount factor")
	epsilonMax := fs.Float64("epsilon-max", 0, "initial exploration rate")
	epsilonMin := fs.Float64("epsilon-min", 0, "exploration floor")
	decay := fs.Float64("decay", 0, "exploration decay rate per episode")
	checkpoints := fs.Int("checkpoints", 0, "evenly spaced evaluation checkpoints (0 disables)")
	evalGames := fs.Int("eval-games", 0, "games per checkpoint evaluation")
	seed := fs.Uint64("seed", 0, "self-play rng seed")
	evalSeed := fs.Uint64("eval-seed", 0, "checkpoint evaluation rng seed")
	attackStep := fs.Float64("attack-step", 0, "per-move reward for attack")
	defenceStep := fs.Float64("defence-step", 0, "per-move reward for defence")
	continueRun := fs.Bool("continue", false, "continue from the stored tables")
	jsonOut := fs.Bool("json", false, "emit summary as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	cfg, err := loadTrainConfig(*configPath)
	if err != nil {
		return err
	}
	if err := overrideFromFlags(&cfg, setFlags, map[string]any{
		"run-id":       *runID,
		"episodes":     *episodes,
		"alpha":        *alpha,
		"gamma":        *gamma,
		"epsilon-max":  *epsilonMax,
		"epsilon-min":  *epsilonMin,
		"decay":        *decay,
		"checkpoints":  *checkpoints,
		"eval-games":   *evalGames,
		"seed":         *seed,
		"eval-seed":    *evalSeed,
		"attack-step":  *attackStep,
		"defence-step": *defenceStep,
	}); err != nil {
		return err
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer client.Close()

	summary, err := client.Train(ctx, tictactoe.TrainRequest{Config: cfg, Continue: *continueRun})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary)
	}

	fmt.Fprintf(stdout, "run_id=%s episodes=%s x_wins=%s o_wins=%s draws=%s states_attack=%s states_defence=%s duration=%s\n",
		summary.RunID,
		humanize.Comma(int64(summary.Episodes)),
		humanize.Comma(int64(summary.XWins)),
		humanize.Comma(int64(summary.OWins)),
		humanize.Comma(int64(summary.Draws)),
		humanize.Comma(int64(summary.AttackStates)),
		humanize.Comma(int64(summary.DefenceStates)),
		summary.Duration,
	)
	for _, cp := range summary.Checkpoints {
		fmt.Fprintf(stdout, "checkpoint episode=%d epsilon=%.4f attack=%s defence=%s\n",
			cp.Episode, cp.Epsilon, tallyString(cp.Attack), tallyString(cp.Defence))
	}
	fmt.Fprintf(stdout, "artifacts=%s\n", summary.ArtifactsDir)
	return nil
}

func runEvaluate(ctx context.Context, args []string) error {
	fs := newFlagSet("evaluate")
	cf := addClientFlags(fs)
	games := fs.Int("games", 1000, "games per role")
	seed := fs.Uint64("seed", 0, "evaluation rng seed (0 uses the default)")
	runID := fs.String("run-id", "", "run whose hyperparameters are recorded (default latest)")
	purpose := fs.String("purpose", tictactoe.PurposeManual, "purpose label stored with the records")
	jsonOut := fs.Bool("json", false, "emit records as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *games <= 0 {
		return errors.New("games must be > 0")
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer client.Close()

	records, err := client.Evaluate(ctx, tictactoe.EvaluateRequest{
		Games:   *games,
		Seed:    *seed,
		Purpose: *purpose,
		RunID:   *runID,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(records)
	}
	for _, rec := range records {
		printEvaluation(rec)
	}
	return nil
}

func runMove(ctx context.Context, args []string) error {
	fs := newFlagSet("move")
	cf := addClientFlags(fs)
	strategy := fs.String("strategy", "attack", "strategy: attack|defence")
	boardFlag := fs.String("board", "---/---/---", "board as rows of X, O and -, e.g. X--/-O-/---")
	jsonOut := fs.Bool("json", false, "emit move as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	b, err := board.Parse(*boardFlag)
	if err != nil {
		return err
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer client.Close()

	resp, err := client.Move(ctx, tictactoe.MoveRequest{Strategy: *strategy, Board: b})
	if err != nil {
		return err
	}
	if *jsonOut {
		type moveItem struct {
			Strategy    model.Role   `json:"strategy"`
			Position    *board.Coord `json:"position"`
			ModelLoaded bool         `json:"model_loaded"`
		}
		item := moveItem{Strategy: resp.Role, ModelLoaded: resp.ModelLoaded}
		if resp.Found {
			item.Position = &resp.Coord
		}
		return writeJSON(item)
	}
	if !resp.Found {
		fmt.Fprintln(stdout, "no move available")
		return nil
	}
	fmt.Fprintf(stdout, "row=%d col=%d model_loaded=%t\n", resp.Coord.Row, resp.Coord.Col, resp.ModelLoaded)
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := newFlagSet("show")
	cf := addClientFlags(fs)
	strategy := fs.String("strategy", "", "table to show (default: the side to move)")
	boardFlag := fs.String("board", "---/---/---", "board as rows of X, O and -")
	colour := fs.Bool("color", true, "colour the output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	b, err := board.Parse(*boardFlag)
	if err != nil {
		return err
	}
	r := newRenderer(*colour)

	fmt.Fprint(stdout, r.board(b))
	if res := b.Terminal(); res.Terminal {
		fmt.Fprintf(stdout, "result: %s\n", tictactoe.ResultLabel(res))
		return nil
	}

	role, ok := model.RoleForMark(b.ToMove())
	if *strategy != "" {
		if role, err = model.ParseRole(*strategy); err != nil {
			return err
		}
		ok = true
	}
	if !ok {
		return errors.Errorf("cannot tell whose turn it is on %s", b)
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer client.Close()

	table, loaded, err := client.Table(ctx, role)
	if err != nil {
		return err
	}
	values, seen := table.Lookup(b.Key())
	fmt.Fprintf(stdout, "%s values (model_loaded=%t seen=%t states=%s):\n",
		role, loaded, seen, humanize.Comma(int64(table.Len())))
	fmt.Fprint(stdout, r.values(b, values))
	return nil
}

func runPlay(ctx context.Context, args []string) error {
	fs := newFlagSet("play")
	cf := addClientFlags(fs)
	human := fs.String("human", "x", "your mark: x|o (x moves first)")
	strategy := fs.String("strategy", "", "engine strategy (default: the role of the engine's mark)")
	colour := fs.Bool("color", true, "colour the output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	humanMark, err := board.ParseMark(strings.ToUpper(*human))
	if err != nil || humanMark == board.Empty {
		return errors.Errorf("human mark must be x or o, got %q", *human)
	}
	engineRole, _ := model.RoleForMark(humanMark.Opponent())
	if *strategy != "" {
		if engineRole, err = model.ParseRole(*strategy); err != nil {
			return err
		}
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer client.Close()

	r := newRenderer(*colour)
	scanner := bufio.NewScanner(stdin)
	var (
		b     board.Board
		moves []board.Coord
	)
	mark := board.X
	for !b.Terminal().Terminal {
		fmt.Fprint(stdout, r.board(b))
		var c board.Coord
		if mark == humanMark {
			var quit bool
			c, quit, err = readMove(scanner, b)
			if err != nil {
				return err
			}
			if quit {
				break
			}
		} else {
			resp, err := client.Move(ctx, tictactoe.MoveRequest{Strategy: engineRole.String(), Board: b})
			if err != nil {
				return err
			}
			if !resp.Found {
				break
			}
			c = resp.Coord
			fmt.Fprintf(stdout, "engine (%s) plays %d %d\n", engineRole, c.Row, c.Col)
		}
		if b, err = b.Apply(c, mark); err != nil {
			return err
		}
		moves = append(moves, c)
		mark = mark.Opponent()
	}

	fmt.Fprint(stdout, r.board(b))
	if len(moves) == 0 {
		fmt.Fprintln(stdout, "no moves played")
		return nil
	}
	rec, err := client.RecordGame(ctx, tictactoe.GameRequest{Strategy: engineRole.String(), Moves: moves})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "result: %s (game %s)\n", rec.Result, rec.ID)
	return nil
}

// readMove prompts until the player enters a legal "row col" or quits.
func readMove(scanner *bufio.Scanner, b board.Board) (board.Coord, bool, error) {
	for {
		fmt.Fprint(stdout, "your move (row col, q to quit): ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return board.Coord{}, false, errors.WithStack(err)
			}
			return board.Coord{}, true, nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "q" || line == "quit" {
			return board.Coord{}, true, nil
		}
		c, err := parseCoord(line)
		if err != nil {
			fmt.Fprintln(stdout, err)
			continue
		}
		if b.At(c) != board.Empty {
			fmt.Fprintf(stdout, "cell %d %d is taken\n", c.Row, c.Col)
			continue
		}
		return c, false, nil
	}
}

func parseCoord(s string) (board.Coord, error) {
	fields := strings.Fields(strings.ReplaceAll(s, ",", " "))
	if len(fields) != 2 {
		return board.Coord{}, errors.Errorf("expected \"row col\", got %q", s)
	}
	row, err := strconv.Atoi(fields[0])
	if err != nil {
		return board.Coord{}, errors.Wrap(err, "row")
	}
	col, err := strconv.Atoi(fields[1])
	if err != nil {
		return board.Coord{}, errors.Wrap(err, "col")
	}
	c := board.Coord{Row: row, Col: col}
	if !c.Valid() {
		return board.Coord{}, errors.Errorf("cell %d %d is off the board", row, col)
	}
	return c, nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := newFlagSet("runs")
	cf := addClientFlags(fs)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer client.Close()

	entries, err := client.Runs(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "no runs found")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(stdout, "run_id=%s created_at=%s episodes=%s seed=%d alpha=%g gamma=%g attack_win=%.1f%% defence_hold=%.1f%% states=%d/%d\n",
			e.RunID,
			e.CreatedAtUTC,
			humanize.Comma(int64(e.Episodes)),
			e.Seed,
			e.LearningRate,
			e.Discount,
			100*e.AttackWinRate,
			100*e.DefenceHoldRate,
			e.AttackStates,
			e.DefenceStates,
		)
	}
	return nil
}

func runEvaluations(ctx context.Context, args []string) error {
	fs := newFlagSet("evaluations")
	cf := addClientFlags(fs)
	limit := fs.Int("limit", 20, "max records to list (0 lists all)")
	jsonOut := fs.Bool("json", false, "emit records as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer client.Close()

	records, err := client.Evaluations(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "no evaluations found")
		return nil
	}
	for _, rec := range records {
		printEvaluation(rec)
	}
	return nil
}

func runGames(ctx context.Context, args []string) error {
	fs := newFlagSet("games")
	cf := addClientFlags(fs)
	limit := fs.Int("limit", 20, "max games to list (0 lists all)")
	jsonOut := fs.Bool("json", false, "emit games as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := cf.open()
	if err != nil {
		return err
	}
	defer client.Close()

	games, err := client.Games(ctx, *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(games)
	}
	if len(games) == 0 {
		fmt.Fprintln(stdout, "no games found")
		return nil
	}
	for _, g := range games {
		fmt.Fprintf(stdout, "id=%s created_at=%s strategy=%s moves=%d board=%s result=%s\n",
			g.ID, g.CreatedAtUTC, g.Strategy, len(g.Moves), g.FinalBoard, g.Result)
	}
	return nil
}

func printEvaluation(rec model.EvaluationRecord) {
	fmt.Fprintf(stdout, "created_at=%s run_id=%s purpose=%s role=%s wins=%d draws=%d losses=%d win=%.1f%% draw=%.1f%% loss=%.1f%%\n",
		rec.CreatedAtUTC, rec.RunID, rec.Purpose, rec.Role,
		rec.Wins, rec.Draws, rec.Losses, rec.WinPct, rec.DrawPct, rec.LossPct)
}

func tallyString(t model.Tally) string {
	return fmt.Sprintf("%d/%d/%d", t.Wins, t.Draws, t.Losses)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return errors.Errorf("%s\nusage: tttctl <train|evaluate|move|show|play|runs|evaluations|games> [flags]", msg)
}
