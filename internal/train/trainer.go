package train

import (
	"math/rand/v2"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/bartoszstec/tic-tac-toe/internal/board"
	"github.com/bartoszstec/tic-tac-toe/internal/evaluate"
	"github.com/bartoszstec/tic-tac-toe/internal/model"
	"github.com/bartoszstec/tic-tac-toe/internal/policy"
	"github.com/bartoszstec/tic-tac-toe/internal/qtable"
)

const pcgStream = 0x9e3779b97f4a7c15

// NewRand returns the deterministic generator used for a given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^pcgStream))
}

// Update is one value-table change made during an episode.
type Update struct {
	Role       model.Role
	Transition qtable.Transition
	Reward     float64
	Value      float64
	Terminal   bool
}

// EpisodeResult traces one self-play game. Boards starts with the empty board
// and holds the position after every move.
type EpisodeResult struct {
	Episode int
	Epsilon float64
	Outcome board.Outcome
	Boards  []board.Board
	Updates []Update
}

type Result struct {
	RunID       string
	Episodes    int
	XWins       int
	OWins       int
	Draws       int
	Checkpoints []model.Checkpoint
	Duration    time.Duration
}

// Trainer owns both value tables for the duration of a run.
type Trainer struct {
	cfg     Config
	rng     *rand.Rand
	evalRNG *rand.Rand
	tables  [2]*qtable.Table

	checkpoints []model.Checkpoint
}

func NewTrainer(cfg Config) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid training config")
	}
	return &Trainer{
		cfg:     cfg,
		rng:     NewRand(cfg.Seed),
		evalRNG: NewRand(cfg.EvalSeed),
		tables:  [2]*qtable.Table{qtable.New(), qtable.New()},
	}, nil
}

// UseTables continues training from existing tables. Nil keeps the current one.
func (t *Trainer) UseTables(attack, defence *qtable.Table) {
	if attack != nil {
		t.tables[model.Attack] = attack
	}
	if defence != nil {
		t.tables[model.Defence] = defence
	}
}

func (t *Trainer) Config() Config { return t.cfg }

func (t *Trainer) Table(r model.Role) *qtable.Table {
	return t.tables[r]
}

func (t *Trainer) Checkpoints() []model.Checkpoint {
	return append([]model.Checkpoint(nil), t.checkpoints...)
}

// Run plays the configured number of episodes. There is no early stop.
func (t *Trainer) Run() (Result, error) {
	start := time.Now()
	res := Result{RunID: t.cfg.RunID}
	klog.Infof("training run=%s episodes=%s alpha=%g gamma=%g epsilon=[%g,%g] decay=%g",
		t.cfg.RunID, humanize.Comma(int64(t.cfg.Episodes)), t.cfg.LearningRate, t.cfg.Discount,
		t.cfg.EpsilonMin, t.cfg.EpsilonMax, t.cfg.DecayRate)

	for e := 0; e < t.cfg.Episodes; e++ {
		ep, err := t.RunEpisode(e)
		if err != nil {
			return res, errors.Wrapf(err, "episode %d", e)
		}
		res.Episodes++
		switch ep.Outcome {
		case board.OutcomeX:
			res.XWins++
		case board.OutcomeO:
			res.OWins++
		default:
			res.Draws++
		}
		if klog.V(2).Enabled() {
			klog.V(2).Infof("episode=%d epsilon=%.4f outcome=%s moves=%d", e, ep.Epsilon, ep.Outcome, len(ep.Boards)-1)
		}

		if t.cfg.IsCheckpoint(e) {
			cp, err := t.checkpoint(e, ep.Epsilon)
			if err != nil {
				return res, err
			}
			t.checkpoints = append(t.checkpoints, cp)
		}
	}

	res.Checkpoints = t.Checkpoints()
	res.Duration = time.Since(start)
	klog.Infof("training run=%s done in %s: X=%s O=%s draws=%s states attack=%s defence=%s",
		t.cfg.RunID, res.Duration.Round(time.Millisecond),
		humanize.Comma(int64(res.XWins)), humanize.Comma(int64(res.OWins)), humanize.Comma(int64(res.Draws)),
		humanize.Comma(int64(t.tables[model.Attack].Len())), humanize.Comma(int64(t.tables[model.Defence].Len())))
	return res, nil
}

// RunEpisode plays one self-play game at the exploration rate of episode and
// applies the two-role delayed-credit updates.
func (t *Trainer) RunEpisode(episode int) (EpisodeResult, error) {
	eps := t.cfg.Epsilon(episode)
	ep := EpisodeResult{
		Episode: episode,
		Epsilon: eps,
		Boards:  make([]board.Board, 1, board.Size*board.Size+1),
		Updates: make([]Update, 0, board.Size*board.Size+2),
	}

	var (
		b     board.Board
		last  [2]qtable.Transition
		moved [2]bool
	)
	role := model.Attack
	for {
		table := t.tables[role]
		action, err := policy.SelectAction(t.rng, b, table, eps)
		if err != nil {
			return ep, err
		}
		next, err := b.Apply(action, role.Mark())
		if err != nil {
			return ep, err
		}
		ep.Boards = append(ep.Boards, next)

		tr := qtable.Transition{State: b.Key(), Action: action, Next: next.Key()}
		last[role], moved[role] = tr, true

		res := next.Terminal()
		if !res.Terminal {
			ep.Updates = append(ep.Updates, t.apply(role, tr, t.cfg.Rewards.Step(role), false))
			b = next
			role = role.Opponent()
			continue
		}

		// Both roles learn from the final outcome through their own last move.
		ep.Outcome = res.Outcome
		for _, r := range model.Roles {
			if !moved[r] {
				continue
			}
			ep.Updates = append(ep.Updates, t.apply(r, last[r], t.cfg.Rewards.Terminal(r, res.Outcome), true))
		}
		return ep, nil
	}
}

func (t *Trainer) apply(r model.Role, tr qtable.Transition, reward float64, terminal bool) Update {
	v := t.tables[r].Update(tr, reward, t.cfg.LearningRate, t.cfg.Discount)
	return Update{Role: r, Transition: tr, Reward: reward, Value: v, Terminal: terminal}
}

func (t *Trainer) checkpoint(episode int, eps float64) (model.Checkpoint, error) {
	cp := model.Checkpoint{Episode: episode + 1, Epsilon: eps}
	for _, r := range model.Roles {
		tally, err := evaluate.Simulate(t.evalRNG, r, t.tables[r], t.cfg.EvalGames)
		if err != nil {
			return cp, errors.Wrapf(err, "checkpoint at episode %d", episode+1)
		}
		if r == model.Attack {
			cp.Attack = tally
		} else {
			cp.Defence = tally
		}
	}
	klog.Infof("checkpoint episode=%s epsilon=%.4f attack w/d/l=%d/%d/%d defence w/d/l=%d/%d/%d",
		humanize.Comma(int64(cp.Episode)), eps,
		cp.Attack.Wins, cp.Attack.Draws, cp.Attack.Losses,
		cp.Defence.Wins, cp.Defence.Draws, cp.Defence.Losses)
	klog.V(1).Infof("checkpoint episode=%d table sizes attack=%d defence=%d",
		cp.Episode, t.tables[model.Attack].Len(), t.tables[model.Defence].Len())
	return cp, nil
}
