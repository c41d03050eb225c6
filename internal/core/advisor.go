package core

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"ut.ee/course-advisor/internal/assembler"
	"ut.ee/course-advisor/internal/cost"
	"ut.ee/course-advisor/internal/course"
	"ut.ee/course-advisor/internal/filter"
	"ut.ee/course-advisor/internal/lang"
	"ut.ee/course-advisor/internal/llm"
	"ut.ee/course-advisor/internal/metrics"
	"ut.ee/course-advisor/internal/retrieval"
	"ut.ee/course-advisor/internal/safety"
	"ut.ee/course-advisor/internal/session"
)

// Searcher runs a semantic search restricted by an optional filter.
type Searcher interface {
	Search(ctx context.Context, text string, expr *filter.Expression, topK int) ([]course.Record, error)
	BackendName() string
}

// Completer streams chat completions and checks credentials.
type Completer interface {
	StreamReply(ctx context.Context, apiKey string, messages []llm.Message) *llm.Stream
	ValidateKey(ctx context.Context, apiKey string) (llm.Status, error)
}

type Deps struct {
	Guard     *safety.Guard
	Compiler  *filter.Compiler
	Decider   retrieval.Decider
	Searcher  Searcher
	Completer Completer
	Costs     *cost.Tracker
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	SnippetLength int
	LinkBase      string
}

// Advisor runs one conversational turn end to end.
type Advisor struct {
	Deps
}

func NewAdvisor(d Deps) *Advisor {
	if d.SnippetLength <= 0 {
		d.SnippetLength = assembler.DefaultSnippetLength
	}
	if d.LinkBase == "" {
		d.LinkBase = assembler.DefaultLinkBase
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Advisor{Deps: d}
}

type TurnRequest struct {
	Utterance  string
	APIKey     string
	Selections filter.Selections
	TopK       int

	// Progress, if set, receives localized status lines while the turn is
	// validating the key or searching.
	Progress func(message string)
}

func (r TurnRequest) progress(l lang.Locale, key lang.Key) {
	if r.Progress != nil {
		r.Progress(lang.Text(l, key))
	}
}

// HandleTurn processes one utterance against state. It returns
// session.ErrBusy if another turn on the same session has not finished.
// A streaming turn keeps the session locked until its fragments are consumed
// or drained; the exchange is committed only then.
func (a *Advisor) HandleTurn(ctx context.Context, state *session.State, req TurnRequest) (*Turn, error) {
	gen, err := state.BeginTurn()
	if err != nil {
		return nil, err
	}

	utterance := req.Utterance
	loc := lang.Detect(utterance)
	t := &Turn{Locale: loc}
	log := a.Logger.With(zap.String("session", state.ID()), zap.String("locale", string(loc)))

	if v := a.Guard.Evaluate(utterance); v.Rejected {
		a.Metrics.SafetyRejection(string(v.Reason))
		log.Info("utterance declined", zap.String("reason", string(v.Reason)), zap.String("pattern", v.PatternID))
		return a.settle(state, gen, t, utterance, OutcomeDeclined, lang.Text(loc, lang.MsgDeclined)), nil
	}

	if outcome, reply, ok := a.checkKey(ctx, state, req, loc, log); !ok {
		return a.settle(state, gen, t, utterance, outcome, reply), nil
	}

	var contextBlock string
	question := strings.TrimSpace(utterance)

	if a.Decider.IsFollowUp(state, utterance) {
		t.FollowUp = true
		contextBlock = state.LastContext()
		t.Cards = state.LastCards()
		log.Debug("reusing previous retrieval context", zap.Int("streak", state.FollowUpStreak()))
	} else {
		req.progress(loc, lang.MsgSearching)
		expr := a.Compiler.Compile(req.Selections)
		if expr != nil {
			log.Debug("search filter", zap.Stringer("filter", expr))
		}

		start := time.Now()
		records, err := a.Searcher.Search(ctx, question, expr, req.TopK)
		a.Metrics.Retrieval(a.Searcher.BackendName(), time.Since(start), err)
		if err != nil {
			log.Warn("search failed", zap.Error(err))
			return a.settle(state, gen, t, utterance, OutcomeSearchFailed, lang.Textf(loc, lang.MsgSearchFailed, err.Error())), nil
		}
		if len(records) == 0 {
			return a.settle(state, gen, t, utterance, OutcomeNoResults, lang.Text(loc, lang.MsgNoResults)), nil
		}

		contextBlock = assembler.BuildModelContext(records, a.SnippetLength)
		t.Cards = assembler.BuildPresentation(records, loc, a.LinkBase)
		log.Info("retrieved courses", zap.Int("count", len(records)))
	}

	prompt := searchPrompt(question, contextBlock)
	if t.FollowUp {
		prompt = followUpPrompt(question, contextBlock)
	}

	history := state.Messages()
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.System(SystemPrompt))
	messages = append(messages, history...)
	messages = append(messages, llm.User(prompt))

	inputTokens := a.Costs.CountMessages(messages)
	stream := a.Completer.StreamReply(ctx, req.APIKey, messages)
	t.stream = stream
	stream.OnDone(func(s *llm.Stream) {
		a.complete(state, gen, t, utterance, req.APIKey, inputTokens, contextBlock, s, log)
	})
	return t, nil
}

// checkKey gates the turn on a usable credential. Only definite answers from
// the provider are remembered for the key's fingerprint.
func (a *Advisor) checkKey(ctx context.Context, state *session.State, req TurnRequest, loc lang.Locale, log *zap.Logger) (Outcome, string, bool) {
	if strings.TrimSpace(req.APIKey) == "" {
		return OutcomeMissingKey, lang.Text(loc, lang.MsgMissingKey), false
	}

	switch state.KeyStatus(req.APIKey) {
	case session.KeyValid:
		return "", "", true
	case session.KeyInvalid:
		return OutcomeInvalidKey, lang.Text(loc, lang.MsgInvalidKey), false
	}

	req.progress(loc, lang.MsgValidatingKey)
	status, err := a.Completer.ValidateKey(ctx, req.APIKey)
	switch {
	case err != nil:
		log.Warn("key validation inconclusive", zap.Stringer("status", status), zap.Error(err))
		return OutcomeCompletionFailed, lang.Textf(loc, lang.MsgCompletionFailed, err.Error()), false
	case status == llm.StatusAuthFailed:
		state.SetKeyStatus(req.APIKey, session.KeyInvalid)
		return OutcomeInvalidKey, lang.Text(loc, lang.MsgInvalidKey), false
	default:
		state.SetKeyStatus(req.APIKey, session.KeyValid)
		return "", "", true
	}
}

// settle commits a turn that never reached the completion provider.
func (a *Advisor) settle(state *session.State, gen uint64, t *Turn, utterance string, outcome Outcome, reply string) *Turn {
	defer state.EndTurn()

	state.Commit(gen, llm.User(utterance), llm.Assistant(reply), 0, 0)
	a.Metrics.Turn(string(outcome))
	t.settle(Result{Outcome: outcome, Reply: reply, Status: llm.StatusPending})
	return t
}

// complete commits a streamed turn once the stream has terminated. The
// retrieval cache and follow-up streak only advance when the completion
// succeeded, so a failed answer never leaves its context behind for the next
// short utterance.
func (a *Advisor) complete(state *session.State, gen uint64, t *Turn, utterance, apiKey string, inputTokens int, contextBlock string, s *llm.Stream, log *zap.Logger) {
	defer state.EndTurn()

	status := s.Status()
	text := s.Text()
	res := Result{
		Outcome:      OutcomeAnswered,
		Reply:        text,
		Status:       status,
		InputTokens:  inputTokens,
		OutputTokens: a.Costs.Count(text),
	}
	res.CostUSD = a.Costs.Estimate(res.InputTokens, res.OutputTokens)

	if status != llm.StatusOK {
		res.Outcome = OutcomeCompletionFailed
		res.Notice = completionNotice(t.Locale, status, s.Err())
		if res.Reply == "" {
			res.Reply = res.Notice
		}
		if status == llm.StatusAuthFailed {
			state.SetKeyStatus(apiKey, session.KeyInvalid)
		}
		log.Warn("completion ended early", zap.Stringer("status", status), zap.Error(s.Err()), zap.Int("received_chars", len(text)))
	}

	if status == llm.StatusOK {
		if t.FollowUp {
			state.MarkFollowUp(gen)
		} else {
			state.SetRetrieval(gen, contextBlock, t.Cards)
		}
	}

	if !state.Commit(gen, llm.User(utterance), llm.Assistant(res.Reply), res.InputTokens, res.OutputTokens) {
		log.Info("session was reset during the turn, exchange discarded")
	}
	a.Metrics.Completion(status.String())
	a.Metrics.Tokens(res.InputTokens, res.OutputTokens, res.CostUSD)
	a.Metrics.Turn(string(res.Outcome))
	t.settle(res)
}

func completionNotice(l lang.Locale, status llm.Status, err error) string {
	switch status {
	case llm.StatusAuthFailed:
		return lang.Text(l, lang.MsgAuthFailed)
	case llm.StatusRateLimited:
		return lang.Text(l, lang.MsgRateLimited)
	default:
		detail := "unknown error"
		if err != nil {
			detail = err.Error()
		}
		return lang.Textf(l, lang.MsgCompletionFailed, detail)
	}
}
