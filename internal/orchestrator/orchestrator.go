// Package orchestrator drives one assistant turn: it calls the model, routes
// the reply through human review checkpoints, executes tool calls, and runs
// debug sub-sessions when a tool fails. The flow is an explicit state machine
// over a conversation.History that is mutated in place.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flemzord/mategen/internal/conversation"
	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/telemetry"
	"github.com/flemzord/mategen/internal/tool"
)

// Config configures an Orchestrator.
type Config struct {
	Provider provider.Provider

	// Model overrides the provider's default model.
	Model string

	// Invoker executes tool calls. Nil means no tools are offered.
	Invoker *tool.Invoker

	// Human answers review checkpoints. Nil installs AutoDecision and
	// disables the enhanced-mode rephrase path.
	Human HumanDecision

	// Developer enables per-turn reasoning suffixes and human review of
	// drafts and tool calls.
	Developer bool

	// Enhanced enables task decomposition and deep debugging.
	Enhanced bool

	Retry RetryPolicy

	// MaxDepth bounds nested debug sessions. Default: 4.
	MaxDepth int

	// MaxArgumentRetries bounds consecutive unparseable tool-call
	// arguments before the turn fails. Default: 3.
	MaxArgumentRetries int

	Observer Observer
	Metrics  *telemetry.Metrics
	Tracer   trace.Tracer
	Logger   *slog.Logger
}

func (c *Config) defaults() {
	c.Retry.defaults()
	if c.MaxDepth <= 0 {
		c.MaxDepth = 4
	}
	if c.MaxArgumentRetries <= 0 {
		c.MaxArgumentRetries = 3
	}
	if c.Tracer == nil {
		c.Tracer = telemetry.Tracer()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
}

// Orchestrator runs assistant turns. It is safe to reconfigure modes and
// the model between turns; a single turn must not run concurrently with
// another on the same history.
type Orchestrator struct {
	provider    provider.Provider
	invoker     *tool.Invoker
	human       HumanDecision
	interactive bool
	retry       RetryPolicy
	maxDepth    int
	maxArgRetry int
	observer    Observer
	metrics     *telemetry.Metrics
	tracer      trace.Tracer
	logger      *slog.Logger

	mu        sync.RWMutex
	model     string
	developer bool
	enhanced  bool
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Provider == nil {
		return nil, errors.New("orchestrator: provider is required")
	}
	cfg.defaults()

	o := &Orchestrator{
		provider:    cfg.Provider,
		invoker:     cfg.Invoker,
		human:       cfg.Human,
		interactive: cfg.Human != nil,
		retry:       cfg.Retry,
		maxDepth:    cfg.MaxDepth,
		maxArgRetry: cfg.MaxArgumentRetries,
		observer:    cfg.Observer,
		metrics:     cfg.Metrics,
		tracer:      cfg.Tracer,
		logger:      cfg.Logger,
		model:       cfg.Model,
		developer:   cfg.Developer,
		enhanced:    cfg.Enhanced,
	}
	if o.human == nil {
		o.human = AutoDecision{}
	}
	if o.model == "" {
		o.model = cfg.Provider.ModelName()
	}
	return o, nil
}

// Model returns the model used for the next call.
func (o *Orchestrator) Model() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.model
}

// SetModel switches the model for subsequent calls.
func (o *Orchestrator) SetModel(model string) {
	o.mu.Lock()
	o.model = model
	o.mu.Unlock()
}

// SetModes switches developer and enhanced mode for subsequent turns.
func (o *Orchestrator) SetModes(developer, enhanced bool) {
	o.mu.Lock()
	o.developer = developer
	o.enhanced = enhanced
	o.mu.Unlock()
}

// Modes returns the current developer and enhanced flags.
func (o *Orchestrator) Modes() (developer, enhanced bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.developer, o.enhanced
}

type state int

const (
	stateAwaitingModel state = iota
	stateDecomposing
	stateText
	stateToolCall
	stateInvoking
	stateToolResult
	stateDebugging
	stateResolved
)

var stateNames = [...]string{
	stateAwaitingModel: "awaiting_model",
	stateDecomposing:   "decomposing",
	stateText:          "text",
	stateToolCall:      "tool_call",
	stateInvoking:      "invoking",
	stateToolResult:    "tool_result",
	stateDebugging:     "debugging",
	stateResolved:      "resolved",
}

func (s state) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// frame is the working state of one run over a history. Debug sessions run
// nested frames over a forked history.
type frame struct {
	h         *conversation.History
	depth     int
	developer bool
	enhanced  bool

	// planning marks the current draft as a decomposition plan.
	planning bool

	// decomposed records that decomposition was already requested for the
	// current question.
	decomposed bool

	// prune drops this many trailing messages once the next reply arrives.
	prune int

	parseFailures int

	reply  Reply
	result provider.Message
}

// Respond answers the last message of h, appending the assistant reply and
// any tool exchanges to h. Developer suffixes are present on the latest
// question only for the duration of the call.
func (o *Orchestrator) Respond(ctx context.Context, h *conversation.History) (err error) {
	if _, ok := h.Last(); !ok {
		return ErrNoUserMessage
	}
	developer, enhanced := o.Modes()

	ctx, span := telemetry.StartSpan(ctx, o.tracer, "orchestrator.respond",
		attribute.String("mategen.model", o.Model()),
		attribute.Bool("mategen.developer", developer),
		attribute.Bool("mategen.enhanced", enhanced),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	if developer {
		asked := lastIsUser(h)
		addSuffixes(h)
		defer stripSuffixes(h)
		// Suffixing can push a lone question over the token budget.
		if asked && !lastIsUser(h) {
			return ErrNoUserMessage
		}
	}
	return o.run(ctx, &frame{h: h, developer: developer, enhanced: enhanced})
}

func (o *Orchestrator) run(ctx context.Context, f *frame) error {
	st := stateAwaitingModel
	if f.planning {
		st = stateDecomposing
	}
	for st != stateResolved {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := o.step(ctx, f, st)
		if err != nil {
			return err
		}
		o.logger.Debug("orchestrator transition", "from", st, "to", next, "depth", f.depth)
		st = next
	}
	return nil
}

func (o *Orchestrator) step(ctx context.Context, f *frame, st state) (state, error) {
	switch st {
	case stateAwaitingModel:
		return o.awaitModel(ctx, f)
	case stateDecomposing:
		return o.decompose(ctx, f)
	case stateText:
		return o.handleText(ctx, f)
	case stateToolCall:
		return o.handleToolCall(ctx, f)
	case stateInvoking:
		return o.invoke(ctx, f)
	case stateToolResult:
		return o.checkResult(f)
	case stateDebugging:
		return o.debug(ctx, f)
	default:
		return stateResolved, fmt.Errorf("orchestrator: unknown state %s", st)
	}
}

func (o *Orchestrator) awaitModel(ctx context.Context, f *frame) (state, error) {
	reply, err := o.complete(ctx, f, func() *conversation.History { return f.h })
	if err != nil {
		return stateResolved, err
	}
	if f.enhanced && !f.decomposed && reply.Kind == ReplyToolCall && lastIsUser(f.h) {
		return stateDecomposing, nil
	}
	return o.received(f, reply), nil
}

func (o *Orchestrator) decompose(ctx context.Context, f *frame) (state, error) {
	if !lastIsUser(f.h) {
		f.planning = false
		return o.awaitModel(ctx, f)
	}
	f.decomposed = true
	var buildErr error
	reply, err := o.complete(ctx, f, func() *conversation.History {
		aug, err := DecompositionHistory(f.h)
		if err != nil {
			buildErr = err
			return f.h
		}
		return aug
	})
	if buildErr != nil {
		return stateResolved, buildErr
	}
	if err != nil {
		return stateResolved, err
	}
	if reply.Kind == ReplyToolCall {
		o.logger.Info("question does not require decomposition")
		o.observer.noDecomposition()
		f.planning = false
	} else {
		f.planning = true
	}
	return o.received(f, reply), nil
}

// received records reply on the frame and applies a pending prune.
func (o *Orchestrator) received(f *frame, reply Reply) state {
	o.observer.reply(reply)
	if f.prune > 0 {
		_ = f.h.Pop(min(f.prune, f.h.Len()))
		f.prune = 0
	}
	f.reply = reply
	if reply.Kind == ReplyToolCall {
		return stateToolCall
	}
	return stateText
}

func (o *Orchestrator) handleText(ctx context.Context, f *frame) (state, error) {
	r := f.reply
	if f.planning {
		d, err := o.human.ReviewPlan(ctx, r.Text)
		if err != nil {
			return stateResolved, err
		}
		o.metrics.Review("plan", textActionName(d.Action))
		switch d.Action {
		case TextAccept:
			f.h.Append(r.Message, userMessage(ExecutePlanPrompt))
			f.planning = false
			f.enhanced = false
			return stateAwaitingModel, nil
		case TextRevise:
			f.h.Append(r.Message, userMessage(d.Text))
			f.prune = 2
			return stateDecomposing, nil
		case TextNewQuestion:
			o.replaceQuestion(f, d.Text)
			return stateDecomposing, nil
		default:
			return stateResolved, ErrAborted
		}
	}

	if !f.developer {
		f.h.Append(r.Message)
		return stateResolved, nil
	}

	d, err := o.human.ReviewText(ctx, r.Text)
	if err != nil {
		return stateResolved, err
	}
	o.metrics.Review("text", textActionName(d.Action))
	switch d.Action {
	case TextAccept:
		f.h.Append(r.Message)
		return stateResolved, nil
	case TextRevise:
		f.h.Append(r.Message, userMessage(d.Text))
		f.prune = 2
		return stateAwaitingModel, nil
	case TextNewQuestion:
		o.replaceQuestion(f, d.Text)
		f.decomposed = false
		return stateAwaitingModel, nil
	default:
		return stateResolved, ErrAborted
	}
}

func (o *Orchestrator) handleToolCall(ctx context.Context, f *frame) (state, error) {
	call := f.reply.Call
	if _, err := tool.DecodeArguments(call.Arguments); err != nil {
		return o.argumentFailure(f, err)
	}

	code := RenderCall(call)
	o.observer.toolCall(call, code)

	if f.developer {
		d, err := o.human.ReviewToolCall(ctx, call, code)
		if err != nil {
			return stateResolved, err
		}
		if d.Action == CallRevise {
			o.metrics.Review("tool_call", "revise")
			f.h.Append(f.reply.Message, declinedResult(call, d.Feedback), userMessage(d.Feedback))
			f.prune = 3
			return stateAwaitingModel, nil
		}
		o.metrics.Review("tool_call", "run")
	}
	return stateInvoking, nil
}

// argumentFailure asks the model again after unparseable arguments, up to
// the configured bound.
func (o *Orchestrator) argumentFailure(f *frame, err error) (state, error) {
	f.parseFailures++
	o.logger.Warn("tool call arguments unparseable, asking again",
		"tool", f.reply.Call.Name, "failures", f.parseFailures, "error", err)
	if f.parseFailures >= o.maxArgRetry {
		return stateResolved, fmt.Errorf("orchestrator: %d consecutive bad tool calls: %w", f.parseFailures, err)
	}
	return stateAwaitingModel, nil
}

func (o *Orchestrator) invoke(ctx context.Context, f *frame) (state, error) {
	call := f.reply.Call
	if o.invoker == nil {
		f.result = provider.Message{
			Role:       provider.RoleTool,
			Name:       call.Name,
			Content:    tool.ErrorContent(fmt.Errorf("%w: %s", tool.ErrToolNotFound, call.Name)),
			ToolCallID: call.ID,
		}
		o.observer.toolResult(f.result)
		return stateToolResult, nil
	}

	ctx, span := telemetry.StartSpan(ctx, o.tracer, "tool.invoke",
		attribute.String("mategen.tool", call.Name))
	res, err := o.invoker.Invoke(ctx, call)
	telemetry.EndSpan(span, err)
	if err != nil {
		if errors.Is(err, tool.ErrArgumentParse) {
			return o.argumentFailure(f, err)
		}
		return stateResolved, err
	}
	f.parseFailures = 0

	o.metrics.ToolCall(call.Name, strings.HasPrefix(res.Content, tool.ErrorPrefix))
	o.observer.toolResult(res)
	f.result = res
	return stateToolResult, nil
}

func (o *Orchestrator) checkResult(f *frame) (state, error) {
	if strings.Contains(f.result.Content, "error") {
		return stateDebugging, nil
	}
	f.h.Append(f.reply.Message, f.result)
	return stateAwaitingModel, nil
}

// complete calls the model on the history returned by view, retrying
// transient failures. view is re-evaluated for every attempt so a rephrased
// question takes effect.
func (o *Orchestrator) complete(ctx context.Context, f *frame, view func() *conversation.History) (Reply, error) {
	for attempt := 1; ; attempt++ {
		resp, err := o.call(ctx, view().Messages(), true)
		if err == nil {
			return classify(resp), nil
		}
		if !provider.IsTransient(err) {
			return Reply{}, err
		}
		if o.retry.exhausted(attempt) {
			return Reply{}, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}
		if err := o.recoverFrom(ctx, f, err, attempt); err != nil {
			return Reply{}, err
		}
	}
}

// recoverFrom handles one transient failure: rephrase in enhanced
// interactive mode, a human choice in developer mode, otherwise a cooldown.
func (o *Orchestrator) recoverFrom(ctx context.Context, f *frame, cause error, attempt int) error {
	switch {
	case f.enhanced && o.interactive:
		return o.rephrase(ctx, f, cause, attempt)

	case f.developer:
		d, err := o.human.OnTransientFailure(ctx, cause, attempt)
		if err != nil {
			return err
		}
		switch d.Action {
		case FailureSwitchModel:
			o.metrics.Retry("switch_model")
			o.logger.Info("switching model after failure", "from", o.Model(), "to", d.Model)
			o.SetModel(d.Model)
			return nil
		case FailureAbort:
			return fmt.Errorf("%w: %w", ErrAborted, cause)
		default:
			return o.cooldown(ctx, "wait", cause, attempt)
		}

	default:
		return o.cooldown(ctx, "cooldown", cause, attempt)
	}
}

func (o *Orchestrator) cooldown(ctx context.Context, strategy string, cause error, attempt int) error {
	wait := o.retry.Backoff(attempt)
	o.metrics.Retry(strategy)
	o.observer.retry(cause, attempt, wait)
	o.logger.Warn("model unavailable, waiting before retry",
		"attempt", attempt, "wait", wait, "error", cause)
	return provider.Wait(ctx, wait)
}

// rephrase asks the model for guidance on the latest question and lets the
// human restate it. When the guidance call itself fails transiently, it
// falls back to a cooldown.
func (o *Orchestrator) rephrase(ctx context.Context, f *frame, cause error, attempt int) error {
	question, ok := f.h.LastUser()
	if !ok {
		return o.cooldown(ctx, "cooldown", cause, attempt)
	}
	rephrased := f.h.Copy()
	rephrased.SetLastUserContent(RephrasePrompt(question.Content))

	resp, err := o.call(ctx, rephrased.Messages(), false)
	if err != nil {
		if provider.IsTransient(err) {
			return o.cooldown(ctx, "cooldown", err, attempt)
		}
		return err
	}

	o.metrics.Retry("rephrase")
	restated, ok, err := o.human.Rephrase(ctx, resp.Message.Content)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %w", ErrAborted, cause)
	}
	o.replaceQuestion(f, restated)
	return nil
}

// call issues one model request. Tools are attached when withTools is set
// and the registry is non-empty.
func (o *Orchestrator) call(ctx context.Context, msgs []provider.Message, withTools bool) (provider.CompletionResponse, error) {
	model := o.Model()
	req := provider.CompletionRequest{Model: model, Messages: msgs}
	if withTools && o.invoker != nil && o.invoker.Registry() != nil && o.invoker.Registry().Len() > 0 {
		reg := o.invoker.Registry()
		req.Tools = reg.Definitions()
		req.ToolChoice = reg.Policy().ToolChoice()
	}

	ctx, span := telemetry.StartSpan(ctx, o.tracer, "model.complete",
		attribute.String("mategen.model", model),
		attribute.Int("mategen.messages", len(msgs)),
	)
	start := time.Now()
	resp, err := o.provider.Complete(ctx, req)
	o.metrics.ObserveModelCall(model, time.Since(start), resp.Usage, err)
	telemetry.EndSpan(span, err)
	if err != nil {
		return provider.CompletionResponse{}, err
	}
	if resp.Message.Content == "" && !resp.Message.IsToolCall() {
		return provider.CompletionResponse{}, provider.ErrEmptyResponse
	}
	return resp, nil
}

// replaceQuestion swaps the latest question for text, keeping developer
// suffixes on it.
func (o *Orchestrator) replaceQuestion(f *frame, text string) {
	if !f.h.SetLastUserContent(text) {
		f.h.Append(userMessage(text))
	}
	if f.developer {
		addSuffixes(f.h)
	}
}

// declinedResult answers a tool call the human chose not to run, so the
// call is never left without a result.
func declinedResult(call provider.ToolCall, feedback string) provider.Message {
	return provider.Message{
		Role:       provider.RoleTool,
		Name:       call.Name,
		Content:    DeclinedCallPrefix + feedback,
		ToolCallID: call.ID,
	}
}

func userMessage(content string) provider.Message {
	return provider.Message{Role: provider.RoleUser, Content: content}
}

func lastIsUser(h *conversation.History) bool {
	last, ok := h.Last()
	return ok && last.Role == provider.RoleUser
}

func textActionName(a TextAction) string {
	switch a {
	case TextAccept:
		return "accept"
	case TextRevise:
		return "revise"
	case TextNewQuestion:
		return "new_question"
	default:
		return "abort"
	}
}
