// Package review orchestrates code reviews: it gathers files for a scope,
// fans batches out to parallel claude invocations, parses the responses and
// publishes incremental results.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kacmedija/assay/internal/changeset"
	"github.com/kacmedija/assay/internal/claude"
	"github.com/kacmedija/assay/internal/model"
	"github.com/kacmedija/assay/internal/parser"
	"github.com/kacmedija/assay/internal/prompt"
	"github.com/kacmedija/assay/internal/redact"
	"github.com/kacmedija/assay/internal/store"
)

// ErrAlreadyRunning is returned when a review is requested while one is in
// flight. Reviews are exclusive per service.
var ErrAlreadyRunning = errors.New("a review is already running")

const allBatchesFailed = "All batch reviews failed to parse"

// Options tunes a single review run.
type Options struct {
	Categories map[model.Category]bool // nil or empty reviews all categories
	Depth      model.Depth
	Custom     string // extra instructions appended to the prompt
	Standards  string // project coding standards text
}

// Config holds the service's fixed settings.
type Config struct {
	// BatchSize is how many files go into one claude invocation.
	BatchSize int
	// MaxParallel caps concurrent invocations. Independent from BatchSize.
	MaxParallel int
	// RedactSecrets scrubs secret-looking values before sending content.
	RedactSecrets bool
	// RedactPaths are glob patterns whose file content is never sent.
	RedactPaths []string
}

// Service runs reviews for one project directory. Methods are safe for
// concurrent use; at most one review runs at a time.
type Service struct {
	dir        string
	discoverer *changeset.Discoverer
	invoker    claude.Invoker
	session    *claude.Session
	parser     *parser.Parser
	store      *store.Store
	cfg        Config
	log        *zap.Logger

	running atomic.Bool

	mu                sync.Mutex
	lastResult        *model.ReviewResult
	fixes             model.FixOverlay
	completed         int
	total             int
	issueCount        int
	batchCancel       context.CancelFunc
	resultListeners   []func(model.ReviewResult)
	stateListeners    []func(running bool)
	progressListeners []func(model.Progress)
	notifier          func(model.Notice)
}

// New creates a Service. Any result persisted by a previous run is loaded as
// the initial last result.
func New(dir string, discoverer *changeset.Discoverer, invoker claude.Invoker, st *store.Store, cfg Config, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 8
	}
	s := &Service{
		dir:        dir,
		discoverer: discoverer,
		invoker:    invoker,
		session:    claude.NewSession(invoker),
		parser:     parser.New(log),
		store:      st,
		cfg:        cfg,
		log:        log,
		lastResult: st.Load(),
		fixes:      model.FixOverlay{},
	}
	if s.lastResult != nil {
		for _, issue := range s.lastResult.Issues {
			if issue.Fixed {
				s.fixes[issue.Key()] = true
			}
		}
	}
	return s
}

// OnResult registers a listener fired with each published result snapshot.
func (s *Service) OnResult(fn func(model.ReviewResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultListeners = append(s.resultListeners, fn)
}

// OnStateChange registers a listener fired when a review starts or stops.
func (s *Service) OnStateChange(fn func(running bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateListeners = append(s.stateListeners, fn)
}

// OnProgress registers a listener fired after each completed batch.
func (s *Service) OnProgress(fn func(model.Progress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressListeners = append(s.progressListeners, fn)
}

// SetNotifier installs the sink for transient notices.
func (s *Service) SetNotifier(fn func(model.Notice)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifier = fn
}

// IsRunning reports whether a review is in flight.
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// LastResult returns the most recently published result, or nil.
func (s *Service) LastResult() *model.ReviewResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// Progress returns batch progress, or nil when no batched review is running.
func (s *Service) Progress() *model.Progress {
	if !s.running.Load() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.total == 0 {
		return nil
	}
	return &model.Progress{CompletedBatches: s.completed, TotalBatches: s.total, IssueCount: s.issueCount}
}

// Abort cancels the in-flight review, if any. The running state resets when
// the run itself unwinds.
func (s *Service) Abort() {
	s.session.Abort()
	s.mu.Lock()
	cancel := s.batchCancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes one review synchronously. It returns ErrAlreadyRunning if a
// review is in flight. The running flag always resets, even on panic.
func (s *Service) Run(ctx context.Context, scope model.Scope, opts Options) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	s.fireState(true)
	s.mu.Lock()
	s.fixes = model.FixOverlay{}
	s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("review run panicked", zap.Any("panic", r))
			res := model.ReviewResult{ParseError: true, RawResponse: fmt.Sprintf("Error: %v", r)}
			s.setLastResult(res)
			s.fireResult(res)
		}
		s.mu.Lock()
		s.batchCancel = nil
		s.total = 0
		s.mu.Unlock()
		s.running.Store(false)
		s.fireState(false)
	}()

	runID := uuid.NewString()
	log := s.log.With(zap.String("run", runID), zap.String("scope", scope.DisplayName()))
	log.Info("starting review")

	files, notices, err := s.discoverer.Discover(scope)
	if err != nil {
		return err
	}
	for _, n := range notices {
		s.notify(n)
	}
	if len(files) == 0 {
		log.Info("nothing to review")
		return nil
	}

	// Only the branch scope fans out to parallel batches; the other scopes
	// go through the single abortable session.
	if scope == model.ScopeBranchChanges {
		return s.runBatched(ctx, log, files, opts)
	}
	return s.runSingle(ctx, log, files, opts)
}

// runSingle reviews one gathered unit through the abortable session.
func (s *Service) runSingle(ctx context.Context, log *zap.Logger, files []model.SourceFile, opts Options) error {
	files = s.redactFiles(files)
	p := prompt.Build(files, opts.Categories, opts.Depth, opts.Custom, opts.Standards)
	log.Debug("built prompt", zap.Int("files", len(files)), zap.Int("estTokens", prompt.EstimateTokens(p)))

	res, err := s.session.Invoke(ctx, p, s.dir)
	if err != nil {
		return err
	}
	if res.Aborted {
		log.Info("review aborted")
		return nil
	}
	if strings.TrimSpace(res.FullText) == "" {
		msg := fmt.Sprintf("Claude returned an empty response (exit code %d). Check that 'claude' is available and authenticated.", res.ExitCode)
		out := model.ReviewResult{ParseError: true, RawResponse: msg}
		s.setLastResult(out)
		s.fireResult(out)
		return nil
	}

	out := s.parser.Parse(res.FullText)
	if out.ParseError {
		s.setLastResult(out)
		s.fireResult(out)
		return nil
	}
	model.SortIssues(out.Issues)
	s.publish(log, out)
	return nil
}

// runBatched fans file batches out to parallel invocations, publishing a
// growing snapshot after each completed batch.
func (s *Service) runBatched(ctx context.Context, log *zap.Logger, files []model.SourceFile, opts Options) error {
	files = s.redactFiles(files)
	batches := makeBatches(files, s.cfg.BatchSize)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	s.batchCancel = cancel
	s.completed = 0
	s.total = len(batches)
	s.issueCount = 0
	s.mu.Unlock()

	workers := len(batches)
	if workers > s.cfg.MaxParallel {
		workers = s.cfg.MaxParallel
	}
	log.Info("reviewing in batches",
		zap.Int("files", len(files)), zap.Int("batches", len(batches)), zap.Int("workers", workers))

	var (
		accMu         sync.Mutex
		accumulated   []model.Issue
		anyParseError bool
	)

	var g errgroup.Group
	g.SetLimit(workers)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			p := prompt.Build(batch, opts.Categories, opts.Depth, opts.Custom, opts.Standards)
			res, err := s.invoker.Invoke(ctx, p, s.dir)
			if ctx.Err() != nil {
				return nil
			}

			failed := false
			var issues []model.Issue
			switch {
			case err != nil:
				log.Warn("batch invocation failed", zap.Int("batch", i), zap.Error(err))
				failed = true
			case res.Aborted:
				return nil
			default:
				parsed := s.parser.Parse(res.FullText)
				if parsed.ParseError {
					log.Warn("batch response unparseable", zap.Int("batch", i))
					failed = true
				} else {
					issues = parsed.Issues
				}
			}

			accMu.Lock()
			if failed {
				anyParseError = true
			} else {
				accumulated = append(accumulated, issues...)
			}
			snapshot := make([]model.Issue, len(accumulated))
			copy(snapshot, accumulated)
			accMu.Unlock()

			model.SortIssues(snapshot)
			s.completeBatch(log, snapshot)
			return nil
		})
	}
	g.Wait()

	if ctx.Err() != nil {
		log.Info("batched review aborted")
		return nil
	}

	accMu.Lock()
	empty := len(accumulated) == 0
	failedAll := anyParseError
	accMu.Unlock()
	if empty && failedAll {
		out := model.ReviewResult{Issues: []model.Issue{}, ParseError: true, RawResponse: allBatchesFailed}
		s.setLastResult(out)
		s.fireResult(out)
	}
	return nil
}

// completeBatch records one finished batch and publishes the snapshot. The
// snapshot is published and persisted even when the batch itself failed so
// progress and partial findings stay visible.
func (s *Service) completeBatch(log *zap.Logger, snapshot []model.Issue) {
	s.mu.Lock()
	s.completed++
	s.issueCount = len(snapshot)
	progress := model.Progress{CompletedBatches: s.completed, TotalBatches: s.total, IssueCount: s.issueCount}
	s.mu.Unlock()

	s.publish(log, model.ReviewResult{Issues: snapshot})
	s.fireProgress(progress)
}

// publish merges the fixed-state overlay into a successful result, stores it
// and fires the result listeners. The engine's own issues stay immutable; the
// overlay is applied only at publication.
func (s *Service) publish(log *zap.Logger, out model.ReviewResult) {
	s.mu.Lock()
	out.Issues = s.fixes.Apply(out.Issues)
	s.lastResult = &out
	s.mu.Unlock()

	if err := s.store.Save(out.Issues); err != nil {
		log.Warn("persisting review result failed", zap.Error(err))
	}
	s.fireResult(out)
}

// MarkFixed records the target's fixed state in the overlay, then republishes
// and repersists the merged result. Issues are matched by their identity key,
// not pointer equality.
func (s *Service) MarkFixed(target model.Issue, fixed bool) {
	s.mu.Lock()
	s.fixes[target.Key()] = fixed
	if s.lastResult == nil {
		s.mu.Unlock()
		return
	}
	updated := *s.lastResult
	updated.Issues = s.fixes.Apply(s.lastResult.Issues)
	s.lastResult = &updated
	s.mu.Unlock()

	if err := s.store.Save(updated.Issues); err != nil {
		s.log.Warn("persisting fixed state failed", zap.Error(err))
	}
	s.fireResult(updated)
}

func (s *Service) redactFiles(files []model.SourceFile) []model.SourceFile {
	return redact.Files(files, s.cfg.RedactSecrets, s.cfg.RedactPaths)
}

func (s *Service) setLastResult(out model.ReviewResult) {
	s.mu.Lock()
	s.lastResult = &out
	s.mu.Unlock()
}

func (s *Service) fireResult(out model.ReviewResult) {
	s.mu.Lock()
	listeners := make([]func(model.ReviewResult), len(s.resultListeners))
	copy(listeners, s.resultListeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(out)
	}
}

func (s *Service) fireState(running bool) {
	s.mu.Lock()
	listeners := make([]func(bool), len(s.stateListeners))
	copy(listeners, s.stateListeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(running)
	}
}

func (s *Service) fireProgress(p model.Progress) {
	s.mu.Lock()
	listeners := make([]func(model.Progress), len(s.progressListeners))
	copy(listeners, s.progressListeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
}

func (s *Service) notify(n model.Notice) {
	s.mu.Lock()
	fn := s.notifier
	s.mu.Unlock()
	if fn != nil {
		fn(n)
	}
}

// makeBatches splits files into consecutive groups of at most size, keeping
// discovery order. The final batch may be smaller.
func makeBatches(files []model.SourceFile, size int) [][]model.SourceFile {
	if size <= 0 {
		size = 1
	}
	var batches [][]model.SourceFile
	for start := 0; start < len(files); start += size {
		end := start + size
		if end > len(files) {
			end = len(files)
		}
		batches = append(batches, files[start:end])
	}
	return batches
}
