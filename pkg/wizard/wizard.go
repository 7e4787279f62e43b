package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/yahsan2/enrollctl/pkg/api"
	"github.com/yahsan2/enrollctl/pkg/assign"
	"github.com/yahsan2/enrollctl/pkg/filter"
	"github.com/yahsan2/enrollctl/pkg/logging"
)

// Submitter sends bulk requests to the server
type Submitter interface {
	BulkAssign(ctx context.Context, req *assign.BulkAssignRequest) (*assign.BulkResponse, error)
	BulkDeassign(ctx context.Context, req *assign.BulkDeassignRequest) (*assign.BulkResponse, error)
}

// Options seeds a wizard session
type Options struct {
	Mode        Mode
	InstituteID string
	UserIDs     []string
	Assign      assign.AssignOptions
	Deassign    assign.DeassignOptions
}

// Wizard is the bulk assignment / de-assignment state machine:
// SELECT_COURSES -> CONFIGURE -> PREVIEW -> RESULTS.
// It is safe for concurrent use; while a round trip is in flight every
// transition and configuration change returns ErrBusy.
type Wizard struct {
	mu sync.Mutex

	id          string
	mode        Mode
	step        Step
	instituteID string
	userIDs     []string

	targets  []assign.Target
	index    map[string]assign.Target
	selected []string
	configs  map[string]*assign.ItemConfig

	assignOpts   assign.AssignOptions
	deassignOpts assign.DeassignOptions

	preview *assign.BulkResponse
	result  *assign.BulkResponse

	// the body sent as the dry run; confirm resends it with dry_run=false
	previewAssign   *assign.BulkAssignRequest
	previewDeassign *assign.BulkDeassignRequest

	inFlight bool
	closed   bool

	submitter Submitter
	notifier  Notifier
	logger    *slog.Logger
}

// New creates a wizard over the selectable targets
func New(ctx context.Context, submitter Submitter, notifier Notifier, targets []assign.Target, opts Options) *Wizard {
	if notifier == nil {
		notifier = discardNotifier{}
	}

	id := uuid.NewString()
	w := &Wizard{
		id:           id,
		mode:         opts.Mode,
		step:         StepSelectTargets,
		instituteID:  opts.InstituteID,
		userIDs:      append([]string(nil), opts.UserIDs...),
		targets:      append([]assign.Target(nil), targets...),
		index:        make(map[string]assign.Target, len(targets)),
		configs:      make(map[string]*assign.ItemConfig),
		assignOpts:   opts.Assign,
		deassignOpts: opts.Deassign,
		submitter:    submitter,
		notifier:     notifier,
		logger:       logging.From(ctx).With("wizard_id", id, "mode", opts.Mode.String()),
	}
	for _, t := range targets {
		w.index[t.PackageSessionID] = t
	}
	return w
}

// ID returns the session id used in logs
func (w *Wizard) ID() string {
	return w.id
}

// Mode returns the wizard mode
func (w *Wizard) Mode() Mode {
	return w.mode
}

// Step returns the current step
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Busy reports whether a round trip is in flight
func (w *Wizard) Busy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inFlight
}

// Closed reports whether Done was called
func (w *Wizard) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Targets returns every selectable target
func (w *Wizard) Targets() []assign.Target {
	return append([]assign.Target(nil), w.targets...)
}

// Selected returns the selected targets in selection order
func (w *Wizard) Selected() []assign.Target {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedTargetsLocked()
}

// IsSelected reports whether the target is selected
func (w *Wizard) IsSelected(packageSessionID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.indexOfLocked(packageSessionID) >= 0
}

// UserIDs returns the users the operation applies to
func (w *Wizard) UserIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.userIDs...)
}

// SetUserIDs replaces the user list; only on SELECT_COURSES
func (w *Wizard) SetUserIDs(ids []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStepLocked(StepSelectTargets); err != nil {
		return err
	}
	w.userIDs = append([]string(nil), ids...)
	return nil
}

// Toggle selects or deselects a target. Deselecting drops its ItemConfig.
func (w *Wizard) Toggle(packageSessionID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStepLocked(StepSelectTargets); err != nil {
		return err
	}
	if _, ok := w.index[packageSessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTarget, packageSessionID)
	}

	if i := w.indexOfLocked(packageSessionID); i >= 0 {
		w.selected = append(w.selected[:i], w.selected[i+1:]...)
		delete(w.configs, packageSessionID)
		w.logger.Debug("target deselected", "package_session_id", packageSessionID)
		return nil
	}

	w.selected = append(w.selected, packageSessionID)
	w.logger.Debug("target selected", "package_session_id", packageSessionID)
	return nil
}

// SelectAll selects every target matching filters that is not yet selected
// and returns how many were added.
func (w *Wizard) SelectAll(filters *filter.TargetFilters) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStepLocked(StepSelectTargets); err != nil {
		return 0, err
	}

	added := 0
	for _, t := range filters.Apply(w.targets) {
		if w.indexOfLocked(t.PackageSessionID) >= 0 {
			continue
		}
		w.selected = append(w.selected, t.PackageSessionID)
		added++
	}
	return added, nil
}

// ClearSelection deselects every target and drops all configs
func (w *Wizard) ClearSelection() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStepLocked(StepSelectTargets); err != nil {
		return err
	}
	w.selected = nil
	w.configs = make(map[string]*assign.ItemConfig)
	return nil
}

// Config returns the ItemConfig of a selected target for editing. Only
// available on CONFIGURE in assign mode and never while submitting.
func (w *Wizard) Config(packageSessionID string) (*assign.ItemConfig, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireStepLocked(StepConfigure); err != nil {
		return nil, err
	}
	if w.mode != ModeAssign {
		return nil, ErrWrongStep
	}
	cfg, ok := w.configs[packageSessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, packageSessionID)
	}
	return cfg, nil
}

// Configs returns the ItemConfigs in selection order. On CONFIGURE they are
// the live configs; on any other step they are copies.
func (w *Wizard) Configs() []*assign.ItemConfig {
	w.mu.Lock()
	defer w.mu.Unlock()

	editable := w.step == StepConfigure && !w.inFlight && !w.closed
	out := make([]*assign.ItemConfig, 0, len(w.selected))
	for _, id := range w.selected {
		cfg, ok := w.configs[id]
		if !ok {
			continue
		}
		if !editable {
			cfg = cfg.Clone()
		}
		out = append(out, cfg)
	}
	return out
}

// HasConfig reports whether a target currently owns an ItemConfig
func (w *Wizard) HasConfig(packageSessionID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.configs[packageSessionID]
	return ok
}

// SetAssignOptions replaces the shared assign options
func (w *Wizard) SetAssignOptions(opts assign.AssignOptions) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireOptionsStepLocked(); err != nil {
		return err
	}
	w.assignOpts = opts
	return nil
}

// SetDeassignOptions replaces the shared de-assign options
func (w *Wizard) SetDeassignOptions(opts assign.DeassignOptions) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.requireOptionsStepLocked(); err != nil {
		return err
	}
	w.deassignOpts = opts
	return nil
}

// CanNext reports whether the Next action is enabled
func (w *Wizard) CanNext() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.canNextLocked()
}

func (w *Wizard) canNextLocked() bool {
	if w.closed || w.inFlight {
		return false
	}
	switch w.step {
	case StepSelectTargets:
		return len(w.selected) > 0 && len(w.userIDs) > 0
	case StepConfigure:
		return true
	case StepPreview:
		return w.preview != nil
	default:
		return false
	}
}

// Next advances one step. Entering PREVIEW runs the dry run and entering
// RESULTS runs the real submission; on failure the user is notified and the
// wizard stays where it was.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()

	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.inFlight {
		w.mu.Unlock()
		return ErrBusy
	}

	switch w.step {
	case StepSelectTargets:
		defer w.mu.Unlock()
		if !w.canNextLocked() {
			w.notifier.Error(ErrNoSelection.Error())
			return ErrNoSelection
		}
		w.ensureConfigsLocked()
		w.moveLocked(StepConfigure)
		return nil

	case StepConfigure:
		return w.submit(ctx, true)

	case StepPreview:
		if w.preview == nil {
			w.mu.Unlock()
			return ErrWrongStep
		}
		return w.submit(ctx, false)

	default:
		w.mu.Unlock()
		return ErrTerminal
	}
}

// Confirm submits the real request; only on PREVIEW
func (w *Wizard) Confirm(ctx context.Context) error {
	if step := w.Step(); step != StepPreview {
		return fmt.Errorf("%w: confirm on %s", ErrWrongStep, step)
	}
	return w.Next(ctx)
}

// Back returns to the previous step keeping selections and configs
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.inFlight {
		return ErrBusy
	}

	switch w.step {
	case StepConfigure:
		w.moveLocked(StepSelectTargets)
	case StepPreview:
		w.preview = nil
		w.previewAssign = nil
		w.previewDeassign = nil
		w.moveLocked(StepConfigure)
	case StepResults:
		return ErrTerminal
	default:
		return ErrWrongStep
	}
	return nil
}

// Done closes the flow from RESULTS
func (w *Wizard) Done() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if w.step != StepResults {
		return fmt.Errorf("%w: done on %s", ErrWrongStep, w.step)
	}
	w.closed = true
	w.logger.Info("wizard closed")
	return nil
}

// Preview returns the dry-run response, if any
func (w *Wizard) Preview() *assign.BulkResponse {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.preview
}

// Result returns the confirmed response, if any
func (w *Wizard) Result() *assign.BulkResponse {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Labels maps package session ids to display labels
func (w *Wizard) Labels() map[string]string {
	labels := make(map[string]string, len(w.targets))
	for _, t := range w.targets {
		labels[t.PackageSessionID] = t.Label()
	}
	return labels
}

// AssignRequest returns the bulk assign body: the previewed body once a
// preview exists, otherwise one built from the current state
func (w *Wizard) AssignRequest(dryRun bool) (*assign.BulkAssignRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.previewAssign != nil {
		return w.previewAssign.WithDryRun(dryRun), nil
	}
	return w.assignRequestLocked(dryRun)
}

// DeassignRequest returns the bulk de-assign body, like AssignRequest
func (w *Wizard) DeassignRequest(dryRun bool) (*assign.BulkDeassignRequest, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.previewDeassign != nil {
		return w.previewDeassign.WithDryRun(dryRun), nil
	}
	return w.deassignRequestLocked(dryRun)
}

func (w *Wizard) assignRequestLocked(dryRun bool) (*assign.BulkAssignRequest, error) {
	return assign.BuildAssignRequest(assign.AssignParams{
		InstituteID: w.instituteID,
		UserIDs:     w.userIDs,
		Targets:     w.selectedTargetsLocked(),
		Configs:     w.configs,
		Options:     w.assignOpts,
	}, dryRun)
}

func (w *Wizard) deassignRequestLocked(dryRun bool) (*assign.BulkDeassignRequest, error) {
	return assign.BuildDeassignRequest(assign.DeassignParams{
		InstituteID: w.instituteID,
		UserIDs:     w.userIDs,
		Targets:     w.selectedTargetsLocked(),
		Options:     w.deassignOpts,
	}, dryRun)
}

// submit must be called with mu held; it releases mu for the round trip.
// The dry run builds the body from the collected state; the real submission
// resends that exact body with dry_run=false.
func (w *Wizard) submit(ctx context.Context, dryRun bool) error {
	from := w.step

	var (
		call  func(context.Context) (*assign.BulkResponse, error)
		store func()
	)
	switch w.mode {
	case ModeDeassign:
		req, err := w.deassignBodyLocked(dryRun)
		if err != nil {
			w.mu.Unlock()
			w.notifier.Error(api.UserMessage(err))
			return err
		}
		call = func(ctx context.Context) (*assign.BulkResponse, error) {
			return w.submitter.BulkDeassign(ctx, req)
		}
		store = func() { w.previewDeassign = req.WithDryRun(true) }
	default:
		req, err := w.assignBodyLocked(dryRun)
		if err != nil {
			w.mu.Unlock()
			w.notifier.Error(api.UserMessage(err))
			return err
		}
		call = func(ctx context.Context) (*assign.BulkResponse, error) {
			return w.submitter.BulkAssign(ctx, req)
		}
		store = func() { w.previewAssign = req.WithDryRun(true) }
	}

	w.inFlight = true
	w.mu.Unlock()

	w.logger.Info("submitting bulk request", "dry_run", dryRun, "step", from.String())
	resp, err := call(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.inFlight = false

	if err != nil {
		w.logger.Warn("bulk request failed", "dry_run", dryRun, "error", err)
		w.notifier.Error(api.UserMessage(err))
		return err
	}

	w.logger.Info("bulk request completed",
		"dry_run", dryRun,
		"successful", resp.Summary.Successful,
		"skipped", resp.Summary.Skipped,
		"failed", resp.Summary.Failed)

	if dryRun {
		w.preview = resp
		store()
		w.moveLocked(StepPreview)
	} else {
		w.result = resp
		w.moveLocked(StepResults)
	}
	return nil
}

func (w *Wizard) assignBodyLocked(dryRun bool) (*assign.BulkAssignRequest, error) {
	if dryRun {
		return w.assignRequestLocked(true)
	}
	if w.previewAssign == nil {
		return nil, fmt.Errorf("%w: no previewed request", ErrWrongStep)
	}
	return w.previewAssign.WithDryRun(false), nil
}

func (w *Wizard) deassignBodyLocked(dryRun bool) (*assign.BulkDeassignRequest, error) {
	if dryRun {
		return w.deassignRequestLocked(true)
	}
	if w.previewDeassign == nil {
		return nil, fmt.Errorf("%w: no previewed request", ErrWrongStep)
	}
	return w.previewDeassign.WithDryRun(false), nil
}

func (w *Wizard) moveLocked(to Step) {
	w.logger.Debug("step changed", "from", w.step.String(), "to", to.String())
	w.step = to
}

// ensureConfigsLocked creates auto configs for newly selected targets and
// keeps the existing ones
func (w *Wizard) ensureConfigsLocked() {
	if w.mode != ModeAssign {
		return
	}
	for _, id := range w.selected {
		if _, ok := w.configs[id]; !ok {
			w.configs[id] = assign.NewItemConfig(id)
		}
	}
}

func (w *Wizard) selectedTargetsLocked() []assign.Target {
	out := make([]assign.Target, 0, len(w.selected))
	for _, id := range w.selected {
		out = append(out, w.index[id])
	}
	return out
}

func (w *Wizard) indexOfLocked(packageSessionID string) int {
	for i, id := range w.selected {
		if id == packageSessionID {
			return i
		}
	}
	return -1
}

func (w *Wizard) requireStepLocked(step Step) error {
	if w.closed {
		return ErrClosed
	}
	if w.inFlight {
		return ErrBusy
	}
	if w.step != step {
		return fmt.Errorf("%w: expected %s, on %s", ErrWrongStep, step, w.step)
	}
	return nil
}

func (w *Wizard) requireOptionsStepLocked() error {
	if w.closed {
		return ErrClosed
	}
	if w.inFlight {
		return ErrBusy
	}
	if w.step != StepSelectTargets && w.step != StepConfigure {
		return fmt.Errorf("%w: options are fixed on %s", ErrWrongStep, w.step)
	}
	return nil
}
