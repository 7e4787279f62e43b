package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahsan2/enrollctl/pkg/api"
	"github.com/yahsan2/enrollctl/pkg/assign"
	"github.com/yahsan2/enrollctl/pkg/filter"
	"github.com/yahsan2/enrollctl/pkg/invite"
)

// fakeSubmitter records every request and replays canned responses
type fakeSubmitter struct {
	mu        sync.Mutex
	assigns   []*assign.BulkAssignRequest
	deassigns []*assign.BulkDeassignRequest

	resp    *assign.BulkResponse
	err     error
	release chan struct{}
}

func (f *fakeSubmitter) BulkAssign(ctx context.Context, req *assign.BulkAssignRequest) (*assign.BulkResponse, error) {
	f.mu.Lock()
	f.assigns = append(f.assigns, req)
	f.mu.Unlock()
	return f.reply(req.Options.DryRun)
}

func (f *fakeSubmitter) BulkDeassign(ctx context.Context, req *assign.BulkDeassignRequest) (*assign.BulkResponse, error) {
	f.mu.Lock()
	f.deassigns = append(f.deassigns, req)
	f.mu.Unlock()
	return f.reply(req.Options.DryRun)
}

func (f *fakeSubmitter) reply(dryRun bool) (*assign.BulkResponse, error) {
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := *f.resp
	resp.DryRun = dryRun
	return &resp, nil
}

// recordingNotifier keeps every notification
type recordingNotifier struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (n *recordingNotifier) Info(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func testTargets() []assign.Target {
	return []assign.Target{
		{PackageSessionID: "ps-1", CourseName: "Physics", LevelName: "Class 11", SessionName: "2025", Status: "ACTIVE"},
		{PackageSessionID: "ps-2", CourseName: "Chemistry", LevelName: "Class 11", SessionName: "2025", Status: "ACTIVE"},
		{PackageSessionID: "ps-3", CourseName: "Biology", LevelName: "Class 12", SessionName: "2024", Status: "INACTIVE"},
	}
}

func okResponse() *assign.BulkResponse {
	return &assign.BulkResponse{
		Summary: assign.Summary{TotalRequested: 2, Successful: 1, Skipped: 1},
		Results: []assign.ItemResult{
			{UserID: "u-1", PackageSessionID: "ps-1", Status: assign.StatusSuccess, ActionTaken: "ENROLLED"},
			{UserID: "u-1", PackageSessionID: "ps-2", Status: assign.StatusSkipped, ActionTaken: "NONE", Message: "already enrolled"},
		},
	}
}

func newAssignWizard(sub Submitter, n Notifier) *Wizard {
	return New(context.Background(), sub, n, testTargets(), Options{
		Mode:        ModeAssign,
		InstituteID: "inst-1",
		UserIDs:     []string{"u-1"},
		Assign: assign.AssignOptions{
			DuplicateHandling: assign.DuplicateSkip,
			NotifyLearners:    true,
		},
	})
}

func TestWizard_NextDisabledWithoutSelection(t *testing.T) {
	n := &recordingNotifier{}
	w := newAssignWizard(&fakeSubmitter{resp: okResponse()}, n)

	assert.Equal(t, StepSelectTargets, w.Step())
	assert.False(t, w.CanNext())

	err := w.Next(context.Background())
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Equal(t, StepSelectTargets, w.Step())
	assert.Len(t, n.errors, 1)
}

func TestWizard_NextDisabledWithoutUsers(t *testing.T) {
	w := New(context.Background(), &fakeSubmitter{resp: okResponse()}, nil, testTargets(), Options{
		Mode:        ModeAssign,
		InstituteID: "inst-1",
		Assign:      assign.AssignOptions{DuplicateHandling: assign.DuplicateSkip},
	})

	require.NoError(t, w.Toggle("ps-1"))
	assert.False(t, w.CanNext())

	require.NoError(t, w.SetUserIDs([]string{"u-1"}))
	assert.True(t, w.CanNext())
}

func TestWizard_ToggleUnknownTarget(t *testing.T) {
	w := newAssignWizard(&fakeSubmitter{resp: okResponse()}, nil)

	err := w.Toggle("nope")
	assert.ErrorIs(t, err, ErrUnknownTarget)
	assert.Empty(t, w.Selected())
}

func TestWizard_SelectAllAndClear(t *testing.T) {
	w := newAssignWizard(&fakeSubmitter{resp: okResponse()}, nil)

	require.NoError(t, w.Toggle("ps-2"))

	added, err := w.SelectAll(filter.NewTargetFilters())
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	selected := w.Selected()
	require.Len(t, selected, 2)
	assert.Equal(t, "ps-2", selected[0].PackageSessionID)
	assert.Equal(t, "ps-1", selected[1].PackageSessionID)

	require.NoError(t, w.ClearSelection())
	assert.Empty(t, w.Selected())
	assert.False(t, w.CanNext())
}

func TestWizard_ToggleOffRemovesConfig(t *testing.T) {
	w := newAssignWizard(&fakeSubmitter{resp: okResponse()}, nil)

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Toggle("ps-2"))
	require.NoError(t, w.Next(context.Background()))
	require.Equal(t, StepConfigure, w.Step())

	cfg, err := w.Config("ps-1")
	require.NoError(t, err)
	cfg.IsAutoMode = false
	cfg.SelectedInvite = &invite.Summary{ID: "inv-1", Name: "Autumn"}
	cfg.ResolvedPaymentOption = &invite.PaymentOption{ID: "po-1"}

	require.NoError(t, w.Back())
	require.NoError(t, w.Toggle("ps-1"))

	assert.False(t, w.HasConfig("ps-1"))
	assert.True(t, w.HasConfig("ps-2"))

	// re-selecting starts from a fresh auto config
	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Next(context.Background()))
	cfg, err = w.Config("ps-1")
	require.NoError(t, err)
	assert.True(t, cfg.IsAutoMode)
	assert.Nil(t, cfg.SelectedInvite)
}

func TestWizard_BackKeepsConfigs(t *testing.T) {
	w := newAssignWizard(&fakeSubmitter{resp: okResponse()}, nil)

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Next(context.Background()))

	cfg, err := w.Config("ps-1")
	require.NoError(t, err)
	days := 30
	require.NoError(t, cfg.SetAccessDays(&days))

	require.NoError(t, w.Back())
	require.NoError(t, w.Toggle("ps-2"))
	require.NoError(t, w.Next(context.Background()))

	cfg, err = w.Config("ps-1")
	require.NoError(t, err)
	require.NotNil(t, cfg.AccessDaysOverride)
	assert.Equal(t, 30, *cfg.AccessDaysOverride)
	assert.Len(t, w.Configs(), 2)
}

func TestWizard_PreviewAndConfirmDifferOnlyInDryRun(t *testing.T) {
	sub := &fakeSubmitter{resp: okResponse()}
	w := newAssignWizard(sub, nil)
	ctx := context.Background()

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Toggle("ps-2"))
	require.NoError(t, w.Next(ctx))

	cfg, err := w.Config("ps-2")
	require.NoError(t, err)
	cfg.IsAutoMode = false
	cfg.SelectedInvite = &invite.Summary{ID: "inv-9", Name: "Scholarship"}
	cfg.ResolvedPaymentOption = &invite.PaymentOption{ID: "po-9"}
	cfg.ResolvedPaymentPlan = &invite.PaymentPlan{ID: "pl-9"}

	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepPreview, w.Step())
	require.NotNil(t, w.Preview())
	assert.True(t, w.Preview().DryRun)

	require.NoError(t, w.Confirm(ctx))
	require.Equal(t, StepResults, w.Step())
	require.NotNil(t, w.Result())
	assert.False(t, w.Result().DryRun)

	require.Len(t, sub.assigns, 2)
	preview, confirm := sub.assigns[0], sub.assigns[1]
	assert.True(t, preview.Options.DryRun)
	assert.False(t, confirm.Options.DryRun)

	previewJSON, err := json.Marshal(preview)
	require.NoError(t, err)
	confirmJSON, err := json.Marshal(confirm.WithDryRun(true))
	require.NoError(t, err)
	assert.JSONEq(t, string(previewJSON), string(confirmJSON))
}

func TestWizard_ConfirmSendsPreviewedBody(t *testing.T) {
	sub := &fakeSubmitter{resp: okResponse()}
	w := newAssignWizard(sub, nil)
	ctx := context.Background()

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Next(ctx))

	live, err := w.Config("ps-1")
	require.NoError(t, err)

	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepPreview, w.Step())

	// neither the returned configs nor a pointer kept from CONFIGURE can
	// change what gets confirmed
	days := 7
	require.NoError(t, w.Configs()[0].SetAccessDays(&days))
	require.NoError(t, live.SetAccessDays(&days))
	live.IsAutoMode = false
	live.SelectedInvite = &invite.Summary{ID: "inv-late"}

	require.NoError(t, w.Confirm(ctx))
	require.Len(t, sub.assigns, 2)

	previewJSON, err := json.Marshal(sub.assigns[0])
	require.NoError(t, err)
	confirmJSON, err := json.Marshal(sub.assigns[1].WithDryRun(true))
	require.NoError(t, err)
	assert.JSONEq(t, string(previewJSON), string(confirmJSON))
	assert.Nil(t, sub.assigns[1].Assignments[0].AccessDays)
	assert.Nil(t, sub.assigns[1].Assignments[0].EnrollInviteID)
}

func TestWizard_ConfigsAreCopiesOutsideConfigure(t *testing.T) {
	w := newAssignWizard(&fakeSubmitter{resp: okResponse()}, nil)
	ctx := context.Background()

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Next(ctx))

	days := 30
	require.NoError(t, w.Configs()[0].SetAccessDays(&days))

	require.NoError(t, w.Next(ctx))
	other := 7
	require.NoError(t, w.Configs()[0].SetAccessDays(&other))

	require.NoError(t, w.Back())
	cfg, err := w.Config("ps-1")
	require.NoError(t, err)
	require.NotNil(t, cfg.AccessDaysOverride)
	assert.Equal(t, 30, *cfg.AccessDaysOverride)
}

func TestWizard_BackFromPreviewRebuildsBody(t *testing.T) {
	sub := &fakeSubmitter{resp: okResponse()}
	w := newAssignWizard(sub, nil)
	ctx := context.Background()

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))

	require.NoError(t, w.Back())
	assert.Equal(t, StepConfigure, w.Step())
	assert.Nil(t, w.Preview())

	cfg, err := w.Config("ps-1")
	require.NoError(t, err)
	days := 90
	require.NoError(t, cfg.SetAccessDays(&days))

	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Confirm(ctx))

	require.Len(t, sub.assigns, 3)
	assert.Nil(t, sub.assigns[0].Assignments[0].AccessDays)
	for _, req := range sub.assigns[1:] {
		require.NotNil(t, req.Assignments[0].AccessDays)
		assert.Equal(t, 90, *req.Assignments[0].AccessDays)
	}
	assert.True(t, sub.assigns[1].Options.DryRun)
	assert.False(t, sub.assigns[2].Options.DryRun)
}

func TestWizard_AutoTargetsSendNullInvite(t *testing.T) {
	sub := &fakeSubmitter{resp: okResponse()}
	w := newAssignWizard(sub, nil)
	ctx := context.Background()

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Toggle("ps-2"))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))

	require.Len(t, sub.assigns, 1)
	body, err := json.Marshal(sub.assigns[0])
	require.NoError(t, err)

	var decoded struct {
		Assignments []map[string]interface{} `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded.Assignments, 2)
	for _, a := range decoded.Assignments {
		v, ok := a["enroll_invite_id"]
		assert.True(t, ok)
		assert.Nil(t, v)
	}
}

func TestWizard_FailedPreviewStaysOnStep(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "server message",
			err:     &api.Error{Type: api.ErrorTypeValidation, Server: "User u-1 does not exist"},
			wantMsg: "User u-1 does not exist",
		},
		{
			name:    "no server message",
			err:     errors.New("connection reset"),
			wantMsg: api.GenericMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &recordingNotifier{}
			sub := &fakeSubmitter{err: tt.err}
			w := newAssignWizard(sub, n)
			ctx := context.Background()

			require.NoError(t, w.Toggle("ps-1"))
			require.NoError(t, w.Next(ctx))

			err := w.Next(ctx)
			require.Error(t, err)
			assert.Equal(t, StepConfigure, w.Step())
			assert.Nil(t, w.Preview())
			assert.False(t, w.Busy())
			assert.Equal(t, []string{tt.wantMsg}, n.errors)

			// no automatic retry
			assert.Len(t, sub.assigns, 1)
		})
	}
}

func TestWizard_FailedConfirmStaysOnPreview(t *testing.T) {
	n := &recordingNotifier{}
	sub := &fakeSubmitter{resp: okResponse()}
	w := newAssignWizard(sub, n)
	ctx := context.Background()

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))

	sub.err = &api.Error{Type: api.ErrorTypeServer, Server: "Enrollment service unavailable"}
	require.Error(t, w.Confirm(ctx))

	assert.Equal(t, StepPreview, w.Step())
	assert.NotNil(t, w.Preview())
	assert.Nil(t, w.Result())
	assert.Equal(t, []string{"Enrollment service unavailable"}, n.errors)
}

func TestWizard_BusyWhileInFlight(t *testing.T) {
	sub := &fakeSubmitter{resp: okResponse(), release: make(chan struct{})}
	w := newAssignWizard(sub, nil)
	ctx := context.Background()

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Next(ctx))

	done := make(chan error, 1)
	go func() {
		done <- w.Next(ctx)
	}()

	require.Eventually(t, w.Busy, time.Second, 5*time.Millisecond)

	assert.False(t, w.CanNext())
	assert.ErrorIs(t, w.Next(ctx), ErrBusy)
	assert.ErrorIs(t, w.Back(), ErrBusy)
	_, err := w.Config("ps-1")
	assert.ErrorIs(t, err, ErrBusy)

	close(sub.release)
	require.NoError(t, <-done)
	assert.Equal(t, StepPreview, w.Step())
	assert.Len(t, sub.assigns, 1)
}

func TestWizard_ResultsIsTerminal(t *testing.T) {
	w := newAssignWizard(&fakeSubmitter{resp: okResponse()}, nil)
	ctx := context.Background()

	assert.ErrorIs(t, w.Done(), ErrWrongStep)

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))
	require.Equal(t, StepResults, w.Step())

	assert.ErrorIs(t, w.Back(), ErrTerminal)
	assert.ErrorIs(t, w.Next(ctx), ErrTerminal)
	assert.False(t, w.CanNext())

	require.NoError(t, w.Done())
	assert.True(t, w.Closed())
	assert.ErrorIs(t, w.Done(), ErrClosed)
	assert.ErrorIs(t, w.Next(ctx), ErrClosed)
	assert.ErrorIs(t, w.Back(), ErrClosed)
}

func TestWizard_ConfirmOnlyFromPreview(t *testing.T) {
	sub := &fakeSubmitter{resp: okResponse()}
	w := newAssignWizard(sub, nil)

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Next(context.Background()))

	assert.ErrorIs(t, w.Confirm(context.Background()), ErrWrongStep)
	assert.Empty(t, sub.assigns)
}

func TestWizard_Deassign(t *testing.T) {
	sub := &fakeSubmitter{resp: okResponse()}
	w := New(context.Background(), sub, nil, testTargets(), Options{
		Mode:        ModeDeassign,
		InstituteID: "inst-1",
		UserIDs:     []string{"u-1", "u-2"},
		Deassign:    assign.DeassignOptions{Mode: assign.DeassignSoft},
	})
	ctx := context.Background()

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Toggle("ps-3"))
	require.NoError(t, w.Next(ctx))

	_, err := w.Config("ps-1")
	assert.ErrorIs(t, err, ErrWrongStep)

	require.NoError(t, w.SetDeassignOptions(assign.DeassignOptions{Mode: assign.DeassignHard}))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))

	require.Len(t, sub.deassigns, 2)
	assert.Empty(t, sub.assigns)

	preview, confirm := sub.deassigns[0], sub.deassigns[1]
	assert.Equal(t, []string{"ps-1", "ps-3"}, preview.PackageSessionIDs)
	assert.Equal(t, assign.DeassignHard, preview.Options.Mode)
	assert.True(t, preview.Options.DryRun)
	assert.False(t, confirm.Options.DryRun)
	assert.Equal(t, preview, confirm.WithDryRun(true))
}

func TestWizard_OptionsFixedAfterPreview(t *testing.T) {
	w := newAssignWizard(&fakeSubmitter{resp: okResponse()}, nil)
	ctx := context.Background()

	require.NoError(t, w.Toggle("ps-1"))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))

	err := w.SetAssignOptions(assign.AssignOptions{DuplicateHandling: assign.DuplicateReEnroll})
	assert.ErrorIs(t, err, ErrWrongStep)
}

func TestWizard_Labels(t *testing.T) {
	w := newAssignWizard(&fakeSubmitter{resp: okResponse()}, nil)

	labels := w.Labels()
	assert.Equal(t, "Physics · Class 11 · 2025", labels["ps-1"])
	assert.NotEmpty(t, w.ID())
}
