package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahsan2/enrollctl/pkg/assign"
	"github.com/yahsan2/enrollctl/pkg/invite"
)

func newPrompt(input string) (*InteractivePrompt, *bytes.Buffer) {
	var out bytes.Buffer
	return NewInteractivePromptWithIO(strings.NewReader(input), &out), &out
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		n       int
		want    []int
		wantErr bool
	}{
		{name: "single", input: "2", n: 3, want: []int{1}},
		{name: "list and range", input: "3, 1-2", n: 5, want: []int{0, 1, 2}},
		{name: "overlap", input: "1-3,2", n: 3, want: []int{0, 1, 2}},
		{name: "all", input: "ALL", n: 2, want: []int{0, 1}},
		{name: "empty", input: "", n: 2, want: nil},
		{name: "out of range", input: "4", n: 3, wantErr: true},
		{name: "reversed range", input: "3-1", n: 3, wantErr: true},
		{name: "garbage", input: "x", n: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelection(tt.input, tt.n)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"\n", false, false},
		{"\n", true, true},
		{"n\n", true, false},
		{"", true, false},
	}

	for _, tt := range tests {
		p, _ := newPrompt(tt.input)
		assert.Equal(t, tt.want, p.Confirm("Proceed?", tt.defaultYes), "input %q", tt.input)
	}
}

func TestGetStringInput(t *testing.T) {
	p, out := newPrompt("\ncustom\n")

	assert.Equal(t, "fallback", p.GetStringInput("Institute", "fallback"))
	assert.Equal(t, "custom", p.GetStringInput("Institute", "fallback"))
	assert.Contains(t, out.String(), "Institute (default: fallback): ")
}

func TestGetIntInput(t *testing.T) {
	p, _ := newPrompt("30\n\n-2\n")

	n, err := p.GetIntInput("Access days", nil)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 30, *n)

	n, err = p.GetIntInput("Access days", nil)
	require.NoError(t, err)
	assert.Nil(t, n)

	_, err = p.GetIntInput("Access days", nil)
	assert.Error(t, err)
}

func TestSelectTargets(t *testing.T) {
	targets := []assign.Target{
		{PackageSessionID: "ps-1", CourseName: "Physics"},
		{PackageSessionID: "ps-2", CourseName: "Chemistry"},
		{PackageSessionID: "ps-3", CourseName: "Biology"},
	}

	p, out := newPrompt("1,3\n")
	ids, err := p.SelectTargets(targets)
	require.NoError(t, err)
	assert.Equal(t, []string{"ps-1", "ps-3"}, ids)
	assert.Contains(t, out.String(), "Chemistry")
}

func TestSelectInvite(t *testing.T) {
	page := &invite.Page{Content: []invite.Summary{
		{ID: "inv-1", Name: "Autumn"},
		{ID: "inv-2", Name: "Scholarship", InviteCode: "SCH"},
	}}

	tests := []struct {
		input  string
		action InviteAction
		id     string
		query  string
	}{
		{"2\n", ActionSelect, "inv-2", ""},
		{"0\n", ActionAuto, "", ""},
		{"\n", ActionKeep, "", ""},
		{"n\n", ActionNextPage, "", ""},
		{"p\n", ActionPrevPage, "", ""},
		{"/spring\n", ActionSearch, "", "spring"},
		{"9\n", ActionKeep, "", ""},
	}

	for _, tt := range tests {
		p, _ := newPrompt(tt.input)
		choice := p.SelectInvite("Physics", page)
		assert.Equal(t, tt.action, choice.Action, "input %q", tt.input)
		assert.Equal(t, tt.query, choice.Query)
		if tt.id != "" {
			require.NotNil(t, choice.Invite)
			assert.Equal(t, tt.id, choice.Invite.ID)
		} else {
			assert.Nil(t, choice.Invite)
		}
	}
}

func TestReviewPreview(t *testing.T) {
	tests := []struct {
		input     string
		allowBack bool
		want      PreviewAction
	}{
		{"y\n", true, PreviewApply},
		{"Yes\n", false, PreviewApply},
		{"b\n", true, PreviewBack},
		{"back\n", true, PreviewBack},
		{"b\n", false, PreviewCancel},
		{"\n", true, PreviewCancel},
		{"n\n", true, PreviewCancel},
		{"", true, PreviewCancel},
	}

	for _, tt := range tests {
		p, out := newPrompt(tt.input)
		assert.Equal(t, tt.want, p.ReviewPreview(tt.allowBack), "input %q", tt.input)
		assert.Equal(t, tt.allowBack, strings.Contains(out.String(), "b = back"))
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "Physics...", truncateString("Physics · Class 11", 10))
}
