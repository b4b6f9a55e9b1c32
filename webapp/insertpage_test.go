package webapp

import (
	"strings"
	"testing"

	"github.com/drummonds/pdfcanvas/engine/scale"
)

func TestScaleLabels(t *testing.T) {
	labels := scaleLabels()
	if len(labels) != len(scale.Factors) {
		t.Fatalf("Expected %d labels, got %d", len(scale.Factors), len(labels))
	}
	for _, label := range labels {
		if _, err := scale.Parse(label); err != nil {
			t.Errorf("Label %q does not parse back: %v", label, err)
		}
	}
	if !strings.Contains(strings.Join(labels, ","), scale.Default.String()) {
		t.Errorf("Expected the default %s among %v", scale.Default, labels)
	}
}

func TestPreviewText(t *testing.T) {
	if previewText(nil, 0) != "" {
		t.Error("Expected no preview without a document")
	}

	c := scale.NewController(scale.Size{Width: 612, Height: 792}, 0)
	if got := previewText(c, 3); got != "3 page(s), first page 1224 x 1584 at 2x" {
		t.Errorf("Unexpected preview %q", got)
	}
	if err := c.SetLabel("4x"); err != nil {
		t.Fatalf("SetLabel failed: %v", err)
	}
	if got := previewText(c, 3); strings.Contains(got, "larger") {
		t.Errorf("Did not expect a warning at 4x for a letter page: %q", got)
	}

	big := scale.NewController(scale.Size{Width: 1200, Height: 800}, 0)
	big.SetLabel("4x")
	if got := previewText(big, 1); !strings.Contains(got, "larger") {
		t.Errorf("Expected a size warning, got %q", got)
	}
}

func TestSummaryText(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   string
	}{
		{
			name:   "all placed",
			result: `{"document":"a.pdf","scale":"2x","pages":2,"sent":2,"inserted":2}`,
			want:   "Inserted 2 of 2 pages of a.pdf at 2x",
		},
		{
			name:   "with failures and warnings",
			result: `{"document":"a.pdf","scale":"4x","pages":3,"sent":3,"inserted":2,"failed":[1],"warnings":[0]}`,
			want:   "Inserted 2 of 3 pages of a.pdf at 4x, failed pages [2], oversized pages [1]",
		},
		{
			name:   "not a summary",
			result: `{"deleted":3}`,
			want:   `{"deleted":3}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summaryText(tt.result); got != tt.want {
				t.Errorf("summaryText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorText(t *testing.T) {
	if got := errorText(`{"error":"a document is already being inserted"}`, 409); got != "a document is already being inserted" {
		t.Errorf("Unexpected error text %q", got)
	}
	if got := errorText("null", 500); got != "request failed (status: 500)" {
		t.Errorf("Unexpected error text %q", got)
	}
}

func TestInsertPageRender(t *testing.T) {
	pages := []*InsertPage{
		{},
		{error: "boom"},
		{sessionID: "01J", job: Job{Status: "running", Progress: 50, CurrentStep: "Rendering(1)"}},
		{sessionID: "01J", job: Job{Status: "completed", Result: `{"pages":1,"inserted":1}`}},
		{controller: scale.NewController(scale.Size{Width: 100, Height: 100}, 0), pages: 1},
	}
	for i, page := range pages {
		if page.Render() == nil {
			t.Errorf("page %d: Render should return a valid UI component", i)
		}
	}
}
