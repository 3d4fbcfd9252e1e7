package bouncetracking

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/marcus/dtf/internal/cdp/cdptest"
	"github.com/marcus/dtf/internal/events"
	"github.com/marcus/dtf/internal/models"
)

const method = "Storage.runBounceTrackingMitigations"

type stubRecorder struct {
	runs []models.BounceRun
	err  error
}

func (s *stubRecorder) RecordBounceRun(run models.BounceRun) error {
	s.runs = append(s.runs, run)
	return s.err
}

func TestInitialSections(t *testing.T) {
	v := NewView(nil, nil, nil)
	want := []string{"Force run", "Learn more: Bounce Tracking Mitigations"}
	if diff := cmp.Diff(want, v.Sections()); diff != "" {
		t.Errorf("Sections() mismatch (-want +got):\n%s", diff)
	}
	if v.ShowsTable() {
		t.Error("table should be hidden before a run")
	}
	if v.Rows() != nil {
		t.Errorf("Rows() = %v, want nil", v.Rows())
	}
	if v.State() != StateInitial {
		t.Errorf("State() = %v, want initial", v.State())
	}
}

func TestForceRunNoDeletedSites(t *testing.T) {
	client := cdptest.New("S1")
	client.Respond(method, map[string]any{"deletedSites": []string{}})

	v := NewView(nil, nil, nil)
	if _, err := v.ForceRun(context.Background(), client); err != nil {
		t.Fatalf("ForceRun failed: %v", err)
	}

	want := []string{
		"Force run",
		"State was not cleared for any potential bounce tracking sites. Either none were identified, bounce tracking mitigations are not enabled, or third-party cookies are not blocked.",
		"Learn more: Bounce Tracking Mitigations",
	}
	if diff := cmp.Diff(want, v.Sections()); diff != "" {
		t.Errorf("Sections() mismatch (-want +got):\n%s", diff)
	}
	if v.ShowsTable() {
		t.Error("table should be hidden when no sites were deleted")
	}
}

func TestForceRunRendersDeletedSites(t *testing.T) {
	client := cdptest.New("S1")
	client.Respond(method, map[string]any{"deletedSites": []string{"tracker-1.example", "tracker-2.example"}})

	bus := events.NewBus[models.BounceRun](events.KindMitigationsRan, 4)
	sub := bus.Subscribe("test")
	rec := &stubRecorder{}
	v := NewView(bus, rec, nil)

	run, err := v.ForceRun(context.Background(), client)
	if err != nil {
		t.Fatalf("ForceRun failed: %v", err)
	}

	wantRows := [][]string{{"tracker-1.example"}, {"tracker-2.example"}}
	if diff := cmp.Diff(wantRows, v.Rows()); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}
	wantSections := []string{"Force run", "Learn more: Bounce Tracking Mitigations"}
	if diff := cmp.Diff(wantSections, v.Sections()); diff != "" {
		t.Errorf("Sections() mismatch (-want +got):\n%s", diff)
	}
	if !v.ShowsTable() {
		t.Error("table should be shown")
	}

	published := <-sub.C()
	if published.ID != run.ID || len(published.DeletedSites) != 2 {
		t.Errorf("published %+v, want %+v", published, run)
	}
	if len(rec.runs) != 1 || rec.runs[0].ID != run.ID {
		t.Errorf("recorded %+v", rec.runs)
	}

	calls := client.CallsTo(method)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].SessionID != "S1" {
		t.Errorf("call session = %q, want S1", calls[0].SessionID)
	}
	if string(calls[0].Params) != "{}" {
		t.Errorf("params = %s, want {}", calls[0].Params)
	}
}

func TestForceRunErrorKeepsState(t *testing.T) {
	boom := errors.New("target closed")
	client := cdptest.New("S1")
	client.Fail(method, boom)

	v := NewView(nil, nil, nil)
	if _, err := v.ForceRun(context.Background(), client); !errors.Is(err, boom) {
		t.Fatalf("ForceRun error = %v, want boom", err)
	}
	if v.State() != StateInitial {
		t.Errorf("State() = %v, want initial", v.State())
	}
	if !errors.Is(v.Err(), boom) {
		t.Errorf("Err() = %v, want boom", v.Err())
	}
	if got := len(v.Sections()); got != 2 {
		t.Errorf("got %d sections, want 2", got)
	}
}

func TestForceRunErrorAfterRunKeepsSites(t *testing.T) {
	client := cdptest.New("S1")
	client.Respond(method, map[string]any{"deletedSites": []string{"tracker.example"}})
	v := NewView(nil, nil, nil)
	if _, err := v.ForceRun(context.Background(), client); err != nil {
		t.Fatalf("first ForceRun: %v", err)
	}

	boom := errors.New("target closed")
	client.Fail(method, boom)
	if _, err := v.ForceRun(context.Background(), client); !errors.Is(err, boom) {
		t.Fatalf("ForceRun error = %v, want boom", err)
	}
	if v.State() != StateDone {
		t.Errorf("State() = %v, want done", v.State())
	}
	if diff := cmp.Diff([][]string{{"tracker.example"}}, v.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(v.Err(), boom) {
		t.Errorf("Err() = %v, want boom", v.Err())
	}
}

func TestForceRunRecorderErrorIgnored(t *testing.T) {
	client := cdptest.New("S1")
	client.Respond(method, map[string]any{"deletedSites": []string{"a.example"}})
	v := NewView(nil, &stubRecorder{err: errors.New("disk full")}, nil)
	if _, err := v.ForceRun(context.Background(), client); err != nil {
		t.Fatalf("recorder errors must not fail the run: %v", err)
	}
}

func TestForceRunCanceledContext(t *testing.T) {
	client := cdptest.New("S1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := NewView(nil, nil, nil)
	if _, err := v.ForceRun(ctx, client); !errors.Is(err, context.Canceled) {
		t.Errorf("ForceRun error = %v, want context.Canceled", err)
	}
}

func TestForceRunWhileRunning(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	client := cdptest.New("S1")
	client.Handle(method, func(json.RawMessage) (any, error) {
		close(started)
		<-release
		return map[string]any{"deletedSites": []string{}}, nil
	})

	v := NewView(nil, nil, nil)
	done := make(chan error, 1)
	go func() {
		_, err := v.ForceRun(context.Background(), client)
		done <- err
	}()
	<-started

	if got := v.Sections()[0]; got != ForceRunningLabel {
		t.Errorf("button = %q while running, want %q", got, ForceRunningLabel)
	}
	if _, err := v.ForceRun(context.Background(), client); !errors.Is(err, ErrRunning) {
		t.Errorf("second ForceRun error = %v, want ErrRunning", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if v.State() != StateDone {
		t.Errorf("State() = %v, want done", v.State())
	}
}

func TestRestore(t *testing.T) {
	v := NewView(nil, nil, nil)
	v.Restore(models.BounceRun{ID: "r1", DeletedSites: []string{"x.example"}})
	if diff := cmp.Diff([][]string{{"x.example"}}, v.Rows()); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}
	run, ok := v.LastRun()
	if !ok || run.ID != "r1" {
		t.Errorf("LastRun() = %+v, %v", run, ok)
	}
}
