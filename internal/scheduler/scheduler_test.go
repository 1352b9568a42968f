package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(time.UTC)
	if err := s.Add("bad", "every now and then", func(context.Context) error { return nil }); err == nil {
		t.Fatal("bad spec accepted")
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d after failed Add", s.Len())
	}
}

func TestValidateSpec(t *testing.T) {
	for _, spec := range []string{"*/15 * * * *", "0 6 * * *", "@every 10m", "@hourly"} {
		if err := ValidateSpec(spec); err != nil {
			t.Errorf("ValidateSpec(%q) = %v", spec, err)
		}
	}
	for _, spec := range []string{"", "61 * * * *", "* * *"} {
		if err := ValidateSpec(spec); err == nil {
			t.Errorf("ValidateSpec(%q) accepted", spec)
		}
	}
}

func TestJobRunsAndStops(t *testing.T) {
	s := New(time.UTC)
	ran := make(chan struct{}, 1)
	if err := s.Add("tick", "@every 1s", func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d", s.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run")
	}
	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
