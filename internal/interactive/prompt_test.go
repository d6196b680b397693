package interactive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestPrompterRetryResponse(t *testing.T) {
	input := strings.NewReader("\n")
	output := &bytes.Buffer{}
	p := NewPrompterWithIO(input, output)

	resp, err := p.WaitForClose(context.Background(), "App.exe")
	if err != nil {
		t.Fatalf("WaitForClose() error = %v", err)
	}
	if resp != ResponseRetry {
		t.Errorf("expected ResponseRetry, got %v", resp)
	}
	if !strings.Contains(output.String(), "App.exe is in use. Close the application using it and press Enter to retry") {
		t.Errorf("unexpected prompt: %q", output.String())
	}
}

func TestPrompterQuitResponse(t *testing.T) {
	for _, answer := range []string{"q", "Q", "quit", "  quit  "} {
		t.Run(answer, func(t *testing.T) {
			p := NewPrompterWithIO(strings.NewReader(answer+"\n"), io.Discard)

			resp, err := p.WaitForClose(context.Background(), "App.exe")
			if err != nil {
				t.Fatalf("WaitForClose() error = %v", err)
			}
			if resp != ResponseQuit {
				t.Errorf("expected ResponseQuit for %q, got %v", answer, resp)
			}
		})
	}
}

func TestPrompterOtherInputRetries(t *testing.T) {
	p := NewPrompterWithIO(strings.NewReader("done\n"), io.Discard)

	resp, err := p.WaitForClose(context.Background(), "App.exe")
	if err != nil {
		t.Fatalf("WaitForClose() error = %v", err)
	}
	if resp != ResponseRetry {
		t.Errorf("expected ResponseRetry, got %v", resp)
	}
}

func TestPrompterSequentialPrompts(t *testing.T) {
	p := NewPrompterWithIO(strings.NewReader("\n\nq\n"), io.Discard)

	want := []Response{ResponseRetry, ResponseRetry, ResponseQuit}
	for i, w := range want {
		resp, err := p.WaitForClose(context.Background(), "App.exe")
		if err != nil {
			t.Fatalf("prompt %d: error = %v", i, err)
		}
		if resp != w {
			t.Errorf("prompt %d: got %v, want %v", i, resp, w)
		}
	}
}

func TestPrompterEndOfInput(t *testing.T) {
	p := NewPrompterWithIO(strings.NewReader(""), io.Discard)

	_, err := p.WaitForClose(context.Background(), "App.exe")
	if !errors.Is(err, ErrNoInput) {
		t.Errorf("expected ErrNoInput, got %v", err)
	}
}

func TestPrompterCancelled(t *testing.T) {
	// A reader that never returns keeps the prompt waiting.
	blocked, w := io.Pipe()
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPrompterWithIO(blocked, io.Discard)
	_, err := p.WaitForClose(ctx, "App.exe")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestEscalate(t *testing.T) {
	quits := 0
	output := &bytes.Buffer{}
	p := NewPrompterWithIO(strings.NewReader("\nq\n"), output, WithQuit(func() { quits++ }))

	if err := p.Escalate(context.Background(), "App.exe"); err != nil {
		t.Errorf("Escalate() retry error = %v", err)
	}
	if quits != 0 {
		t.Fatalf("quit called on retry")
	}

	err := p.Escalate(context.Background(), "App.exe")
	if !errors.Is(err, ErrAborted) {
		t.Errorf("Escalate() quit error = %v, want ErrAborted", err)
	}
	if quits != 1 {
		t.Errorf("quit called %d times, want 1", quits)
	}
	if !strings.Contains(output.String(), "Aborting update.") {
		t.Errorf("expected abort message in output")
	}
}

func TestLogEscalator(t *testing.T) {
	var buf bytes.Buffer
	e := LogEscalator{Logger: log.New(&buf)}

	if err := e.Escalate(context.Background(), "App.exe"); err != nil {
		t.Errorf("Escalate() error = %v", err)
	}
	if !strings.Contains(buf.String(), "App.exe") {
		t.Errorf("expected file name in log, got %q", buf.String())
	}
}
