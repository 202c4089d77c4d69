package delta

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fileCellConfig struct {
	Port int    `json:"port" yaml:"port"`
	Host string `json:"host" yaml:"host"`
}

func TestFileCell_MissingFileReadsInitial(t *testing.T) {
	initial := fileCellConfig{Port: 80}
	cell := NewFileCell(filepath.Join(t.TempDir(), "app.yaml"), initial, nil)

	if got := cell.Get(); got != initial {
		t.Errorf("expected %+v, got %+v", initial, got)
	}
	if err := cell.Err(); err != nil {
		t.Errorf("expected no error for missing file, got %v", err)
	}
}

func TestFileCell_SetThenGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	cell := NewFileCell(path, fileCellConfig{}, nil)

	want := fileCellConfig{Port: 8080, Host: "localhost"}
	cell.Set(want)
	if err := cell.Err(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != `{"port":8080,"host":"localhost"}` {
		t.Errorf("unexpected file contents %s", data)
	}

	if got := NewFileCell(path, fileCellConfig{}, nil).Get(); got != want {
		t.Errorf("expected %+v from a fresh cell, got %+v", want, got)
	}
}

func TestFileCell_DecodeFailureKeepsLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	cell := NewFileCell(path, fileCellConfig{}, nil)
	cell.Set(fileCellConfig{Port: 1})

	if err := os.WriteFile(path, []byte("port: [unclosed"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if got := cell.Get(); got.Port != 1 {
		t.Errorf("expected last good value, got %+v", got)
	}
	if cell.Err() == nil {
		t.Error("expected decode error")
	}

	if err := os.WriteFile(path, []byte("port: 2"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if got := cell.Get(); got.Port != 2 {
		t.Errorf("expected recovered value, got %+v", got)
	}
	if err := cell.Err(); err != nil {
		t.Errorf("expected error cleared, got %v", err)
	}
}

func TestFileCell_UnknownExtensionPanics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvalidConfig) || !errors.Is(err, ErrUnknownCodec) {
			t.Errorf("expected ErrInvalidConfig wrapping ErrUnknownCodec, got %v", r)
		}
	}()
	NewFileCell(filepath.Join(t.TempDir(), "app.toml"), 0, nil)
}

func TestFileCell_ExplicitCodec(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state")
	cell := NewFileCell(path, 0, YAMLCodec{})
	cell.Set(42)

	if got := cell.Get(); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestFileCell_HistoryUndoRewritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	cell := NewFileCell(path, fileCellConfig{}, nil)
	cell.Set(fileCellConfig{Port: 1})

	h := NewHistory[fileCellConfig](context.Background(), cell, WithFlush(FlushSync))
	defer h.Stop()

	cell.Set(fileCellConfig{Port: 2})
	if err := h.Tick(); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}

	if got := NewFileCell(path, fileCellConfig{}, nil).Get(); got.Port != 1 {
		t.Errorf("expected file restored to port 1, got %+v", got)
	}
}
