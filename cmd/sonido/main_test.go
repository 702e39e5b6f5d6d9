package main

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	fast, err := loadConfig("fast")
	if err != nil {
		t.Fatal(err)
	}
	if fast.SampleRate != 22050 || fast.MaxDurationSeconds != 30 {
		t.Errorf("fast = %d Hz, cap %v", fast.SampleRate, fast.MaxDurationSeconds)
	}

	viper.Set("sample_rate", 16000)
	viper.Set("tempo_weights.tempogram", 0.5)
	full, err := loadConfig("full")
	if err != nil {
		t.Fatal(err)
	}
	if full.SampleRate != 16000 || full.TempoWeights.Tempogram != 0.5 || full.FFTSize != 2048 {
		t.Errorf("full with overrides = %+v", full)
	}

	if _, err := loadConfig("turbo"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestLoadConfigFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "sonido.yaml")
	yaml := "sample_rate: 8000\nhop_length: 256\ntranscode_timeout: 5s\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatal(err)
	}

	config, err := loadConfig("full")
	if err != nil {
		t.Fatal(err)
	}
	if config.SampleRate != 8000 || config.HopLength != 256 || config.TranscodeTimeout.Seconds() != 5 {
		t.Errorf("config = %+v", config)
	}
}

func TestWriteOutput(t *testing.T) {
	v := map[string]any{"bpm": 120.5}

	var buf bytes.Buffer
	if err := writeOutput(&buf, "json", v); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"bpm": 120.5`) {
		t.Errorf("json = %s", buf.String())
	}

	buf.Reset()
	if err := writeOutput(&buf, "yaml", v); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "bpm: 120.5" {
		t.Errorf("yaml = %s", buf.String())
	}

	if err := writeOutput(&buf, "xml", v); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCollectAudioFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.mp3", "a.wav", "notes.txt", "sub/c.flac", "sub/cover.jpg"} {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := collectAudioFiles(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(root, "a.wav"), filepath.Join(root, "b.mp3"), filepath.Join(root, "sub", "c.flac")}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("files = %v, want %v", files, want)
	}
}
