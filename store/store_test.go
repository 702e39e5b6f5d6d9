package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTest(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTest(t, "")
	s.now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }

	key := Key{Content: 0xdeadbeef, Profile: 42}
	result := json.RawMessage(`{"bpm":128,"beat_positions":[0.5,1]}`)

	if ok, err := s.Has(key); err != nil || ok {
		t.Fatalf("Has before Put = %v, %v", ok, err)
	}

	if err := s.Put(key, "song.mp3", result); err != nil {
		t.Fatal(err)
	}

	rec, ok, err := s.Get(key)
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if rec.Key != key || rec.Path != "song.mp3" || string(rec.Result) != string(result) {
		t.Errorf("record = %+v", rec)
	}
	if !rec.StoredAt.Equal(s.now()) {
		t.Errorf("stored at = %v", rec.StoredAt)
	}

	if _, ok, err := s.Get(Key{Content: 1}); err != nil || ok {
		t.Errorf("Get(missing) = %v, %v", ok, err)
	}

	if err := s.Delete(key); err != nil {
		t.Fatal(err)
	}
	if ok, _ := s.Has(key); ok {
		t.Error("record still present after Delete")
	}
}

func TestEach(t *testing.T) {
	s := openTest(t, "")

	keys := []Key{{Content: 3}, {Content: 1, Profile: 9}, {Content: 2}}
	for _, k := range keys {
		if err := s.Put(k, k.String(), json.RawMessage(`{}`)); err != nil {
			t.Fatal(err)
		}
	}

	var seen []Key
	if err := s.Each(func(r Record) error {
		seen = append(seen, r.Key)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	want := []Key{{Content: 1, Profile: 9}, {Content: 2}, {Content: 3}}
	if len(seen) != len(want) {
		t.Fatalf("seen %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("record %d = %v, want %v", i, seen[i], want[i])
		}
	}

	stop := errors.New("stop")
	calls := 0
	err := s.Each(func(Record) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("Each did not stop: err = %v, calls = %d", err, calls)
	}
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()
	key := Key{Content: 7, Profile: 8}

	s, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(key, "a.wav", json.RawMessage(`{"bpm":null}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := openTest(t, dir)
	rec, ok, err := reopened.Get(key)
	if err != nil || !ok || rec.Path != "a.wav" {
		t.Errorf("after reopen: %+v, %v, %v", rec, ok, err)
	}
}

func TestKeyFor(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.wav")
	b := filepath.Join(dir, "b.wav")
	if err := os.WriteFile(a, []byte("same bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("same bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	type profile struct{ SampleRate int }

	ka, err := KeyFor(a, profile{22050})
	if err != nil {
		t.Fatal(err)
	}
	kb, _ := KeyFor(b, profile{22050})
	kc, _ := KeyFor(a, profile{44100})

	if ka != kb {
		t.Errorf("identical content hashed differently: %v vs %v", ka, kb)
	}
	if ka.Content != kc.Content || ka.Profile == kc.Profile {
		t.Errorf("profile should change only the profile hash: %v vs %v", ka, kc)
	}

	if _, err := KeyFor(filepath.Join(dir, "missing.wav"), profile{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not exist", err)
	}

	if k, ok := keyFromBytes(ka.bytes()); !ok || k != ka {
		t.Errorf("key bytes round trip = %v, %v", k, ok)
	}
}
