package config

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"iqtoolkit/analyzer/pkg/providers"
)

func TestInitializeAndReload(t *testing.T) {
	SetConfig(nil)
	t.Cleanup(func() { SetConfig(nil) })

	path := writeConfig(t, validConfig)
	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	first := GetConfig()
	if first == nil || first.Server.ListenAddress != "127.0.0.1:9000" {
		t.Fatalf("unexpected config after initialize: %+v", first)
	}

	updated := strings.Replace(validConfig, "127.0.0.1:9000", "127.0.0.1:9100", 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	reloaded, err := ReloadConfig(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if reloaded.Server.ListenAddress != "127.0.0.1:9100" {
		t.Errorf("expected reloaded address, got %q", reloaded.Server.ListenAddress)
	}
	if GetConfig() != reloaded {
		t.Error("expected global config to be swapped")
	}
	if first.Server.ListenAddress != "127.0.0.1:9000" {
		t.Error("previous config must not be mutated by reload")
	}
}

func TestReloadConfig_InvalidKeepsPrevious(t *testing.T) {
	SetConfig(nil)
	t.Cleanup(func() { SetConfig(nil) })

	path := writeConfig(t, validConfig)
	if err := Initialize(path); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}
	before := GetConfig()

	if err := os.WriteFile(path, []byte("llm:\n  primary: nowhere\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReloadConfig(path); err == nil {
		t.Fatal("expected reload error")
	}
	if GetConfig() != before {
		t.Error("failed reload must keep previous config")
	}
}

func TestGetConfig_Concurrent(t *testing.T) {
	SetConfig(validTestConfig())
	t.Cleanup(func() { SetConfig(nil) })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%5 == 0 {
				SetConfig(validTestConfig())
				return
			}
			if GetConfig() == nil {
				t.Error("expected non-nil config")
			}
		}(i)
	}
	wg.Wait()
}

func TestMustGetConfig_Panics(t *testing.T) {
	SetConfig(nil)
	defer func() {
		if recover() == nil {
			t.Error("expected panic when config is not initialized")
		}
	}()
	MustGetConfig()
}

func TestToProviderConfigs(t *testing.T) {
	cfg := validTestConfig()
	p := cfg.Providers["openai"]
	p.Enabled = Bool(false)
	cfg.Providers["openai"] = p

	list := cfg.ToProviderConfigs()
	if len(list) != 2 {
		t.Fatalf("expected 2 provider configs, got %d", len(list))
	}
	if list[0].Name != "ollama" || list[1].Name != "openai" {
		t.Errorf("expected sorted names, got %s, %s", list[0].Name, list[1].Name)
	}
	if list[0].Protocol != providers.ProtocolGenerate {
		t.Errorf("expected generate protocol for ollama, got %s", list[0].Protocol)
	}
	if list[1].Enabled {
		t.Error("expected openai disabled")
	}
	if list[0].MaxTokens != DefaultMaxTokens || list[0].Temperature != DefaultTemperature {
		t.Errorf("expected llm parameters copied, got %+v", list[0])
	}
	if list[0].RetryCount != DefaultProviderRetryCount {
		t.Errorf("expected default retry count, got %d", list[0].RetryCount)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	SetConfig(nil)
	t.Cleanup(func() { SetConfig(nil) })

	path := writeConfig(t, validConfig)
	if err := Initialize(path); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func(cfg *Config) error {
			select {
			case reloaded <- cfg:
			default:
			}
			return nil
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	updated := strings.Replace(validConfig, "127.0.0.1:9000", "127.0.0.1:9200", 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Server.ListenAddress != "127.0.0.1:9200" {
			t.Errorf("expected reloaded address, got %q", cfg.Server.ListenAddress)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNewWatcher_RequiresPath(t *testing.T) {
	if _, err := NewWatcher("", 0, nil); err == nil {
		t.Error("expected error for empty path")
	}
}
