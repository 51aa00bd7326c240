package dashboard

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:8080" || cfg.Poll != 30*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.toml")
	body := `
api_url = "https://desk.example.com/"
token = " abc "
staff_id = "staff-1"
poll_seconds = 10
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIURL != "https://desk.example.com" {
		t.Fatalf("api url = %q", cfg.APIURL)
	}
	if cfg.Token != "abc" || cfg.StaffID != "staff-1" || cfg.Poll != 10*time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfig_RejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"negative.toml": "poll_seconds = -1\n",
		"broken.toml":   "api_url = \n",
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadConfig(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
