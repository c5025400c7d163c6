package config

import (
	"os"
	"os/user"
	"testing"

	"gopkg.in/yaml.v2"
)

func TestGetConfigFilePathJoinsHomeDir(t *testing.T) {
	p, err := GetConfigFilePath("config.yml")
	if err != nil {
		t.Fatalf("GetConfigFilePath: %v", err)
	}
	if p == "" {
		t.Fatal("expected a non-empty path")
	}
}

func TestConfigRoundTripThroughYAML(t *testing.T) {
	conf := &Config{
		AltFilePath: "/tmp/alt.debug",
		RefCacheSize: 512,
		Verbose: true,
	}

	out, err := yaml.Marshal(*conf)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	dir := t.TempDir()
	full := dir + "/config.yml"
	if err := os.WriteFile(full, out, 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if loaded.AltFilePath != conf.AltFilePath || loaded.RefCacheSize != conf.RefCacheSize || loaded.Verbose != conf.Verbose {
		t.Fatalf("loaded = %+v, want %+v", loaded, *conf)
	}
}

func TestNormalizeDirsDropsBlankAndDuplicateEntries(t *testing.T) {
	got := normalizeDirs([]string{"/a", "", "  ", "/a", "/b"})
	want := []string{"/a", "/b"}
	if len(got) != len(want) {
		t.Fatalf("normalizeDirs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("normalizeDirs = %v, want %v", got, want)
		}
	}
}

func TestNormalizeExpandsHomeInDebugInfoDirectories(t *testing.T) {
	usr, err := user.Current()
	if err != nil {
		t.Skipf("no current user: %v", err)
	}
	c := &Config{DebugInfoDirectories: []string{"~/dbg"}}
	if err := normalize(c); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := usr.HomeDir + "/dbg"
	if len(c.DebugInfoDirectories) != 1 || c.DebugInfoDirectories[0] != want {
		t.Fatalf("DebugInfoDirectories = %v, want [%s]", c.DebugInfoDirectories, want)
	}
}

func TestNormalizeRejectsMissingAltFilePath(t *testing.T) {
	c := &Config{AltFilePath: "/no/such/alt/file.debug"}
	if err := normalize(c); err == nil {
		t.Fatal("expected an error for a non-existent alt-file-path")
	}
}

func TestNormalizeAcceptsExistingAltFilePath(t *testing.T) {
	dir := t.TempDir()
	full := dir + "/alt.debug"
	if err := os.WriteFile(full, []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c := &Config{AltFilePath: full}
	if err := normalize(c); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestWriteDefaultConfigProducesParsableYAML(t *testing.T) {
	dir := t.TempDir()
	full := dir + "/config.yml"
	f, err := os.Create(full)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := writeDefaultConfig(f); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}
	f.Close()

	data, err := os.ReadFile(full)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		t.Fatalf("default config is not valid YAML: %v", err)
	}
	if len(c.DebugInfoDirectories) != 1 || c.DebugInfoDirectories[0] != "/usr/lib/debug/.build-id" {
		t.Fatalf("DebugInfoDirectories = %v, want [/usr/lib/debug/.build-id]", c.DebugInfoDirectories)
	}
}
