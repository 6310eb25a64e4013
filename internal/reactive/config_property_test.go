package reactive

import "testing"

func TestConfigPropertySourceTransitions(t *testing.T) {
	c := NewConfigProperty(10)
	if c.Source() != SourceDefault {
		t.Fatalf("expected SourceDefault, got %s", c.Source())
	}
	if c.Get() != 10 {
		t.Fatalf("expected default 10, got %d", c.Get())
	}

	c.SetConfig(20)
	if c.Source() != SourceConfig {
		t.Fatalf("expected SourceConfig, got %s", c.Source())
	}
	if c.Get() != 20 {
		t.Fatalf("expected 20, got %d", c.Get())
	}

	c.Set(30)
	if c.Source() != SourceOverride {
		t.Fatalf("expected SourceOverride, got %s", c.Source())
	}
	if c.Get() != 30 {
		t.Fatalf("expected 30, got %d", c.Get())
	}

	c.ClearConfig()
	if c.Source() != SourceCustom {
		t.Fatalf("expected SourceCustom after clearing config with runtime set, got %s", c.Source())
	}

	c.ClearRuntime()
	if c.Source() != SourceDefault {
		t.Fatalf("expected SourceDefault, got %s", c.Source())
	}
}

// TestResetApplyCommitPreservesRuntimeOverride mirrors the original
// implementation's reset_apply_commit_preserves_runtime_override case:
// a runtime override must survive a config reload pass that stages no
// new config value, and the source must report Custom (runtime with
// no config), not Override.
func TestResetApplyCommitPreservesRuntimeOverride(t *testing.T) {
	c := NewConfigProperty(1)
	c.SetConfig(2)
	c.Set(3) // runtime override on top of config

	c.ResetConfigLayer()
	// No ApplyConfigLayer call: the reload found no value for this key.
	c.CommitConfigReload()

	if got := c.Get(); got != 3 {
		t.Fatalf("expected runtime override 3 preserved, got %d", got)
	}
	if c.Source() != SourceCustom {
		t.Fatalf("expected SourceCustom, got %s", c.Source())
	}
}

// TestResetApplyCommitWithNewConfigValue mirrors
// reset_apply_commit_with_new_config_value: a fresh config value
// staged during the reload window becomes the config layer once
// committed, and the runtime override (if any existed) still wins.
func TestResetApplyCommitWithNewConfigValue(t *testing.T) {
	c := NewConfigProperty(1)
	c.SetConfig(2)

	c.ResetConfigLayer()
	c.SetConfig(5) // re-applies via the normal path for this test's purposes
	c.CommitConfigReload()

	if got := c.Get(); got != 5 {
		t.Fatalf("expected new config value 5, got %d", got)
	}
	if c.Source() != SourceConfig {
		t.Fatalf("expected SourceConfig, got %s", c.Source())
	}
}

func TestApplyRuntimeLayer(t *testing.T) {
	type weatherOverride struct {
		Location string
	}
	c := NewConfigProperty(weatherOverride{Location: "London"})
	if err := c.ApplyRuntimeLayer([]byte(`Location = "Paris"`)); err != nil {
		t.Fatalf("ApplyRuntimeLayer: %v", err)
	}
	if got := c.Get().Location; got != "Paris" {
		t.Fatalf("expected runtime layer to win with Location=Paris, got %q", got)
	}
	if c.Source() != SourceCustom {
		t.Fatalf("expected SourceCustom, got %s", c.Source())
	}
	if v, ok := c.RuntimeValue(); !ok || v.Location != "Paris" {
		t.Fatalf("expected RuntimeValue to report Location=Paris, got %v, %v", v, ok)
	}
}

func TestApplyRuntimeLayerLeavesPriorValueOnFailure(t *testing.T) {
	c := NewConfigProperty(1)
	c.Set(7)
	if err := c.ApplyRuntimeLayer([]byte(`not valid toml =`)); err == nil {
		t.Fatal("expected decode error")
	}
	if got := c.Get(); got != 7 {
		t.Fatalf("expected prior runtime value 7 preserved on failed decode, got %d", got)
	}
}

func TestConfigPropertyResetWithoutRecompute(t *testing.T) {
	c := NewConfigProperty(1)
	c.SetConfig(2)

	c.ResetConfigLayer()
	// Effective value must NOT change until CommitConfigReload runs.
	if got := c.Get(); got != 2 {
		t.Fatalf("expected effective value to still be 2 before commit, got %d", got)
	}

	c.CommitConfigReload()
	if got := c.Get(); got != 1 {
		t.Fatalf("expected effective value to fall back to default 1 after commit, got %d", got)
	}
}
