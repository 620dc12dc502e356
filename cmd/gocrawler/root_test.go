package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use and version", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "gocrawler" {
			t.Errorf("expected use 'gocrawler', got %q", cmd.Use)
		}
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" || flag.DefValue != "false" {
			t.Errorf("unexpected flag %q default %q", flag.Shorthand, flag.DefValue)
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()
		want := map[string]bool{"crawl": false, "stats": false, "init": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Name()]; ok {
				want[sub.Name()] = true
			}
		}
		for name, found := range want {
			if !found {
				t.Errorf("expected %s subcommand", name)
			}
		}
	})

	t.Run("silences usage and errors", func(t *testing.T) {
		t.Parallel()
		if !cmd.SilenceUsage || !cmd.SilenceErrors {
			t.Error("expected SilenceUsage and SilenceErrors")
		}
	})
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"gocrawler version", "commit:", "built:"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output %q does not contain %q", out.String(), want)
		}
	}
}

func TestGetVersion(t *testing.T) {
	t.Parallel()

	if getVersion() == "" {
		t.Error("getVersion() returned an empty string")
	}
	if getCommit() == "" || getDate() == "" {
		t.Error("commit and date must never be empty")
	}
}
