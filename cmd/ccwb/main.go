// Package main provides the entry point for ccwb, a terminal workbench
// wrapped around an interactive assistant CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/abdullathedruid/ccwb/internal/app"
	"github.com/abdullathedruid/ccwb/internal/child"
	"github.com/abdullathedruid/ccwb/internal/config"
)

// dataDirName is the per-workspace directory holding snapshots, metadata
// and configuration.
const dataDirName = ".cc-workbench"

func main() {
	workspace, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving working directory: %v\n", err)
		os.Exit(1)
	}

	dataDir, err := resolveDataDir(workspace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating data directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	command, err := child.Locate()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	application, err := app.New(cfg, workspace, dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting ccwb: %v\n", err)
		os.Exit(1)
	}

	code, err := application.Run(command, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

// resolveDataDir prefers the workspace-local data directory, falling back
// to a per-workspace directory under the home directory when the workspace
// is not writable.
func resolveDataDir(workspace string) (string, error) {
	local := filepath.Join(workspace, dataDirName)
	if err := os.MkdirAll(local, 0755); err == nil {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	fallback := filepath.Join(home, dataDirName, "workspaces", filepath.Base(workspace))
	if err := os.MkdirAll(fallback, 0755); err != nil {
		return "", err
	}
	return fallback, nil
}
