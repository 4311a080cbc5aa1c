package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rulehound/rulehound/internal/config"
	"github.com/rulehound/rulehound/internal/mcp"
	"github.com/rulehound/rulehound/internal/tools"
)

func toolsCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the configured servers expose",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTools(cmd.Context(), dir)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory the default filesystem server is rooted at")
	return cmd
}

func runTools(ctx context.Context, dir string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}

	reg := tools.NewRegistry()
	servers := cfg.Servers
	if len(servers) == 0 {
		servers = config.DefaultServers(abs)
	}
	manager := mcp.NewManager(servers, "rulehound", Version)
	if err := manager.Connect(ctx, reg); err != nil {
		return err
	}
	defer manager.Shutdown()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOOL\tSERVER\tDESCRIPTION")
	for _, name := range reg.Names() {
		t, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", t.Name(), t.ServerName(), firstLine(t.Description()))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	for _, d := range reg.Diagnostics() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", d)
	}
	return nil
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
