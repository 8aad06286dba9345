package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/varekai/opsmind/internal/adapters/mcp"
	"github.com/varekai/opsmind/internal/config"
	"github.com/varekai/opsmind/internal/core/services"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered by the configured provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listTools(cmd.Context())
		},
	}
}

func listTools(parent context.Context) error {
	logger := newLogger()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := mcp.Dial(ctx, logger, mcp.Config{
		Address: cfg.MCP.Address,
		Token:   cfg.MCP.Token,
		Timeout: cfg.MCP.Timeout.Std(),
	})
	if err != nil {
		return err
	}
	defer client.Close()

	catalog := services.NewToolCatalog(logger, client)
	tools, err := catalog.Load(ctx)
	if err != nil {
		return err
	}

	if len(tools) == 0 {
		fmt.Println("provider offers no tools")
		return nil
	}
	for _, tool := range tools {
		fmt.Println(tool.PromptLine())
	}
	return nil
}
