package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ashureev/livechat/internal/identity"
)

func deviceIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device-id",
		Short: "Print the stable device identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			kv, err := openStore()
			if err != nil {
				return err
			}
			defer closeStore(kv)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if err := kv.Ping(ctx); err != nil {
				return fmt.Errorf("device store unreachable: %w", err)
			}

			p := identity.NewProvider(kv, identity.HostEnvironment(userAgent()), nil)
			id, err := p.GetDeviceID(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func userAgent() string {
	return "livechat-cli/" + version
}
