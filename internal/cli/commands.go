package cmd

import (
	"fmt"
	"slices"

	"github.com/rohmanhakim/nps-explorer/internal/build"
	"github.com/spf13/cobra"
)

func newStatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "Print every state name the site index knows, with its page URL.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := InitConfigWithError()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			index, err := a.catalog.StateIndex(cmd.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(index))
			for name := range index {
				names = append(names, name)
			}
			slices.Sort(names)
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, index[name])
			}
			return nil
		},
	}
}

func newCacheCommand() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or empty the persisted cache.",
	}

	var listKeys bool
	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the cache backend and how many entries it holds.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := InitConfigWithError()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend: %s\n", a.store.Describe())
			fmt.Fprintf(out, "Entries: %d\n", a.store.Len(cmd.Context()))
			if listKeys {
				for _, key := range a.store.Keys(cmd.Context()) {
					fmt.Fprintln(out, key)
				}
			}
			return nil
		},
	}
	infoCmd.Flags().BoolVar(&listKeys, "keys", false, "also print every cache key")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached page and search answer.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := InitConfigWithError()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", a.store.Describe())
			return nil
		},
	}

	cacheCmd.AddCommand(infoCmd, clearCmd)
	return cacheCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.Banner())
		},
	}
}
