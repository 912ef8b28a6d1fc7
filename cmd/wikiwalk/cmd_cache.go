package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanonone/wikiwalk/pkg/linkcache"
)

func runCacheStats(cmd *cobra.Command, args []string) error {
	cache, err := linkcache.Open(cfg.Cache.Backend, cfg.Cache.Path, logger)
	if err != nil {
		return fmt.Errorf("open link cache: %w", err)
	}
	defer cache.Close()

	st := linkcache.Summarize(cache)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Backend:     %s\n", cfg.Cache.Backend)
	if cfg.Cache.Backend != linkcache.BackendMemory {
		fmt.Fprintf(out, "Path:        %s\n", cfg.Cache.Path)
	}
	fmt.Fprintf(out, "Titles:      %d\n", st.Titles)
	fmt.Fprintf(out, "Links:       %d\n", st.Links)
	fmt.Fprintf(out, "Dead ends:   %d\n", st.DeadEnds)
	if st.MostLinked != "" {
		fmt.Fprintf(out, "Most linked: %s (%d)\n", st.MostLinked, st.MostLinkedCount)
	}
	return nil
}

func runCacheGet(cmd *cobra.Command, args []string) error {
	title := strings.TrimSpace(args[0])

	cache, err := linkcache.Open(cfg.Cache.Backend, cfg.Cache.Path, logger)
	if err != nil {
		return fmt.Errorf("open link cache: %w", err)
	}
	defer cache.Close()

	links, ok, err := cache.Get(title)
	if err != nil {
		return err
	}
	if !ok {
		return &exitError{code: 1, err: fmt.Errorf("%q is not cached", title)}
	}

	out := cmd.OutOrStdout()
	for _, l := range links {
		fmt.Fprintln(out, l)
	}
	return nil
}
