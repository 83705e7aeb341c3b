package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/klibmirror/klibmirror/pkg/httputil"
)

// newCacheCmd creates the cache command group for managing the descriptor
// response cache. The artifact cache is managed through the mirror command
// (--no-cache) and the filesystem directly.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the descriptor response cache",
		Long: `Cache manages the on-disk cache of Maven descriptor responses.

The descriptor cache lives under the user cache directory and keeps raw
POM documents so repeated mirror runs avoid refetching metadata. Use
"klibmirror mirror --refresh" to bypass it for a single run, or
"klibmirror cache clear" to remove it entirely.`,
	}

	cmd.AddCommand(newCachePathCmd())
	cmd.AddCommand(newCacheClearCmd())

	return cmd
}

func newCachePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the descriptor cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := httputil.NewCache("", 0)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cache.Dir())
			return nil
		},
	}
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached descriptor responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(cmd)
		},
	}
}

func runCacheClear(cmd *cobra.Command) error {
	logger := loggerFromContext(cmd.Context())

	cache, err := httputil.NewCache("", 0)
	if err != nil {
		return err
	}
	dir := cache.Dir()

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		printInfo("Cache is already empty")
		return nil
	}

	var removed int
	var freed int64
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		freed += info.Size()
		if err := os.Remove(path); err != nil {
			return err
		}
		removed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	// Sweep now-empty subdirectories, deepest first.
	var dirs []string
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && info.IsDir() && path != dir {
			dirs = append(dirs, path)
		}
		return nil
	})
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}

	logger.Debugf("Removed %d cached responses from %s", removed, dir)
	printSuccess("Cleared %d cached responses (%s)", removed, formatBytes(freed))
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
