// Package main provides the entry point for the contentcache CLI, a small
// operator surface over the persistent content cache.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papermuse/contentcache/internal/cache"
	"github.com/papermuse/contentcache/internal/strategy"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string

	rootCmd = &cobra.Command{
		Use:           "contentcache",
		Short:         "Inspect and manage the content cache",
		SilenceErrors: false,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if viper.GetBool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
	}
)

// loadConfig builds the store configuration from defaults, environment
// variables and the viper-managed config file, in that order of precedence
// (file wins).
func loadConfig() (*cache.Config, error) {
	cfg := cache.DefaultConfig()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Bound flags report as set even at their zero defaults, so only take
	// meaningful values from viper.
	if dir := viper.GetString("cache_dir"); dir != "" {
		cfg.CacheDir = dir
	}
	if mb := viper.GetInt64("max_size_mb"); mb > 0 {
		cfg.MaxSizeMB = mb
	}
	if ttl := viper.GetDuration("default_ttl"); ttl > 0 {
		cfg.DefaultTTL = ttl
	}
	if viper.IsSet("enable_compression") {
		cfg.EnableCompression = viper.GetBool("enable_compression")
	}

	// One-shot commands have no use for the background sweep; the sweep
	// subcommand runs it explicitly.
	cfg.SweepInterval = 0

	return cfg, nil
}

func openStore() (*cache.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	return cache.New(cfg)
}

// parseValue decodes a CLI argument as JSON where possible, falling back to
// a plain string.
func parseValue(arg string) any {
	var value any
	if err := json.Unmarshal([]byte(arg), &value); err == nil {
		return value
	}
	return arg
}

// parseMeta turns repeated key=value flags into a metadata map.
func parseMeta(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	meta := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid metadata %q: want key=value", pair)
		}
		meta[key] = value
	}

	return meta, nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		stats := store.Stats()

		if export, _ := cmd.Flags().GetString("export"); export != "" {
			if err := store.ExportStats(export); err != nil {
				return fmt.Errorf("failed to export stats: %w", err)
			}
			fmt.Printf("stats written to %s\n", export)
			return nil
		}

		fmt.Printf("entries:      %d\n", stats.Entries)
		fmt.Printf("size:         %s of %s\n",
			humanize.Bytes(uint64(stats.TotalBytes)), humanize.Bytes(uint64(stats.Capacity)))
		fmt.Printf("hits:         %d\n", stats.Hits)
		fmt.Printf("misses:       %d\n", stats.Misses)
		fmt.Printf("hit rate:     %.1f%%\n", stats.HitRate*100)
		fmt.Printf("evictions:    %d\n", stats.Evictions)
		fmt.Printf("expirations:  %d\n", stats.Expirations)
		fmt.Printf("avg latency:  %s\n", stats.AvgLatency)

		if len(stats.MostAccessed) > 0 {
			fmt.Println("most accessed:")
			for _, ka := range stats.MostAccessed {
				fmt.Printf("  %6d  %s\n", ka.Count, ka.Key)
			}
		}

		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get KEY",
	Short: "Read a cached value",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		value, ok := store.Get(args[0])
		if !ok {
			return fmt.Errorf("cache miss for %q", args[0])
		}

		out, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(out))
		return nil
	},
}

var setCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Store a value (VALUE is parsed as JSON when possible)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, _ := cmd.Flags().GetDuration("ttl")
		noExpiry, _ := cmd.Flags().GetBool("no-expiry")
		metaPairs, _ := cmd.Flags().GetStringArray("meta")
		strategyName, _ := cmd.Flags().GetString("strategy")

		meta, err := parseMeta(metaPairs)
		if err != nil {
			return err
		}

		if noExpiry {
			ttl = cache.NoExpiry
		}

		key, value := args[0], parseValue(args[1])

		// With a strategy, admission and TTL come from the policy instead
		// of flags.
		if strategyName != "" {
			strat, err := strategy.ForName(strategyName)
			if err != nil {
				return err
			}
			if !strat.ShouldCache(key, value, meta) {
				fmt.Printf("strategy declined to cache %q\n", key)
				return nil
			}
			ttl = strat.TTL(key, value, meta)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if !store.Set(key, value, ttl, meta) {
			return fmt.Errorf("failed to cache %q", key)
		}

		return nil
	},
}

var warmCmd = &cobra.Command{
	Use:   "warm TYPE:TOPIC [TYPE:TOPIC...]",
	Short: "Pre-populate the cache for a list of topics",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strategyName, _ := cmd.Flags().GetString("strategy")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		strat, err := strategy.ForName(strategyName)
		if err != nil {
			return err
		}

		topics := make([]cache.Topic, 0, len(args))
		for _, arg := range args {
			contentType, name, ok := strings.Cut(arg, ":")
			if !ok {
				return fmt.Errorf("invalid topic %q: want TYPE:TOPIC", arg)
			}
			topics = append(topics, cache.Topic{Name: name, ContentType: contentType})
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		warmer := cache.NewWarmer(store, concurrency, cache.DefaultTTL)
		result := warmer.Warm(cmd.Context(), topics, func(_ context.Context, topic cache.Topic) (any, error) {
			value := fmt.Sprintf("pre-generated %s for %s", topic.ContentType, topic.Name)
			meta := map[string]string{"content_type": topic.ContentType}
			if !strat.ShouldCache(topic.Name, value, meta) {
				return nil, fmt.Errorf("strategy declined %s:%s", topic.ContentType, topic.Name)
			}
			return value, nil
		})

		fmt.Printf("warmed %d/%d topics\n", result.Warmed, result.Total)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete KEY",
	Short: "Remove a cached value",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		if !store.Delete(args[0]) {
			fmt.Printf("%q was not cached\n", args[0])
			return nil
		}

		fmt.Printf("deleted %q\n", args[0])
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached value",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		fmt.Printf("removed %d entries\n", store.Clear())
		return nil
	},
}

var invalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Bulk-remove entries by key pattern or metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pattern, _ := cmd.Flags().GetString("pattern")
		metaPairs, _ := cmd.Flags().GetStringArray("meta")

		if pattern == "" && len(metaPairs) == 0 {
			return fmt.Errorf("provide --pattern or --meta")
		}

		meta, err := parseMeta(metaPairs)
		if err != nil {
			return err
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		removed := 0
		if pattern != "" {
			removed += store.InvalidateByPattern(pattern)
		}
		if len(meta) > 0 {
			removed += store.InvalidateByMetadata(meta)
		}

		fmt.Printf("invalidated %d entries\n", removed)
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired entries now",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		fmt.Printf("swept %d expired entries\n", store.Sweep())
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List cached keys",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		for _, key := range store.Keys() {
			fmt.Println(key)
		}
		return nil
	},
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		configDir, err := os.UserConfigDir()
		if err != nil {
			log.Warn("could not resolve config directory", "err", err)
			return
		}
		viper.AddConfigPath(filepath.Join(configDir, "contentcache"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("could not read config file", "err", err)
		}
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/contentcache/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("cache-dir", "", "cache directory")
	rootCmd.PersistentFlags().Int64("max-size", 0, "cache size budget in MB")
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
	_ = viper.BindPFlag("max_size_mb", rootCmd.PersistentFlags().Lookup("max-size"))

	statsCmd.Flags().String("export", "", "write stats snapshot to a JSON file")
	setCmd.Flags().Duration("ttl", 0, "entry TTL (0 uses the store default)")
	setCmd.Flags().Bool("no-expiry", false, "store without TTL expiry")
	setCmd.Flags().StringArray("meta", nil, "entry metadata as key=value (repeatable)")
	setCmd.Flags().String("strategy", "", "caching strategy deciding admission and TTL (content-type, time-sensitive, user-segment)")
	warmCmd.Flags().String("strategy", "content-type", "caching strategy gating warmed topics")
	warmCmd.Flags().Int("concurrency", 4, "number of topics warmed in parallel")
	invalidateCmd.Flags().String("pattern", "", "remove entries whose key contains this substring")
	invalidateCmd.Flags().StringArray("meta", nil, "remove entries matching all key=value pairs (repeatable)")

	rootCmd.AddCommand(statsCmd, getCmd, setCmd, warmCmd, deleteCmd, clearCmd, invalidateCmd, sweepCmd, keysCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
