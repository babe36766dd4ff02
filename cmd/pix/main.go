package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pix-go/internal/app"
	"pix-go/internal/config"
	"pix-go/internal/encryption"
	"pix-go/internal/index"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a PixApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "BuildFull", "Watch").
func newApp(operation string) (*app.PixApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewPixApp(cfg, operation, promptPassphrase)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(pass), nil
}

var rootCmd = &cobra.Command{
	Use:   "pix",
	Short: "On-device photo index and scoring service",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init LIBRARY_ROOT",
	Short: "Initialize configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		installID := uuid.New().String()
		cfg := config.NewConfig(installID, defaults["base_dir"], args[0])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Install ID:   %s\n", installID)
		fmt.Printf("Library Root: %s\n", args[0])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Install ID:   %s\n", cfg.InstallID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Library:      %s (%s)\n", cfg.Library.Root, cfg.Library.Type)
		fmt.Printf("Payload:      %s\n", cfg.Payload.Type)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		return nil
	},
}

// key command
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the payload encryption key",
}

var keyInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a payload encryption key",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		pass, err := promptPassphrase("Passphrase (empty for none): ")
		if err != nil {
			return err
		}
		if pass != "" {
			confirm, err := promptPassphrase("Confirm passphrase: ")
			if err != nil {
				return err
			}
			if confirm != pass {
				return fmt.Errorf("passphrases do not match")
			}
		}

		if err := encryption.GenerateIdentity(cfg.Encryption.IdentityPath, pass); err != nil {
			return fmt.Errorf("generating key: %w", err)
		}

		fmt.Printf("Key written to %s\n", cfg.Encryption.IdentityPath)
		if cfg.Encryption.Type != "age" {
			fmt.Println(`Set encryption type = "age" in the config to enable it.`)
		}
		return nil
	},
}

// build command
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the index from a full library scan",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BuildFull")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.BuildFull(cmd.Context())
		if err != nil {
			return fmt.Errorf("build failed: %w", err)
		}

		fmt.Printf("Indexed %d asset(s)\n", count)
		return nil
	},
}

// rebuild command
var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the index if stale",
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		a, err := newApp("Rebuild")
		if err != nil {
			return err
		}
		defer a.Close()

		if force {
			count, err := a.RebuildNow(cmd.Context())
			if err != nil {
				return fmt.Errorf("rebuild failed: %w", err)
			}
			fmt.Printf("Rebuilt index with %d asset(s)\n", count)
			return nil
		}

		ran, err := a.RebuildIfDue(cmd.Context())
		if err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}
		if ran {
			fmt.Println("Index rebuilt.")
		} else {
			fmt.Println("Index is fresh, nothing to do.")
		}
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow library changes and keep the index current",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Watch")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if !a.IsReady() {
			count, err := a.BuildFull(ctx)
			if err != nil {
				return fmt.Errorf("initial build failed: %w", err)
			}
			fmt.Printf("Indexed %d asset(s)\n", count)
		}

		return a.Watch(ctx)
	},
}

// top command
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "List the best assets for a year, place, or person",
	RunE: func(cmd *cobra.Command, args []string) error {
		year, _ := cmd.Flags().GetInt("year")
		place, _ := cmd.Flags().GetString("place")
		person, _ := cmd.Flags().GetString("person")
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("TopItems")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.IsReady() {
			fmt.Println("Index not built yet. Run: pix build")
			return nil
		}

		refs := a.TopItems(index.Filter{Year: year, Place: place, Person: person}, limit)
		if len(refs) == 0 {
			fmt.Println("No matching assets.")
			return nil
		}

		for _, r := range refs {
			fmt.Printf("%6d  %dx%d  %d  %s\n",
				r.Score, r.PixelWidth, r.PixelHeight, r.CreationYear, r.AssetID)
		}
		return nil
	},
}

// availability commands
var yearsCmd = &cobra.Command{
	Use:   "years",
	Short: "List years with indexed photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AvailableYears")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, y := range a.AvailableYears() {
			fmt.Println(y)
		}
		return nil
	},
}

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "List place labels with indexed photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AvailablePlaces")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, p := range a.AvailablePlaces() {
			fmt.Println(p)
		}
		return nil
	},
}

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List person labels with indexed photos",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AvailablePeople")
		if err != nil {
			return err
		}
		defer a.Close()

		for _, p := range a.AvailablePeople() {
			fmt.Println(p)
		}
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View index status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Stats")
		if err != nil {
			return err
		}
		defer a.Close()

		ready, entries, lastBuild := a.Stats()
		if !ready {
			fmt.Println("Index not built yet. Run: pix build")
			return nil
		}

		fmt.Printf("Entries:         %d\n", entries)
		fmt.Printf("Last full build: %s\n", lastBuild.Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	keyCmd.AddCommand(keyInitCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(rebuildCmd)
	rebuildCmd.Flags().BoolP("force", "f", false, "Rebuild even if the index is fresh")
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(topCmd)
	topCmd.Flags().Int("year", 0, "Filter by creation year")
	topCmd.Flags().String("place", "", "Filter by place label")
	topCmd.Flags().String("person", "", "Filter by person label")
	topCmd.Flags().IntP("limit", "n", 0, "Maximum results (capped at 10)")
	rootCmd.AddCommand(yearsCmd)
	rootCmd.AddCommand(placesCmd)
	rootCmd.AddCommand(peopleCmd)
	rootCmd.AddCommand(statusCmd)
}
