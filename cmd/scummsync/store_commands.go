package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scummsync/internal/config"
	"scummsync/internal/inistore"
	"scummsync/internal/library"
	"scummsync/internal/marker"
	"scummsync/internal/reconcile"
	"scummsync/internal/services"
)

const storeFlagHelp = "Config store: native or libretro"

func newMarkersCommand(ctx *commandContext) *cobra.Command {
	markersCmd := &cobra.Command{
		Use:   "markers",
		Short: "Marker file utilities",
	}
	markersCmd.AddCommand(newMarkersCreateCommand(ctx))
	return markersCmd
}

func newMarkersCreateCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a marker file for every game in the engine config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, _, err := ctx.loadStore(config.StoreNative)
			if err != nil {
				return err
			}
			root := library.New(cfg.Paths.LibraryDir, cfg.Markers.Extension)
			markers := marker.NewStore(root)
			snap, err := markers.ListAll()
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "markers", "list", "Library directory is not readable", err)
			}

			ops := reconcile.PlanMarkers(store, root, snap, overwrite)
			logger := ctx.logger()
			for _, op := range ops {
				logger.Debug("marker planned", "op", op.String())
			}
			if err := markers.Apply(ops); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s.\n", plural(len(ops), "marker file"))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&overwrite, "overwrite", "o", false, "Overwrite existing marker files")
	return cmd
}

func newUniqCommand(ctx *commandContext) *cobra.Command {
	var selector string

	cmd := &cobra.Command{
		Use:   "uniq <game|" + reconcile.AllBases + ">",
		Short: "Collapse game variants (base-xx) onto a single [base] section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, path, err := ctx.loadStore(selector)
			if err != nil {
				return err
			}
			results, err := reconcile.Unify(store, args[0], cfg.Store.DefaultsSection)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			changed := false
			for _, r := range results {
				if !r.Changed() {
					fmt.Fprintf(out, "[%s] already unique\n", r.Base)
					continue
				}
				changed = true
				fmt.Fprintf(out, "[%s] <- [%s]", r.Base, r.Source)
				if len(r.Removed) > 0 {
					fmt.Fprintf(out, " (dropped %s)", strings.Join(r.Removed, ", "))
				}
				fmt.Fprintln(out)
			}
			if !changed {
				return nil
			}
			if err := ctx.saveStore(store, path); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&selector, "ini", "i", config.StoreNative, storeFlagHelp)
	return cmd
}

func newCopyEntryCommand(ctx *commandContext) *cobra.Command {
	var target string
	var force bool

	cmd := &cobra.Command{
		Use:   "copyentry <section>",
		Short: "Copy a game section between the native and libretro config stores",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target = strings.ToLower(strings.TrimSpace(target))
			source := config.StoreNative
			switch target {
			case config.StoreLibretro:
			case config.StoreNative:
				source = config.StoreLibretro
			default:
				return services.Wrap(services.ErrValidation, "copyentry", "flags",
					fmt.Sprintf("Unknown --to value %q; use %s or %s", target, config.StoreLibretro, config.StoreNative), nil)
			}

			src, _, err := ctx.loadStore(source)
			if err != nil {
				return err
			}
			dst, dstPath, err := ctx.loadStore(target)
			if isNotFound(err) {
				dst, err = inistore.New(), nil
			}
			if err != nil {
				return err
			}

			root := library.New(cfg.Paths.LibraryDir, cfg.Markers.Extension)
			label := strings.TrimSpace(args[0])
			if err := reconcile.CopyEntry(src, dst, label, root, target == config.StoreLibretro, force); err != nil {
				return err
			}
			if err := ctx.saveStore(dst, dstPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Section [%s] written to %s\n", label, dstPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "to", "t", config.StoreLibretro, "Destination store: libretro or native")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Replace the section when the destination already has it")
	return cmd
}

func newCheckEntryCommand(ctx *commandContext) *cobra.Command {
	var selector string

	cmd := &cobra.Command{
		Use:   "checkentry <section>",
		Short: "Print present or absent for a section label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.loadStore(selector)
			if isNotFound(err) {
				store, err = inistore.New(), nil
			}
			if err != nil {
				return err
			}
			status := "absent"
			if store.Has(strings.TrimSpace(args[0])) {
				status = "present"
			}
			fmt.Fprintln(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().StringVarP(&selector, "ini", "i", config.StoreNative, storeFlagHelp)
	return cmd
}

func newFindSectionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "findsection <folder>",
		Short: "Print the labels (;-separated) of sections whose path ends with folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := ctx.loadStore(config.StoreNative)
			if isNotFound(err) {
				store, err = inistore.New(), nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(reconcile.FindSections(store, args[0]), ";"))
			return nil
		},
	}
}
